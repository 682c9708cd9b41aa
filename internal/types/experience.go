package types

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// Experience types recognised by the backend.
const (
	ExperienceWork         = "work"
	ExperienceProject      = "project"
	ExperienceVolunteering = "volunteering"
)

// Experience represents a stored experience record owned by the signed-in user.
type Experience struct {
	ID        string   `json:"id" yaml:"id" validate:"required,max=100"`
	Type      string   `json:"type" yaml:"type" validate:"required,max=50"`
	Title     string   `json:"title" yaml:"title" validate:"required,min=1,max=200"`
	DateRange *string  `json:"date_range" yaml:"date_range" validate:"omitempty,max=100"`
	Skills    []string `json:"skills" yaml:"skills" validate:"max=30"`
	Industry  []string `json:"industry" yaml:"industry" validate:"max=10"`
	Tags      []string `json:"tags" yaml:"tags" validate:"max=20"`
	Content   string   `json:"content" yaml:"content" validate:"required,min=1,max=10000"`
}

// Validate validates the Experience using the validator.
func (e *Experience) Validate() error {
	validate := validator.New()
	return validate.Struct(e)
}

// ExperienceList is the body returned by GET /api/experiences.
type ExperienceList struct {
	Experiences []Experience `json:"experiences"`
	Count       int          `json:"count"`
}

// BatchExperienceRequest is the body of POST /api/experiences/batch.
type BatchExperienceRequest struct {
	Experiences []Experience `json:"experiences" validate:"required,min=1,max=25,dive"`
}

// Validate validates the BatchExperienceRequest using the validator.
func (r *BatchExperienceRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// MutationResponse is returned by experience create/update/delete/batch endpoints.
type MutationResponse struct {
	Status string `json:"status"`
	ID     string `json:"id,omitempty"`
	Count  int    `json:"count,omitempty"`
}

// LinkedInParseRequest is the body of POST /api/parse-linkedin.
type LinkedInParseRequest struct {
	ExperiencesText  string `json:"experiences_text,omitempty" validate:"max=15000"`
	ProjectsText     string `json:"projects_text,omitempty" validate:"max=15000"`
	VolunteeringText string `json:"volunteering_text,omitempty" validate:"max=15000"`
}

// Validate validates the LinkedInParseRequest using the validator.
func (r *LinkedInParseRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Empty reports whether every section is blank.
func (r *LinkedInParseRequest) Empty() bool {
	return isBlank(r.ExperiencesText) && isBlank(r.ProjectsText) && isBlank(r.VolunteeringText)
}

// ParsedExperience is one entry extracted from pasted LinkedIn text. It has no ID yet.
type ParsedExperience struct {
	Type      string   `json:"type"`
	Title     string   `json:"title"`
	DateRange *string  `json:"date_range"`
	Skills    []string `json:"skills"`
	Content   string   `json:"content"`
}

// LinkedInParseResponse is the body returned by POST /api/parse-linkedin.
type LinkedInParseResponse struct {
	Experiences []ParsedExperience `json:"experiences"`
	Count       int                `json:"count"`
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
