package types

import "github.com/go-playground/validator/v10"

// GenerateRequest is the body of POST /api/generate.
type GenerateRequest struct {
	JobDescription string   `json:"job_description" validate:"required,max=5000"`
	ExperienceIDs  []string `json:"experience_ids" validate:"required,min=1,max=20,dive,required"`
}

// Validate validates the GenerateRequest using the validator.
func (r *GenerateRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// ProjectBullets is one group of generated bullets, labelled by the experience it came from.
type ProjectBullets struct {
	Project string   `json:"project"`
	Bullets []string `json:"bullets"`
}

// GenerateResponse is the body returned by POST /api/generate on success.
type GenerateResponse struct {
	Projects []ProjectBullets `json:"projects"`
}

// ErrorBody is the error payload the backend returns on non-2xx responses.
type ErrorBody struct {
	Detail string `json:"detail"`
}

// CloneProjects returns a deep copy so callers cannot mutate controller-owned results.
func CloneProjects(projects []ProjectBullets) []ProjectBullets {
	if projects == nil {
		return nil
	}
	out := make([]ProjectBullets, len(projects))
	for i, p := range projects {
		out[i] = ProjectBullets{
			Project: p.Project,
			Bullets: append([]string(nil), p.Bullets...),
		}
	}
	return out
}
