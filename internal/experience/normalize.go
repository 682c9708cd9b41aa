package experience

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jonathan/resume-tailor/internal/types"
)

var validTypes = map[string]bool{
	types.ExperienceWork:         true,
	types.ExperienceProject:      true,
	types.ExperienceVolunteering: true,
}

// NewID returns a fresh experience id.
func NewID() string {
	return uuid.NewString()
}

// Normalize trims text fields, canonicalizes skills and tags, fills a missing
// id and type, and validates the result against the backend's limits.
func Normalize(exp *types.Experience) error {
	exp.ID = strings.TrimSpace(exp.ID)
	if exp.ID == "" {
		exp.ID = NewID()
	}

	exp.Type = strings.ToLower(strings.TrimSpace(exp.Type))
	if exp.Type == "" {
		exp.Type = types.ExperienceProject
	}
	if !validTypes[exp.Type] {
		return &NormalizationError{
			Message: fmt.Sprintf("invalid type '%s' in experience '%s'", exp.Type, exp.ID),
		}
	}

	exp.Title = strings.TrimSpace(exp.Title)
	exp.Content = strings.TrimSpace(exp.Content)
	if exp.DateRange != nil {
		dr := strings.TrimSpace(*exp.DateRange)
		if dr == "" {
			exp.DateRange = nil
		} else {
			exp.DateRange = &dr
		}
	}

	exp.Skills = NormalizeSkills(exp.Skills)
	exp.Industry = trimAll(exp.Industry)
	exp.Tags = trimAll(exp.Tags)

	if err := exp.Validate(); err != nil {
		return &NormalizationError{
			Message: fmt.Sprintf("experience '%s' is invalid", exp.ID),
			Cause:   err,
		}
	}
	return nil
}

// NormalizeAll normalizes every experience and rejects duplicate ids.
func NormalizeAll(exps []types.Experience) error {
	seen := make(map[string]int, len(exps))
	for i := range exps {
		if err := Normalize(&exps[i]); err != nil {
			return err
		}
		if j, dup := seen[exps[i].ID]; dup {
			return &NormalizationError{
				Message: fmt.Sprintf("duplicate id '%s' at entries %d and %d", exps[i].ID, j+1, i+1),
			}
		}
		seen[exps[i].ID] = i
	}
	return nil
}

// FromParsed turns LinkedIn parse results into experiences ready to save.
func FromParsed(parsed []types.ParsedExperience) ([]types.Experience, error) {
	out := make([]types.Experience, 0, len(parsed))
	for _, p := range parsed {
		exp := types.Experience{
			Type:      p.Type,
			Title:     p.Title,
			DateRange: p.DateRange,
			Skills:    p.Skills,
			Content:   p.Content,
		}
		if err := Normalize(&exp); err != nil {
			return nil, err
		}
		out = append(out, exp)
	}
	return out, nil
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
