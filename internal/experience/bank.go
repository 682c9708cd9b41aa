package experience

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonathan/resume-tailor/internal/schemas"
	"github.com/jonathan/resume-tailor/internal/types"
	"gopkg.in/yaml.v3"
)

type importFile struct {
	Experiences []types.Experience `json:"experiences" yaml:"experiences"`
}

// LoadFile reads an import file (JSON, or YAML by extension), validates it
// against the import schema, and returns the normalized experiences.
func LoadFile(path string) ([]types.Experience, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Message: "failed to read file", Cause: err}
	}

	ext := strings.ToLower(filepath.Ext(path))
	exps, err := Parse(content, ext == ".yaml" || ext == ".yml")
	var loadErr *LoadError
	if errors.As(err, &loadErr) && loadErr.Path == "" {
		loadErr.Path = path
	}
	return exps, err
}

// Parse decodes import file content. Both a bare list and an object with an
// "experiences" list are accepted.
func Parse(content []byte, isYAML bool) ([]types.Experience, error) {
	var exps []types.Experience
	if isYAML {
		var raw any
		if err := yaml.Unmarshal(content, &raw); err != nil {
			return nil, &LoadError{Message: "failed to unmarshal YAML", Cause: err}
		}
		if err := schemas.ValidateValue(schemas.ExperienceImport, raw); err != nil {
			return nil, &LoadError{Message: "schema validation failed", Cause: err}
		}
		if _, isList := raw.([]any); isList {
			err := yaml.Unmarshal(content, &exps)
			if err != nil {
				return nil, &LoadError{Message: "failed to unmarshal YAML", Cause: err}
			}
		} else {
			var wrapped importFile
			if err := yaml.Unmarshal(content, &wrapped); err != nil {
				return nil, &LoadError{Message: "failed to unmarshal YAML", Cause: err}
			}
			exps = wrapped.Experiences
		}
	} else {
		if err := schemas.Validate(schemas.ExperienceImport, content); err != nil {
			return nil, &LoadError{Message: "schema validation failed", Cause: err}
		}
		trimmed := strings.TrimSpace(string(content))
		if strings.HasPrefix(trimmed, "[") {
			if err := json.Unmarshal(content, &exps); err != nil {
				return nil, &LoadError{Message: "failed to unmarshal JSON", Cause: err}
			}
		} else {
			var wrapped importFile
			if err := json.Unmarshal(content, &wrapped); err != nil {
				return nil, &LoadError{Message: "failed to unmarshal JSON", Cause: err}
			}
			exps = wrapped.Experiences
		}
	}

	if len(exps) == 0 {
		return nil, &LoadError{Message: "import file contains no experiences"}
	}
	if err := NormalizeAll(exps); err != nil {
		return nil, err
	}
	return exps, nil
}
