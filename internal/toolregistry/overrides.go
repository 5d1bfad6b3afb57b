package toolregistry

import (
	"os"

	"gopkg.in/yaml.v3"
)

// descriptionOverridesFile mirrors the teacher's tools_override.yaml shape:
//
//	toolDescriptions:
//	  calculator: "Custom description"
type descriptionOverridesFile struct {
	ToolDescriptions map[string]string `yaml:"toolDescriptions"`
}

// LoadDescriptionOverrides reads a YAML file of tool-name -> description
// overrides. A missing file is not an error — it returns an empty map so
// callers can apply overrides unconditionally.
func LoadDescriptionOverrides(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	var parsed descriptionOverridesFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, err
	}
	if parsed.ToolDescriptions == nil {
		parsed.ToolDescriptions = map[string]string{}
	}
	return parsed.ToolDescriptions, nil
}

// ApplyDescriptionOverrides rewrites the Description of any registered
// binding named in overrides. Must be called during process wiring, before
// the registry is shared across requests (same read-only-after-startup
// contract as Register).
func (r *Registry) ApplyDescriptionOverrides(overrides map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, description := range overrides {
		canonical, ok := normalizeToolName(name, r.canonical)
		if !ok {
			continue
		}
		r.bindings[canonical].Description = description
	}
}
