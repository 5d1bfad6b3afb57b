// Package configstore loads and caches model definitions from a configured
// source, with single-flight TTL refill, per spec.md 4.C.
package configstore

import (
	"strings"
	"time"
)

// PromptMessage is one entry in a system-prompt or example-prompt sequence.
type PromptMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Header is one backend-authentication header entry.
type Header struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ModelParameter is one scalar model parameter (temperature, top_p, ...).
type ModelParameter struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

// ToolParameter is one key/value pair a tool binding is configured with.
type ToolParameter struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ToolRef names a tool the agent may use and any static parameters bound to it.
type ToolRef struct {
	Name       string          `json:"name"`
	Parameters []ToolParameter `json:"parameters,omitempty"`
}

// Backend identifies which concrete chat backend a definition binds to.
type Backend struct {
	Provider string `json:"provider"`
	ModelID  string `json:"model"`
}

// ModelDefinition is one persisted model record (spec.md 3). Immutable
// after a snapshot is built.
type ModelDefinition struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Description    string           `json:"description"`
	Owner          string           `json:"owner,omitempty"`
	Type           string           `json:"type"` // "langchain" or "openai"
	Disabled       bool             `json:"disabled,omitempty"`
	URL            string           `json:"url,omitempty"`
	Backend        *Backend         `json:"model,omitempty"`
	SystemPrompts  []PromptMessage  `json:"system_prompts,omitempty"`
	ModelParameters []ModelParameter `json:"model_parameters,omitempty"`
	Headers        []Header         `json:"headers,omitempty"`
	Tools          []ToolRef        `json:"tools,omitempty"`
	Agents         []ToolRef        `json:"agents,omitempty"`
	ExamplePrompts []PromptMessage  `json:"example_prompts,omitempty"`
}

// EffectiveAgents returns Agents, falling back to Tools when Agents is
// empty — the original config_schema.py's get_agents() behavior, preserved
// as a supplemented feature (SPEC_FULL.md 5).
func (m ModelDefinition) EffectiveAgents() []ToolRef {
	if len(m.Agents) > 0 {
		return m.Agents
	}
	return m.Tools
}

// Snapshot is an immutable ordered collection of model definitions produced
// by one load cycle, plus the timestamp it was produced at.
type Snapshot struct {
	Definitions []ModelDefinition
	LoadedAt    time.Time
}

// Find looks up a definition by case-insensitive name match, skipping
// disabled definitions (SPEC_FULL.md 5's "disabled filtered from listing
// and resolution").
func (s Snapshot) Find(name string) (ModelDefinition, bool) {
	for _, d := range s.Definitions {
		if d.Disabled {
			continue
		}
		if strings.EqualFold(d.Name, name) {
			return d, true
		}
	}
	return ModelDefinition{}, false
}

// Listing returns enabled definitions only, already sorted by name by the
// loader; callers needing the OpenAI /models shape do the field projection.
func (s Snapshot) Listing() []ModelDefinition {
	out := make([]ModelDefinition, 0, len(s.Definitions))
	for _, d := range s.Definitions {
		if !d.Disabled {
			out = append(out, d)
		}
	}
	return out
}
