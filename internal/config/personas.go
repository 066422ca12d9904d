package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	apierrors "github.com/diogo/streamchat/internal/errors"
)

// DefaultPersonaName is the built-in persona that sends no system message.
const DefaultPersonaName = "default"

const personasFileName = "personas.toml"

// Persona is a named system message preset.
type Persona struct {
	Name          string `toml:"name"`
	Description   string `toml:"description"`
	SystemMessage string `toml:"system_message"`
	// Model, when set, replaces the configured model while the persona is active.
	Model string `toml:"model,omitempty"`
}

// PersonaSet is the content of the personas file.
type PersonaSet struct {
	Default  string    `toml:"default"`
	Personas []Persona `toml:"persona"`
}

// DefaultPersonas returns the built-in presets.
func DefaultPersonas() []Persona {
	return []Persona{
		{
			Name:        DefaultPersonaName,
			Description: "Backend default system message",
		},
		{
			Name:        "coder",
			Description: "Concise programming assistant",
			SystemMessage: "You are an expert software engineer. Answer with working code first, " +
				"then a short explanation. Use fenced code blocks with the language name.",
		},
		{
			Name:        "writer",
			Description: "Creative writing assistant",
			SystemMessage: "You are a creative writing assistant. Keep the author's tone and " +
				"offer alternatives when asked.",
		},
		{
			Name:        "analyst",
			Description: "Structured analysis",
			SystemMessage: "You are an analyst. Present findings as structured Markdown with " +
				"headings, tables where useful and a short list of recommendations.",
		},
		{
			Name:        "tutor",
			Description: "Patient explanations",
			SystemMessage: "You are a patient tutor. Break topics into small steps and use " +
				"examples. Adapt to the learner's level.",
		},
	}
}

// GetPersonasPath returns the path to the personas file
func GetPersonasPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, personasFileName), nil
}

// LoadPersonas returns the built-in personas merged with the user's file.
// User entries replace built-ins of the same name.
func LoadPersonas() (PersonaSet, error) {
	set := PersonaSet{Default: DefaultPersonaName, Personas: DefaultPersonas()}

	path, err := GetPersonasPath()
	if err != nil {
		return set, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return set, nil
		}
		return set, fmt.Errorf("failed to read personas: %w", err)
	}

	var custom PersonaSet
	if _, err := toml.Decode(string(data), &custom); err != nil {
		return set, fmt.Errorf("failed to parse personas: %w", err)
	}

	set.Personas = mergePersonas(set.Personas, custom.Personas)
	if custom.Default != "" {
		set.Default = custom.Default
	}
	return set, nil
}

// SavePersonas writes the user personas. Built-ins equal to their default are
// left out of the file.
func SavePersonas(set PersonaSet) error {
	configDir, err := EnsureConfigDir()
	if err != nil {
		return err
	}

	builtin := make(map[string]Persona)
	for _, p := range DefaultPersonas() {
		builtin[p.Name] = p
	}
	out := PersonaSet{Default: set.Default}
	for _, p := range set.Personas {
		if b, ok := builtin[p.Name]; ok && b == p {
			continue
		}
		out.Personas = append(out.Personas, p)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(out); err != nil {
		return fmt.Errorf("failed to marshal personas: %w", err)
	}

	if err := os.WriteFile(filepath.Join(configDir, personasFileName), buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write personas: %w", err)
	}
	return nil
}

// Find returns the persona called name.
func (s PersonaSet) Find(name string) (Persona, bool) {
	for _, p := range s.Personas {
		if p.Name == name {
			return p, true
		}
	}
	return Persona{}, false
}

// Names returns the persona names in file order.
func (s PersonaSet) Names() []string {
	names := make([]string, len(s.Personas))
	for i, p := range s.Personas {
		names[i] = p.Name
	}
	return names
}

// GetPersona loads the personas and returns the one called name.
func GetPersona(name string) (Persona, error) {
	set, err := LoadPersonas()
	if err != nil {
		return Persona{}, err
	}
	p, ok := set.Find(name)
	if !ok {
		return Persona{}, fmt.Errorf("persona %q not found", name)
	}
	return p, nil
}

// GetDefaultPersona returns the persona marked as default.
func GetDefaultPersona() (Persona, error) {
	set, err := LoadPersonas()
	if err != nil {
		return Persona{}, err
	}
	if p, ok := set.Find(set.Default); ok {
		return p, nil
	}
	p, _ := set.Find(DefaultPersonaName)
	return p, nil
}

// SavePersona adds p or replaces the persona with the same name.
func SavePersona(p Persona) error {
	if err := ValidatePersona(p); err != nil {
		return err
	}
	set, err := LoadPersonas()
	if err != nil {
		return err
	}
	set.Personas = mergePersonas(set.Personas, []Persona{p})
	return SavePersonas(set)
}

// DeletePersona removes a user persona. Built-ins cannot be removed.
func DeletePersona(name string) error {
	for _, p := range DefaultPersonas() {
		if p.Name == name {
			return fmt.Errorf("cannot delete built-in persona %q", name)
		}
	}

	set, err := LoadPersonas()
	if err != nil {
		return err
	}

	kept := set.Personas[:0]
	found := false
	for _, p := range set.Personas {
		if p.Name == name {
			found = true
			continue
		}
		kept = append(kept, p)
	}
	if !found {
		return fmt.Errorf("persona %q not found", name)
	}
	set.Personas = kept

	if set.Default == name {
		set.Default = DefaultPersonaName
	}
	return SavePersonas(set)
}

// SetDefaultPersona marks name as the persona used when nothing else selects
// a system message.
func SetDefaultPersona(name string) error {
	set, err := LoadPersonas()
	if err != nil {
		return err
	}
	if _, ok := set.Find(name); !ok {
		return fmt.Errorf("persona %q not found", name)
	}
	set.Default = name
	return SavePersonas(set)
}

func mergePersonas(base, overrides []Persona) []Persona {
	result := make([]Persona, len(base))
	copy(result, base)

	for _, o := range overrides {
		replaced := false
		for i := range result {
			if result[i].Name == o.Name {
				result[i] = o
				replaced = true
				break
			}
		}
		if !replaced {
			result = append(result, o)
		}
	}
	return result
}

// Validation limits
const (
	MaxPersonaNameLength  = 50
	MaxDescriptionLength  = 200
	MaxSystemMessageBytes = 32 * 1024
)

// ValidatePersona reports the first invalid field of p.
func ValidatePersona(p Persona) error {
	switch {
	case p.Name == "":
		return apierrors.NewValidationError("name", "persona name is required")
	case len(p.Name) > MaxPersonaNameLength:
		return apierrors.NewValidationError("name",
			fmt.Sprintf("persona name too long (max %d characters)", MaxPersonaNameLength))
	case !isValidPersonaName(p.Name):
		return apierrors.NewValidationError("name",
			"persona name must contain only letters, digits, underscores and hyphens")
	case len(p.Description) > MaxDescriptionLength:
		return apierrors.NewValidationError("description",
			fmt.Sprintf("description too long (max %d characters)", MaxDescriptionLength))
	case len(p.SystemMessage) > MaxSystemMessageBytes:
		return apierrors.NewValidationError("system_message",
			fmt.Sprintf("system message too long (max %d bytes)", MaxSystemMessageBytes))
	}
	return nil
}

func isValidPersonaName(name string) bool {
	for _, c := range name {
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' || c == '-') {
			return false
		}
	}
	return true
}
