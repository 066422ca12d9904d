package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	apierrors "github.com/diogo/streamchat/internal/errors"
)

func TestDefaultPersonas(t *testing.T) {
	personas := DefaultPersonas()
	if len(personas) < 5 {
		t.Fatalf("expected at least 5 built-in personas, got %d", len(personas))
	}
	if personas[0].Name != DefaultPersonaName || personas[0].SystemMessage != "" {
		t.Errorf("first persona should be the empty default, got %+v", personas[0])
	}
	for _, p := range personas {
		if err := ValidatePersona(p); err != nil {
			t.Errorf("built-in persona %q is invalid: %v", p.Name, err)
		}
	}
}

func TestMergePersonas(t *testing.T) {
	base := []Persona{{Name: "a", SystemMessage: "A"}, {Name: "b", SystemMessage: "B"}}
	got := mergePersonas(base, []Persona{{Name: "b", SystemMessage: "B2"}, {Name: "c"}})

	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[1].SystemMessage != "B2" {
		t.Errorf("override not applied: %+v", got[1])
	}
	if got[2].Name != "c" {
		t.Errorf("new persona not appended: %+v", got[2])
	}
	if base[1].SystemMessage != "B" {
		t.Error("mergePersonas mutated its input")
	}
}

func TestLoadPersonas_NoFile(t *testing.T) {
	t.Setenv(EnvHome, t.TempDir())

	set, err := LoadPersonas()
	if err != nil {
		t.Fatalf("LoadPersonas failed: %v", err)
	}
	if set.Default != DefaultPersonaName {
		t.Errorf("Default = %q", set.Default)
	}
	if len(set.Personas) != len(DefaultPersonas()) {
		t.Errorf("expected only built-ins, got %v", set.Names())
	}
}

func TestSavePersona_RoundTrip(t *testing.T) {
	home := t.TempDir()
	t.Setenv(EnvHome, home)

	custom := Persona{Name: "pirate", Description: "Arr", SystemMessage: "Talk like a pirate.", Model: "gpt-4"}
	if err := SavePersona(custom); err != nil {
		t.Fatalf("SavePersona: %v", err)
	}

	got, err := GetPersona("pirate")
	if err != nil {
		t.Fatalf("GetPersona: %v", err)
	}
	if got != custom {
		t.Errorf("GetPersona = %+v, want %+v", got, custom)
	}

	data, err := os.ReadFile(filepath.Join(home, "personas.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "coder") {
		t.Errorf("unchanged built-ins should not be written:\n%s", data)
	}
}

func TestSavePersona_OverridesBuiltin(t *testing.T) {
	t.Setenv(EnvHome, t.TempDir())

	if err := SavePersona(Persona{Name: "coder", SystemMessage: "Only Go."}); err != nil {
		t.Fatal(err)
	}
	got, err := GetPersona("coder")
	if err != nil {
		t.Fatal(err)
	}
	if got.SystemMessage != "Only Go." {
		t.Errorf("SystemMessage = %q", got.SystemMessage)
	}
}

func TestSavePersona_Invalid(t *testing.T) {
	t.Setenv(EnvHome, t.TempDir())

	err := SavePersona(Persona{Name: "has space"})
	if !apierrors.IsValidationError(err) {
		t.Errorf("err = %v, want a validation error", err)
	}
}

func TestGetPersona_NotFound(t *testing.T) {
	t.Setenv(EnvHome, t.TempDir())

	if _, err := GetPersona("nobody"); err == nil {
		t.Error("expected an error for an unknown persona")
	}
}

func TestDeletePersona(t *testing.T) {
	t.Setenv(EnvHome, t.TempDir())

	if err := DeletePersona("coder"); err == nil {
		t.Error("built-in personas cannot be deleted")
	}
	if err := DeletePersona("ghost"); err == nil {
		t.Error("deleting an unknown persona should fail")
	}

	if err := SavePersona(Persona{Name: "tmp", SystemMessage: "x"}); err != nil {
		t.Fatal(err)
	}
	if err := SetDefaultPersona("tmp"); err != nil {
		t.Fatal(err)
	}
	if err := DeletePersona("tmp"); err != nil {
		t.Fatalf("DeletePersona: %v", err)
	}

	set, err := LoadPersonas()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := set.Find("tmp"); ok {
		t.Error("persona still present after delete")
	}
	if set.Default != DefaultPersonaName {
		t.Errorf("Default = %q, want reset to %q", set.Default, DefaultPersonaName)
	}
}

func TestDefaultPersonaSelection(t *testing.T) {
	t.Setenv(EnvHome, t.TempDir())

	p, err := GetDefaultPersona()
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != DefaultPersonaName {
		t.Errorf("default persona = %q", p.Name)
	}

	if err := SetDefaultPersona("tutor"); err != nil {
		t.Fatal(err)
	}
	p, err = GetDefaultPersona()
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "tutor" || p.SystemMessage == "" {
		t.Errorf("default persona = %+v", p)
	}

	if err := SetDefaultPersona("missing"); err == nil {
		t.Error("SetDefaultPersona should reject unknown names")
	}
}

func TestLoadPersonas_InvalidFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv(EnvHome, home)
	if err := os.WriteFile(filepath.Join(home, "personas.toml"), []byte("[[persona]\nname ="), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadPersonas(); err == nil {
		t.Error("expected a parse error")
	}
}

func TestValidatePersona(t *testing.T) {
	tests := []struct {
		name    string
		persona Persona
		field   string
	}{
		{"valid", Persona{Name: "ok_name-1"}, ""},
		{"empty name", Persona{}, "name"},
		{"long name", Persona{Name: strings.Repeat("a", MaxPersonaNameLength+1)}, "name"},
		{"bad chars", Persona{Name: "a/b"}, "name"},
		{"long description", Persona{Name: "x", Description: strings.Repeat("d", MaxDescriptionLength+1)}, "description"},
		{"long message", Persona{Name: "x", SystemMessage: strings.Repeat("m", MaxSystemMessageBytes+1)}, "system_message"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePersona(tt.persona)
			if tt.field == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			var v *apierrors.ValidationError
			if !errors.As(err, &v) || v.Field != tt.field {
				t.Errorf("err = %v, want ValidationError on %q", err, tt.field)
			}
		})
	}
}
