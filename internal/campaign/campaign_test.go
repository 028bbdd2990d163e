package campaign

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "campaign.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.Location.String() != "America/Sao_Paulo" {
		t.Errorf("Location = %s", c.Location)
	}
	if c.WeekStart != time.Monday {
		t.Errorf("WeekStart = %s, want Monday", c.WeekStart)
	}
	if c.FallbackDateField != "Data Cadastro" {
		t.Errorf("FallbackDateField = %q", c.FallbackDateField)
	}
	if c.WeeklyTarget("A") != nil {
		t.Errorf("default weekly target should be unset")
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
name: "Campanha Natal"
timezone: "America/Manaus"
week:
  start: Sunday
targets:
  weekly:
    a: 40
    B: 25
prefixes:
  - prefix: "Quiosque"
    group: "c"
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.Name != "Campanha Natal" || c.Location.String() != "America/Manaus" || c.WeekStart != time.Sunday {
		t.Errorf("unexpected campaign: %+v", c)
	}
	if tgt := c.WeeklyTarget("Grupo A"); tgt == nil || *tgt != 40 {
		t.Errorf("weekly target A = %v", tgt)
	}
	if tgt := c.WeeklyTarget("b"); tgt == nil || *tgt != 25 {
		t.Errorf("weekly target B = %v", tgt)
	}
	if c.GroupPrefixes["Quiosque"] != "C" {
		t.Errorf("prefixes = %v", c.GroupPrefixes)
	}
	if g := c.Catalog().GroupFor("Quiosque Shopping"); g != "C" {
		t.Errorf("catalog prefix override = %q", g)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("CAMPAIGN_WEEK_START", "friday")
	t.Setenv("CAMPAIGN_TIMEZONE", "UTC")
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.WeekStart != time.Friday || c.Location != time.UTC {
		t.Errorf("env overrides not applied: %+v", c)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad week start", "week:\n  start: someday\n"},
		{"bad timezone", "timezone: Mars/Olympus\n"},
		{"bad prefix group", "prefixes:\n  - prefix: X\n    group: Z\n"},
		{"negative target", "targets:\n  weekly:\n    a: -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.body)); err == nil {
				t.Errorf("expected error")
			}
		})
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("expected error for missing file")
	}
}
