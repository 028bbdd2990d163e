package catalog

import (
	"testing"

	"campanha/internal/core"
)

func TestStoreCode(t *testing.T) {
	tests := []struct {
		name string
		want int
	}{
		{"LOJA 12 — ARAUCÁRIA CENTRO", 12},
		{"Loja 03 - São José dos Pinhais", 3},
		{"loja12", 12},
		{"12 - Araucária", 12},
		{"Alpha", -1},
		{"", -1},
		{"Lojas Reunidas", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StoreCode(tt.name); got != tt.want {
				t.Errorf("StoreCode(%q) = %d, want %d", tt.name, got, tt.want)
			}
		})
	}
}

func TestKnownAndUnknownStore(t *testing.T) {
	c := Default(nil)

	name := "LOJA 12 — ARAUCÁRIA CENTRO"
	if g := c.GroupFor(name); g != GroupA {
		t.Errorf("GroupFor(%q) = %q, want A", name, g)
	}
	target := c.MonthlyTarget(StoreCode(name))
	if target == nil || *target != 89 {
		t.Errorf("MonthlyTarget = %v, want 89", target)
	}

	if g := c.GroupFor("Loja Desconhecida"); g != GroupUnknown {
		t.Errorf("unknown store group = %q, want ?", g)
	}
	if c.MonthlyTarget(StoreCode("Loja Desconhecida")) != nil {
		t.Errorf("unknown store must have a nil target")
	}
	if c.MonthlyTarget(99) != nil {
		t.Errorf("code outside the catalog must have a nil target")
	}
	if s, ok := c.ByCode(12); !ok || s.Name != name {
		t.Errorf("ByCode(12) = %q, %v", s.Name, ok)
	}
	if _, ok := c.ByCode(-1); ok {
		t.Errorf("ByCode(-1) must miss")
	}
}

func TestPrefixOverrides(t *testing.T) {
	c := Default(map[string]string{
		"Quiosque":        "c",
		"Quiosque Centro": "Grupo B",
		"Loja 12":         "B",
		"Bogus":           "Z",
	})
	tests := []struct {
		name string
		want string
	}{
		{"Quiosque Shopping", GroupC},
		{"Quiosque Centro Cívico", GroupB},
		{"LOJA 12 — ARAUCÁRIA CENTRO", GroupB},
		{"Bogus Store", GroupUnknown},
		{"LOJA 01 — CURITIBA CENTRO", GroupA},
	}
	for _, tt := range tests {
		if got := c.GroupFor(tt.name); got != tt.want {
			t.Errorf("GroupFor(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestResolveStore(t *testing.T) {
	c := Default(nil)

	if got := c.ResolveStore("qualquer", "07.316.250/0012-64"); got == nil || *got != "LOJA 12 — ARAUCÁRIA CENTRO" {
		t.Errorf("CNPJ lookup = %v", got)
	}
	if got := c.ResolveStore("Loja 5", ""); got == nil || *got != "LOJA 05 — PINHAIS" {
		t.Errorf("code lookup = %v", got)
	}
	if got := c.ResolveStore("  Alpha ", ""); got == nil || *got != "Alpha" {
		t.Errorf("raw name = %v", got)
	}
	if got := c.ResolveStore(" ", ""); got != nil {
		t.Errorf("blank store = %q, want nil", *got)
	}
}

func TestGroupKeyNormalizationIsIdempotent(t *testing.T) {
	tests := []struct {
		in        string
		wantKey   string
		wantLabel string
	}{
		{"A", "A", "Grupo A"},
		{"a", "A", "Grupo A"},
		{"Grupo A", "A", "Grupo A"},
		{"GRUPO c", "C", "Grupo C"},
		{"Sem Grupo", "", core.NoGroupLabel},
		{"D", "", core.NoGroupLabel},
		{"", "", core.NoGroupLabel},
	}
	for _, tt := range tests {
		key := NormalizeGroupKey(tt.in)
		if key != tt.wantKey {
			t.Errorf("NormalizeGroupKey(%q) = %q, want %q", tt.in, key, tt.wantKey)
		}
		if again := NormalizeGroupKey(key); again != key {
			t.Errorf("NormalizeGroupKey not idempotent: %q -> %q", key, again)
		}
		label := GroupLabelFromKey(tt.in)
		if label != tt.wantLabel {
			t.Errorf("GroupLabelFromKey(%q) = %q, want %q", tt.in, label, tt.wantLabel)
		}
		if again := GroupLabelFromKey(label); again != label {
			t.Errorf("GroupLabelFromKey not idempotent: %q -> %q", label, again)
		}
	}
}

func TestStoresSortedAndUnique(t *testing.T) {
	seenCNPJ := map[string]bool{}
	prev := 0
	for _, s := range Default(nil).Stores() {
		if s.Code <= prev {
			t.Fatalf("stores not strictly ordered by code at %d", s.Code)
		}
		prev = s.Code
		if len(s.CNPJ) != 14 || seenCNPJ[s.CNPJ] {
			t.Errorf("bad or duplicate CNPJ %q", s.CNPJ)
		}
		seenCNPJ[s.CNPJ] = true
		if StoreCode(s.Name) != s.Code {
			t.Errorf("name %q does not carry code %d", s.Name, s.Code)
		}
	}
}
