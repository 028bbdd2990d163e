// Package catalog is the static lookup of the store network: store codes,
// CNPJs, group segmentation and monthly targets.
package catalog

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"campanha/internal/core"
	"campanha/internal/textnorm"
)

// Group keys. GroupUnknown marks stores outside the A/B/C segmentation.
const (
	GroupA       = "A"
	GroupB       = "B"
	GroupC       = "C"
	GroupUnknown = "?"
)

// Groups is the fixed segmentation in report order.
var Groups = []string{GroupA, GroupB, GroupC}

var (
	storeCodePattern = regexp.MustCompile(`\bloja\s*0*(\d+)\b`)
	leadingCode      = regexp.MustCompile(`^0*(\d+)\b`)
)

// Store is one entry of the network.
type Store struct {
	Code          int
	Name          string
	CNPJ          string
	Group         string
	MonthlyTarget int
}

type prefixRule struct {
	prefix string
	group  string
}

// Catalog answers store and group lookups. It is read-only after
// construction and safe for concurrent use.
type Catalog struct {
	stores   []Store
	byCode   map[int]Store
	byCNPJ   map[string]Store
	prefixes []prefixRule
}

// New builds a catalog from stores. prefixes maps store name prefixes to a
// group key and takes precedence over the static group of a store.
func New(stores []Store, prefixes map[string]string) *Catalog {
	c := &Catalog{
		stores: append([]Store(nil), stores...),
		byCode: make(map[int]Store, len(stores)),
		byCNPJ: make(map[string]Store, len(stores)),
	}
	for _, s := range stores {
		c.byCode[s.Code] = s
		if s.CNPJ != "" {
			c.byCNPJ[s.CNPJ] = s
		}
	}
	for p, g := range prefixes {
		key := NormalizeGroupKey(g)
		label := textnorm.NormalizeLabel(p)
		if key == "" || label == "" {
			continue
		}
		c.prefixes = append(c.prefixes, prefixRule{prefix: label, group: key})
	}
	// Longest prefix first, then alphabetical so map order never matters.
	sort.Slice(c.prefixes, func(i, j int) bool {
		if len(c.prefixes[i].prefix) != len(c.prefixes[j].prefix) {
			return len(c.prefixes[i].prefix) > len(c.prefixes[j].prefix)
		}
		return c.prefixes[i].prefix < c.prefixes[j].prefix
	})
	return c
}

// Default returns the built-in store network with the given prefix
// overrides.
func Default(prefixes map[string]string) *Catalog {
	return New(defaultStores, prefixes)
}

// Stores returns the catalog entries ordered by code.
func (c *Catalog) Stores() []Store {
	out := append([]Store(nil), c.stores...)
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// ByCode looks a store up by its numeric code.
func (c *Catalog) ByCode(code int) (Store, bool) {
	s, ok := c.byCode[code]
	return s, ok
}

// ByCNPJ looks a store up by CNPJ, punctuation ignored.
func (c *Catalog) ByCNPJ(cnpj string) (Store, bool) {
	s, ok := c.byCNPJ[digits(cnpj)]
	return s, ok
}

// GroupFor returns the group key of a store name: a matching campaign
// prefix first, then the static table, else GroupUnknown.
func (c *Catalog) GroupFor(storeName string) string {
	label := textnorm.NormalizeLabel(storeName)
	if label == "" {
		return GroupUnknown
	}
	for _, r := range c.prefixes {
		if strings.HasPrefix(label, r.prefix) {
			return r.group
		}
	}
	if s, ok := c.ByCode(StoreCode(storeName)); ok {
		return s.Group
	}
	return GroupUnknown
}

// MonthlyTarget returns the monthly target of a store code, nil when the
// code is not in the catalog.
func (c *Catalog) MonthlyTarget(code int) *int {
	s, ok := c.ByCode(code)
	if !ok {
		return nil
	}
	t := s.MonthlyTarget
	return &t
}

// ResolveStore returns the canonical store name for a row, preferring the
// CNPJ, then a recognizable store code in the name, then the trimmed name
// itself. It returns nil when nothing identifies the store.
func (c *Catalog) ResolveStore(name, cnpj string) *string {
	if s, ok := c.ByCNPJ(cnpj); ok {
		return &s.Name
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	if s, ok := c.ByCode(StoreCode(name)); ok {
		return &s.Name
	}
	return &name
}

// StoreCode extracts the numeric store code from names such as
// "LOJA 12 — ARAUCÁRIA CENTRO" or "12 - Araucária". Returns -1 when no code
// is present.
func StoreCode(name string) int {
	label := textnorm.NormalizeLabel(name)
	if m := storeCodePattern.FindStringSubmatch(label); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	if m := leadingCode.FindStringSubmatch(label); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	return -1
}

// NormalizeGroupKey maps "Grupo A", "a" or "A" to "A". Anything that is not
// one of the fixed groups yields "".
func NormalizeGroupKey(s string) string {
	label := textnorm.NormalizeLabel(s)
	label = strings.TrimPrefix(label, "grupo ")
	label = strings.TrimPrefix(label, "group ")
	key := strings.ToUpper(label)
	for _, g := range Groups {
		if key == g {
			return g
		}
	}
	return ""
}

// GroupLabelFromKey renders a group key or label as "Grupo X". Unknown input
// yields the no-group label.
func GroupLabelFromKey(s string) string {
	if key := NormalizeGroupKey(s); key != "" {
		return "Grupo " + key
	}
	return core.NoGroupLabel
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
