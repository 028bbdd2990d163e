// Package campaign loads the campaign settings: timezone, week convention,
// group weekly targets and store prefix overrides. The result is loaded once
// by the process entry point and passed explicitly to aggregation calls.
package campaign

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"campanha/internal/catalog"
)

// EnvPrefix prefixes environment overrides: CAMPAIGN_WEEK_START -> week.start.
const EnvPrefix = "CAMPAIGN_"

// File is the on-disk shape of the campaign settings.
type File struct {
	Name     string       `koanf:"name" validate:"required"`
	Timezone string       `koanf:"timezone" validate:"required"`
	Week     WeekFile     `koanf:"week"`
	Monthly  MonthlyFile  `koanf:"monthly"`
	Targets  TargetsFile  `koanf:"targets"`
	Prefixes []PrefixFile `koanf:"prefixes" validate:"dive"`
}

type WeekFile struct {
	Start string `koanf:"start" validate:"required,oneof=sunday monday tuesday wednesday thursday friday saturday"`
}

type MonthlyFile struct {
	// Fallback names the date column used when no canonical column can be
	// resolved from the headers.
	Fallback string `koanf:"fallback"`
}

type TargetsFile struct {
	Weekly map[string]int `koanf:"weekly" validate:"dive,keys,oneof=a b c A B C,endkeys,min=0"`
}

type PrefixFile struct {
	Prefix string `koanf:"prefix" validate:"required"`
	Group  string `koanf:"group" validate:"required,oneof=A B C a b c"`
}

// Campaign is the resolved, read-only campaign configuration.
type Campaign struct {
	Name              string
	Location          *time.Location
	WeekStart         time.Weekday
	FallbackDateField string
	WeeklyTargets     map[string]int
	GroupPrefixes     map[string]string
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func defaults(k *koanf.Koanf) {
	k.Set("name", "Campanha Cartão")
	k.Set("timezone", "America/Sao_Paulo")
	k.Set("week.start", "monday")
	k.Set("monthly.fallback", "Data Cadastro")
}

// Load reads the campaign settings from path (optional) and CAMPAIGN_
// environment variables, on top of built-in defaults.
func Load(path string) (*Campaign, error) {
	k := koanf.New(".")
	defaults(k)

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load campaign file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, EnvPrefix)), "_", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("load campaign env: %w", err)
	}

	var f File
	if err := k.Unmarshal("", &f); err != nil {
		return nil, fmt.Errorf("decode campaign config: %w", err)
	}
	return f.Resolve()
}

// Default returns the built-in campaign settings.
func Default() *Campaign {
	k := koanf.New(".")
	defaults(k)
	var f File
	_ = k.Unmarshal("", &f)
	c, err := f.Resolve()
	if err != nil {
		// Built-in defaults only fail without tzdata.
		c = &Campaign{Name: f.Name, Location: time.UTC, WeekStart: time.Monday, FallbackDateField: f.Monthly.Fallback}
	}
	return c
}

// Resolve validates the file and converts it to a Campaign.
func (f File) Resolve() (*Campaign, error) {
	f.Week.Start = strings.ToLower(strings.TrimSpace(f.Week.Start))
	if err := validate.Struct(f); err != nil {
		return nil, fmt.Errorf("invalid campaign config: %w", err)
	}

	loc, err := time.LoadLocation(f.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid campaign timezone %q: %w", f.Timezone, err)
	}

	c := &Campaign{
		Name:              f.Name,
		Location:          loc,
		WeekStart:         weekdays[f.Week.Start],
		FallbackDateField: strings.TrimSpace(f.Monthly.Fallback),
		WeeklyTargets:     make(map[string]int, len(f.Targets.Weekly)),
		GroupPrefixes:     make(map[string]string, len(f.Prefixes)),
	}
	for g, target := range f.Targets.Weekly {
		if key := catalog.NormalizeGroupKey(g); key != "" {
			c.WeeklyTargets[key] = target
		}
	}
	for _, p := range f.Prefixes {
		c.GroupPrefixes[p.Prefix] = catalog.NormalizeGroupKey(p.Group)
	}
	return c, nil
}

// Catalog returns the store catalog with this campaign's prefix overrides.
func (c *Campaign) Catalog() *catalog.Catalog {
	return catalog.Default(c.GroupPrefixes)
}

// WeeklyTarget returns the weekly target of a group key, nil when unset.
func (c *Campaign) WeeklyTarget(group string) *int {
	t, ok := c.WeeklyTargets[catalog.NormalizeGroupKey(group)]
	if !ok {
		return nil
	}
	return &t
}
