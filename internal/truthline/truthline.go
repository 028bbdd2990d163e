// Package truthline derives the public report from store metrics by pure
// summation: stores, then groups, then the campaign total, then a check
// that the three levels agree.
//
// Each stage only accepts the value produced by the stage before it, so a
// group or global figure can never be computed from anything but store
// results.
//
// Stores outside the A/B/C segmentation (group "?") count toward the
// campaign total but toward no group. Their sum is carried as the unmapped
// remainder, and the check compares groups plus that remainder with the
// total. A correct rollup with unmapped approvals therefore passes.
package truthline

import (
	"math"

	"campanha/internal/catalog"
	"campanha/internal/snapshot"
)

// Epsilon is the tolerance of every integrity comparison.
const Epsilon = 0.01

// StoreResult is the report line of one store.
type StoreResult struct {
	Store             string   `json:"store"`
	StoreCode         int      `json:"storeCode"`
	GroupCode         string   `json:"groupCode"`
	ApprovedYesterday int      `json:"approvedYesterday"`
	ApprovedTotal     int      `json:"approvedTotal"`
	MonthlyTarget     *int     `json:"monthlyTarget"`
	MonthlyRatio      *float64 `json:"monthlyRatio"`
}

// Totals are the summed fields shared by every level.
type Totals struct {
	StoreCount        int      `json:"storeCount"`
	ApprovedYesterday int      `json:"approvedYesterday"`
	ApprovedTotal     int      `json:"approvedTotal"`
	MonthlyTarget     int      `json:"monthlyTarget"`
	MonthlyRatio      *float64 `json:"monthlyRatio"`
}

type GroupResult struct {
	Group string `json:"group"`
	Label string `json:"label"`
	Totals
}

type GlobalResult struct {
	Totals
}

// Diff holds the differences of one pairwise comparison.
type Diff struct {
	ApprovedYesterday float64 `json:"approvedYesterday"`
	ApprovedTotal     float64 `json:"approvedTotal"`
	MonthlyTarget     float64 `json:"monthlyTarget"`
}

func (d Diff) within(eps float64) bool {
	return math.Abs(d.ApprovedYesterday) < eps &&
		math.Abs(d.ApprovedTotal) < eps &&
		math.Abs(d.MonthlyTarget) < eps
}

type IntegrityCheck struct {
	StoresVsGroups Diff    `json:"storesVsGroups"`
	StoresVsGlobal Diff    `json:"storesVsGlobal"`
	GroupsVsGlobal Diff    `json:"groupsVsGlobal"`
	Epsilon        float64 `json:"epsilon"`
	OK             bool    `json:"ok"`
}

// Report is the full rollup.
type Report struct {
	Stores    []StoreResult  `json:"stores"`
	Groups    []GroupResult  `json:"groups"`
	Unmapped  Totals         `json:"unmapped"`
	Global    GlobalResult   `json:"global"`
	Integrity IntegrityCheck `json:"integrity"`
}

// StoreLevel is the output of BuildStoreResults.
type StoreLevel struct {
	stores []StoreResult
}

// GroupLevel is the output of BuildGroupResults.
type GroupLevel struct {
	stores   []StoreResult
	groups   []GroupResult
	unmapped Totals
}

// GlobalLevel is the output of BuildGlobalResult.
type GlobalLevel struct {
	stores   []StoreResult
	groups   []GroupResult
	unmapped Totals
	global   GlobalResult
}

func (l StoreLevel) Stores() []StoreResult  { return append([]StoreResult(nil), l.stores...) }
func (l GroupLevel) Groups() []GroupResult  { return append([]GroupResult(nil), l.groups...) }
func (l GroupLevel) Unmapped() Totals       { return l.unmapped }
func (l GlobalLevel) Global() GlobalResult  { return l.global }
func (l GlobalLevel) Groups() []GroupResult { return append([]GroupResult(nil), l.groups...) }

// BuildStoreResults resolves code, group and monthly target of every store.
// Stores outside the catalog get code -1, group "?" and no target.
func BuildStoreResults(metrics []snapshot.StoreMetrics, cat *catalog.Catalog) StoreLevel {
	out := make([]StoreResult, 0, len(metrics))
	for _, m := range metrics {
		r := StoreResult{
			Store:             m.Store,
			StoreCode:         catalog.StoreCode(m.Store),
			GroupCode:         cat.GroupFor(m.Store),
			ApprovedYesterday: m.ApprovedYesterday,
			ApprovedTotal:     m.ApprovedTotal,
		}
		if r.GroupCode != catalog.GroupUnknown {
			r.MonthlyTarget = cat.MonthlyTarget(r.StoreCode)
		}
		if r.MonthlyTarget != nil {
			r.MonthlyRatio = ratio(r.ApprovedTotal, *r.MonthlyTarget)
		}
		out = append(out, r)
	}
	return StoreLevel{stores: out}
}

// BuildGroupResults sums stores into the fixed groups. Every group is
// present, zero valued when it has no store.
func BuildGroupResults(level StoreLevel) GroupLevel {
	idx := make(map[string]int, len(catalog.Groups))
	groups := make([]GroupResult, len(catalog.Groups))
	for i, g := range catalog.Groups {
		idx[g] = i
		groups[i] = GroupResult{Group: g, Label: catalog.GroupLabelFromKey(g)}
	}

	var unmapped Totals
	for _, s := range level.stores {
		if i, ok := idx[s.GroupCode]; ok {
			groups[i].Totals.add(s)
		} else {
			unmapped.add(s)
		}
	}
	for i := range groups {
		groups[i].MonthlyRatio = ratio(groups[i].ApprovedTotal, groups[i].MonthlyTarget)
	}
	unmapped.MonthlyRatio = ratio(unmapped.ApprovedTotal, unmapped.MonthlyTarget)

	return GroupLevel{stores: level.stores, groups: groups, unmapped: unmapped}
}

// BuildGlobalResult sums every store, unmapped ones included. The monthly
// target sums only stores that have one.
func BuildGlobalResult(level GroupLevel) GlobalLevel {
	var g GlobalResult
	for _, s := range level.stores {
		g.add(s)
	}
	g.MonthlyRatio = ratio(g.ApprovedTotal, g.MonthlyTarget)
	return GlobalLevel{stores: level.stores, groups: level.groups, unmapped: level.unmapped, global: g}
}

// BuildIntegrityCheck compares the three levels and assembles the report.
// Mismatches are reported in the check, never as errors.
func BuildIntegrityCheck(level GlobalLevel) Report {
	var mapped, all Totals
	for _, s := range level.stores {
		all.add(s)
		if s.GroupCode != catalog.GroupUnknown {
			mapped.add(s)
		}
	}
	var groups Totals
	for _, g := range level.groups {
		groups.ApprovedYesterday += g.ApprovedYesterday
		groups.ApprovedTotal += g.ApprovedTotal
		groups.MonthlyTarget += g.MonthlyTarget
	}
	withUnmapped := groups
	withUnmapped.ApprovedYesterday += level.unmapped.ApprovedYesterday
	withUnmapped.ApprovedTotal += level.unmapped.ApprovedTotal
	withUnmapped.MonthlyTarget += level.unmapped.MonthlyTarget

	check := IntegrityCheck{
		StoresVsGroups: diff(mapped, groups),
		StoresVsGlobal: diff(all, level.global.Totals),
		GroupsVsGlobal: diff(withUnmapped, level.global.Totals),
		Epsilon:        Epsilon,
	}
	check.OK = check.StoresVsGroups.within(Epsilon) &&
		check.StoresVsGlobal.within(Epsilon) &&
		check.GroupsVsGlobal.within(Epsilon)

	return Report{
		Stores:    append([]StoreResult(nil), level.stores...),
		Groups:    append([]GroupResult(nil), level.groups...),
		Unmapped:  level.unmapped,
		Global:    level.global,
		Integrity: check,
	}
}

// Build runs the four stages in order.
func Build(metrics []snapshot.StoreMetrics, cat *catalog.Catalog) Report {
	return BuildIntegrityCheck(BuildGlobalResult(BuildGroupResults(BuildStoreResults(metrics, cat))))
}

func (t *Totals) add(s StoreResult) {
	t.StoreCount++
	t.ApprovedYesterday += s.ApprovedYesterday
	t.ApprovedTotal += s.ApprovedTotal
	if s.MonthlyTarget != nil {
		t.MonthlyTarget += *s.MonthlyTarget
	}
}

func diff(a, b Totals) Diff {
	return Diff{
		ApprovedYesterday: float64(a.ApprovedYesterday - b.ApprovedYesterday),
		ApprovedTotal:     float64(a.ApprovedTotal - b.ApprovedTotal),
		MonthlyTarget:     float64(a.MonthlyTarget - b.MonthlyTarget),
	}
}

func ratio(approved, target int) *float64 {
	if target <= 0 {
		return nil
	}
	r := float64(approved) / float64(target)
	return &r
}
