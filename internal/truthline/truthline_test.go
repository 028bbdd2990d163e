package truthline

import (
	"fmt"
	"math/rand"
	"testing"

	"campanha/internal/catalog"
	"campanha/internal/snapshot"
)

func TestBuildStoreResultsCatalogLookup(t *testing.T) {
	level := BuildStoreResults([]snapshot.StoreMetrics{
		{Store: "LOJA 12 — ARAUCÁRIA CENTRO", ApprovedTotal: 45, ApprovedYesterday: 3},
		{Store: "Loja Desconhecida", ApprovedTotal: 7, ApprovedYesterday: 1},
	}, catalog.Default(nil))

	stores := level.Stores()
	known, unknown := stores[0], stores[1]
	if known.StoreCode != 12 || known.GroupCode != "A" || known.MonthlyTarget == nil || *known.MonthlyTarget != 89 {
		t.Errorf("known store = %+v", known)
	}
	if known.MonthlyRatio == nil || *known.MonthlyRatio != 45.0/89.0 {
		t.Errorf("known ratio = %v", known.MonthlyRatio)
	}
	if unknown.StoreCode != -1 || unknown.GroupCode != "?" || unknown.MonthlyTarget != nil || unknown.MonthlyRatio != nil {
		t.Errorf("unknown store = %+v", unknown)
	}
}

func TestGroupsAlwaysPresent(t *testing.T) {
	report := Build(nil, catalog.Default(nil))
	if len(report.Groups) != 3 {
		t.Fatalf("groups = %+v", report.Groups)
	}
	for i, g := range []string{"A", "B", "C"} {
		r := report.Groups[i]
		if r.Group != g || r.Label != "Grupo "+g || r.ApprovedTotal != 0 || r.StoreCount != 0 || r.MonthlyRatio != nil {
			t.Errorf("group %s = %+v", g, r)
		}
	}
	if !report.Integrity.OK {
		t.Errorf("empty report must pass the integrity check: %+v", report.Integrity)
	}
}

func TestUnmappedStoresPassIntegrity(t *testing.T) {
	report := Build([]snapshot.StoreMetrics{
		{Store: "LOJA 01 — CURITIBA CENTRO", ApprovedTotal: 10, ApprovedYesterday: 2},
		{Store: "LOJA 03 — SÃO JOSÉ DOS PINHAIS", ApprovedTotal: 4},
		{Store: "Sem Loja", ApprovedTotal: 5, ApprovedYesterday: 1},
	}, catalog.Default(nil))

	if !report.Integrity.OK {
		t.Fatalf("correct rollup flagged: %+v", report.Integrity)
	}
	if report.Global.ApprovedTotal != 19 || report.Global.ApprovedYesterday != 3 {
		t.Errorf("global = %+v", report.Global)
	}
	if report.Global.MonthlyTarget != 120+66 {
		t.Errorf("global target = %d", report.Global.MonthlyTarget)
	}
	if report.Unmapped.ApprovedTotal != 5 || report.Unmapped.StoreCount != 1 || report.Unmapped.MonthlyTarget != 0 {
		t.Errorf("unmapped = %+v", report.Unmapped)
	}
	if a := report.Groups[0]; a.ApprovedTotal != 10 || a.MonthlyTarget != 120 {
		t.Errorf("group A = %+v", a)
	}
}

func TestIntegrityDetectsTampering(t *testing.T) {
	groups := BuildGroupResults(BuildStoreResults([]snapshot.StoreMetrics{
		{Store: "LOJA 01 — CURITIBA CENTRO", ApprovedTotal: 10},
		{Store: "LOJA 05 — PINHAIS", ApprovedTotal: 3},
	}, catalog.Default(nil)))

	global := BuildGlobalResult(groups)
	global.global.ApprovedTotal++
	report := BuildIntegrityCheck(global)
	if report.Integrity.OK {
		t.Fatalf("tampered global passed")
	}
	if report.Integrity.StoresVsGlobal.ApprovedTotal != -1 || report.Integrity.GroupsVsGlobal.ApprovedTotal != -1 {
		t.Errorf("diffs = %+v", report.Integrity)
	}
	if report.Integrity.StoresVsGroups.ApprovedTotal != 0 {
		t.Errorf("stores vs groups should still agree: %+v", report.Integrity.StoresVsGroups)
	}

	tamperedGroups := groups
	tamperedGroups.groups = append([]GroupResult(nil), groups.groups...)
	tamperedGroups.groups[2].MonthlyTarget += 5
	report = BuildIntegrityCheck(BuildGlobalResult(tamperedGroups))
	if report.Integrity.OK || report.Integrity.StoresVsGroups.MonthlyTarget != -5 {
		t.Errorf("tampered group target not detected: %+v", report.Integrity)
	}
}

func TestSummationInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	cat := catalog.Default(nil)
	stores := cat.Stores()

	for run := 0; run < 50; run++ {
		var metrics []snapshot.StoreMetrics
		n := rng.Intn(30)
		for i := 0; i < n; i++ {
			name := fmt.Sprintf("Loja Avulsa %d", i)
			if rng.Intn(3) > 0 {
				name = stores[rng.Intn(len(stores))].Name + fmt.Sprintf(" #%d", i)
			}
			total := rng.Intn(200)
			metrics = append(metrics, snapshot.StoreMetrics{
				Store:             name,
				ApprovedTotal:     total,
				ApprovedYesterday: rng.Intn(total + 1),
			})
		}

		report := Build(metrics, cat)
		if !report.Integrity.OK {
			t.Fatalf("run %d: integrity failed: %+v", run, report.Integrity)
		}

		perGroup := map[string]int{}
		all := 0
		for _, s := range report.Stores {
			perGroup[s.GroupCode] += s.ApprovedTotal
			all += s.ApprovedTotal
		}
		for _, g := range report.Groups {
			if perGroup[g.Group] != g.ApprovedTotal {
				t.Fatalf("run %d: group %s = %d, stores sum %d", run, g.Group, g.ApprovedTotal, perGroup[g.Group])
			}
		}
		if all != report.Global.ApprovedTotal {
			t.Fatalf("run %d: global = %d, stores sum %d", run, report.Global.ApprovedTotal, all)
		}
	}
}
