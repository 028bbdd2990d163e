package snapshot

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"campanha/internal/campaign"
	"campanha/internal/core"
)

func strp(s string) *string { return &s }

func fact(id int64, store *string, group string, status core.RowStatus, day int) core.ProposalFact {
	return core.NewProposalFact(id, store, group, status, core.NewDate(2025, 12, day), nil)
}

func testCampaign() *campaign.Campaign {
	return &campaign.Campaign{
		Name:          "teste",
		Location:      time.UTC,
		WeekStart:     time.Monday,
		WeeklyTargets: map[string]int{"A": 10, "B": 0},
	}
}

func sampleFacts() []core.ProposalFact {
	alpha, beta := strp("Alpha"), strp("Beta")
	return []core.ProposalFact{
		fact(1, alpha, "Grupo A", core.StatusAprovado, 12),
		fact(2, alpha, "Grupo A", core.StatusAprovado, 12),
		fact(3, alpha, "Grupo A", core.StatusReprovado, 11),
		fact(4, beta, "Grupo B", core.StatusAprovado, 8),
		fact(5, beta, "Grupo B", core.StatusAguardandoDocumentos, 12),
		fact(6, nil, core.NoGroupLabel, core.StatusPendente, 5),
		fact(7, strp("Gama"), core.NoGroupLabel, core.StatusAnalise, 12),
	}
}

func TestComputeStoreMetrics(t *testing.T) {
	snap := Compute(sampleFacts(), Options{Now: time.Date(2025, 12, 12, 15, 0, 0, 0, time.UTC), Campaign: testCampaign()})

	if snap.LastDay.ISO() != "2025-12-12" {
		t.Fatalf("LastDay = %s", snap.LastDay.ISO())
	}
	var names []string
	for _, s := range snap.Stores {
		names = append(names, s.Store)
		if s.SubmittedTotal != s.ApprovedTotal+s.RejectedTotal+s.OtherTotal {
			t.Errorf("%s: submitted %d != approved+rejected+other", s.Store, s.SubmittedTotal)
		}
		if math.IsNaN(s.ApprovalRateTotal) || math.IsNaN(s.ApprovalRateYesterday) {
			t.Errorf("%s: NaN rate", s.Store)
		}
	}
	if got := strings.Join(names, ","); got != "Alpha,Beta,Gama,Sem Loja" {
		t.Errorf("store order = %s", got)
	}

	alpha := snap.Stores[0]
	if alpha.ApprovedTotal != 2 || alpha.RejectedTotal != 1 || alpha.ApprovedYesterday != 2 || alpha.SubmittedYesterday != 2 {
		t.Errorf("alpha = %+v", alpha)
	}
	if math.Abs(alpha.ApprovalRateTotal-2.0/3.0) > 1e-9 || alpha.ApprovalRateYesterday != 1 {
		t.Errorf("alpha rates = %v %v", alpha.ApprovalRateTotal, alpha.ApprovalRateYesterday)
	}
	gama := snap.Stores[2]
	if gama.ApprovalRateTotal != 0 || gama.ApprovalRateYesterday != 0 {
		t.Errorf("undecided store must have zero rates: %+v", gama)
	}
}

func TestComputeSummary(t *testing.T) {
	snap := Compute(sampleFacts(), Options{Now: time.Date(2025, 12, 12, 15, 0, 0, 0, time.UTC), Campaign: testCampaign()})
	s := snap.Summary
	if s.TotalApproved != 3 || s.TotalRejected != 1 || s.TotalSubmitted != 7 || s.ApprovedYesterday != 2 {
		t.Errorf("summary totals = %+v", s)
	}
	if len(s.TopStores) != 2 || s.TopStores[0].Store != "Alpha" || s.TopStores[1].Store != "Beta" {
		t.Errorf("top stores = %+v", s.TopStores)
	}
	if !strings.Contains(s.Headline, "3 propostas aprovadas de 7") || !strings.Contains(s.Headline, "Alpha") {
		t.Errorf("headline = %q", s.Headline)
	}

	// 2025-12-12 is a Friday; the Monday week starts on 2025-12-08.
	w := s.Week
	if w.Start.ISO() != "2025-12-08" || w.End.ISO() != "2025-12-14" {
		t.Fatalf("week = %s..%s", w.Start.ISO(), w.End.ISO())
	}
	if len(w.Groups) != 3 {
		t.Fatalf("groups = %+v", w.Groups)
	}
	a, b, c := w.Groups[0], w.Groups[1], w.Groups[2]
	if a.Approved != 2 || a.Target == nil || *a.Target != 10 || a.Progress == nil || *a.Progress != 0.2 {
		t.Errorf("group A = %+v", a)
	}
	if b.Approved != 1 || b.Progress != nil {
		t.Errorf("group B = %+v", b)
	}
	if c.Approved != 0 || c.Target != nil {
		t.Errorf("group C = %+v", c)
	}
}

func TestWeekFollowsCampaignConvention(t *testing.T) {
	c := testCampaign()
	c.WeekStart = time.Sunday
	snap := Compute(sampleFacts(), Options{Now: time.Date(2025, 12, 12, 15, 0, 0, 0, time.UTC), Campaign: c})
	if snap.Summary.Week.Start.ISO() != "2025-12-07" {
		t.Errorf("sunday week start = %s", snap.Summary.Week.Start.ISO())
	}
	// Day 8 approval for Beta is now inside the week as well.
	if snap.Summary.Week.Groups[1].Approved != 1 {
		t.Errorf("group B = %+v", snap.Summary.Week.Groups[1])
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	opts := Options{Now: time.Date(2025, 12, 12, 15, 0, 0, 0, time.UTC), Campaign: testCampaign()}
	first, _ := json.Marshal(Compute(sampleFacts(), opts))
	for i := 0; i < 5; i++ {
		again, _ := json.Marshal(Compute(sampleFacts(), opts))
		if !bytes.Equal(first, again) {
			t.Fatalf("run %d differs", i)
		}
	}
}

func TestComputeEmpty(t *testing.T) {
	snap := Compute(nil, Options{Campaign: testCampaign()})
	if len(snap.Stores) != 0 || snap.Summary.TotalSubmitted != 0 {
		t.Errorf("empty snapshot = %+v", snap)
	}
	if snap.Summary.Headline == "" {
		t.Errorf("empty snapshot should still carry a headline")
	}
}
