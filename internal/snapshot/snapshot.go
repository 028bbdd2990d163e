// Package snapshot builds the campaign-wide snapshot from proposal facts:
// one StoreMetrics per store plus an editorial summary.
package snapshot

import (
	"fmt"
	"sort"
	"time"

	"campanha/internal/campaign"
	"campanha/internal/catalog"
	"campanha/internal/core"
)

const topStoresLimit = 3

// StoreMetrics aggregates one store over the whole dataset and over its last
// day. Rates are 0 when nothing was decided.
type StoreMetrics struct {
	Store                 string  `json:"store" validate:"required"`
	Group                 string  `json:"group"`
	ApprovedTotal         int     `json:"approvedTotal" validate:"min=0"`
	RejectedTotal         int     `json:"rejectedTotal" validate:"min=0"`
	OtherTotal            int     `json:"otherTotal" validate:"min=0"`
	SubmittedTotal        int     `json:"submittedTotal" validate:"min=0"`
	ApprovedYesterday     int     `json:"approvedYesterday" validate:"min=0"`
	RejectedYesterday     int     `json:"rejectedYesterday" validate:"min=0"`
	SubmittedYesterday    int     `json:"submittedYesterday" validate:"min=0"`
	ApprovalRateTotal     float64 `json:"approvalRateTotal" validate:"min=0,max=1"`
	ApprovalRateYesterday float64 `json:"approvalRateYesterday" validate:"min=0,max=1"`
}

// Snapshot is the computed campaign state.
type Snapshot struct {
	GeneratedAt time.Time           `json:"generatedAt"`
	LastDay     core.Date           `json:"lastDay"`
	Stores      []StoreMetrics      `json:"stores" validate:"dive"`
	Summary     Summary             `json:"summary"`
	Proposals   []core.ProposalFact `json:"proposals" validate:"dive"`
}

type Summary struct {
	TotalApproved     int          `json:"totalApproved"`
	TotalRejected     int          `json:"totalRejected"`
	TotalSubmitted    int          `json:"totalSubmitted"`
	ApprovedYesterday int          `json:"approvedYesterday"`
	ApprovalRate      float64      `json:"approvalRate"`
	TopStores         []TopStore   `json:"topStores"`
	Headline          string       `json:"headline"`
	Week              WeekProgress `json:"week"`
}

type TopStore struct {
	Store    string `json:"store"`
	Approved int    `json:"approved"`
}

// WeekProgress is the approvals of each group in the week containing the
// snapshot time, against the group's weekly target.
type WeekProgress struct {
	Start  core.Date   `json:"start"`
	End    core.Date   `json:"end"`
	Groups []GroupWeek `json:"groups"`
}

type GroupWeek struct {
	Group    string   `json:"group"`
	Label    string   `json:"label"`
	Approved int      `json:"approved"`
	Target   *int     `json:"target"`
	Progress *float64 `json:"progress"`
}

// Options configure Compute. Now frames the weekly window; when zero the
// dataset's last day is used.
type Options struct {
	Now      time.Time
	Campaign *campaign.Campaign
}

// Compute builds the snapshot. Output depends only on proposals and opts.
func Compute(proposals []core.ProposalFact, opts Options) Snapshot {
	if opts.Campaign == nil {
		opts.Campaign = campaign.Default()
	}

	var last core.Date
	for _, p := range proposals {
		if last.IsZero() || last.Less(p.EntryDate) {
			last = p.EntryDate
		}
	}

	byStore := make(map[string]*StoreMetrics)
	for _, p := range proposals {
		name := p.StoreName()
		m, ok := byStore[name]
		if !ok {
			m = &StoreMetrics{Store: name, Group: p.Group}
			byStore[name] = m
		}
		yesterday := p.EntryDate.Equal(last.Time)
		m.SubmittedTotal++
		m.ApprovedTotal += p.Approved
		m.RejectedTotal += p.Rejected
		if p.Status == core.FactOutros {
			m.OtherTotal++
		}
		if yesterday {
			m.SubmittedYesterday++
			m.ApprovedYesterday += p.Approved
			m.RejectedYesterday += p.Rejected
		}
	}

	stores := make([]StoreMetrics, 0, len(byStore))
	for _, m := range byStore {
		m.ApprovalRateTotal = rate(m.ApprovedTotal, m.RejectedTotal)
		m.ApprovalRateYesterday = rate(m.ApprovedYesterday, m.RejectedYesterday)
		stores = append(stores, *m)
	}
	sort.Slice(stores, func(i, j int) bool { return stores[i].Store < stores[j].Store })

	now := last
	if !opts.Now.IsZero() {
		now = core.DateOf(opts.Now, opts.Campaign.Location)
	}

	return Snapshot{
		GeneratedAt: opts.Now,
		LastDay:     last,
		Stores:      stores,
		Summary:     summarize(stores, proposals, last, now, opts.Campaign),
		Proposals:   proposals,
	}
}

func rate(approved, rejected int) float64 {
	if approved+rejected == 0 {
		return 0
	}
	return float64(approved) / float64(approved+rejected)
}

func summarize(stores []StoreMetrics, proposals []core.ProposalFact, last, now core.Date, c *campaign.Campaign) Summary {
	var s Summary
	for _, m := range stores {
		s.TotalApproved += m.ApprovedTotal
		s.TotalRejected += m.RejectedTotal
		s.TotalSubmitted += m.SubmittedTotal
		s.ApprovedYesterday += m.ApprovedYesterday
	}
	s.ApprovalRate = rate(s.TotalApproved, s.TotalRejected)

	ranked := append([]StoreMetrics(nil), stores...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].ApprovedTotal != ranked[j].ApprovedTotal {
			return ranked[i].ApprovedTotal > ranked[j].ApprovedTotal
		}
		return ranked[i].Store < ranked[j].Store
	})
	for _, m := range ranked {
		if len(s.TopStores) == topStoresLimit || m.ApprovedTotal == 0 {
			break
		}
		s.TopStores = append(s.TopStores, TopStore{Store: m.Store, Approved: m.ApprovedTotal})
	}

	s.Headline = headline(s, last)
	s.Week = weekProgress(proposals, now, c)
	return s
}

func headline(s Summary, last core.Date) string {
	if s.TotalSubmitted == 0 {
		return "Nenhuma proposta registrada até o momento."
	}
	h := fmt.Sprintf("%d propostas aprovadas de %d enviadas; %d aprovadas em %s.",
		s.TotalApproved, s.TotalSubmitted, s.ApprovedYesterday, last.Format("02/01"))
	if len(s.TopStores) > 0 {
		h += fmt.Sprintf(" Destaque: %s com %d aprovações.", s.TopStores[0].Store, s.TopStores[0].Approved)
	}
	return h
}

func weekProgress(proposals []core.ProposalFact, now core.Date, c *campaign.Campaign) WeekProgress {
	w := WeekProgress{}
	if now.IsZero() {
		return w
	}
	w.Start = now.StartOfWeek(c.WeekStart)
	w.End = w.Start.AddDays(6)

	approved := make(map[string]int, len(catalog.Groups))
	for _, p := range proposals {
		if p.Approved == 0 || p.EntryDate.Less(w.Start) || w.End.Less(p.EntryDate) {
			continue
		}
		if g := catalog.NormalizeGroupKey(p.Group); g != "" {
			approved[g]++
		}
	}

	for _, g := range catalog.Groups {
		gw := GroupWeek{
			Group:    g,
			Label:    catalog.GroupLabelFromKey(g),
			Approved: approved[g],
			Target:   c.WeeklyTarget(g),
		}
		if gw.Target != nil && *gw.Target > 0 {
			p := float64(gw.Approved) / float64(*gw.Target)
			gw.Progress = &p
		}
		w.Groups = append(w.Groups, gw)
	}
	return w
}
