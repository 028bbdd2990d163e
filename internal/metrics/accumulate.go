package metrics

import (
	"fmt"

	"github.com/shopspring/decimal"

	"campanha/internal/core"
)

type counter struct {
	approved           int
	rejected           int
	pending            int
	submitted          int
	approvedYesterday  int
	submittedYesterday int
}

func (c *counter) add(s core.RowStatus, yesterday bool) {
	c.submitted++
	switch s {
	case core.StatusAprovado:
		c.approved++
	case core.StatusReprovado:
		c.rejected++
	default:
		c.pending++
	}
	if yesterday {
		c.submittedYesterday++
		if s == core.StatusAprovado {
			c.approvedYesterday++
		}
	}
}

func (c *counter) decided() int { return c.approved + c.rejected }

// rate is approved/decided, nil when nothing was decided.
func (c *counter) rate() *float64 {
	d := c.decided()
	if d == 0 {
		return nil
	}
	r := float64(c.approved) / float64(d)
	return &r
}

type ticketAcc struct {
	sum decimal.Decimal
	n   int64
}

func (t *ticketAcc) add(d decimal.Decimal) {
	t.sum = t.sum.Add(d)
	t.n++
}

func (t *ticketAcc) average() *decimal.Decimal {
	if t.n == 0 {
		return nil
	}
	avg := t.sum.Div(decimal.NewFromInt(t.n)).Round(2)
	return &avg
}

type storeAcc struct {
	counter
	group   string
	reasons map[core.RowStatus]int
	tickets ticketAcc
}

func (s *storeAcc) summary(name string) StoreSummary {
	sum := StoreSummary{
		Store:             name,
		Group:             s.group,
		Approved:          s.approved,
		Rejected:          s.rejected,
		Pending:           s.pending,
		Submitted:         s.submitted,
		Decided:           s.decided(),
		ApprovedYesterday: s.approvedYesterday,
		ApprovalRate:      s.rate(),
		PendingBreakdown:  make(map[core.RowStatus]int, len(core.PendingStatuses)),
		AverageTicket:     s.tickets.average(),
	}
	for _, st := range core.PendingStatuses {
		sum.PendingBreakdown[st] = s.reasons[st]
	}
	if dom, n := DominantPending(s.reasons); n > 0 {
		sum.DominantPending = dom
		sum.ManagerMessage = ManagerMessage(dom, n)
	}
	return sum
}

// DominantPending returns the pending reason with the highest count. Ties go
// to the reason listed first in core.PendingStatuses.
func DominantPending(counts map[core.RowStatus]int) (core.RowStatus, int) {
	var best core.RowStatus
	bestN := 0
	for _, st := range core.PendingStatuses {
		if n := counts[st]; n > bestN {
			best, bestN = st, n
		}
	}
	return best, bestN
}

// ManagerMessage is the action line shown to a store manager for the
// dominant pending reason.
func ManagerMessage(reason core.RowStatus, n int) string {
	noun := "propostas"
	if n == 1 {
		noun = "proposta"
	}
	switch reason {
	case core.StatusAguardandoDocumentos:
		return fmt.Sprintf("%d %s aguardando documentos: cobre o envio com os clientes.", n, noun)
	case core.StatusPendente:
		return fmt.Sprintf("%d %s com pendência: verifique o andamento com a mesa de crédito.", n, noun)
	case core.StatusAguardandoFinalizarCadastro:
		return fmt.Sprintf("%d %s aguardando finalizar cadastro: conclua o cadastro no sistema.", n, noun)
	case core.StatusAnalise:
		return fmt.Sprintf("%d %s em análise: acompanhe o retorno da análise.", n, noun)
	default:
		return ""
	}
}
