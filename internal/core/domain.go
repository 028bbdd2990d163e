package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Row statuses produced by the status classifier. Approved and rejected are
// decided outcomes; the rest are pending sub-reasons.
const (
	StatusAprovado                    RowStatus = "APROVADO"
	StatusReprovado                   RowStatus = "REPROVADO"
	StatusAnalise                     RowStatus = "ANALISE"
	StatusAguardandoDocumentos        RowStatus = "AGUARDANDO_DOCUMENTOS"
	StatusAguardandoFinalizarCadastro RowStatus = "AGUARDANDO_FINALIZAR_CADASTRO"
	StatusPendente                    RowStatus = "PENDENTE"
)

// Fact statuses carried by a ProposalFact.
const (
	FactAprovado  FactStatus = "APROVADO"
	FactReprovado FactStatus = "REPROVADO"
	FactOutros    FactStatus = "OUTROS"
)

const (
	// NoGroupLabel is the group label of stores outside the A/B/C segmentation.
	NoGroupLabel = "Sem Grupo"
	// NoStoreLabel buckets facts whose store could not be resolved.
	NoStoreLabel = "Sem Loja"
)

type (
	RowStatus  string
	FactStatus string

	// ProposalFact is one normalized loan-proposal record used by the snapshot
	// and monthly paths. It is immutable once built.
	ProposalFact struct {
		ProposalID    int64               `json:"proposalId" validate:"gt=0"`
		Store         *string             `json:"store"`
		Group         string              `json:"group"`
		Status        FactStatus          `json:"status" validate:"oneof=APROVADO REPROVADO OUTROS"`
		PendingReason RowStatus           `json:"pendingReason,omitempty"`
		EntryDate     Date                `json:"entryDateISO"`
		FinalizedDate *Date               `json:"finalizedDateISO,omitempty"`
		Approved      int                 `json:"approved" validate:"min=0,max=1"`
		Rejected      int                 `json:"rejected" validate:"min=0,max=1"`
		CNPJ          string              `json:"cnpj,omitempty"`
		Ticket        decimal.NullDecimal `json:"ticket"`
	}

	// NormalizedRow is the lighter shape consumed by the ad hoc metrics
	// aggregator. CPF is kept exactly as exported.
	NormalizedRow struct {
		EntryDate Date
		Store     string
		Group     string // A, B, C or "" when unknown
		Status    RowStatus
		CPF       string
		CNPJ      string
		Ticket    decimal.NullDecimal
	}
)

var (
	ErrInvalidProposalID = errors.New("invalid proposal id")
	ErrMissingEntryDate  = errors.New("missing entry date")
	ErrInconsistentFlags = errors.New("approved and rejected flags disagree with status")
)

// PendingStatuses lists the pending sub-reasons in dominance order: when two
// reasons have the same count the earlier one wins.
var PendingStatuses = []RowStatus{
	StatusAguardandoDocumentos,
	StatusPendente,
	StatusAguardandoFinalizarCadastro,
	StatusAnalise,
}

// IsDecided reports whether the status is a final outcome.
func (s RowStatus) IsDecided() bool {
	return s == StatusAprovado || s == StatusReprovado
}

// IsPending reports whether the status is one of the pending sub-reasons.
func (s RowStatus) IsPending() bool {
	switch s {
	case StatusAnalise, StatusAguardandoDocumentos, StatusAguardandoFinalizarCadastro, StatusPendente:
		return true
	}
	return false
}

// Fact collapses a row status into the three-valued fact status.
func (s RowStatus) Fact() FactStatus {
	switch s {
	case StatusAprovado:
		return FactAprovado
	case StatusReprovado:
		return FactReprovado
	default:
		return FactOutros
	}
}

// Flags returns the approved/rejected indicator pair for the status.
func (s FactStatus) Flags() (approved, rejected int) {
	switch s {
	case FactAprovado:
		return 1, 0
	case FactReprovado:
		return 0, 1
	default:
		return 0, 0
	}
}

// NewProposalFact builds a fact with the approved/rejected flags derived from
// the row status.
func NewProposalFact(id int64, store *string, group string, status RowStatus, entry Date, finalized *Date) ProposalFact {
	fs := status.Fact()
	approved, rejected := fs.Flags()
	f := ProposalFact{
		ProposalID:    id,
		Store:         store,
		Group:         group,
		Status:        fs,
		EntryDate:     entry,
		FinalizedDate: finalized,
		Approved:      approved,
		Rejected:      rejected,
	}
	if fs == FactOutros {
		f.PendingReason = status
	}
	return f
}

// StoreName returns the store label, falling back to NoStoreLabel.
func (f ProposalFact) StoreName() string {
	if f.Store == nil || strings.TrimSpace(*f.Store) == "" {
		return NoStoreLabel
	}
	return *f.Store
}

func (f ProposalFact) Validate() error {
	if f.ProposalID <= 0 {
		return ErrInvalidProposalID
	}
	if f.EntryDate.IsZero() {
		return ErrMissingEntryDate
	}
	approved, rejected := f.Status.Flags()
	if approved != f.Approved || rejected != f.Rejected {
		return ErrInconsistentFlags
	}
	return nil
}
