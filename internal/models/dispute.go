package models

import (
	"time"

	"github.com/google/uuid"
)

// Статусы спора
const (
	DisputeStatusOpen     = "open"
	DisputeStatusResolved = "resolved"
)

// Стороны спора
const (
	DisputeSideClient     = "client"
	DisputeSideFreelancer = "freelancer"
)

// Dispute представляет спор по сделке. На одну сделку допускается
// не более одного спора.
type Dispute struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	EscrowID    int64      `db:"escrow_id" json:"escrow_id"`
	InitiatorID uuid.UUID  `db:"initiator_id" json:"initiator_id"`
	Reason      string     `db:"reason" json:"reason"`
	EvidenceURL *string    `db:"evidence_url" json:"evidence_url,omitempty"`
	Status      string     `db:"status" json:"status"`
	Winner      *string    `db:"winner" json:"winner,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	ResolvedAt  *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
}

// DisputeVote представляет голос участника по открытому спору.
// Пара (escrow_id, voter_id) уникальна: повторный голос отклоняется.
type DisputeVote struct {
	ID             uuid.UUID `db:"id" json:"id"`
	EscrowID       int64     `db:"escrow_id" json:"escrow_id"`
	VoterID        uuid.UUID `db:"voter_id" json:"voter_id"`
	SupportsClient bool      `db:"supports_client" json:"supports_client"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// DisputeTally хранит счётчики голосов по сделке. Счётчики только
// растут и при разрешении спора не обнуляются.
type DisputeTally struct {
	EscrowID           int64 `db:"escrow_id" json:"escrow_id"`
	VotesForClient     int   `db:"votes_for_client" json:"votes_for_client"`
	VotesForFreelancer int   `db:"votes_for_freelancer" json:"votes_for_freelancer"`
}

// TotalVotes возвращает общее число поданных голосов.
func (t *DisputeTally) TotalVotes() int {
	return t.VotesForClient + t.VotesForFreelancer
}

// WinnerSide определяет победителя по счётчикам. При равенстве
// голосов побеждает клиент.
func (t *DisputeTally) WinnerSide() string {
	if t.VotesForClient >= t.VotesForFreelancer {
		return DisputeSideClient
	}
	return DisputeSideFreelancer
}
