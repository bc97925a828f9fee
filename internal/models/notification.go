package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Типы уведомлений
const (
	NotificationTypeEscrowCreated   = "escrow_created"
	NotificationTypeEscrowSigned    = "escrow_signed"
	NotificationTypeWorkSubmitted   = "work_submitted"
	NotificationTypeMilestonePaid   = "milestone_paid"
	NotificationTypeEscrowApproved  = "escrow_approved"
	NotificationTypeEscrowRefunded  = "escrow_refunded"
	NotificationTypeEscrowWithdrawn = "escrow_withdrawn"
	NotificationTypeEscrowReleased  = "escrow_released"
	NotificationTypeEscrowExpired   = "escrow_expired"
	NotificationTypeDeadlineMoved   = "deadline_moved"
	NotificationTypeDisputeOpened   = "dispute_opened"
	NotificationTypeDisputeResolved = "dispute_resolved"
	NotificationTypeReviewSubmitted = "review_submitted"
)

// Notification представляет уведомление пользователя.
type Notification struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	UserID    uuid.UUID       `db:"user_id" json:"user_id"`
	Type      string          `db:"type" json:"type"`
	Payload   json.RawMessage `db:"payload" json:"payload"`
	IsRead    bool            `db:"is_read" json:"is_read"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
