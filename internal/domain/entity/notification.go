package entity

import "tg_escrow/internal/domain/value"

type NotificationKind string

const (
	NotificationDealPaid        NotificationKind = "deal_paid"
	NotificationDealDelivered   NotificationKind = "deal_delivered"
	NotificationFundsReleased   NotificationKind = "funds_released"
	NotificationDisputeOpened   NotificationKind = "dispute_opened"
	NotificationDisputeResolved NotificationKind = "dispute_resolved"
	NotificationDeposit         NotificationKind = "deposit"
	NotificationDealMessage     NotificationKind = "deal_message"
)

// Notification отправляется после коммита транзакции. RecipientID == 0 означает чат администраторов.
type Notification struct {
	Kind        NotificationKind `json:"kind"`
	RecipientID int64            `json:"recipientId"`
	DealID      int64            `json:"dealId,omitempty"`
	Amount      value.Cents      `json:"amount"`
	Fee         value.Cents      `json:"fee,omitempty"`
	Winner      value.Winner     `json:"winner,omitempty"`
	Text        string           `json:"text,omitempty"`
}
