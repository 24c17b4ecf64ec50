// Данный файл должен быть сгенерирован из openapi спецификации и называться types.gen.go
package rest

import "time"

// Error Модель ошибок
type Error struct {
	// Code Код ошибки
	Code ErrorCode `json:"code"`

	// Message Сообщение об ошибке (для отображения в UI в будущем)
	Message string `json:"message"`

	SupportID string `json:"supportId"`
}

// ErrorCode Код ошибки
type ErrorCode string

type RegisterAccountRequest struct {
	Username string `json:"username" validate:"max=64"`
	FullName string `json:"fullName" validate:"max=256"`
}

type Account struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	FullName    string `json:"fullName"`
	DisplayName string `json:"displayName"`
	// Balance Сумма с двумя знаками после запятой, например "50.00"
	Balance     string `json:"balance"`
	Rating      string `json:"rating"`
	RatingCount int64  `json:"ratingCount"`
	IsBanned    bool   `json:"isBanned"`
	IsAdmin     bool   `json:"isAdmin"`
}

type CreateDealRequest struct {
	Amount      string `json:"amount" validate:"required"`
	Description string `json:"description" validate:"required"`
}

type Deal struct {
	ID          int64     `json:"id"`
	SellerID    int64     `json:"sellerId"`
	BuyerID     *int64    `json:"buyerId,omitempty"`
	Amount      string    `json:"amount"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type DealList struct {
	Deals []Deal `json:"deals"`
}

// Settlement Итог выплаты по сделке: подтверждение получения или решение арбитра
type Settlement struct {
	Deal   Deal   `json:"deal"`
	Winner string `json:"winner,omitempty"`
	Amount string `json:"amount"`
	Fee    string `json:"fee"`
	Net    string `json:"net"`
}

type PostMessageRequest struct {
	Text string `json:"text" validate:"required"`
}

type DealMessage struct {
	ID        int64     `json:"id"`
	DealID    int64     `json:"dealId"`
	SenderID  int64     `json:"senderId"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

type DealMessageList struct {
	Messages []DealMessage `json:"messages"`
}

type ReviewRequest struct {
	Stars int `json:"stars"`
}

type Review struct {
	ID           int64  `json:"id"`
	DealID       int64  `json:"dealId"`
	SellerID     int64  `json:"sellerId"`
	Stars        int    `json:"stars"`
	SellerRating string `json:"sellerRating"`
}

type ResolveRequest struct {
	Winner string `json:"winner" validate:"required"`
}

type DepositRequest struct {
	AccountID int64  `json:"accountId" validate:"required,gt=0"`
	Amount    string `json:"amount" validate:"required"`
	Note      string `json:"note" validate:"max=256"`
}

type AuditEntry struct {
	ID        int64     `json:"id"`
	ActorID   int64     `json:"actorId"`
	Action    string    `json:"action"`
	Amount    string    `json:"amount"`
	Details   string    `json:"details"`
	PrevHash  string    `json:"prevHash"`
	Hash      string    `json:"hash"`
	CreatedAt time.Time `json:"createdAt"`
}

type AuditPage struct {
	Entries []AuditEntry `json:"entries"`
	// NextAfterID Передаётся в after для получения следующей страницы, 0 — страниц больше нет
	NextAfterID int64 `json:"nextAfterId"`
}

type AuditVerification struct {
	Entries  int    `json:"entries"`
	LastID   int64  `json:"lastId"`
	LastHash string `json:"lastHash"`
}

type WebhookAck struct {
	Status string `json:"status"`
}
