package value

import "fmt"

// DealStatus хранится в БД строкой, значения менять нельзя.
type DealStatus string

const (
	DealStatusPending   DealStatus = "pending"
	DealStatusActive    DealStatus = "active"
	DealStatusDelivered DealStatus = "delivered"
	DealStatusCompleted DealStatus = "completed"
	DealStatusCanceled  DealStatus = "canceled"
	DealStatusDispute   DealStatus = "dispute"
)

//nolint:gochecknoglobals
var dealTransitions = map[DealStatus][]DealStatus{
	DealStatusPending:   {DealStatusActive},
	DealStatusActive:    {DealStatusDelivered, DealStatusCompleted, DealStatusDispute},
	DealStatusDelivered: {DealStatusCompleted, DealStatusDispute},
	DealStatusDispute:   {DealStatusCompleted, DealStatusCanceled},
}

func ParseDealStatus(s string) (DealStatus, error) {
	status := DealStatus(s)
	switch status {
	case DealStatusPending, DealStatusActive, DealStatusDelivered,
		DealStatusCompleted, DealStatusCanceled, DealStatusDispute:
		return status, nil
	}

	return "", fmt.Errorf("unknown deal status %q", s)
}

func (s DealStatus) String() string {
	return string(s)
}

// CanTransitionTo сообщает, есть ли ребро s -> next в графе состояний сделки.
func (s DealStatus) CanTransitionTo(next DealStatus) bool {
	for _, allowed := range dealTransitions[s] {
		if allowed == next {
			return true
		}
	}

	return false
}

func (s DealStatus) IsTerminal() bool {
	return s == DealStatusCompleted || s == DealStatusCanceled
}

// IsFunded — деньги покупателя находятся на эскроу-счёте.
func (s DealStatus) IsFunded() bool {
	return s == DealStatusActive || s == DealStatusDelivered || s == DealStatusDispute
}
