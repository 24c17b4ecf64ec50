package value

import "fmt"

type AuditAction string

const (
	AuditActionDeposit           AuditAction = "deposit"
	AuditActionWebhookDeposit    AuditAction = "webhook-deposit"
	AuditActionEscrowLock        AuditAction = "escrow-lock"
	AuditActionDelivery          AuditAction = "delivery"
	AuditActionRelease           AuditAction = "release"
	AuditActionDisputeResolution AuditAction = "dispute-resolution"
	AuditActionRefund            AuditAction = "refund"
)

func ParseAuditAction(s string) (AuditAction, error) {
	action := AuditAction(s)
	switch action {
	case AuditActionDeposit, AuditActionWebhookDeposit, AuditActionEscrowLock, AuditActionDelivery,
		AuditActionRelease, AuditActionDisputeResolution, AuditActionRefund:
		return action, nil
	}

	return "", fmt.Errorf("unknown audit action %q", s)
}

func (a AuditAction) String() string {
	return string(a)
}
