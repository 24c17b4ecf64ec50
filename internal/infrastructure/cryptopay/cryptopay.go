// Package cryptopay разбирает вебхуки Crypto Pay API (@CryptoBot).
package cryptopay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"tg_escrow/internal/domain"
	"tg_escrow/internal/domain/service/deposit"
	"tg_escrow/internal/domain/value"
	"tg_escrow/pkg/errcodes"
)

const (
	SignatureHeader = "Crypto-Pay-Api-Signature"

	UpdateInvoicePaid = "invoice_paid"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals // skip

type Update struct {
	UpdateID   int64   `json:"update_id"`
	UpdateType string  `json:"update_type"`
	Invoice    Invoice `json:"payload"`
}

type Invoice struct {
	InvoiceID jsoniter.Number `json:"invoice_id"`
	Status    string          `json:"status"`
	Asset     string          `json:"asset"`
	Amount    string          `json:"amount"`
	// Payload — произвольная строка, заданная при создании счёта. Мы кладём туда id плательщика.
	Payload string `json:"payload"`
}

type Verifier struct {
	secret []byte
}

// NewVerifier принимает токен приложения; ключ подписи — sha256 от токена.
func NewVerifier(apiToken string) *Verifier {
	secret := sha256.Sum256([]byte(apiToken))

	return &Verifier{secret: secret[:]}
}

// Verify сверяет hex HMAC-SHA256 тела запроса с заголовком подписи.
func (v *Verifier) Verify(body []byte, signature string) error {
	if signature == "" {
		return domain.NewError(errcodes.InvalidSignature, "missing signature")
	}

	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return domain.WrapError(err, errcodes.InvalidSignature, "malformed signature")
	}

	if !hmac.Equal(got, v.sign(body)) {
		return domain.NewError(errcodes.InvalidSignature, "signature mismatch")
	}

	return nil
}

// Sign нужен для тестов и локальной отладки вебхука.
func (v *Verifier) Sign(body []byte) string {
	return hex.EncodeToString(v.sign(body))
}

func (v *Verifier) sign(body []byte) []byte {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)

	return mac.Sum(nil)
}

// ParseUpdate возвращает подтверждение платежа. ok == false для обновлений, которые не нужно обрабатывать.
func ParseUpdate(body []byte) (deposit.Confirmation, bool, error) {
	var update Update
	if err := json.Unmarshal(body, &update); err != nil {
		return deposit.Confirmation{}, false, domain.WrapError(err, errcodes.InvalidWebhookPayload, "invalid json")
	}

	if update.UpdateType != UpdateInvoicePaid {
		return deposit.Confirmation{}, false, nil
	}

	invoice := update.Invoice

	ref := invoice.InvoiceID.String()
	if ref == "" {
		return deposit.Confirmation{}, false, domain.NewError(errcodes.InvalidWebhookPayload, "invoice_id is empty")
	}

	payerID, err := strconv.ParseInt(strings.TrimSpace(invoice.Payload), 10, 64)
	if err != nil || payerID <= 0 {
		return deposit.Confirmation{}, false, domain.NewError(
			errcodes.InvalidWebhookPayload,
			fmt.Sprintf("invoice %s: payload %q is not an account id", ref, invoice.Payload),
		)
	}

	amount, err := value.ParseAmount(invoice.Amount)
	if err != nil {
		return deposit.Confirmation{}, false, domain.WrapError(err, errcodes.InvalidWebhookPayload,
			fmt.Sprintf("invoice %s: invalid amount", ref))
	}

	if amount <= 0 {
		return deposit.Confirmation{}, false, domain.NewError(errcodes.InvalidWebhookPayload,
			fmt.Sprintf("invoice %s: amount must be positive", ref))
	}

	return deposit.Confirmation{ExternalRef: ref, PayerID: payerID, Amount: amount}, true, nil
}
