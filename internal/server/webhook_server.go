package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"tg_escrow/internal/domain"
	"tg_escrow/internal/domain/service/deposit"
	"tg_escrow/internal/infrastructure/cryptopay"
	"tg_escrow/internal/metrics"
	"tg_escrow/pkg/errcodes"
	"tg_escrow/pkg/httpx/reply"
	"tg_escrow/pkg/rest"
)

const maxWebhookBody = 1 << 20

type signatureVerifier interface {
	Verify(body []byte, signature string) error
}

type confirmationApplier interface {
	ApplyConfirmation(ctx context.Context, c deposit.Confirmation) (deposit.Result, error)
}

type WebhookServer struct {
	verifier signatureVerifier
	deposits confirmationApplier
}

func NewWebhookServer(verifier signatureVerifier, deposits confirmationApplier) WebhookServer {
	return WebhookServer{
		verifier: verifier,
		deposits: deposits,
	}
}

// postWebhookCryptoPay подписывается по сырому телу, поэтому тело читается целиком до разбора.
func (s WebhookServer) postWebhookCryptoPay(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		return domain.WrapError(err, errcodes.InvalidWebhookPayload, "failed to read body")
	}

	if err = s.verifier.Verify(body, r.Header.Get(cryptopay.SignatureHeader)); err != nil {
		metrics.WebhookDeposits.WithLabelValues("rejected").Inc()
		return fmt.Errorf("verifier.Verify: %w", err)
	}

	confirmation, ok, err := cryptopay.ParseUpdate(body)
	if err != nil {
		metrics.WebhookDeposits.WithLabelValues("rejected").Inc()
		return fmt.Errorf("cryptopay.ParseUpdate: %w", err)
	}

	if !ok {
		metrics.WebhookDeposits.WithLabelValues("ignored").Inc()
		reply.JSON(ctx, w, http.StatusOK, rest.WebhookAck{Status: "ignored"})
		return nil
	}

	result, err := s.deposits.ApplyConfirmation(ctx, confirmation)
	if err != nil {
		return fmt.Errorf("deposits.ApplyConfirmation: %w", err)
	}

	status := "ok"
	if !result.Applied {
		status = "duplicate"
	}

	logger(ctx).Info("cryptopay invoice processed",
		slog.String("invoice", confirmation.ExternalRef),
		slog.Int64("payer", confirmation.PayerID),
		slog.String("status", status),
	)

	reply.JSON(ctx, w, http.StatusOK, rest.WebhookAck{Status: status})

	return nil
}
