package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"tg_escrow/pkg/httpx/reply"
)

func (s Server) RegisterRoutes(r chi.Router) { //nolint:funlen
	r.Route("/", func(r chi.Router) {
		// подпись проверяется внутри, X-User-Id не используется
		r.Post("/webhook/cryptopay", handler(s.postWebhookCryptoPay))

		r.Route("/v1", func(r chi.Router) {
			r.Route("/accounts", func(r chi.Router) {
				r.Post("/", handler(s.postV1Account))
				r.Get("/{id}", handler(s.getV1Account))
				r.Get("/{id}/deals", handler(s.getV1AccountDeals))
				r.Get("/{id}/audit", handler(s.getV1AccountAudit))
			})

			r.Route("/deals", func(r chi.Router) {
				r.Post("/", handler(s.postV1Deal))
				r.Get("/{id}", handler(s.getV1Deal))
				r.Post("/{id}/pay", handler(s.dealAction("Pay", s.dealService.Pay)))
				r.Post("/{id}/deliver", handler(s.dealAction("MarkDelivered", s.dealService.MarkDelivered)))
				r.Post("/{id}/confirm", handler(s.postV1DealConfirm))
				r.Post("/{id}/dispute", handler(s.dealAction("OpenDispute", s.dealService.OpenDispute)))
				r.Post("/{id}/messages", handler(s.postV1DealMessage))
				r.Post("/{id}/review", handler(s.postV1DealReview))
			})

			r.Route("/admin", func(r chi.Router) {
				r.Post("/deals/{id}/resolve", handler(s.postV1AdminResolve))
				r.Get("/deals/{id}/messages", handler(s.getV1AdminDealMessages))
				r.Post("/deposits", handler(s.postV1AdminDeposit))
				r.Post("/accounts/{id}/ban", handler(s.setBanned(true)))
				r.Post("/accounts/{id}/unban", handler(s.setBanned(false)))
				r.Get("/audit", handler(s.getV1AdminAudit))
				r.Post("/audit/verify", handler(s.postV1AdminAuditVerify))
			})
		})
	})
}

func handler(f func(http.ResponseWriter, *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := f(w, r); err != nil {
			reply.Error(r.Context(), w, err)
		}
	}
}
