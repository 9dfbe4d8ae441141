package billing

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/scrapekit/handler"
	"github.com/dmitrymomot/scrapekit/pkg/auth"
	"github.com/dmitrymomot/scrapekit/pkg/billing"
	"github.com/dmitrymomot/scrapekit/pkg/binder"
	"github.com/dmitrymomot/scrapekit/pkg/logger"
)

const defaultMaxWebhookBytes = 1 << 20

// CheckoutRequest is the body of POST /checkout.
type CheckoutRequest struct {
	PlanID string `json:"plan_id"`
}

// WebhookView acknowledges a processed delivery.
type WebhookView struct {
	EventID string          `json:"event_id"`
	Type    string          `json:"type"`
	Outcome billing.Outcome `json:"outcome"`
}

type empty struct{}

// Handlers exposes billing.Service over HTTP.
type Handlers struct {
	svc             *billing.Service
	log             *slog.Logger
	metrics         *Metrics
	provider        string
	signatureHeader string
	maxWebhookBytes int64
}

// NewHandlers creates the billing HTTP handlers. Panics if svc is nil.
func NewHandlers(svc *billing.Service, opts ...Option) *Handlers {
	if svc == nil {
		panic("billing handlers: service is required")
	}
	h := &Handlers{
		svc:             svc,
		log:             slog.Default(),
		provider:        "stripe",
		signatureHeader: SignatureHeader("stripe"),
		maxWebhookBytes: defaultMaxWebhookBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.metrics == nil {
		h.metrics = NewMetrics(nil)
	}
	h.log = h.log.With(logger.Component("billing_http"))
	return h
}

// Handle returns the /billing routes. Plans and webhooks are public;
// the remaining routes run behind authenticate.
func (h *Handlers) Handle(authenticate func(http.Handler) http.Handler) http.Handler {
	errorHandler := handler.NewErrorHandler(h.log, MapError)
	webhookErrors := handler.NewErrorHandler(h.log, mapWebhookError)

	r := chi.NewRouter()
	r.Get("/plans", handler.Wrap(h.plans,
		handler.WithErrorHandler[handler.Context, empty](errorHandler),
	))
	r.Post("/webhooks", handler.Wrap(h.webhook,
		handler.WithErrorHandler[handler.Context, empty](webhookErrors),
	))

	r.Group(func(r chi.Router) {
		if authenticate != nil {
			r.Use(authenticate)
		}
		r.Post("/checkout", handler.Wrap(h.checkout,
			handler.WithBinders[handler.Context, CheckoutRequest](binder.JSON()),
			handler.WithErrorHandler[handler.Context, CheckoutRequest](errorHandler),
		))
		r.Get("/portal", handler.Wrap(h.portal,
			handler.WithErrorHandler[handler.Context, empty](errorHandler),
		))
		r.Get("/payments", handler.Wrap(h.payments,
			handler.WithErrorHandler[handler.Context, empty](errorHandler),
		))
	})

	return r
}

// Me returns the handler for GET /account/me. It expects auth.Middleware upstream.
func (h *Handlers) Me() http.HandlerFunc {
	return handler.Wrap(h.me,
		handler.WithErrorHandler[handler.Context, empty](handler.NewErrorHandler(h.log, MapError)),
	)
}

func (h *Handlers) plans(_ handler.Context, _ empty) handler.Response {
	plans := h.svc.Catalog().Plans()
	views := make([]PlanView, 0, len(plans))
	for _, p := range plans {
		views = append(views, newPlanView(p))
	}
	return handler.JSON(views)
}

func (h *Handlers) checkout(ctx handler.Context, req CheckoutRequest) handler.Response {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return handler.Error(handler.ErrUnauthorized)
	}
	if strings.TrimSpace(req.PlanID) == "" {
		verr := handler.NewValidationError()
		verr.Add("plan_id", "plan_id is required")
		h.metrics.observeCheckout("rejected")
		return handler.Error(verr)
	}

	sess, err := h.svc.CreateCheckoutSession(ctx, userID, req.PlanID)
	if err != nil {
		h.metrics.observeCheckout(checkoutOutcome(err))
		return handler.Error(err)
	}
	h.metrics.observeCheckout("created")

	return handler.JSON(CheckoutView{SessionID: sess.SessionID, SessionURL: sess.SessionURL})
}

func checkoutOutcome(err error) string {
	switch {
	case errors.Is(err, billing.ErrTooManyCheckouts):
		return "rate_limited"
	case errors.Is(err, billing.ErrInvalidPlanID), errors.Is(err, billing.ErrUserNotFound):
		return "rejected"
	}
	return "failed"
}

func (h *Handlers) portal(ctx handler.Context, _ empty) handler.Response {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return handler.Error(handler.ErrUnauthorized)
	}
	url, err := h.svc.CustomerPortalURL(ctx, userID)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(PortalView{PortalURL: url})
}

func (h *Handlers) payments(ctx handler.Context, _ empty) handler.Response {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return handler.Error(handler.ErrUnauthorized)
	}
	records, err := h.svc.PaymentHistory(ctx, userID)
	if err != nil {
		return handler.Error(err)
	}
	views := make([]PaymentView, 0, len(records))
	for _, r := range records {
		views = append(views, newPaymentView(r))
	}
	return handler.JSON(views)
}

func (h *Handlers) me(ctx handler.Context, _ empty) handler.Response {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return handler.Error(handler.ErrUnauthorized)
	}
	user, err := h.svc.Account(ctx, userID)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(newAccountView(user, h.svc.Catalog()))
}

// webhook reads the raw body; the signature covers the exact bytes sent.
func (h *Handlers) webhook(ctx handler.Context, _ empty) handler.Response {
	started := time.Now()
	r := ctx.Request()

	payload, err := io.ReadAll(http.MaxBytesReader(ctx.ResponseWriter(), r.Body, h.maxWebhookBytes))
	if err != nil {
		h.metrics.observeWebhook(h.provider, "unknown", "rejected", time.Since(started))
		return handler.Error(errors.Join(billing.ErrInvalidPayload, err))
	}

	result, err := h.svc.HandleWebhook(ctx, payload, r.Header.Get(h.signatureHeader))
	if err != nil {
		h.metrics.observeWebhook(h.provider, "unknown", webhookFailure(err), time.Since(started))
		return handler.Error(err)
	}
	h.metrics.observeWebhook(h.provider, string(result.Type), string(result.Outcome), time.Since(started))

	return handler.JSON(WebhookView{
		EventID: result.EventID,
		Type:    string(result.Type),
		Outcome: result.Outcome,
	})
}

func webhookFailure(err error) string {
	if errors.Is(err, billing.ErrInvalidSignature) || errors.Is(err, billing.ErrInvalidPayload) {
		return "rejected"
	}
	return "error"
}
