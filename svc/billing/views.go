package billing

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/scrapekit/pkg/billing"
)

// PlanView is a catalog entry as listed to clients.
type PlanView struct {
	ID      billing.PlanID       `json:"id"`
	Name    string               `json:"name"`
	Kind    billing.EffectKind   `json:"kind"`
	Credits int64                `json:"credits,omitempty"`
	Mode    billing.CheckoutMode `json:"mode"`
}

func newPlanView(p billing.Plan) PlanView {
	return PlanView{
		ID:      p.ID,
		Name:    p.Name,
		Kind:    p.Effect.Kind,
		Credits: p.Credits(),
		Mode:    p.CheckoutMode(),
	}
}

// CheckoutView is returned by POST /checkout.
type CheckoutView struct {
	SessionID  string `json:"session_id"`
	SessionURL string `json:"session_url"`
}

// PortalView is returned by GET /portal.
type PortalView struct {
	PortalURL string `json:"portal_url"`
}

// PaymentView is a payment history entry.
type PaymentView struct {
	ID            uuid.UUID             `json:"id"`
	Amount        int64                 `json:"amount"`
	Currency      string                `json:"currency"`
	Credits       int64                 `json:"credits"`
	PaymentMethod billing.PaymentMethod `json:"payment_method"`
	TransactionID string                `json:"transaction_id"`
	Status        billing.PaymentStatus `json:"status"`
	CreatedAt     time.Time             `json:"created_at"`
	CompletedAt   *time.Time            `json:"completed_at,omitempty"`
}

func newPaymentView(r billing.PaymentRecord) PaymentView {
	return PaymentView{
		ID:            r.ID,
		Amount:        r.Amount,
		Currency:      r.Currency,
		Credits:       r.Credits,
		PaymentMethod: r.PaymentMethod,
		TransactionID: r.TransactionID,
		Status:        r.Status,
		CreatedAt:     r.CreatedAt,
		CompletedAt:   r.CompletedAt,
	}
}

// AccountView is the caller's balance and subscription state.
type AccountView struct {
	ID                    uuid.UUID                  `json:"id"`
	Email                 string                     `json:"email"`
	Username              string                     `json:"username"`
	Credits               int64                      `json:"credits"`
	TotalSpent            int64                      `json:"total_spent"`
	SubscriptionStatus    billing.SubscriptionStatus `json:"subscription_status,omitempty"`
	SubscriptionPlan      *billing.PlanID            `json:"subscription_plan,omitempty"`
	SubscriptionPlanName  string                     `json:"subscription_plan_name,omitempty"`
	HasActiveSubscription bool                       `json:"has_active_subscription"`
	HasProcessorCustomer  bool                       `json:"has_processor_customer"`
	DatePaid              *time.Time                 `json:"date_paid,omitempty"`
}

func newAccountView(u *billing.User, catalog *billing.Catalog) AccountView {
	v := AccountView{
		ID:                    u.ID,
		Email:                 u.Email,
		Username:              u.Username,
		Credits:               u.Credits,
		TotalSpent:            u.TotalSpent,
		SubscriptionStatus:    u.SubscriptionStatus,
		SubscriptionPlan:      u.SubscriptionPlan,
		HasActiveSubscription: u.HasActiveSubscription(),
		HasProcessorCustomer:  u.PaymentProcessorUserID != nil,
		DatePaid:              u.DatePaid,
	}
	if u.SubscriptionPlan != nil {
		v.SubscriptionPlanName = catalog.Name(*u.SubscriptionPlan)
	}
	return v
}
