package billing

import (
	"fmt"
	"strings"
)

// PlanID identifies a purchasable plan. The set is fixed at build time.
type PlanID string

const (
	PlanCredits5000  PlanID = "credits5000"
	PlanCredits10000 PlanID = "credits10000"
	PlanCredits20000 PlanID = "credits20000"
)

// ParsePlanID converts raw client input into a PlanID known to this build.
// Catalog membership is checked separately by Catalog.Lookup.
func ParsePlanID(s string) (PlanID, error) {
	id := PlanID(strings.TrimSpace(s))
	switch id {
	case PlanCredits5000, PlanCredits10000, PlanCredits20000:
		return id, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPlanID, s)
}

func (id PlanID) String() string { return string(id) }

// EffectKind discriminates Effect variants.
type EffectKind string

const (
	EffectSubscription EffectKind = "subscription"
	EffectCredits      EffectKind = "credits"
)

// Effect is the account mutation a completed purchase triggers.
// Amount is meaningful only for EffectCredits.
type Effect struct {
	Kind   EffectKind
	Amount int64
}

// CreditsEffect grants amount credits once per completed transaction.
func CreditsEffect(amount int64) Effect {
	return Effect{Kind: EffectCredits, Amount: amount}
}

// SubscriptionEffect activates a recurring subscription.
func SubscriptionEffect() Effect {
	return Effect{Kind: EffectSubscription}
}

// IsCredits reports whether the effect grants credits.
func (e Effect) IsCredits() bool { return e.Kind == EffectCredits }

// IsSubscription reports whether the effect activates a subscription.
func (e Effect) IsSubscription() bool { return e.Kind == EffectSubscription }

// Validate checks the variant is well formed.
func (e Effect) Validate() error {
	switch e.Kind {
	case EffectCredits:
		if e.Amount <= 0 {
			return fmt.Errorf("credits effect amount must be positive, got %d", e.Amount)
		}
	case EffectSubscription:
		if e.Amount != 0 {
			return fmt.Errorf("subscription effect must not carry an amount, got %d", e.Amount)
		}
	default:
		return fmt.Errorf("unknown effect kind %q", e.Kind)
	}
	return nil
}

// Plan binds a PlanID to the processor-side price and the effect a purchase produces.
type Plan struct {
	ID              PlanID
	Name            string
	ProcessorPlanID string // price ID on the processor side, sourced from configuration
	Effect          Effect
}

// CheckoutMode returns the processor checkout mode the plan needs.
func (p Plan) CheckoutMode() CheckoutMode {
	if p.Effect.IsSubscription() {
		return CheckoutModeSubscription
	}
	return CheckoutModePayment
}

// Credits returns the number of credits the plan grants, zero for subscriptions.
func (p Plan) Credits() int64 {
	if p.Effect.IsCredits() {
		return p.Effect.Amount
	}
	return 0
}
