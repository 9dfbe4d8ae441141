package billing

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/scrapekit/pkg/logger"
)

func TestDecodePaddleTransaction(t *testing.T) {
	t.Parallel()

	payload := []byte(`{
		"event_id": "evt_01h",
		"event_type": "transaction.completed",
		"occurred_at": "2026-03-01T12:00:00Z",
		"data": {
			"id": "txn_01h",
			"status": "completed",
			"customer_id": "ctm_01h",
			"currency_code": "CNY",
			"custom_data": {"user_id": "u-1", "plan_id": "credits10000"},
			"items": [{"price": {"id": "pri_10000"}}],
			"details": {"totals": {"grand_total": "6900"}}
		}
	}`)

	e, err := decodePaddleEvent(payload)
	require.NoError(t, err)
	assert.Equal(t, "evt_01h", e.ID)
	assert.Equal(t, EventCheckoutCompleted, e.Type)
	assert.Equal(t, PaymentMethodPaddle, e.PaymentMethod)
	assert.Equal(t, "txn_01h", e.TransactionID)
	assert.Equal(t, "ctm_01h", e.CustomerID)
	assert.Equal(t, "u-1", e.UserID)
	assert.Equal(t, "credits10000", e.PlanID)
	assert.Equal(t, "pri_10000", e.ProcessorPlanID)
	assert.Equal(t, int64(6900), e.Amount)
	assert.Equal(t, "cny", e.Currency)
	assert.Equal(t, 2026, e.OccurredAt.Year())
}

func TestDecodePaddleTransactionStates(t *testing.T) {
	t.Parallel()

	tests := map[string]EventType{
		"transaction.completed":      EventCheckoutCompleted,
		"transaction.paid":           EventCheckoutPending,
		"transaction.payment_failed": EventPaymentRetrying,
		"transaction.canceled":       EventPaymentFailed,
		"transaction.created":        EventIgnored,
		"address.created":            EventIgnored,
	}
	for eventType, want := range tests {
		payload := []byte(`{"event_id":"evt_1","event_type":"` + eventType + `","data":{"id":"txn_1","items":[{"price_id":"pri_1"}]}}`)
		e, err := decodePaddleEvent(payload)
		require.NoError(t, err, eventType)
		assert.Equal(t, want, e.Type, eventType)
	}
}

// paddleDecoder skips signature checks and feeds raw notifications through decodePaddleEvent.
type paddleDecoder struct{ Provider }

func (paddleDecoder) ParseEvent(_ context.Context, payload []byte, _ string) (*Event, error) {
	return decodePaddleEvent(payload)
}

func TestPaddleFailedAttemptThenCompletedGrantsCredits(t *testing.T) {
	t.Parallel()

	user := User{ID: uuid.New(), Email: "user@example.com", Credits: 10}
	store := NewMemoryStore(user)
	catalog := MustNewCatalog(Plan{ID: PlanCredits5000, ProcessorPlanID: "pri_5000", Effect: CreditsEffect(5000)})
	svc := NewService(catalog, paddleDecoder{}, store, WithLogger(logger.Discard()))

	notification := func(id, eventType string) []byte {
		return []byte(`{"event_id":"` + id + `","event_type":"` + eventType + `","data":{` +
			`"id":"txn_1","customer_id":"ctm_1","currency_code":"CNY",` +
			`"custom_data":{"user_id":"` + user.ID.String() + `","plan_id":"credits5000"},` +
			`"items":[{"price_id":"pri_5000"}],"details":{"totals":{"grand_total":"3900"}}}}`)
	}

	res, err := svc.HandleWebhook(context.Background(), notification("evt_1", "transaction.payment_failed"), "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, res.Outcome)

	res, err = svc.HandleWebhook(context.Background(), notification("evt_2", "transaction.completed"), "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, res.Outcome)

	got, err := store.GetUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5010), got.Credits)

	records, err := store.ListPaymentRecords(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, PaymentCompleted, records[0].Status)
}

func TestDecodePaddleSubscription(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		eventType  string
		data       string
		wantType   EventType
		wantStatus SubscriptionStatus
	}{
		{
			name:       "activated",
			eventType:  "subscription.activated",
			data:       `{"status":"active"}`,
			wantType:   EventSubscriptionUpdated,
			wantStatus: SubscriptionActive,
		},
		{
			name:       "scheduled cancel",
			eventType:  "subscription.updated",
			data:       `{"status":"active","scheduled_change":{"action":"cancel"}}`,
			wantType:   EventSubscriptionUpdated,
			wantStatus: SubscriptionCancelAtPeriodEnd,
		},
		{
			name:       "past due",
			eventType:  "subscription.past_due",
			data:       `{"status":"past_due"}`,
			wantType:   EventSubscriptionUpdated,
			wantStatus: SubscriptionPastDue,
		},
		{
			name:       "updated to canceled",
			eventType:  "subscription.updated",
			data:       `{"status":"canceled"}`,
			wantType:   EventSubscriptionDeleted,
			wantStatus: SubscriptionDeleted,
		},
		{
			name:       "canceled",
			eventType:  "subscription.canceled",
			data:       `{"status":"canceled"}`,
			wantType:   EventSubscriptionDeleted,
			wantStatus: SubscriptionDeleted,
		},
		{
			name:       "paused is not acted on",
			eventType:  "subscription.paused",
			data:       `{"status":"paused"}`,
			wantType:   EventIgnored,
			wantStatus: SubscriptionNone,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := []byte(`{"event_id":"evt_s","event_type":"` + tt.eventType + `","data":` + tt.data + `}`)
			e, err := decodePaddleEvent(payload)
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, e.Type)
			assert.Equal(t, tt.wantStatus, e.SubscriptionStatus)
		})
	}
}

func TestDecodePaddleInvalidPayload(t *testing.T) {
	t.Parallel()

	for _, payload := range []string{
		`not json`,
		`{"event_type":"transaction.completed","data":"oops"}`,
		`{"event_type":"transaction.completed","data":{"details":{"totals":{"grand_total":"12.50"}}}}`,
	} {
		_, err := decodePaddleEvent([]byte(payload))
		assert.ErrorIs(t, err, ErrInvalidPayload, payload)
	}
}

func TestNewPaddleProviderConfig(t *testing.T) {
	t.Parallel()

	_, err := NewPaddleProvider(PaddleConfig{WebhookSecret: "s"})
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = NewPaddleProvider(PaddleConfig{APIKey: "k"})
	assert.ErrorIs(t, err, ErrMissingWebhookSecret)

	_, err = NewPaddleProvider(PaddleConfig{APIKey: "k", WebhookSecret: "s", Environment: "staging"})
	assert.ErrorIs(t, err, ErrInvalidEnvironment)

	p, err := NewPaddleProvider(PaddleConfig{APIKey: "k", WebhookSecret: "s", Environment: "sandbox"})
	require.NoError(t, err)
	assert.NotNil(t, p)
}
