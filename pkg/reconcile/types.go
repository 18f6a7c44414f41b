package reconcile

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/resumekit/pkg/tier"
)

// EventType is the normalized subscription lifecycle event type.
type EventType string

const (
	EventCheckoutCompleted       EventType = "checkout_completed"
	EventSubscriptionCreated     EventType = "subscription_created"
	EventSubscriptionUpdated     EventType = "subscription_updated"
	EventSubscriptionDeleted     EventType = "subscription_deleted"
	EventInvoicePaymentSucceeded EventType = "invoice_payment_succeeded"
	EventPaymentSucceeded        EventType = "payment_succeeded"
)

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	switch t {
	case EventCheckoutCompleted, EventSubscriptionCreated, EventSubscriptionUpdated,
		EventSubscriptionDeleted, EventInvoicePaymentSucceeded, EventPaymentSucceeded:
		return true
	}
	return false
}

// Event is a processor event reduced to the fields the reconciler needs.
// Signature verification and payload parsing happen before it is built.
type Event struct {
	ExternalEventID string    `json:"external_event_id"`
	Provider        string    `json:"provider"`
	Type            EventType `json:"type"`
	// SubjectID is the external subscription id.
	SubjectID  string    `json:"subject_id,omitempty"`
	CustomerID string    `json:"customer_id,omitempty"`
	UserID     uuid.UUID `json:"user_id"` // uuid.Nil when the payload carries no user reference
	PriceID    string    `json:"price_id,omitempty"`
	// Status is the processor-reported subscription status, e.g. "active".
	Status           string      `json:"status,omitempty"`
	CurrentPeriodEnd *time.Time  `json:"current_period_end,omitempty"`
	Amount           *tier.Money `json:"amount,omitempty"`
	CouponCode       string      `json:"coupon_code,omitempty"`
	OccurredAt       time.Time   `json:"occurred_at"`

	// Payload is the raw processor payload, stored for audit.
	Payload json.RawMessage `json:"-"`
}

// Validate checks that the event can be recorded and applied.
func (e Event) Validate() error {
	switch {
	case e.ExternalEventID == "":
		return ErrMissingEventID
	case !e.Type.Valid():
		return ErrUnknownEventType
	case e.Type == EventSubscriptionUpdated && e.Status == "":
		return ErrMissingStatus
	}
	return nil
}

// Outcome describes what applying an event did.
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeOrphaned  Outcome = "orphaned"
)

// Result is returned by Apply.
type Result struct {
	EventID string    `json:"event_id"`
	Outcome Outcome   `json:"outcome"`
	UserID  uuid.UUID `json:"user_id"`
	// LedgerRecorded is true when this application created a ledger entry.
	LedgerRecorded bool `json:"ledger_recorded"`
}

// Record is a row of the subscription event log.
type Record struct {
	ExternalEventID string
	Provider        string
	EventType       EventType
	SubjectID       string
	Payload         json.RawMessage // raw processor payload
	Normalized      json.RawMessage // Event encoded as JSON, used for replay
	Processed       bool
	Outcome         Outcome
	Attempts        int
	LastError       string
	ReceivedAt      time.Time
	ProcessedAt     *time.Time
}

// Event decodes the normalized event stored with the record.
func (r Record) Event() (Event, error) {
	var ev Event
	if err := json.Unmarshal(r.Normalized, &ev); err != nil {
		return Event{}, err
	}
	ev.Payload = r.Payload
	return ev, nil
}

// LedgerEntry is a payment ledger row. At most one exists per event id.
type LedgerEntry struct {
	ExternalEventID    string     `json:"external_event_id"`
	UserID             uuid.UUID  `json:"user_id"`
	Amount             tier.Money `json:"amount"`
	ExternalCustomerID string     `json:"external_customer_id,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// UserRef identifies the user an event belongs to. Lookups try UserID, then
// SubscriptionID, then CustomerID.
type UserRef struct {
	UserID         uuid.UUID
	SubscriptionID string
	CustomerID     string
}

// Empty reports whether the reference carries no key at all.
func (r UserRef) Empty() bool {
	return r.UserID == uuid.Nil && r.SubscriptionID == "" && r.CustomerID == ""
}

func refOf(ev Event) UserRef {
	return UserRef{UserID: ev.UserID, SubscriptionID: ev.SubjectID, CustomerID: ev.CustomerID}
}
