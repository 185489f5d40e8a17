// Package push delivers web-push notifications to subscribed browser
// endpoints. Delivery is at-most-once per flush: transient failures are
// reported but not retried, permanent failures tell the caller the endpoint
// is gone for good.
package push

import (
	"context"

	"github.com/soireehq/beacon/lib/models"
)

type Outcome int

const (
	Delivered Outcome = iota
	TransientFailure
	PermanentFailure
)

// Report is the per-endpoint result of a flush.
type Report struct {
	Endpoint string
	Outcome  Outcome
	Reason   string
}

// Delivery pairs a subscription with the encrypted payload bound for it.
type Delivery struct {
	Subscription *models.PushSubscription
	Payload      []byte
}

// Transport sends a batch of deliveries in one flush. Per-endpoint sends are
// independent; the reports come back in arbitrary order but always carry the
// originating endpoint.
type Transport interface {
	Flush(ctx context.Context, batch []Delivery) []Report
}
