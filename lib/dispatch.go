package lib

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/soireehq/beacon/config"
	"github.com/soireehq/beacon/push"
	"go.uber.org/zap"
)

// categoryPreferences maps a notification's type tag to the preference key
// that gates it. Types absent from this table are always sent: missing
// classification data fails open.
var categoryPreferences = map[string]string{
	"booking":   "bookings",
	"message":   "messages",
	"promotion": "promotions",
	"update":    "updates",
	"reminder":  "reminders",
}

const (
	defaultIcon  = "/images/icons/icon-192x192.png"
	defaultBadge = "/images/icons/badge-72x72.png"
)

type dispatcher struct {
	cfg   *config.Config
	log   *zap.Logger
	store *subscriptions
	push  push.Transport
}

type PushResult struct {
	Endpoint string `json:"endpoint"`
	Success  bool   `json:"success"`
	Reason   string `json:"reason,omitempty"`
}

// SendToUser fans a notification out to every active subscription the user
// owns, honoring per-category preferences. An empty result with a nil error
// means nothing was eligible to send.
func (svc *dispatcher) SendToUser(ctx context.Context, userID uint, title, body string, extra map[string]any) ([]PushResult, error) {
	subs, err := svc.store.ListActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		svc.log.Sugar().Infof("No active push subscriptions for user %d, nothing sent", userID)
		return nil, nil
	}

	raw, err := json.Marshal(buildPayload(title, body, extra))
	if err != nil {
		return nil, err
	}

	prefKey := ""
	if t, ok := extra["type"].(string); ok {
		prefKey = categoryPreferences[t]
	}

	batch := make([]push.Delivery, 0, len(subs))
	for i := range subs {
		sub := &subs[i]
		if !sub.Preferences.Allows(prefKey) {
			continue
		}
		batch = append(batch, push.Delivery{Subscription: sub, Payload: raw})
	}
	if len(batch) == 0 {
		return nil, nil
	}

	reports := svc.push.Flush(ctx, batch)

	results := make([]PushResult, 0, len(reports))
	for _, rep := range reports {
		switch rep.Outcome {
		case push.Delivered:
			results = append(results, PushResult{Endpoint: rep.Endpoint, Success: true})

		case push.PermanentFailure:
			if err := svc.store.DeactivateEndpoint(ctx, rep.Endpoint); err != nil {
				svc.log.Sugar().Errorw("Failed to deactivate expired subscription", "endpoint", rep.Endpoint, "err", err)
			} else {
				svc.log.Sugar().Infow("Deactivated expired subscription", "endpoint", rep.Endpoint)
			}
			results = append(results, PushResult{Endpoint: rep.Endpoint, Success: false, Reason: rep.Reason})

		default:
			results = append(results, PushResult{Endpoint: rep.Endpoint, Success: false, Reason: rep.Reason})
		}
	}
	return results, nil
}

// SendTest runs the regular dispatch flow with a fixed payload so users can
// verify their browser actually receives pushes.
func (svc *dispatcher) SendTest(ctx context.Context, userID uint) ([]PushResult, error) {
	return svc.SendToUser(ctx, userID,
		"Test Notification",
		"Push notifications are working correctly.",
		map[string]any{"type": "test"},
	)
}

func buildPayload(title, body string, extra map[string]any) map[string]any {
	payload := map[string]any{
		"title":     title,
		"body":      body,
		"icon":      defaultIcon,
		"badge":     defaultBadge,
		"tag":       uuid.NewString(),
		"timestamp": time.Now().UTC().UnixMilli(),
	}
	for k, v := range extra {
		payload[k] = v
	}
	return payload
}
