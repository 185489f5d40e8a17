package push

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/soireehq/beacon/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewTransport(lc fx.Lifecycle, log *zap.Logger, cfg *config.Config, rt http.RoundTripper) Transport {
	if cfg.VAPID.PublicKey == "" || cfg.VAPID.PrivateKey == "" {
		log.Sugar().Info("VAPID keys are not configured, push deliveries will fail as transient")
	}
	return &webpushTransport{
		log:    log,
		cfg:    cfg,
		client: &http.Client{Transport: rt, Timeout: 10 * time.Second},
	}
}

type webpushTransport struct {
	log    *zap.Logger
	cfg    *config.Config
	client *http.Client
}

func (t *webpushTransport) Flush(ctx context.Context, batch []Delivery) []Report {
	if len(batch) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	reports := make([]Report, 0, len(batch))

	for _, item := range batch {
		wg.Add(1)
		go func(item Delivery) {
			defer wg.Done()
			report := t.send(ctx, item)

			mu.Lock()
			reports = append(reports, report)
			mu.Unlock()
		}(item)
	}
	wg.Wait()

	return reports
}

func (t *webpushTransport) send(ctx context.Context, item Delivery) Report {
	sub := item.Subscription

	resp, err := webpush.SendNotificationWithContext(ctx, item.Payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys:     webpush.Keys{P256dh: sub.P256dh, Auth: sub.Auth},
	}, &webpush.Options{
		HTTPClient:      t.client,
		Subscriber:      t.cfg.VAPID.Subscriber,
		VAPIDPublicKey:  t.cfg.VAPID.PublicKey,
		VAPIDPrivateKey: t.cfg.VAPID.PrivateKey,
		TTL:             60 * 60 * 24,
	})
	if err != nil {
		return Report{Endpoint: sub.Endpoint, Outcome: TransientFailure, Reason: err.Error()}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		// The push service says this endpoint will never work again.
		return Report{
			Endpoint: sub.Endpoint,
			Outcome:  PermanentFailure,
			Reason:   fmt.Sprintf("subscription expired (status %d)", resp.StatusCode),
		}
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return Report{Endpoint: sub.Endpoint, Outcome: Delivered}
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Report{
			Endpoint: sub.Endpoint,
			Outcome:  TransientFailure,
			Reason:   fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, body),
		}
	}
}
