package app

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/soireehq/beacon/config"
	"github.com/soireehq/beacon/lib"
	"github.com/soireehq/beacon/lib/models"
	"github.com/soireehq/beacon/messenger"
	"github.com/soireehq/beacon/push"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakePushTransport struct {
	reports map[string]push.Report
}

func (f *fakePushTransport) Flush(ctx context.Context, batch []push.Delivery) []push.Report {
	reports := make([]push.Report, 0, len(batch))
	for _, d := range batch {
		if rep, ok := f.reports[d.Subscription.Endpoint]; ok {
			reports = append(reports, rep)
		} else {
			reports = append(reports, push.Report{Endpoint: d.Subscription.Endpoint, Outcome: push.Delivered})
		}
	}
	return reports
}

type fixture struct {
	handler http.Handler
	db      *gorm.DB
	svc     *lib.Service
	alice   *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	t.Setenv("BASIC_AUTH_CREDS", "alice:secret")
	t.Setenv("VAPID_PUBLIC_KEY", "test-vapid-public-key")

	log := zap.NewNop()
	lc := fxtest.NewLifecycle(t)
	cfg := config.NewConfig(lc, log)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.PushSubscription{}))

	alice := &models.User{Username: "alice", Password: "secret", Role: models.RoleUser}
	require.NoError(t, db.Create(alice).Error)

	m := messenger.NewMessenger(lc, log, cfg, http.DefaultTransport)
	svc := lib.NewService(lc, cfg, log, db, m, &fakePushTransport{reports: map[string]push.Report{}})
	hub := NewHub(lc, log, cfg, svc)

	lc.RequireStart()
	t.Cleanup(lc.RequireStop)

	return &fixture{
		handler: router(cfg, log, db, svc, hub),
		db:      db,
		svc:     svc,
		alice:   alice,
	}
}

func (f *fixture) do(method, path, body string, authed bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0) Chrome/120.0.0.0 Safari/537.36")
	if authed {
		req.SetBasicAuth("alice", "secret")
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

const subscribeBody = `{
	"subscription": {
		"endpoint": "https://push.example/ep-1",
		"keys": {"p256dh": "key", "auth": "secret"}
	}
}`

func TestSubscribeRequiresEndpoint(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/push/subscribe", `{"subscription":{"keys":{"p256dh":"key","auth":"secret"}}}`, false)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestSubscribeAsGuest(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/push/subscribe", subscribeBody, false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success":true`)
	assert.Contains(t, w.Body.String(), `"subscription_id"`)

	var sub models.PushSubscription
	require.NoError(t, f.db.Where("endpoint = ?", "https://push.example/ep-1").First(&sub).Error)
	assert.Nil(t, sub.UserID)
	assert.Equal(t, "chrome", sub.Browser)
	assert.Equal(t, "desktop", sub.DeviceType)
	assert.True(t, sub.Active)
}

func TestSubscribeAuthenticatedOwnsRow(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/push/subscribe", subscribeBody, true)
	require.Equal(t, http.StatusOK, w.Code)

	var sub models.PushSubscription
	require.NoError(t, f.db.Where("endpoint = ?", "https://push.example/ep-1").First(&sub).Error)
	require.NotNil(t, sub.UserID)
	assert.Equal(t, f.alice.ID, *sub.UserID)
}

func TestUpdatePreferencesUnauthenticatedIsNoop(t *testing.T) {
	f := newFixture(t)
	f.do(http.MethodPost, "/api/push/subscribe", subscribeBody, true)

	w := f.do(http.MethodPut, "/api/push/preferences", `{"preferences":{"messages":false}}`, false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success":true`)

	var sub models.PushSubscription
	require.NoError(t, f.db.Where("endpoint = ?", "https://push.example/ep-1").First(&sub).Error)
	assert.True(t, sub.Preferences["messages"])
}

func TestUpdatePreferencesAuthenticated(t *testing.T) {
	f := newFixture(t)
	f.do(http.MethodPost, "/api/push/subscribe", subscribeBody, true)

	w := f.do(http.MethodPut, "/api/push/preferences", `{"preferences":{"messages":false}}`, true)
	require.Equal(t, http.StatusOK, w.Code)

	var sub models.PushSubscription
	require.NoError(t, f.db.Where("endpoint = ?", "https://push.example/ep-1").First(&sub).Error)
	assert.False(t, sub.Preferences["messages"])
}

func TestUnsubscribe(t *testing.T) {
	f := newFixture(t)
	f.do(http.MethodPost, "/api/push/subscribe", subscribeBody, true)

	// Unauthenticated: success response, no mutation.
	w := f.do(http.MethodPost, "/api/push/unsubscribe", "", false)
	require.Equal(t, http.StatusOK, w.Code)

	var sub models.PushSubscription
	require.NoError(t, f.db.Where("endpoint = ?", "https://push.example/ep-1").First(&sub).Error)
	assert.True(t, sub.Active)

	w = f.do(http.MethodPost, "/api/push/unsubscribe", "", true)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, f.db.Where("endpoint = ?", "https://push.example/ep-1").First(&sub).Error)
	assert.False(t, sub.Active)
}

func TestSendTestPush(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/push/test", "", false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(http.MethodPost, "/api/push/test", "", true)
	assert.Equal(t, http.StatusNotFound, w.Code)

	f.do(http.MethodPost, "/api/push/subscribe", subscribeBody, true)
	w = f.do(http.MethodPost, "/api/push/test", "", true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"results"`)
	assert.Contains(t, w.Body.String(), `"success":true`)
}

func TestVapidPublicKey(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/api/push/vapid-public-key", "", false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "test-vapid-public-key")
}

func TestRealtimeConfig(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/api/realtime/config", "", false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"driver":"null"`)
	assert.Contains(t, w.Body.String(), `"configured":false`)
	assert.Contains(t, w.Body.String(), `"timeout_secs":5`)
	assert.Contains(t, w.Body.String(), `"throttle_secs":1`)
}

func TestTypingRequiresAuth(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/conversations/7/typing", `{"is_typing":true}`, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(http.MethodPost, "/api/conversations/7/typing", `{"is_typing":true}`, true)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReadValidatesReaderType(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/conversations/7/read", `{"message_id":11,"reader_type":"admin"}`, true)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = f.do(http.MethodPost, "/api/conversations/7/read", `{"message_id":11,"reader_type":"provider"}`, true)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBroadcastMessage(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/conversations/7/broadcast", `{"id":1,"sender_id":3,"body":"hello"}`, true)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodPost, "/api/conversations/abc/broadcast", `{"id":1}`, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebsocketUnavailableWithoutReverb(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/ws/conversations/7", "", false)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/health", "", false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}
