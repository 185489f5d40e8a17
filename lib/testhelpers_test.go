package lib

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/soireehq/beacon/config"
	"github.com/soireehq/beacon/lib/models"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.PushSubscription{}))
	return db
}

func newStore(t *testing.T) *subscriptions {
	t.Helper()
	return &subscriptions{&config.Config{}, zap.NewNop(), newTestDB(t)}
}

func seedSubscription(t *testing.T, store *subscriptions, userID *uint, endpoint string, prefs models.PreferenceMap) *models.PushSubscription {
	t.Helper()

	sub, err := store.Upsert(context.Background(), SubscribeInput{
		UserID:      userID,
		Endpoint:    endpoint,
		P256dh:      "p256dh-key",
		Auth:        "auth-secret",
		Preferences: prefs,
		UserAgent:   "Mozilla/5.0 Chrome/120.0",
	})
	require.NoError(t, err)
	return sub
}

func uintPtr(v uint) *uint { return &v }
