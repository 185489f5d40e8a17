package lib

import (
	"context"

	"github.com/soireehq/beacon/config"
	"github.com/soireehq/beacon/lib/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type subscriptions struct {
	cfg *config.Config
	log *zap.Logger
	db  *gorm.DB
}

type SubscribeInput struct {
	UserID          *uint
	Endpoint        string
	P256dh          string
	Auth            string
	ContentEncoding string
	Preferences     models.PreferenceMap
	UserAgent       string
}

// Upsert registers a push endpoint, replacing the existing row when the
// endpoint was seen before. Always reactivates the subscription.
func (svc *subscriptions) Upsert(ctx context.Context, in SubscribeInput) (*models.PushSubscription, error) {
	prefs := in.Preferences
	if len(prefs) == 0 {
		prefs = models.DefaultPreferences()
	}
	encoding := in.ContentEncoding
	if encoding == "" {
		encoding = "aesgcm"
	}

	sub := &models.PushSubscription{
		UserID:          in.UserID,
		Endpoint:        in.Endpoint,
		P256dh:          in.P256dh,
		Auth:            in.Auth,
		ContentEncoding: encoding,
		Preferences:     prefs,
		Browser:         DetectBrowser(in.UserAgent),
		DeviceType:      DetectDevice(in.UserAgent),
		Active:          true,
	}

	tx := svc.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"user_id", "p256dh", "auth", "content_encoding",
				"preferences", "browser", "device_type", "active", "updated_at",
			}),
		}).
		Create(sub)
	if err := tx.Error; err != nil {
		return nil, err
	}

	if sub.ID == 0 {
		// Conflict path: the driver did not return the existing row id.
		tx = svc.db.WithContext(ctx).Where("endpoint = ?", in.Endpoint).First(sub)
		if err := tx.Error; err != nil {
			return nil, err
		}
	}

	svc.log.Sugar().Infof("Saved push subscription id:%v browser:%s device:%s", sub.ID, sub.Browser, sub.DeviceType)
	return sub, nil
}

// UpdatePreferences applies the given preference map to every active
// subscription owned by userID. A nil userID is a no-op, not an error, so an
// unauthenticated caller's flow is never interrupted.
func (svc *subscriptions) UpdatePreferences(ctx context.Context, userID *uint, prefs models.PreferenceMap) (int64, error) {
	if userID == nil {
		return 0, nil
	}

	tx := svc.db.WithContext(ctx).
		Model(&models.PushSubscription{}).
		Where("user_id = ? AND active = ?", *userID, true).
		Update("preferences", prefs)
	if err := tx.Error; err != nil {
		return 0, err
	}
	return tx.RowsAffected, nil
}

// DeactivateAll flips active=false on every subscription owned by userID.
// Rows are kept: deactivation preserves the audit trail and prevents a
// re-creation race with an in-flight delivery report.
func (svc *subscriptions) DeactivateAll(ctx context.Context, userID *uint) (int64, error) {
	if userID == nil {
		return 0, nil
	}

	tx := svc.db.WithContext(ctx).
		Model(&models.PushSubscription{}).
		Where("user_id = ?", *userID).
		Update("active", false)
	if err := tx.Error; err != nil {
		return 0, err
	}
	return tx.RowsAffected, nil
}

// DeactivateEndpoint marks a single endpoint inactive after the push service
// reported it permanently gone.
func (svc *subscriptions) DeactivateEndpoint(ctx context.Context, endpoint string) error {
	tx := svc.db.WithContext(ctx).
		Model(&models.PushSubscription{}).
		Where("endpoint = ?", endpoint).
		Update("active", false)
	return tx.Error
}

func (svc *subscriptions) ListActive(ctx context.Context, userID uint) (models.PushSubscriptions, error) {
	var subs models.PushSubscriptions
	tx := svc.db.WithContext(ctx).
		Where("user_id = ? AND active = ?", userID, true).
		Find(&subs)
	if err := tx.Error; err != nil {
		return nil, err
	}
	return subs, nil
}
