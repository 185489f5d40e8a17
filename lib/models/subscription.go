package models

import "gorm.io/gorm"

// PushSubscription is one browser/device endpoint registered for web push.
// The endpoint is the natural key: re-subscribing the same endpoint replaces
// the existing row. Rows are deactivated instead of deleted so an expired
// endpoint cannot race a re-subscription back into existence.
type PushSubscription struct {
	gorm.Model
	UserID          *uint  `gorm:"index"` // nil for guest subscriptions
	Endpoint        string `gorm:"uniqueIndex"`
	P256dh          string
	Auth            string
	ContentEncoding string
	Preferences     PreferenceMap `gorm:"serializer:json"`
	Browser         string
	DeviceType      string
	Active          bool `gorm:"index"`
}

type PushSubscriptions []PushSubscription

// PreferenceMap maps a notification category to whether the subscriber wants
// pushes for it.
type PreferenceMap map[string]bool

func DefaultPreferences() PreferenceMap {
	return PreferenceMap{
		"bookings":   true,
		"messages":   true,
		"promotions": true,
		"updates":    false,
		"reminders":  true,
	}
}

// Allows reports whether notifications gated by the given preference key may
// be sent to this subscriber. The empty key and keys absent from the stored
// map fail open.
func (p PreferenceMap) Allows(key string) bool {
	if key == "" {
		return true
	}
	enabled, ok := p[key]
	if !ok {
		return true
	}
	return enabled
}
