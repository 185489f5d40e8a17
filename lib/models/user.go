package models

import (
	"database/sql"

	"gorm.io/gorm"
)

const (
	RoleUser     = "user"
	RoleProvider = "provider"
)

type User struct {
	gorm.Model
	Username    string `gorm:"unique"`
	Password    string
	Role        string
	LastLoginAt sql.NullTime

	PushSubscriptions []PushSubscription
}
