package lib

import (
	"context"

	"github.com/soireehq/beacon/config"
	"github.com/soireehq/beacon/lib/models"
	"github.com/soireehq/beacon/messenger"
	"github.com/soireehq/beacon/push"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	cfg       *config.Config
	log       *zap.Logger
	db        *gorm.DB
	messenger messenger.Messenger

	*subscriptions
	*dispatcher
}

func NewService(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, db *gorm.DB, m messenger.Messenger, transport push.Transport) *Service {
	subs := &subscriptions{cfg, log, db}
	return &Service{
		cfg, log, db, m,
		subs,
		&dispatcher{cfg, log, subs, transport},
	}
}

func (svc *Service) Messenger() messenger.Messenger {
	return svc.messenger
}

func (svc *Service) BroadcastMessage(ctx context.Context, msg *models.Message) {
	svc.messenger.BroadcastMessage(ctx, msg)
}

func (svc *Service) BroadcastTyping(ctx context.Context, conversationID, userID uint, userName string, isTyping bool) {
	svc.messenger.BroadcastTyping(ctx, conversationID, userID, userName, isTyping)
}

func (svc *Service) BroadcastRead(ctx context.Context, msg *models.Message, readerType string) {
	svc.messenger.BroadcastRead(ctx, msg, readerType)
}

func (svc *Service) BroadcastPresence(ctx context.Context, userID uint, isOnline bool) {
	svc.messenger.BroadcastPresence(ctx, userID, isOnline)
}
