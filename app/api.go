package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/soireehq/beacon/config"
	"github.com/soireehq/beacon/lib"
	"github.com/soireehq/beacon/lib/models"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func NewHTTPServer(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, db *gorm.DB, svc *lib.Service, hub *Hub) *http.Server {
	addr := fmt.Sprintf(":%d", cfg.ServerPort)
	srv := &http.Server{Addr: addr, Handler: router(cfg, log, db, svc, hub)}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go srv.ListenAndServe()
			return nil
		},
		OnStop: srv.Shutdown,
	})

	return srv
}

func router(cfg *config.Config, log *zap.Logger, db *gorm.DB, svc *lib.Service, hub *Hub) http.Handler {
	ctrl := &controller{cfg, log, svc}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		r.Use(optionalAuth(cfg, db))

		r.Route("/push", func(r chi.Router) {
			r.Post("/subscribe", ctrl.subscribe)
			r.Put("/preferences", ctrl.updatePreferences)
			r.Post("/unsubscribe", ctrl.unsubscribe)
			r.Post("/test", ctrl.sendTestPush)
			r.Get("/vapid-public-key", ctrl.vapidPublicKey)
		})

		r.Get("/realtime/config", ctrl.realtimeConfig)

		r.Route("/conversations/{conversation_id}", func(r chi.Router) {
			r.Post("/typing", ctrl.typing)
			r.Post("/read", ctrl.read)
			r.Post("/broadcast", ctrl.broadcastMessage)
		})
	})

	r.With(optionalAuth(cfg, db)).Get("/ws/conversations/{conversation_id}", hub.Serve)

	return r
}

type controller struct {
	cfg *config.Config
	log *zap.Logger
	svc *lib.Service
}

func (ctrl *controller) reject(w http.ResponseWriter, status int, err error) {
	if err != nil {
		http.Error(w, err.Error(), status)
	} else {
		w.WriteHeader(status)
	}
}

func (ctrl *controller) resolve(w http.ResponseWriter, status int, body any) {
	if b, err := json.Marshal(body); err != nil {
		ctrl.reject(w, http.StatusInternalServerError, err)
		ctrl.log.Sugar().Error("Request failed", "error", err)
		return
	} else {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if b != nil {
			w.Write(b)
		}
	}
}

type subscribeRequest struct {
	Subscription struct {
		Endpoint string `json:"endpoint"`
		Keys     struct {
			P256dh string `json:"p256dh"`
			Auth   string `json:"auth"`
		} `json:"keys"`
		ContentEncoding string `json:"contentEncoding"`
	} `json:"subscription"`
	Preferences models.PreferenceMap `json:"preferences"`
}

func (ctrl *controller) subscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctrl.reject(w, http.StatusBadRequest, errors.New("Invalid request body"))
		return
	}
	if req.Subscription.Endpoint == "" {
		ctrl.reject(w, http.StatusUnprocessableEntity, errors.New("Subscription endpoint is required"))
		return
	}

	sub, err := ctrl.svc.Upsert(ctx, lib.SubscribeInput{
		UserID:          currentUserID(r),
		Endpoint:        req.Subscription.Endpoint,
		P256dh:          req.Subscription.Keys.P256dh,
		Auth:            req.Subscription.Keys.Auth,
		ContentEncoding: req.Subscription.ContentEncoding,
		Preferences:     req.Preferences,
		UserAgent:       r.UserAgent(),
	})
	if err != nil {
		ctrl.reject(w, http.StatusInternalServerError, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, map[string]any{
		"success":         true,
		"message":         "Push subscription saved",
		"subscription_id": sub.ID,
	})
}

func (ctrl *controller) updatePreferences(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Preferences models.PreferenceMap `json:"preferences"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctrl.reject(w, http.StatusBadRequest, errors.New("Invalid request body"))
		return
	}
	if len(req.Preferences) == 0 {
		ctrl.reject(w, http.StatusUnprocessableEntity, errors.New("Preferences are required"))
		return
	}

	if _, err := ctrl.svc.UpdatePreferences(ctx, currentUserID(r), req.Preferences); err != nil {
		ctrl.reject(w, http.StatusInternalServerError, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Notification preferences updated",
	})
}

func (ctrl *controller) unsubscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, err := ctrl.svc.DeactivateAll(ctx, currentUserID(r)); err != nil {
		ctrl.reject(w, http.StatusInternalServerError, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Unsubscribed from push notifications",
	})
}

func (ctrl *controller) sendTestPush(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user := currentUser(r)
	if user == nil {
		ctrl.reject(w, http.StatusUnauthorized, errors.New("Authentication required"))
		return
	}

	results, err := ctrl.svc.SendTest(ctx, user.ID)
	if err != nil {
		ctrl.reject(w, http.StatusInternalServerError, err)
		return
	}
	if len(results) == 0 {
		ctrl.reject(w, http.StatusNotFound, errors.New("No active push subscriptions"))
		return
	}
	ctrl.resolve(w, http.StatusOK, map[string]any{
		"success": true,
		"results": results,
	})
}

func (ctrl *controller) vapidPublicKey(w http.ResponseWriter, r *http.Request) {
	ctrl.resolve(w, http.StatusOK, map[string]any{
		"key": ctrl.cfg.VAPID.PublicKey,
	})
}

func (ctrl *controller) realtimeConfig(w http.ResponseWriter, r *http.Request) {
	ctrl.resolve(w, http.StatusOK, map[string]any{
		"driver":     ctrl.cfg.Broadcast.Driver,
		"configured": ctrl.svc.Messenger().Configured(),
		"typing": map[string]any{
			"timeout_secs":  ctrl.cfg.Typing.TimeoutSecs,
			"throttle_secs": ctrl.cfg.Typing.ThrottleSecs,
		},
		"attachments": map[string]any{
			"max_size_kb":   ctrl.cfg.FileUpload.MaxSizeKB,
			"allowed_types": ctrl.cfg.FileUpload.AllowedTypes,
		},
	})
}

func (ctrl *controller) typing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user := currentUser(r)
	if user == nil {
		ctrl.reject(w, http.StatusUnauthorized, errors.New("Authentication required"))
		return
	}

	conversationID, err := parseID(chi.URLParam(r, "conversation_id"))
	if err != nil {
		ctrl.reject(w, http.StatusBadRequest, err)
		return
	}

	var req struct {
		IsTyping bool `json:"is_typing"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctrl.reject(w, http.StatusBadRequest, errors.New("Invalid request body"))
		return
	}

	ctrl.svc.BroadcastTyping(ctx, conversationID, user.ID, user.Username, req.IsTyping)
	ctrl.resolve(w, http.StatusOK, map[string]any{"success": true})
}

func (ctrl *controller) read(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	conversationID, err := parseID(chi.URLParam(r, "conversation_id"))
	if err != nil {
		ctrl.reject(w, http.StatusBadRequest, err)
		return
	}

	var req struct {
		MessageID  uint   `json:"message_id"`
		ReaderType string `json:"reader_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctrl.reject(w, http.StatusBadRequest, errors.New("Invalid request body"))
		return
	}
	if !models.ValidReaderType(req.ReaderType) {
		ctrl.reject(w, http.StatusUnprocessableEntity, errors.New("reader_type must be user or provider"))
		return
	}

	msg := &models.Message{ID: req.MessageID, ConversationID: conversationID}
	ctrl.svc.BroadcastRead(ctx, msg, req.ReaderType)
	ctrl.resolve(w, http.StatusOK, map[string]any{"success": true})
}

func (ctrl *controller) broadcastMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	conversationID, err := parseID(chi.URLParam(r, "conversation_id"))
	if err != nil {
		ctrl.reject(w, http.StatusBadRequest, err)
		return
	}

	var msg models.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		ctrl.reject(w, http.StatusBadRequest, errors.New("Invalid request body"))
		return
	}
	msg.ConversationID = conversationID

	ctrl.svc.BroadcastMessage(ctx, &msg)
	ctrl.resolve(w, http.StatusOK, map[string]any{"success": true})
}

func parseID(s string) (uint, error) {
	u, err := strconv.ParseUint(s, 10, 64)
	if err != nil || u == 0 {
		return 0, errors.New("invalid conversation id")
	}
	return uint(u), nil
}
