package main

import (
	"net/http"
	"os"
	"time"

	"github.com/soireehq/beacon/app"
	"github.com/soireehq/beacon/config"
	"github.com/soireehq/beacon/lib"
	"github.com/soireehq/beacon/messenger"
	"github.com/soireehq/beacon/push"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func NewLogger() (*zap.Logger, error) {
	switch os.Getenv("ENVIRONMENT") {
	default:
		return zap.NewDevelopment()

	case "production":
		logCfg := zap.NewProductionConfig()
		logCfg.EncoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			t = t.UTC()
			zapcore.ISO8601TimeEncoder(t, enc)
		}
		return logCfg.Build()
	}
}

func main() {
	fx.New(
		fx.Provide(config.NewConfig),
		fx.Provide(NewLogger),

		fx.Provide(messenger.NewMessenger),
		fx.Provide(push.NewTransport),

		fx.Provide(app.NewDatabase),
		fx.Provide(app.NewTransport),
		fx.Provide(app.NewHub),
		fx.Provide(lib.NewService),
		fx.Provide(app.NewHTTPServer),

		fx.Invoke(func(*http.Server) {}),
	).Run()
}
