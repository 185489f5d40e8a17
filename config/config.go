package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Config struct {
	Env            string `env:"ENVIRONMENT"`
	ServerPort     int    `env:"SERVER_PORT" envDefault:"8080"`
	BasicAuthCreds string `env:"BASIC_AUTH_CREDS"`

	Broadcast struct {
		// Driver selects the realtime messenger: supabase, reverb, pusher.
		// Anything else disables realtime fan-out.
		Driver string `env:"BROADCAST_DRIVER" envDefault:"null"`
	}
	Supabase struct {
		URL         string `env:"SUPABASE_URL"`
		ServiceKey  string `env:"SUPABASE_SERVICE_KEY"`
		TimeoutSecs int    `env:"SUPABASE_TIMEOUT_SECS" envDefault:"5"`
	}
	Reverb struct {
		RedisAddr string `env:"REVERB_REDIS_ADDR"`
	}
	VAPID struct {
		PublicKey  string `env:"VAPID_PUBLIC_KEY"`
		PrivateKey string `env:"VAPID_PRIVATE_KEY"`
		Subscriber string `env:"VAPID_SUBSCRIBER" envDefault:"mailto:support@soireehq.com"`
	}
	Typing struct {
		// Contract values surfaced to messaging clients; the server does not
		// enforce them.
		TimeoutSecs  int `env:"TYPING_TIMEOUT_SECS" envDefault:"5"`
		ThrottleSecs int `env:"TYPING_THROTTLE_SECS" envDefault:"1"`
	}
	FileUpload struct {
		// Consumed by the attachment-handling collaborator; surfaced to
		// messaging clients via /api/realtime/config.
		MaxSizeKB    int      `env:"FILE_UPLOAD_MAX_SIZE_KB" envDefault:"10240"`
		AllowedTypes []string `env:"FILE_UPLOAD_ALLOWED_TYPES" envDefault:"image/jpeg,image/png,image/webp,application/pdf"`
		Disk         string   `env:"FILE_UPLOAD_DISK" envDefault:"local"`
		Path         string   `env:"FILE_UPLOAD_PATH" envDefault:"attachments"`
	}

	log   *zap.Logger
	creds map[string]string
}

func NewConfig(lc fx.Lifecycle, log *zap.Logger) *Config {
	cfg := &Config{log: log}
	if err := env.Parse(cfg); err != nil {
		log.Sugar().Panicf("failed to parse config from environment: %v", err)
	}

	creds, err := cfg.parseCreds()
	if err != nil {
		switch {
		case cfg.BasicAuthCreds == "":
			cfg.log.Sugar().Info("Auth is disabled since no credentials are defined")
		case cfg.Env == "development":
			cfg.log.Sugar().Infof("%s (credentials will be set to default in development env)", err)
			creds = map[string]string{"admin": "password"}
		default:
			cfg.log.Sugar().Panic(err)
		}
	}
	cfg.creds = creds

	return cfg
}

func (cfg *Config) GetCreds() map[string]string {
	return cfg.creds
}

func (cfg *Config) parseCreds() (map[string]string, error) {
	if cfg.BasicAuthCreds == "" {
		return nil, errors.New("BASIC_AUTH_CREDS envvar must be populated")
	}

	creds := strings.Split(cfg.BasicAuthCreds, ",")
	if len(creds) == 0 {
		return nil, errors.New("BASIC_AUTH_CREDS envvar should be filled with comma-separated values -- user1:pass1,user2:pass2")
	}

	result := make(map[string]string)
	for _, cred := range creds {
		userPass := strings.Split(cred, ":")
		if len(userPass) != 2 {
			return nil, fmt.Errorf("failed to parse '%s', each credential should be delimited by a colon -- user1:pass1,user2:pass2", cred)
		}

		user, pass := userPass[0], userPass[1]
		result[strings.Trim(user, " ")] = strings.Trim(pass, " ")
	}

	return result, nil
}
