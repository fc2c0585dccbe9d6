package config

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config contém as configurações da aplicação
type Config struct {
	TelegramBotToken string
	// TelegramAdminChatID libera /update e /alerts no bot; 0 desliga os comandos de admin
	TelegramAdminChatID int64
	DatabasePath        string
	HTTPAddr            string
	LogLevel            slog.Level

	CheckInterval time.Duration
	BatchSize     int
	BatchDelay    time.Duration

	FetchTimeout       time.Duration
	FetchRetryAttempts uint
	FetchRetryDelay    time.Duration

	RefreshWorkers       int
	RefreshQueueCapacity int

	AlertDedup bool

	// RedisAddr vazio desliga o limitador de taxa
	RedisAddr     string
	RedisPassword string
	RateLimit     float64
	RateBurst     float64
}

var defaults = map[string]any{
	"telegram_bot_token":     "",
	"telegram_admin_chat_id": "",
	"database_path":          "./products.db",
	"http_addr":              ":8080",
	"log_level":              "info",
	"check_interval_minutes": 30,
	"batch_size":             5,
	"batch_delay":            "2s",
	"fetch_timeout":          "15s",
	"fetch_retry_attempts":   2,
	"fetch_retry_delay":      "1s",
	"refresh_workers":        2,
	"refresh_queue_capacity": 100,
	"alert_dedup":            true,
	"redis_addr":             "",
	"redis_password":         "",
	"rate_limit":             1.0,
	"rate_burst":             3.0,
}

// Load carrega as configurações das variáveis de ambiente.
// Valores numéricos inválidos ou fora de faixa voltam ao padrão.
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
		_ = v.BindEnv(key, strings.ToUpper(key))
	}
	v.AutomaticEnv()

	cfg := &Config{
		TelegramBotToken: strings.TrimSpace(v.GetString("telegram_bot_token")),
		DatabasePath:     v.GetString("database_path"),
		HTTPAddr:         v.GetString("http_addr"),
		AlertDedup:       v.GetBool("alert_dedup"),
		RedisAddr:        v.GetString("redis_addr"),
		RedisPassword:    v.GetString("redis_password"),
	}

	if raw := strings.TrimSpace(v.GetString("telegram_admin_chat_id")); raw != "" {
		chatID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("TELEGRAM_ADMIN_CHAT_ID inválido: %w", err)
		}
		cfg.TelegramAdminChatID = chatID
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(v.GetString("log_level"))); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL inválido: %w", err)
	}

	cfg.CheckInterval = time.Duration(positiveInt(v, "check_interval_minutes")) * time.Minute
	cfg.BatchSize = positiveInt(v, "batch_size")
	cfg.BatchDelay = nonNegativeDuration(v, "batch_delay")
	cfg.FetchTimeout = nonNegativeDuration(v, "fetch_timeout")
	cfg.FetchRetryAttempts = uint(positiveInt(v, "fetch_retry_attempts"))
	cfg.FetchRetryDelay = nonNegativeDuration(v, "fetch_retry_delay")
	cfg.RefreshWorkers = positiveInt(v, "refresh_workers")
	cfg.RefreshQueueCapacity = positiveInt(v, "refresh_queue_capacity")
	cfg.RateLimit = positiveFloat(v, "rate_limit")
	cfg.RateBurst = positiveFloat(v, "rate_burst")

	return cfg, nil
}

func positiveInt(v *viper.Viper, key string) int {
	if n := v.GetInt(key); n > 0 {
		return n
	}
	return defaults[key].(int)
}

func positiveFloat(v *viper.Viper, key string) float64 {
	if f := v.GetFloat64(key); f > 0 {
		return f
	}
	return defaults[key].(float64)
}

func nonNegativeDuration(v *viper.Viper, key string) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(v.GetString(key)))
	if err != nil || d < 0 {
		d, _ = time.ParseDuration(defaults[key].(string))
	}
	return d
}
