package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string
	HTTPAddr    string
	JWTSecret   string

	OpenAIAPIKey  string
	OpenAIBaseURL string

	MailServer        string
	MailPort          int
	MailUseTLS        bool
	MailUsername      string
	MailPassword      string
	MailDefaultSender string

	DefaultAdminEmail    string
	DefaultAdminPassword string

	FrontendBaseURL    string
	CORSAllowedOrigins []string

	ChatHistoryLimit       int
	ToolCallTimeoutSeconds int
}

func Load() (Config, error) {
	// Optional: load local .env for development. Missing file is fine.
	_ = godotenv.Load()

	historyLimit := getenvIntDefault("CHAT_HISTORY_LIMIT", 20)
	if historyLimit < 1 {
		return Config{}, fmt.Errorf("CHAT_HISTORY_LIMIT must be at least 1, got %d", historyLimit)
	}
	if historyLimit > 200 {
		historyLimit = 200
	}

	toolTimeout := getenvIntDefault("TOOL_CALL_TIMEOUT_SECONDS", 10)
	if toolTimeout < 1 {
		toolTimeout = 1
	}

	cfg := Config{
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		HTTPAddr:    getenvDefault("HTTP_ADDR", ":5000"),
		JWTSecret:   os.Getenv("JWT_SECRET_KEY"),

		OpenAIAPIKey:  strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		OpenAIBaseURL: strings.TrimRight(strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")), "/"),

		MailServer:        getenvDefault("MAIL_SERVER", "smtp.sendgrid.net"),
		MailPort:          getenvIntDefault("MAIL_PORT", 587),
		MailUseTLS:        getenvBoolDefault("MAIL_USE_TLS", true),
		MailUsername:      strings.TrimSpace(os.Getenv("MAIL_USERNAME")),
		MailPassword:      os.Getenv("MAIL_PASSWORD"),
		MailDefaultSender: strings.TrimSpace(os.Getenv("MAIL_DEFAULT_SENDER")),

		DefaultAdminEmail:    strings.ToLower(strings.TrimSpace(os.Getenv("DEFAULT_ADMIN_EMAIL"))),
		DefaultAdminPassword: os.Getenv("DEFAULT_ADMIN_PASSWORD"),

		FrontendBaseURL:    strings.TrimRight(strings.TrimSpace(os.Getenv("FRONTEND_BASE_URL")), "/"),
		CORSAllowedOrigins: getenvCSV("CORS_ALLOWED_ORIGINS"),

		ChatHistoryLimit:       historyLimit,
		ToolCallTimeoutSeconds: toolTimeout,
	}

	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET_KEY is required")
	}
	for _, req := range []struct{ key, val string }{
		{"MAIL_USERNAME", cfg.MailUsername},
		{"MAIL_PASSWORD", cfg.MailPassword},
		{"MAIL_DEFAULT_SENDER", cfg.MailDefaultSender},
		{"DEFAULT_ADMIN_EMAIL", cfg.DefaultAdminEmail},
		{"DEFAULT_ADMIN_PASSWORD", cfg.DefaultAdminPassword},
	} {
		if req.val == "" {
			return Config{}, fmt.Errorf("%s is required", req.key)
		}
	}
	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvIntDefault(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvBoolDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getenvCSV(key string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}

	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	seen := map[string]struct{}{}
	for _, p := range parts {
		p = strings.TrimRight(strings.TrimSpace(p), "/")
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
