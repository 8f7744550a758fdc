package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"agentrelay/internal/auth"
	"agentrelay/internal/config"
	"agentrelay/internal/db"
	"agentrelay/internal/httpapi"
	"agentrelay/internal/llm"
	"agentrelay/internal/mailer"
	"agentrelay/internal/relay"
	"agentrelay/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	pool, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	st := store.New(pool)
	if err := bootstrapAdmin(context.Background(), st, cfg); err != nil {
		log.Fatalf("admin bootstrap: %v", err)
	}

	openai := llm.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
	providers := llm.NewRegistry(openai)
	providers.Register("openai", openai)

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpapi.NewRouter(httpapi.Deps{
			Store:  st,
			Tokens: auth.NewTokens(cfg.JWTSecret),
			Relay: relay.New(st, providers, relay.Options{
				HistoryLimit: cfg.ChatHistoryLimit,
				ToolTimeout:  time.Duration(cfg.ToolCallTimeoutSeconds) * time.Second,
			}),
			Mailer: mailer.NewSMTP(mailer.Config{
				Host:     cfg.MailServer,
				Port:     cfg.MailPort,
				UseTLS:   cfg.MailUseTLS,
				Username: cfg.MailUsername,
				Password: cfg.MailPassword,
				From:     cfg.MailDefaultSender,
			}),
			FrontendBaseURL:    cfg.FrontendBaseURL,
			CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("api listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

// bootstrapAdmin creates the "admin" account from configuration when no admin exists yet.
func bootstrapAdmin(ctx context.Context, st *store.Store, cfg config.Config) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	exists, err := st.AnyAdmin(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	hash, err := auth.HashPassword(cfg.DefaultAdminPassword)
	if err != nil {
		return err
	}
	_, err = st.CreateUser(ctx, store.User{
		Username:     "admin",
		Email:        cfg.DefaultAdminEmail,
		PasswordHash: hash,
		IsActive:     true,
		IsAdmin:      true,
	})
	if errors.Is(err, store.ErrConflict) {
		log.Printf("admin bootstrap skipped: username or email %s already taken", cfg.DefaultAdminEmail)
		return nil
	}
	if err != nil {
		return err
	}
	log.Printf("created default admin %s", cfg.DefaultAdminEmail)
	return nil
}
