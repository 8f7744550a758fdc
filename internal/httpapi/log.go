package httpapi

import (
	"context"
	"fmt"
	"log"

	"github.com/go-chi/chi/v5/middleware"
)

func logf(ctx context.Context, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		log.Printf("httpapi: %s (req_id=%s)", msg, reqID)
		return
	}
	log.Printf("httpapi: %s", msg)
}

func logError(ctx context.Context, msg string, err error) {
	if err == nil {
		return
	}
	logf(ctx, "%s: %v", msg, err)
}
