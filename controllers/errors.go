package controllers

import (
	"errors"
	"log/slog"
	"net/http"

	"Gin_postgres_redis_asset_tracker/app"
	"Gin_postgres_redis_asset_tracker/auth"
	"Gin_postgres_redis_asset_tracker/db"
	"Gin_postgres_redis_asset_tracker/session"

	"github.com/gin-gonic/gin"
)

// statusOf maps domain errors to HTTP status codes.
func statusOf(err error) int {
	var ve *db.ValidationError
	var de *db.InvalidDateError
	switch {
	case errors.As(err, &ve), errors.As(err, &de):
		return http.StatusBadRequest
	case errors.Is(err, db.ErrNotAvailable):
		return http.StatusBadRequest
	case errors.Is(err, db.ErrUnauthenticated),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrNoSession):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "path", c.FullPath(), "err", err)
		c.JSON(status, app.H{"error": "internal error"})
		return
	}
	body := app.H{"error": err.Error()}
	var ve *db.ValidationError
	if errors.As(err, &ve) {
		body["fields"] = ve.Fields
	}
	c.JSON(status, body)
}

// unavailableReason 区分借出失败的两种原因
func unavailableReason(err error) string {
	switch {
	case errors.Is(err, db.ErrAssetNotFound):
		return "not_found"
	case errors.Is(err, db.ErrAlreadyBorrowed):
		return "already_borrowed"
	default:
		return "unknown"
	}
}
