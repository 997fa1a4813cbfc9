package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/egannguyen/go-kafka-ecommerce/marketplace/internal/entity"
)

// statusFor maps a service error to its HTTP status.
func statusFor(err error) int {
	var (
		validation  *entity.ValidationError
		unsupported *entity.UnsupportedActionError
		quantity    *entity.InvalidQuantityError
		notFound    *entity.NotFoundError
		notEligible *entity.NotEligibleError
		persistence *entity.PersistenceError
	)
	switch {
	case errors.As(err, &validation), errors.As(err, &unsupported), errors.As(err, &quantity):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &notEligible):
		return http.StatusConflict
	case errors.As(err, &persistence):
		return http.StatusInsufficientStorage
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("Failed to "+op, "err", err)
		if status == http.StatusInternalServerError {
			c.JSON(status, gin.H{"error": "internal server error"})
			return
		}
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
