package errttp

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/B0TMirage/cryptopulse/pkg/apperr"
)

func SendError(w http.ResponseWriter, statusCode int, errMessage string) {
	SendJSON(w, statusCode, map[string]string{"errors": errMessage})
}

func SendJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// Status maps an error kind to the HTTP status it is reported with. Unknown
// errors are internal.
func Status(err error) int {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, apperr.ErrFeedUnavailable), errors.Is(err, apperr.ErrStorage):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Message is the client-facing text for err. Only caller mistakes are echoed
// verbatim; backend failures get a fixed message so driver text stays in the
// logs.
func Message(err error) string {
	switch {
	case errors.Is(err, apperr.ErrValidation), errors.Is(err, apperr.ErrUnauthorized), errors.Is(err, apperr.ErrConflict):
		return err.Error()
	case errors.Is(err, apperr.ErrRateLimited):
		return "price feed rate limited"
	case errors.Is(err, apperr.ErrFeedUnavailable):
		return "price feed unavailable"
	case errors.Is(err, apperr.ErrStorage):
		return "storage unavailable"
	default:
		return "internal server error"
	}
}

// FromError writes err with its mapped status and message.
func FromError(w http.ResponseWriter, err error) {
	SendError(w, Status(err), Message(err))
}
