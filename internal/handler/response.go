package handler

// Response helpers. Every success body carries its status_code field and
// every failure uses the one generic error envelope, so clients parse a
// single shape regardless of endpoint:
//
//	{"status_code": 401, "error": "invalid_grant", "message": "Invalid Token"}
//
// plus any structured details flattened alongside (e.g. expiredAt).

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/auth-service/internal/apperror"
)

// writeJSON sends a JSON response with the given status code.
// Headers and status must go out before the body; once Encode writes,
// header changes are silently ignored.
func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			logger.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps an error to the generic error envelope.
//
// Typed *apperror.Error values render as-is. Anywhere else in the chain —
// a repository failure, a signing failure — becomes a 500 whose body says
// only that something unhandled happened; the cause is logged server-side
// and never serialized to the client.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var apiErr *apperror.Error
	if !errors.As(err, &apiErr) {
		logger.Error("unhandled error", slog.String("error", err.Error()))
		apiErr = apperror.Unhandled(err)
	} else if apiErr.Err != nil {
		// Expected error wrapping an internal cause: log the cause too.
		logger.Error("request failed",
			slog.String("code", apiErr.Code),
			slog.String("error", apiErr.Err.Error()),
		)
	}

	writeJSON(w, logger, apiErr.Status, apiErr.Envelope())
}
