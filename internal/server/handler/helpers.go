// Package handler contains the HTTP handlers for the marketd API.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/openmint/marketd/internal/txerror"
)

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeClassified maps a classified transaction failure to an HTTP response
// carrying the category alongside the user-facing message. Wallet rejections
// and balance problems are the caller's fault; everything else is reported
// as an upstream failure.
func writeClassified(w http.ResponseWriter, c txerror.Classified) {
	status := http.StatusBadGateway
	switch c.Category {
	case txerror.UserRejected, txerror.InsufficientFunds,
		txerror.MetadataFrozen, txerror.NotTokenOwner:
		status = http.StatusUnprocessableEntity
	case txerror.NetworkError:
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, map[string]string{
		"error":    c.Message,
		"category": string(c.Category),
	})
}

// writeTxError inspects a service-layer failure: classified on-chain errors
// get category-aware responses, anything else becomes a plain error with the
// given status.
func writeTxError(w http.ResponseWriter, err error, fallbackStatus int) {
	var c txerror.Classified
	if errors.As(err, &c) {
		writeClassified(w, c)
		return
	}
	writeError(w, fallbackStatus, err.Error())
}

// parseLimit extracts a "limit" query parameter with a default and cap.
func parseLimit(r *http.Request, def, max int) int {
	limit := def
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > max {
		limit = max
	}
	return limit
}

// parseOffset extracts an "offset" query parameter, defaulting to zero.
func parseOffset(r *http.Request) int {
	offset := 0
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return offset
}

// pathParam extracts a named path parameter from the request using Go 1.22+
// built-in routing (http.Request.PathValue).
func pathParam(r *http.Request, name string) string {
	return r.PathValue(name)
}
