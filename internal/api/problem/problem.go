// Package problem writes RFC 7807 problem+json responses.
package problem

import (
	"encoding/json"
	"net/http"

	"github.com/Johndevils/Arsynox-streaming/internal/log"
)

const (
	// HeaderRequestID carries the request correlation ID on requests and responses.
	HeaderRequestID = "X-Request-ID"
	// JSONKeyRequestID is the problem body field holding the request ID.
	JSONKeyRequestID = "requestId"
	// ContentType is the media type of problem responses.
	ContentType = "application/problem+json"
)

// Problem types used across the service.
const (
	TypeBadRequest       = "request/invalid"
	TypeNotFound         = "system/not_found"
	TypeMethodNotAllowed = "request/method_not_allowed"
	TypeForbidden        = "request/forbidden"
	TypeRateLimited      = "request/rate_limited"
	TypeUpstream         = "upstream/unavailable"
	TypeUnavailable      = "system/unavailable"
	TypeInternal         = "system/internal"
)

// Write writes an RFC 7807 problem details response.
//
//   - type: canonical machine identifier (e.g. "system/not_found").
//   - title: short human-readable label.
//   - code: stable machine-readable short code (e.g. "NOT_FOUND").
//   - detail: explanation of this occurrence; omitted when empty.
func Write(w http.ResponseWriter, r *http.Request, status int, problemType, title, code, detail string, extra map[string]any) {
	instance := ""
	reqID := ""
	if r != nil {
		instance = r.URL.EscapedPath()
		reqID = log.RequestIDFromContext(r.Context())
	} else {
		log.L().Error().Str("event", "problem.nil_request").Str("type", problemType).Int("status", status).
			Msg("problem.Write called with nil request")
	}
	if reqID == "" {
		reqID = w.Header().Get(HeaderRequestID)
	}

	res := map[string]any{
		"type":   problemType,
		"title":  title,
		"status": status,
		"code":   code,
	}
	if reqID != "" {
		res[JSONKeyRequestID] = reqID
		w.Header().Set(HeaderRequestID, reqID)
	}
	if detail != "" {
		res["detail"] = detail
	}
	if instance != "" {
		res["instance"] = instance
	}
	for k, v := range extra {
		switch k {
		case "type", "title", "status", "detail", "instance", "code":
			log.L().Warn().Str("event", "problem.reserved_extra").Str("key", k).Str("problem_type", problemType).
				Msg("ignoring reserved key in problem extras")
			continue
		}
		res[k] = v
	}

	w.Header().Set("Content-Type", ContentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(res); err != nil {
		log.L().Error().
			Err(err).
			Str("event", "problem.encode_failed").
			Str("type", problemType).
			Int("status", status).
			Msg("failed to encode problem response")
	}
}

// BadRequest writes a 400 problem.
func BadRequest(w http.ResponseWriter, r *http.Request, code, detail string) {
	Write(w, r, http.StatusBadRequest, TypeBadRequest, "Bad Request", code, detail, nil)
}

// NotFound writes a 404 problem.
func NotFound(w http.ResponseWriter, r *http.Request) {
	Write(w, r, http.StatusNotFound, TypeNotFound, "Not Found", "NOT_FOUND", "", nil)
}

// MethodNotAllowed writes a 405 problem.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	Write(w, r, http.StatusMethodNotAllowed, TypeMethodNotAllowed, "Method Not Allowed", "METHOD_NOT_ALLOWED", "", nil)
}
