// Copyright (c) 2025 Johndevils
// Licensed under the PolyForm Noncommercial License 1.0.0
// This software is restricted to non-commercial use only.

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Johndevils/Arsynox-streaming/internal/api/problem"
	"github.com/Johndevils/Arsynox-streaming/internal/headless"
	"github.com/Johndevils/Arsynox-streaming/internal/log"
	"github.com/Johndevils/Arsynox-streaming/internal/metrics"
	"github.com/Johndevils/Arsynox-streaming/internal/normalize"
	"github.com/Johndevils/Arsynox-streaming/internal/relay"
)

const maxBodyBytes = 16 << 10

var _ ServerInterface = (*Server)(nil)

// Normalize implements GET /api/normalize.
func (s *Server) Normalize(w http.ResponseWriter, r *http.Request, params NormalizeParams) {
	if normalize.TrimInvisible(params.Url) == "" {
		problem.BadRequest(w, r, "URL_REQUIRED", "query parameter url is required")
		return
	}
	res := s.normalizer.Normalize(params.Url)
	metrics.RecordClassification(string(res.Type), res.Degraded)

	writeJSON(w, http.StatusOK, NormalizeResponse{
		Input:     res.Input,
		Url:       res.URL,
		Type:      string(res.Type),
		Hls:       res.IsHLS(),
		Rewritten: res.Rewritten,
		Resolved:  res.Resolved,
		Degraded:  res.Degraded,
	})
}

// SubmitStream implements POST /api/stream.
func (s *Server) SubmitStream(w http.ResponseWriter, r *http.Request) {
	var req SubmitStreamJSONRequestBody
	if !decodeBody(w, r, &req) {
		return
	}
	if normalize.TrimInvisible(req.Url) == "" {
		problem.BadRequest(w, r, "URL_REQUIRED", "url is required")
		return
	}

	res := s.normalizer.Normalize(req.Url)
	ev := relay.Event{
		ID:        uuid.NewString(),
		URL:       res.URL,
		Type:      string(res.Type),
		Timestamp: time.Now().UTC(),
		Source:    SourceWeb,
	}
	if req.Type != nil && *req.Type != "" {
		ev.Type = *req.Type
	}
	if req.Timestamp != nil && *req.Timestamp != "" {
		ts, err := time.Parse(time.RFC3339, *req.Timestamp)
		if err != nil {
			problem.BadRequest(w, r, "INVALID_TIMESTAMP", "timestamp must be RFC 3339")
			return
		}
		ev.Timestamp = ts.UTC()
	}

	logger := log.WithComponentFromContext(r.Context(), "api")
	ctx, cancel := context.WithTimeout(r.Context(), s.GetConfig().Relay.AckTimeout)
	defer cancel()

	resp := StreamResponse{Id: ev.ID, Url: ev.URL, Type: ev.Type}
	outcome, err := relay.OutcomeDisabled, error(nil)
	if s.relay != nil {
		outcome, err = s.relay.Deliver(ctx, ev)
	}
	switch {
	case err != nil:
		// Still queued; the dispatcher logs the final outcome.
		resp.Status = StreamResponseStatusPending
		logger.Info().
			Str(log.FieldEvent, "stream.ack_pending").
			Str(log.FieldEventID, ev.ID).
			Msg("relay did not answer within ack timeout")
		writeJSON(w, http.StatusAccepted, resp)
	default:
		resp.Success = outcome.Success()
		resp.Status = StreamResponseStatus(outcome)
		writeJSON(w, http.StatusOK, resp)
	}
}

// ProbeStream implements POST /api/probe.
func (s *Server) ProbeStream(w http.ResponseWriter, r *http.Request) {
	if s.prober == nil {
		problem.Write(w, r, http.StatusServiceUnavailable, problem.TypeUnavailable, "Service Unavailable", "PROBE_DISABLED", "playback probing is disabled", nil)
		return
	}
	var req ProbeStreamJSONRequestBody
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := s.prober.Probe(r.Context(), req.Url)
	if errors.Is(err, headless.ErrEmptyInput) {
		problem.BadRequest(w, r, "URL_REQUIRED", "url is required")
		return
	}
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Internal Server Error", "PROBE_FAILED", err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, probeResult(res))
}

func probeResult(res headless.Result) ProbeResult {
	out := ProbeResult{
		Input:     res.Input,
		Url:       res.URL,
		Type:      string(res.Type),
		Outcome:   ProbeResultOutcome(res.Outcome),
		State:     string(res.State),
		ElapsedMs: res.ElapsedMS,
		Engine:    optional(string(res.Engine)),
		Error:     optional(res.Error),
		Reason:    optional(res.Reason),
	}
	if m := res.Media; m != nil {
		out.Media = &ProbeMedia{
			Status:      m.Status,
			ContentType: optional(m.ContentType),
			Length:      m.Length,
			BytesRead:   m.BytesRead,
		}
	}
	if h := res.HLS; h != nil {
		out.Hls = &ProbeHLS{
			Variants:       h.Variants,
			Segments:       h.Segments,
			TargetDuration: h.TargetDuration,
			Live:           h.Live,
		}
	}
	return out
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			problem.Write(w, r, http.StatusRequestEntityTooLarge, problem.TypeBadRequest, "Request Entity Too Large", "BODY_TOO_LARGE", "", nil)
		case errors.Is(err, io.EOF):
			problem.BadRequest(w, r, "EMPTY_BODY", "request body is required")
		default:
			problem.BadRequest(w, r, "INVALID_JSON", "request body is not valid JSON")
		}
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.L().Error().Err(err).Str(log.FieldEvent, "api.encode_failed").Msg("failed to encode response")
	}
}
