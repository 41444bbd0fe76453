// Copyright (c) 2025 Johndevils
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		m := map[string]any{}
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestConfigure_IsReconfigurable(t *testing.T) {
	t.Cleanup(func() { Configure(Config{}) })

	var first, second bytes.Buffer
	Configure(Config{Level: "info", Output: &first, Service: "one"})
	a := WithComponent("a")
	a.Info().Str(FieldEvent, "x").Msg("first")

	Configure(Config{Level: "debug", Output: &second, Service: "two", Version: "1.2.3"})
	b := WithComponent("b")
	b.Debug().Str(FieldEvent, "y").Msg("second")

	l1 := decodeLines(t, &first)
	l2 := decodeLines(t, &second)
	require.Len(t, l1, 1)
	require.Len(t, l2, 1)
	assert.Equal(t, "one", l1[0]["service"])
	assert.Equal(t, "two", l2[0]["service"])
	assert.Equal(t, "1.2.3", l2[0]["version"])
	assert.Equal(t, "b", l2[0][FieldComponent])
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}

func TestConfigure_InvalidLevelFallsBackToInfo(t *testing.T) {
	t.Cleanup(func() { Configure(Config{}) })
	Configure(Config{Level: "loud", Output: &bytes.Buffer{}})
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

func TestDerive(t *testing.T) {
	t.Cleanup(func() { Configure(Config{}) })
	var buf bytes.Buffer
	Configure(Config{Output: &buf})

	l := Derive(func(c *zerolog.Context) {
		*c = c.Str(FieldStreamType, "HLS Stream")
	})
	l.Info().Str(FieldEvent, "derived").Msg("")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "HLS Stream", lines[0][FieldStreamType])
}

func TestMiddleware_LogsRequest(t *testing.T) {
	t.Cleanup(func() { Configure(Config{}) })
	var buf bytes.Buffer
	Configure(Config{Output: &buf})

	h := Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).Info().Str(FieldEvent, "inner").Msg("inside")
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req = req.WithContext(ContextWithRequestID(req.Context(), "req-1"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)

	assert.Equal(t, "inner", lines[0][FieldEvent])
	assert.Equal(t, "req-1", lines[0][FieldRequestID])

	last := lines[1]
	assert.Equal(t, "request.handled", last[FieldEvent])
	assert.Equal(t, "warn", last["level"])
	assert.Equal(t, float64(http.StatusTeapot), last[FieldStatus])
	assert.Equal(t, float64(len("short and stout")), last["bytes"])
	assert.Equal(t, "/api/status", last[FieldPath])
}

func TestSetLevel(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	assert.True(t, SetLevel("warn"))
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
	assert.False(t, SetLevel("loud"))
	assert.False(t, SetLevel(""))
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
}
