// SPDX-License-Identifier: MIT

package validate

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_URL(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		schemes []string
		wantErr bool
	}{
		{"valid https", "https://api.telegram.org", []string{"http", "https"}, false},
		{"any scheme", "redis://localhost:6379", nil, false},
		{"empty", "", nil, true},
		{"no host", "https:///path", nil, true},
		{"bad scheme", "ftp://example.com", []string{"http", "https"}, true},
		{"unparseable", "http://[::1", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.URL("field", tt.value, tt.schemes)
			assert.Equal(t, tt.wantErr, !v.IsValid(), v.Errors())
		})
	}
}

func TestValidator_OptionalURL(t *testing.T) {
	v := New()
	v.OptionalURL("relay.playerBase", "", []string{"https"})
	assert.True(t, v.IsValid())
	v.OptionalURL("relay.playerBase", "not a url", []string{"https"})
	assert.False(t, v.IsValid())
}

func TestValidator_ListenAddr(t *testing.T) {
	for addr, ok := range map[string]bool{
		":8080":          true,
		"127.0.0.1:9090": true,
		"[::]:80":        true,
		"8080":           false,
		"localhost:":     false,
	} {
		v := New()
		v.ListenAddr("server.listenAddr", addr)
		assert.Equal(t, ok, v.IsValid(), addr)
	}
}

func TestValidator_Numbers(t *testing.T) {
	v := New()
	v.Port("p", 0)
	v.Port("p", 65535)
	v.Range("r", 11, 0, 10)
	v.Positive("pos", 0)
	v.NonNegative("nn", -1)
	v.NonNegative("nn", 0)
	v.PositiveDuration("d", 0)
	v.PositiveDuration("d", time.Second)
	v.FloatRange("f", 1.5, 0, 1)

	fields := make([]string, 0, len(v.Errors()))
	for _, e := range v.Errors() {
		fields = append(fields, e.Field)
	}
	assert.Equal(t, []string{"p", "r", "pos", "nn", "d", "f"}, fields)
}

func TestValidator_NotEmptyAndOneOf(t *testing.T) {
	v := New()
	v.NotEmpty("a", "  ")
	v.OneOf("b", "grpc", []string{"grpc", "http"})
	v.OneOf("c", "udp", []string{"grpc", "http"})
	require.Len(t, v.Errors(), 2)
	assert.Equal(t, "a", v.Errors()[0].Field)
	assert.Contains(t, v.Errors()[1].Message, `got "udp"`)
}

func TestValidator_CIDRList(t *testing.T) {
	tests := []struct {
		name    string
		entries []string
		errs    int
	}{
		{"valid", []string{"10.0.0.0/8", "192.168.1.10", "::1", " "}, 0},
		{"trust all v4", []string{"0.0.0.0/0"}, 1},
		{"trust all v6", []string{"::/0"}, 1},
		{"unspecified", []string{"0.0.0.0"}, 1},
		{"garbage", []string{"not-an-ip", "10.0.0.0/33"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.CIDRList("proxy.allowCIDRs", tt.entries)
			assert.Len(t, v.Errors(), tt.errs)
		})
	}
}

func TestValidator_Custom(t *testing.T) {
	v := New()
	v.Custom("x", 3, func(any) error { return errors.New("odd") })
	v.Custom("y", 4, func(any) error { return nil })
	require.Len(t, v.Errors(), 1)
	assert.Equal(t, "validation failed for x: odd", v.Errors()[0].Error())
}

func TestValidator_Err(t *testing.T) {
	v := New()
	require.NoError(t, v.Err())

	v.AddError("a", "first", nil)
	v.AddError("b", "second", nil)
	err := v.Err()
	require.Error(t, err)

	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors(), 2)
	assert.Equal(t, "validation failed for a: first; validation failed for b: second", err.Error())

	// Later additions do not leak into an already returned error.
	v.AddError("c", "third", nil)
	assert.Len(t, ve.Errors(), 2)
}

func TestParseLogLevel(t *testing.T) {
	for _, s := range LogLevels {
		lvl, err := ParseLogLevel(s)
		require.NoError(t, err)
		assert.Equal(t, s, lvl.String())
	}
	_, err := ParseLogLevel("trace")
	assert.ErrorIs(t, err, ErrInvalidLogLevel)
}
