// Copyright (c) 2025 Johndevils
// Licensed under the PolyForm Noncommercial License 1.0.0
// This software is restricted to non-commercial use only.

package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Johndevils/Arsynox-streaming/internal/app/bootstrap"
	"github.com/Johndevils/Arsynox-streaming/internal/config"
	"github.com/Johndevils/Arsynox-streaming/internal/headless"
	"github.com/Johndevils/Arsynox-streaming/internal/normalize"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	t.Setenv(bootstrap.EnvConfigPath, "")
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestRun_Version(t *testing.T) {
	for _, args := range [][]string{{"version"}, {"--version"}} {
		code, out, _ := runCLI(t, args...)
		assert.Equal(t, 0, code)
		assert.Contains(t, out, "commit")
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	code, _, errOut := runCLI(t, "bogus")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "Unknown command: bogus")
}

func TestConfigValidate(t *testing.T) {
	good := writeConfig(t, "logLevel: debug\n")
	code, out, _ := runCLI(t, "config", "validate", "-f", good)
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "is valid")

	bad := writeConfig(t, "logLevel: loud\n")
	code, _, errOut := runCLI(t, "config", "validate", "--file", bad)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Configuration error")

	code, _, _ = runCLI(t, "config", "validate", "-f", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, 2, code)

	code, _, _ = runCLI(t, "config", "frobnicate")
	assert.Equal(t, 2, code)
}

func TestConfigDump_RedactsSecrets(t *testing.T) {
	path := writeConfig(t, `
relay:
  botToken: "123:super-secret"
  chatID: "-100"
`)
	code, out, errOut := runCLI(t, "config", "dump", "-f", path)
	require.Equal(t, 0, code, errOut)
	assert.NotContains(t, out, "super-secret")
	assert.Contains(t, out, "***")
	assert.Contains(t, out, "chatID: \"-100\"")

	code, out, errOut = runCLI(t, "config", "dump", "-f", path, "--format", "json")
	require.Equal(t, 0, code, errOut)
	var got config.AppConfig
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "***", got.Relay.BotToken)

	code, _, _ = runCLI(t, "config", "dump", "-f", path, "--format", "toml")
	assert.Equal(t, 2, code)
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arsynox.yaml")

	code, out, errOut := runCLI(t, "config", "init", "-f", path)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, path)

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default().Server.ListenAddr, cfg.Server.ListenAddr)

	code, _, errOut = runCLI(t, "config", "init", "-f", path)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "already exists")

	code, _, _ = runCLI(t, "config", "init", "-f", path, "--force")
	assert.Equal(t, 0, code)
}

func TestNormalizeCLI(t *testing.T) {
	code, out, _ := runCLI(t, "normalize", "https%3A%2F%2Fa.example%2Flive.m3u8", "https://a.example/clip.mp4")
	require.Equal(t, 0, code)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], string(normalize.HLS))
	assert.Contains(t, lines[1], "https://a.example/live.m3u8")
	assert.Contains(t, lines[2], string(normalize.MP4))

	code, out, _ = runCLI(t, "normalize", "--json", "https://a.example/live.m3u8")
	require.Equal(t, 0, code)
	var res normalize.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.IsHLS())

	code, _, _ = runCLI(t, "normalize")
	assert.Equal(t, 2, code)
}

func TestHealthcheckCLI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/readyz" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	code, out, _ := runCLI(t, "healthcheck", "--mode", "live", "--addr", srv.URL)
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "successful (live)")

	code, _, errOut := runCLI(t, "healthcheck", "--addr", strings.TrimPrefix(srv.URL, "http://"))
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "503")

	code, _, _ = runCLI(t, "healthcheck", "--mode", "sideways")
	assert.Equal(t, 2, code)
}

func TestProbeCLI(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write(make([]byte, 512))
	}))
	t.Cleanup(upstream.Close)

	path := writeConfig(t, `
proxy:
  allowCIDRs: ["127.0.0.0/8"]
probe:
  timeout: 5s
`)
	code, out, errOut := runCLI(t, "probe", "-f", path, upstream.URL+"/clip.mp4")
	require.Equal(t, 0, code, errOut)
	var res headless.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, headless.OutcomePlaying, res.Outcome)

	code, out, _ = runCLI(t, "probe", "--timeout", "2s", upstream.URL+"/clip.mp4")
	assert.Equal(t, 1, code, "loopback is refused by the default policy")
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, headless.OutcomeError, res.Outcome)

	code, _, _ = runCLI(t, "probe")
	assert.Equal(t, 2, code)
}
