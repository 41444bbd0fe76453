// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/oasdiff/yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHolder(t *testing.T, body string) (*ConfigHolder, string) {
	t.Helper()
	path := writeConfig(t, body)
	loader := NewLoader(path, "v-test")
	cfg, err := loader.Load()
	require.NoError(t, err)
	return NewConfigHolder(cfg, loader), path
}

func TestConfigHolder_Reload(t *testing.T) {
	h, path := newHolder(t, "logLevel: info\n")
	ch := make(chan AppConfig, 1)
	h.RegisterListener(ch)

	require.NoError(t, os.WriteFile(path, []byte("logLevel: debug\nplayer:\n  autoSubmitDelay: 2s\n"), 0o600))
	require.NoError(t, h.Reload(context.Background()))

	got := h.Get()
	assert.Equal(t, "debug", got.LogLevel)
	assert.Equal(t, 2*time.Second, got.Player.AutoSubmitDelay)

	select {
	case n := <-ch:
		assert.Equal(t, "debug", n.LogLevel)
	default:
		t.Fatal("listener was not notified")
	}
}

func writeConfigMap(t *testing.T, path string, cfg map[string]interface{}) {
	t.Helper()
	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))
}

func TestConfigHolder_ReloadNestedSections(t *testing.T) {
	h, path := newHolder(t, "logLevel: info\n")

	writeConfigMap(t, path, map[string]interface{}{
		"logLevel": "warn",
		"player": map[string]interface{}{
			"autoSubmitDelay": "750ms",
			"idleTimeout":     "5s",
		},
		"proxy": map[string]interface{}{
			"allowHosts": []string{"cdn.example.com"},
		},
	})
	require.NoError(t, h.Reload(context.Background()))

	got := h.Get()
	assert.Equal(t, "warn", got.LogLevel)
	assert.Equal(t, 750*time.Millisecond, got.Player.AutoSubmitDelay)
	assert.Equal(t, 5*time.Second, got.Player.IdleTimeout)
	assert.Equal(t, []string{"cdn.example.com"}, got.Proxy.AllowHosts)
}

func TestConfigHolder_ReloadKeepsOldOnError(t *testing.T) {
	h, path := newHolder(t, "logLevel: info\n")
	ch := make(chan AppConfig, 1)
	h.RegisterListener(ch)

	require.NoError(t, os.WriteFile(path, []byte("logLevel: loud\n"), 0o600))
	require.Error(t, h.Reload(context.Background()))
	assert.Equal(t, "info", h.Get().LogLevel)
	assert.Empty(t, ch)
}

func TestConfigHolder_FullListenerDoesNotBlock(t *testing.T) {
	h, _ := newHolder(t, "logLevel: info\n")
	ch := make(chan AppConfig) // unbuffered, nobody reading
	h.RegisterListener(ch)

	done := make(chan struct{})
	go func() {
		_ = h.Reload(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reload blocked on listener")
	}
}

func TestConfigHolder_WatcherReloadsOnWrite(t *testing.T) {
	h, path := newHolder(t, "logLevel: info\n")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, h.StartWatcher(ctx))
	defer h.Stop()

	require.NoError(t, os.WriteFile(path, []byte("logLevel: warn\n"), 0o600))
	require.Eventually(t, func() bool {
		return h.Get().LogLevel == "warn"
	}, 5*time.Second, 50*time.Millisecond)
}

func TestConfigHolder_WatcherWithoutFile(t *testing.T) {
	cfg, err := NewLoader("", "").Load()
	require.NoError(t, err)
	h := NewConfigHolder(cfg, NewLoader("", ""))
	assert.NoError(t, h.StartWatcher(context.Background()))
	h.Stop()
}
