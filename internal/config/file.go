// Copyright (c) 2025 Johndevils
// Licensed under the PolyForm Noncommercial License 1.0.0
// This software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"os"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

const redacted = "***"

// Redacted returns a copy of cfg with credentials masked, for logs and `config dump`.
func (c AppConfig) Redacted() AppConfig {
	out := c
	if out.Relay.BotToken != "" {
		out.Relay.BotToken = redacted
	}
	if out.Relay.WebhookSecret != "" {
		out.Relay.WebhookSecret = redacted
	}
	if out.Cache.Redis.Password != "" {
		out.Cache.Redis.Password = redacted
	}
	return out
}

// Marshal renders cfg as YAML in the file schema.
func Marshal(cfg AppConfig) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}

// WriteFile atomically writes cfg to path. Existing files are only replaced when
// overwrite is set.
func WriteFile(path string, cfg AppConfig, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
	}
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	// The file may hold the bot token.
	if err := renameio.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
