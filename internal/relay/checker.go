package relay

import (
	"context"
	"errors"
	"net/http"

	"github.com/Johndevils/Arsynox-streaming/internal/health"
)

// Checker reports relay reachability. A disabled relay is healthy; an unreachable
// bot API only degrades the service since playback never depends on it.
type Checker struct {
	client *Client
	chatID string
}

// NewChecker builds a health checker for client.
func NewChecker(client *Client, chatID string) *Checker {
	return &Checker{client: client, chatID: chatID}
}

func (c *Checker) Name() string { return "relay" }

func (c *Checker) Check(ctx context.Context) health.CheckResult {
	if !c.client.Enabled() || c.chatID == "" {
		return health.CheckResult{Status: health.StatusHealthy, Message: "disabled"}
	}
	u, err := c.client.GetMe(ctx)
	if err != nil {
		res := health.CheckResult{Status: health.StatusDegraded, Error: err.Error()}
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			res.Message = "bot token rejected"
		}
		return res
	}
	return health.CheckResult{Status: health.StatusHealthy, Message: "@" + u.Username}
}
