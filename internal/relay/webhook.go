package relay

import (
	"crypto/subtle"
	"encoding/json"
	"html"
	"io"
	"net/http"
	"strings"

	"github.com/Johndevils/Arsynox-streaming/internal/api/problem"
	alog "github.com/Johndevils/Arsynox-streaming/internal/log"
	"github.com/Johndevils/Arsynox-streaming/internal/normalize"
)

// HeaderWebhookSecret is set by Telegram on webhook calls when a secret is registered.
const HeaderWebhookSecret = "X-Telegram-Bot-Api-Secret-Token"

const maxUpdateBytes = 256 << 10

const helpText = "Send a stream URL (or <code>/play &lt;url&gt;</code>) and I will reply with " +
	"its canonical form, its type and a player link."

// WebhookConfig configures the chat intake.
type WebhookConfig struct {
	Secret     string
	PlayerBase string
	Normalizer *normalize.Normalizer
}

type update struct {
	UpdateID int64    `json:"update_id"`
	Message  *message `json:"message,omitempty"`
}

type message struct {
	MessageID int64 `json:"message_id"`
	Chat      struct {
		ID int64 `json:"id"`
	} `json:"chat"`
	Text string `json:"text"`
}

// webhookReply uses the bot API's "reply in the webhook response" form, so the
// intake needs no outbound call.
type webhookReply struct {
	Method                string `json:"method"`
	ChatID                int64  `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	ReplyToMessageID      int64  `json:"reply_to_message_id,omitempty"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

// WebhookHandler answers Telegram updates: /start and /help print usage, /play <url>
// or a bare URL reply with the normalised stream.
func WebhookHandler(cfg WebhookConfig) http.Handler {
	n := cfg.Normalizer
	if n == nil {
		n = &normalize.Normalizer{}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := alog.WithComponentFromContext(r.Context(), "relay.webhook")

		if r.Method != http.MethodPost {
			problem.MethodNotAllowed(w, r)
			return
		}
		if cfg.Secret != "" {
			got := r.Header.Get(HeaderWebhookSecret)
			if subtle.ConstantTimeCompare([]byte(got), []byte(cfg.Secret)) != 1 {
				logger.Warn().Str(alog.FieldEvent, "relay.webhook_rejected").Msg("webhook secret mismatch")
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeForbidden, "Unauthorized", "WEBHOOK_SECRET", "", nil)
				return
			}
		}

		var u update
		if err := json.NewDecoder(io.LimitReader(r.Body, maxUpdateBytes)).Decode(&u); err != nil {
			problem.BadRequest(w, r, "INVALID_UPDATE", "update body is not valid JSON")
			return
		}
		if u.Message == nil || strings.TrimSpace(u.Message.Text) == "" {
			w.WriteHeader(http.StatusOK)
			return
		}

		text := replyText(u.Message.Text, n, cfg.PlayerBase)
		logger.Debug().
			Str(alog.FieldEvent, "relay.webhook_update").
			Int64("update_id", u.UpdateID).
			Msg("answered chat update")

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(webhookReply{
			Method:                "sendMessage",
			ChatID:                u.Message.Chat.ID,
			Text:                  text,
			ParseMode:             "HTML",
			ReplyToMessageID:      u.Message.MessageID,
			DisableWebPagePreview: true,
		})
	})
}

func replyText(raw string, n *normalize.Normalizer, playerBase string) string {
	cmd, arg := splitCommand(normalize.TrimInvisible(raw))
	switch cmd {
	case "/start", "/help":
		return helpText
	case "/play":
		if arg == "" {
			return "Usage: <code>/play &lt;url&gt;</code>"
		}
		return describe(n.Normalize(arg), playerBase)
	case "":
		if looksLikeURL(arg) {
			return describe(n.Normalize(arg), playerBase)
		}
	}
	return helpText
}

// splitCommand separates a leading bot command ("/play@bot") from its argument.
// Non-command text comes back as arg with an empty cmd.
func splitCommand(s string) (cmd, arg string) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "/") {
		return "", s
	}
	head, rest, _ := strings.Cut(s, " ")
	if at := strings.IndexByte(head, '@'); at >= 0 {
		head = head[:at]
	}
	return normalize.Token(head), strings.TrimSpace(rest)
}

func looksLikeURL(s string) bool {
	l := strings.ToLower(s)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://") ||
		strings.HasPrefix(l, "http%3a") || strings.HasPrefix(l, "https%3a")
}

func describe(res normalize.Result, playerBase string) string {
	var b strings.Builder
	b.WriteString("<b>Type:</b> ")
	b.WriteString(html.EscapeString(string(res.Type)))
	b.WriteString("\n<b>URL:</b> <code>")
	b.WriteString(html.EscapeString(res.URL))
	b.WriteString("</code>")
	if res.Degraded {
		b.WriteString("\n<i>The input could not be fully decoded; it is passed through as typed.</i>")
	}
	if link := PlayerLink(playerBase, res.URL); link != "" {
		b.WriteString("\n<a href=\"")
		b.WriteString(html.EscapeString(link))
		b.WriteString("\">Open in player</a>")
	}
	return b.String()
}
