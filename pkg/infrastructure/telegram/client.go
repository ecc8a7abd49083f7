// Package telegram is a minimal Telegram Bot API client covering the
// methods the status bot uses.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/craftwatch/statusbot/pkg/domain/errors"
	"github.com/craftwatch/statusbot/pkg/domain/telegram"
	"github.com/craftwatch/statusbot/pkg/infrastructure/httpclient"
	"github.com/rs/zerolog"
)

const (
	// DefaultBaseURL is the public Bot API endpoint
	DefaultBaseURL = "https://api.telegram.org"

	errDomain = "telegram"
)

// Config configures a Client
type Config struct {
	BaseURL string
	Token   string
	// PollTimeout is the long-poll timeout the HTTP timeout must outlast
	PollTimeout time.Duration
	Logger      zerolog.Logger
	Observer    httpclient.Observer
}

// Client calls the Bot API
type Client struct {
	baseURL string
	http    *httpclient.Client
	logger  zerolog.Logger
}

// NewClient creates a Client
func NewClient(cfg Config) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}

	return &Client{
		baseURL: base + "/bot" + cfg.Token + "/",
		http: httpclient.New(httpclient.Options{
			API:          "telegram",
			Timeout:      cfg.PollTimeout + 15*time.Second,
			RetryMax:     3,
			RetryWaitMin: 500 * time.Millisecond,
			RetryWaitMax: 5 * time.Second,
			UserAgent:    "statusbot",
			Secrets:      []string{cfg.Token},
			Logger:       cfg.Logger,
			Observer:     cfg.Observer,
		}),
		logger: cfg.Logger.With().Str("component", "telegram").Logger(),
	}
}

type getUpdatesRequest struct {
	Offset         int64    `json:"offset,omitempty"`
	Timeout        int      `json:"timeout"`
	AllowedUpdates []string `json:"allowed_updates"`
}

type editMessageTextRequest struct {
	ChatID    int64  `json:"chat_id"`
	MessageID int64  `json:"message_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

type deleteMessageRequest struct {
	ChatID    int64 `json:"chat_id"`
	MessageID int64 `json:"message_id"`
}

// GetMe returns the bot's own user
func (c *Client) GetMe(ctx context.Context) (telegram.User, error) {
	var me telegram.User
	err := c.call(ctx, "getMe", nil, &me)
	return me, err
}

// GetUpdates long-polls for message updates starting at offset. A zero
// offset lets Telegram pick the oldest unconfirmed update.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]telegram.Update, error) {
	var updates []telegram.Update
	err := c.call(ctx, "getUpdates", getUpdatesRequest{
		Offset:         offset,
		Timeout:        int(timeout / time.Second),
		AllowedUpdates: []string{"message"},
	}, &updates)
	return updates, err
}

// SendMessage sends a text message and returns it as stored by Telegram
func (c *Client) SendMessage(ctx context.Context, req telegram.SendMessageRequest) (telegram.Message, error) {
	if req.ParseMode == "" {
		req.ParseMode = telegram.ParseModeMarkdown
	}
	var msg telegram.Message
	err := c.call(ctx, "sendMessage", req, &msg)
	return msg, err
}

// EditMessageText replaces the text of a message the bot sent
func (c *Client) EditMessageText(ctx context.Context, chatID, messageID int64, text string) (telegram.Message, error) {
	var msg telegram.Message
	err := c.call(ctx, "editMessageText", editMessageTextRequest{
		ChatID:    chatID,
		MessageID: messageID,
		Text:      text,
		ParseMode: telegram.ParseModeMarkdown,
	}, &msg)
	return msg, err
}

// DeleteMessage deletes a message
func (c *Client) DeleteMessage(ctx context.Context, chatID, messageID int64) error {
	var ok bool
	return c.call(ctx, "deleteMessage", deleteMessageRequest{ChatID: chatID, MessageID: messageID}, &ok)
}

func (c *Client) call(ctx context.Context, method string, params interface{}, result interface{}) error {
	var body []byte
	contentType := ""
	if params != nil {
		var err error
		body, err = json.Marshal(params)
		if err != nil {
			return errors.New(errors.CodeInternalError, errDomain, fmt.Sprintf("failed to encode %s parameters", method), err)
		}
		contentType = "application/json"
	}

	resp, err := c.http.Do(ctx, method, http.MethodPost, c.baseURL+method, body, contentType)
	if err != nil {
		if ctx.Err() != nil {
			return errors.New(errors.CodeNetworkTimeout, errDomain, fmt.Sprintf("%s cancelled", method), err)
		}
		return errors.New(errors.CodeNetworkError, errDomain, fmt.Sprintf("%s request failed", method), err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.New(errors.CodeNetworkError, errDomain, fmt.Sprintf("failed to read %s response", method), c.http.Redact(err))
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return errors.New(errors.CodeTypeConversionFailed, errDomain,
			fmt.Sprintf("%s returned undecodable body (status %d)", method, resp.StatusCode), err)
	}

	if !env.OK || resp.StatusCode/100 != 2 {
		return env.asError(method, resp.StatusCode)
	}

	if result != nil && len(env.Result) > 0 {
		if err := json.Unmarshal(env.Result, result); err != nil {
			return errors.New(errors.CodeTypeConversionFailed, errDomain, fmt.Sprintf("failed to decode %s result", method), err)
		}
	}

	c.logger.Trace().Str("method", method).Int("status", resp.StatusCode).Msg("Bot API call succeeded")
	return nil
}
