// Package mcsrvstat looks up Minecraft server status through the public
// api.mcsrvstat.us service.
package mcsrvstat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/craftwatch/statusbot/pkg/domain/errors"
	"github.com/craftwatch/statusbot/pkg/domain/minecraft"
	"github.com/craftwatch/statusbot/pkg/infrastructure/httpclient"
	"github.com/rs/zerolog"
)

const (
	// DefaultBaseURL is the v2 API root
	DefaultBaseURL = "https://api.mcsrvstat.us/2"

	errDomain = "mcsrvstat"

	// responses are small; anything larger is not a status document
	maxBodyBytes = 1 << 20
)

// Config configures a Client
type Config struct {
	BaseURL  string
	Timeout  time.Duration
	Logger   zerolog.Logger
	Observer httpclient.Observer
}

// Client fetches status documents
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
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL: base,
		http: httpclient.New(httpclient.Options{
			API:          "mcsrvstat",
			Timeout:      timeout,
			RetryMax:     2,
			RetryWaitMin: 250 * time.Millisecond,
			RetryWaitMax: 2 * time.Second,
			// mcsrvstat rejects requests without a descriptive agent
			UserAgent: "statusbot (+https://github.com/craftwatch/statusbot)",
			Logger:    cfg.Logger,
			Observer:  cfg.Observer,
		}),
		logger: cfg.Logger.With().Str("component", "mcsrvstat").Logger(),
	}
}

// Status returns the current status of the server at address
func (c *Client) Status(ctx context.Context, address string) (minecraft.Status, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return minecraft.Status{}, errors.New(errors.CodeMissingParameter, errDomain, "server address is empty", nil)
	}

	c.logger.Debug().Str("address", address).Msg("Fetching server status")

	resp, err := c.http.Do(ctx, "status", http.MethodGet, c.baseURL+"/"+url.PathEscape(address), nil, "")
	if err != nil {
		if ctx.Err() != nil {
			return minecraft.Status{}, errors.New(errors.CodeNetworkTimeout, errDomain, "status lookup cancelled", err)
		}
		return minecraft.Status{}, errors.New(errors.CodeNetworkError, errDomain, "status lookup failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return minecraft.Status{}, errors.New(errors.CodeOperationFailed, errDomain,
			fmt.Sprintf("status API returned %d", resp.StatusCode), nil)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return minecraft.Status{}, errors.New(errors.CodeNetworkError, errDomain, "failed to read status response", err)
	}

	var status minecraft.Status
	if err := json.Unmarshal(data, &status); err != nil {
		return minecraft.Status{}, errors.New(errors.CodeTypeConversionFailed, errDomain, "failed to decode status response", err)
	}

	return status, nil
}
