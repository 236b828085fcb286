package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ipwatch/internal/config"
	ntpl "ipwatch/internal/notify/template"
	"ipwatch/internal/types"
	"ipwatch/internal/version"

	"go.uber.org/zap"
)

// maxResponseSize bounds how much of a Bot API reply is decoded
const maxResponseSize = 64 << 10

// TelegramNotifier sends messages through the Telegram Bot API
type TelegramNotifier struct {
	config    *config.TelegramConfig
	logger    *zap.Logger
	client    *http.Client
	tplLoader *ntpl.Loader
}

// telegramResponse is the common envelope of Bot API replies
type telegramResponse struct {
	OK          *bool  `json:"ok"`
	Description string `json:"description"`
	ErrorCode   int    `json:"error_code"`
}

// NewTelegramNotifier creates new Telegram notifier
func NewTelegramNotifier(cfg *config.TelegramConfig, loader *ntpl.Loader, logger *zap.Logger) (*TelegramNotifier, error) {
	if cfg.BotToken == "" || cfg.ChatID == "" {
		return nil, types.ErrMissingCredentials
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	if loader == nil {
		var err error
		if loader, err = ntpl.NewLoader(logger); err != nil {
			return nil, fmt.Errorf("failed to initialize template loader: %w", err)
		}
	}

	if cfg.Template != "" {
		if err := loader.SetCustomTemplate(ntpl.Telegram, ntpl.IPChange, cfg.Template); err != nil {
			return nil, fmt.Errorf("invalid telegram template: %w", err)
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultTelegramTimeout
	}

	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        2,
			IdleConnTimeout:     30 * time.Second,
			DisableCompression:  true,
			MaxIdleConnsPerHost: 1,
		},
	}

	return &TelegramNotifier{
		config:    cfg,
		logger:    logger.With(zap.String("notifier", string(NotifierTelegram))),
		client:    client,
		tplLoader: loader,
	}, nil
}

// NotifyIPChange sends IP change notification
func (n *TelegramNotifier) NotifyIPChange(ctx context.Context, change *types.IPChange) error {
	text, err := n.tplLoader.Render(ntpl.Telegram, ntpl.IPChange, change)
	if err != nil {
		return err
	}
	return n.Send(ctx, text)
}

// Send posts text to the configured chat. chat_id and text travel as query
// parameters. A non-2xx status or ok != true is a failure.
func (n *TelegramNotifier) Send(ctx context.Context, text string) error {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(n.config.APIBase, "/"), n.config.BotToken)

	params := url.Values{}
	params.Set("chat_id", n.config.ChatID)
	params.Set("text", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", redactToken(err, n.config.BotToken))
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", redactToken(err, n.config.BotToken))
	}

	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			n.logger.Debug("Failed to close response body", zap.Error(err))
		}
	}(resp.Body)

	var result telegramResponse
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&result)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &types.StatusError{
			URL:         "telegram sendMessage",
			StatusCode:  resp.StatusCode,
			Description: result.Description,
		}
	}

	if decodeErr != nil {
		return fmt.Errorf("failed to decode telegram response: %w", decodeErr)
	}

	if result.OK == nil || !*result.OK {
		return &types.ProviderError{
			Provider:    string(NotifierTelegram),
			Description: result.Description,
		}
	}

	n.logger.Debug("Telegram message sent", zap.String("chat_id", n.config.ChatID))
	return nil
}

// Close releases idle connections
func (n *TelegramNotifier) Close() {
	n.client.CloseIdleConnections()
}

// redactToken strips the bot token from errors that embed the request URL
func redactToken(err error, token string) error {
	if err == nil || token == "" || !strings.Contains(err.Error(), token) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), token, "<redacted>"))
}
