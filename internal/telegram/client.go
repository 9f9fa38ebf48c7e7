package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"
)

const apiBase = "https://api.telegram.org/bot"

// Client is one bot credential's HTTP transport. It satisfies
// chat.Transport so the dispatcher can address it by bot type without
// importing this package's concrete types.
type Client struct {
	botType    string
	token      string
	base       string
	httpClient *http.Client
}

// apiBaseOverride points the client at a different API base, used by
// tests to target an httptest server instead of Telegram's real API.
func (c *Client) apiBaseOverride(base string) { c.base = base }

// NewClient builds a Client that forces IPv4 and uses a 10s connect+read
// timeout, per §6's "force IPv4, connect+read timeout 10s".
func NewClient(botType, token string) *Client {
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialer.DialContext(ctx, "tcp4", addr)
		},
	}
	return &Client{
		botType: botType,
		token:   token,
		base:    apiBase,
		httpClient: &http.Client{
			Timeout:   10 * time.Second,
			Transport: transport,
		},
	}
}

func (c *Client) BotType() string { return c.botType }

// Send posts sendMessage with HTML parse mode and returns the upstream
// message id as a string, per §6's sendMessage contract.
func (c *Client) Send(ctx context.Context, channelID, text string) (string, error) {
	chatID, err := strconv.ParseInt(channelID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("telegram: channel id %q is not numeric: %w", channelID, err)
	}

	body := sendMessageRequest{
		ChatID:                chatID,
		Text:                  text,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	}
	var result apiResponse[sendMessageResult]
	if err := c.call(ctx, "sendMessage", body, &result); err != nil {
		return "", err
	}
	return strconv.FormatInt(result.Result.MessageID, 10), nil
}

// Healthy calls getMe as the bot's identity endpoint, per §4.7's health
// check.
func (c *Client) Healthy(ctx context.Context) bool {
	var result apiResponse[struct{}]
	return c.call(ctx, "getMe", nil, &result) == nil
}

// SetWebhook registers url with Telegram as this bot's webhook target.
func (c *Client) SetWebhook(ctx context.Context, url, secretToken string) error {
	body := setWebhookRequest{
		URL:                url,
		SecretToken:        secretToken,
		AllowedUpdates:     []string{"message", "callback_query"},
		DropPendingUpdates: false,
	}
	var result apiResponse[bool]
	return c.call(ctx, "setWebhook", body, &result)
}

// GetUpdates long-polls for new updates starting at offset, blocking up
// to timeoutSeconds on the server side.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeoutSeconds int) ([]Update, error) {
	body := getUpdatesRequest{Offset: offset, Timeout: timeoutSeconds}
	var result apiResponse[[]Update]
	if err := c.call(ctx, "getUpdates", body, &result); err != nil {
		return nil, err
	}
	return result.Result, nil
}

func (c *Client) call(ctx context.Context, method string, body any, out any) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("telegram: marshal %s request: %w", method, err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	url := c.base + c.token + "/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, reader)
	if err != nil {
		return fmt.Errorf("telegram: build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: %s: %w", method, err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("telegram: decode %s response: %w", method, err)
	}
	if res, ok := out.(apiResult); ok && !res.isOK() {
		return fmt.Errorf("telegram: %s rejected: %s", method, res.errDesc())
	}
	return nil
}
