// Package telegram is a small hand-rolled client for the subset of the
// Telegram Bot API §6 names: sendMessage, setWebhook, and the inbound
// update shapes for webhook and long-polling reception. No repo in the
// retrieved pack vendors a Telegram SDK, so this wire layer is plain
// net/http + encoding/json rather than grounded on a pack dependency;
// the pipeline around it (internal/chat) is grounded as usual.
package telegram

// Update is the inbound payload Telegram posts to a webhook, or returns
// from getUpdates, per §6's "Inbound update shape".
type Update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *Message       `json:"message,omitempty"`
	CallbackQuery *CallbackQuery `json:"callback_query,omitempty"`
}

type Message struct {
	MessageID int64  `json:"message_id"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text"`
	From      User   `json:"from"`
}

type Chat struct {
	ID int64 `json:"id"`
}

type User struct {
	ID int64 `json:"id"`
}

// CallbackQuery carries inline-button presses; Data encodes commands
// like "execute:<uuid>:start" or "suggest:<uuid>:accept" per §6.
type CallbackQuery struct {
	ID      string   `json:"id"`
	Data    string   `json:"data"`
	Message *Message `json:"message,omitempty"`
	From    User     `json:"from"`
}

type sendMessageRequest struct {
	ChatID                int64  `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type sendMessageResult struct {
	MessageID int64 `json:"message_id"`
}

type apiResponse[T any] struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Result      T      `json:"result"`
}

func (r apiResponse[T]) isOK() bool      { return r.OK }
func (r apiResponse[T]) errDesc() string { return r.Description }

// apiResult lets call() check ok/description on any apiResponse[T]
// without needing to know T.
type apiResult interface {
	isOK() bool
	errDesc() string
}

type setWebhookRequest struct {
	URL                string   `json:"url"`
	SecretToken        string   `json:"secret_token"`
	AllowedUpdates     []string `json:"allowed_updates"`
	DropPendingUpdates bool     `json:"drop_pending_updates"`
}

type getUpdatesRequest struct {
	Offset  int64 `json:"offset,omitempty"`
	Timeout int   `json:"timeout"`
}
