package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// TelegramNotifier delivers text messages to a fixed chat through the
// Telegram Bot API sendMessage endpoint.
type TelegramNotifier struct {
	token      string
	chatID     string
	baseURL    string
	httpClient *http.Client
}

// NewTelegramNotifier creates a notifier for the given bot token and chat.
func NewTelegramNotifier(token, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		token:   token,
		chatID:  chatID,
		baseURL: "https://api.telegram.org",
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Send posts a text message to the configured chat. Delivery is
// fire-and-forget from the monitor's point of view: the error is returned for
// logging and never retried here.
func (tn *TelegramNotifier) Send(text string) error {
	if tn.token == "" || tn.chatID == "" {
		return fmt.Errorf("telegram token or chat id not configured")
	}

	payload, err := json.Marshal(map[string]string{
		"chat_id": tn.chatID,
		"text":    text,
	})
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", tn.baseURL, tn.token)
	resp, err := tn.httpClient.Post(endpoint, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("telegram request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram send failed with status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
