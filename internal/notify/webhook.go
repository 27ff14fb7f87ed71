package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// webhookPayload はWebhook通知のJSONボディ。
type webhookPayload struct {
	Type         string `json:"type"`
	ItemID       string `json:"item_id"`
	ItemName     string `json:"item_name"`
	ItemURL      string `json:"item_url"`
	Currency     string `json:"currency,omitempty"`
	OldPrice     string `json:"old_price,omitempty"`
	NewPrice     string `json:"new_price,omitempty"`
	PctChange    string `json:"pct_change,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	Message      string `json:"message"`
	OccurredAt   string `json:"occurred_at"`
}

// WebhookNotifier は設定されたURLへJSONをPOSTする通知経路。
type WebhookNotifier struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

// NewWebhookNotifier はWebhookNotifierを生成する。
func NewWebhookNotifier(url string, timeout time.Duration, logger *slog.Logger) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Notify はイベントをJSONボディでPOSTする。
// 2xx以外のステータスは配信失敗として扱う。
func (n *WebhookNotifier) Notify(ctx context.Context, event Event) error {
	payload := webhookPayload{
		Type:         string(event.Type),
		ItemID:       event.Item.ID,
		ItemName:     event.Item.Name,
		ItemURL:      event.Item.URL,
		Currency:     event.Item.Currency,
		ErrorMessage: event.ErrorMessage,
		Message:      formatMessage(event),
		OccurredAt:   time.Now().UTC().Format(time.RFC3339),
	}
	if event.OldPrice != nil {
		payload.OldPrice = event.OldPrice.String()
	}
	if event.NewPrice != nil {
		payload.NewPrice = event.NewPrice.String()
	}
	if event.PctChange != nil {
		payload.PctChange = event.PctChange.String()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("Webhookペイロードのエンコードに失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("Webhookリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("Webhookの送信に失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("Webhookがエラーステータスを返しました: %d", resp.StatusCode)
	}

	n.logger.Info("Webhook通知を送信しました",
		slog.String("item_id", event.Item.ID),
		slog.String("type", string(event.Type)),
	)
	return nil
}

var _ Notifier = (*WebhookNotifier)(nil)
