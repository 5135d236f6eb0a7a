package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Notifier delivers one text message to one phone number.
type Notifier interface {
	Send(ctx context.Context, phone string, message string) error
}

type WhatsAppClient struct {
	apiURL     string
	token      string
	sender     string
	httpClient *http.Client
}

func NewWhatsAppClient(apiURL, token, sender string) *WhatsAppClient {
	return &WhatsAppClient{
		apiURL:     apiURL,
		token:      token,
		sender:     sender,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type sendMessageRequest struct {
	Target  string `json:"target"`
	Message string `json:"message"`
	Sender  string `json:"sender,omitempty"`
}

func (w *WhatsAppClient) Send(ctx context.Context, phone string, message string) error {
	target := NormalizePhone(phone)
	if target == "" {
		return fmt.Errorf("invalid phone number %q", phone)
	}

	body, err := json.Marshal(sendMessageRequest{Target: target, Message: message, Sender: w.sender})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.apiURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", w.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("whatsapp returned %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}

	return nil
}

// NormalizePhone converts local Indonesian numbers (08xx, +628xx, 8xx) into
// the 628xx form the gateway expects. It returns "" when nothing usable is left.
func NormalizePhone(phone string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}

	n := digits.String()
	switch {
	case len(n) < 8:
		return ""
	case strings.HasPrefix(n, "62"):
		return n
	case strings.HasPrefix(n, "0"):
		return "62" + n[1:]
	case strings.HasPrefix(n, "8"):
		return "62" + n
	default:
		return n
	}
}

type Noop struct{}

func (Noop) Send(ctx context.Context, phone string, message string) error {
	return nil
}
