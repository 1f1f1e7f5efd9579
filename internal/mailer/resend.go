package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/JNewman-cell/GoogleCloudFunction/internal/domain"
)

const defaultResendBaseURL = "https://api.resend.com"

// ResendSender sends through the Resend HTTP API.
type ResendSender struct {
	client  *http.Client
	apiKey  string
	baseURL string
}

type resendPayload struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

func NewResendSender(apiKey, baseURL string, timeout time.Duration) *ResendSender {
	if baseURL == "" {
		baseURL = defaultResendBaseURL
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &ResendSender{
		client:  &http.Client{Timeout: timeout},
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (s *ResendSender) Send(ctx context.Context, n domain.Notification) error {
	body, err := json.Marshal(resendPayload{
		From:    n.From,
		To:      n.To,
		Subject: n.Subject,
		HTML:    n.HTML,
	})
	if err != nil {
		return rejected(wrapDelivery("marshal payload", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return wrapDelivery("create request", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return wrapDelivery("send", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		err := deliveryError("resend status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
		if rejectsMessage(resp.StatusCode) {
			return rejected(err)
		}
		return err
	}
	return nil
}
