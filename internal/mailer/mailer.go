package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kojileo/datebank/pkg/config"
	"go.uber.org/zap"
)

// Mailer delivers a single message. Implementations make one attempt;
// callers decide what a failure means.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// New returns the provider selected by cfg.Provider.
func New(cfg config.MailConfig, log *zap.Logger) (Mailer, error) {
	switch cfg.Provider {
	case "", "log":
		return LogMailer{log: log}, nil
	case "noop":
		return NoopMailer{}, nil
	case "webhook":
		if cfg.WebhookURL == "" {
			return nil, errors.New("mail webhook url is not configured")
		}
		return &WebhookMailer{
			URL:    cfg.WebhookURL,
			Token:  cfg.WebhookToken,
			From:   cfg.From,
			Client: &http.Client{Timeout: cfg.Timeout},
		}, nil
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.Provider)
	}
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct {
	log *zap.Logger
}

func (m LogMailer) Send(ctx context.Context, to, subject, body string) error {
	m.log.Info("Mail sent to log",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("body_bytes", len(body)))
	return nil
}

type NoopMailer struct{}

func (NoopMailer) Send(ctx context.Context, to, subject, body string) error {
	return nil
}

// WebhookMailer posts messages as JSON to a mail relay.
type WebhookMailer struct {
	URL    string
	Token  string
	From   string
	Client *http.Client
}

type webhookPayload struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (m *WebhookMailer) Send(ctx context.Context, to, subject, body string) error {
	payload, err := json.Marshal(webhookPayload{From: m.From, To: to, Subject: subject, Body: body})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.URL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if m.Token != "" {
		req.Header.Set("Authorization", "Bearer "+m.Token)
	}

	client := m.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("mail relay rejected message: status %d", resp.StatusCode)
	}
	return nil
}
