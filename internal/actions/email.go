package actions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"insightstream/internal/config"
	"insightstream/internal/constants"
)

// EmailClient sends transactional mail through a SendGrid-compatible v3 API.
type EmailClient struct {
	cfg    config.EmailConfig
	client *http.Client
}

func NewEmailClient(cfg config.EmailConfig) *EmailClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.sendgrid.com"
	}
	return &EmailClient{
		cfg: cfg,
		client: &http.Client{
			Timeout: constants.DefaultHTTPTimeout,
		},
	}
}

type mailRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             mailAddress       `json:"from"`
	Subject          string            `json:"subject"`
	Content          []mailContent     `json:"content"`
}

type personalization struct {
	To []mailAddress `json:"to"`
}

type mailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type mailContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

func (c *EmailClient) Send(ctx context.Context, toEmail, subject, body string) error {
	payload := mailRequest{
		Personalizations: []personalization{
			{To: []mailAddress{{Email: toEmail}}},
		},
		From: mailAddress{
			Email: c.cfg.FromEmail,
			Name:  c.cfg.FromName,
		},
		Subject: subject,
		Content: []mailContent{
			{Type: "text/plain", Value: body},
		},
	}

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal mail request: %w", err)
	}

	url := fmt.Sprintf("%s/v3/mail/send", c.cfg.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create mail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("mail request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < constants.HTTPStatusOKMin || resp.StatusCode >= constants.HTTPStatusOKMax {
		return fmt.Errorf("mail service returned status: %d", resp.StatusCode)
	}

	return nil
}
