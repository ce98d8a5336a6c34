package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const DefaultGraphBase = "https://graph.facebook.com"

type Sender interface {
	Send(ctx context.Context, msg Message) (SendResult, error)
	ProviderID() string
}

type SendResult struct {
	MessageID string
	Status    int
}

type GraphConfig struct {
	BaseURL       string
	APIVersion    string
	PhoneNumberID string
	AccessToken   string
	Timeout       time.Duration
}

// GraphSender posts template messages to the Graph API messages endpoint.
type GraphSender struct {
	endpoint string
	token    string
	http     *http.Client
}

func NewGraphSender(cfg GraphConfig) (*GraphSender, error) {
	if strings.TrimSpace(cfg.PhoneNumberID) == "" {
		return nil, errors.New("whatsapp: phone number id not configured")
	}
	if strings.TrimSpace(cfg.AccessToken) == "" {
		return nil, errors.New("whatsapp: access token not configured")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGraphBase
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "v17.0"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &GraphSender{
		endpoint: fmt.Sprintf("%s/%s/%s/messages", strings.TrimRight(cfg.BaseURL, "/"), cfg.APIVersion, cfg.PhoneNumberID),
		token:    cfg.AccessToken,
		http:     &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (s *GraphSender) ProviderID() string {
	return "whatsapp-graph"
}

type graphResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func (s *GraphSender) Send(ctx context.Context, msg Message) (SendResult, error) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return SendResult{}, fmt.Errorf("whatsapp: marshal message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(raw))
	if err != nil {
		return SendResult{}, fmt.Errorf("whatsapp: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.http.Do(req)
	if err != nil {
		return SendResult{}, fmt.Errorf("whatsapp: send: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return SendResult{Status: resp.StatusCode}, fmt.Errorf("whatsapp: read response: %w", err)
	}
	var parsed graphResponse
	_ = json.Unmarshal(body, &parsed)

	result := SendResult{Status: resp.StatusCode}
	if len(parsed.Messages) > 0 {
		result.MessageID = parsed.Messages[0].ID
	}
	if parsed.Error != nil {
		return result, fmt.Errorf("whatsapp: api error %d: %s", parsed.Error.Code, parsed.Error.Message)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return result, fmt.Errorf("whatsapp: unexpected status %d", resp.StatusCode)
	}
	return result, nil
}

// NoopSender accepts every message without sending it.
type NoopSender struct{}

func NewNoopSender() *NoopSender {
	return &NoopSender{}
}

func (s *NoopSender) ProviderID() string {
	return "whatsapp-noop"
}

func (s *NoopSender) Send(context.Context, Message) (SendResult, error) {
	return SendResult{Status: http.StatusOK}, nil
}
