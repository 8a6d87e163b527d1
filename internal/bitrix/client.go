// Package bitrix implements the outbound Bitrix24 lead-creation call.
package bitrix

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/m3rciful/leadbot/core/logger"
	"github.com/m3rciful/leadbot/internal/flow"
)

const (
	leadAddMethod  = "crm.lead.add.json"
	defaultTimeout = 10 * time.Second
	phoneTypeWork  = "WORK"
)

// Config holds the CRM webhook settings.
type Config struct {
	// WebhookURL is the inbound webhook base, ending with the access key
	// segment (no method name appended).
	WebhookURL string
	// Title is the TITLE field of created leads.
	Title string
	// SourceID is the SOURCE_ID field of created leads.
	SourceID string
	// Timeout bounds one lead-creation call end to end.
	Timeout time.Duration
}

// Client performs lead-creation calls against a Bitrix24 webhook.
type Client struct {
	cfg  Config
	http *http.Client
}

// New constructs a Client, applying the default timeout when unset.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

type phoneEntry struct {
	Value     string `json:"VALUE"`
	ValueType string `json:"VALUE_TYPE"`
}

type leadFields struct {
	Title    string       `json:"TITLE"`
	Name     string       `json:"NAME"`
	Phone    []phoneEntry `json:"PHONE"`
	Comments string       `json:"COMMENTS"`
	SourceID string       `json:"SOURCE_ID"`
}

type leadParams struct {
	RegisterSonetEvent string `json:"REGISTER_SONET_EVENT"`
}

type leadRequest struct {
	Fields leadFields `json:"fields"`
	Params leadParams `json:"params"`
}

type leadResponse struct {
	Result           json.Number `json:"result"`
	Error            string      `json:"error"`
	ErrorDescription string      `json:"error_description"`
}

// CreateLead performs exactly one lead-creation call and returns the CRM lead
// id on success. Success is a truthy result field in the response body.
func (c *Client) CreateLead(ctx context.Context, lead flow.LeadIntake) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	body, err := json.Marshal(buildRequest(c.cfg, lead))
	if err != nil {
		return 0, fmt.Errorf("bitrix: encode lead: %w", err)
	}

	url := strings.TrimRight(c.cfg.WebhookURL, "/") + "/" + leadAddMethod
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("bitrix: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("bitrix: lead.add call: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("bitrix: read response: %w", err)
	}

	var parsed leadResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return 0, fmt.Errorf("bitrix: decode response (http %d): %w", resp.StatusCode, err)
	}

	leadID, _ := parsed.Result.Int64()
	if leadID <= 0 {
		logger.CRM.Warn("lead rejected",
			slog.String("event", "lead.add"),
			slog.String("status", "fail"),
			slog.Int("http_code", resp.StatusCode),
			slog.String("err", parsed.Error),
			slog.String("cause", logger.SanitizeLimit(parsed.ErrorDescription, 256)),
		)
		if parsed.Error != "" {
			return 0, fmt.Errorf("bitrix: lead.add rejected: %s (%s)", parsed.Error, parsed.ErrorDescription)
		}
		return 0, fmt.Errorf("bitrix: lead.add returned no result (http %d)", resp.StatusCode)
	}

	logger.CRM.Info("lead created",
		slog.String("event", "lead.add"),
		slog.String("status", "ok"),
		slog.Int64("lead_id", leadID),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return leadID, nil
}

func buildRequest(cfg Config, lead flow.LeadIntake) leadRequest {
	comments := fmt.Sprintf(
		"Source: Telegram channel\n👤 %s\n📱 %s\nUser: %d\nCreated: %s",
		lead.Name, lead.Phone, lead.Identity,
		lead.SubmittedAt.Format("02.01.2006 15:04:05"),
	)
	return leadRequest{
		Fields: leadFields{
			Title:    cfg.Title,
			Name:     lead.Name,
			Phone:    []phoneEntry{{Value: lead.Phone, ValueType: phoneTypeWork}},
			Comments: comments,
			SourceID: cfg.SourceID,
		},
		Params: leadParams{RegisterSonetEvent: "Y"},
	}
}
