package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	coreconfig "github.com/m3rciful/leadbot/core/config"
	coredatabase "github.com/m3rciful/leadbot/core/database"
)

// BroadcastConfig names the channel that receives published posts.
type BroadcastConfig struct {
	ChannelID int64 `yaml:"channel_id" envconfig:"CHANNEL_ID"`
}

// CRMConfig holds the Bitrix24 webhook settings.
type CRMConfig struct {
	// WebhookURL is the inbound webhook base ending with the key segment,
	// without a method name appended.
	WebhookURL     string `yaml:"webhook_url" envconfig:"CRM_WEBHOOK_URL"`
	Title          string `yaml:"title" envconfig:"CRM_TITLE"`
	SourceID       string `yaml:"source_id" envconfig:"CRM_SOURCE_ID"`
	TimeoutSeconds int    `yaml:"timeout_seconds" envconfig:"CRM_TIMEOUT_SECONDS"`
}

// Config aggregates the core configuration with the lead bot's own sections.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database  coredatabase.Config `yaml:"database"`
	Broadcast BroadcastConfig     `yaml:"broadcast"`
	CRM       CRMConfig           `yaml:"crm"`
}

// CoreConfig exposes the embedded core configuration for the runner.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// LoadConfig reads the YAML config, applies environment overrides, and
// validates both the core and the domain sections.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return nil, err
	}
	if err := normalizeDomain(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func normalizeDomain(cfg *Config) error {
	if cfg.Broadcast.ChannelID == 0 {
		return fmt.Errorf("broadcast.channel_id is required")
	}
	if strings.TrimSpace(cfg.CRM.WebhookURL) == "" {
		return fmt.Errorf("crm.webhook_url is required")
	}
	if cfg.CRM.TimeoutSeconds < 0 {
		return fmt.Errorf("crm.timeout_seconds must be >= 0")
	}
	if cfg.CRM.TimeoutSeconds == 0 {
		cfg.CRM.TimeoutSeconds = 10
	}
	if strings.TrimSpace(cfg.CRM.Title) == "" {
		cfg.CRM.Title = "Telegram channel lead"
	}
	if strings.TrimSpace(cfg.CRM.SourceID) == "" {
		cfg.CRM.SourceID = "TELEGRAM_CHANNEL"
	}
	return nil
}
