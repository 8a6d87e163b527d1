package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const baseYAML = `
telegram:
  token: "123456:TEST"
  admin_ids: [100, 200]
  run_mode: longpoll
logging:
  level: debug
  format: kv
database:
  host: localhost
  port: "5432"
  user: leadbot
  password: secret
  name: leadbot
  sslmode: disable
  max_connections: 4
broadcast:
  channel_id: -1001234567890
crm:
  webhook_url: "https://example.bitrix24.ru/rest/1/key"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, baseYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.CRM.TimeoutSeconds != 10 {
		t.Fatalf("timeout = %d, want default 10", cfg.CRM.TimeoutSeconds)
	}
	if cfg.CRM.Title != "Telegram channel lead" {
		t.Fatalf("title = %q, want default", cfg.CRM.Title)
	}
	if cfg.CRM.SourceID != "TELEGRAM_CHANNEL" {
		t.Fatalf("source id = %q, want default", cfg.CRM.SourceID)
	}
	if len(cfg.Telegram.AdminIDs) != 2 || cfg.Telegram.AdminIDs[0] != 100 || cfg.Telegram.AdminIDs[1] != 200 {
		t.Fatalf("admin ids = %v", cfg.Telegram.AdminIDs)
	}
	if cfg.Telegram.RunMode != "longpoll" {
		t.Fatalf("run mode = %q", cfg.Telegram.RunMode)
	}
}

func TestLoadConfigRequiresChannel(t *testing.T) {
	body := strings.Replace(baseYAML, "channel_id: -1001234567890", "channel_id: 0", 1)
	_, err := LoadConfig(writeConfig(t, body))
	if err == nil || !strings.Contains(err.Error(), "broadcast.channel_id") {
		t.Fatalf("err = %v, want channel_id validation", err)
	}
}

func TestLoadConfigRequiresWebhookURL(t *testing.T) {
	body := strings.Replace(baseYAML, `webhook_url: "https://example.bitrix24.ru/rest/1/key"`, `webhook_url: ""`, 1)
	_, err := LoadConfig(writeConfig(t, body))
	if err == nil || !strings.Contains(err.Error(), "crm.webhook_url") {
		t.Fatalf("err = %v, want webhook_url validation", err)
	}
}

func TestLoadConfigRejectsNegativeTimeout(t *testing.T) {
	body := baseYAML + "  timeout_seconds: -5\n"
	_, err := LoadConfig(writeConfig(t, body))
	if err == nil || !strings.Contains(err.Error(), "timeout_seconds") {
		t.Fatalf("err = %v, want timeout validation", err)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("CHANNEL_ID", "-1009999999999")
	t.Setenv("CRM_TIMEOUT_SECONDS", "3")
	cfg, err := LoadConfig(writeConfig(t, baseYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Broadcast.ChannelID != -1009999999999 {
		t.Fatalf("channel id = %d, want env override", cfg.Broadcast.ChannelID)
	}
	if cfg.CRM.TimeoutSeconds != 3 {
		t.Fatalf("timeout = %d, want env override", cfg.CRM.TimeoutSeconds)
	}
}

func TestIsAdmin(t *testing.T) {
	a := &App{cfg: &Config{}}
	a.cfg.Telegram.AdminIDs = []int64{100, 200}
	if !a.isAdmin(100) || !a.isAdmin(200) {
		t.Fatal("listed ids must be admins")
	}
	if a.isAdmin(300) || a.isAdmin(0) {
		t.Fatal("unlisted ids must not be admins")
	}
}
