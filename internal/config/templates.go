package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Bullion Bell Configuration

[calendar]
# Durable record cache; defaults to calendar_cache.json next to this file
# cache_file = ""
# Keep at most this many records (0 = unbounded)
max_records = 0
# Sync window relative to today
days_before = 1
days_after = 7
# Periodic refresh schedule used by 'bullion-bell watch' (cron syntax)
refresh = "*/15 * * * *"
# IANA timezone for the window and event times, or "Local"
timezone = "Local"
# Deadline for one provider call (0s = none)
fetch_timeout = "0s"

[provider]
# Economic calendar endpoint: GET {base_url}{path}?from=DD/MM/YYYY&to=DD/MM/YYYY
base_url = "http://127.0.0.1:8085"
path = "/economic-calendar"
timeout = "30s"
# Sent as X-API-Key when set (or BULLION_PROVIDER_API_KEY)
api_key = ""
user_agent = "BullionBell/1.0"
# Stop calling the provider after this many consecutive failures (0 = never),
# then try again once the cooldown has passed
breaker_failures = 5
breaker_cooldown = "2m"

[flags]
# Number of decoded 16x16 flags kept in memory
capacity = 100
# JSON object of currency code -> image URL; empty uses the built-in table
table_path = ""
# Local icon used for EUR
eur_icon = "resources/icons/flags/EU_icon.png"
requests_per_second = 5.0
burst = 5
timeout = "10s"

[alerts]
enabled = true
# database = ""
check_interval = "60s"
# How long before an event its alert fires
lead = "5m"
# Create alerts automatically for events at or above this importance ("" = off)
auto_importance = "high"

[logging]
# debug, info, warn, error
level = "info"
console = true
file = true
max_size = 20
max_backups = 5
max_age = 30

[ui]
color_enabled = true
# Rows shown before "... N more" (use --all to show everything)
page_size = 50

[notifications]
enabled = true
# all, alerts_only, errors_only
level = "all"
# Ring the terminal bell on alerts
bell = true

[notifications.webhook]
enabled = false
url = ""

[notifications.telegram]
enabled = false
bot_token = ""
chat_id = ""

[notifications.email]
enabled = false
smtp_host = ""
smtp_port = 587
username = ""
password = ""
from = ""
to = ""
`

func createTemplateConfig(configDir, name string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, name+".toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return nil
}
