package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"roombook/internal/calendar"
)

const DefaultPath = "configs/config.yaml"

type Config struct {
	API struct {
		BaseURL         string  `yaml:"base_url"`
		BookingsPath    string  `yaml:"bookings_path"`
		TimeoutSeconds  int     `yaml:"timeout_seconds"`
		RateLimitRPS    float64 `yaml:"rate_limit_rps"`
		RateLimitBurst  int     `yaml:"rate_limit_burst"`
		CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
	} `yaml:"api"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Database struct {
		Path                string `yaml:"path"`
		RetentionDays       int    `yaml:"retention_days"`
		BackupPath          string `yaml:"backup_path"` // empty disables backups
		BackupIntervalHours int    `yaml:"backup_interval_hours"`
		BackupRetentionDays int    `yaml:"backup_retention_days"`
	} `yaml:"database"`

	Calendar struct {
		StartHour   int    `yaml:"start_hour"`
		EndHour     int    `yaml:"end_hour"`
		SlotMinutes int    `yaml:"slot_minutes"`
		Timezone    string `yaml:"timezone"`
	} `yaml:"calendar"`

	HTTP struct {
		Port            int `yaml:"port"`
		SessionTTLHours int `yaml:"session_ttl_hours"`
	} `yaml:"http"`

	Telegram struct {
		BotToken string  `yaml:"bot_token"`
		ChatIDs  []int64 `yaml:"chat_ids"`
	} `yaml:"telegram"`

	Sheets struct {
		CredentialsFile string `yaml:"credentials_file"`
		SpreadsheetID   string `yaml:"spreadsheet_id"`
		SyncMinutes     int    `yaml:"sync_minutes"`
		ServiceToken    string `yaml:"service_token"` // content API token for the sync
	} `yaml:"sheets"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Debug bool `yaml:"debug"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()

	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.API.BookingsPath == "" {
		c.API.BookingsPath = "conference-rooms/bookings"
	}
	if c.API.TimeoutSeconds <= 0 {
		c.API.TimeoutSeconds = 10
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/roombook.db"
	}
	if c.Database.RetentionDays <= 0 {
		c.Database.RetentionDays = 14
	}
	if c.Database.BackupIntervalHours <= 0 {
		c.Database.BackupIntervalHours = 24
	}
	if c.Database.BackupRetentionDays <= 0 {
		c.Database.BackupRetentionDays = 14
	}
	if c.Calendar.StartHour == 0 && c.Calendar.EndHour == 0 {
		c.Calendar.StartHour = calendar.DefaultStartHour
		c.Calendar.EndHour = calendar.DefaultEndHour
	}
	if c.Calendar.SlotMinutes <= 0 {
		c.Calendar.SlotMinutes = calendar.DefaultSlotWidth
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.SessionTTLHours <= 0 {
		c.HTTP.SessionTTLHours = 12
	}
	if c.Sheets.SyncMinutes <= 0 {
		c.Sheets.SyncMinutes = 15
	}
	if c.Monitoring.HealthCheckPort == 0 {
		c.Monitoring.HealthCheckPort = 8090
	}
	if c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.API.RateLimitRPS < 0 {
		return fmt.Errorf("api.rate_limit_rps cannot be negative")
	}
	if _, err := c.Grid(); err != nil {
		return err
	}
	return nil
}

// Grid returns the calendar layout configured for the week view.
func (c *Config) Grid() (calendar.Grid, error) {
	loc := time.Local
	if c.Calendar.Timezone != "" {
		var err error
		loc, err = time.LoadLocation(c.Calendar.Timezone)
		if err != nil {
			return calendar.Grid{}, fmt.Errorf("calendar.timezone: %w", err)
		}
	}
	g := calendar.Grid{
		StartHour: c.Calendar.StartHour,
		EndHour:   c.Calendar.EndHour,
		SlotWidth: c.Calendar.SlotMinutes,
		Location:  loc,
	}
	if err := g.Validate(); err != nil {
		return calendar.Grid{}, fmt.Errorf("calendar: %w", err)
	}
	return g, nil
}

func (c *Config) APITimeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.API.CacheTTLSeconds) * time.Second
}

func (c *Config) SnapshotRetention() time.Duration {
	return time.Duration(c.Database.RetentionDays) * 24 * time.Hour
}

func (c *Config) BackupInterval() time.Duration {
	return time.Duration(c.Database.BackupIntervalHours) * time.Hour
}

func (c *Config) BackupRetention() time.Duration {
	return time.Duration(c.Database.BackupRetentionDays) * 24 * time.Hour
}

// NotificationsEnabled reports whether booking events go to Telegram.
func (c *Config) NotificationsEnabled() bool {
	return c.Telegram.BotToken != "" && len(c.Telegram.ChatIDs) > 0
}

// SheetsEnabled reports whether the spreadsheet mirror is configured.
func (c *Config) SheetsEnabled() bool {
	return c.Sheets.CredentialsFile != "" && c.Sheets.SpreadsheetID != ""
}

func (c *Config) SheetSyncInterval() time.Duration {
	return time.Duration(c.Sheets.SyncMinutes) * time.Minute
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.HTTP.SessionTTLHours) * time.Hour
}
