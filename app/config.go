// Package app wires the XL Reminder bot: configuration, storage, the quota
// client, background jobs, and the Telegram surface.
package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	coreconfig "github.com/ridhan354/xlreminder/core/config"
	coredatabase "github.com/ridhan354/xlreminder/core/database"
	tghelpers "github.com/ridhan354/xlreminder/core/telegram/helpers"
)

// QuotaConfig controls the upstream lookup client.
type QuotaConfig struct {
	// URLTemplate must contain the {number} placeholder.
	URLTemplate    string `yaml:"url_template" envconfig:"QUOTA_URL_TEMPLATE"`
	TimeoutSeconds int    `yaml:"timeout_seconds" envconfig:"QUOTA_TIMEOUT_SECONDS"`
}

// RefreshConfig controls cache staleness, the background scan, and the
// cooldown applied after an upstream rate limit.
type RefreshConfig struct {
	IntervalSeconds     int `yaml:"interval_seconds" envconfig:"REFRESH_INTERVAL_SECONDS"`
	ScanIntervalMinutes int `yaml:"scan_interval_minutes" envconfig:"REFRESH_SCAN_INTERVAL_MINUTES"`
	BlockSeconds        int `yaml:"block_seconds" envconfig:"REFRESH_BLOCK_SECONDS"`
}

// ReminderConfig controls notification defaults. DefaultHour is a pointer
// so an explicit 0 (midnight) is distinguishable from "not configured".
type ReminderConfig struct {
	DefaultHour *int `yaml:"default_hour" envconfig:"REMINDER_HOUR"`
}

// BackupConfig controls the weekly backup delivery.
type BackupConfig struct {
	Weekday string `yaml:"weekday" envconfig:"WEEKLY_BACKUP_DAY"`
	Hour    int    `yaml:"hour" envconfig:"WEEKLY_BACKUP_HOUR"`
}

// Config is the full application configuration.
type Config struct {
	Core     coreconfig.Config   `yaml:",inline"`
	Database coredatabase.Config `yaml:"database"`

	Quota    QuotaConfig    `yaml:"quota"`
	Refresh  RefreshConfig  `yaml:"refresh"`
	Reminder ReminderConfig `yaml:"reminder"`
	Backup   BackupConfig   `yaml:"backup"`

	Timezone     string  `yaml:"timezone" envconfig:"BOT_TIMEZONE"`
	AdminIDs     []int64 `yaml:"admin_ids" envconfig:"ADMIN_IDS"`
	MessageChunk int     `yaml:"message_chunk" envconfig:"MESSAGE_CHUNK"`
}

// CoreConfig satisfies cmd.ConfigCarrier.
func (c *Config) CoreConfig() *coreconfig.Config {
	return &c.Core
}

// Load reads the YAML config file, applies environment overrides, and
// normalizes defaults.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}

	if err := coreconfig.Normalize(&cfg.Core); err != nil {
		return nil, err
	}
	if err := normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func normalize(cfg *Config) error {
	if cfg.Quota.URLTemplate == "" {
		cfg.Quota.URLTemplate = "https://bendith.my.id/end.php?check=package&number={number}&version=2"
	}
	if !strings.Contains(cfg.Quota.URLTemplate, "{number}") {
		return fmt.Errorf("quota.url_template must contain the {number} placeholder")
	}
	if cfg.Quota.TimeoutSeconds <= 0 {
		cfg.Quota.TimeoutSeconds = 12
	}
	if cfg.Refresh.IntervalSeconds <= 0 {
		cfg.Refresh.IntervalSeconds = 6 * 60 * 60
	}
	if cfg.Refresh.ScanIntervalMinutes <= 0 {
		cfg.Refresh.ScanIntervalMinutes = 30
	}
	if cfg.Refresh.BlockSeconds <= 0 {
		cfg.Refresh.BlockSeconds = 3 * 60 * 60
	}
	if cfg.Reminder.DefaultHour == nil {
		hour := 9
		cfg.Reminder.DefaultHour = &hour
	} else if *cfg.Reminder.DefaultHour < 0 || *cfg.Reminder.DefaultHour > 23 {
		return fmt.Errorf("reminder.default_hour must be 0..23")
	}
	if cfg.Backup.Weekday == "" {
		cfg.Backup.Weekday = "sun"
	}
	if _, err := parseWeekday(cfg.Backup.Weekday); err != nil {
		return err
	}
	if cfg.Backup.Hour < 0 || cfg.Backup.Hour > 23 {
		return fmt.Errorf("backup.hour must be 0..23")
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Asia/Jakarta"
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	if cfg.MessageChunk <= 0 {
		cfg.MessageChunk = tghelpers.DefaultChunkLimit
	}
	return nil
}

func parseWeekday(s string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sun", "sunday":
		return time.Sunday, nil
	case "mon", "monday":
		return time.Monday, nil
	case "tue", "tuesday":
		return time.Tuesday, nil
	case "wed", "wednesday":
		return time.Wednesday, nil
	case "thu", "thursday":
		return time.Thursday, nil
	case "fri", "friday":
		return time.Friday, nil
	case "sat", "saturday":
		return time.Saturday, nil
	}
	return 0, fmt.Errorf("invalid backup.weekday %q", s)
}

// Location resolves the configured timezone. normalize validated it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// IsAdmin reports whether the user may run backup and restore.
func (c *Config) IsAdmin(userID int64) bool {
	if len(c.AdminIDs) == 0 {
		return userID == c.Core.Telegram.AdminID && userID != 0
	}
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}
