package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"railwatch.dev/railwatch/schedule"
)

type ScheduleConfig struct {
	URL string `yaml:"url" validate:"omitempty,url"`
	Dir string `yaml:"dir" validate:"required"`
}

type FeedConfig struct {
	URL string `yaml:"url" validate:"required,url"`
}

type NotifyConfig struct {
	URL string `yaml:"url" validate:"omitempty,url"`
}

type AudioConfig struct {
	PlayerCmd string `yaml:"player"`
	VoiceCmd  string `yaml:"voice"`
	ChimePath string `yaml:"chime"`
}

// One watched departure. Days and Users are optional: no days means
// every day, no users means no push notifications.
type WatchEntry struct {
	Source      string   `yaml:"source" validate:"required"`
	Destination string   `yaml:"destination" validate:"required"`
	Departure   string   `yaml:"departure" validate:"required"`
	Days        []string `yaml:"days" validate:"omitempty,dive,oneof=mon tue wed thu fri sat sun"`
	Users       []string `yaml:"users"`
	Audio       bool     `yaml:"audio"`
}

type Config struct {
	Schedule        ScheduleConfig `yaml:"schedule" validate:"required"`
	Feed            FeedConfig     `yaml:"feed" validate:"required"`
	Notify          NotifyConfig   `yaml:"notify"`
	Audio           AudioConfig    `yaml:"audio"`
	Listen          string         `yaml:"listen"`
	IntervalSeconds int            `yaml:"interval_seconds" validate:"gte=0"`
	Watches         []WatchEntry   `yaml:"watches" validate:"required,min=1,dive"`
}

func (c *Config) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// Reports whether the entry is watched on the given weekday. An
// entry without days is watched every day.
func (w WatchEntry) ActiveOn(day time.Weekday) bool {
	if len(w.Days) == 0 {
		return true
	}
	for _, name := range w.Days {
		if weekdayNames[name] == day {
			return true
		}
	}
	return false
}

// Loads and validates the config file. Everything is checked here,
// at load time, so the monitor can trust entries at use time.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Listen == "" {
		cfg.Listen = ":8080"
	}
	if cfg.IntervalSeconds == 0 {
		cfg.IntervalSeconds = 60
	}
	for i := range cfg.Watches {
		for j, day := range cfg.Watches[i].Days {
			cfg.Watches[i].Days[j] = strings.ToLower(day)
		}
	}

	v := validator.New()
	if err := v.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	// The departure time format isn't expressible as a validator
	// tag, so it gets its own pass.
	for _, w := range cfg.Watches {
		if _, err := schedule.ParseTimeOfDay(w.Departure); err != nil {
			return nil, fmt.Errorf("watch %s to %s: invalid departure: %w", w.Source, w.Destination, err)
		}
	}

	return &cfg, nil
}
