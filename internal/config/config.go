package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config описывает параметры pzadmin.
type Config struct {
	Agent struct {
		LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`
	} `yaml:"agent"`
	Server struct {
		ControlFile     string `yaml:"control_file" env:"PZADMIN_CONTROL_FILE"`
		Delivery        string `yaml:"delivery" env:"PZADMIN_DELIVERY"`
		Shell           string `yaml:"shell" env:"PZADMIN_SHELL"`
		TimeoutMS       int    `yaml:"timeout_ms" env:"PZADMIN_COMMAND_TIMEOUT_MS"`
		SerializeWrites bool   `yaml:"serialize_writes" env:"PZADMIN_SERIALIZE_WRITES"`
		ProcessName     string `yaml:"process_name" env:"PZADMIN_PROCESS_NAME"`
		RCON            struct {
			Addr     string `yaml:"addr" env:"PZADMIN_RCON_ADDR"`
			Password string `yaml:"password" env:"PZADMIN_RCON_PASSWORD"`
		} `yaml:"rcon"`
	} `yaml:"server"`
	SQLite struct {
		Driver        string `yaml:"driver" env:"PZADMIN_SQLITE_DRIVER"`
		Path          string `yaml:"path" env:"PZADMIN_SQLITE_PATH"`
		RetentionDays int    `yaml:"retention_days" env:"PZADMIN_RETENTION_DAYS"`
	} `yaml:"sqlite"`
	Scheduler struct {
		IntervalSeconds int                `yaml:"interval_seconds"`
		Commands        []ScheduledCommand `yaml:"commands"`
	} `yaml:"scheduler"`
	Web struct {
		Enabled          bool     `yaml:"enabled" env:"PZADMIN_WEB_ENABLED"`
		ListenAddr       string   `yaml:"listen_addr" env:"PZADMIN_WEB_LISTEN_ADDR"`
		ReadTimeoutMS    int      `yaml:"read_timeout_ms"`
		WriteTimeoutMS   int      `yaml:"write_timeout_ms"`
		RequestTimeoutMS int      `yaml:"request_timeout_ms"`
		ShutdownTimeoutS int      `yaml:"shutdown_timeout_s"`
		MaxBodyBytes     int64    `yaml:"max_body_bytes"`
		RateLimitRPS     float64  `yaml:"rate_limit_rps"`
		RateLimitBurst   int      `yaml:"rate_limit_burst"`
		CORSOrigins      []string `yaml:"cors_allowed_origins" env:"PZADMIN_WEB_CORS_ORIGINS" envSeparator:","`
	} `yaml:"web"`
}

// ScheduledCommand: команда серверу по cron-расписанию.
type ScheduledCommand struct {
	Spec    string `yaml:"spec"`
	Command string `yaml:"command"`
}

// Default возвращает конфигурацию по умолчанию.
func Default() Config {
	var cfg Config
	cfg.Agent.LogLevel = "info"
	cfg.Server.ControlFile = "/opt/pzserver/zomboid.control"
	cfg.Server.Delivery = "file"
	cfg.Server.Shell = "/bin/bash"
	cfg.Server.TimeoutMS = 10000
	cfg.Server.SerializeWrites = true
	cfg.Server.ProcessName = "ProjectZomboid64"
	cfg.SQLite.Driver = "sqlite3"
	cfg.SQLite.Path = "/var/lib/pzadmin/state.db"
	cfg.SQLite.RetentionDays = 30
	cfg.Scheduler.IntervalSeconds = 60
	cfg.Web.Enabled = true
	cfg.Web.ListenAddr = "127.0.0.1:8080"
	cfg.Web.ReadTimeoutMS = 2000
	cfg.Web.WriteTimeoutMS = 15000
	cfg.Web.RequestTimeoutMS = 12000
	cfg.Web.ShutdownTimeoutS = 5
	cfg.Web.MaxBodyBytes = 1 << 20
	cfg.Web.RateLimitRPS = 5
	cfg.Web.RateLimitBurst = 10
	return cfg
}

// Load читает YAML поверх значений по умолчанию, затем применяет переменные окружения.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 -- путь к конфигу задается доверенным оператором/CI.
		if err != nil {
			return cfg, err
		}
		if len(data) == 0 {
			return cfg, errors.New("config file is empty")
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// applyEnv накладывает PZADMIN_* поверх секций со скалярными полями.
// Scheduler не разбирается: список команд задаётся только в YAML.
func applyEnv(cfg *Config) error {
	targets := []any{&cfg.Agent, &cfg.Server, &cfg.SQLite, &cfg.Web}
	for _, target := range targets {
		if err := env.Parse(target); err != nil {
			return fmt.Errorf("parse env: %w", err)
		}
	}
	return nil
}

// Validate проверяет значения, от которых зависит запуск.
func (c Config) Validate() error {
	switch c.Server.Delivery {
	case "file", "shell":
		if c.Server.ControlFile == "" {
			return errors.New("server.control_file is required")
		}
	case "rcon":
		if c.Server.RCON.Addr == "" {
			return errors.New("server.rcon.addr is required for rcon delivery")
		}
	default:
		return fmt.Errorf("unknown server.delivery %q", c.Server.Delivery)
	}
	switch c.SQLite.Driver {
	case "sqlite3", "sqlite":
	default:
		return fmt.Errorf("unknown sqlite.driver %q", c.SQLite.Driver)
	}
	if c.Server.TimeoutMS < 0 {
		return errors.New("server.timeout_ms must not be negative")
	}
	for i, sc := range c.Scheduler.Commands {
		if sc.Spec == "" || sc.Command == "" {
			return fmt.Errorf("scheduler.commands[%d]: spec and command are required", i)
		}
	}
	return nil
}
