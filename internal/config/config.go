// Package config provides Viper-based configuration loading for the tactics
// rule engine.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cory-johannsen/tactics/internal/game/critical"
)

// StorageConfig selects where actor flags and initiative records live.
type StorageConfig struct {
	// Backend is "memory" or "postgres".
	Backend string `mapstructure:"backend"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
	// Output is "stderr", "stdout", or a file path.
	Output string `mapstructure:"output"`
}

// RulesConfig holds the house-rule toggles.
type RulesConfig struct {
	CriticalHitOption      string `mapstructure:"critical_hit_option"`
	CriticalMissOption     string `mapstructure:"critical_miss_option"`
	EnableInitiativePhases bool   `mapstructure:"enable_initiative_phases"`
	EnableFatigue          bool   `mapstructure:"enable_fatigue"`
	Enable12SecondRounds   bool   `mapstructure:"enable_12_second_rounds"`
	Advance600EndCombat    bool   `mapstructure:"advance_600_end_combat"`
}

// CriticalOptions returns the critical hit and miss options. Unrecognized
// values read as none.
func (r RulesConfig) CriticalOptions() critical.Options {
	hit, _ := critical.ParseHitOption(r.CriticalHitOption)
	miss, _ := critical.ParseMissOption(r.CriticalMissOption)
	return critical.Options{Hit: hit, Miss: miss}
}

// InitiativeConfig holds initiative phase settings.
type InitiativeConfig struct {
	// Bands are the lowest initiative modifiers of the five phases, fastest
	// first.
	Bands []int `mapstructure:"bands"`
}

// ContentConfig holds paths to rule content.
type ContentConfig struct {
	// FumbleTable is a YAML fumble table; empty uses the built-in table.
	FumbleTable string `mapstructure:"fumble_table"`
	// CriticalTables is the critical hit table directory.
	CriticalTables string `mapstructure:"critical_tables"`
	// Entities is the actor and item registry file.
	Entities string `mapstructure:"entities"`
	// Scripts is the Lua house-rule script directory; empty disables scripting.
	Scripts string `mapstructure:"scripts"`
}

// ScriptingConfig holds Lua sandbox settings.
type ScriptingConfig struct {
	// InstructionLimit caps the VM instructions of one hook call.
	InstructionLimit int `mapstructure:"instruction_limit"`
}

// Config is the top-level application configuration.
type Config struct {
	Storage    StorageConfig    `mapstructure:"storage"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Rules      RulesConfig      `mapstructure:"rules"`
	Initiative InitiativeConfig `mapstructure:"initiative"`
	Content    ContentConfig    `mapstructure:"content"`
	Scripting  ScriptingConfig  `mapstructure:"scripting"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string
	for _, err := range []error{
		validateStorage(c.Storage),
		validateDatabase(c.Database),
		validateLogging(c.Logging),
		validateRules(c.Rules),
		validateInitiative(c.Initiative),
		validateScripting(c.Scripting),
	} {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateStorage(s StorageConfig) error {
	if s.Backend != "memory" && s.Backend != "postgres" {
		return fmt.Errorf("storage.backend must be one of [memory, postgres], got %q", s.Backend)
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	if l.Output == "" {
		return errors.New("logging.output must not be empty")
	}
	return nil
}

func validateRules(r RulesConfig) error {
	var errs []string
	if _, ok := critical.ParseHitOption(r.CriticalHitOption); !ok {
		errs = append(errs, fmt.Sprintf("rules.critical_hit_option must be one of %v, got %q", critical.HitOptions, r.CriticalHitOption))
	}
	if _, ok := critical.ParseMissOption(r.CriticalMissOption); !ok {
		errs = append(errs, fmt.Sprintf("rules.critical_miss_option must be one of %v, got %q", critical.MissOptions, r.CriticalMissOption))
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateInitiative(i InitiativeConfig) error {
	if len(i.Bands) != 5 {
		return fmt.Errorf("initiative.bands must list 5 lower bounds, got %d", len(i.Bands))
	}
	for k := 1; k < len(i.Bands); k++ {
		if i.Bands[k] <= i.Bands[k-1] {
			return fmt.Errorf("initiative.bands must be strictly increasing, got %v", i.Bands)
		}
	}
	return nil
}

func validateScripting(s ScriptingConfig) error {
	if s.InstructionLimit < 1 {
		return fmt.Errorf("scripting.instruction_limit must be >= 1, got %d", s.InstructionLimit)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with TACTICS_ prefix
	v.SetEnvPrefix("TACTICS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Defaults returns a Viper instance holding only default values.
func Defaults() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.backend", "memory")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "tactics")
	v.SetDefault("database.password", "tactics")
	v.SetDefault("database.name", "tactics")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stderr")

	v.SetDefault("rules.critical_hit_option", string(critical.HitNone))
	v.SetDefault("rules.critical_miss_option", string(critical.MissNone))
	v.SetDefault("rules.enable_initiative_phases", true)
	v.SetDefault("rules.enable_fatigue", true)
	v.SetDefault("rules.enable_12_second_rounds", false)
	v.SetDefault("rules.advance_600_end_combat", false)

	v.SetDefault("initiative.bands", []int{0, 3, 5, 8, 11})

	v.SetDefault("content.fumble_table", "")
	v.SetDefault("content.critical_tables", "content/crittables")
	v.SetDefault("content.entities", "content/entities.yaml")
	v.SetDefault("content.scripts", "")

	v.SetDefault("scripting.instruction_limit", 100000)
}
