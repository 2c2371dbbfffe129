// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/jeranaias/helia-tui/internal/util"
)

// =============================================================================
// CONFIG TYPES
// =============================================================================

// Config is the top-level helia configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	API     APIConfig     `toml:"api" json:"api"`
	Chat    ChatConfig    `toml:"chat" json:"chat"`
	Credits CreditsConfig `toml:"credits" json:"credits"`
	Log     LogConfig     `toml:"log" json:"log"`
	UI      UIConfig      `toml:"ui" json:"ui"`
}

// APIConfig configures the connection to the Helia API.
type APIConfig struct {
	BaseURL string `toml:"base_url" json:"base_url" validate:"required,url"`

	// RequestTimeout bounds REST calls (sessions, history, auth).
	RequestTimeout time.Duration `toml:"request_timeout" json:"request_timeout" validate:"min=1s"`

	// StreamTimeout bounds one message send including the whole reply.
	StreamTimeout time.Duration `toml:"stream_timeout" json:"stream_timeout" validate:"min=1s"`

	// RateLimit is the sustained client request rate per second; 0 disables.
	RateLimit float64 `toml:"rate_limit" json:"rate_limit" validate:"min=0"`
	RateBurst int     `toml:"rate_burst" json:"rate_burst" validate:"min=0"`

	// MaxRetries applies to idempotent REST calls on 5xx responses.
	MaxRetries int `toml:"max_retries" json:"max_retries" validate:"min=0,max=10"`
}

// ChatConfig configures chat behavior.
type ChatConfig struct {
	DefaultModel string `toml:"default_model" json:"default_model"`

	// SessionNameLength is how many characters of the first message name a
	// new session.
	SessionNameLength int `toml:"session_name_length" json:"session_name_length" validate:"min=1,max=200"`

	// ErrorText replaces the reply when a stream fails.
	ErrorText string `toml:"error_text" json:"error_text" validate:"required"`
}

// CreditsConfig configures the local credit ledger.
type CreditsConfig struct {
	Initial int `toml:"initial" json:"initial" validate:"min=0"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `toml:"level" json:"level" validate:"oneof=debug info warn error"`
	Format string `toml:"format" json:"format" validate:"oneof=text json"`

	// File receives log output. Empty discards logs while the TUI runs.
	File string `toml:"file" json:"file"`
}

// UIConfig configures the terminal interface.
type UIConfig struct {
	RenderMarkdown bool   `toml:"render_markdown" json:"render_markdown"`
	Theme          string `toml:"theme" json:"theme" validate:"oneof=auto dark light"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// DefaultErrorText is shown in place of a failed reply.
const DefaultErrorText = "Sorry, there was an error processing your request."

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version: "1",
		API: APIConfig{
			BaseURL:        "http://localhost:5000",
			RequestTimeout: 30 * time.Second,
			StreamTimeout:  5 * time.Minute,
			RateLimit:      5,
			RateBurst:      10,
			MaxRetries:     2,
		},
		Chat: ChatConfig{
			DefaultModel:      "sun-shield",
			SessionNameLength: 30,
			ErrorText:         DefaultErrorText,
		},
		Credits: CreditsConfig{
			Initial: 100,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		UI: UIConfig{
			RenderMarkdown: true,
			Theme:          "auto",
		},
	}
}

// fillDefaults fills zero values with defaults. Booleans are left alone;
// they are only defaulted when the key is absent from the file.
func fillDefaults(cfg *Config, meta *toml.MetaData) {
	d := Default()

	if cfg.Version == "" {
		cfg.Version = d.Version
	}

	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = d.API.BaseURL
	}
	if cfg.API.RequestTimeout == 0 {
		cfg.API.RequestTimeout = d.API.RequestTimeout
	}
	if cfg.API.StreamTimeout == 0 {
		cfg.API.StreamTimeout = d.API.StreamTimeout
	}
	if meta == nil || !meta.IsDefined("api", "rate_limit") {
		cfg.API.RateLimit = d.API.RateLimit
	}
	if cfg.API.RateBurst == 0 {
		cfg.API.RateBurst = d.API.RateBurst
	}
	if meta == nil || !meta.IsDefined("api", "max_retries") {
		cfg.API.MaxRetries = d.API.MaxRetries
	}

	if cfg.Chat.DefaultModel == "" {
		cfg.Chat.DefaultModel = d.Chat.DefaultModel
	}
	if cfg.Chat.SessionNameLength == 0 {
		cfg.Chat.SessionNameLength = d.Chat.SessionNameLength
	}
	if cfg.Chat.ErrorText == "" {
		cfg.Chat.ErrorText = d.Chat.ErrorText
	}

	if meta == nil || !meta.IsDefined("credits", "initial") {
		cfg.Credits.Initial = d.Credits.Initial
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = d.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = d.Log.Format
	}

	if meta == nil || !meta.IsDefined("ui", "render_markdown") {
		cfg.UI.RenderMarkdown = d.UI.RenderMarkdown
	}
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = d.UI.Theme
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// Dir returns the helia home directory.
func Dir() (string, error) {
	if dir := os.Getenv("HELIA_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".helia"), nil
}

// Path returns the path of config.toml.
func Path() (string, error) {
	return inDir("config.toml")
}

// CredentialsPath returns the path of the stored login tokens.
func CredentialsPath() (string, error) {
	return inDir("credentials.json")
}

// DatabasePath returns the path of the local SQLite database.
func DatabasePath() (string, error) {
	return inDir("helia.db")
}

func inDir(name string) (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load reads config.toml from the helia home directory. A missing file
// yields the defaults. Environment overrides and validation are applied in
// both cases.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from path.
func LoadFromPath(path string) (*Config, error) {
	// .env never overrides variables already set in the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{}
	var meta *toml.MetaData
	if _, statErr := os.Stat(path); statErr == nil {
		md, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
		meta = &md
	} else if !errors.Is(statErr, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat %s: %w", path, statErr)
	}

	fillDefaults(cfg, meta)
	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to config.toml.
func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration to path with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# helia configuration file\n")
	buf.WriteString("# Generated by helia - edit with care\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies HELIA_* environment variables:
//
//   - HELIA_API_URL: overrides api.base_url
//   - HELIA_MODEL: overrides chat.default_model
//   - HELIA_STREAM_TIMEOUT: overrides api.stream_timeout (Go duration)
//   - HELIA_LOG_LEVEL: overrides log.level
//   - HELIA_LOG_FILE: overrides log.file
func (c *Config) ApplyEnvOverrides() error {
	if url := os.Getenv("HELIA_API_URL"); url != "" {
		c.API.BaseURL = strings.TrimRight(url, "/")
	}
	if model := os.Getenv("HELIA_MODEL"); model != "" {
		c.Chat.DefaultModel = model
	}
	if timeout := os.Getenv("HELIA_STREAM_TIMEOUT"); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return fmt.Errorf("HELIA_STREAM_TIMEOUT: %w", err)
		}
		c.API.StreamTimeout = d
	}
	if level := os.Getenv("HELIA_LOG_LEVEL"); level != "" {
		c.Log.Level = strings.ToLower(level)
	}
	if file := os.Getenv("HELIA_LOG_FILE"); file != "" {
		c.Log.File = file
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidationError describes one invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks struct tags and cross-field rules.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			errs = append(errs, ValidationError{
				Field:   tomlPath(fe.StructNamespace()),
				Message: describe(fe),
			})
		}
	}

	if c.API.RateLimit > 0 && c.API.RateBurst < 1 {
		errs = append(errs, ValidationError{
			Field:   "api.rate_burst",
			Message: "must be at least 1 when api.rate_limit is set",
		})
	}
	if c.API.StreamTimeout < c.API.RequestTimeout {
		errs = append(errs, ValidationError{
			Field:   "api.stream_timeout",
			Message: "must not be shorter than api.request_timeout",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "url":
		return fmt.Sprintf("invalid URL %q", fe.Value())
	case "oneof":
		return fmt.Sprintf("invalid value %q, must be one of: %s", fe.Value(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min":
		if _, ok := fe.Value().(time.Duration); ok {
			return "must be at least 1s"
		}
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}

// tomlPath turns "Config.API.BaseURL" into "api.base_url".
func tomlPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 0 && parts[0] == "Config" {
		parts = parts[1:]
	}

	t := reflect.TypeOf(Config{})
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		f, ok := t.FieldByName(p)
		if !ok {
			keys = append(keys, strings.ToLower(p))
			continue
		}
		keys = append(keys, strings.Split(f.Tag.Get("toml"), ",")[0])
		t = f.Type
	}
	return strings.Join(keys, ".")
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get returns the value at a TOML key path such as "api.base_url".
func (c *Config) Get(key string) (any, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set parses value into the field at a TOML key path.
func (c *Config) Set(key, value string) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if key == "" {
		return reflect.Value{}, errors.New("empty key")
	}

	v := reflect.ValueOf(c).Elem()
	parts := strings.Split(key, ".")
	for i, part := range parts {
		field, ok := fieldByTOMLName(v, part)
		if !ok {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			if field.Kind() == reflect.Struct {
				return reflect.Value{}, fmt.Errorf("%s is a section, not a value", key)
			}
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a section", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

func fieldByTOMLName(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		tag := strings.Split(t.Field(i).Tag.Get("toml"), ",")[0]
		if tag == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

var durationType = reflect.TypeOf(time.Duration(0))

func setFieldValue(field reflect.Value, value string) error {
	if field.Type() == durationType {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration value: %w", err)
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer value: %w", err)
		}
		field.SetInt(n)
	case reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid float value: %w", err)
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean value: %w", err)
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("unsupported field type %s", field.Type())
	}
	return nil
}

// Keys returns every settable TOML key path.
func Keys() []string {
	var keys []string
	var walk func(t reflect.Type, prefix string)
	walk = func(t reflect.Type, prefix string) {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			name := prefix + strings.Split(f.Tag.Get("toml"), ",")[0]
			if f.Type.Kind() == reflect.Struct && f.Type != durationType {
				walk(f.Type, name+".")
				continue
			}
			keys = append(keys, name)
		}
	}
	walk(reflect.TypeOf(Config{}), "")
	return keys
}
