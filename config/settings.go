package config

import (
	"fmt"
	"time"

	"github.com/kbukum/lima/endpoint"
	"github.com/kbukum/lima/logger"
	"github.com/kbukum/lima/retry"
)

// Defaults for session settings.
const (
	DefaultTimeout              = 15 * time.Second
	DefaultRetryAfterMaxRetries = retry.DefaultRetryAfterMaxRetries
	DefaultRetryAfterMinSleep   = retry.DefaultRetryAfterMinSleep
	DefaultAutologinMaxRetries  = retry.DefaultAutoLoginMaxRetries
)

// Settings holds library-wide session settings.
//
// Embed it in a larger config struct with `mapstructure:",squash"` to load it
// from the document root.
type Settings struct {
	BracketRegex         string        `yaml:"bracket_regex" mapstructure:"bracket_regex"`
	DefaultTimeout       time.Duration `yaml:"default_timeout" mapstructure:"default_timeout"`
	DefaultResponseCode  int           `yaml:"default_response_code" mapstructure:"default_response_code"`
	DefaultDumpMode      string        `yaml:"default_dump_mode" mapstructure:"default_dump_mode"`
	RetryAfterMaxRetries int           `yaml:"retry_after_max_retries" mapstructure:"retry_after_max_retries"`
	RetryAfterMinSleep   time.Duration `yaml:"retry_after_min_sleep" mapstructure:"retry_after_min_sleep"`
	AutologinMaxRetries  int           `yaml:"autologin_max_retries" mapstructure:"autologin_max_retries"`
	AutoStart            bool          `yaml:"auto_start" mapstructure:"auto_start"`
	AutoClose            bool          `yaml:"auto_close" mapstructure:"auto_close"`
	Logging              logger.Config `yaml:"logging" mapstructure:"logging"`
}

// ApplyDefaults fills unset fields.
func (s *Settings) ApplyDefaults() {
	if s.BracketRegex == "" {
		s.BracketRegex = endpoint.DefaultBrackets
	}
	if s.DefaultTimeout == 0 {
		s.DefaultTimeout = DefaultTimeout
	}
	if s.DefaultDumpMode == "" {
		s.DefaultDumpMode = endpoint.DefaultDumpMode.String()
	}
	if s.RetryAfterMaxRetries == 0 {
		s.RetryAfterMaxRetries = DefaultRetryAfterMaxRetries
	}
	if s.RetryAfterMinSleep == 0 {
		s.RetryAfterMinSleep = DefaultRetryAfterMinSleep
	}
	if s.AutologinMaxRetries == 0 {
		s.AutologinMaxRetries = DefaultAutologinMaxRetries
	}
	s.Logging.ApplyDefaults()
}

// Validate checks the settings after defaults were applied.
func (s *Settings) Validate() error {
	if _, err := s.Template(); err != nil {
		return fmt.Errorf("config.bracket_regex: %w", err)
	}
	if _, err := s.Dump(); err != nil {
		return fmt.Errorf("config.default_dump_mode: %w", err)
	}
	if s.DefaultTimeout < 0 {
		return fmt.Errorf("config.default_timeout must not be negative (got: %s)", s.DefaultTimeout)
	}
	if s.DefaultResponseCode != 0 && (s.DefaultResponseCode < 100 || s.DefaultResponseCode > 599) {
		return fmt.Errorf("config.default_response_code must be 0 or a valid HTTP status (got: %d)", s.DefaultResponseCode)
	}
	if s.RetryAfterMaxRetries < 0 || s.AutologinMaxRetries < 0 {
		return fmt.Errorf("config: retry limits must not be negative")
	}
	if err := s.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	return nil
}

// Template compiles BracketRegex into a path template.
func (s *Settings) Template() (*endpoint.Template, error) {
	if s.BracketRegex == "" || s.BracketRegex == endpoint.DefaultBrackets {
		return endpoint.DefaultTemplate, nil
	}
	return endpoint.NewTemplate(s.BracketRegex)
}

// Dump parses DefaultDumpMode.
func (s *Settings) Dump() (endpoint.DumpMode, error) {
	m, err := endpoint.ParseDumpMode(s.DefaultDumpMode)
	if err != nil {
		return m, err
	}
	if m == endpoint.DumpDefault {
		return endpoint.DefaultDumpMode, nil
	}
	return m, nil
}

// EndpointOptions returns the declaration options carrying the configured
// placeholder syntax and default dump mode. Options given after them win:
//
//	opts, _ := s.EndpointOptions()
//	getPet := endpoint.MustNew(http.MethodGet, "/pet/[petId]", append(opts, endpoint.Params(...))...)
func (s *Settings) EndpointOptions() ([]endpoint.Option, error) {
	tmpl, err := s.Template()
	if err != nil {
		return nil, fmt.Errorf("config.bracket_regex: %w", err)
	}
	dump, err := s.Dump()
	if err != nil {
		return nil, fmt.Errorf("config.default_dump_mode: %w", err)
	}
	return []endpoint.Option{endpoint.WithTemplate(tmpl), endpoint.DefaultDump(dump)}, nil
}

// InitLogging installs the logging settings as the global lima logger.
// Clients created without an explicit Logger use it.
func (s *Settings) InitLogging() {
	logger.Init(s.Logging)
}

// RetryAfter returns a retry-after processor factory bounded by the settings.
func (s *Settings) RetryAfter() retry.Factory {
	return retry.RetryAfterFactory(s.RetryAfterMaxRetries, s.RetryAfterMinSleep)
}

// AutoLogin returns an auto-login processor factory bounded by the settings.
func (s *Settings) AutoLogin() retry.Factory {
	return retry.AutoLoginFactory(s.AutologinMaxRetries)
}
