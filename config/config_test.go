package config

import (
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/lima/endpoint"
	"github.com/kbukum/lima/logger"
	"github.com/kbukum/lima/retry"
)

func TestSettingsApplyDefaults(t *testing.T) {
	var s Settings
	s.ApplyDefaults()

	if s.BracketRegex != endpoint.DefaultBrackets {
		t.Errorf("BracketRegex = %q", s.BracketRegex)
	}
	if s.DefaultTimeout != 15*time.Second {
		t.Errorf("DefaultTimeout = %v", s.DefaultTimeout)
	}
	if s.DefaultResponseCode != 0 {
		t.Errorf("DefaultResponseCode = %d", s.DefaultResponseCode)
	}
	if s.DefaultDumpMode != "dict" {
		t.Errorf("DefaultDumpMode = %q", s.DefaultDumpMode)
	}
	if s.RetryAfterMaxRetries != 1 || s.AutologinMaxRetries != 1 {
		t.Errorf("retry limits = %d, %d", s.RetryAfterMaxRetries, s.AutologinMaxRetries)
	}
	if s.RetryAfterMinSleep != time.Second {
		t.Errorf("RetryAfterMinSleep = %v", s.RetryAfterMinSleep)
	}
	if s.AutoStart || s.AutoClose {
		t.Error("auto flags must default to false")
	}
	if err := s.Validate(); err != nil {
		t.Errorf("Validate() after defaults = %v", err)
	}
}

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
		errMsg string
	}{
		{"no capture group", func(s *Settings) { s.BracketRegex = `\{.+?\}` }, "bracket_regex"},
		{"bad regex", func(s *Settings) { s.BracketRegex = `(` }, "bracket_regex"},
		{"unknown dump mode", func(s *Settings) { s.DefaultDumpMode = "yaml" }, "default_dump_mode"},
		{"negative timeout", func(s *Settings) { s.DefaultTimeout = -time.Second }, "default_timeout"},
		{"bad status", func(s *Settings) { s.DefaultResponseCode = 42 }, "default_response_code"},
		{"bad log level", func(s *Settings) { s.Logging.Level = "loud" }, "logging"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var s Settings
			s.ApplyDefaults()
			tc.mutate(&s)
			err := s.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.errMsg) {
				t.Errorf("error %q does not mention %q", err, tc.errMsg)
			}
		})
	}
}

func TestSettingsTemplate(t *testing.T) {
	s := Settings{BracketRegex: `\[(.+?)\]`}
	tmpl, err := s.Template()
	if err != nil {
		t.Fatalf("Template() error = %v", err)
	}
	got, err := tmpl.Resolve("/pet/[petId]", map[string]string{"petId": "1"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != "/pet/1" {
		t.Errorf("Resolve() = %q", got)
	}

	var def Settings
	tmpl, err = def.Template()
	if err != nil || tmpl != endpoint.DefaultTemplate {
		t.Errorf("empty regex should give the default template, got %v, %v", tmpl, err)
	}
}

func TestSettingsDump(t *testing.T) {
	tests := []struct {
		in   string
		want endpoint.DumpMode
	}{
		{"", endpoint.DumpDict},
		{"dict", endpoint.DumpDict},
		{"DICT_NONE", endpoint.DumpDictNone},
		{"json", endpoint.DumpJSON},
		{"json_none", endpoint.DumpJSONNone},
	}
	for _, tc := range tests {
		s := Settings{DefaultDumpMode: tc.in}
		got, err := s.Dump()
		if err != nil {
			t.Errorf("Dump(%q) error = %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Dump(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestLoadWithYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "petstore.yml")
	content := `
bracket_regex: '\[(.+?)\]'
default_timeout: 30s
default_response_code: 200
default_dump_mode: json
retry_after_min_sleep: 2s
auto_start: true
logging:
  level: debug
  format: json
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	var s Settings
	if err := Load("petstore", &s, WithConfigFile(path)); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.BracketRegex != `\[(.+?)\]` {
		t.Errorf("BracketRegex = %q", s.BracketRegex)
	}
	if s.DefaultTimeout != 30*time.Second {
		t.Errorf("DefaultTimeout = %v", s.DefaultTimeout)
	}
	if s.DefaultResponseCode != 200 {
		t.Errorf("DefaultResponseCode = %d", s.DefaultResponseCode)
	}
	if s.DefaultDumpMode != "json" {
		t.Errorf("DefaultDumpMode = %q", s.DefaultDumpMode)
	}
	if s.RetryAfterMinSleep != 2*time.Second {
		t.Errorf("RetryAfterMinSleep = %v", s.RetryAfterMinSleep)
	}
	if !s.AutoStart {
		t.Error("AutoStart = false")
	}
	if s.Logging.Level != "debug" || s.Logging.Format != "json" {
		t.Errorf("Logging = %+v", s.Logging)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lima.yml")
	if err := os.WriteFile(path, []byte("default_timeout: 30s\nlogging:\n  level: info\n"), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv("LIMA_DEFAULT_TIMEOUT", "45s")
	t.Setenv("LIMA_AUTO_CLOSE", "true")
	t.Setenv("LIMA_LOGGING_LEVEL", "warn")

	var s Settings
	if err := Load("petstore", &s, WithConfigFile(path)); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.DefaultTimeout != 45*time.Second {
		t.Errorf("DefaultTimeout = %v, want 45s", s.DefaultTimeout)
	}
	if !s.AutoClose {
		t.Error("AutoClose = false, want true")
	}
	if s.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn", s.Logging.Level)
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("LIMA_AUTOLOGIN_MAX_RETRIES=3\n"), 0o644); err != nil {
		t.Fatalf("failed to write env: %v", err)
	}
	t.Cleanup(func() { _ = os.Unsetenv("LIMA_AUTOLOGIN_MAX_RETRIES") })

	var s Settings
	if err := Load("petstore", &s, WithEnvFile(envPath), WithSearchDirs(dir)); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.AutologinMaxRetries != 3 {
		t.Errorf("AutologinMaxRetries = %d, want 3", s.AutologinMaxRetries)
	}
}

func TestLoadMissingFiles(t *testing.T) {
	var s Settings
	err := Load("nonexistent", &s, WithConfigFile("/nonexistent/path.yml"), WithSearchDirs(t.TempDir()))
	if err != nil {
		t.Fatalf("expected Load to succeed with missing files, got %v", err)
	}
}

type mockFS struct {
	files  map[string]bool
	loaded []string
}

func (m *mockFS) Exists(path string) bool { return m.files[path] }
func (m *mockFS) LoadEnv(path string) error {
	m.loaded = append(m.loaded, path)
	return nil
}

func TestResolve(t *testing.T) {
	fs := &mockFS{files: map[string]bool{
		"config/petstore.yml": true,
		"lima.yml":            true,
		".env.petstore":       true,
		".env":                true,
	}}

	files := Resolve("petstore", LoaderConfig{FileSystem: fs})
	if files.ConfigFile != "config/petstore.yml" {
		t.Errorf("ConfigFile = %q", files.ConfigFile)
	}
	if files.EnvFile != ".env.petstore" {
		t.Errorf("EnvFile = %q", files.EnvFile)
	}

	files = Resolve("other", LoaderConfig{FileSystem: fs})
	if files.ConfigFile != "lima.yml" || files.EnvFile != ".env" {
		t.Errorf("fallback files = %+v", files)
	}

	files = Resolve("petstore", LoaderConfig{FileSystem: fs, ConfigFile: "/etc/lima.yml"})
	if files.ConfigFile != "/etc/lima.yml" {
		t.Errorf("explicit ConfigFile = %q", files.ConfigFile)
	}
}

func TestEnvKeyVariants(t *testing.T) {
	got := envKeyVariants("LOGGING_LEVEL")
	for _, want := range []string{"logging_level", "logging.level"} {
		if !slices.Contains(got, want) {
			t.Errorf("envKeyVariants(LOGGING_LEVEL) = %v, missing %q", got, want)
		}
	}
	if got := envKeyVariants("TIMEOUT"); len(got) != 1 || got[0] != "timeout" {
		t.Errorf("envKeyVariants(TIMEOUT) = %v", got)
	}
	got = envKeyVariants("RETRY_AFTER_MIN_SLEEP")
	for _, want := range []string{"retry_after_min_sleep", "retry_after.min_sleep", "retry.after.min.sleep"} {
		if !slices.Contains(got, want) {
			t.Errorf("envKeyVariants(RETRY_AFTER_MIN_SLEEP) = %v, missing %q", got, want)
		}
	}
}

func TestSettingsEndpointOptions(t *testing.T) {
	type filter struct {
		Page int `json:"page"`
	}
	s := Settings{BracketRegex: `\[(.+?)\]`, DefaultDumpMode: "json"}
	opts, err := s.EndpointOptions()
	if err != nil {
		t.Fatalf("EndpointOptions() error = %v", err)
	}

	d, err := endpoint.New(http.MethodGet, "/pet/[petId]", append(opts, endpoint.Params(
		endpoint.PathParam[int]("petId"),
		endpoint.Param[filter]("filter"),
	))...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if got := d.Placeholders(); !slices.Equal(got, []string{"petId"}) {
		t.Errorf("Placeholders() = %v", got)
	}
	for _, p := range d.Params() {
		if p.Name == "filter" && (p.Location != endpoint.LocationQuery || p.Dump != endpoint.DumpJSON) {
			t.Errorf("filter = %s/%s, want query/json", p.Location, p.Dump)
		}
	}

	override, err := endpoint.New(http.MethodGet, "/pet/{petId}", append(opts,
		endpoint.WithTemplate(endpoint.DefaultTemplate),
		endpoint.Params(endpoint.PathParam[int]("petId")),
	)...)
	if err != nil {
		t.Fatalf("New() with later template error = %v", err)
	}
	if got := override.Placeholders(); !slices.Equal(got, []string{"petId"}) {
		t.Errorf("override Placeholders() = %v", got)
	}

	bad := Settings{DefaultDumpMode: "yaml"}
	if _, err := bad.EndpointOptions(); err == nil {
		t.Error("expected an error for an unknown dump mode")
	}
}

func TestSettingsInitLogging(t *testing.T) {
	prev := logger.GetGlobalLogger()
	t.Cleanup(func() { logger.SetGlobalLogger(prev) })

	s := Settings{}
	s.ApplyDefaults()
	s.Logging.Level = "warn"
	s.InitLogging()

	if logger.GetGlobalLogger() == prev {
		t.Error("expected InitLogging to replace the global logger")
	}
}

func TestSettingsRetryFactories(t *testing.T) {
	s := Settings{RetryAfterMaxRetries: 2, RetryAfterMinSleep: 3 * time.Second, AutologinMaxRetries: 4}

	ra, ok := s.RetryAfter()().(*retry.RetryAfter)
	if !ok {
		t.Fatal("RetryAfter() did not build a *retry.RetryAfter")
	}
	if ra.MaxRetry != 2 || ra.MinSleep != 3*time.Second {
		t.Errorf("RetryAfter = %+v", ra)
	}

	al, ok := s.AutoLogin()().(*retry.AutoLogin)
	if !ok {
		t.Fatal("AutoLogin() did not build a *retry.AutoLogin")
	}
	if al.MaxRetry != 4 {
		t.Errorf("AutoLogin.MaxRetry = %d", al.MaxRetry)
	}
}
