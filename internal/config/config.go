// File: internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/xkilldash9x/flowrunner/internal/browser/locator"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Browser() BrowserConfig
	Target() TargetConfig
	Wait() WaitConfig
	Flows() FlowsConfig

	// Target Setters
	SetTargetBaseURL(string)

	// Browser Setters
	SetBrowserHeadless(bool)
	SetBrowserRemoteURL(string)

	// Wait Setters
	SetWaitElementTimeout(d time.Duration)
	SetWaitNavigationTimeout(d time.Duration)

	// Flow Setters
	SetLoginKeepOpen(bool)
	SetRegisterKeepOpen(bool)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	BrowserCfg BrowserConfig `mapstructure:"browser" yaml:"browser"`
	TargetCfg  TargetConfig  `mapstructure:"target" yaml:"target"`
	WaitCfg    WaitConfig    `mapstructure:"wait" yaml:"wait"`
	FlowsCfg   FlowsConfig   `mapstructure:"flows" yaml:"flows"`
}

var _ Interface = (*Config)(nil)

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig   { return c.LoggerCfg }
func (c *Config) Browser() BrowserConfig { return c.BrowserCfg }
func (c *Config) Target() TargetConfig   { return c.TargetCfg }
func (c *Config) Wait() WaitConfig       { return c.WaitCfg }
func (c *Config) Flows() FlowsConfig     { return c.FlowsCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetTargetBaseURL(u string) { c.TargetCfg.BaseURL = u }

func (c *Config) SetBrowserHeadless(b bool)    { c.BrowserCfg.Headless = b }
func (c *Config) SetBrowserRemoteURL(u string) { c.BrowserCfg.RemoteURL = u }

func (c *Config) SetWaitElementTimeout(d time.Duration)    { c.WaitCfg.ElementTimeout = d }
func (c *Config) SetWaitNavigationTimeout(d time.Duration) { c.WaitCfg.NavigationTimeout = d }

func (c *Config) SetLoginKeepOpen(b bool)    { c.FlowsCfg.Login.KeepOpen = b }
func (c *Config) SetRegisterKeepOpen(b bool) { c.FlowsCfg.Register.KeepOpen = b }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds settings for the launched (or attached) browser.
type BrowserConfig struct {
	Headless   bool     `mapstructure:"headless" yaml:"headless"`
	NoSandbox  bool     `mapstructure:"no_sandbox" yaml:"no_sandbox"`
	DisableGPU bool     `mapstructure:"disable_gpu" yaml:"disable_gpu"`
	ExecPath   string   `mapstructure:"exec_path" yaml:"exec_path"`
	// RemoteURL attaches to an already running browser's DevTools endpoint
	// instead of launching one (e.g. ws://127.0.0.1:9222/devtools/browser/...).
	RemoteURL    string   `mapstructure:"remote_url" yaml:"remote_url"`
	Proxy        string   `mapstructure:"proxy" yaml:"proxy"`
	UserAgent    string   `mapstructure:"user_agent" yaml:"user_agent"`
	WindowWidth  int      `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight int      `mapstructure:"window_height" yaml:"window_height"`
	Args         []string `mapstructure:"args" yaml:"args"`
	Debug        bool     `mapstructure:"debug" yaml:"debug"`
	// FailureScreenshotDir, when set, receives a PNG of the page whenever a step fails.
	FailureScreenshotDir string `mapstructure:"failure_screenshot_dir" yaml:"failure_screenshot_dir"`
}

// TargetConfig locates the web application under automation.
type TargetConfig struct {
	BaseURL   string `mapstructure:"base_url" yaml:"base_url"`
	LoginPath string `mapstructure:"login_path" yaml:"login_path"`
}

// LoginURL resolves the login path against the base URL.
func (t TargetConfig) LoginURL() (string, error) {
	base, err := url.Parse(t.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid target.base_url %q: %w", t.BaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("target.base_url %q must be absolute", t.BaseURL)
	}
	ref, err := url.Parse(t.LoginPath)
	if err != nil {
		return "", fmt.Errorf("invalid target.login_path %q: %w", t.LoginPath, err)
	}
	return base.ResolveReference(ref).String(), nil
}

// WaitConfig tunes the condition-based waits used in place of fixed sleeps.
type WaitConfig struct {
	ElementTimeout    time.Duration `mapstructure:"element_timeout" yaml:"element_timeout"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	PollInterval      time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	// TypingDelay paces keystrokes; zero sends each value in a single dispatch.
	TypingDelay time.Duration `mapstructure:"typing_delay" yaml:"typing_delay"`
}

// FlowsConfig groups the per-journey settings.
type FlowsConfig struct {
	Login    LoginFlowConfig    `mapstructure:"login" yaml:"login"`
	Register RegisterFlowConfig `mapstructure:"register" yaml:"register"`
}

// LoginFlowConfig holds the credential pair and the login form locators.
type LoginFlowConfig struct {
	Email           string `mapstructure:"email" yaml:"email"`
	Password        string `mapstructure:"password" yaml:"-"`
	EmailLocator    string `mapstructure:"email_locator" yaml:"email_locator"`
	PasswordLocator string `mapstructure:"password_locator" yaml:"password_locator"`
	SubmitLocator   string `mapstructure:"submit_locator" yaml:"submit_locator"`
	// WaitForRedirect waits after submitting until the page leaves the login URL.
	WaitForRedirect bool `mapstructure:"wait_for_redirect" yaml:"wait_for_redirect"`
	KeepOpen        bool `mapstructure:"keep_open" yaml:"keep_open"`
}

// RegisterFlowConfig holds the registration form values and locators.
type RegisterFlowConfig struct {
	Name            string        `mapstructure:"name" yaml:"name"`
	Email           string        `mapstructure:"email" yaml:"email"`
	Password        string        `mapstructure:"password" yaml:"-"`
	LinkLocator     string        `mapstructure:"link_locator" yaml:"link_locator"`
	NameLocator     string        `mapstructure:"name_locator" yaml:"name_locator"`
	EmailLocator    string        `mapstructure:"email_locator" yaml:"email_locator"`
	PasswordLocator string        `mapstructure:"password_locator" yaml:"password_locator"`
	SubmitLocator   string        `mapstructure:"submit_locator" yaml:"submit_locator"`
	// WaitForRedirect waits after submitting until the page leaves the registration form.
	WaitForRedirect bool          `mapstructure:"wait_for_redirect" yaml:"wait_for_redirect"`
	SettleTime      time.Duration `mapstructure:"settle_time" yaml:"settle_time"`
	KeepOpen        bool          `mapstructure:"keep_open" yaml:"keep_open"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "flowrunner")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 20)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Browser --
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.no_sandbox", true)
	v.SetDefault("browser.disable_gpu", true)
	v.SetDefault("browser.window_width", 1280)
	v.SetDefault("browser.window_height", 800)
	v.SetDefault("browser.debug", false)
	// Empty defaults register the keys so AutomaticEnv can fill them.
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.remote_url", "")
	v.SetDefault("browser.proxy", "")
	v.SetDefault("browser.user_agent", "")
	v.SetDefault("browser.args", []string{})
	v.SetDefault("browser.failure_screenshot_dir", "")

	// -- Target --
	v.SetDefault("target.base_url", "http://localhost:3001")
	v.SetDefault("target.login_path", "/login")

	// -- Wait --
	v.SetDefault("wait.element_timeout", "10s")
	v.SetDefault("wait.navigation_timeout", "30s")
	v.SetDefault("wait.poll_interval", "100ms")
	v.SetDefault("wait.typing_delay", "0s")

	// -- Login flow --
	v.SetDefault("flows.login.email", "veritegas@gmail.com")
	v.SetDefault("flows.login.password", "Contrasena123!!")
	v.SetDefault("flows.login.email_locator", "id=email")
	v.SetDefault("flows.login.password_locator", "id=password")
	v.SetDefault("flows.login.submit_locator", "xpath=//button[contains(., 'Iniciar Sesión')]")
	v.SetDefault("flows.login.wait_for_redirect", true)
	v.SetDefault("flows.login.keep_open", false)

	// -- Register flow --
	v.SetDefault("flows.register.name", "Usuario de Prueba")
	v.SetDefault("flows.register.email", "prueba@example.com")
	v.SetDefault("flows.register.password", "12345678")
	v.SetDefault("flows.register.link_locator", "link=Regístrate")
	v.SetDefault("flows.register.name_locator", "id=name")
	v.SetDefault("flows.register.email_locator", "id=email")
	v.SetDefault("flows.register.password_locator", "id=password")
	v.SetDefault("flows.register.submit_locator", "xpath=//button[contains(., 'Registrarse')]")
	v.SetDefault("flows.register.wait_for_redirect", false)
	v.SetDefault("flows.register.settle_time", "3s")
	v.SetDefault("flows.register.keep_open", true)
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data
	_ = v.BindEnv("flows.login.password", "FLOWRUNNER_LOGIN_PASSWORD")
	_ = v.BindEnv("flows.register.password", "FLOWRUNNER_REGISTER_PASSWORD")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Unmarshal only sees bound keys that also have a default or a file entry.
	if p := os.Getenv("FLOWRUNNER_LOGIN_PASSWORD"); p != "" {
		cfg.FlowsCfg.Login.Password = p
	}
	if p := os.Getenv("FLOWRUNNER_REGISTER_PASSWORD"); p != "" {
		cfg.FlowsCfg.Register.Password = p
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if _, err := c.TargetCfg.LoginURL(); err != nil {
		return err
	}
	if err := c.WaitCfg.Validate(); err != nil {
		return fmt.Errorf("wait configuration invalid: %w", err)
	}
	if c.BrowserCfg.WindowWidth < 0 || c.BrowserCfg.WindowHeight < 0 {
		return fmt.Errorf("browser.window_width and browser.window_height must not be negative")
	}
	if err := c.FlowsCfg.Login.Validate(); err != nil {
		return fmt.Errorf("flows.login configuration invalid: %w", err)
	}
	if err := c.FlowsCfg.Register.Validate(); err != nil {
		return fmt.Errorf("flows.register configuration invalid: %w", err)
	}
	return nil
}

// Validate checks the WaitConfig settings.
func (w *WaitConfig) Validate() error {
	if w.ElementTimeout <= 0 {
		return fmt.Errorf("element_timeout must be a positive duration")
	}
	if w.NavigationTimeout <= 0 {
		return fmt.Errorf("navigation_timeout must be a positive duration")
	}
	if w.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be a positive duration")
	}
	if w.PollInterval >= w.ElementTimeout {
		return fmt.Errorf("poll_interval must be shorter than element_timeout")
	}
	if w.TypingDelay < 0 {
		return fmt.Errorf("typing_delay must not be negative")
	}
	return nil
}

// Validate checks the login flow values and locators.
func (l *LoginFlowConfig) Validate() error {
	if strings.TrimSpace(l.Email) == "" {
		return fmt.Errorf("email is required")
	}
	if l.Password == "" {
		return fmt.Errorf("password is required (hint: set FLOWRUNNER_LOGIN_PASSWORD)")
	}
	return validateLocators(map[string]string{
		"email_locator":    l.EmailLocator,
		"password_locator": l.PasswordLocator,
		"submit_locator":   l.SubmitLocator,
	})
}

// Validate checks the registration flow values and locators.
func (r *RegisterFlowConfig) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if strings.TrimSpace(r.Email) == "" {
		return fmt.Errorf("email is required")
	}
	if r.Password == "" {
		return fmt.Errorf("password is required (hint: set FLOWRUNNER_REGISTER_PASSWORD)")
	}
	if r.SettleTime < 0 {
		return fmt.Errorf("settle_time must not be negative")
	}
	return validateLocators(map[string]string{
		"link_locator":     r.LinkLocator,
		"name_locator":     r.NameLocator,
		"email_locator":    r.EmailLocator,
		"password_locator": r.PasswordLocator,
		"submit_locator":   r.SubmitLocator,
	})
}

func validateLocators(locs map[string]string) error {
	for key, raw := range locs {
		if _, err := locator.Parse(raw); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}
