// -- cmd/root.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/flowrunner/internal/config"
	"github.com/xkilldash9x/flowrunner/internal/observability"
)

type contextKey string

const configKey contextKey = "config"

// rootOptions holds the persistent flags. Flags only override the loaded
// configuration when the user actually set them.
type rootOptions struct {
	cfgFile   string
	envFile   string
	baseURL   string
	remoteURL string
	headless  bool
	timeout   time.Duration
	keepOpen  bool
	logLevel  string
}

// NewRootCommand builds a fresh command tree. Each call returns independent
// flag state, which keeps tests isolated.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "flowrunner",
		Short:         "flowrunner drives a browser through scripted login and registration journeys.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			config.SetDefaults(v)

			if err := initializeConfig(cmd, v, opts); err != nil {
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "flowrunner"})
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}

			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "flowrunner"})
				return fmt.Errorf("failed to load or validate config: %w", err)
			}
			applyFlagOverrides(cmd, cfg, opts)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid flag override: %w", err)
			}

			observability.InitializeLogger(cfg.Logger())
			observability.GetLogger().Debug("Configuration loaded.",
				zap.String("version", Version),
				zap.String("config_file", v.ConfigFileUsed()),
			)

			cmd.SetContext(context.WithValue(cmd.Context(), configKey, cfg))
			return nil
		},
	}
	cmd.SetVersionTemplate("{{.Name}} version {{.Version}}\n")

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.cfgFile, "config", "c", "", "config file (default is ./config.yaml or ~/.config/flowrunner/config.yaml)")
	pf.StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	pf.StringVar(&opts.baseURL, "base-url", "", "base URL of the application under test")
	pf.StringVar(&opts.remoteURL, "remote-url", "", "attach to a running browser's DevTools websocket instead of launching one")
	pf.BoolVar(&opts.headless, "headless", false, "run the browser without a window")
	pf.DurationVar(&opts.timeout, "timeout", 0, "element wait timeout (navigation waits get three times as long)")
	pf.BoolVar(&opts.keepOpen, "keep-open", false, "leave the browser open after the flow until interrupted")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newRegisterCmd())
	cmd.AddCommand(newFlowsCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// Execute runs the command tree with the signal-aware context from main.
func Execute(ctx context.Context) error {
	return run(ctx, NewRootCommand(), os.Args[1:])
}

// ExecuteFlow runs a single flow as if "flowrunner <name> args..." had been
// typed. It backs the standalone login and register binaries.
func ExecuteFlow(ctx context.Context, name string) error {
	return run(ctx, NewRootCommand(), append([]string{name}, os.Args[1:]...))
}

// ErrInterrupted marks a flow that was stopped by a signal before it finished.
var ErrInterrupted = errors.New("interrupted")

// Exit statuses returned by ExitCode.
const (
	exitOK          = 0
	exitFailure     = 1
	exitInterrupted = 130
)

// ExitCode maps the outcome of Execute onto the process exit status. Ending
// a kept-open session with an interrupt is a success and arrives here as nil;
// an interrupt that cut a flow short exits 130, like a shell would report it.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, ErrInterrupted), errors.Is(err, context.Canceled):
		return exitInterrupted
	default:
		return exitFailure
	}
}

func run(ctx context.Context, root *cobra.Command, args []string) error {
	defer observability.Sync()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		observability.GetLogger().Warn("Interrupted.")
	default:
		observability.GetLogger().Error("Command execution failed.", zap.Error(err))
	}
	return err
}

// initializeConfig loads the dotenv file, then the config file, then the
// environment, into v.
func initializeConfig(cmd *cobra.Command, v *viper.Viper, opts *rootOptions) error {
	if err := loadEnvFile(cmd, opts.envFile); err != nil {
		return err
	}

	if opts.cfgFile != "" {
		path, err := homedir.Expand(opts.cfgFile)
		if err != nil {
			return fmt.Errorf("expanding config path %q: %w", opts.cfgFile, err)
		}
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "flowrunner"))
		}
	}

	v.SetEnvPrefix("FLOWRUNNER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

// loadEnvFile loads a dotenv file without overriding variables that are
// already set. A missing default file is not an error; a missing file the
// user named explicitly is.
func loadEnvFile(cmd *cobra.Command, path string) error {
	if path == "" {
		return nil
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return fmt.Errorf("expanding env file path %q: %w", path, err)
	}
	if err := godotenv.Load(expanded); err != nil {
		if errors.Is(err, os.ErrNotExist) && !cmd.Flags().Changed("env-file") {
			return nil
		}
		return fmt.Errorf("loading env file %q: %w", expanded, err)
	}
	return nil
}

// applyFlagOverrides copies explicitly set persistent flags onto cfg.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config, opts *rootOptions) {
	flags := cmd.Flags()
	if flags.Changed("base-url") {
		cfg.SetTargetBaseURL(opts.baseURL)
	}
	if flags.Changed("remote-url") {
		cfg.SetBrowserRemoteURL(opts.remoteURL)
	}
	if flags.Changed("headless") {
		cfg.SetBrowserHeadless(opts.headless)
	}
	if flags.Changed("timeout") {
		cfg.SetWaitElementTimeout(opts.timeout)
		cfg.SetWaitNavigationTimeout(3 * opts.timeout)
	}
	if flags.Changed("keep-open") {
		cfg.SetLoginKeepOpen(opts.keepOpen)
		cfg.SetRegisterKeepOpen(opts.keepOpen)
	}
	if flags.Changed("log-level") {
		cfg.LoggerCfg.Level = opts.logLevel
	}
}

// configFromContext returns the configuration stored by PersistentPreRunE.
func configFromContext(ctx context.Context) (config.Interface, error) {
	cfg, ok := ctx.Value(configKey).(config.Interface)
	if !ok || cfg == nil {
		return nil, errors.New("configuration not loaded")
	}
	return cfg, nil
}
