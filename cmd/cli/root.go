// Package cli provides the command-line interface for tcpscan.
// The root command runs a single scan of one host; the watch subcommand
// repeats that scan on a cron schedule and can serve its status over HTTP.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/gabrier01/tcpscan01/internal/config"
	"github.com/gabrier01/tcpscan01/internal/errors"
	"github.com/gabrier01/tcpscan01/internal/logging"
)

// Environment variables override the config file and are overridden by flags.
const envPrefix = "TCPSCAN"

// Configuration keys. Nested keys map to TCPSCAN_LOGGING_LEVEL and so on.
const (
	keyConfig      = "config"
	keyHost        = "host"
	keyPorts       = "ports"
	keyConcurrency = "concurrency"
	keyTimeout     = "timeout"
	keyVerbose     = "verbose"
	keyIPv6        = "ipv6"
	keyBanner      = "banner"
	keyJSON        = "json"
	keyDNSServer   = "dns_server"
	keyLogLevel    = "logging.level"
	keyLogFormat   = "logging.format"
	keyMetricsFile = "metrics.file"
	keySummary     = "summary"
	keySchedule    = "watch.schedule"
	keyListenAddr  = "watch.listen_addr"
)

// flagKeys maps flag names to configuration keys where they differ.
var flagKeys = map[string]string{
	"dns-server":   keyDNSServer,
	"log-level":    keyLogLevel,
	"log-format":   keyLogFormat,
	"metrics-file": keyMetricsFile,
	"schedule":     keySchedule,
	"listen":       keyListenAddr,
}

// Build information - these will be set by ldflags during build.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// NewRootCommand builds the command tree with its own viper instance.
func NewRootCommand() *cobra.Command {
	return newRootCommand(viper.New())
}

func newRootCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tcpscan -H <hostname> -p <p1,p2,p3...>",
		Short: "Concurrent TCP connect port scanner",
		Long: `tcpscan resolves a hostname and attempts a full TCP connection to every
requested port on every resolved address, reporting which ports accept
connections. Use verbose mode (-v) to see the scan plan, every endpoint
that will be tried, and closed ports.`,
		Example: `  tcpscan -H example.com -p 21,22,80,443
  tcpscan -v -t 500 -c 10 -6 -H example.com -p 21,22,23,80,443,3306
  tcpscan -b --json -H 192.0.2.10 -p 22,25 --summary`,
		Version:       getVersion(),
		Args:          noArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			return runScan(cmd.Context(), cfg, v.GetBool(keySummary), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return errors.WrapConfigError(errors.CodeValidation, "invalid flags", err)
	})

	flags := cmd.PersistentFlags()
	flags.String("config", "", "YAML file with default settings")
	flags.BoolP("ipv6", "6", false, "resolve IPv6 addresses as well as IPv4")
	flags.BoolP("verbose", "v", false, "print the scan plan, every endpoint tried and closed ports")
	flags.BoolP("banner", "b", false, "read a banner from open ports; may slow the scan down")
	flags.IntP("timeout", "t", int(config.DefaultTimeout/time.Millisecond),
		"connection timeout in milliseconds (50 to 100000)")
	flags.IntP("concurrency", "c", config.DefaultConcurrency, "number of concurrent workers (1 to 50)")
	flags.StringP("host", "H", "", "hostname or IP address to scan (required)")
	flags.StringP("ports", "p", "", "comma separated list of ports (required)")
	flags.Bool("json", false, "emit results as JSON lines")
	flags.String("dns-server", "", "query this DNS server (host:port) instead of the system resolver")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: text, json")
	flags.String("metrics-file", "", "write Prometheus metrics to this file after each scan")
	cmd.Flags().Bool("summary", false, "print a summary table after the scan")

	bindFlags(v, flags)
	bindFlags(v, cmd.Flags())

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	cmd.AddCommand(newWatchCommand(v))
	return cmd
}

// Execute runs the command line and returns the process exit status.
// This is called by main.main().
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return execute(ctx, NewRootCommand(), os.Stderr)
}

func execute(ctx context.Context, root *cobra.Command, stderr io.Writer) int {
	cmd, err := root.ExecuteContextC(ctx)
	if err == nil {
		return errors.ExitOK
	}

	fmt.Fprintf(stderr, "Error: %v\n", err)
	if errors.IsConfig(err) {
		if cmd == nil {
			cmd = root
		}
		fmt.Fprint(stderr, cmd.UsageString())
	}
	return errors.ExitCode(err)
}

// noArgs rejects positional arguments as a configuration error.
func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return errors.NewConfigFieldError(errors.CodeValidation,
			fmt.Sprintf("unexpected argument %q for %q", args[0], cmd.CommandPath()), "args", args)
	}
	return nil
}

// bindFlags binds every flag in fs to its configuration key.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok {
			key = f.Name
		}
		if err := v.BindPFlag(key, f); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to bind %s flag: %v\n", f.Name, err)
		}
	})
}

// loadConfig layers flags and environment variables over the optional
// config file and validates the result.
func loadConfig(v *viper.Viper) (config.Config, error) {
	cfg, err := config.Load(v.GetString(keyConfig))
	if err != nil {
		return config.Config{}, err
	}

	if v.IsSet(keyHost) {
		cfg.Host = v.GetString(keyHost)
	}
	if v.IsSet(keyPorts) {
		ports, err := config.ParsePorts(v.GetString(keyPorts))
		if err != nil {
			return config.Config{}, err
		}
		cfg.Ports = ports
	}
	if v.IsSet(keyConcurrency) {
		cfg.Concurrency = v.GetInt(keyConcurrency)
	}
	if v.IsSet(keyTimeout) {
		cfg.Timeout = time.Duration(v.GetInt(keyTimeout)) * time.Millisecond
	}
	overrideBool(v, keyVerbose, &cfg.Verbose)
	overrideBool(v, keyIPv6, &cfg.IPv6)
	overrideBool(v, keyBanner, &cfg.Banner)
	overrideBool(v, keyJSON, &cfg.JSON)
	overrideString(v, keyDNSServer, &cfg.DNSServer)
	overrideString(v, keyMetricsFile, &cfg.Metrics.File)
	overrideString(v, keySchedule, &cfg.Watch.Schedule)
	overrideString(v, keyListenAddr, &cfg.Watch.ListenAddr)
	if v.IsSet(keyLogLevel) {
		cfg.Logging.Level = logging.LogLevel(v.GetString(keyLogLevel))
	}
	if v.IsSet(keyLogFormat) {
		cfg.Logging.Format = logging.LogFormat(v.GetString(keyLogFormat))
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func overrideBool(v *viper.Viper, key string, dst *bool) {
	if v.IsSet(key) {
		*dst = v.GetBool(key)
	}
}

func overrideString(v *viper.Viper, key string, dst *string) {
	if v.IsSet(key) {
		*dst = v.GetString(key)
	}
}

// getVersion returns the version string.
func getVersion() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime)
}

// SetVersion sets the version information (called from main).
func SetVersion(v, c, bt string) {
	version = v
	commit = c
	buildTime = bt
}
