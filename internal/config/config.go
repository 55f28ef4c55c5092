// Package config holds the validated, immutable scan configuration. Values
// come from an optional YAML file, then command-line flags and environment
// variables layered on top by the CLI.
package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/gabrier01/tcpscan01/internal/errors"
	"github.com/gabrier01/tcpscan01/internal/logging"
)

// Bounds accepted for the tunables.
const (
	MinConcurrency     = 1
	MaxConcurrency     = 50
	DefaultConcurrency = 5

	MinTimeout     = 50 * time.Millisecond
	MaxTimeout     = 100 * time.Second
	DefaultTimeout = 100 * time.Millisecond
)

// Config represents one complete scan run.
type Config struct {
	// Target hostname or IP literal
	Host string `yaml:"host" json:"host" validate:"required"`

	// Ports in the order they were requested; duplicates are kept
	Ports []uint16 `yaml:"ports" json:"ports" validate:"required,min=1,dive,min=1"`

	// Number of concurrent workers
	Concurrency int `yaml:"concurrency" json:"concurrency" validate:"min=1,max=50"`

	// Connect and banner read timeout
	Timeout time.Duration `yaml:"timeout" json:"timeout" validate:"min=50ms,max=100s"`

	// Report closed ports and the scan plan
	Verbose bool `yaml:"verbose" json:"verbose"`

	// Resolve IPv6 addresses as well as IPv4
	IPv6 bool `yaml:"ipv6" json:"ipv6"`

	// Read a banner from open ports
	Banner bool `yaml:"banner" json:"banner"`

	// Emit results as JSON lines instead of text
	JSON bool `yaml:"json" json:"json"`

	// Optional DNS server (host:port) used instead of the system resolver
	DNSServer string `yaml:"dns_server" json:"dns_server" validate:"omitempty,hostname_port"`

	// Logging configuration
	Logging logging.Config `yaml:"logging" json:"logging"`

	// Metrics export
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Repeated scans
	Watch WatchConfig `yaml:"watch" json:"watch"`
}

// MetricsConfig holds metrics export settings.
type MetricsConfig struct {
	// Textfile collector output path; empty disables the export
	File string `yaml:"file" json:"file"`
}

// WatchConfig holds settings for the watch command.
type WatchConfig struct {
	// Cron expression or descriptor such as "@every 5m"
	Schedule string `yaml:"schedule" json:"schedule"`

	// Status server address; empty disables the server
	ListenAddr string `yaml:"listen_addr" json:"listen_addr" validate:"omitempty,hostname_port"`
}

// Default returns a configuration with the documented defaults. Host and
// Ports have no default and must be supplied.
func Default() Config {
	return Config{
		Concurrency: DefaultConcurrency,
		Timeout:     DefaultTimeout,
		Logging:     logging.DefaultConfig(),
		Watch: WatchConfig{
			Schedule: "@every 5m",
		},
	}
}

// Load loads defaults from a YAML file. A missing file yields Default().
// The result is not validated; flags may still fill in required fields.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, errors.WrapConfigError(errors.CodeConfiguration, "failed to read config file", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != "" && ext != ".yaml" && ext != ".yml" {
		return Config{}, errors.NewConfigFieldError(errors.CodeConfiguration,
			fmt.Sprintf("unsupported config file extension %q", ext), "config", path)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.WrapConfigError(errors.CodeConfiguration, "failed to parse YAML config", err)
	}

	return cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// Validate checks every field and returns the first violation as a
// *errors.ConfigError.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) || len(verrs) == 0 {
		return errors.WrapConfigError(errors.CodeValidation, "invalid configuration", err)
	}

	fe := verrs[0]
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	if fe.Tag() == "required" {
		return errors.ErrConfigMissing(field)
	}
	return errors.ErrConfigInvalid(field, describe(fe), fe.Value())
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "min":
		if fe.Kind() == reflect.Slice {
			return "at least one value is required"
		}
		return fmt.Sprintf("value must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("value must be at most %s", fe.Param())
	case "hostname_port":
		return "value must be host:port"
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}

// AddressFamily returns the resolver network to look up: "ip4" unless IPv6
// addresses are wanted too.
func AddressFamily(ipv6 bool) string {
	if ipv6 {
		return "ip"
	}
	return "ip4"
}

// Probes returns how many endpoints a scan of n resolved addresses will test.
func (c Config) Probes(addresses int) int {
	return addresses * len(c.Ports)
}
