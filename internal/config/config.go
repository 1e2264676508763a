package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment variables, e.g. DEBTS_API_BASE_URL.
const EnvPrefix = "DEBTS"

// Config holds the application configuration loaded from files, environment variables and flags.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	APIBaseURL        string        `mapstructure:"api_base_url"`
	APIToken          string        `mapstructure:"api_token"`
	APITimeoutSeconds int64         `mapstructure:"api_timeout_seconds"`
	APITimeout        time.Duration `mapstructure:"-"`
	SummaryMode       string        `mapstructure:"summary_mode"`

	PresetsFile    string `mapstructure:"presets_file"`
	PublishersFile string `mapstructure:"publishers_file"`

	JournalType            string        `mapstructure:"journal_type"`
	JournalPath            string        `mapstructure:"journal_path"`
	JournalTTLSeconds      int64         `mapstructure:"journal_ttl_seconds"`
	JournalCleanupSeconds  int64         `mapstructure:"journal_cleanup_interval_seconds"`
	JournalTTL             time.Duration `mapstructure:"-"`
	JournalCleanupInterval time.Duration `mapstructure:"-"`

	MetricsFile     string `mapstructure:"metrics_file"`
	OTelEnabled     bool   `mapstructure:"otel_enabled"`
	OTelProtocol    string `mapstructure:"otel_protocol"`
	OTelServiceName string `mapstructure:"otel_service_name"`

	StubAddr string `mapstructure:"stub_addr"`
}

// Load reads configuration from configs/.env, the environment and, when fs is
// non-nil, any flags explicitly set on it. Flags are matched by key with dashes
// in place of underscores (api-base-url).
func Load(fs *pflag.FlagSet) (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if fs != nil {
		var bindErr error
		fs.VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if !isKnownKey(key) {
				return
			}
			if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
				bindErr = fmt.Errorf("bind flag %s: %w", f.Name, err)
			}
		})
		if bindErr != nil {
			return nil, bindErr
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "samvad-debts-client")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("api_base_url", "http://localhost:8080")
	v.SetDefault("api_token", "")
	v.SetDefault("api_timeout_seconds", 15)
	v.SetDefault("summary_mode", "lenient")
	v.SetDefault("presets_file", "")
	v.SetDefault("publishers_file", "")
	v.SetDefault("journal_type", "bbolt")
	v.SetDefault("journal_path", "./data/journal.db")
	v.SetDefault("journal_ttl_seconds", int64((30*24*time.Hour)/time.Second))
	v.SetDefault("journal_cleanup_interval_seconds", int64((12*time.Hour)/time.Second))
	v.SetDefault("metrics_file", "")
	v.SetDefault("otel_enabled", false)
	v.SetDefault("otel_protocol", "grpc")
	v.SetDefault("otel_service_name", "samvad-debts-client")
	v.SetDefault("stub_addr", ":8080")
}

var knownKeys = map[string]struct{}{}

func init() {
	v := viper.New()
	setDefaults(v)
	for _, k := range v.AllKeys() {
		knownKeys[k] = struct{}{}
	}
}

func isKnownKey(key string) bool {
	_, ok := knownKeys[key]
	return ok
}

func (cfg *Config) normalize() error {
	cfg.APIBaseURL = strings.TrimSpace(cfg.APIBaseURL)
	if cfg.APIBaseURL == "" {
		return fmt.Errorf("api_base_url is required")
	}
	if cfg.APITimeoutSeconds <= 0 {
		return fmt.Errorf("invalid api_timeout_seconds (must be positive seconds)")
	}
	cfg.APITimeout = time.Duration(cfg.APITimeoutSeconds) * time.Second

	cfg.SummaryMode = strings.ToLower(strings.TrimSpace(cfg.SummaryMode))
	switch cfg.SummaryMode {
	case "strict", "lenient":
	default:
		return fmt.Errorf("invalid summary_mode %q (expected strict or lenient)", cfg.SummaryMode)
	}

	cfg.OTelProtocol = strings.ToLower(strings.TrimSpace(cfg.OTelProtocol))
	switch cfg.OTelProtocol {
	case "grpc", "http/protobuf":
	default:
		return fmt.Errorf("invalid otel_protocol %q (expected grpc or http/protobuf)", cfg.OTelProtocol)
	}

	if cfg.JournalTTLSeconds <= 0 {
		return fmt.Errorf("invalid journal_ttl_seconds (must be positive seconds)")
	}
	if cfg.JournalCleanupSeconds <= 0 {
		return fmt.Errorf("invalid journal_cleanup_interval_seconds (must be positive seconds)")
	}
	cfg.JournalTTL = time.Duration(cfg.JournalTTLSeconds) * time.Second
	cfg.JournalCleanupInterval = time.Duration(cfg.JournalCleanupSeconds) * time.Second
	return nil
}
