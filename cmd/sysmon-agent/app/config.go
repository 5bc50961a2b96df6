package app

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	envstruct "code.cloudfoundry.org/go-envstruct"

	"code.cloudfoundry.org/sysmon-agent/internal/platform/log"
	"code.cloudfoundry.org/sysmon-agent/pkg/egress/influxdb"
)

// DefaultDumpInterval is used when DUMP_INTERVAL_SECONDS is unset, zero or
// not a number of seconds.
const DefaultDumpInterval = DumpInterval(time.Hour)

// DumpInterval is the pause between two collection cycles, configured in
// whole seconds.
type DumpInterval time.Duration

// UnmarshalEnv implements envstruct.Unmarshaller. Values that cannot be
// used fall back to DefaultDumpInterval instead of failing startup.
func (d *DumpInterval) UnmarshalEnv(v string) error {
	secs, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
	if err != nil || secs == 0 || secs > math.MaxInt64/uint64(time.Second) {
		*d = DefaultDumpInterval
		return nil
	}
	*d = DumpInterval(time.Duration(secs) * time.Second)
	return nil
}

func (d DumpInterval) Duration() time.Duration {
	return time.Duration(d)
}

func (d DumpInterval) String() string {
	return time.Duration(d).String()
}

// Config holds the configuration for the sysmon agent.
type Config struct {
	DumpInterval DumpInterval `env:"DUMP_INTERVAL_SECONDS, report"`

	Bucket         string `env:"INFLUXDB_BUCKET,           required, report"`
	Org            string `env:"INFLUXDB_ORG,              required, report"`
	Token          string `env:"INFLUXDB_TOKEN,            required"`
	URI            string `env:"INFLUXDB_URI,              required, report"`
	CAFile         string `env:"INFLUXDB_CA_FILE,          report"`
	SkipCertVerify bool   `env:"INFLUXDB_SKIP_CERT_VERIFY, report"`

	// CipherSuites restricts the TLS 1.2 suites offered to InfluxDB.
	CipherSuites []string `env:"INFLUXDB_CIPHER_SUITES, report"`

	MetricsPort uint16    `env:"METRICS_PORT, report"`
	LogLevel    log.Level `env:"LOG_LEVEL,    report"`
	UseRFC3339  bool      `env:"USE_RFC3339,  report"`
}

// Load reads the configuration from the environment and validates it.
func Load() (Config, error) {
	cfg := Config{
		DumpInterval: DefaultDumpInterval,
		LogLevel:     log.InfoLevel,
	}

	if err := envstruct.Load(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to load config from environment: %w", err)
	}

	if _, err := influxdb.WriteURL(cfg.URI, cfg.Bucket, cfg.Org); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadConfig is Load for main: it panics on invalid configuration and
// reports the loaded values.
func LoadConfig(log *log.Logger) Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("%s", err)
	}

	_ = envstruct.WriteReport(&cfg)

	return cfg
}
