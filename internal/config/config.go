// Package config builds the immutable run configuration from the
// environment. All validation happens at construction; the rest of the
// program receives a fully-populated Config and never touches the
// environment again.
package config

import (
	"strings"

	"github.com/creasty/defaults"
	"github.com/spf13/viper"

	"github.com/rabbitops/fedmig/pkg/errors"
	"github.com/rabbitops/fedmig/pkg/rabbit"
)

// Mode selects which broker endpoints a run requires.
type Mode string

const (
	// ModeInspect reads from the source broker only.
	ModeInspect Mode = "inspect"
	// ModeMigrate reads from the source and writes to the target.
	ModeMigrate Mode = "migrate"
)

// Environment variable names recognized by both commands.
const (
	EnvOldHost  = "OLD_RABBITMQ_HOST"
	EnvOldPort  = "OLD_RABBITMQ_PORT"
	EnvOldUser  = "OLD_RABBITMQ_USER"
	EnvOldPass  = "OLD_RABBITMQ_PASS"
	EnvOldVhost = "OLD_RABBITMQ_VHOST"

	EnvNewHost  = "NEW_RABBITMQ_HOST"
	EnvNewPort  = "NEW_RABBITMQ_PORT"
	EnvNewUser  = "NEW_RABBITMQ_USER"
	EnvNewPass  = "NEW_RABBITMQ_PASS"
	EnvNewVhost = "NEW_RABBITMQ_VHOST"

	EnvTestMode       = "TEST_MODE"
	EnvDryRun         = "DRY_RUN"
	EnvPrefix         = "FEDERATION_PREFIX"
	EnvVerify         = "VERIFY_FEDERATION"
	EnvProbeUpstreams = "PROBE_UPSTREAMS"
	EnvLogLevel       = "LOG_LEVEL"
)

// Broker holds the connection identity of one management endpoint.
type Broker struct {
	Host     string
	Port     string `default:"15672"`
	Username string
	Password string
	Vhost    string `default:"/"`
}

// Endpoint converts the broker settings into a client endpoint.
func (b Broker) Endpoint() rabbit.Endpoint {
	return rabbit.Endpoint{
		Host:     b.Host,
		Port:     b.Port,
		Username: b.Username,
		Password: b.Password,
		Vhost:    b.Vhost,
	}
}

// Config is the immutable configuration of one run.
type Config struct {
	Source Broker
	Target Broker

	// TestMode and DryRun both suppress every write; they differ only in
	// how intended actions are labelled in the log.
	TestMode bool
	DryRun   bool

	// Prefix is prepended to every migrated upstream and policy name, and
	// to federation-upstream references inside policy definitions.
	Prefix string

	// Verify re-reads the target after migration and compares counts.
	Verify bool

	// ProbeUpstreams dials each upstream AMQP URI during inspection.
	ProbeUpstreams bool

	LogLevel string `default:"info"`
}

// SkipWrites reports whether the run must not issue any PUT call.
func (c *Config) SkipWrites() bool {
	return c.TestMode || c.DryRun
}

// WriteSkipReason labels why writes are skipped, for log lines.
func (c *Config) WriteSkipReason() string {
	if c.TestMode {
		return "TEST MODE"
	}
	return "DRY RUN"
}

// Load builds the configuration from the environment and validates the
// fields the given mode requires. The returned error lists every missing
// required variable at once.
func Load(mode Mode) (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	cfg := &Config{
		Source: Broker{
			Host:     v.GetString(EnvOldHost),
			Port:     v.GetString(EnvOldPort),
			Username: v.GetString(EnvOldUser),
			Password: v.GetString(EnvOldPass),
			Vhost:    normalizeVhost(v.GetString(EnvOldVhost)),
		},
		Target: Broker{
			Host:     v.GetString(EnvNewHost),
			Port:     v.GetString(EnvNewPort),
			Username: v.GetString(EnvNewUser),
			Password: v.GetString(EnvNewPass),
			Vhost:    normalizeVhost(v.GetString(EnvNewVhost)),
		},
		TestMode:       isTrue(v.GetString(EnvTestMode)),
		DryRun:         isTrue(v.GetString(EnvDryRun)),
		Prefix:         v.GetString(EnvPrefix),
		Verify:         !isFalse(v.GetString(EnvVerify)),
		ProbeUpstreams: isTrue(v.GetString(EnvProbeUpstreams)),
		LogLevel:       v.GetString(EnvLogLevel),
	}

	if err := defaults.Set(cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(mode); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate(mode Mode) error {
	var missing []string
	if c.Source.Host == "" {
		missing = append(missing, EnvOldHost)
	}
	if c.Source.Username == "" {
		missing = append(missing, EnvOldUser)
	}
	if c.Source.Password == "" {
		missing = append(missing, EnvOldPass)
	}
	if mode == ModeMigrate {
		if c.Target.Host == "" {
			missing = append(missing, EnvNewHost)
		}
		if c.Target.Username == "" {
			missing = append(missing, EnvNewUser)
		}
		if c.Target.Password == "" {
			missing = append(missing, EnvNewPass)
		}
	}
	if len(missing) > 0 {
		return errors.NewMissingConfigError(missing...)
	}
	return nil
}

// normalizeVhost accepts both the raw vhost name and its percent-encoded
// form (legacy deployments export OLD_RABBITMQ_VHOST=%2F) and stores the raw
// name; encoding happens at the HTTP layer.
func normalizeVhost(vhost string) string {
	if strings.EqualFold(vhost, "%2F") {
		return "/"
	}
	return vhost
}

func isTrue(s string) bool {
	return strings.EqualFold(s, "true")
}

func isFalse(s string) bool {
	return strings.EqualFold(s, "false")
}
