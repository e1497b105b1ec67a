// Package config handles YAML configuration parsing and turns it into a
// validated run plan.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"quicperf/internal/core"
	"quicperf/internal/profiles"
	"quicperf/internal/report"
	"quicperf/internal/template"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "QUICPERF_"

// Config is the root configuration structure.
type Config struct {
	Run        RunConfig          `yaml:"run"`
	Network    NetworkConfig      `yaml:"network"`
	Endpoint   EndpointConfig     `yaml:"endpoint"`
	Thresholds *report.Thresholds `yaml:"thresholds,omitempty"`
}

// RunConfig controls trial-level execution.
type RunConfig struct {
	ID           string        `yaml:"id"`
	Payload      string        `yaml:"payload"`
	Trials       int           `yaml:"trials"`
	Warmup       int           `yaml:"warmup"`
	Interval     time.Duration `yaml:"interval"`
	TrialTimeout time.Duration `yaml:"trial_timeout"`
	OutputDir    string        `yaml:"output_dir"`
}

// NetworkConfig describes the simulated network. Apply and Clear may use
// ${name}, ${delay_ms}, ${loss_pct}, ${rate_mbit} and ${env:VAR}.
type NetworkConfig struct {
	Name     string `yaml:"name"`
	Apply    string `yaml:"apply"`
	Clear    string `yaml:"clear"`
	DelayMS  uint64 `yaml:"delay_ms"`
	LossPct  uint64 `yaml:"loss_pct"`
	RateMbit uint64 `yaml:"rate_mbit"`
}

// EndpointConfig describes the client and server executables.
type EndpointConfig struct {
	Client          string        `yaml:"client"`
	Server          string        `yaml:"server"`
	Address         string        `yaml:"address"`
	Bind            string        `yaml:"bind"`
	Port            int           `yaml:"port"`
	CCAlgorithm     string        `yaml:"cc_algorithm"`
	LogLevel        string        `yaml:"log_level"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	Authority       string        `yaml:"authority"`
	ClientNamespace string        `yaml:"client_namespace"`
	ServerNamespace string        `yaml:"server_namespace"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{
		Run: RunConfig{
			Payload:   "1mb",
			Trials:    5,
			OutputDir: "results",
		},
		Network: NetworkConfig{
			Name:     "default",
			Apply:    "./scripts/virt_config_tc.sh ${delay_ms} ${loss_pct} ${rate_mbit}",
			Clear:    "./scripts/test.sh",
			DelayMS:  50,
			LossPct:  0,
			RateMbit: 20,
		},
		Endpoint: EndpointConfig{
			Client:      "../quiche/target/debug/quiche-client",
			Server:      "../quiche/target/debug/examples/async_http3_server",
			Address:     "127.0.0.1",
			Bind:        "0.0.0.0",
			Port:        9999,
			CCAlgorithm: "cubic",
			LogLevel:    "info",
			IdleTimeout: 5 * time.Second,
			Authority:   "test.com",
		},
	}
	if runtime.GOOS == "linux" {
		cfg.Endpoint.Address = "10.55.10.1"
		cfg.Endpoint.ClientNamespace = "ns_c1"
		cfg.Endpoint.ServerNamespace = "ns_s1"
	}
	return cfg
}

// LoadConfig reads a YAML configuration file over the defaults.
// An empty path returns the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error unless required is set.
func LoadEnvFile(path string, required bool) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("env file: %w", err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}

type envSetter func(cfg *Config, value string) error

var envOverrides = map[string]envSetter{
	"ID":               func(c *Config, v string) error { c.Run.ID = v; return nil },
	"PAYLOAD":          func(c *Config, v string) error { c.Run.Payload = v; return nil },
	"TRIALS":           intSetter(func(c *Config) *int { return &c.Run.Trials }),
	"WARMUP":           intSetter(func(c *Config) *int { return &c.Run.Warmup }),
	"INTERVAL":         durationSetter(func(c *Config) *time.Duration { return &c.Run.Interval }),
	"TRIAL_TIMEOUT":    durationSetter(func(c *Config) *time.Duration { return &c.Run.TrialTimeout }),
	"OUTPUT_DIR":       func(c *Config, v string) error { c.Run.OutputDir = v; return nil },
	"NETWORK_APPLY":    func(c *Config, v string) error { c.Network.Apply = v; return nil },
	"NETWORK_CLEAR":    func(c *Config, v string) error { c.Network.Clear = v; return nil },
	"CLIENT":           func(c *Config, v string) error { c.Endpoint.Client = v; return nil },
	"SERVER":           func(c *Config, v string) error { c.Endpoint.Server = v; return nil },
	"SERVER_ADDRESS":   func(c *Config, v string) error { c.Endpoint.Address = v; return nil },
	"PORT":             intSetter(func(c *Config) *int { return &c.Endpoint.Port }),
	"CC_ALGORITHM":     func(c *Config, v string) error { c.Endpoint.CCAlgorithm = v; return nil },
	"LOG_LEVEL":        func(c *Config, v string) error { c.Endpoint.LogLevel = v; return nil },
	"IDLE_TIMEOUT":     durationSetter(func(c *Config) *time.Duration { return &c.Endpoint.IdleTimeout }),
	"CLIENT_NAMESPACE": func(c *Config, v string) error { c.Endpoint.ClientNamespace = v; return nil },
	"SERVER_NAMESPACE": func(c *Config, v string) error { c.Endpoint.ServerNamespace = v; return nil },
}

func intSetter(field func(*Config) *int) envSetter {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}

func durationSetter(field func(*Config) *time.Duration) envSetter {
	return func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*field(c) = d
		return nil
	}
}

// ApplyEnv overrides fields from QUICPERF_* variables found by lookup.
// Returns all malformed values joined.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	var errs []error
	for suffix, set := range envOverrides {
		value, ok := lookup(EnvPrefix + suffix)
		if !ok || value == "" {
			continue
		}
		if err := set(c, value); err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, suffix, err))
		}
	}
	return errors.Join(errs...)
}

// PayloadBytes parses the payload size, accepting forms like 1mb, 10MiB
// or a plain byte count.
func (c *Config) PayloadBytes() (uint64, error) {
	n, err := humanize.ParseBytes(c.Run.Payload)
	if err != nil {
		return 0, fmt.Errorf("run.payload %q: %w", c.Run.Payload, err)
	}
	return n, nil
}

// ProfileVars returns the placeholders available to network commands.
func (n NetworkConfig) ProfileVars() template.Vars {
	return template.Vars{
		"name":      n.Name,
		"delay_ms":  n.DelayMS,
		"loss_pct":  n.LossPct,
		"rate_mbit": n.RateMbit,
	}
}

// ForProfile returns a copy of c whose network section describes p. Commands
// p leaves empty keep the configured templates. A configured run id gets the
// profile name appended so every profile writes its own run directory.
func (c *Config) ForProfile(p profiles.Profile) *Config {
	out := *c
	out.Network = NetworkConfig{
		Name:     p.Name,
		Apply:    c.Network.Apply,
		Clear:    c.Network.Clear,
		DelayMS:  p.DelayMS,
		LossPct:  p.LossPct,
		RateMbit: p.RateMbit,
	}
	if p.Apply != "" {
		out.Network.Apply = p.Apply
	}
	if p.Clear != "" {
		out.Network.Clear = p.Clear
	}
	if c.Run.ID != "" {
		out.Run.ID = c.Run.ID + "-" + p.Name
	}
	return &out
}

// Plan validates the configuration and produces the immutable run plan.
// A run id is generated when none is configured.
func (c *Config) Plan() (core.RunPlan, error) {
	payload, err := c.PayloadBytes()
	if err != nil {
		return core.RunPlan{}, err
	}

	expander := template.Expander{Vars: c.Network.ProfileVars(), Quote: template.ShellQuote}
	commands, err := expander.ExpandMap(map[string]string{
		"network.apply": c.Network.Apply,
		"network.clear": c.Network.Clear,
	})
	if err != nil {
		return core.RunPlan{}, err
	}

	if err := c.Thresholds.Validate(); err != nil {
		return core.RunPlan{}, err
	}

	id := c.Run.ID
	if id == "" {
		id = uuid.NewString()
	}

	plan := core.RunPlan{
		ID: id,
		Network: core.NetworkProfile{
			Name:         c.Network.Name,
			ApplyCommand: commands["network.apply"],
			ClearCommand: commands["network.clear"],
			DelayMS:      c.Network.DelayMS,
			LossPct:      c.Network.LossPct,
			RateMbit:     c.Network.RateMbit,
		},
		Endpoint: core.EndpointConfig{
			ClientBinary:    c.Endpoint.Client,
			ServerBinary:    c.Endpoint.Server,
			ServerAddress:   c.Endpoint.Address,
			ServerBind:      c.Endpoint.Bind,
			ServerPort:      c.Endpoint.Port,
			CCAlgorithm:     c.Endpoint.CCAlgorithm,
			LogLevel:        c.Endpoint.LogLevel,
			IdleTimeout:     c.Endpoint.IdleTimeout,
			Authority:       c.Endpoint.Authority,
			ClientNamespace: c.Endpoint.ClientNamespace,
			ServerNamespace: c.Endpoint.ServerNamespace,
		},
		PayloadBytes: payload,
		Trials:       c.Run.Trials,
		Warmup:       c.Run.Warmup,
		Interval:     c.Run.Interval,
		TrialTimeout: c.Run.TrialTimeout,
	}

	if err := plan.Validate(); err != nil {
		return core.RunPlan{}, err
	}
	return plan, nil
}
