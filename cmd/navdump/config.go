package main

import (
	"fmt"
	"os"
	"time"

	"github.com/gnsskit/gonav/pkg/navmsg"
	"gopkg.in/yaml.v3"
)

// Config holds the navdump settings read from a YAML file.
type Config struct {
	Station  string   `yaml:"station"` // station or project name, XXXXMRCCC
	Pgm      string   `yaml:"pgm"`
	RunBy    string   `yaml:"runby"`
	Comments []string `yaml:"comments"`

	// Signals restricts decoding to the listed signals, e.g. [LNAV, NAV].
	// All supported signals are decoded when empty.
	Signals []string `yaml:"signals"`

	// Staleness overrides the per-signal gap after which a partly
	// collected parameter set is discarded, e.g. "LNAV: 1h".
	Staleness map[string]string `yaml:"staleness"`
}

func loadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// decoderOptions translates the config into decoder options.
func (cfg *Config) decoderOptions(obs navmsg.Observer) ([]navmsg.Option, error) {
	opts := []navmsg.Option{navmsg.WithObserver(obs)}

	if len(cfg.Signals) > 0 {
		sigs := make([]navmsg.Signal, 0, len(cfg.Signals))
		for _, s := range cfg.Signals {
			sig, err := navmsg.ParseSignal(s)
			if err != nil {
				return nil, err
			}
			sigs = append(sigs, sig)
		}
		opts = append(opts, navmsg.WithSignals(sigs...))
	}

	for s, after := range cfg.Staleness {
		sig, err := navmsg.ParseSignal(s)
		if err != nil {
			return nil, err
		}
		d, err := time.ParseDuration(after)
		if err != nil {
			return nil, fmt.Errorf("staleness %s: %w", s, err)
		}
		opts = append(opts, navmsg.WithStaleness(sig, d))
	}

	return opts, nil
}
