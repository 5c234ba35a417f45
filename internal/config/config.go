package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// Config holds application configuration values
type Config struct {
	// Logging
	LogLevel string
	JSONLog  bool

	// Browser
	BrowserHeadless   bool
	ChromePath        string
	UserAgent         string
	Proxy             string
	Proxies           []string
	NavigationTimeout time.Duration

	// Engine
	MaterializeTimeout time.Duration
	RetryAttempts      int
	SettleDelay        time.Duration

	// Rate limiting
	RateLimitRPS   float64
	RateLimitBurst int

	// Local queue
	QueuePath string
}

// Load builds a Config from defaults, environment variables, and CLI
// flags. Caller should pass the root *cobra.Command so flags can be read.
func Load(cmd *cobra.Command) (*Config, error) {
	cfg := &Config{
		LogLevel:           DefaultLogLevel,
		JSONLog:            DefaultJSONLog,
		BrowserHeadless:    DefaultBrowserHeadless,
		UserAgent:          DefaultUserAgent,
		NavigationTimeout:  DefaultNavigationTimeout,
		MaterializeTimeout: DefaultMaterializeTimeout,
		RetryAttempts:      DefaultRetryAttempts,
		SettleDelay:        DefaultSettleDelay,
		RateLimitRPS:       DefaultRateLimitRPS,
		RateLimitBurst:     DefaultRateLimitBurst,
		QueuePath:          DefaultQueuePath,
	}

	if v := os.Getenv("PARSERS_USER_AGENT"); v != "" {
		cfg.UserAgent = v
	}
	if v := os.Getenv("PARSERS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("PARSERS_CHROME_PATH"); v != "" {
		cfg.ChromePath = v
	}
	if v := os.Getenv("PARSERS_QUEUE"); v != "" {
		cfg.QueuePath = v
	}

	if cmd != nil {
		if f := cmd.Flags().Lookup("proxy"); f != nil {
			if s := f.Value.String(); s != "" {
				cfg.Proxy = s
			}
		}
		if f := cmd.Flags().Lookup("queue"); f != nil {
			if s := f.Value.String(); s != "" {
				cfg.QueuePath = s
			}
		}
		if f := cmd.Flags().Lookup("timeout"); f != nil {
			if s := f.Value.String(); s != "" {
				if d, err := time.ParseDuration(s); err == nil {
					cfg.NavigationTimeout = d
					cfg.MaterializeTimeout = d
				}
			}
		}
		if f := cmd.Flags().Lookup("json"); f != nil {
			if f.Value.String() == "true" {
				cfg.JSONLog = true
			}
		}
		if f := cmd.Flags().Lookup("verbose"); f != nil {
			if f.Value.String() == "true" {
				cfg.LogLevel = "debug"
			}
		}
		if f := cmd.Flags().Lookup("headful"); f != nil {
			if f.Value.String() == "true" {
				cfg.BrowserHeadless = false
			}
		}
	}

	// --proxy takes a comma-separated list; more than one entry enables
	// rotation.
	for _, p := range strings.Split(cfg.Proxy, ",") {
		if p = strings.TrimSpace(p); p != "" {
			cfg.Proxies = append(cfg.Proxies, p)
		}
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}
