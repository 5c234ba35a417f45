package config

import "fmt"

func validate(c *Config) error {
	if c.NavigationTimeout <= 0 {
		return fmt.Errorf("navigation timeout must be > 0")
	}
	if c.MaterializeTimeout <= 0 {
		return fmt.Errorf("materialize timeout must be > 0")
	}
	if c.RetryAttempts <= 0 {
		return fmt.Errorf("retry attempts must be > 0")
	}
	if c.QueuePath == "" {
		return fmt.Errorf("queue path must not be empty")
	}
	return nil
}
