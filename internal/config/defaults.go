package config

import "time"

// Default constants for application configuration
const (
	DefaultLogLevel           = "info"
	DefaultJSONLog            = false
	DefaultUserAgent          = "Parsers/1.0 (https://github.com/sizieks/parsers)"
	DefaultNavigationTimeout  = 30 * time.Second
	DefaultMaterializeTimeout = 30 * time.Second
	DefaultRateLimitRPS       = 1.0
	DefaultRateLimitBurst     = 2
	DefaultBrowserHeadless    = true
	DefaultQueuePath          = "parsers-queue.db"
	DefaultRetryAttempts      = 3
	DefaultSettleDelay        = 300 * time.Millisecond
)
