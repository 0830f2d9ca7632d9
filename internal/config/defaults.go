package config

import "time"

const (
	// DefaultNamespace is used when neither the config nor a resource names
	// a namespace.
	DefaultNamespace = "default"

	// DefaultWorkerCount keeps reconciliations for an integrator ordered.
	DefaultWorkerCount = 1

	// DefaultDebounceInterval coalesces change event bursts.
	DefaultDebounceInterval = 500 * time.Millisecond

	// DefaultRetryBaseDelay is the initial retry backoff.
	DefaultRetryBaseDelay = 2 * time.Second

	// DefaultRetryMaxDelay caps the retry backoff.
	DefaultRetryMaxDelay = 2 * time.Minute

	// DefaultMaxRetries bounds retry attempts per change event.
	DefaultMaxRetries = 5

	// DefaultSecretCacheTTL bounds bind password cache staleness.
	DefaultSecretCacheTTL = 10 * time.Second
)

// GetDefaultConfig returns the default operator configuration.
func GetDefaultConfig() OperatorConfig {
	return OperatorConfig{
		Namespace: DefaultNamespace,
		Mode:      ModeAuto,
		LogLevel:  "info",
		Reconciler: ReconcilerConfig{
			WorkerCount:      DefaultWorkerCount,
			DebounceInterval: DefaultDebounceInterval,
			RetryBaseDelay:   DefaultRetryBaseDelay,
			RetryMaxDelay:    DefaultRetryMaxDelay,
			MaxRetries:       DefaultMaxRetries,
			SecretCacheTTL:   DefaultSecretCacheTTL,
		},
	}
}
