package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Mode selects which backend the operator runs against.
type Mode string

const (
	// ModeAuto detects Kubernetes and falls back to filesystem mode.
	ModeAuto Mode = "auto"
	// ModeKubernetes requires a reachable cluster with the CRDs installed.
	ModeKubernetes Mode = "kubernetes"
	// ModeFilesystem reads resources from YAML files on disk.
	ModeFilesystem Mode = "filesystem"
)

// OperatorConfig is the top-level configuration structure for the
// ldap-integrator operator.
type OperatorConfig struct {
	// Namespace is the default namespace for resources that do not name one.
	Namespace string `yaml:"namespace,omitempty"`

	// Mode selects the backend (default: auto).
	Mode Mode `yaml:"mode,omitempty"`

	// DefinitionsPath is the base directory for filesystem mode.
	DefinitionsPath string `yaml:"definitionsPath,omitempty"`

	Reconciler ReconcilerConfig `yaml:"reconciler,omitempty"`

	// LogLevel controls log verbosity (debug, info, warn, error).
	LogLevel string `yaml:"logLevel,omitempty"`
}

// ReconcilerConfig tunes the reconciliation loop.
type ReconcilerConfig struct {
	// WorkerCount is the number of concurrent reconcile workers. A single
	// worker keeps publishes to a given integrator strictly ordered, which
	// is why it is the default.
	WorkerCount int `yaml:"workerCount,omitempty"`

	// DebounceInterval coalesces change events that arrive in a burst.
	DebounceInterval time.Duration `yaml:"debounceInterval,omitempty"`

	// RetryBaseDelay is the initial backoff after a failed reconciliation.
	RetryBaseDelay time.Duration `yaml:"retryBaseDelay,omitempty"`

	// RetryMaxDelay caps the exponential backoff.
	RetryMaxDelay time.Duration `yaml:"retryMaxDelay,omitempty"`

	// MaxRetries is the number of attempts before an event is dropped. The
	// next change to the resource starts a fresh attempt series.
	MaxRetries int `yaml:"maxRetries,omitempty"`

	// SecretCacheTTL bounds how long a resolved bind password is served
	// from memory.
	SecretCacheTTL time.Duration `yaml:"secretCacheTTL,omitempty"`
}

// UnmarshalYAML decodes duration fields from strings like "250ms" or "2m".
// yaml.v3 has no built-in handling for time.Duration.
func (r *ReconcilerConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		WorkerCount      int    `yaml:"workerCount"`
		DebounceInterval string `yaml:"debounceInterval"`
		RetryBaseDelay   string `yaml:"retryBaseDelay"`
		RetryMaxDelay    string `yaml:"retryMaxDelay"`
		MaxRetries       int    `yaml:"maxRetries"`
		SecretCacheTTL   string `yaml:"secretCacheTTL"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	r.WorkerCount = raw.WorkerCount
	r.MaxRetries = raw.MaxRetries

	for _, field := range []struct {
		name string
		src  string
		dst  *time.Duration
	}{
		{"debounceInterval", raw.DebounceInterval, &r.DebounceInterval},
		{"retryBaseDelay", raw.RetryBaseDelay, &r.RetryBaseDelay},
		{"retryMaxDelay", raw.RetryMaxDelay, &r.RetryMaxDelay},
		{"secretCacheTTL", raw.SecretCacheTTL, &r.SecretCacheTTL},
	} {
		if field.src == "" {
			*field.dst = 0
			continue
		}
		parsed, err := time.ParseDuration(field.src)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", field.name, err)
		}
		*field.dst = parsed
	}

	return nil
}
