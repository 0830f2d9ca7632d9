// Package config loads and validates the operator's configuration.
//
// Configuration is a single config.yaml in the configuration directory
// (default ~/.config/ldap-integrator). Loading starts from the defaults and
// overlays whatever the file provides, so a missing or partial file is
// never an error. Only values the operator genuinely cannot run with are
// rejected by Validate.
//
// The configuration covers the backend mode (auto, kubernetes, filesystem),
// the default namespace, the filesystem definitions path, log verbosity,
// and the reconciler tuning knobs (worker count, debounce, retry backoff,
// bind password cache TTL). Integrator and binding resources themselves are
// not configuration; they are read through the client package.
package config
