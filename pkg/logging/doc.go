// Package logging provides the structured logging facility for the
// ldap-integrator.
//
// It wraps log/slog with a small API tagged by subsystem, so log output can
// be correlated with the component that produced it:
//
//	logging.Info("IntegratorReconciler", "Reconciling %s/%s", namespace, name)
//	logging.Error("KubernetesDetector", err, "Cache stopped with error")
//
// Init must be called once at startup with the configured filter level and
// output writer; the root command does this before dispatching subcommands.
// Calls made before Init fall back to stderr at info level.
package logging
