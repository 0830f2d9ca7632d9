package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ldapintegrator/internal/client"
	"ldapintegrator/internal/config"
	"ldapintegrator/internal/reconciler"
	"ldapintegrator/pkg/logging"
)

var (
	// operatorConfigPath points at a directory containing config.yaml.
	// When empty the user-level config directory is used.
	operatorConfigPath string

	// operatorMode overrides the configured backend mode.
	operatorMode string

	// operatorNamespace overrides the configured default namespace.
	operatorNamespace string

	// operatorDefinitionsPath overrides the filesystem definitions directory.
	operatorDefinitionsPath string

	// operatorDebug enables verbose logging regardless of the configured
	// log level.
	operatorDebug bool
)

// operatorCmd runs the reconciliation loop until interrupted.
var operatorCmd = &cobra.Command{
	Use:   "operator",
	Short: "Run the ldap-integrator reconciliation loop",
	Long: `Starts the operator and reconciles LDAPIntegrator resources until the
process receives SIGINT or SIGTERM.

The backend is auto-detected: if a Kubernetes cluster with the CRDs is
reachable, the operator watches LDAPIntegrator, LDAPBinding, and Secret
resources through informers. Otherwise it watches a directory of YAML
definitions:

  <definitions-path>/integrators/  LDAPIntegrator documents
  <definitions-path>/bindings/     LDAPBinding documents
  <definitions-path>/secrets/      bind password secrets
  <definitions-path>/published/    published connection payloads

Configuration is read from config.yaml in the user config directory
(~/.config/ldap-integrator) or the directory given with --config-path.
Command line flags override the configuration file.`,
	Args: cobra.NoArgs,
	RunE: runOperator,
}

func runOperator(cmd *cobra.Command, args []string) error {
	cfg, err := loadOperatorConfig()
	if err != nil {
		return err
	}

	logging.Init(logging.ParseLevel(cfg.LogLevel), os.Stderr)
	logging.Info("Operator", "Starting ldap-integrator %s", GetVersion())

	integratorClient, err := client.New(&client.Config{
		Namespace:           cfg.Namespace,
		FilesystemPath:      cfg.DefinitionsPath,
		ForceFilesystemMode: cfg.Mode == config.ModeFilesystem,
	})
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	defer integratorClient.Close()

	resolver := client.NewCachingResolver(integratorClient,
		client.WithCacheTTL(cfg.Reconciler.SecretCacheTTL))

	integratorReconciler := reconciler.NewIntegratorReconciler(integratorClient, resolver).
		WithStatusUpdater(integratorClient, cfg.Namespace)

	manager := reconciler.NewManager(reconciler.ManagerConfig{
		Mode:             watchModeFor(cfg.Mode, integratorClient),
		FilesystemPath:   cfg.DefinitionsPath,
		Namespace:        cfg.Namespace,
		WorkerCount:      cfg.Reconciler.WorkerCount,
		MaxRetries:       cfg.Reconciler.MaxRetries,
		InitialBackoff:   cfg.Reconciler.RetryBaseDelay,
		MaxBackoff:       cfg.Reconciler.RetryMaxDelay,
		DebounceInterval: cfg.Reconciler.DebounceInterval,
		Debug:            operatorDebug,
	})
	manager.SetBridge(reconciler.NewBindingBridge(integratorClient, resolver, cfg.Namespace))

	if err := manager.RegisterReconciler(integratorReconciler); err != nil {
		return fmt.Errorf("failed to register reconciler: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = signalContext()
	} else {
		var stop func()
		ctx, stop = signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
	}

	if err := manager.Start(ctx); err != nil {
		return fmt.Errorf("failed to start reconciliation: %w", err)
	}

	// Filesystem watches only fire on changes, and informer replays can
	// race the manager startup, so walk the existing integrators once.
	integrators, err := integratorClient.ListLDAPIntegrators(ctx, "")
	if err != nil {
		logging.Warn("Operator", "Failed to list integrators for initial sync: %v", err)
	}
	for _, integrator := range integrators {
		manager.TriggerReconcile(reconciler.ResourceTypeIntegrator, integrator.Name, integrator.Namespace)
	}
	logging.Info("Operator", "Initial sync queued for %d integrators (%s mode)",
		len(integrators), manager.GetWatchMode())

	<-ctx.Done()

	logging.Info("Operator", "Shutdown signal received")
	return manager.Stop()
}

// loadOperatorConfig loads the configuration file and applies flag
// overrides.
func loadOperatorConfig() (config.OperatorConfig, error) {
	configPath := operatorConfigPath
	if configPath == "" {
		configPath = config.GetDefaultConfigPathOrPanic()
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return config.OperatorConfig{}, fmt.Errorf("failed to load configuration: %w", err)
	}

	if operatorMode != "" {
		cfg.Mode = config.Mode(operatorMode)
	}
	if operatorNamespace != "" {
		cfg.Namespace = operatorNamespace
	}
	if operatorDefinitionsPath != "" {
		cfg.DefinitionsPath = operatorDefinitionsPath
	}
	if operatorDebug {
		cfg.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return config.OperatorConfig{}, err
	}

	return cfg, nil
}

// watchModeFor maps the configured backend mode to the manager's watch
// mode, resolving auto mode from what the client actually connected to.
func watchModeFor(mode config.Mode, integratorClient client.IntegratorClient) reconciler.WatchMode {
	switch mode {
	case config.ModeKubernetes:
		return reconciler.WatchModeKubernetes
	case config.ModeFilesystem:
		return reconciler.WatchModeFilesystem
	default:
		if integratorClient.IsKubernetesMode() {
			return reconciler.WatchModeKubernetes
		}
		return reconciler.WatchModeFilesystem
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return ctx
}

func init() {
	rootCmd.AddCommand(operatorCmd)

	operatorCmd.Flags().StringVar(&operatorConfigPath, "config-path", "", "Directory containing config.yaml (default: user config directory)")
	operatorCmd.Flags().StringVar(&operatorMode, "mode", "", "Backend mode: auto, kubernetes, or filesystem")
	operatorCmd.Flags().StringVar(&operatorNamespace, "namespace", "", "Default namespace for resources without one")
	operatorCmd.Flags().StringVar(&operatorDefinitionsPath, "definitions-path", "", "Base directory for filesystem mode definitions")
	operatorCmd.Flags().BoolVar(&operatorDebug, "debug", false, "Enable debug logging")
}
