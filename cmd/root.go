package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
)

// rootCmd represents the base command for the ldap-integrator application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "ldap-integrator",
	Short: "Publish LDAP connection details to consuming applications",
	Long: `ldap-integrator watches LDAPIntegrator resources and publishes the
connection payload (server URLs, base DN, bind credentials) to every
application that establishes an LDAPBinding.

It runs against a Kubernetes cluster with the CRDs installed, or against
a directory of YAML definitions when no cluster is available.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors
	// that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the
// application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// It initializes and executes the root command, which in turn handles
// subcommands and flags. This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "ldap-integrator version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitCodeError)
	}
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
}
