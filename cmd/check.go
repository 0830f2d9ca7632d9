package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ldapintegrator/internal/client"
	"ldapintegrator/internal/validation"
	"ldapintegrator/pkg/logging"
)

var checkQuiet bool

// checkCmd validates a directory of YAML definitions without publishing
// anything.
var checkCmd = &cobra.Command{
	Use:   "check <definitions-path>",
	Short: "Validate integrator definitions without publishing",
	Long: `Reads the LDAPIntegrator and LDAPBinding definitions under the given
directory and reports what the operator would do with them:

  - spec validation failures (would report Blocked)
  - bind password references that do not resolve (would report Blocked)
  - integrators with no bindings (would report Waiting)
  - binding references to integrators that do not exist

Nothing is published and no status is written. The command exits
non-zero when any definition would block.

Examples:
  ldap-integrator check ./definitions
  ldap-integrator check --quiet /etc/ldap-integrator`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	logging.Init(logging.ParseLevel("error"), os.Stderr)

	definitionsPath := args[0]
	integratorClient, err := client.NewFilesystemClient(&client.Config{
		FilesystemPath: definitionsPath,
	})
	if err != nil {
		return fmt.Errorf("failed to read definitions from %s: %w", definitionsPath, err)
	}
	defer integratorClient.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	integrators, err := integratorClient.ListLDAPIntegrators(ctx, "")
	if err != nil {
		return fmt.Errorf("failed to list integrators: %w", err)
	}
	bindings, err := integratorClient.ListLDAPBindings(ctx, "")
	if err != nil {
		return fmt.Errorf("failed to list bindings: %w", err)
	}

	problems := 0

	for i := range integrators {
		integrator := &integrators[i]
		name := integrator.Namespace + "/" + integrator.Name

		if err := validation.ValidateSpec(&integrator.Spec); err != nil {
			problems++
			fmt.Fprintf(out, "BLOCKED  LDAPIntegrator %s: %v\n", name, err)
			continue
		}

		if _, err := integratorClient.ResolveBindPassword(ctx, integrator.Spec.BindPasswordSecretRef, integrator.Namespace); err != nil {
			var accessErr *client.SecretAccessError
			if errors.As(err, &accessErr) {
				problems++
				fmt.Fprintf(out, "BLOCKED  LDAPIntegrator %s: %v\n", name, accessErr)
				continue
			}
			return fmt.Errorf("failed to resolve bind password for %s: %w", name, err)
		}

		consumers := 0
		for _, binding := range bindings {
			if binding.Spec.IntegratorRef.Name == integrator.Name && binding.IntegratorNamespace() == integrator.Namespace {
				consumers++
			}
		}

		if consumers == 0 {
			if !checkQuiet {
				fmt.Fprintf(out, "WAITING  LDAPIntegrator %s: no bindings established\n", name)
			}
			continue
		}

		if !checkQuiet {
			fmt.Fprintf(out, "OK       LDAPIntegrator %s: would publish to %d bindings\n", name, consumers)
		}
	}

	for _, binding := range bindings {
		if _, err := integratorClient.GetLDAPIntegrator(ctx, binding.Spec.IntegratorRef.Name, binding.IntegratorNamespace()); err != nil {
			problems++
			fmt.Fprintf(out, "DANGLING LDAPBinding %s/%s: references unknown LDAPIntegrator %s/%s\n",
				binding.Namespace, binding.Name, binding.IntegratorNamespace(), binding.Spec.IntegratorRef.Name)
		}
	}

	if problems > 0 {
		return fmt.Errorf("%d problem(s) found in %s", problems, definitionsPath)
	}

	if !checkQuiet {
		fmt.Fprintf(out, "Checked %d integrators and %d bindings, no problems found\n",
			len(integrators), len(bindings))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().BoolVarP(&checkQuiet, "quiet", "q", false, "Only report problems")
}
