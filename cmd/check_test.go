package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeDefinition(t *testing.T, basePath, dir, name, content string) {
	t.Helper()
	fullDir := filepath.Join(basePath, dir)
	if err := os.MkdirAll(fullDir, 0o755); err != nil {
		t.Fatalf("failed to create %s: %v", fullDir, err)
	}
	if err := os.WriteFile(filepath.Join(fullDir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
}

const checkIntegratorDoc = `apiVersion: ldap-integrator.io/v1alpha1
kind: LDAPIntegrator
metadata:
  name: corp-ldap
  namespace: default
spec:
  urls:
    - ldap://ldap.example.com
  baseDN: dc=example,dc=com
  bindDN: cn=admin,dc=example,dc=com
  bindPasswordSecretRef:
    name: ldap-credentials
`

const checkBindingDoc = `apiVersion: ldap-integrator.io/v1alpha1
kind: LDAPBinding
metadata:
  name: webapp
  namespace: default
spec:
  integratorRef:
    name: corp-ldap
`

func runCheckCommand(t *testing.T, basePath string, quiet bool) (string, error) {
	t.Helper()

	originalQuiet := checkQuiet
	defer func() { checkQuiet = originalQuiet }()
	checkQuiet = quiet

	var buf bytes.Buffer
	checkCmd.SetOut(&buf)
	defer checkCmd.SetOut(nil)

	err := runCheck(checkCmd, []string{basePath})
	return buf.String(), err
}

func TestCheck_ValidDefinitions(t *testing.T) {
	basePath := t.TempDir()
	writeDefinition(t, basePath, "integrators", "corp-ldap.yaml", checkIntegratorDoc)
	writeDefinition(t, basePath, "bindings", "webapp.yaml", checkBindingDoc)
	writeDefinition(t, basePath, "secrets", "ldap-credentials.yaml", "password: hunter2\n")

	output, err := runCheckCommand(t, basePath, false)
	if err != nil {
		t.Fatalf("expected check to pass, got %v\noutput: %s", err, output)
	}
	if !strings.Contains(output, "OK       LDAPIntegrator default/corp-ldap") {
		t.Errorf("expected OK line, got: %s", output)
	}
	if !strings.Contains(output, "no problems found") {
		t.Errorf("expected summary line, got: %s", output)
	}
}

func TestCheck_InvalidSpecFails(t *testing.T) {
	basePath := t.TempDir()
	invalid := strings.Replace(checkIntegratorDoc, "dc=example,dc=com", "", 1)
	writeDefinition(t, basePath, "integrators", "corp-ldap.yaml", invalid)

	output, err := runCheckCommand(t, basePath, false)
	if err == nil {
		t.Fatalf("expected check to fail, output: %s", output)
	}
	if !strings.Contains(output, "BLOCKED  LDAPIntegrator default/corp-ldap") {
		t.Errorf("expected BLOCKED line, got: %s", output)
	}
}

func TestCheck_MissingSecretFails(t *testing.T) {
	basePath := t.TempDir()
	writeDefinition(t, basePath, "integrators", "corp-ldap.yaml", checkIntegratorDoc)

	output, err := runCheckCommand(t, basePath, false)
	if err == nil {
		t.Fatal("expected check to fail on unresolvable secret")
	}
	if !strings.Contains(output, "cannot resolve bind password secret") {
		t.Errorf("expected secret failure in output, got: %s", output)
	}
}

func TestCheck_WaitingWithoutBindings(t *testing.T) {
	basePath := t.TempDir()
	writeDefinition(t, basePath, "integrators", "corp-ldap.yaml", checkIntegratorDoc)
	writeDefinition(t, basePath, "secrets", "ldap-credentials.yaml", "password: hunter2\n")

	output, err := runCheckCommand(t, basePath, false)
	if err != nil {
		t.Fatalf("waiting is not a problem, got error %v", err)
	}
	if !strings.Contains(output, "WAITING  LDAPIntegrator default/corp-ldap") {
		t.Errorf("expected WAITING line, got: %s", output)
	}
}

func TestCheck_DanglingBindingFails(t *testing.T) {
	basePath := t.TempDir()
	writeDefinition(t, basePath, "bindings", "webapp.yaml", checkBindingDoc)

	output, err := runCheckCommand(t, basePath, false)
	if err == nil {
		t.Fatal("expected check to fail on dangling binding")
	}
	if !strings.Contains(output, "DANGLING LDAPBinding default/webapp") {
		t.Errorf("expected DANGLING line, got: %s", output)
	}
}

func TestCheck_QuietSuppressesHealthyOutput(t *testing.T) {
	basePath := t.TempDir()
	writeDefinition(t, basePath, "integrators", "corp-ldap.yaml", checkIntegratorDoc)
	writeDefinition(t, basePath, "bindings", "webapp.yaml", checkBindingDoc)
	writeDefinition(t, basePath, "secrets", "ldap-credentials.yaml", "password: hunter2\n")

	output, err := runCheckCommand(t, basePath, true)
	if err != nil {
		t.Fatalf("expected check to pass, got %v", err)
	}
	if output != "" {
		t.Errorf("expected no output in quiet mode, got: %s", output)
	}
}
