// Package validation checks the syntactic shape of LDAP integrator
// configuration: server URLs and distinguished names.
//
// Validation is purely local. It never contacts the LDAP server; whether
// the configured endpoints are reachable is the consumer's concern.
package validation

import (
	"fmt"
	"net/url"

	ldapv3 "github.com/go-ldap/ldap/v3"

	v1alpha1 "ldapintegrator/pkg/apis/ldapintegrator/v1alpha1"
)

// FieldError reports a configuration field that failed validation. It is
// surfaced to the operator as a Blocked status reason, so the message must
// be readable without access to logs.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsFieldError reports whether err is a validation failure.
func IsFieldError(err error) bool {
	_, ok := err.(*FieldError)
	return ok
}

// ValidateURL checks that raw is a syntactically valid LDAP URL with an
// ldap:// or ldaps:// scheme and a host component.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return &FieldError{Field: "urls", Reason: fmt.Sprintf("%q is not a valid URL", raw)}
	}

	if u.Scheme != "ldap" && u.Scheme != "ldaps" {
		return &FieldError{Field: "urls", Reason: fmt.Sprintf("%q must use the ldap:// or ldaps:// scheme", raw)}
	}

	if u.Host == "" {
		return &FieldError{Field: "urls", Reason: fmt.Sprintf("%q has no host", raw)}
	}

	return nil
}

// ValidateDN checks that value is a syntactically valid distinguished name.
// The field name is carried into the error for status reporting.
func ValidateDN(field, value string) error {
	if value == "" {
		return &FieldError{Field: field, Reason: "must not be empty"}
	}

	if _, err := ldapv3.ParseDN(value); err != nil {
		return &FieldError{Field: field, Reason: fmt.Sprintf("%q is not a valid distinguished name", value)}
	}

	return nil
}

// ValidateSpec checks an integrator spec. The first failure wins and
// short-circuits: urls first, then baseDN and bindDN, then the secret
// reference. This ordering matches what the operator sees in the status
// reason when several fields are wrong at once.
func ValidateSpec(spec *v1alpha1.LDAPIntegratorSpec) error {
	if len(spec.URLs) == 0 {
		return &FieldError{Field: "urls", Reason: "at least one LDAP server URL is required"}
	}
	for _, raw := range spec.URLs {
		if err := ValidateURL(raw); err != nil {
			return err
		}
	}

	if err := ValidateDN("baseDN", spec.BaseDN); err != nil {
		return err
	}
	if err := ValidateDN("bindDN", spec.BindDN); err != nil {
		return err
	}

	if spec.BindPasswordSecretRef.Name == "" {
		return &FieldError{Field: "bindPasswordSecretRef", Reason: "a secret reference is required"}
	}

	if m := spec.EffectiveAuthMethod(); m != v1alpha1.AuthMethodSimple {
		return &FieldError{Field: "authMethod", Reason: fmt.Sprintf("%q is not supported, only %q", m, v1alpha1.AuthMethodSimple)}
	}

	return nil
}
