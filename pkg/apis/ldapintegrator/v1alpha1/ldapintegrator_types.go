package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// Phase values reported in LDAPIntegrator status. The phase is recomputed
// from scratch on every reconciliation and never carries over a stale
// root cause.
const (
	// PhaseActive means the connection payload has been published to all
	// established bindings.
	PhaseActive = "Active"

	// PhaseBlocked means required configuration is missing or invalid, or
	// the bind password secret could not be resolved. The reason field
	// carries a human-readable explanation for the operator.
	PhaseBlocked = "Blocked"

	// PhaseWaiting means the configuration is valid but no LDAPBinding has
	// been established yet, so there is nothing to publish to.
	PhaseWaiting = "Waiting"
)

// AuthMethodSimple is the only supported LDAP authentication method.
const AuthMethodSimple = "simple"

// SecretReference identifies the secret holding the bind account password.
type SecretReference struct {
	// Name of the secret.
	// +kubebuilder:validation:Required
	Name string `json:"name" yaml:"name"`

	// Namespace of the secret. Defaults to the integrator's namespace.
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`

	// Key within the secret that holds the password. Defaults to "password".
	// +kubebuilder:default=password
	Key string `json:"key,omitempty" yaml:"key,omitempty"`
}

// LDAPIntegratorSpec defines the desired state of LDAPIntegrator.
type LDAPIntegratorSpec struct {
	// URLs is the ordered list of LDAP server addresses. Each entry must be
	// an ldap:// or ldaps:// URL.
	// +kubebuilder:validation:MinItems=1
	URLs []string `json:"urls" yaml:"urls"`

	// BaseDN is the distinguished name of the search base.
	// +kubebuilder:validation:Required
	BaseDN string `json:"baseDN" yaml:"baseDN"`

	// BindDN is the distinguished name of the bind account.
	// +kubebuilder:validation:Required
	BindDN string `json:"bindDN" yaml:"bindDN"`

	// BindPasswordSecretRef references the secret holding the bind account
	// password. The password itself never appears in this spec.
	// +kubebuilder:validation:Required
	BindPasswordSecretRef SecretReference `json:"bindPasswordSecretRef" yaml:"bindPasswordSecretRef"`

	// StartTLS indicates whether consumers should negotiate TLS on the
	// plain LDAP port.
	// +kubebuilder:default=true
	StartTLS *bool `json:"starttls,omitempty" yaml:"starttls,omitempty"`

	// AuthMethod is the LDAP authentication method consumers should use.
	// +kubebuilder:validation:Enum=simple
	// +kubebuilder:default=simple
	AuthMethod string `json:"authMethod,omitempty" yaml:"authMethod,omitempty"`
}

// LDAPIntegratorStatus defines the observed state of LDAPIntegrator.
type LDAPIntegratorStatus struct {
	// Phase is the current integrator phase.
	// +kubebuilder:validation:Enum=Active;Blocked;Waiting
	Phase string `json:"phase,omitempty" yaml:"phase,omitempty"`

	// Reason is a human-readable explanation of the current phase.
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`

	// ObservedGeneration is the spec generation last acted upon.
	ObservedGeneration int64 `json:"observedGeneration,omitempty" yaml:"observedGeneration,omitempty"`

	// PublishedChecksum is the checksum of the last payload written to the
	// bindings. Used to detect no-op reconciliations.
	PublishedChecksum string `json:"publishedChecksum,omitempty" yaml:"publishedChecksum,omitempty"`

	// LastPublished is when the payload was last written.
	LastPublished *metav1.Time `json:"lastPublished,omitempty" yaml:"lastPublished,omitempty"`

	// BoundConsumers is the number of bindings the payload was published to.
	BoundConsumers int `json:"boundConsumers,omitempty" yaml:"boundConsumers,omitempty"`
}

// StartTLSEnabled returns the effective StartTLS setting, applying the
// default when the field is unset.
func (s *LDAPIntegratorSpec) StartTLSEnabled() bool {
	if s.StartTLS == nil {
		return true
	}
	return *s.StartTLS
}

// EffectiveAuthMethod returns the auth method, applying the default when
// the field is unset.
func (s *LDAPIntegratorSpec) EffectiveAuthMethod() string {
	if s.AuthMethod == "" {
		return AuthMethodSimple
	}
	return s.AuthMethod
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:shortName=ldapint
// +kubebuilder:printcolumn:name="BaseDN",type="string",JSONPath=".spec.baseDN"
// +kubebuilder:printcolumn:name="Phase",type="string",JSONPath=".status.phase"
// +kubebuilder:printcolumn:name="Consumers",type="integer",JSONPath=".status.boundConsumers"
// +kubebuilder:printcolumn:name="Age",type="date",JSONPath=".metadata.creationTimestamp"

// LDAPIntegrator is the Schema for the ldapintegrators API.
type LDAPIntegrator struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   LDAPIntegratorSpec   `json:"spec,omitempty"`
	Status LDAPIntegratorStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// LDAPIntegratorList contains a list of LDAPIntegrator.
type LDAPIntegratorList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []LDAPIntegrator `json:"items"`
}

func init() {
	SchemeBuilder.Register(&LDAPIntegrator{}, &LDAPIntegratorList{})
}
