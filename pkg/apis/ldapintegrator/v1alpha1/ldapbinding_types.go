package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// Binding phase values.
const (
	// BindingPhaseBound means the connection payload has been published to
	// the binding's target secret.
	BindingPhaseBound = "Bound"

	// BindingPhasePending means the binding exists but the integrator has
	// not published a payload to it yet.
	BindingPhasePending = "Pending"
)

// IntegratorReference points a binding at the LDAPIntegrator it consumes.
type IntegratorReference struct {
	// Name of the LDAPIntegrator.
	// +kubebuilder:validation:Required
	Name string `json:"name" yaml:"name"`

	// Namespace of the LDAPIntegrator. Defaults to the binding's namespace.
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
}

// LDAPBindingSpec defines the desired state of LDAPBinding.
type LDAPBindingSpec struct {
	// IntegratorRef identifies the integrator whose payload this binding
	// consumes.
	// +kubebuilder:validation:Required
	IntegratorRef IntegratorReference `json:"integratorRef" yaml:"integratorRef"`

	// TargetSecretName is the secret in the binding's namespace the payload
	// is written to. Defaults to "<binding-name>-ldap".
	TargetSecretName string `json:"targetSecretName,omitempty" yaml:"targetSecretName,omitempty"`

	// User identifies the consuming application account. Informational;
	// defaults to the binding name.
	User string `json:"user,omitempty" yaml:"user,omitempty"`

	// Group identifies the consuming application group. Informational;
	// defaults to the binding's namespace.
	Group string `json:"group,omitempty" yaml:"group,omitempty"`
}

// LDAPBindingStatus defines the observed state of LDAPBinding.
type LDAPBindingStatus struct {
	// Phase is the current binding phase.
	// +kubebuilder:validation:Enum=Bound;Pending
	Phase string `json:"phase,omitempty" yaml:"phase,omitempty"`

	// Reason is a human-readable explanation of the current phase.
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`

	// PublishedSecret is the name of the secret the payload was written to.
	PublishedSecret string `json:"publishedSecret,omitempty" yaml:"publishedSecret,omitempty"`

	// LastPublished is when the payload was last written to this binding.
	LastPublished *metav1.Time `json:"lastPublished,omitempty" yaml:"lastPublished,omitempty"`
}

// TargetSecret returns the effective target secret name for the binding.
func (b *LDAPBinding) TargetSecret() string {
	if b.Spec.TargetSecretName != "" {
		return b.Spec.TargetSecretName
	}
	return b.Name + "-ldap"
}

// IntegratorNamespace returns the namespace of the referenced integrator,
// defaulting to the binding's own namespace.
func (b *LDAPBinding) IntegratorNamespace() string {
	if b.Spec.IntegratorRef.Namespace != "" {
		return b.Spec.IntegratorRef.Namespace
	}
	return b.Namespace
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:shortName=ldapbind
// +kubebuilder:printcolumn:name="Integrator",type="string",JSONPath=".spec.integratorRef.name"
// +kubebuilder:printcolumn:name="Phase",type="string",JSONPath=".status.phase"
// +kubebuilder:printcolumn:name="Secret",type="string",JSONPath=".status.publishedSecret"
// +kubebuilder:printcolumn:name="Age",type="date",JSONPath=".metadata.creationTimestamp"

// LDAPBinding is the Schema for the ldapbindings API.
type LDAPBinding struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   LDAPBindingSpec   `json:"spec,omitempty"`
	Status LDAPBindingStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// LDAPBindingList contains a list of LDAPBinding.
type LDAPBindingList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []LDAPBinding `json:"items"`
}

func init() {
	SchemeBuilder.Register(&LDAPBinding{}, &LDAPBindingList{})
}
