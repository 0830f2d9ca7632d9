// Package v1alpha1 contains API Schema definitions for the ldap-integrator v1alpha1 API group.
//
// This package defines the resource kinds the integrator operates on. The
// v1alpha1 API version represents the initial alpha release and is subject
// to change.
//
// # API Group: ldap-integrator.io/v1alpha1
//
// ## LDAPIntegrator
//
// LDAPIntegrator holds the client-side configuration for an externally
// managed LDAP server: the server URLs, the search base, and the bind
// account. The bind password is never embedded in the spec; it is referenced
// through a secret and resolved at reconciliation time.
//
// Example:
//
//	apiVersion: ldap-integrator.io/v1alpha1
//	kind: LDAPIntegrator
//	metadata:
//	  name: corp-directory
//	  namespace: default
//	spec:
//	  urls:
//	    - ldap://10.0.0.5
//	  baseDN: dc=example,dc=com
//	  bindDN: cn=admin,dc=example,dc=com
//	  bindPasswordSecretRef:
//	    name: corp-directory-bind
//
// ## LDAPBinding
//
// LDAPBinding is the channel through which a consumer application receives
// the connection payload derived from an LDAPIntegrator. Creating a binding
// establishes the relation; the integrator publishes the payload into the
// binding's target secret and keeps it up to date.
//
// +kubebuilder:object:generate=true
// +groupName=ldap-integrator.io
package v1alpha1
