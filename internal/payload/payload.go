// Package payload derives the connection payload published to LDAP
// bindings.
//
// The payload is a pure function of the integrator spec and the resolved
// bind password: identical inputs always produce identical payloads, which
// is what makes the publish step idempotent.
package payload

import (
	"crypto/sha256"
	"encoding/hex"
	"maps"
	"sort"
	"strconv"
	"strings"

	v1alpha1 "ldapintegrator/pkg/apis/ldapintegrator/v1alpha1"
)

// Payload keys written to a binding's data bag. A publish is a full
// overwrite of exactly these keys.
const (
	KeyURLs         = "urls"
	KeyBaseDN       = "base_dn"
	KeyBindDN       = "bind_dn"
	KeyBindPassword = "bind_password"
	KeyStartTLS     = "starttls"
	KeyAuthMethod   = "auth_method"
)

// URLSeparator joins the ordered URL list into the flat string the
// data bag transport requires.
const URLSeparator = ","

// ManagedKeys returns the set of keys the integrator owns in a target data
// bag. Keys outside this set are left untouched on publish.
func ManagedKeys() []string {
	return []string{KeyURLs, KeyBaseDN, KeyBindDN, KeyBindPassword, KeyStartTLS, KeyAuthMethod}
}

// Build computes the connection payload for an integrator spec and its
// resolved bind password.
func Build(spec *v1alpha1.LDAPIntegratorSpec, bindPassword string) map[string]string {
	return map[string]string{
		KeyURLs:         strings.Join(spec.URLs, URLSeparator),
		KeyBaseDN:       spec.BaseDN,
		KeyBindDN:       spec.BindDN,
		KeyBindPassword: bindPassword,
		KeyStartTLS:     strconv.FormatBool(spec.StartTLSEnabled()),
		KeyAuthMethod:   spec.EffectiveAuthMethod(),
	}
}

// Equal reports whether two payloads carry the same data. Nil and empty
// payloads compare equal.
func Equal(a, b map[string]string) bool {
	return maps.Equal(a, b)
}

// Checksum returns a stable hex checksum of a payload, used in status
// reporting to detect no-op reconciliations without retaining the payload
// (and with it the password) in memory or status.
func Checksum(p map[string]string) string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write([]byte(p[k]))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
