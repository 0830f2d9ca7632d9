package reconciler

import (
	"context"
	"strings"
	"testing"
	"time"

	"ldapintegrator/internal/payload"
	v1alpha1 "ldapintegrator/pkg/apis/ldapintegrator/v1alpha1"
)

func newTestReconciler(fake *fakeIntegratorClient) *IntegratorReconciler {
	return NewIntegratorReconciler(fake, nil).WithStatusUpdater(fake, "default")
}

func TestIntegratorReconciler_ResourceType(t *testing.T) {
	r := newTestReconciler(newFakeIntegratorClient())
	if r.GetResourceType() != ResourceTypeIntegrator {
		t.Errorf("expected resource type %s, got %s", ResourceTypeIntegrator, r.GetResourceType())
	}
}

func TestIntegratorReconciler_DeletedIntegrator(t *testing.T) {
	fake := newFakeIntegratorClient()
	r := newTestReconciler(fake)

	result := r.Reconcile(context.Background(), ReconcileRequest{
		Type: ResourceTypeIntegrator,
		Name: "gone",
	})

	if result.Error != nil {
		t.Errorf("expected no error for deleted integrator, got %v", result.Error)
	}
	if result.Requeue || result.RequeueAfter != 0 {
		t.Errorf("expected no requeue for deleted integrator, got %+v", result)
	}
}

func TestIntegratorReconciler_InvalidSpecBlocks(t *testing.T) {
	fake := newFakeIntegratorClient()
	integrator := newTestIntegrator("corp-ldap", "default")
	integrator.Spec.URLs = nil
	fake.addIntegrator(integrator)

	r := newTestReconciler(fake)
	result := r.Reconcile(context.Background(), ReconcileRequest{
		Type: ResourceTypeIntegrator,
		Name: "corp-ldap",
	})

	// Validation failures are terminal until the spec changes; no retry.
	if result.Error != nil {
		t.Errorf("expected no retry error for validation failure, got %v", result.Error)
	}

	stored := fake.storedIntegrator("default", "corp-ldap")
	if stored.Status.Phase != v1alpha1.PhaseBlocked {
		t.Errorf("expected phase %s, got %s", v1alpha1.PhaseBlocked, stored.Status.Phase)
	}
	if !strings.HasPrefix(stored.Status.Reason, "invalid urls:") {
		t.Errorf("expected reason to name the urls field, got %q", stored.Status.Reason)
	}
	if fake.publishCalls != 0 {
		t.Errorf("expected no publishes, got %d", fake.publishCalls)
	}
}

func TestIntegratorReconciler_FirstValidationFailureWins(t *testing.T) {
	fake := newFakeIntegratorClient()
	integrator := newTestIntegrator("corp-ldap", "default")
	integrator.Spec.URLs = []string{"http://not-ldap.example.com"}
	integrator.Spec.BaseDN = ""
	integrator.Spec.BindDN = ""
	fake.addIntegrator(integrator)

	r := newTestReconciler(fake)
	r.Reconcile(context.Background(), ReconcileRequest{Type: ResourceTypeIntegrator, Name: "corp-ldap"})

	stored := fake.storedIntegrator("default", "corp-ldap")
	if !strings.HasPrefix(stored.Status.Reason, "invalid urls:") {
		t.Errorf("expected the urls failure to win, got %q", stored.Status.Reason)
	}
}

func TestIntegratorReconciler_MissingSecretBlocksAndRetries(t *testing.T) {
	fake := newFakeIntegratorClient()
	fake.addIntegrator(newTestIntegrator("corp-ldap", "default"))
	// No password stored for ldap-credentials.

	r := newTestReconciler(fake)
	result := r.Reconcile(context.Background(), ReconcileRequest{
		Type: ResourceTypeIntegrator,
		Name: "corp-ldap",
	})

	// The secret may appear later, so the failure is retried.
	if result.Error == nil || !result.Requeue {
		t.Errorf("expected retryable error for missing secret, got %+v", result)
	}

	stored := fake.storedIntegrator("default", "corp-ldap")
	if stored.Status.Phase != v1alpha1.PhaseBlocked {
		t.Errorf("expected phase %s, got %s", v1alpha1.PhaseBlocked, stored.Status.Phase)
	}
	if !strings.Contains(stored.Status.Reason, "cannot resolve bind password secret") {
		t.Errorf("expected reason to name the secret failure, got %q", stored.Status.Reason)
	}
}

func TestIntegratorReconciler_NoBindingsWaits(t *testing.T) {
	fake := newFakeIntegratorClient()
	fake.addIntegrator(newTestIntegrator("corp-ldap", "default"))
	fake.setPassword("default", "ldap-credentials", "password", "hunter2")

	r := newTestReconciler(fake)
	result := r.Reconcile(context.Background(), ReconcileRequest{
		Type: ResourceTypeIntegrator,
		Name: "corp-ldap",
	})

	if result.Error != nil {
		t.Errorf("expected no error, got %v", result.Error)
	}
	if result.RequeueAfter != DefaultStatusSyncInterval {
		t.Errorf("expected periodic resync requeue, got %v", result.RequeueAfter)
	}

	stored := fake.storedIntegrator("default", "corp-ldap")
	if stored.Status.Phase != v1alpha1.PhaseWaiting {
		t.Errorf("expected phase %s, got %s", v1alpha1.PhaseWaiting, stored.Status.Phase)
	}
	if stored.Status.Reason != "no bindings established" {
		t.Errorf("unexpected reason %q", stored.Status.Reason)
	}
	if stored.Status.BoundConsumers != 0 {
		t.Errorf("expected zero bound consumers, got %d", stored.Status.BoundConsumers)
	}
}

func TestIntegratorReconciler_PublishesToBindings(t *testing.T) {
	fake := newFakeIntegratorClient()
	integrator := newTestIntegrator("corp-ldap", "default")
	integrator.Spec.URLs = []string{"ldap://primary.example.com", "ldaps://secondary.example.com:636"}
	fake.addIntegrator(integrator)
	fake.setPassword("default", "ldap-credentials", "password", "hunter2")
	fake.addBinding(newTestBinding("webapp", "default", "corp-ldap"))
	fake.addBinding(newTestBinding("mailer", "apps", "corp-ldap"))

	// A binding referencing a different integrator must stay untouched.
	fake.addBinding(newTestBinding("other-app", "default", "other-ldap"))

	r := newTestReconciler(fake)
	result := r.Reconcile(context.Background(), ReconcileRequest{
		Type: ResourceTypeIntegrator,
		Name: "corp-ldap",
	})

	if result.Error != nil {
		t.Fatalf("expected successful reconcile, got %v", result.Error)
	}

	published := fake.publishedFor("default", "webapp-ldap")
	if published == nil {
		t.Fatal("expected payload published to webapp-ldap")
	}
	if published[payload.KeyURLs] != "ldap://primary.example.com,ldaps://secondary.example.com:636" {
		t.Errorf("unexpected urls value %q", published[payload.KeyURLs])
	}
	if published[payload.KeyBindPassword] != "hunter2" {
		t.Errorf("unexpected bind_password value %q", published[payload.KeyBindPassword])
	}
	if published[payload.KeyStartTLS] != "true" {
		t.Errorf("expected starttls default true, got %q", published[payload.KeyStartTLS])
	}
	if published[payload.KeyAuthMethod] != "simple" {
		t.Errorf("expected auth_method simple, got %q", published[payload.KeyAuthMethod])
	}

	stored := fake.storedIntegrator("default", "corp-ldap")
	if stored.Status.Phase != v1alpha1.PhaseActive {
		t.Errorf("expected phase %s, got %s", v1alpha1.PhaseActive, stored.Status.Phase)
	}
	if stored.Status.BoundConsumers != 1 {
		t.Errorf("expected 1 bound consumer in namespace default, got %d", stored.Status.BoundConsumers)
	}
	if stored.Status.PublishedChecksum == "" {
		t.Error("expected published checksum in status")
	}
	if stored.Status.LastPublished == nil {
		t.Error("expected last published timestamp in status")
	}

	// The mailer binding's ref has no namespace, so it resolves to
	// apps/corp-ldap, not default/corp-ldap, and stays untouched.
	if fake.publishedFor("apps", "mailer-ldap") != nil {
		t.Error("expected no publish to a binding owned by another namespace")
	}
	if fake.publishedFor("default", "other-app-ldap") != nil {
		t.Error("expected no publish to a binding of another integrator")
	}

	binding := fake.storedBinding("default", "webapp")
	if binding.Status.Phase != v1alpha1.BindingPhaseBound {
		t.Errorf("expected binding phase %s, got %s", v1alpha1.BindingPhaseBound, binding.Status.Phase)
	}
	if binding.Status.PublishedSecret != "webapp-ldap" {
		t.Errorf("unexpected published secret %q", binding.Status.PublishedSecret)
	}
}

func TestIntegratorReconciler_SecondRunSkipsPublish(t *testing.T) {
	fake := newFakeIntegratorClient()
	fake.addIntegrator(newTestIntegrator("corp-ldap", "default"))
	fake.setPassword("default", "ldap-credentials", "password", "hunter2")
	fake.addBinding(newTestBinding("webapp", "default", "corp-ldap"))

	r := newTestReconciler(fake)
	req := ReconcileRequest{Type: ResourceTypeIntegrator, Name: "corp-ldap"}

	r.Reconcile(context.Background(), req)
	if fake.publishCalls != 1 {
		t.Fatalf("expected 1 publish after first run, got %d", fake.publishCalls)
	}

	r.Reconcile(context.Background(), req)
	if fake.publishCalls != 1 {
		t.Errorf("expected publish to be skipped on unchanged payload, got %d calls", fake.publishCalls)
	}

	stored := fake.storedIntegrator("default", "corp-ldap")
	if stored.Status.Phase != v1alpha1.PhaseActive {
		t.Errorf("expected phase to stay %s, got %s", v1alpha1.PhaseActive, stored.Status.Phase)
	}
}

func TestIntegratorReconciler_SteadyStateWritesNoStatus(t *testing.T) {
	fake := newFakeIntegratorClient()
	fake.addIntegrator(newTestIntegrator("corp-ldap", "default"))
	fake.setPassword("default", "ldap-credentials", "password", "hunter2")
	fake.addBinding(newTestBinding("webapp", "default", "corp-ldap"))

	r := newTestReconciler(fake)
	req := ReconcileRequest{Type: ResourceTypeIntegrator, Name: "corp-ldap"}

	r.Reconcile(context.Background(), req)
	integratorWrites, bindingWrites := fake.statusWrites()
	if integratorWrites != 1 || bindingWrites != 1 {
		t.Fatalf("expected one status write each after first run, got %d/%d",
			integratorWrites, bindingWrites)
	}

	// A converged run must not touch the documents again; in filesystem
	// mode every status write raises a change event, so rewriting an
	// unchanged status would reconcile forever.
	r.Reconcile(context.Background(), req)
	integratorWrites, bindingWrites = fake.statusWrites()
	if integratorWrites != 1 {
		t.Errorf("expected no integrator status write on converged run, got %d", integratorWrites)
	}
	if bindingWrites != 1 {
		t.Errorf("expected no binding status write on converged run, got %d", bindingWrites)
	}
}

func TestIntegratorReconciler_BlockedClearsPublishedState(t *testing.T) {
	fake := newFakeIntegratorClient()
	fake.addIntegrator(newTestIntegrator("corp-ldap", "default"))
	fake.setPassword("default", "ldap-credentials", "password", "hunter2")
	fake.addBinding(newTestBinding("webapp", "default", "corp-ldap"))

	r := newTestReconciler(fake)
	req := ReconcileRequest{Type: ResourceTypeIntegrator, Name: "corp-ldap"}

	r.Reconcile(context.Background(), req)
	stored := fake.storedIntegrator("default", "corp-ldap")
	if stored.Status.PublishedChecksum == "" || stored.Status.LastPublished == nil {
		t.Fatal("expected publish fields set after active run")
	}

	broken := stored.DeepCopy()
	broken.Spec.URLs = nil
	fake.addIntegrator(broken)

	r.Reconcile(context.Background(), req)
	stored = fake.storedIntegrator("default", "corp-ldap")
	if stored.Status.Phase != v1alpha1.PhaseBlocked {
		t.Fatalf("expected %s, got %s", v1alpha1.PhaseBlocked, stored.Status.Phase)
	}
	if stored.Status.PublishedChecksum != "" {
		t.Errorf("expected checksum cleared on blocked phase, got %q", stored.Status.PublishedChecksum)
	}
	if stored.Status.LastPublished != nil {
		t.Errorf("expected lastPublished cleared on blocked phase, got %v", stored.Status.LastPublished)
	}
	if stored.Status.BoundConsumers != 0 {
		t.Errorf("expected boundConsumers cleared on blocked phase, got %d", stored.Status.BoundConsumers)
	}
}

func TestIntegratorReconciler_RepairsDriftedPayload(t *testing.T) {
	fake := newFakeIntegratorClient()
	fake.addIntegrator(newTestIntegrator("corp-ldap", "default"))
	fake.setPassword("default", "ldap-credentials", "password", "hunter2")
	fake.addBinding(newTestBinding("webapp", "default", "corp-ldap"))

	r := newTestReconciler(fake)
	req := ReconcileRequest{Type: ResourceTypeIntegrator, Name: "corp-ldap"}

	r.Reconcile(context.Background(), req)

	// Simulate a consumer editing a managed key by hand.
	drifted := fake.publishedFor("default", "webapp-ldap")
	drifted[payload.KeyBaseDN] = "dc=tampered,dc=com"
	fake.setPublished("default", "webapp-ldap", drifted)

	r.Reconcile(context.Background(), req)
	if fake.publishCalls != 2 {
		t.Errorf("expected republish after drift, got %d calls", fake.publishCalls)
	}
	if got := fake.publishedFor("default", "webapp-ldap")[payload.KeyBaseDN]; got != "dc=example,dc=com" {
		t.Errorf("expected drift repaired, got base_dn %q", got)
	}
}

func TestIntegratorReconciler_PreservesUnmanagedKeys(t *testing.T) {
	fake := newFakeIntegratorClient()
	fake.addIntegrator(newTestIntegrator("corp-ldap", "default"))
	fake.setPassword("default", "ldap-credentials", "password", "hunter2")
	fake.addBinding(newTestBinding("webapp", "default", "corp-ldap"))
	fake.setPublished("default", "webapp-ldap", map[string]string{"custom": "keep-me"})

	r := newTestReconciler(fake)
	r.Reconcile(context.Background(), ReconcileRequest{Type: ResourceTypeIntegrator, Name: "corp-ldap"})

	published := fake.publishedFor("default", "webapp-ldap")
	if published["custom"] != "keep-me" {
		t.Errorf("expected unmanaged key preserved, got %q", published["custom"])
	}
	if published[payload.KeyBindDN] != "cn=admin,dc=example,dc=com" {
		t.Errorf("expected managed keys written, got bind_dn %q", published[payload.KeyBindDN])
	}
}

func TestIntegratorReconciler_PhaseNeverSticks(t *testing.T) {
	fake := newFakeIntegratorClient()
	integrator := newTestIntegrator("corp-ldap", "default")
	integrator.Spec.BaseDN = ""
	fake.addIntegrator(integrator)
	fake.setPassword("default", "ldap-credentials", "password", "hunter2")
	fake.addBinding(newTestBinding("webapp", "default", "corp-ldap"))

	r := newTestReconciler(fake)
	req := ReconcileRequest{Type: ResourceTypeIntegrator, Name: "corp-ldap"}

	r.Reconcile(context.Background(), req)
	if phase := fake.storedIntegrator("default", "corp-ldap").Status.Phase; phase != v1alpha1.PhaseBlocked {
		t.Fatalf("expected %s, got %s", v1alpha1.PhaseBlocked, phase)
	}

	// Fixing the spec clears the phase on the next run; the old root cause
	// does not linger.
	fixed := fake.storedIntegrator("default", "corp-ldap").DeepCopy()
	fixed.Spec.BaseDN = "dc=example,dc=com"
	fake.addIntegrator(fixed)

	r.Reconcile(context.Background(), req)
	stored := fake.storedIntegrator("default", "corp-ldap")
	if stored.Status.Phase != v1alpha1.PhaseActive {
		t.Errorf("expected %s after fix, got %s", v1alpha1.PhaseActive, stored.Status.Phase)
	}
	if stored.Status.Reason != "" {
		t.Errorf("expected reason cleared, got %q", stored.Status.Reason)
	}
}

func TestIntegratorReconciler_EmitsEventOnPhaseChange(t *testing.T) {
	fake := newFakeIntegratorClient()
	integrator := newTestIntegrator("corp-ldap", "default")
	integrator.Spec.URLs = nil
	fake.addIntegrator(integrator)

	r := newTestReconciler(fake)
	req := ReconcileRequest{Type: ResourceTypeIntegrator, Name: "corp-ldap"}

	r.Reconcile(context.Background(), req)
	r.Reconcile(context.Background(), req)

	events := fake.recordedEvents()
	if len(events) != 1 {
		t.Fatalf("expected one event for one phase change, got %d", len(events))
	}
	if events[0].Reason != v1alpha1.PhaseBlocked {
		t.Errorf("unexpected event reason %q", events[0].Reason)
	}
	if events[0].EventType != "Warning" {
		t.Errorf("expected Warning event for Blocked phase, got %q", events[0].EventType)
	}
}

func TestIntegratorReconciler_RetriesStatusConflict(t *testing.T) {
	fake := newFakeIntegratorClient()
	fake.addIntegrator(newTestIntegrator("corp-ldap", "default"))
	fake.setPassword("default", "ldap-credentials", "password", "hunter2")
	fake.statusConflicts = 2

	r := newTestReconciler(fake)
	r.Reconcile(context.Background(), ReconcileRequest{Type: ResourceTypeIntegrator, Name: "corp-ldap"})

	stored := fake.storedIntegrator("default", "corp-ldap")
	if stored.Status.Phase != v1alpha1.PhaseWaiting {
		t.Errorf("expected status written despite conflicts, got phase %q", stored.Status.Phase)
	}
}

func TestIntegratorReconciler_TimestampsUseClock(t *testing.T) {
	fixed := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	original := nowFunc
	nowFunc = func() time.Time { return fixed }
	defer func() { nowFunc = original }()

	fake := newFakeIntegratorClient()
	fake.addIntegrator(newTestIntegrator("corp-ldap", "default"))
	fake.setPassword("default", "ldap-credentials", "password", "hunter2")
	fake.addBinding(newTestBinding("webapp", "default", "corp-ldap"))

	r := newTestReconciler(fake)
	r.Reconcile(context.Background(), ReconcileRequest{Type: ResourceTypeIntegrator, Name: "corp-ldap"})

	stored := fake.storedIntegrator("default", "corp-ldap")
	if stored.Status.LastPublished == nil || !stored.Status.LastPublished.Time.Equal(fixed) {
		t.Errorf("expected last published %v, got %v", fixed, stored.Status.LastPublished)
	}
}
