package verification_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/domainverify/domainverify/internal/challenge"
	"github.com/domainverify/domainverify/internal/verification"
	"github.com/domainverify/domainverify/internal/webhook"
)

// unresolvedLister adapts stubStore to the recheck sweep query.
type unresolvedLister struct {
	store *stubStore
}

func (l *unresolvedLister) ListUnresolved(_ context.Context, cutoff time.Time, limit int) ([]*verification.Verification, error) {
	l.store.mu.RLock()
	defer l.store.mu.RUnlock()
	var out []*verification.Verification
	for _, v := range l.store.rows {
		if v.Status == verification.StatusVerified || !v.CreatedAt.After(cutoff) {
			continue
		}
		cp := *v
		out = append(out, &cp)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func TestRecheck_convergesLatePublishers(t *testing.T) {
	store := newStubStore()
	chk := &stubChecker{found: false}
	disp := &recordingDispatcher{}
	svc := newSvc(store, chk, disp)
	orgID := uuid.New()
	orgScope := verification.Scope{OrganizationID: &orgID}

	anon, _ := svc.Create(context.Background(), verification.Scope{}, "a.example.com", challenge.MethodDNS)
	scoped, _ := svc.Create(context.Background(), orgScope, "b.example.com", challenge.MethodFile)

	rc := verification.NewRechecker(&unresolvedLister{store: store}, svc, verification.RecheckConfig{}, zap.NewNop())

	// Proof not published yet: both records fail.
	rc.CheckAll(context.Background())
	if v, _ := svc.Get(context.Background(), verification.Scope{}, anon.ID); v.Status != verification.StatusFailed {
		t.Errorf("anon status after first sweep: %q", v.Status)
	}

	// Owner publishes late; the next sweep verifies both.
	chk.found = true
	rc.CheckAll(context.Background())

	if v, _ := svc.Get(context.Background(), verification.Scope{}, anon.ID); v.Status != verification.StatusVerified {
		t.Errorf("anon status after second sweep: %q", v.Status)
	}
	if v, _ := svc.Get(context.Background(), orgScope, scoped.ID); v.Status != verification.StatusVerified {
		t.Errorf("scoped status after second sweep: %q", v.Status)
	}

	// Only the scoped record dispatches: failed once, then completed.
	want := []string{webhook.EventVerificationFailed, webhook.EventVerificationCompleted}
	got := disp.dispatched()
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("events: got %v, want %v", got, want)
	}
}

func TestRecheck_verifiedRecordsAreNeverSwept(t *testing.T) {
	store := newStubStore()
	chk := &stubChecker{found: true}
	svc := newSvc(store, chk, nil)

	v, _ := svc.Create(context.Background(), verification.Scope{}, "example.com", challenge.MethodDNS)
	if _, err := svc.Check(context.Background(), verification.Scope{}, v.ID); err != nil {
		t.Fatal(err)
	}
	if chk.calls != 1 {
		t.Fatalf("setup: %d calls", chk.calls)
	}

	rc := verification.NewRechecker(&unresolvedLister{store: store}, svc, verification.RecheckConfig{}, zap.NewNop())
	rc.CheckAll(context.Background())
	rc.CheckAll(context.Background())

	if chk.calls != 1 {
		t.Errorf("sweep re-checked a verified record: %d calls", chk.calls)
	}
}
