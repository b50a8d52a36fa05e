package verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/domainverify/domainverify/internal/challenge"
	"github.com/domainverify/domainverify/internal/token"
	"github.com/domainverify/domainverify/internal/webhook"
)

// Sentinel errors for the verification service.
var (
	ErrInvalidDomain = errors.New("domain must not be empty")
	ErrInvalidMethod = errors.New("method must be one of: dns, file")
)

// store is the storage interface required by Service.
// *Repository satisfies this interface.
type store interface {
	Create(ctx context.Context, v *Verification) error
	GetByID(ctx context.Context, id uuid.UUID) (*Verification, error)
	ListByOrganization(ctx context.Context, orgID *uuid.UUID) ([]*Verification, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, prev, next Status, verifiedAt *time.Time) (bool, error)
}

// Dispatcher fans a lifecycle event out to an organization's webhooks.
// *webhook.Dispatcher satisfies this interface.
type Dispatcher interface {
	Dispatch(ctx context.Context, orgID uuid.UUID, event string, payload any)
}

// MetricsRecorder is an optional callback recording check outcomes.
type MetricsRecorder func(method challenge.Method, status Status)

// Service orchestrates the verification lifecycle: token issuance at
// creation, the external proof check, the state transition, and the webhook
// fan-out when a transition warrants it.
type Service struct {
	store      store
	checkers   *challenge.Set
	dispatcher Dispatcher
	generate   func() string
	onMetrics  MetricsRecorder
	logger     *zap.Logger
}

// NewService creates a Service. dispatcher may be nil when webhooks are
// disabled; generate defaults to the production token generator.
func NewService(store store, checkers *challenge.Set, dispatcher Dispatcher, logger *zap.Logger) *Service {
	return &Service{
		store:      store,
		checkers:   checkers,
		dispatcher: dispatcher,
		generate:   token.Generate,
		logger:     logger,
	}
}

// SetMetricsRecorder configures the metrics callback.
func (s *Service) SetMetricsRecorder(fn MetricsRecorder) {
	s.onMetrics = fn
}

// Create issues a token and persists a new pending verification in the
// caller's scope. No network call happens here; proof is only checked by
// Check.
func (s *Service) Create(ctx context.Context, scope Scope, domain string, method challenge.Method) (*Verification, error) {
	domain = NormalizeDomain(domain)
	if domain == "" {
		return nil, ErrInvalidDomain
	}
	if !method.Valid() {
		return nil, ErrInvalidMethod
	}

	v := &Verification{
		OrganizationID: scope.OrganizationID,
		Domain:         domain,
		Method:         method,
		Token:          s.generate(),
		Status:         StatusPending,
	}
	if err := s.store.Create(ctx, v); err != nil {
		return nil, fmt.Errorf("persist verification: %w", err)
	}

	s.logger.Info("verification created",
		zap.String("id", v.ID.String()),
		zap.String("domain", v.Domain),
		zap.String("method", string(v.Method)),
	)
	return v, nil
}

// Get returns a verification visible to the scope. Records outside the
// scope surface as not-found so their existence never leaks.
func (s *Service) Get(ctx context.Context, scope Scope, id uuid.UUID) (*Verification, error) {
	v, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !scope.owns(v) {
		return nil, ErrNotFound
	}
	return v, nil
}

// List returns all verifications visible to the scope, newest first.
func (s *Service) List(ctx context.Context, scope Scope) ([]*Verification, error) {
	return s.store.ListByOrganization(ctx, scope.OrganizationID)
}

// Check runs the external proof check for a verification and applies the
// state transition. An already-verified record is returned as-is with no
// network call. The updated record is persisted before it is returned, and
// webhooks fire only when the transition warrants it.
func (s *Service) Check(ctx context.Context, scope Scope, id uuid.UUID) (*Verification, error) {
	v, err := s.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	if v.Status == StatusVerified {
		return v, nil // terminal; never re-evaluated against the network
	}

	checker, err := s.checkers.For(v.Method)
	if err != nil {
		return nil, fmt.Errorf("select challenge checker: %w", err)
	}
	proofFound := checker.Check(ctx, v.Domain, v.Token)

	next, changed := Transition(*v, proofFound, time.Now().UTC())

	updated, err := s.store.UpdateStatus(ctx, id, v.Status, next.Status, next.VerifiedAt)
	if err != nil {
		return nil, fmt.Errorf("persist status: %w", err)
	}
	if !updated {
		// A concurrent check moved the record first; its write wins.
		return s.Get(ctx, scope, id)
	}

	s.logger.Info("verification checked",
		zap.String("id", v.ID.String()),
		zap.String("domain", v.Domain),
		zap.String("method", string(v.Method)),
		zap.String("status", string(next.Status)),
	)
	if s.onMetrics != nil {
		s.onMetrics(next.Method, next.Status)
	}

	if changed {
		s.notify(ctx, &next)
	}
	return &next, nil
}

// notify hands the transitioned record to the webhook dispatcher. Anonymous
// records have no subscribers to notify.
func (s *Service) notify(ctx context.Context, v *Verification) {
	if s.dispatcher == nil || v.OrganizationID == nil {
		return
	}
	event := webhook.EventVerificationFailed
	if v.Status == StatusVerified {
		event = webhook.EventVerificationCompleted
	}
	s.dispatcher.Dispatch(ctx, *v.OrganizationID, event, v)
}
