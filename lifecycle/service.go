// Package lifecycle orchestrates entitlement issuance, passive activation,
// expiry and the transactional redemption path. It owns no storage of its
// own; every call goes through the injected Store.
package lifecycle

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/open-rails/entitlekit/entitlements"
	"github.com/open-rails/entitlekit/rules"
)

// Service is the entitlement lifecycle manager. It is safe for concurrent
// use; the only cross-call coordination point is the store's atomic
// redemption primitive.
type Service struct {
	store Store
	log   logrus.FieldLogger
	audit RedemptionEventLogger
	now   func() time.Time
}

func NewService(store Store, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{store: store, log: log, now: time.Now}
}

// WithAudit attaches a best-effort redemption event sink.
func (s *Service) WithAudit(l RedemptionEventLogger) *Service {
	s.audit = l
	return s
}

// WithClock overrides the time source. Intended for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateType registers a new entitlement type. Rule sets are validated
// structurally before being stored; semantic evaluation happens at
// redemption time.
func (s *Service) CreateType(ctx context.Context, name string, description *string, rs *rules.RuleSet, createdBy uuid.UUID) (*entitlements.Type, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("entitlement type name required")
	}
	if err := rs.Validate(); err != nil {
		return nil, err
	}
	t := &entitlements.Type{
		ID:              uuid.New(),
		Name:            name,
		Description:     description,
		RedemptionRules: rs,
		Active:          true,
		CreatedBy:       createdBy,
		CreatedAt:       s.now(),
	}
	if err := s.store.CreateType(ctx, t); err != nil {
		return nil, unavailable(err)
	}
	return t, nil
}

// ActiveTypes lists every type still open for issuance, newest first.
func (s *Service) ActiveTypes(ctx context.Context) ([]entitlements.Type, error) {
	out, err := s.store.ActiveTypes(ctx)
	if err != nil {
		return nil, unavailable(err)
	}
	return out, nil
}

// DeactivateType soft-disables a type. Existing instances are unaffected.
func (s *Service) DeactivateType(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeactivateType(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return unavailable(err)
	}
	return nil
}

// IssueInstance grants one instance of the type to the user, generating a
// fresh redemption code. The instance starts ISSUED.
func (s *Service) IssueInstance(ctx context.Context, userID, typeID uuid.UUID, expiresAt *time.Time) (*entitlements.Instance, error) {
	t, err := s.store.TypeByID(ctx, typeID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, unavailable(err)
	}
	if !t.Active {
		return nil, ErrNotFound
	}

	exists, err := s.store.UserExists(ctx, userID)
	if err != nil {
		return nil, unavailable(err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	code, err := NewCode()
	if err != nil {
		return nil, err
	}

	inst := &entitlements.Instance{
		ID:        uuid.New(),
		UserID:    userID,
		TypeID:    typeID,
		Code:      code,
		Status:    entitlements.StatusIssued,
		IssuedAt:  s.now(),
		ExpiresAt: expiresAt,
	}
	if err := s.store.InsertInstance(ctx, inst); err != nil {
		return nil, unavailable(err)
	}

	s.log.WithFields(logrus.Fields{
		"instance_id": inst.ID,
		"type_id":     typeID,
		"user_id":     userID,
	}).Info("entitlement instance issued")
	return inst, nil
}

// ListUserInstances returns the user's instances, newest first. Any
// instance still ISSUED is transitioned to ACTIVE as a side effect of the
// read: status becomes "activated" the first time the owner observes it.
// The update is one conditional bulk write guarded on the ISSUED status,
// so a concurrent transition is never clobbered.
func (s *Service) ListUserInstances(ctx context.Context, userID uuid.UUID) ([]entitlements.Instance, error) {
	n, err := s.store.ActivateIssued(ctx, userID, s.now())
	if err != nil {
		return nil, unavailable(err)
	}
	if n > 0 {
		s.log.WithFields(logrus.Fields{"user_id": userID, "count": n}).Debug("entitlements auto-activated on first view")
	}
	out, err := s.store.InstancesByUser(ctx, userID)
	if err != nil {
		return nil, unavailable(err)
	}
	return out, nil
}

// InstanceByCode is a read-only lookup for support tooling. Unlike
// ListUserInstances it has no activation side effect.
func (s *Service) InstanceByCode(ctx context.Context, code string) (*entitlements.Instance, error) {
	inst, err := s.store.InstanceByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, unavailable(err)
	}
	return inst, nil
}

// Redeem consumes the instance identified by code on behalf of redeemedBy.
//
// The check order is deliberate: a prior redemption wins over everything,
// expiry wins over the generic transition check so an expired instance
// always reports "expired", and rules are only evaluated once the instance
// is confirmed eligible by state, so rule-violation responses never leak
// information about terminal instances.
func (s *Service) Redeem(ctx context.Context, code string, redeemedBy uuid.UUID, coords *rules.Coordinates) (*entitlements.Redemption, error) {
	inst, err := s.store.InstanceByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, unavailable(err)
	}

	if prior, err := s.store.RedemptionByInstance(ctx, inst.ID); err == nil {
		return nil, &ConflictError{RedeemedAt: prior.RedeemedAt}
	} else if !errors.Is(err, ErrNotFound) {
		return nil, unavailable(err)
	}

	now := s.now()
	if inst.Expired(now) {
		if inst.Status != entitlements.StatusExpired {
			if err := s.store.MarkExpired(ctx, inst.ID); err != nil {
				return nil, unavailable(err)
			}
		}
		return nil, &StateError{Status: entitlements.StatusExpired, Expired: true}
	}

	if !entitlements.CanTransition(inst.Status, entitlements.StatusRedeemed) {
		return nil, &StateError{Status: inst.Status}
	}

	t, err := s.store.TypeByID(ctx, inst.TypeID)
	if err != nil {
		return nil, unavailable(err)
	}
	if err := rules.Evaluate(t.RedemptionRules, now, coords); err != nil {
		var v *rules.Violation
		if errors.As(err, &v) {
			s.auditOutcome(ctx, inst.ID, redeemedBy, "rule_violation")
			return nil, &RuleError{Violation: v}
		}
		return nil, err
	}

	red := &entitlements.Redemption{
		ID:         uuid.New(),
		InstanceID: inst.ID,
		RedeemedBy: redeemedBy,
		RedeemedAt: now,
	}
	if coords != nil {
		red.Latitude = &coords.Lat
		red.Longitude = &coords.Lng
	}

	if err := s.store.RedeemInstance(ctx, red); err != nil {
		switch {
		case errors.Is(err, ErrAlreadyRedeemed):
			// Lost the race to a concurrent redeemer; report theirs.
			prior, perr := s.store.RedemptionByInstance(ctx, inst.ID)
			if perr != nil {
				return nil, unavailable(perr)
			}
			return nil, &ConflictError{RedeemedAt: prior.RedeemedAt}
		case errors.Is(err, ErrInvalidState):
			// The instance left ACTIVE between the state check and the
			// commit (e.g. an expiry sweep); report where it landed.
			cur, cerr := s.store.InstanceByID(ctx, inst.ID)
			if cerr != nil {
				return nil, unavailable(cerr)
			}
			return nil, &StateError{Status: cur.Status, Expired: cur.Status == entitlements.StatusExpired}
		default:
			return nil, unavailable(err)
		}
	}

	s.auditOutcome(ctx, inst.ID, redeemedBy, "redeemed")
	s.log.WithFields(logrus.Fields{
		"instance_id": inst.ID,
		"redeemed_by": redeemedBy,
	}).Info("entitlement redeemed")
	return red, nil
}

// ExpireOverdue bulk-transitions instances past their expiry to EXPIRED.
// Called by the scheduled sweeper; also safe to invoke ad hoc.
func (s *Service) ExpireOverdue(ctx context.Context) (int64, error) {
	n, err := s.store.ExpireOverdue(ctx, s.now())
	if err != nil {
		return 0, unavailable(err)
	}
	if n > 0 {
		s.log.WithField("count", n).Info("overdue entitlements expired")
	}
	return n, nil
}

func (s *Service) auditOutcome(ctx context.Context, instanceID, redeemedBy uuid.UUID, outcome string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.LogRedemption(ctx, instanceID, redeemedBy, outcome); err != nil {
		s.log.WithError(err).Warn("redemption audit sink failed")
	}
}
