// Package pgstore implements lifecycle.Store against Postgres using pgx.
// RedeemInstance is the one multi-statement path: it runs the redemption
// insert and the status update in a single transaction, with the unique
// index on redemptions.entitlement_instance_id as the serialization point
// for concurrent attempts.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/open-rails/entitlekit/entitlements"
	"github.com/open-rails/entitlekit/identity"
	"github.com/open-rails/entitlekit/lifecycle"
	"github.com/open-rails/entitlekit/rules"
)

const uniqueViolation = "23505"

type Store struct {
	pg     *pgxpool.Pool
	schema string
	users  *identity.Store
}

func New(pg *pgxpool.Pool, schema string) *Store {
	s := strings.TrimSpace(schema)
	if s == "" {
		s = "entitlements"
	}
	return &Store{pg: pg, schema: s, users: identity.NewStore(pg, s)}
}

func (s *Store) typesTable() string       { return s.schema + ".entitlement_types" }
func (s *Store) instancesTable() string   { return s.schema + ".entitlement_instances" }
func (s *Store) redemptionsTable() string { return s.schema + ".redemptions" }

func (s *Store) CreateType(ctx context.Context, t *entitlements.Type) error {
	rulesJSON, err := marshalRules(t.RedemptionRules)
	if err != nil {
		return err
	}
	_, err = s.pg.Exec(ctx, `INSERT INTO `+s.typesTable()+`
		(id, name, description, redemption_rules, is_active, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.Name, t.Description, rulesJSON, t.Active, t.CreatedBy, t.CreatedAt)
	return err
}

func (s *Store) TypeByID(ctx context.Context, id uuid.UUID) (*entitlements.Type, error) {
	row := s.pg.QueryRow(ctx, `SELECT id, name, description, redemption_rules, is_active, created_by, created_at
		FROM `+s.typesTable()+` WHERE id=$1`, id)
	return scanType(row)
}

func (s *Store) ActiveTypes(ctx context.Context) ([]entitlements.Type, error) {
	rows, err := s.pg.Query(ctx, `SELECT id, name, description, redemption_rules, is_active, created_by, created_at
		FROM `+s.typesTable()+` WHERE is_active ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []entitlements.Type
	for rows.Next() {
		t, err := scanType(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (s *Store) DeactivateType(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pg.Exec(ctx, `UPDATE `+s.typesTable()+` SET is_active=FALSE WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return lifecycle.ErrNotFound
	}
	return nil
}

// UserExists delegates to the identity store, which owns the users table.
func (s *Store) UserExists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, err := s.users.GetByID(ctx, id)
	if errors.Is(err, identity.ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) InsertInstance(ctx context.Context, inst *entitlements.Instance) error {
	_, err := s.pg.Exec(ctx, `INSERT INTO `+s.instancesTable()+`
		(id, user_id, entitlement_type_id, code, status, issued_at, activated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		inst.ID, inst.UserID, inst.TypeID, inst.Code, string(inst.Status), inst.IssuedAt, inst.ActivatedAt, inst.ExpiresAt)
	return err
}

func (s *Store) InstanceByCode(ctx context.Context, code string) (*entitlements.Instance, error) {
	row := s.pg.QueryRow(ctx, `SELECT id, user_id, entitlement_type_id, code, status, issued_at, activated_at, expires_at
		FROM `+s.instancesTable()+` WHERE code=$1`, code)
	return scanInstance(row)
}

func (s *Store) InstanceByID(ctx context.Context, id uuid.UUID) (*entitlements.Instance, error) {
	row := s.pg.QueryRow(ctx, `SELECT id, user_id, entitlement_type_id, code, status, issued_at, activated_at, expires_at
		FROM `+s.instancesTable()+` WHERE id=$1`, id)
	return scanInstance(row)
}

func (s *Store) InstancesByUser(ctx context.Context, userID uuid.UUID) ([]entitlements.Instance, error) {
	rows, err := s.pg.Query(ctx, `SELECT id, user_id, entitlement_type_id, code, status, issued_at, activated_at, expires_at
		FROM `+s.instancesTable()+` WHERE user_id=$1 ORDER BY issued_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []entitlements.Instance
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *inst)
	}
	return out, rows.Err()
}

// ActivateIssued is a single conditional update: the status guard in the
// WHERE clause keeps a concurrent transition from being overwritten.
func (s *Store) ActivateIssued(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	tag, err := s.pg.Exec(ctx, `UPDATE `+s.instancesTable()+`
		SET status=$3, activated_at=$2
		WHERE user_id=$1 AND status=$4`,
		userID, at, string(entitlements.StatusActive), string(entitlements.StatusIssued))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) MarkExpired(ctx context.Context, id uuid.UUID) error {
	_, err := s.pg.Exec(ctx, `UPDATE `+s.instancesTable()+`
		SET status=$2 WHERE id=$1 AND status <> $2`,
		id, string(entitlements.StatusExpired))
	return err
}

func (s *Store) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pg.Exec(ctx, `UPDATE `+s.instancesTable()+`
		SET status=$2
		WHERE status = ANY($3) AND expires_at IS NOT NULL AND expires_at < $1`,
		now, string(entitlements.StatusExpired),
		[]string{string(entitlements.StatusIssued), string(entitlements.StatusActive)})
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) RedemptionByInstance(ctx context.Context, instanceID uuid.UUID) (*entitlements.Redemption, error) {
	var red entitlements.Redemption
	err := s.pg.QueryRow(ctx, `SELECT id, entitlement_instance_id, redeemed_by, redeemed_at, latitude, longitude
		FROM `+s.redemptionsTable()+` WHERE entitlement_instance_id=$1`, instanceID).
		Scan(&red.ID, &red.InstanceID, &red.RedeemedBy, &red.RedeemedAt, &red.Latitude, &red.Longitude)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, lifecycle.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &red, nil
}

func (s *Store) RedeemInstance(ctx context.Context, red *entitlements.Redemption) error {
	tx, err := s.pg.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `INSERT INTO `+s.redemptionsTable()+`
		(id, entitlement_instance_id, redeemed_by, redeemed_at, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		red.ID, red.InstanceID, red.RedeemedBy, red.RedeemedAt, red.Latitude, red.Longitude)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return lifecycle.ErrAlreadyRedeemed
		}
		return err
	}

	// Conditional write: if a concurrent sweep or cancellation moved the
	// instance out of ACTIVE after the service's state check, zero rows
	// match and the deferred rollback discards the redemption insert too.
	tag, err := tx.Exec(ctx, `UPDATE `+s.instancesTable()+` SET status=$2 WHERE id=$1 AND status=$3`,
		red.InstanceID, string(entitlements.StatusRedeemed), string(entitlements.StatusActive))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return lifecycle.ErrInvalidState
	}

	return tx.Commit(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanType(row rowScanner) (*entitlements.Type, error) {
	var t entitlements.Type
	var rulesJSON []byte
	err := row.Scan(&t.ID, &t.Name, &t.Description, &rulesJSON, &t.Active, &t.CreatedBy, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, lifecycle.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(rulesJSON) > 0 {
		var rs rules.RuleSet
		if err := json.Unmarshal(rulesJSON, &rs); err != nil {
			return nil, err
		}
		t.RedemptionRules = &rs
	}
	return &t, nil
}

func scanInstance(row rowScanner) (*entitlements.Instance, error) {
	var inst entitlements.Instance
	var status string
	err := row.Scan(&inst.ID, &inst.UserID, &inst.TypeID, &inst.Code, &status, &inst.IssuedAt, &inst.ActivatedAt, &inst.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, lifecycle.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	parsed, err := entitlements.ParseStatus(status)
	if err != nil {
		// Stored value outside the known set is a data-integrity error.
		return nil, err
	}
	inst.Status = parsed
	return &inst, nil
}

func marshalRules(rs *rules.RuleSet) ([]byte, error) {
	if rs == nil {
		return nil, nil
	}
	return json.Marshal(rs)
}
