package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrUserNotFound is returned for lookups that match no row.
var ErrUserNotFound = errors.New("user not found")

// User is the minimal account record the entitlement system references.
// Registration and authentication live upstream; this store only covers
// the lookups issuance and auditing need.
type User struct {
	ID        uuid.UUID
	Email     string
	Name      *string
	Role      string
	CreatedAt time.Time
}

// Store provides user lookups/mutations against the users table.
type Store struct {
	pg     *pgxpool.Pool
	schema string
}

func NewStore(pg *pgxpool.Pool, schema string) *Store {
	s := strings.TrimSpace(schema)
	if s == "" {
		s = "entitlements"
	}
	return &Store{pg: pg, schema: s}
}

func (s *Store) usersTable() string { return s.schema + ".users" }

func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	var u User
	err := s.pg.QueryRow(ctx, `SELECT id, email, name, role, created_at FROM `+s.usersTable()+` WHERE id=$1 LIMIT 1`, id).
		Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, ErrUserNotFound
	}
	var u User
	err := s.pg.QueryRow(ctx, `SELECT id, email, name, role, created_at FROM `+s.usersTable()+` WHERE email=$1 LIMIT 1`, email).
		Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a user with the given role, defaulting to USER.
func (s *Store) Create(ctx context.Context, email string, name *string, role string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if role == "" {
		role = "USER"
	}
	u := User{ID: uuid.New(), Email: email, Name: name, Role: role, CreatedAt: time.Now()}
	_, err := s.pg.Exec(ctx, `INSERT INTO `+s.usersTable()+` (id, email, name, role, created_at) VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Email, u.Name, u.Role, u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
