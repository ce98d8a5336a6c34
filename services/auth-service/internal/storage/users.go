package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/slotbook/libs/db"
)

var (
	ErrNotFound     = errors.New("storage: user not found")
	ErrEmailTaken   = errors.New("storage: email already registered")
	ErrUnknownOwner = errors.New("storage: business not found")
)

const (
	RoleOwner = "owner"
	RoleStaff = "staff"
)

type User struct {
	ID           string
	BusinessID   string
	Email        string
	PasswordHash string
	Role         string
}

type Repository struct {
	db db.TxBeginner
}

func NewRepository(b db.TxBeginner) *Repository {
	return &Repository{db: b}
}

// NormalizeEmail is applied on every write and lookup so logins are case insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateOwner opens the business row and its owner account in one transaction.
func (r *Repository) CreateOwner(ctx context.Context, u User, businessName string) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO businesses (id, name)
			VALUES ($1, $2)
		`, u.BusinessID, businessName); err != nil {
			return fmt.Errorf("storage: create business: %w", err)
		}
		return insertUser(ctx, tx, u)
	})
}

// CreateStaff adds an account to an existing business.
func (r *Repository) CreateStaff(ctx context.Context, u User) error {
	err := insertUser(ctx, r.db, u)
	if db.IsForeignKeyViolation(err) {
		return ErrUnknownOwner
	}
	return err
}

func insertUser(ctx context.Context, q db.Querier, u User) error {
	_, err := q.Exec(ctx, `
		INSERT INTO users (id, business_id, email, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
	`, u.ID, u.BusinessID, NormalizeEmail(u.Email), u.PasswordHash, u.Role)
	if db.IsUniqueViolation(err) {
		return ErrEmailTaken
	}
	if err != nil && !db.IsForeignKeyViolation(err) {
		return fmt.Errorf("storage: insert user: %w", err)
	}
	return err
}

func (r *Repository) ByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := r.db.QueryRow(ctx, `
		SELECT id, business_id, email, password_hash, role
		FROM users
		WHERE email = $1
	`, NormalizeEmail(email)).Scan(&u.ID, &u.BusinessID, &u.Email, &u.PasswordHash, &u.Role)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("storage: user by email: %w", err)
	}
	return u, nil
}
