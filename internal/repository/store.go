// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Repos bundles the repositories bound to one database handle.
type Repos struct {
	Users    UserRepository
	Images   ImageRepository
	Comments CommentRepository
	Follows  FollowRepository
}

// TxRunner runs fn with repositories bound to a single transaction.
type TxRunner interface {
	Transaction(ctx context.Context, fn func(r Repos) error) error
}

// Store owns the primary handle and hands out repositories.
type Store struct {
	db *gorm.DB
	Repos
}

// NewStore creates a Store with repositories bound to db.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, Repos: newRepos(db)}
}

func newRepos(db *gorm.DB) Repos {
	return Repos{
		Users:    NewUserRepository(db),
		Images:   NewImageRepository(db),
		Comments: NewCommentRepository(db),
		Follows:  NewFollowRepository(db),
	}
}

// Transaction commits when fn returns nil and rolls back otherwise.
func (s *Store) Transaction(ctx context.Context, fn func(r Repos) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newRepos(tx))
	})
}

// isUniqueViolation reports whether err came from a unique index.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
