// Package postgres reads user profiles from PostgreSQL. The notifier never
// writes to this table.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/JNewman-cell/GoogleCloudFunction/internal/domain"
)

// Store implements notifier.ProfileStore using PostgreSQL.
type Store struct {
	db        *sql.DB
	opTimeout time.Duration
}

// New creates a store. opTimeout bounds each query; zero means no extra bound.
func New(db *sql.DB, opTimeout time.Duration) *Store {
	return &Store{db: db, opTimeout: opTimeout}
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.opTimeout)
}

// EnsureSchema creates the profiles table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if _, err := s.db.ExecContext(ctx, querySchema); err != nil {
		return fmt.Errorf("create profiles table: %w", err)
	}
	return nil
}

// ListProfiles returns every profile. NULL columns come back as empty strings
// so eligibility is decided in one place.
func (s *Store) ListProfiles(ctx context.Context) ([]domain.Profile, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, queryListProfiles)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()

	var result []domain.Profile
	for rows.Next() {
		var (
			id                                        string
			email, displayName, home, work, departure sql.NullString
		)
		if err := rows.Scan(&id, &email, &displayName, &home, &work, &departure); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		result = append(result, domain.Profile{
			ID:            id,
			Email:         email.String,
			DisplayName:   displayName.String,
			Home:          home.String,
			Work:          work.String,
			DepartureTime: departure.String,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}
	return result, nil
}

// PingContext reports database reachability for the health endpoint.
func (s *Store) PingContext(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
