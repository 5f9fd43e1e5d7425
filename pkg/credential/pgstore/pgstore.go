package pgstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

const refreshTokenName = "refresh_token"

// Store keeps the refresh token in the credential table.
type Store struct {
	db   *pgxpool.Pool
	name string
}

func New(db *pgxpool.Pool) *Store {
	return &Store{db: db, name: refreshTokenName}
}

func (s *Store) Save(ctx context.Context, secret string) error {
	const upsert = `
		INSERT INTO credential (name, secret, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name)
		DO UPDATE SET
			secret = EXCLUDED.secret,
			updated_at = EXCLUDED.updated_at`

	if _, err := s.db.Exec(ctx, upsert, s.name, secret); err != nil {
		return fmt.Errorf("failed to store %s: %w", s.name, err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context) (string, bool) {
	var secret string
	err := s.db.QueryRow(ctx, "SELECT secret FROM credential WHERE name = $1", s.name).Scan(&secret)
	if err != nil {
		log.Debugf("%s not loaded from database: %v", s.name, err)
		return "", false
	}
	return secret, secret != ""
}
