package identity

import (
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Provider supplies the backend user id that uploads are routed by. Absence
// of an id is a valid, common state (a not-yet-registered user); callers fall
// back to queueing.
type Provider interface {
	CurrentUserID() (string, bool)
}

// Store is the durable, single-row identity record.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewStore creates an identity store on the given database.
func NewStore(db *sql.DB, logger *zap.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger,
	}
}

// CurrentUserID returns the registered backend user id, or false when the
// user has not registered yet.
func (s *Store) CurrentUserID() (string, bool) {
	var userID string
	err := s.db.QueryRow(`SELECT user_id FROM user_identity WHERE id = 1`).Scan(&userID)
	if err == sql.ErrNoRows {
		return "", false
	}
	if err != nil {
		s.logger.Error("Failed to read user identity", zap.Error(err))
		return "", false
	}
	return userID, userID != ""
}

// SetUserID records the backend user id after registration, overwriting any
// previous value.
func (s *Store) SetUserID(userID string) error {
	if userID == "" {
		return fmt.Errorf("user id must not be empty")
	}

	_, err := s.db.Exec(`
		INSERT INTO user_identity (id, user_id, registered_at)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET user_id = excluded.user_id, registered_at = excluded.registered_at
	`, userID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to store user identity: %w", err)
	}

	s.logger.Info("Backend user identity registered",
		zap.String("user_id", userID),
	)
	return nil
}
