package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dukerupert/bitesnap/internal/model"
)

// SessionStore persists the binding between a browser cookie and the backend
// auth token, plus the cached current-user record once the token has been
// confirmed.
type SessionStore struct {
	db *sql.DB
}

func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

// Create stores a backend token under a fresh crypto-random session id. The
// id is what goes into the cookie; the token never leaves the server.
func (s *SessionStore) Create(token string, user *model.User) (*model.Session, error) {
	idBytes := make([]byte, 32)
	if _, err := rand.Read(idBytes); err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}
	id := hex.EncodeToString(idBytes)

	userJSON, err := marshalUser(user)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()

	_, err = s.db.Exec(
		`INSERT INTO sessions (id, token, user_json, created_at) VALUES (?, ?, ?, ?)`,
		id, token, userJSON, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	return &model.Session{ID: id, Token: token, User: user, CreatedAt: now}, nil
}

// GetByID returns the session for the given cookie value, or nil when it does
// not exist.
func (s *SessionStore) GetByID(id string) (*model.Session, error) {
	row := s.db.QueryRow(`SELECT id, token, user_json, created_at FROM sessions WHERE id = ?`, id)

	var sess model.Session
	var userJSON sql.NullString
	err := row.Scan(&sess.ID, &sess.Token, &userJSON, &sess.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	if userJSON.Valid && userJSON.String != "" {
		var u model.User
		if err := json.Unmarshal([]byte(userJSON.String), &u); err != nil {
			return nil, fmt.Errorf("decode cached user: %w", err)
		}
		sess.User = &u
	}
	return &sess, nil
}

// UpdateUser replaces the cached current-user record for a session.
func (s *SessionStore) UpdateUser(id string, user *model.User) error {
	userJSON, err := marshalUser(user)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`UPDATE sessions SET user_json = ? WHERE id = ?`, userJSON, id)
	if err != nil {
		return fmt.Errorf("update session user: %w", err)
	}
	return nil
}

// Delete removes a session. Deleting an unknown id is not an error.
func (s *SessionStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteOlderThan removes sessions created before the cutoff and returns how
// many were removed.
func (s *SessionStore) DeleteOlderThan(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM sessions WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete old sessions: %w", err)
	}
	return res.RowsAffected()
}

func marshalUser(user *model.User) (sql.NullString, error) {
	if user == nil {
		return sql.NullString{}, nil
	}
	buf, err := json.Marshal(user)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode user: %w", err)
	}
	return sql.NullString{String: string(buf), Valid: true}, nil
}
