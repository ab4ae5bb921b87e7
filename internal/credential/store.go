// Package credential persists the session credential record: bearer token,
// cached user snapshot and the time the session was last confirmed by the
// server.
//
// A record is created on login, refreshed on every successful
// re-validation and deleted on logout or when the server rejects the token.
// A damaged user snapshot is never fatal: it is logged and reported as
// "no cached user".
package credential

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/felixgeelhaar/adminconsole/internal/authz"
	"github.com/felixgeelhaar/adminconsole/internal/log"
)

// Storage keys. They match the browser console so an exported state
// directory stays readable by both.
const (
	KeyToken           = "auth_token"
	KeyUser            = "auth_user"
	KeyLastValidated   = "auth_last_validated"
	KeyClassicSession  = "classic_session"
	classicSessionTrue = "true"
)

// Record is the persisted credential record.
type Record struct {
	Token           string
	User            *authz.User
	LastValidatedAt time.Time
}

// Store reads and writes the credential record on top of a Storage.
type Store struct {
	storage Storage
	logger  *log.Logger
}

// NewStore creates a Store. A nil logger uses the default logger.
func NewStore(storage Storage, logger *log.Logger) *Store {
	return &Store{
		storage: storage,
		logger:  log.OrDefault(logger).WithComponent("credential"),
	}
}

// Load returns the persisted record. ok is false when no token is stored.
// A user snapshot that cannot be parsed yields Record.User == nil; a
// timestamp that cannot be parsed yields the zero time.
func (s *Store) Load(ctx context.Context) (Record, bool, error) {
	token, ok, err := s.storage.Get(ctx, KeyToken)
	if err != nil {
		return Record{}, false, err
	}
	token = strings.TrimSpace(token)
	if !ok || token == "" {
		return Record{}, false, nil
	}

	record := Record{Token: token}

	if raw, ok, err := s.storage.Get(ctx, KeyUser); err != nil {
		s.logger.WithError(err).WarnContext(ctx, "cached user unreadable; continuing without it")
	} else if ok && strings.TrimSpace(raw) != "" {
		var user authz.User
		if err := json.Unmarshal([]byte(raw), &user); err != nil {
			s.logger.WithError(err).WarnContext(ctx, "cached user snapshot is corrupt; ignoring it")
		} else {
			record.User = &user
		}
	}

	if raw, ok, err := s.storage.Get(ctx, KeyLastValidated); err != nil {
		s.logger.WithError(err).WarnContext(ctx, "last validation time unreadable")
	} else if ok && raw != "" {
		ts, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			s.logger.WithError(err).WarnContext(ctx, "last validation time is corrupt; treating session as stale")
		} else {
			record.LastValidatedAt = ts
		}
	}

	return record, true, nil
}

// Save persists record in one storage update and makes token mode
// authoritative by clearing the classic-session flag.
func (s *Store) Save(ctx context.Context, record Record) error {
	set := map[string]string{KeyToken: record.Token}
	remove := []string{KeyClassicSession}

	if record.User != nil {
		data, err := json.Marshal(record.User)
		if err != nil {
			return err
		}
		set[KeyUser] = string(data)
	} else {
		remove = append(remove, KeyUser)
	}

	if record.LastValidatedAt.IsZero() {
		remove = append(remove, KeyLastValidated)
	} else {
		set[KeyLastValidated] = record.LastValidatedAt.UTC().Format(time.RFC3339Nano)
	}

	return s.storage.Apply(ctx, set, remove)
}

// Clear removes the credential record. Clearing an empty store is a no-op.
func (s *Store) Clear(ctx context.Context) error {
	return s.storage.Remove(ctx, KeyToken, KeyUser, KeyLastValidated)
}

// Token returns the stored bearer token, or "" when there is none or the
// storage cannot be read.
func (s *Store) Token(ctx context.Context) string {
	token, ok, err := s.storage.Get(ctx, KeyToken)
	if err != nil {
		s.logger.WithError(err).WarnContext(ctx, "token unreadable")
		return ""
	}
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

// ClassicSession reports whether the legacy cookie-session flag is set.
func (s *Store) ClassicSession(ctx context.Context) bool {
	v, ok, err := s.storage.Get(ctx, KeyClassicSession)
	return err == nil && ok && v == classicSessionTrue
}

// SetClassicSession sets or clears the legacy cookie-session flag.
func (s *Store) SetClassicSession(ctx context.Context, enabled bool) error {
	if !enabled {
		return s.storage.Remove(ctx, KeyClassicSession)
	}
	return s.storage.Set(ctx, KeyClassicSession, classicSessionTrue)
}
