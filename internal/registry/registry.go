package registry

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/scamguard/internal/db"
	apperrors "github.com/iamwavecut/scamguard/internal/errors"
	"github.com/iamwavecut/scamguard/internal/observability"
	"github.com/iamwavecut/scamguard/internal/policy/permissions"
)

// DefaultCategory is stored when add_scammer omits the category.
const DefaultCategory = "Not specified"

type Status string

const (
	StatusScammer Status = "scammer"
	StatusOwner   Status = "owner"
	StatusAdmin   Status = "admin"
	StatusUser    Status = "user"
)

type store interface {
	InsertScammer(ctx context.Context, scammer *db.Scammer) error
	FindScammerByID(ctx context.Context, userID int64) (*db.Scammer, error)
	FindScammerByUsername(ctx context.Context, username string) (*db.Scammer, error)
	InsertRole(ctx context.Context, rec *db.RoleRecord) error
	GetRole(ctx context.Context, userID int64) (*db.RoleRecord, error)
	GetRoleByUsername(ctx context.Context, username string) (*db.RoleRecord, error)
	RefreshRoleUsername(ctx context.Context, userID int64, username string) error
	ListRoles(ctx context.Context) ([]*db.RoleRecord, error)
	GetStats(ctx context.Context) (*db.Stats, error)
}

// Classification is the answer to a lookup; Scammer or Role is set when the
// matching record exists.
type Classification struct {
	Status  Status
	Scammer *db.Scammer
	Role    *db.RoleRecord
}

// Query is a parsed lookup argument: either a numeric id or a username.
type Query struct {
	UserID   int64
	Username string
}

func (q Query) String() string {
	if q.Username != "" {
		return "@" + q.Username
	}
	return strconv.FormatInt(q.UserID, 10)
}

type Service struct {
	store  store
	gate   *permissions.Gate
	now    func() time.Time
	logger *log.Entry
}

func NewService(store store, gate *permissions.Gate) *Service {
	return &Service{
		store:  store,
		gate:   gate,
		now:    func() time.Time { return time.Now().UTC() },
		logger: log.WithField("service", "registry"),
	}
}

// ParseQuery accepts a decimal user id or an @username.
func ParseQuery(raw string) (Query, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Query{}, fmt.Errorf("empty query: %w", apperrors.ErrMalformedArguments)
	}
	if isDigits(raw) {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Query{}, fmt.Errorf("query %q: %w", raw, apperrors.ErrMalformedArguments)
		}
		return Query{UserID: id}, nil
	}
	if strings.HasPrefix(raw, "@") {
		username := db.NormalizeUsername(raw)
		if username == "" || strings.ContainsAny(username, " \t\n@") {
			return Query{}, fmt.Errorf("query %q: %w", raw, apperrors.ErrMalformedArguments)
		}
		return Query{Username: username}, nil
	}
	return Query{}, fmt.Errorf("query %q: %w", raw, apperrors.ErrMalformedArguments)
}

// Classify checks the scammer registry first, then staff roles; the first
// match wins and anything else is an ordinary user.
func (s *Service) Classify(ctx context.Context, raw string) (*Classification, Query, error) {
	q, err := ParseQuery(raw)
	if err != nil {
		return nil, q, err
	}

	var scammer *db.Scammer
	if q.Username != "" {
		scammer, err = s.store.FindScammerByUsername(ctx, q.Username)
	} else {
		scammer, err = s.store.FindScammerByID(ctx, q.UserID)
	}
	if err != nil {
		return nil, q, fmt.Errorf("lookup scammer %s: %w", q, err)
	}
	if scammer != nil {
		return &Classification{Status: StatusScammer, Scammer: scammer}, q, nil
	}

	var role *db.RoleRecord
	if q.Username != "" {
		role, err = s.store.GetRoleByUsername(ctx, q.Username)
	} else {
		role, err = s.store.GetRole(ctx, q.UserID)
	}
	if err != nil {
		return nil, q, fmt.Errorf("lookup role %s: %w", q, err)
	}
	if role != nil {
		status := StatusAdmin
		if role.Role == db.RoleOwner {
			status = StatusOwner
		}
		return &Classification{Status: status, Role: role}, q, nil
	}

	return &Classification{Status: StatusUser}, q, nil
}

func (s *Service) AddScammer(ctx context.Context, actorID int64, scammer *db.Scammer) error {
	if _, err := s.gate.Authorize(ctx, actorID, db.RoleAdmin); err != nil {
		return err
	}
	scammer.Username = db.NormalizeUsername(scammer.Username)
	scammer.Proof = strings.TrimSpace(scammer.Proof)
	scammer.Category = strings.TrimSpace(scammer.Category)
	if scammer.UserID <= 0 || scammer.Username == "" || scammer.Proof == "" {
		return fmt.Errorf("scammer record: %w", apperrors.ErrMalformedArguments)
	}
	if scammer.Category == "" {
		scammer.Category = DefaultCategory
	}
	scammer.AddedBy = actorID
	scammer.AddedAt = s.now()

	if err := s.store.InsertScammer(ctx, scammer); err != nil {
		return fmt.Errorf("add scammer %d: %w", scammer.UserID, err)
	}

	observability.RecordModerationAction("add_scammer")
	s.logger.WithFields(log.Fields{
		"user_id":  scammer.UserID,
		"username": scammer.Username,
		"category": scammer.Category,
		"actor":    actorID,
	}).Info("scammer registered")
	return nil
}

// AddStaff grants the admin or owner role to a user that holds none.
func (s *Service) AddStaff(ctx context.Context, actorID int64, rec *db.RoleRecord) error {
	if _, err := s.gate.Authorize(ctx, actorID, db.RoleOwner); err != nil {
		return err
	}
	rec.Username = db.NormalizeUsername(rec.Username)
	if rec.UserID <= 0 || rec.Username == "" || (rec.Role != db.RoleAdmin && rec.Role != db.RoleOwner) {
		return fmt.Errorf("staff record: %w", apperrors.ErrMalformedArguments)
	}
	if err := s.store.InsertRole(ctx, rec); err != nil {
		return fmt.Errorf("add %s %d: %w", rec.Role, rec.UserID, err)
	}

	observability.RecordModerationAction("add_" + rec.Role.String())
	s.logger.WithFields(log.Fields{
		"user_id":  rec.UserID,
		"username": rec.Username,
		"role":     rec.Role.String(),
		"actor":    actorID,
	}).Info("staff member added")
	return nil
}

// ListStaff lists owners first, then admins; anyone may read it.
func (s *Service) ListStaff(ctx context.Context) ([]*db.RoleRecord, error) {
	roles, err := s.store.ListRoles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	return roles, nil
}

// Touch keeps the stored username of a staff member in sync with Telegram.
// Users without a role record are left alone.
func (s *Service) Touch(ctx context.Context, userID int64, username string) error {
	username = db.NormalizeUsername(username)
	if userID == 0 || username == "" {
		return nil
	}
	return s.store.RefreshRoleUsername(ctx, userID, username)
}

func (s *Service) Stats(ctx context.Context) (*db.Stats, error) {
	stats, err := s.store.GetStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	return stats, nil
}

func (s *Service) RoleOf(ctx context.Context, userID int64) (db.Role, error) {
	return s.gate.RoleOf(ctx, userID)
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
