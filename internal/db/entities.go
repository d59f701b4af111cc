package db

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// Role is an ordered authority level: RoleUser < RoleAdmin < RoleOwner.
type Role int

const (
	RoleUser Role = iota
	RoleAdmin
	RoleOwner
)

const (
	roleTagUser  = "user"
	roleTagAdmin = "admin"
	roleTagOwner = "owner"
)

type (
	RoleRecord struct {
		UserID   int64  `db:"user_id"`
		Username string `db:"username"`
		Role     Role   `db:"role"`
	}

	Scammer struct {
		ID       int64     `db:"id"`
		UserID   int64     `db:"user_id"`
		Username string    `db:"username"`
		Proof    string    `db:"proof"`
		AddedBy  int64     `db:"added_by"`
		Category string    `db:"category"`
		AddedAt  time.Time `db:"added_at"`
	}

	Ban struct {
		ID       int64     `db:"id"`
		Username string    `db:"username"`
		Reason   string    `db:"reason"`
		BannedBy int64     `db:"banned_by"`
		ChatID   int64     `db:"chat_id"`
		BannedAt time.Time `db:"banned_at"`
	}

	Warn struct {
		ID       int64     `db:"id"`
		Username string    `db:"username"`
		Reason   string    `db:"reason"`
		WarnedBy int64     `db:"warned_by"`
		ChatID   int64     `db:"chat_id"`
		WarnedAt time.Time `db:"warned_at"`
	}

	Mute struct {
		ID       int64      `db:"id"`
		Username string     `db:"username"`
		Reason   string     `db:"reason"`
		MutedBy  int64      `db:"muted_by"`
		ChatID   int64      `db:"chat_id"`
		MutedAt  time.Time  `db:"muted_at"`
		UnmuteAt *time.Time `db:"unmute_at"`
	}

	Stats struct {
		Scammers int `db:"scammers"`
		Staff    int `db:"staff"`
		Bans     int `db:"bans"`
		Warns    int `db:"warns"`
		Mutes    int `db:"mutes"`
	}
)

func (r Role) String() string {
	switch r {
	case RoleOwner:
		return roleTagOwner
	case RoleAdmin:
		return roleTagAdmin
	default:
		return roleTagUser
	}
}

// AtLeast reports whether r carries the privileges of required.
func (r Role) AtLeast(required Role) bool {
	return r >= required
}

func ParseRole(tag string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case roleTagOwner:
		return RoleOwner, nil
	case roleTagAdmin:
		return RoleAdmin, nil
	case roleTagUser, "":
		return RoleUser, nil
	default:
		return RoleUser, fmt.Errorf("unknown role %q", tag)
	}
}

func (r Role) Value() (driver.Value, error) {
	if r != RoleAdmin && r != RoleOwner {
		return nil, fmt.Errorf("role %q is not persistable", r.String())
	}
	return r.String(), nil
}

func (r *Role) Scan(v interface{}) error {
	var tag string
	switch data := v.(type) {
	case nil:
		*r = RoleUser
		return nil
	case string:
		tag = data
	case []byte:
		tag = string(data)
	default:
		return fmt.Errorf("cannot scan type %T into Role", v)
	}
	role, err := ParseRole(tag)
	if err != nil {
		return err
	}
	*r = role
	return nil
}

// NormalizeUsername strips the leading @ and lowercases the handle.
func NormalizeUsername(username string) string {
	username = strings.TrimSpace(username)
	username = strings.TrimPrefix(username, "@")
	return strings.ToLower(strings.TrimSpace(username))
}
