package db

import "context"

// Ledger is the sanction subset the warn escalation runs against, either
// directly or inside a transaction. Target lookups go through it too, so a
// transaction sees the roles it commits against.
type Ledger interface {
	GetRoleByUsername(ctx context.Context, username string) (*RoleRecord, error)
	InsertBan(ctx context.Context, ban *Ban) error
	InsertWarn(ctx context.Context, warn *Warn) error
	CountWarns(ctx context.Context, username string) (int, error)
	DeleteWarnsByUsername(ctx context.Context, username string) (int64, error)
}

type Client interface {
	Ledger

	Close() error
	Ping(ctx context.Context) error

	// WithinTx runs fn in one transaction that holds the write lock for username.
	WithinTx(ctx context.Context, username string, fn func(ctx context.Context, ledger Ledger) error) error

	UpsertRole(ctx context.Context, rec *RoleRecord) error
	InsertRole(ctx context.Context, rec *RoleRecord) error
	SeedRole(ctx context.Context, rec *RoleRecord) error
	GetRole(ctx context.Context, userID int64) (*RoleRecord, error)
	RefreshRoleUsername(ctx context.Context, userID int64, username string) error
	ListRoles(ctx context.Context) ([]*RoleRecord, error)

	InsertScammer(ctx context.Context, scammer *Scammer) error
	FindScammerByID(ctx context.Context, userID int64) (*Scammer, error)
	FindScammerByUsername(ctx context.Context, username string) (*Scammer, error)

	InsertMute(ctx context.Context, mute *Mute) error
	DeleteBansByUsername(ctx context.Context, username string) (int64, error)
	DeleteMutesByUsername(ctx context.Context, username string) (int64, error)
	ListBans(ctx context.Context, limit int) ([]*Ban, error)
	ListWarns(ctx context.Context, username string) ([]*Warn, error)

	GetStats(ctx context.Context) (*Stats, error)
}
