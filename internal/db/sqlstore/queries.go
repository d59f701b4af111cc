package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/iamwavecut/scamguard/internal/db"
)

// queries holds the statements shared by the pooled client and transactions.
type queries struct {
	ext sqlx.ExtContext
}

var _ db.Ledger = queries{}

func (q queries) InsertBan(ctx context.Context, ban *db.Ban) error {
	query := q.ext.Rebind(`
		INSERT INTO bans (username, reason, banned_by, chat_id, banned_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`)
	return sqlx.GetContext(ctx, q.ext, &ban.ID, query,
		ban.Username,
		ban.Reason,
		ban.BannedBy,
		ban.ChatID,
		ban.BannedAt,
	)
}

func (q queries) InsertWarn(ctx context.Context, warn *db.Warn) error {
	query := q.ext.Rebind(`
		INSERT INTO warns (username, reason, warned_by, chat_id, warned_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`)
	return sqlx.GetContext(ctx, q.ext, &warn.ID, query,
		warn.Username,
		warn.Reason,
		warn.WarnedBy,
		warn.ChatID,
		warn.WarnedAt,
	)
}

func (q queries) InsertMute(ctx context.Context, mute *db.Mute) error {
	query := q.ext.Rebind(`
		INSERT INTO mutes (username, reason, muted_by, chat_id, muted_at, unmute_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`)
	return sqlx.GetContext(ctx, q.ext, &mute.ID, query,
		mute.Username,
		mute.Reason,
		mute.MutedBy,
		mute.ChatID,
		mute.MutedAt,
		mute.UnmuteAt,
	)
}

func (q queries) CountWarns(ctx context.Context, username string) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, q.ext, &count, q.ext.Rebind(`SELECT COUNT(*) FROM warns WHERE username = ?`), username)
	return count, err
}

func (q queries) DeleteWarnsByUsername(ctx context.Context, username string) (int64, error) {
	return q.deleteByUsername(ctx, `DELETE FROM warns WHERE username = ?`, username)
}

func (q queries) deleteBansByUsername(ctx context.Context, username string) (int64, error) {
	return q.deleteByUsername(ctx, `DELETE FROM bans WHERE username = ?`, username)
}

func (q queries) deleteMutesByUsername(ctx context.Context, username string) (int64, error) {
	return q.deleteByUsername(ctx, `DELETE FROM mutes WHERE username = ?`, username)
}

func (q queries) deleteByUsername(ctx context.Context, query string, username string) (int64, error) {
	res, err := q.ext.ExecContext(ctx, q.ext.Rebind(query), username)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q queries) listBans(ctx context.Context, limit int) ([]*db.Ban, error) {
	var bans []*db.Ban
	err := sqlx.SelectContext(ctx, q.ext, &bans, q.ext.Rebind(`
		SELECT id, username, reason, banned_by, chat_id, banned_at
		FROM bans
		ORDER BY id DESC
		LIMIT ?
	`), limit)
	return bans, err
}

func (q queries) listWarns(ctx context.Context, username string) ([]*db.Warn, error) {
	var warns []*db.Warn
	err := sqlx.SelectContext(ctx, q.ext, &warns, q.ext.Rebind(`
		SELECT id, username, reason, warned_by, chat_id, warned_at
		FROM warns
		WHERE username = ?
		ORDER BY id DESC
	`), username)
	return warns, err
}

// GetRoleByUsername prefers an owner record when a username is shared.
func (q queries) GetRoleByUsername(ctx context.Context, username string) (*db.RoleRecord, error) {
	username = db.NormalizeUsername(username)
	if username == "" {
		return nil, nil
	}
	rec := &db.RoleRecord{}
	found, err := q.getOne(ctx, rec, `
		SELECT `+roleColumns+` FROM roles
		WHERE LOWER(username) = ?
		ORDER BY CASE role WHEN 'owner' THEN 0 ELSE 1 END, user_id
		LIMIT 1
	`, username)
	if err != nil || !found {
		return nil, err
	}
	return rec, nil
}

// getOne scans a single row into dest, reporting false when there is none.
func (q queries) getOne(ctx context.Context, dest interface{}, query string, args ...interface{}) (bool, error) {
	err := sqlx.GetContext(ctx, q.ext, dest, q.ext.Rebind(query), args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
