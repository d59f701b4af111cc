package sqlstore

import (
	"context"
	"fmt"

	"github.com/iamwavecut/scamguard/internal/db"
	apperrors "github.com/iamwavecut/scamguard/internal/errors"
)

const scammerColumns = `id, user_id, username, proof, added_by, category, added_at`

func (c *sqlClient) InsertScammer(ctx context.Context, scammer *db.Scammer) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.doInsert(ctx, "insert scammer", func(ctx context.Context) error {
		var existing int
		err := c.db.GetContext(ctx, &existing, c.db.Rebind(`
			SELECT COUNT(*) FROM scammers
			WHERE user_id = ? OR (username <> '' AND LOWER(username) = ?)
		`), scammer.UserID, scammer.Username)
		if err != nil {
			return err
		}
		if existing > 0 {
			return fmt.Errorf("scammer %d: %w", scammer.UserID, apperrors.ErrDuplicateKey)
		}

		err = c.db.GetContext(ctx, &scammer.ID, c.db.Rebind(`
			INSERT INTO scammers (user_id, username, proof, added_by, category, added_at)
			VALUES (?, ?, ?, ?, ?, ?)
			RETURNING id
		`),
			scammer.UserID,
			scammer.Username,
			scammer.Proof,
			scammer.AddedBy,
			scammer.Category,
			scammer.AddedAt,
		)
		if isUniqueViolation(err) {
			return fmt.Errorf("scammer %d: %w", scammer.UserID, apperrors.ErrDuplicateKey)
		}
		return err
	})
}

func (c *sqlClient) FindScammerByID(ctx context.Context, userID int64) (*db.Scammer, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	scammer := &db.Scammer{}
	var found bool
	err := c.do(ctx, "find scammer by id", func(ctx context.Context) error {
		var err error
		found, err = c.q.getOne(ctx, scammer, `SELECT `+scammerColumns+` FROM scammers WHERE user_id = ?`, userID)
		return err
	})
	if err != nil || !found {
		return nil, err
	}
	return scammer, nil
}

func (c *sqlClient) FindScammerByUsername(ctx context.Context, username string) (*db.Scammer, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	username = db.NormalizeUsername(username)
	if username == "" {
		return nil, nil
	}

	scammer := &db.Scammer{}
	var found bool
	err := c.do(ctx, "find scammer by username", func(ctx context.Context) error {
		var err error
		found, err = c.q.getOne(ctx, scammer, `
			SELECT `+scammerColumns+` FROM scammers
			WHERE LOWER(username) = ?
			LIMIT 1
		`, username)
		return err
	})
	if err != nil || !found {
		return nil, err
	}
	return scammer, nil
}

func (c *sqlClient) GetStats(ctx context.Context) (*db.Stats, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	stats := &db.Stats{}
	err := c.do(ctx, "get stats", func(ctx context.Context) error {
		return c.db.GetContext(ctx, stats, `
			SELECT
				(SELECT COUNT(*) FROM scammers) AS scammers,
				(SELECT COUNT(*) FROM roles) AS staff,
				(SELECT COUNT(*) FROM bans) AS bans,
				(SELECT COUNT(*) FROM warns) AS warns,
				(SELECT COUNT(*) FROM mutes) AS mutes
		`)
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}
