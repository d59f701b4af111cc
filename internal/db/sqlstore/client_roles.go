package sqlstore

import (
	"context"
	"fmt"

	"github.com/iamwavecut/scamguard/internal/db"
	apperrors "github.com/iamwavecut/scamguard/internal/errors"
)

const roleColumns = `user_id, username, role`

func (c *sqlClient) UpsertRole(ctx context.Context, rec *db.RoleRecord) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := c.db.Rebind(`
		INSERT INTO roles (user_id, username, role)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
		username = excluded.username,
		role = excluded.role
	`)
	return c.do(ctx, "upsert role", func(ctx context.Context) error {
		_, err := c.db.ExecContext(ctx, query, rec.UserID, rec.Username, rec.Role)
		return err
	})
}

func (c *sqlClient) SeedRole(ctx context.Context, rec *db.RoleRecord) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := c.db.Rebind(`
		INSERT INTO roles (user_id, username, role)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO NOTHING
	`)
	return c.do(ctx, "seed role", func(ctx context.Context) error {
		_, err := c.db.ExecContext(ctx, query, rec.UserID, rec.Username, rec.Role)
		return err
	})
}

// InsertRole adds a new staff record, refusing ids or usernames already on file.
func (c *sqlClient) InsertRole(ctx context.Context, rec *db.RoleRecord) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.doInsert(ctx, "insert role", func(ctx context.Context) error {
		var existing int
		err := c.db.GetContext(ctx, &existing, c.db.Rebind(`
			SELECT COUNT(*) FROM roles
			WHERE user_id = ? OR (username <> '' AND LOWER(username) = ?)
		`), rec.UserID, rec.Username)
		if err != nil {
			return err
		}
		if existing > 0 {
			return fmt.Errorf("role for user %d: %w", rec.UserID, apperrors.ErrDuplicateKey)
		}

		_, err = c.db.ExecContext(ctx, c.db.Rebind(`INSERT INTO roles (user_id, username, role) VALUES (?, ?, ?)`),
			rec.UserID, rec.Username, rec.Role)
		if isUniqueViolation(err) {
			return fmt.Errorf("role for user %d: %w", rec.UserID, apperrors.ErrDuplicateKey)
		}
		return err
	})
}

func (c *sqlClient) GetRole(ctx context.Context, userID int64) (*db.RoleRecord, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	rec := &db.RoleRecord{}
	var found bool
	err := c.do(ctx, "get role", func(ctx context.Context) error {
		var err error
		found, err = c.q.getOne(ctx, rec, `SELECT `+roleColumns+` FROM roles WHERE user_id = ?`, userID)
		return err
	})
	if err != nil || !found {
		return nil, err
	}
	return rec, nil
}

func (c *sqlClient) GetRoleByUsername(ctx context.Context, username string) (*db.RoleRecord, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var rec *db.RoleRecord
	err := c.do(ctx, "get role by username", func(ctx context.Context) error {
		var err error
		rec, err = c.q.GetRoleByUsername(ctx, username)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (c *sqlClient) RefreshRoleUsername(ctx context.Context, userID int64, username string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := c.db.Rebind(`UPDATE roles SET username = ? WHERE user_id = ? AND username <> ?`)
	return c.do(ctx, "refresh role username", func(ctx context.Context) error {
		_, err := c.db.ExecContext(ctx, query, username, userID, username)
		return err
	})
}

func (c *sqlClient) ListRoles(ctx context.Context) ([]*db.RoleRecord, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var roles []*db.RoleRecord
	err := c.do(ctx, "list roles", func(ctx context.Context) error {
		roles = nil
		return c.db.SelectContext(ctx, &roles, `
			SELECT `+roleColumns+` FROM roles
			ORDER BY CASE role WHEN 'owner' THEN 0 ELSE 1 END, username, user_id
		`)
	})
	return roles, err
}
