package sqlstore

import (
	"context"

	"github.com/iamwavecut/scamguard/internal/db"
)

func (c *sqlClient) InsertBan(ctx context.Context, ban *db.Ban) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.doInsert(ctx, "insert ban", func(ctx context.Context) error {
		return c.q.InsertBan(ctx, ban)
	})
}

func (c *sqlClient) InsertWarn(ctx context.Context, warn *db.Warn) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.doInsert(ctx, "insert warn", func(ctx context.Context) error {
		return c.q.InsertWarn(ctx, warn)
	})
}

func (c *sqlClient) InsertMute(ctx context.Context, mute *db.Mute) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.doInsert(ctx, "insert mute", func(ctx context.Context) error {
		return c.q.InsertMute(ctx, mute)
	})
}

func (c *sqlClient) CountWarns(ctx context.Context, username string) (int, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var count int
	err := c.do(ctx, "count warns", func(ctx context.Context) error {
		var err error
		count, err = c.q.CountWarns(ctx, username)
		return err
	})
	return count, err
}

func (c *sqlClient) DeleteWarnsByUsername(ctx context.Context, username string) (int64, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	var removed int64
	err := c.do(ctx, "delete warns", func(ctx context.Context) error {
		var err error
		removed, err = c.q.DeleteWarnsByUsername(ctx, username)
		return err
	})
	return removed, err
}

func (c *sqlClient) DeleteBansByUsername(ctx context.Context, username string) (int64, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	var removed int64
	err := c.do(ctx, "delete bans", func(ctx context.Context) error {
		var err error
		removed, err = c.q.deleteBansByUsername(ctx, username)
		return err
	})
	return removed, err
}

func (c *sqlClient) DeleteMutesByUsername(ctx context.Context, username string) (int64, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	var removed int64
	err := c.do(ctx, "delete mutes", func(ctx context.Context) error {
		var err error
		removed, err = c.q.deleteMutesByUsername(ctx, username)
		return err
	})
	return removed, err
}

func (c *sqlClient) ListBans(ctx context.Context, limit int) ([]*db.Ban, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var bans []*db.Ban
	err := c.do(ctx, "list bans", func(ctx context.Context) error {
		var err error
		bans, err = c.q.listBans(ctx, limit)
		return err
	})
	return bans, err
}

func (c *sqlClient) ListWarns(ctx context.Context, username string) ([]*db.Warn, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var warns []*db.Warn
	err := c.do(ctx, "list warns", func(ctx context.Context) error {
		var err error
		warns, err = c.q.listWarns(ctx, username)
		return err
	})
	return warns, err
}
