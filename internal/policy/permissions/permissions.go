package permissions

import (
	"context"
	"fmt"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/iamwavecut/scamguard/internal/db"
	apperrors "github.com/iamwavecut/scamguard/internal/errors"
)

type roleStore interface {
	GetRole(ctx context.Context, userID int64) (*db.RoleRecord, error)
	GetRoleByUsername(ctx context.Context, username string) (*db.RoleRecord, error)
}

// Allows is the single authorization predicate: users hold no moderation
// rights, otherwise the actor must rank at least as high as required.
func Allows(actor db.Role, required db.Role) bool {
	if actor <= db.RoleUser {
		return false
	}
	return actor.AtLeast(required)
}

// RequireGroupChat reports whether commands may run in chat.
func RequireGroupChat(chat *api.Chat) bool {
	if chat == nil {
		return false
	}
	return chat.Type != "private"
}

// Gate resolves roles from the store on every call and holds no state.
type Gate struct {
	store roleStore
}

func NewGate(store roleStore) *Gate {
	return &Gate{store: store}
}

func (g *Gate) RoleOf(ctx context.Context, userID int64) (db.Role, error) {
	rec, err := g.store.GetRole(ctx, userID)
	if err != nil {
		return db.RoleUser, fmt.Errorf("resolve role of %d: %w", userID, err)
	}
	if rec == nil {
		return db.RoleUser, nil
	}
	return rec.Role, nil
}

// Authorize returns the actor's role and ErrUnauthorized when it does not
// cover required.
func (g *Gate) Authorize(ctx context.Context, actorID int64, required db.Role) (db.Role, error) {
	role, err := g.RoleOf(ctx, actorID)
	if err != nil {
		return db.RoleUser, err
	}
	if !Allows(role, required) {
		return role, fmt.Errorf("user %d is %s, %s required: %w", actorID, role, required, apperrors.ErrUnauthorized)
	}
	return role, nil
}

// TargetLookup resolves the role behind a username. The Gate's store and a
// transaction's db.Ledger both satisfy it.
type TargetLookup interface {
	GetRoleByUsername(ctx context.Context, username string) (*db.RoleRecord, error)
}

func (g *Gate) IsProtectedTarget(ctx context.Context, username string) (bool, error) {
	return isOwner(ctx, g.store, username)
}

// GuardTarget rejects sanctions against owners.
func (g *Gate) GuardTarget(ctx context.Context, username string) error {
	return GuardTargetWith(ctx, g.store, username)
}

// GuardTargetWith is GuardTarget against an explicit lookup, typically the
// ledger of the transaction that records the sanction.
func GuardTargetWith(ctx context.Context, lookup TargetLookup, username string) error {
	protected, err := isOwner(ctx, lookup, username)
	if err != nil {
		return err
	}
	if protected {
		return fmt.Errorf("target @%s: %w", db.NormalizeUsername(username), apperrors.ErrProtectedTarget)
	}
	return nil
}

func isOwner(ctx context.Context, lookup TargetLookup, username string) (bool, error) {
	rec, err := lookup.GetRoleByUsername(ctx, db.NormalizeUsername(username))
	if err != nil {
		return false, fmt.Errorf("resolve target %q: %w", username, err)
	}
	return rec != nil && rec.Role == db.RoleOwner, nil
}
