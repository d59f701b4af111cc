package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/iamwavecut/scamguard/internal/db"
	"github.com/iamwavecut/scamguard/internal/i18n"
)

func (c *Commands) addScammer(ctx context.Context, r *request) error {
	scammer, err := parseScammerArgs(r.args)
	if err != nil {
		c.reply(r, usageText(r))
		return nil
	}
	if err := c.registry.AddScammer(ctx, r.user.ID, scammer); err != nil {
		return err
	}
	c.reply(r, fmt.Sprintf(
		i18n.Get("✅ Scammer added!\n👤 ID: %d\n📱 Username: @%s\n🎯 Type: %s", r.lang),
		scammer.UserID, scammer.Username, scammer.Category,
	))
	return nil
}

func (c *Commands) addAdmin(ctx context.Context, r *request) error {
	rec, ok := c.staffArgs(r, db.RoleAdmin)
	if !ok {
		return nil
	}
	if err := c.registry.AddStaff(ctx, r.user.ID, rec); err != nil {
		return err
	}
	c.reply(r, fmt.Sprintf(i18n.Get("✅ Administrator added!\n👤 ID: %d\n📱 Username: @%s", r.lang), rec.UserID, rec.Username))
	return nil
}

func (c *Commands) addOwner(ctx context.Context, r *request) error {
	rec, ok := c.staffArgs(r, db.RoleOwner)
	if !ok {
		return nil
	}
	if err := c.registry.AddStaff(ctx, r.user.ID, rec); err != nil {
		return err
	}
	c.reply(r, fmt.Sprintf(i18n.Get("✅ Owner added!\n👤 ID: %d\n📱 Username: @%s", r.lang), rec.UserID, rec.Username))
	return nil
}

func (c *Commands) staffArgs(r *request, role db.Role) (*db.RoleRecord, bool) {
	id, username, err := parseStaffArgs(r.args)
	if err != nil {
		c.reply(r, usageText(r))
		return nil, false
	}
	return &db.RoleRecord{UserID: id, Username: username, Role: role}, true
}

func (c *Commands) listAdmins(ctx context.Context, r *request) error {
	staff, err := c.registry.ListStaff(ctx)
	if err != nil {
		return err
	}
	if len(staff) == 0 {
		c.reply(r, i18n.Get("📋 The staff list is empty", r.lang))
		return nil
	}

	var owners, admins []string
	for _, rec := range staff {
		line := fmt.Sprintf(i18n.Get("• ID: %d | username not set", r.lang), rec.UserID)
		if rec.Username != "" {
			line = fmt.Sprintf("• ID: %d | @%s", rec.UserID, rec.Username)
		}
		if rec.Role == db.RoleOwner {
			owners = append(owners, line)
		} else {
			admins = append(admins, line)
		}
	}

	var sb strings.Builder
	sb.WriteString(i18n.Get("👑 OWNERS:", r.lang))
	for _, line := range owners {
		sb.WriteString("\n" + line)
	}
	sb.WriteString("\n\n")
	sb.WriteString(i18n.Get("👮 ADMINISTRATORS:", r.lang))
	for _, line := range admins {
		sb.WriteString("\n" + line)
	}
	c.reply(r, sb.String())
	return nil
}
