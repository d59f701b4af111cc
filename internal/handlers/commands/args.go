package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/iamwavecut/scamguard/internal/db"
	apperrors "github.com/iamwavecut/scamguard/internal/errors"
)

// splitTarget splits "@username rest of line" keeping the rest verbatim.
func splitTarget(args string) (target string, rest string, err error) {
	args = strings.TrimSpace(args)
	fields := strings.Fields(args)
	if len(fields) == 0 || !isHandle(fields[0]) {
		return "", "", fmt.Errorf("target: %w", apperrors.ErrMalformedArguments)
	}
	target = fields[0]
	rest = strings.TrimSpace(strings.TrimPrefix(args, target))
	return db.NormalizeUsername(target), rest, nil
}

// parseStaffArgs parses "<user_id> @username"; trailing words are ignored.
func parseStaffArgs(args string) (int64, string, error) {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return 0, "", fmt.Errorf("staff arguments: %w", apperrors.ErrMalformedArguments)
	}
	id, err := parseUserID(fields[0])
	if err != nil {
		return 0, "", err
	}
	if !isHandle(fields[1]) {
		return 0, "", fmt.Errorf("staff username %q: %w", fields[1], apperrors.ErrMalformedArguments)
	}
	return id, db.NormalizeUsername(fields[1]), nil
}

// parseScammerArgs parses "<user_id> @username|<proof>|<category>"; the
// category part is optional.
func parseScammerArgs(args string) (*db.Scammer, error) {
	parts := strings.SplitN(args, "|", 3)
	if len(parts) < 2 {
		return nil, fmt.Errorf("scammer arguments: %w", apperrors.ErrMalformedArguments)
	}
	id, username, err := parseStaffArgs(parts[0])
	if err != nil {
		return nil, err
	}
	proof := strings.TrimSpace(parts[1])
	if proof == "" {
		return nil, fmt.Errorf("scammer proof: %w", apperrors.ErrMalformedArguments)
	}
	scammer := &db.Scammer{
		UserID:   id,
		Username: username,
		Proof:    proof,
	}
	if len(parts) == 3 {
		scammer.Category = strings.TrimSpace(parts[2])
	}
	return scammer, nil
}

func parseUserID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 || strings.HasPrefix(raw, "+") {
		return 0, fmt.Errorf("user id %q: %w", raw, apperrors.ErrMalformedArguments)
	}
	return id, nil
}

func isHandle(s string) bool {
	return len(s) > 1 && s[0] == '@' && !strings.Contains(s[1:], "@")
}
