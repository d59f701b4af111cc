package moderation

import (
	"fmt"
	"strconv"
	"time"

	apperrors "github.com/iamwavecut/scamguard/internal/errors"
)

var durationUnits = map[byte]time.Duration{
	'm': time.Minute,
	'h': time.Hour,
	'd': 24 * time.Hour,
}

// ParseDuration parses compact mute tokens such as 30m, 1h or 2d.
func ParseDuration(token string) (time.Duration, error) {
	if len(token) < 2 {
		return 0, fmt.Errorf("duration %q: %w", token, apperrors.ErrInvalidDuration)
	}
	unit, ok := durationUnits[token[len(token)-1]]
	if !ok {
		return 0, fmt.Errorf("duration %q: unknown unit: %w", token, apperrors.ErrInvalidDuration)
	}
	digits := token[:len(token)-1]
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, fmt.Errorf("duration %q: %w", token, apperrors.ErrInvalidDuration)
		}
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("duration %q: %w", token, apperrors.ErrInvalidDuration)
	}
	if n <= 0 || n > int64(maxDuration/unit) {
		return 0, fmt.Errorf("duration %q: out of range: %w", token, apperrors.ErrInvalidDuration)
	}
	return time.Duration(n) * unit, nil
}

const maxDuration = time.Duration(1<<63 - 1)

// MuteExpiry returns now plus the parsed token.
func MuteExpiry(token string, now time.Time) (time.Time, error) {
	d, err := ParseDuration(token)
	if err != nil {
		return time.Time{}, err
	}
	return now.Add(d), nil
}
