package moderation

import (
	"errors"
	"testing"
	"time"

	apperrors "github.com/iamwavecut/scamguard/internal/errors"
)

func TestParseDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		token   string
		want    time.Duration
		wantErr bool
	}{
		{token: "30m", want: 30 * time.Minute},
		{token: "1h", want: time.Hour},
		{token: "2d", want: 48 * time.Hour},
		{token: "45x", wantErr: true},
		{token: "abc", wantErr: true},
		{token: "0m", wantErr: true},
		{token: "-5m", wantErr: true},
		{token: "m", wantErr: true},
		{token: "", wantErr: true},
		{token: "1.5h", wantErr: true},
		{token: "99999999999999999d", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.token, func(t *testing.T) {
			t.Parallel()

			got, err := ParseDuration(tt.token)
			if tt.wantErr {
				if !errors.Is(err, apperrors.ErrInvalidDuration) {
					t.Fatalf("expected invalid duration for %q, got %v (%v)", tt.token, got, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parse %q: %v", tt.token, err)
			}
			if got != tt.want {
				t.Fatalf("unexpected duration for %q: got %v want %v", tt.token, got, tt.want)
			}
		})
	}
}

func TestMuteExpiry(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	got, err := MuteExpiry("2d", now)
	if err != nil {
		t.Fatalf("mute expiry: %v", err)
	}
	if want := now.Add(48 * time.Hour); !got.Equal(want) {
		t.Fatalf("unexpected expiry: got %v want %v", got, want)
	}
}
