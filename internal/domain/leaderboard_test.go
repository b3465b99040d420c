package domain

import (
	"testing"
	"time"
)

func TestParseWindow(t *testing.T) {
	tests := []struct {
		in   string
		want Window
	}{
		{"all", WindowAll},
		{"today", WindowToday},
		{"week", WindowThisWeek},
		{"", WindowAll},
		{"bogus", WindowAll},
	}
	for _, tt := range tests {
		if got := ParseWindow(tt.in); got != tt.want {
			t.Errorf("ParseWindow(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestWindowSince(t *testing.T) {
	now := time.Date(2025, 6, 15, 14, 30, 0, 0, time.Local)

	if got := WindowAll.Since(now); !got.IsZero() {
		t.Errorf("all-time bound = %v, want zero", got)
	}

	today := WindowToday.Since(now)
	wantToday := time.Date(2025, 6, 15, 0, 0, 0, 0, time.Local)
	if !today.Equal(wantToday) {
		t.Errorf("today bound = %v, want local midnight %v", today, wantToday)
	}

	week := WindowThisWeek.Since(now)
	if want := now.Add(-7 * 24 * time.Hour); !week.Equal(want) {
		t.Errorf("week bound = %v, want %v", week, want)
	}
}
