package scheduler

import (
	"errors"
	"testing"
	"time"

	"github.com/ErlanBelekov/wa-scheduler/internal/domain"
)

func TestOnceNext(t *testing.T) {
	at := time.Date(2030, 5, 1, 12, 0, 0, 0, time.UTC)
	spec, err := FireSpecFor(domain.OnceAt(at), time.UTC)
	if err != nil {
		t.Fatalf("FireSpecFor: %v", err)
	}

	if got := spec.Next(at.Add(-5 * time.Second)); !got.Equal(at) {
		t.Errorf("Next before = %v, want %v", got, at)
	}
	if got := spec.Next(at); !got.IsZero() {
		t.Errorf("Next at instant = %v, want zero", got)
	}
	if got := spec.Next(at.Add(time.Hour)); !got.IsZero() {
		t.Errorf("Next after = %v, want zero", got)
	}
}

func TestRecurringNextInLocation(t *testing.T) {
	bishkek := time.FixedZone("UTC+6", 6*60*60)
	spec, err := FireSpecFor(domain.Recurring("0 9 * * *", "Daily"), bishkek)
	if err != nil {
		t.Fatalf("FireSpecFor: %v", err)
	}

	tests := []struct {
		name  string
		after time.Time
		want  time.Time
	}{
		{
			name:  "before nine local fires today",
			after: time.Date(2030, 5, 1, 8, 0, 0, 0, bishkek),
			want:  time.Date(2030, 5, 1, 9, 0, 0, 0, bishkek),
		},
		{
			name:  "after nine local fires tomorrow",
			after: time.Date(2030, 5, 1, 10, 0, 0, 0, bishkek),
			want:  time.Date(2030, 5, 2, 9, 0, 0, 0, bishkek),
		},
		{
			name:  "utc input is converted",
			after: time.Date(2030, 5, 1, 2, 0, 0, 0, time.UTC), // 08:00 local
			want:  time.Date(2030, 5, 1, 9, 0, 0, 0, bishkek),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := spec.Next(tt.after); !got.Equal(tt.want) {
				t.Errorf("Next(%v) = %v, want %v", tt.after, got, tt.want)
			}
		})
	}
}

func TestFireSpecForRejectsBadTriggers(t *testing.T) {
	if _, err := FireSpecFor(domain.Recurring("61 * * * *", ""), time.UTC); !errors.Is(err, domain.ErrInvalidCronExpr) {
		t.Errorf("bad cron: got %v", err)
	}
	if _, err := FireSpecFor(domain.Recurring("", ""), time.UTC); !errors.Is(err, domain.ErrInvalidSchedule) {
		t.Errorf("empty cron: got %v", err)
	}
	if _, err := FireSpecFor(domain.Trigger{Type: domain.ScheduleOnce}, time.UTC); !errors.Is(err, domain.ErrInvalidSchedule) {
		t.Errorf("once without time: got %v", err)
	}
	bad := domain.Trigger{Type: domain.ScheduleOnce, At: time.Now(), Cron: "* * * * *"}
	if _, err := FireSpecFor(bad, time.UTC); !errors.Is(err, domain.ErrInvalidSchedule) {
		t.Errorf("mixed variant: got %v", err)
	}
}

func TestValidateCronDescriptor(t *testing.T) {
	if err := ValidateCron("@daily"); err != nil {
		t.Errorf("@daily: %v", err)
	}
	if err := ValidateCron("not a cron"); !errors.Is(err, domain.ErrInvalidCronExpr) {
		t.Errorf("garbage: got %v", err)
	}
}

func TestPresetCron(t *testing.T) {
	tests := []struct {
		key  string
		hour int
		want string
	}{
		{"daily", 9, "0 9 * * *"},
		{"weekdays", 8, "0 8 * * 1-5"},
		{"weekly_monday", 10, "0 10 * * 1"},
		{"weekly_friday", 17, "0 17 * * 5"},
		{"monthly", 0, "0 0 1 * *"},
	}
	for _, tt := range tests {
		got, err := PresetCron(tt.key, tt.hour)
		if err != nil {
			t.Fatalf("PresetCron(%q): %v", tt.key, err)
		}
		if got != tt.want {
			t.Errorf("PresetCron(%q, %d) = %q, want %q", tt.key, tt.hour, got, tt.want)
		}
		if err := ValidateCron(got); err != nil {
			t.Errorf("preset %q renders invalid cron: %v", tt.key, err)
		}
	}

	if _, err := PresetCron("hourly", 9); err == nil {
		t.Error("expected error for unknown preset")
	}
	if _, err := PresetCron("daily", 24); err == nil {
		t.Error("expected error for hour 24")
	}
	if len(Presets()) != 5 {
		t.Errorf("expected 5 presets, got %d", len(Presets()))
	}
}
