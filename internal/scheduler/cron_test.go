package scheduler

import (
	"testing"
	"time"
)

func TestNextExecution(t *testing.T) {
	base := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		schedule string
		now      time.Time
		want     time.Time
		ok       bool
	}{
		{
			name:     "every 5 minutes",
			schedule: "*/5 * * * *",
			now:      base,
			want:     base.Add(5 * time.Minute),
			ok:       true,
		},
		{
			name:     "every 30 minutes",
			schedule: "*/30 * * * *",
			now:      base,
			want:     base.Add(30 * time.Minute),
			ok:       true,
		},
		{
			name:     "daily at nine before nine",
			schedule: "0 9 * * *",
			now:      base, // 08:00
			want:     time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
			ok:       true,
		},
		{
			name:     "daily at nine after nine",
			schedule: "0 9 * * *",
			now:      time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC),
			want:     time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC),
			ok:       true,
		},
		{
			name:     "daily exactly at nine rolls to tomorrow",
			schedule: "0 9 * * *",
			now:      time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
			want:     time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC),
			ok:       true,
		},
		{
			name:     "minute of hour still ahead",
			schedule: "30 * * * *",
			now:      base, // 08:00
			want:     time.Date(2025, 3, 10, 8, 30, 0, 0, time.UTC),
			ok:       true,
		},
		{
			name:     "minute of hour already passed",
			schedule: "30 * * * *",
			now:      time.Date(2025, 3, 10, 8, 45, 0, 0, time.UTC),
			want:     time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC),
			ok:       true,
		},
		{
			name:     "hourly preset",
			schedule: "hourly",
			now:      base,
			want:     base.Add(time.Hour),
			ok:       true,
		},
		{
			name:     "daily preset",
			schedule: "daily",
			now:      base,
			want:     base.Add(24 * time.Hour),
			ok:       true,
		},
		{
			name:     "weekly preset",
			schedule: "weekly",
			now:      base,
			want:     base.Add(7 * 24 * time.Hour),
			ok:       true,
		},
		{
			name:     "preset is case insensitive",
			schedule: "Daily",
			now:      base,
			want:     base.Add(24 * time.Hour),
			ok:       true,
		},
		{
			name:     "day-of-month field unsupported",
			schedule: "0 9 1 * *",
			ok:       false,
		},
		{
			name:     "weekday field unsupported",
			schedule: "0 9 * * 1",
			ok:       false,
		},
		{
			name:     "interval with fixed hour unsupported",
			schedule: "*/5 9 * * *",
			ok:       false,
		},
		{
			name:     "zero interval rejected",
			schedule: "*/0 * * * *",
			ok:       false,
		},
		{
			name:     "minute out of range",
			schedule: "75 * * * *",
			ok:       false,
		},
		{
			name:     "hour out of range",
			schedule: "0 24 * * *",
			ok:       false,
		},
		{
			name:     "wrong field count",
			schedule: "0 9 * *",
			ok:       false,
		},
		{
			name:     "garbage",
			schedule: "whenever",
			ok:       false,
		},
		{
			name:     "empty",
			schedule: "",
			ok:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := tt.now
			if now.IsZero() {
				now = base
			}
			got, ok := NextExecution(tt.schedule, now)
			if ok != tt.ok {
				t.Fatalf("NextExecution(%q) ok = %v, want %v", tt.schedule, ok, tt.ok)
			}
			if !ok {
				return
			}
			if !got.Equal(tt.want) {
				t.Errorf("NextExecution(%q) = %s, want %s", tt.schedule, got, tt.want)
			}
			if !got.After(now) {
				t.Errorf("NextExecution(%q) = %s is not strictly after now %s", tt.schedule, got, now)
			}
		})
	}
}
