package wx

import (
	"testing"
	"time"
)

func TestResolveDayTime(t *testing.T) {
	ref := func(y int, m time.Month, d, h int) time.Time {
		return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
	}

	tests := []struct {
		name      string
		day       int
		hour      int
		minute    int
		reference time.Time
		want      time.Time
	}{
		{
			name:      "same day",
			day:       15,
			hour:      18,
			minute:    30,
			reference: ref(2025, time.March, 15, 12),
			want:      time.Date(2025, time.March, 15, 18, 30, 0, 0, time.UTC),
		},
		{
			name:      "a few days ahead stays in month",
			day:       17,
			hour:      6,
			reference: ref(2025, time.March, 15, 12),
			want:      ref(2025, time.March, 17, 6),
		},
		{
			name:      "a few days behind stays in month",
			day:       13,
			hour:      23,
			minute:    55,
			reference: ref(2025, time.March, 15, 12),
			want:      time.Date(2025, time.March, 13, 23, 55, 0, 0, time.UTC),
		},
		{
			name:      "day far ahead is last month",
			day:       30,
			hour:      22,
			reference: ref(2025, time.April, 2, 1),
			want:      ref(2025, time.March, 30, 22),
		},
		{
			name:      "day far behind is next month",
			day:       2,
			hour:      2,
			reference: ref(2025, time.January, 30, 18),
			want:      ref(2025, time.February, 2, 2),
		},
		{
			name:      "year rollover backward",
			day:       31,
			hour:      23,
			minute:    50,
			reference: ref(2025, time.January, 1, 0),
			want:      time.Date(2024, time.December, 31, 23, 50, 0, 0, time.UTC),
		},
		{
			name:      "year rollover forward",
			day:       1,
			hour:      6,
			reference: ref(2024, time.December, 30, 12),
			want:      ref(2025, time.January, 1, 6),
		},
		{
			name:      "hour 24 is midnight ending the day",
			day:       6,
			hour:      24,
			reference: ref(2025, time.March, 6, 10),
			want:      ref(2025, time.March, 7, 0),
		},
		{
			name:      "day zero falls back to the reference hour",
			day:       0,
			hour:      12,
			reference: time.Date(2025, time.March, 15, 12, 40, 0, 0, time.UTC),
			want:      ref(2025, time.March, 15, 12),
		},
		{
			name:      "day out of range falls back",
			day:       32,
			reference: time.Date(2025, time.March, 15, 12, 40, 0, 0, time.UTC),
			want:      ref(2025, time.March, 15, 12),
		},
		{
			name:      "minute out of range falls back",
			day:       15,
			hour:      12,
			minute:    61,
			reference: time.Date(2025, time.March, 15, 12, 40, 0, 0, time.UTC),
			want:      ref(2025, time.March, 15, 12),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveDayTime(tt.day, tt.hour, tt.minute, tt.reference)
			if !got.Equal(tt.want) {
				t.Errorf("ResolveDayTime(%d, %d, %d) = %v, want %v", tt.day, tt.hour, tt.minute, got, tt.want)
			}
		})
	}
}
