package wx

import "time"

// ResolveDayTime anchors a day-of-month plus time-of-day onto a full
// timestamp near the reference instant. Aviation bulletins carry only
// DDHHMM; the month and year come from when the bulletin was received.
//
// The returned time is in the reference's location. Days more than 15 ahead
// of the reference day are taken to be last month (a late-arriving bulletin
// crossing a month boundary); days more than 15 behind are taken to be next
// month (a bulletin valid into the new month, received near month end).
//
// Hour 24 is accepted and normalizes to 00 of the following day, matching
// the convention for validity-window end times. Out-of-range fields fall
// back to the reference truncated to the hour.
func ResolveDayTime(day, hour, minute int, reference time.Time) time.Time {
	if day < 1 || day > 31 || hour < 0 || hour > 24 || minute < 0 || minute > 59 {
		return reference.Truncate(time.Hour)
	}

	t := time.Date(reference.Year(), reference.Month(), day, hour, minute, 0, 0, reference.Location())

	diff := day - reference.Day()
	if diff > 15 {
		t = t.AddDate(0, -1, 0)
	} else if diff < -15 {
		t = t.AddDate(0, 1, 0)
	}
	return t
}
