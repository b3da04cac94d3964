package schedule

import (
	"strings"

	"cloud.google.com/go/civil"
)

// NormalizeStatus trims and lowercases a stored status string
func NormalizeStatus(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// Classify derives the status of one dose slot. The first matching rule wins:
// an explicit completed or missed status is terminal, a slot without a date is
// scheduled, and otherwise the date is compared with today. A past date with
// no terminal status is a lapse and counts as missed.
func Classify(date *civil.Date, rawStatus string, today civil.Date) Status {
	switch NormalizeStatus(rawStatus) {
	case string(StatusCompleted):
		return StatusCompleted
	case string(StatusMissed):
		return StatusMissed
	}

	if date == nil {
		return StatusScheduled
	}

	switch {
	case *date == today:
		return StatusToday
	case date.After(today):
		return StatusScheduled
	default:
		return StatusMissed
	}
}

// ClassifySlots applies Classify to every normalized slot
func ClassifySlots(slots [SlotCount]NormalizedSlot, today civil.Date) [SlotCount]DoseSlot {
	var out [SlotCount]DoseSlot
	for i, slot := range slots {
		out[i] = DoseSlot{
			Day:       slot.Day,
			Date:      slot.Date,
			RawStatus: slot.RawStatus,
			Status:    Classify(slot.Date, slot.RawStatus, today),
		}
	}
	return out
}
