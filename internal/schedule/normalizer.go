package schedule

import (
	"time"

	"cloud.google.com/go/civil"
)

// NormalizedSlot is a dose checkpoint before classification
type NormalizedSlot struct {
	Day       DayLabel
	Date      *civil.Date
	RawStatus string
}

// Normalizer reconciles the two stored schedule shapes into the canonical slot list
type Normalizer struct {
	location *time.Location
}

// NewNormalizer creates a normalizer reading timestamps in loc
func NewNormalizer(loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{location: loc}
}

// Normalize returns the five canonical slots of a case.
// A non-empty ScheduleDates array takes precedence over the per-day date fields
// and is read positionally; statuses always come from the per-day fields.
func (n *Normalizer) Normalize(c BiteCase) [SlotCount]NormalizedSlot {
	dates := legacyDates(c)
	if len(c.ScheduleDates) > 0 {
		dates = [SlotCount]string{}
		for i := 0; i < SlotCount && i < len(c.ScheduleDates); i++ {
			dates[i] = c.ScheduleDates[i]
		}
	}
	statuses := legacyStatuses(c)

	var slots [SlotCount]NormalizedSlot
	for i := range slots {
		slots[i] = NormalizedSlot{
			Day:       DayLabels[i],
			Date:      ParseDate(dates[i], n.location),
			RawStatus: statuses[i],
		}
	}
	return slots
}

func legacyDates(c BiteCase) [SlotCount]string {
	return [SlotCount]string{c.D0Date, c.D3Date, c.D7Date, c.D14Date, c.D28Date}
}

func legacyStatuses(c BiteCase) [SlotCount]string {
	return [SlotCount]string{c.D0Status, c.D3Status, c.D7Status, c.D14Status, c.D28Status}
}
