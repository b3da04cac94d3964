package schedule

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeScheduleDatesArray(t *testing.T) {
	n := NewNormalizer(time.UTC)
	c := BiteCase{
		ID:            "case-1",
		ScheduleDates: []string{"2025-01-01", "2025-01-04", "2025-01-08", "2025-01-15", "2025-01-29"},
	}

	slots := n.Normalize(c)

	expected := []string{"2025-01-01", "2025-01-04", "2025-01-08", "2025-01-15", "2025-01-29"}
	for i, slot := range slots {
		assert.Equal(t, DayLabels[i], slot.Day)
		require.NotNil(t, slot.Date, "slot %s", slot.Day)
		assert.Equal(t, expected[i], slot.Date.String())
		assert.Empty(t, slot.RawStatus)
	}
}

func TestNormalize(t *testing.T) {
	n := NewNormalizer(time.UTC)

	tests := []struct {
		name             string
		biteCase         BiteCase
		expectedDates    [SlotCount]string
		expectedStatuses [SlotCount]string
	}{
		{
			name: "Array takes precedence over legacy dates and pairs legacy statuses",
			biteCase: BiteCase{
				ScheduleDates: []string{"2025-01-01", "2025-01-04"},
				D0Date:        "2024-06-01",
				D14Date:       "2024-06-15",
				D0Status:      "completed",
				D3Status:      "Missed",
			},
			expectedDates:    [SlotCount]string{"2025-01-01", "2025-01-04", "", "", ""},
			expectedStatuses: [SlotCount]string{"completed", "Missed", "", "", ""},
		},
		{
			name: "Sparse array keeps positions",
			biteCase: BiteCase{
				ScheduleDates: []string{"2025-01-01", "2025-01-04", "", "2025-01-15", "2025-01-29"},
			},
			expectedDates: [SlotCount]string{"2025-01-01", "2025-01-04", "", "2025-01-15", "2025-01-29"},
		},
		{
			name: "Entries beyond Day 28 are ignored",
			biteCase: BiteCase{
				ScheduleDates: []string{"2025-01-01", "2025-01-04", "2025-01-08", "2025-01-15", "2025-01-29", "2025-03-01"},
			},
			expectedDates: [SlotCount]string{"2025-01-01", "2025-01-04", "2025-01-08", "2025-01-15", "2025-01-29"},
		},
		{
			name: "Empty array falls back to legacy fields",
			biteCase: BiteCase{
				ScheduleDates: []string{},
				D0Date:        "2025-02-01",
				D7Date:        "2025-02-08T00:00:00.000Z",
				D7Status:      "scheduled",
				D28Status:     "completed",
			},
			expectedDates:    [SlotCount]string{"2025-02-01", "", "2025-02-08", "", ""},
			expectedStatuses: [SlotCount]string{"", "", "scheduled", "", "completed"},
		},
		{
			name: "Unparseable dates degrade to null",
			biteCase: BiteCase{
				D0Date: "not a date",
				D3Date: "2025-13-40",
				D7Date: "   ",
			},
		},
		{
			name: "Zoneless timestamp keeps its calendar day",
			biteCase: BiteCase{
				D0Date: "2025-02-01T23:30:00",
			},
			expectedDates: [SlotCount]string{"2025-02-01", "", "", "", ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slots := n.Normalize(tt.biteCase)
			for i, slot := range slots {
				assert.Equal(t, DayLabels[i], slot.Day)
				if tt.expectedDates[i] == "" {
					assert.Nil(t, slot.Date, "slot %s", slot.Day)
				} else if assert.NotNil(t, slot.Date, "slot %s", slot.Day) {
					assert.Equal(t, tt.expectedDates[i], slot.Date.String())
				}
				assert.Equal(t, tt.expectedStatuses[i], slot.RawStatus)
			}
		})
	}
}

func TestParseDateUsesReferenceTimezone(t *testing.T) {
	manila, err := time.LoadLocation("Asia/Manila")
	require.NoError(t, err)

	// 20:00 UTC is already the next day in Manila (UTC+8)
	d := ParseDate("2025-01-07T20:00:00Z", manila)
	require.NotNil(t, d)
	assert.Equal(t, "2025-01-08", d.String())

	d = ParseDate("2025-01-07T20:00:00Z", time.UTC)
	require.NotNil(t, d)
	assert.Equal(t, "2025-01-07", d.String())

	assert.Nil(t, ParseDate("", manila))
	assert.Nil(t, ParseDate("07/01/2025", manila))
}
