package schedule

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateEndToEnd(t *testing.T) {
	today := *date("2025-01-08")
	cases := []BiteCase{
		{
			ID:                 "case-1",
			RegistrationNumber: "REG-1",
			PatientID:          "p-1",
			ScheduleDates:      []string{"2025-01-01", "2025-01-04", "2025-01-08", "2025-01-15", "2025-01-29"},
			D0Status:           "completed",
		},
	}
	patients := []Patient{{ID: "p-1", FirstName: "Ana", LastName: "Reyes"}}

	result := Aggregate(cases, patients, today)

	require.Len(t, result.Views, 1)
	expected := []Status{StatusCompleted, StatusMissed, StatusToday, StatusScheduled, StatusScheduled}
	for i, slot := range result.Views[0].Slots {
		assert.Equal(t, expected[i], slot.Status, "slot %s", slot.Day)
	}

	require.Len(t, result.DueToday, 1)
	due := result.DueToday[0]
	assert.Equal(t, "case-1", due.CaseID)
	assert.Equal(t, Day7, due.Day)
	assert.Equal(t, today, due.Date)
	assert.Equal(t, "Ana Reyes", due.Identity.DisplayName)

	assert.Equal(t, 1, result.MissedCount)
	require.Len(t, result.Missed, 1)
	assert.Equal(t, Day3, result.Missed[0].Day)

	assert.Equal(t, map[string]DayLabel{"p-1": Day28}, result.LastTouchedDoseByPatient)
	assert.Equal(t, 1, result.StatusCounts[StatusCompleted])
	assert.Equal(t, 2, result.StatusCounts[StatusScheduled])
}

func TestAggregateExcludesFullyCompletedCases(t *testing.T) {
	today := *date("2025-01-08")
	cases := []BiteCase{
		{
			ID:            "done",
			PatientID:     "p-1",
			ScheduleDates: []string{"2024-12-11", "2024-12-14", "2024-12-18", "2024-12-25", "2025-01-08"},
			D0Status:      "completed",
			D3Status:      "Completed",
			D7Status:      "completed",
			D14Status:     "completed ",
			D28Status:     "COMPLETED",
		},
	}

	result := Aggregate(cases, nil, today)

	assert.Empty(t, result.DueToday)
	assert.Zero(t, result.MissedCount)
	assert.Equal(t, Day28, result.LastTouchedDoseByPatient[result.Views[0].Identity.Key])
	assert.Zero(t, result.StatusCounts[StatusCompleted])
}

func TestAggregateEmptyInputs(t *testing.T) {
	result := Aggregate(nil, nil, *date("2025-01-08"))

	assert.NotNil(t, result.DueToday)
	assert.Empty(t, result.DueToday)
	assert.NotNil(t, result.Missed)
	assert.Zero(t, result.MissedCount)
	assert.NotNil(t, result.LastTouchedDoseByPatient)
	assert.Empty(t, result.LastTouchedDoseByPatient)
	assert.Empty(t, result.Views)
}

func TestAggregateDueTodayFollowsCaseOrder(t *testing.T) {
	today := *date("2025-01-08")
	cases := []BiteCase{
		{ID: "b", D3Date: "2025-01-08", FirstName: "Second"},
		{ID: "a", D0Date: "2025-01-08", D7Date: "2025-01-08", FirstName: "First"},
		{ID: "c", D14Date: "2025-01-09"},
	}

	result := Aggregate(cases, nil, today)

	require.Len(t, result.DueToday, 3)
	assert.Equal(t, "b", result.DueToday[0].CaseID)
	assert.Equal(t, "a", result.DueToday[1].CaseID)
	assert.Equal(t, Day0, result.DueToday[1].Day)
	assert.Equal(t, Day7, result.DueToday[2].Day)
	assert.True(t, result.DueToday[0].Identity.Synthetic)
	assert.Equal(t, "Second", result.DueToday[0].Identity.DisplayName)
}

func TestAggregateMissedCountsExplicitAndInferred(t *testing.T) {
	today := *date("2025-01-08")
	cases := []BiteCase{
		{
			ID:       "case-1",
			D0Date:   "2025-01-01",
			D0Status: "completed",
			D3Date:   "2025-01-04",
			D7Date:   "2025-01-20",
			D7Status: "Missed",
			// explicit missed without a date is not counted
			D14Status: "missed",
		},
	}

	result := Aggregate(cases, nil, today)

	assert.Equal(t, 2, result.MissedCount)
	require.Len(t, result.Missed, 2)
	assert.Equal(t, Day3, result.Missed[0].Day)
	assert.Equal(t, Day7, result.Missed[1].Day)
	assert.Equal(t, StatusMissed, result.Views[0].Slots[3].Status)
}

func TestAggregateLastTouchedDose(t *testing.T) {
	today := *date("2025-01-08")
	patients := []Patient{{ID: "p-1"}, {ID: "p-2"}}
	cases := []BiteCase{
		{ID: "old", PatientID: "p-1", D0Date: "2024-01-01", D3Date: "2024-01-04", D7Date: "2024-01-08", CreatedAt: "2024-01-01T08:00:00Z"},
		{ID: "new", PatientID: "p-1", D0Date: "2025-01-01", CreatedAt: "2025-01-01T08:00:00Z"},
		{ID: "older", PatientID: "p-1", ScheduleDates: []string{"2023-01-01", "", "", "", "2023-01-29"}, CreatedAt: "2023-01-01T08:00:00Z"},
		{ID: "sparse", PatientID: "p-2", ScheduleDates: []string{"2025-01-01", "", "2025-01-08", "", ""}},
		{ID: "empty", PatientID: "p-3"},
	}

	result := Aggregate(cases, patients, today)

	assert.Equal(t, Day0, result.LastTouchedDoseByPatient["p-1"])
	assert.Equal(t, Day7, result.LastTouchedDoseByPatient["p-2"])
	assert.Len(t, result.LastTouchedDoseByPatient, 2)
}

func TestAggregateIsDeterministic(t *testing.T) {
	today := *date("2025-01-08")
	cases := []BiteCase{
		{ID: "c1", PatientID: "p-1", ScheduleDates: []string{"2025-01-01", "2025-01-04", "2025-01-08"}, D0Status: "completed"},
		{ID: "c2", RegistrationNumber: "REG-2", D0Date: "2025-01-08", FirstName: "Lito"},
		{ID: "c3", FirstName: "Orphan", D3Date: "2024-12-30T10:00:00Z"},
	}
	patients := []Patient{{ID: "p-1", FirstName: "Ana"}, {ID: "p-2", RegistrationNumber: "REG-2"}}

	engine := NewEngine(time.UTC)
	first := engine.Aggregate(cases, patients, today)
	second := engine.Aggregate(cases, patients, today)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Aggregate is not deterministic (-first +second):\n%s", diff)
	}
}

func TestAggregateDoesNotMutateInputs(t *testing.T) {
	cases := []BiteCase{{ID: "c1", ScheduleDates: []string{" 2025-01-01 "}, D0Status: " Completed "}}
	patients := []Patient{{ID: "p-1", FirstName: " Ana "}}
	casesBefore := []BiteCase{{ID: "c1", ScheduleDates: []string{" 2025-01-01 "}, D0Status: " Completed "}}
	patientsBefore := []Patient{{ID: "p-1", FirstName: " Ana "}}

	Aggregate(cases, patients, *date("2025-01-08"))

	assert.Equal(t, casesBefore, cases)
	assert.Equal(t, patientsBefore, patients)
}

func TestEngineViewSingleCase(t *testing.T) {
	engine := NewEngine(time.UTC)

	view := engine.View(BiteCase{ID: "c1", RegistrationNumber: "REG-1", D28Date: "2025-02-05"}, nil, *date("2025-01-08"))

	assert.Equal(t, "c1", view.CaseID)
	assert.Equal(t, "REG-1", view.RegistrationNumber)
	assert.Equal(t, StatusScheduled, view.Slots[4].Status)
	assert.False(t, view.FullyCompleted())
	day, ok := LastPopulatedDay(view)
	assert.True(t, ok)
	assert.Equal(t, Day28, day)
}
