package schedule

import (
	"cloud.google.com/go/civil"
)

// DayLabel names one of the five canonical dose checkpoints
type DayLabel string

const (
	Day0  DayLabel = "Day 0"
	Day3  DayLabel = "Day 3"
	Day7  DayLabel = "Day 7"
	Day14 DayLabel = "Day 14"
	Day28 DayLabel = "Day 28"
)

// SlotCount is the number of doses in a post-exposure course
const SlotCount = 5

// DayLabels lists the canonical checkpoints in course order
var DayLabels = [SlotCount]DayLabel{Day0, Day3, Day7, Day14, Day28}

// DayOffsets holds the day offset of each checkpoint relative to the first dose
var DayOffsets = [SlotCount]int{0, 3, 7, 14, 28}

// Status is the classified state of a dose slot
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusToday     Status = "today"
	StatusCompleted Status = "completed"
	StatusMissed    Status = "missed"
)

// BiteCase is a treatment case as persisted by the intake and treatment forms.
// Schedule data arrives either as ScheduleDates or as the per-day fields.
type BiteCase struct {
	ID                 string   `json:"id"`
	RegistrationNumber string   `json:"registrationNumber,omitempty"`
	PatientID          string   `json:"patientId,omitempty"`
	FirstName          string   `json:"firstName,omitempty"`
	MiddleName         string   `json:"middleName,omitempty"`
	LastName           string   `json:"lastName,omitempty"`
	ScheduleDates      []string `json:"scheduleDates,omitempty"`

	D0Date  string `json:"d0Date,omitempty"`
	D3Date  string `json:"d3Date,omitempty"`
	D7Date  string `json:"d7Date,omitempty"`
	D14Date string `json:"d14Date,omitempty"`
	D28Date string `json:"d28Date,omitempty"`

	D0Status  string `json:"d0Status,omitempty"`
	D3Status  string `json:"d3Status,omitempty"`
	D7Status  string `json:"d7Status,omitempty"`
	D14Status string `json:"d14Status,omitempty"`
	D28Status string `json:"d28Status,omitempty"`

	CreatedAt string `json:"createdAt,omitempty"`
}

// Patient is an identity record maintained by the patient registry
type Patient struct {
	ID                 string `json:"id"`
	PatientID          string `json:"patientId,omitempty"`
	RegistrationNumber string `json:"registrationNumber,omitempty"`
	FirstName          string `json:"firstName,omitempty"`
	MiddleName         string `json:"middleName,omitempty"`
	LastName           string `json:"lastName,omitempty"`
}

// DoseSlot is one derived checkpoint of a case schedule
type DoseSlot struct {
	Day       DayLabel    `json:"day"`
	Date      *civil.Date `json:"date"`
	RawStatus string      `json:"rawStatus,omitempty"`
	Status    Status      `json:"status"`
}

// ScheduleView is the derived schedule of a single case
type ScheduleView struct {
	CaseID             string              `json:"caseId"`
	RegistrationNumber string              `json:"registrationNumber,omitempty"`
	Slots              [SlotCount]DoseSlot `json:"slots"`
	Identity           Identity            `json:"identity"`
}

// FullyCompleted reports whether every slot of the view is completed
func (v ScheduleView) FullyCompleted() bool {
	for _, slot := range v.Slots {
		if slot.Status != StatusCompleted {
			return false
		}
	}
	return true
}

// DueDose pairs a dated slot with the identity it belongs to
type DueDose struct {
	CaseID             string     `json:"caseId"`
	RegistrationNumber string     `json:"registrationNumber,omitempty"`
	Day                DayLabel   `json:"day"`
	Date               civil.Date `json:"date"`
	RawStatus          string     `json:"rawStatus,omitempty"`
	Status             Status     `json:"status"`
	Identity           Identity   `json:"identity"`
}
