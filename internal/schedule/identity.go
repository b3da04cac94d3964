package schedule

import (
	"strings"

	"github.com/google/uuid"
)

// UnknownPatientLabel is displayed when neither a patient record nor the case carries a name
const UnknownPatientLabel = "Unknown Patient"

// syntheticNamespace scopes the deterministic keys of synthetic identities
var syntheticNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:bitecare:synthetic-identity"))

// MatchSource records how an identity was resolved
type MatchSource string

const (
	MatchByID                 MatchSource = "id"
	MatchByPatientID          MatchSource = "patientId"
	MatchByRegistrationNumber MatchSource = "registrationNumber"
	MatchSynthetic            MatchSource = "synthetic"
)

// Identity is the patient a case resolves to
type Identity struct {
	Key         string      `json:"key"`
	DisplayName string      `json:"displayName"`
	FirstName   string      `json:"firstName,omitempty"`
	MiddleName  string      `json:"middleName,omitempty"`
	LastName    string      `json:"lastName,omitempty"`
	Source      MatchSource `json:"source"`
	Synthetic   bool        `json:"synthetic"`
	Patient     *Patient    `json:"patient,omitempty"`
}

// Matcher links a case to a patient by comparing one key on each side.
// Blank keys never match.
type Matcher struct {
	Source     MatchSource
	CaseKey    func(BiteCase) string
	PatientKey func(Patient) string
}

// DefaultMatchers is the matching order used by the case screens
var DefaultMatchers = []Matcher{
	{
		Source:     MatchByID,
		CaseKey:    func(c BiteCase) string { return c.PatientID },
		PatientKey: func(p Patient) string { return p.ID },
	},
	{
		Source:     MatchByPatientID,
		CaseKey:    func(c BiteCase) string { return c.PatientID },
		PatientKey: func(p Patient) string { return p.PatientID },
	},
	{
		Source:     MatchByRegistrationNumber,
		CaseKey:    func(c BiteCase) string { return c.RegistrationNumber },
		PatientKey: func(p Patient) string { return p.RegistrationNumber },
	},
}

// Resolver resolves cases against a fixed patient collection
type Resolver struct {
	matchers []Matcher
	indexes  []map[string]int
	patients []Patient
}

// NewResolver indexes patients once per matcher. When matchers is empty the
// DefaultMatchers are used. Within one key the earliest patient wins.
func NewResolver(patients []Patient, matchers ...Matcher) *Resolver {
	if len(matchers) == 0 {
		matchers = DefaultMatchers
	}

	r := &Resolver{
		matchers: matchers,
		indexes:  make([]map[string]int, len(matchers)),
		patients: patients,
	}
	for i, m := range matchers {
		index := make(map[string]int, len(patients))
		for j, p := range patients {
			key := strings.TrimSpace(m.PatientKey(p))
			if key == "" {
				continue
			}
			if _, exists := index[key]; !exists {
				index[key] = j
			}
		}
		r.indexes[i] = index
	}
	return r
}

// Resolve returns the identity of a case. It never fails: a case without a
// matching patient gets a synthetic identity built from its own name fields.
func (r *Resolver) Resolve(c BiteCase) Identity {
	for i, m := range r.matchers {
		key := strings.TrimSpace(m.CaseKey(c))
		if key == "" {
			continue
		}
		if j, ok := r.indexes[i][key]; ok {
			return matchedIdentity(r.patients[j], m.Source, c)
		}
	}
	return SyntheticIdentity(c)
}

func matchedIdentity(p Patient, source MatchSource, c BiteCase) Identity {
	patient := p
	id := Identity{
		Key:        p.ID,
		FirstName:  strings.TrimSpace(p.FirstName),
		MiddleName: strings.TrimSpace(p.MiddleName),
		LastName:   strings.TrimSpace(p.LastName),
		Source:     source,
		Patient:    &patient,
	}
	if id.Key == "" {
		id.Key = strings.TrimSpace(p.PatientID)
	}
	if id.Key == "" {
		id.Key = SyntheticIdentity(c).Key
	}
	id.DisplayName = displayName(id.FirstName, id.MiddleName, id.LastName)
	if id.DisplayName == UnknownPatientLabel {
		id.DisplayName = displayName(c.FirstName, c.MiddleName, c.LastName)
	}
	return id
}

// SyntheticIdentity builds a placeholder identity from the case's embedded names.
// The key is a name-based UUID so repeated runs agree.
func SyntheticIdentity(c BiteCase) Identity {
	first := strings.TrimSpace(c.FirstName)
	middle := strings.TrimSpace(c.MiddleName)
	last := strings.TrimSpace(c.LastName)

	seed := strings.Join([]string{
		strings.TrimSpace(c.ID),
		strings.TrimSpace(c.RegistrationNumber),
		strings.TrimSpace(c.PatientID),
		first, middle, last,
	}, "|")

	return Identity{
		Key:         uuid.NewSHA1(syntheticNamespace, []byte(seed)).String(),
		DisplayName: displayName(first, middle, last),
		FirstName:   first,
		MiddleName:  middle,
		LastName:    last,
		Source:      MatchSynthetic,
		Synthetic:   true,
	}
}

func displayName(parts ...string) string {
	names := make([]string, 0, len(parts))
	for _, part := range parts {
		if p := strings.TrimSpace(part); p != "" {
			names = append(names, p)
		}
	}
	if len(names) == 0 {
		return UnknownPatientLabel
	}
	return strings.Join(names, " ")
}
