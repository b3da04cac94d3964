package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolverMatchOrder(t *testing.T) {
	patients := []Patient{
		{ID: "p-reg", RegistrationNumber: "REG-7", FirstName: "Reg", LastName: "Match"},
		{ID: "p-ref", PatientID: "PT-0001", FirstName: "Ref", LastName: "Match"},
		{ID: "PT-0001", FirstName: "Primary", LastName: "Match"},
	}
	resolver := NewResolver(patients)

	tests := []struct {
		name           string
		biteCase       BiteCase
		expectedKey    string
		expectedSource MatchSource
		expectedName   string
	}{
		{
			name:           "Primary identifier wins over reference code and registration",
			biteCase:       BiteCase{PatientID: "PT-0001", RegistrationNumber: "REG-7"},
			expectedKey:    "PT-0001",
			expectedSource: MatchByID,
			expectedName:   "Primary Match",
		},
		{
			name:           "Unknown reference falls through to registration number",
			biteCase:       BiteCase{PatientID: "p-other", RegistrationNumber: "REG-7"},
			expectedKey:    "p-reg",
			expectedSource: MatchByRegistrationNumber,
			expectedName:   "Reg Match",
		},
		{
			name:           "Registration number fallback",
			biteCase:       BiteCase{RegistrationNumber: " REG-7 "},
			expectedKey:    "p-reg",
			expectedSource: MatchByRegistrationNumber,
			expectedName:   "Reg Match",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := resolver.Resolve(tt.biteCase)
			assert.Equal(t, tt.expectedKey, id.Key)
			assert.Equal(t, tt.expectedSource, id.Source)
			assert.Equal(t, tt.expectedName, id.DisplayName)
			assert.False(t, id.Synthetic)
			require.NotNil(t, id.Patient)
			assert.Equal(t, tt.expectedKey, id.Patient.ID)
		})
	}
}

func TestResolverMatchesPatientReferenceCode(t *testing.T) {
	resolver := NewResolver([]Patient{
		{ID: "doc-1", PatientID: "PT-0042", FirstName: "Ana", LastName: "Reyes"},
	})

	id := resolver.Resolve(BiteCase{PatientID: "PT-0042"})

	assert.Equal(t, "doc-1", id.Key)
	assert.Equal(t, MatchByPatientID, id.Source)
	assert.Equal(t, "Ana Reyes", id.DisplayName)
}

func TestResolverBlankKeysNeverMatch(t *testing.T) {
	resolver := NewResolver([]Patient{
		{ID: "p-1", FirstName: "Someone"},
	})

	id := resolver.Resolve(BiteCase{ID: "case-9", FirstName: "Juan", LastName: "Dela Cruz"})

	assert.True(t, id.Synthetic)
	assert.Equal(t, MatchSynthetic, id.Source)
	assert.Equal(t, "Juan Dela Cruz", id.DisplayName)
	assert.Nil(t, id.Patient)
}

func TestResolverFirstPatientWinsWithinKey(t *testing.T) {
	resolver := NewResolver([]Patient{
		{ID: "p-1", RegistrationNumber: "REG-1", FirstName: "First"},
		{ID: "p-2", RegistrationNumber: "REG-1", FirstName: "Second"},
	})

	id := resolver.Resolve(BiteCase{RegistrationNumber: "REG-1"})

	assert.Equal(t, "p-1", id.Key)
}

func TestSyntheticIdentity(t *testing.T) {
	t.Run("Display name from embedded names", func(t *testing.T) {
		c := BiteCase{ID: "case-1", FirstName: " Maria ", MiddleName: "Santos", LastName: "Garcia"}
		id := SyntheticIdentity(c)
		assert.Equal(t, "Maria Santos Garcia", id.DisplayName)
		assert.Equal(t, "Maria", id.FirstName)
		assert.NotEmpty(t, id.Key)
	})

	t.Run("Placeholder when names are blank", func(t *testing.T) {
		id := SyntheticIdentity(BiteCase{ID: "case-2", FirstName: "  "})
		assert.Equal(t, UnknownPatientLabel, id.DisplayName)
	})

	t.Run("Key is stable across runs and distinct per case", func(t *testing.T) {
		a := SyntheticIdentity(BiteCase{ID: "case-1", FirstName: "A"})
		b := SyntheticIdentity(BiteCase{ID: "case-1", FirstName: "A"})
		c := SyntheticIdentity(BiteCase{ID: "case-2", FirstName: "A"})
		assert.Equal(t, a.Key, b.Key)
		assert.NotEqual(t, a.Key, c.Key)
	})
}

func TestResolverCustomMatchers(t *testing.T) {
	byLastName := Matcher{
		Source:     "lastName",
		CaseKey:    func(c BiteCase) string { return c.LastName },
		PatientKey: func(p Patient) string { return p.LastName },
	}
	resolver := NewResolver([]Patient{{ID: "p-1", LastName: "Bautista"}}, append(DefaultMatchers, byLastName)...)

	id := resolver.Resolve(BiteCase{LastName: "Bautista"})

	assert.Equal(t, "p-1", id.Key)
	assert.Equal(t, MatchSource("lastName"), id.Source)
}

func TestMatchedIdentityFallsBackToCaseNames(t *testing.T) {
	resolver := NewResolver([]Patient{{ID: "p-1"}})

	id := resolver.Resolve(BiteCase{PatientID: "p-1", FirstName: "Case", LastName: "Name"})

	assert.Equal(t, "Case Name", id.DisplayName)
	assert.False(t, id.Synthetic)
}
