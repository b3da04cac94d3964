package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stealthcompany.com/bitecare/internal/schedule"
)

type memoryWriter struct {
	cases    []schedule.BiteCase
	patients []schedule.Patient
	failCase string
}

func (m *memoryWriter) UpsertCase(ctx context.Context, c schedule.BiteCase) error {
	if c.ID == m.failCase {
		return errors.New("storage rejected document")
	}
	m.cases = append(m.cases, c)
	return nil
}

func (m *memoryWriter) UpsertPatient(ctx context.Context, p schedule.Patient) error {
	m.patients = append(m.patients, p)
	return nil
}

func newSourceServer(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestIngestAll(t *testing.T) {
	server := newSourceServer(t, map[string]string{
		"/api/patients": `{"data":[{"id":"p-1","firstName":"Ana","lastName":"Reyes"},{"id":7,"registrationNumber":"REG-7"}]}`,
		"/api/bite-cases": `[
			{"id":"c-1","patientId":"p-1","scheduleDates":["2025-01-01","2025-01-04","2025-01-08","2025-01-15","2025-01-29"],"d0Status":"completed"},
			{"_id":"c-2","registrationNumber":"REG-7","d0Date":"2025-01-05"},
			{"registrationNumber":"REG-9"},
			{"id":"c-bad","d0Date":"2025-01-05"}
		]`,
	})

	writer := &memoryWriter{failCase: "c-bad"}
	client := NewClient(server.URL+"/api/", 5*time.Second, writer)

	summary, err := client.IngestAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.PatientsStored)
	assert.Equal(t, 2, summary.CasesStored)
	// one case without id, one rejected by storage
	assert.Equal(t, 2, summary.Failed)

	require.Len(t, writer.patients, 2)
	assert.Equal(t, "7", writer.patients[1].ID)

	require.Len(t, writer.cases, 2)
	assert.Equal(t, "c-1", writer.cases[0].ID)
	assert.Len(t, writer.cases[0].ScheduleDates, 5)
	assert.Equal(t, "c-2", writer.cases[1].ID)
	assert.Equal(t, "2025-01-05", writer.cases[1].D0Date)
}

func TestIngestAllFailsOnSourceError(t *testing.T) {
	server := newSourceServer(t, map[string]string{
		"/patients": `[]`,
	})

	writer := &memoryWriter{}
	client := NewClient(server.URL, 5*time.Second, writer)

	_, err := client.IngestAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Empty(t, writer.cases)
}

func TestDecodeListing(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    int
		wantErr bool
	}{
		{"bare array", `[{"id":"a"},{"id":"b"}]`, 2, false},
		{"data envelope", `{"data":[{"id":"a"}],"total":1}`, 1, false},
		{"empty array", ` [] `, 0, false},
		{"envelope without data", `{"items":[]}`, 0, true},
		{"empty body", ``, 0, true},
		{"malformed", `[{`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := decodeListing([]byte(tt.body))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, records, tt.want)
		})
	}
}

func TestNormalizeID(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantID  string
		wantErr bool
	}{
		{"string id kept", `{"id":"c-1"}`, "c-1", false},
		{"numeric id", `{"id":42}`, "42", false},
		{"mongo style id", `{"_id":"abc"}`, "abc", false},
		{"null id falls back", `{"id":null,"_id":"abc"}`, "abc", false},
		{"missing id", `{"name":"x"}`, "", false},
		{"object id", `{"id":{"oid":1}}`, "", true},
		{"not an object", `[1]`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := normalizeID(json.RawMessage(tt.in))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			var doc struct {
				ID string `json:"id"`
			}
			require.NoError(t, json.Unmarshal(out, &doc))
			assert.Equal(t, tt.wantID, doc.ID)
		})
	}
}
