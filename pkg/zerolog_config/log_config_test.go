package zerolog_config

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{" WARN ", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestStartupWithEnvRequiresSubAddress(t *testing.T) {
	assert.Error(t, StartupWithEnv("", "", "info"))
}

func TestNewLoggerConsoleOnly(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "", "bitecare-api")

	logger.Info().Str("case", "c1").Msg("schedule derived")

	assert.Contains(t, buf.String(), "schedule derived")
	assert.Contains(t, buf.String(), "c1")
}

func TestElasticsearchWriterPostsDocument(t *testing.T) {
	var gotPath string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	w := ElasticsearchWriter{URL: server.URL + "/bitecare-api"}
	n, err := w.Write([]byte(`{"message":"hello"}`))

	require.NoError(t, err)
	assert.Equal(t, len(`{"message":"hello"}`), n)
	assert.Equal(t, "/bitecare-api/_doc", gotPath)
	assert.JSONEq(t, `{"message":"hello"}`, string(gotBody))
}

func TestElasticsearchWriterReportsRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	_, err := ElasticsearchWriter{URL: server.URL}.Write([]byte(`{}`))
	assert.Error(t, err)
}
