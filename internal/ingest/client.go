package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"stealthcompany.com/bitecare/internal/dal"
	"stealthcompany.com/bitecare/internal/metrics"
	"stealthcompany.com/bitecare/internal/schedule"
)

// RecordWriter stores ingested records
type RecordWriter interface {
	UpsertCase(ctx context.Context, c schedule.BiteCase) error
	UpsertPatient(ctx context.Context, p schedule.Patient) error
}

// Endpoint describes one case management listing to ingest
type Endpoint struct {
	Name       string
	Path       string
	Collection string
}

var (
	BiteCasesEndpoint = Endpoint{Name: "BiteCases", Path: "/bite-cases", Collection: dal.CollectionBiteCases}
	PatientsEndpoint  = Endpoint{Name: "Patients", Path: "/patients", Collection: dal.CollectionPatients}
)

// Summary counts the outcome of an ingestion run
type Summary struct {
	CasesStored    int
	PatientsStored int
	Failed         int
}

// Client pulls bite cases and patients from the case management API
type Client struct {
	httpClient *http.Client
	baseURL    string
	writer     RecordWriter
}

// NewClient creates a new ingest client
func NewClient(baseURL string, timeout time.Duration, writer RecordWriter) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		writer:  writer,
	}
}

// IngestAll ingests patients first, then bite cases
func (c *Client) IngestAll(ctx context.Context) (Summary, error) {
	var summary Summary

	stored, failed, err := c.ingestEndpoint(ctx, PatientsEndpoint, c.storePatient)
	summary.PatientsStored, summary.Failed = stored, summary.Failed+failed
	if err != nil {
		return summary, fmt.Errorf("failed to ingest %s: %w", PatientsEndpoint.Name, err)
	}

	stored, failed, err = c.ingestEndpoint(ctx, BiteCasesEndpoint, c.storeCase)
	summary.CasesStored, summary.Failed = stored, summary.Failed+failed
	if err != nil {
		return summary, fmt.Errorf("failed to ingest %s: %w", BiteCasesEndpoint.Name, err)
	}

	return summary, nil
}

func (c *Client) storePatient(ctx context.Context, raw json.RawMessage) error {
	var p schedule.Patient
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("failed to decode patient: %w", err)
	}
	if p.ID == "" {
		return errMissingID
	}
	return c.writer.UpsertPatient(ctx, p)
}

func (c *Client) storeCase(ctx context.Context, raw json.RawMessage) error {
	var bc schedule.BiteCase
	if err := json.Unmarshal(raw, &bc); err != nil {
		return fmt.Errorf("failed to decode bite case: %w", err)
	}
	if bc.ID == "" {
		return errMissingID
	}
	return c.writer.UpsertCase(ctx, bc)
}

var errMissingID = errors.New("record has no id")

// ingestEndpoint fetches one listing and stores every record, counting failures
func (c *Client) ingestEndpoint(ctx context.Context, endpoint Endpoint, store func(context.Context, json.RawMessage) error) (int, int, error) {
	startTime := time.Now()
	log.Info().Str("endpoint", endpoint.Name).Msg("Starting ingestion")

	records, err := c.fetchRecords(ctx, endpoint.Path)
	if err != nil {
		metrics.RecordIngestion(endpoint.Path, endpoint.Collection, startTime, "failed", 0, 0, 0)
		return 0, 0, err
	}

	total := len(records)
	stored := 0
	failed := 0

	for i, raw := range records {
		if err := ctx.Err(); err != nil {
			metrics.RecordIngestion(endpoint.Path, endpoint.Collection, startTime, "cancelled", i, stored, failed)
			return stored, failed, err
		}

		normalized, err := normalizeID(raw)
		if err == nil {
			err = store(ctx, normalized)
		}
		if err != nil {
			log.Error().
				Err(err).
				Str("endpoint", endpoint.Name).
				Int("index", i).
				Msg("Failed to store record")
			failed++
			continue
		}
		stored++

		if (i+1)%100 == 0 {
			log.Info().
				Str("endpoint", endpoint.Name).
				Int("processed", i+1).
				Int("total", total).
				Msg("Progress update")
		}
	}

	metrics.RecordIngestion(endpoint.Path, endpoint.Collection, startTime, "success", total, stored, failed)

	log.Info().
		Str("endpoint", endpoint.Name).
		Int("total", total).
		Int("stored", stored).
		Int("failed", failed).
		Msg("Completed ingestion")

	return stored, failed, nil
}

// fetchRecords GETs a listing and returns its records
func (c *Client) fetchRecords(ctx context.Context, path string) ([]json.RawMessage, error) {
	startTime := time.Now()
	url := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordSourceRequest(path, startTime, 0)
		return nil, fmt.Errorf("failed to fetch %s: %w", path, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("Failed to close response body")
		}
	}()

	metrics.RecordSourceRequest(path, startTime, resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("case management API returned status %d for %s", resp.StatusCode, path)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body for %s: %w", path, err)
	}

	records, err := decodeListing(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing for %s: %w", path, err)
	}
	return records, nil
}

// decodeListing accepts a bare JSON array or a {"data": [...]} envelope
func decodeListing(body []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, errors.New("empty response body")
	}

	if trimmed[0] == '[' {
		var records []json.RawMessage
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, err
		}
		return records, nil
	}

	var envelope struct {
		Data *[]json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, err
	}
	if envelope.Data == nil {
		return nil, errors.New(`response has no "data" array`)
	}
	return *envelope.Data, nil
}

// normalizeID rewrites numeric or "_id" identifiers into a string "id" field
func normalizeID(raw json.RawMessage) (json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("record is not a JSON object: %w", err)
	}

	id, ok := fields["id"]
	if !ok || string(id) == "null" {
		id, ok = fields["_id"]
	}
	if !ok {
		return raw, nil
	}

	var asString string
	if err := json.Unmarshal(id, &asString); err == nil {
		if _, hasID := fields["id"]; hasID && string(fields["id"]) != "null" {
			return raw, nil
		}
	} else {
		var asNumber json.Number
		dec := json.NewDecoder(bytes.NewReader(id))
		dec.UseNumber()
		if err := dec.Decode(&asNumber); err != nil {
			return nil, fmt.Errorf("unsupported id value %s", string(id))
		}
		asString = asNumber.String()
	}

	encoded, err := json.Marshal(asString)
	if err != nil {
		return nil, err
	}
	fields["id"] = encoded
	return json.Marshal(fields)
}
