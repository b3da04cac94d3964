package dal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/couchbase/gocb/v2"
	"github.com/rs/zerolog/log"
)

// ErrNotFound is returned when a document does not exist
var ErrNotFound = errors.New("resource not found")

const (
	DefaultScope = "_default"

	// Resource types double as the document key prefix, e.g. "BiteCase/123"
	ResourceBiteCase = "BiteCase"
	ResourcePatient  = "Patient"

	CollectionBiteCases = "bite_cases"
	CollectionPatients  = "patients"

	// Page size used when reading a whole collection
	scanPageSize = 1000
	maxPageSize  = 10000
)

// collectionNames maps resource types to their collections
var collectionNames = map[string]string{
	ResourceBiteCase: CollectionBiteCases,
	ResourcePatient:  CollectionPatients,
}

// DocID builds the document key of a resource
func DocID(resourceType, id string) string {
	return resourceType + "/" + id
}

// collectionNameFor returns the collection of a resource type
func collectionNameFor(resourceType string) (string, error) {
	name, ok := collectionNames[resourceType]
	if !ok {
		return "", fmt.Errorf("unsupported resource type %q", resourceType)
	}
	return name, nil
}

// QueryRow represents a row from N1QL query results
type QueryRow struct {
	ID       string          `json:"id"`
	Resource json.RawMessage `json:"resource"`
}

// PaginationParams represents pagination parameters
type PaginationParams struct {
	Page  int
	Count int
}

// Normalize applies defaults and bounds to the pagination parameters
func (p PaginationParams) Normalize() PaginationParams {
	if p.Count <= 0 || p.Count > maxPageSize {
		p.Count = 100
	}
	if p.Page <= 0 {
		p.Page = 1
	}
	return p
}

// Offset returns the number of rows to skip
func (p PaginationParams) Offset() int {
	return (p.Page - 1) * p.Count
}

// Pagination describes one page of a listing
type Pagination struct {
	Page       int  `json:"page"`
	Count      int  `json:"count"`
	Offset     int  `json:"offset"`
	TotalItems int  `json:"totalItems"`
	HasNext    bool `json:"hasNext"`
}

// ResourceModel represents the database model for stored case management documents
type ResourceModel struct {
	conn *Connection
}

// NewResourceModel creates a new resource model
func NewResourceModel(conn *Connection) *ResourceModel {
	return &ResourceModel{conn: conn}
}

func (rm *ResourceModel) collection(resourceType string) (*gocb.Collection, error) {
	name, err := collectionNameFor(resourceType)
	if err != nil {
		return nil, err
	}
	return rm.conn.GetBucket().Scope(rm.conn.GetScopeName()).Collection(name), nil
}

// GetResource retrieves a document and decodes it into out
func (rm *ResourceModel) GetResource(ctx context.Context, resourceType, id string, out interface{}) error {
	collection, err := rm.collection(resourceType)
	if err != nil {
		return err
	}
	docID := DocID(resourceType, id)

	start := time.Now()
	result, err := collection.Get(docID, &gocb.GetOptions{Context: ctx})
	duration := time.Since(start)

	if err != nil {
		if errors.Is(err, gocb.ErrDocumentNotFound) {
			log.Debug().
				Str("doc_id", docID).
				Str("collection", resourceType).
				Msg("Resource not found")
			return fmt.Errorf("%s: %w", docID, ErrNotFound)
		}
		log.Error().
			Err(err).
			Str("doc_id", docID).
			Msg("Failed to get resource")
		return fmt.Errorf("failed to get resource %s: %w", docID, err)
	}

	if err := result.Content(out); err != nil {
		log.Error().
			Err(err).
			Str("doc_id", docID).
			Msg("Failed to decode resource")
		return fmt.Errorf("failed to decode resource: %w", err)
	}

	log.Debug().
		Str("doc_id", docID).
		Str("collection", resourceType).
		Dur("duration", duration).
		Msg("Successfully retrieved resource")
	return nil
}

// buildListQuery returns the N1QL statement listing one page of a collection
func buildListQuery(bucket, scope, collection string, params PaginationParams) string {
	return fmt.Sprintf("SELECT META(d).id AS id, d AS resource FROM `%s`.`%s`.`%s` AS d ORDER BY META(d).id LIMIT %d OFFSET %d",
		bucket, scope, collection, params.Count, params.Offset())
}

// ListResources retrieves one page of raw documents ordered by key
func (rm *ResourceModel) ListResources(ctx context.Context, resourceType string, params PaginationParams) ([]QueryRow, Pagination, error) {
	params = params.Normalize()

	collectionName, err := collectionNameFor(resourceType)
	if err != nil {
		return nil, Pagination{}, err
	}

	log.Debug().
		Str("resourceType", resourceType).
		Int("page", params.Page).
		Int("count", params.Count).
		Int("offset", params.Offset()).
		Msg("Querying resources")

	query := buildListQuery(rm.conn.GetBucketName(), rm.conn.GetScopeName(), collectionName, params)
	rows, err := rm.conn.GetCluster().Query(query, &gocb.QueryOptions{Context: ctx})
	if err != nil {
		log.Error().
			Err(err).
			Str("query", query).
			Msg("Query failed")
		return nil, Pagination{}, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	results := make([]QueryRow, 0, params.Count)
	for rows.Next() {
		var row QueryRow
		if err := rows.Row(&row); err != nil {
			log.Warn().
				Err(err).
				Msg("Failed to decode query row")
			continue
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, Pagination{}, fmt.Errorf("query iteration failed: %w", err)
	}

	pagination := Pagination{
		Page:       params.Page,
		Count:      params.Count,
		Offset:     params.Offset(),
		TotalItems: len(results),
		HasNext:    len(results) == params.Count,
	}

	log.Debug().
		Str("resourceType", resourceType).
		Int("resultCount", len(results)).
		Msg("Resources queried successfully")

	return results, pagination, nil
}

// ScanResources walks a whole collection page by page, calling fn for each row
func (rm *ResourceModel) ScanResources(ctx context.Context, resourceType string, fn func(QueryRow) error) error {
	params := PaginationParams{Page: 1, Count: scanPageSize}
	for {
		rows, pagination, err := rm.ListResources(ctx, resourceType, params)
		if err != nil {
			return err
		}
		for _, row := range rows {
			if err := fn(row); err != nil {
				return err
			}
		}
		if !pagination.HasNext {
			return nil
		}
		params.Page++
	}
}

// UpsertResource stores a document under its resource key
func (rm *ResourceModel) UpsertResource(ctx context.Context, resourceType, id string, data interface{}) error {
	collection, err := rm.collection(resourceType)
	if err != nil {
		return err
	}
	docID := DocID(resourceType, id)

	start := time.Now()
	_, err = collection.Upsert(docID, data, &gocb.UpsertOptions{Context: ctx})
	duration := time.Since(start)

	if err != nil {
		log.Error().
			Err(err).
			Str("doc_id", docID).
			Str("collection", resourceType).
			Msg("Failed to upsert resource")
		return fmt.Errorf("failed to upsert resource %s: %w", docID, err)
	}

	log.Debug().
		Str("doc_id", docID).
		Str("collection", resourceType).
		Dur("duration", duration).
		Msg("Successfully upserted resource")
	return nil
}

// EnsureCollections creates the case collections when they are missing
func (rm *ResourceModel) EnsureCollections(ctx context.Context) error {
	bucketName := rm.conn.GetBucketName()
	scopeName := rm.conn.GetScopeName()

	for _, collectionName := range []string{CollectionBiteCases, CollectionPatients} {
		query := fmt.Sprintf("CREATE COLLECTION `%s`.`%s`.`%s` IF NOT EXISTS", bucketName, scopeName, collectionName)
		if _, err := rm.conn.GetCluster().Query(query, &gocb.QueryOptions{Context: ctx}); err != nil {
			if isExistsError(err) {
				continue
			}
			return fmt.Errorf("failed to create collection %s: %w", collectionName, err)
		}

		indexQuery := fmt.Sprintf("CREATE PRIMARY INDEX IF NOT EXISTS ON `%s`.`%s`.`%s`", bucketName, scopeName, collectionName)
		if _, err := rm.conn.GetCluster().Query(indexQuery, &gocb.QueryOptions{Context: ctx}); err != nil {
			log.Warn().Err(err).Str("collection", collectionName).Msg("Failed to create primary index, continuing")
		}

		log.Info().Str("scope", scopeName).Str("collection", collectionName).Msg("Collection ready")
	}
	return nil
}

// isExistsError checks if the error indicates the keyspace already exists
func isExistsError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "already exists") || strings.Contains(errStr, "duplicate")
}
