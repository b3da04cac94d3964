package dal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/couchbase/gocb/v2"
	"github.com/rs/zerolog/log"
)

// IngestLockKey is the document key of the ingest lock
const IngestLockKey = "_system/ingest_lock"

// ErrLocked is returned when another ingest run holds the lock
var ErrLocked = errors.New("ingest lock is held by another run")

// lockDocument is the stored form of the ingest lock
type lockDocument struct {
	Locked    bool      `json:"locked"`
	LockedAt  time.Time `json:"lockedAt"`
	LockedBy  string    `json:"lockedBy"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// IngestLocker serializes ingest runs through a lock document with an expiry
type IngestLocker struct {
	conn   *Connection
	owner  string
	ttl    time.Duration
	locked bool
}

// NewIngestLocker creates a locker; the lock document expires after ttl
func NewIngestLocker(conn *Connection, owner string, ttl time.Duration) *IngestLocker {
	return &IngestLocker{
		conn:  conn,
		owner: owner,
		ttl:   ttl,
	}
}

// Lock acquires the ingest lock
func (l *IngestLocker) Lock(ctx context.Context) error {
	if l.locked {
		return fmt.Errorf("ingest lock is already held by this run")
	}

	now := time.Now().UTC()
	doc := lockDocument{
		Locked:    true,
		LockedAt:  now,
		LockedBy:  l.owner,
		ExpiresAt: now.Add(l.ttl),
	}

	col := l.conn.GetBucket().DefaultCollection()
	_, err := col.Insert(IngestLockKey, doc, &gocb.InsertOptions{Context: ctx, Expiry: l.ttl})
	if err != nil {
		if errors.Is(err, gocb.ErrDocumentExists) {
			return ErrLocked
		}
		return fmt.Errorf("failed to create lock document: %w", err)
	}

	l.locked = true
	log.Info().Str("owner", l.owner).Dur("ttl", l.ttl).Msg("Ingest lock acquired")
	return nil
}

// Unlock releases the ingest lock
func (l *IngestLocker) Unlock(ctx context.Context) error {
	if !l.locked {
		return fmt.Errorf("ingest lock is not held")
	}

	col := l.conn.GetBucket().DefaultCollection()
	_, err := col.Remove(IngestLockKey, &gocb.RemoveOptions{Context: ctx})
	if err != nil && !errors.Is(err, gocb.ErrDocumentNotFound) {
		return fmt.Errorf("failed to remove lock document: %w", err)
	}

	l.locked = false
	log.Info().Str("owner", l.owner).Msg("Ingest lock released")
	return nil
}
