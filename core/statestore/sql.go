package statestore

import (
	"context"
	"time"

	"feed-processor/core/ingest"

	"github.com/cockroachdb/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// casAttempts bounds the read-then-conditional-write loop under contention.
	casAttempts = 3
	// sqlBatchLimit keeps IN lists below common bind variable limits.
	sqlBatchLimit = 500
)

// stateRow is the SQL schema of a state entry.
type stateRow struct {
	AddressID     string     `gorm:"column:address_id;primaryKey;size:64"`
	Indicator     string     `gorm:"column:indicator;size:255;not null;uniqueIndex"`
	ContentHash   string     `gorm:"column:content_hash;size:64;not null"`
	FirstSeen     *time.Time `gorm:"column:first_seen"`
	LastSeen      time.Time  `gorm:"column:last_seen;not null"`
	LastForwarded *time.Time `gorm:"column:last_forwarded"`
}

func (r stateRow) entry() ingest.StateEntry {
	e := ingest.StateEntry{
		ID:            r.Indicator,
		ContentHash:   r.ContentHash,
		LastSeen:      r.LastSeen.UTC(),
		LastForwarded: utcPtr(r.LastForwarded),
	}
	if r.FirstSeen != nil {
		e.FirstSeen = r.FirstSeen.UTC()
	}
	return e
}

// SQL is a StateStore backed by a relational table through GORM.
type SQL struct {
	db    *gorm.DB
	table string
	key   KeyFunc
}

// NewSQL creates a SQL store on table. key derives the primary key from an indicator
// id; nil keeps the id as is.
func NewSQL(db *gorm.DB, table string, key KeyFunc) *SQL {
	if key == nil {
		key = identity
	}
	return &SQL{db: db, table: table, key: key}
}

// Migrate creates or updates the state table.
func (s *SQL) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Table(s.table).AutoMigrate(&stateRow{}); err != nil {
		return errors.Wrapf(err, "migrate table %s", s.table)
	}
	return nil
}

func (s *SQL) q(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Table(s.table)
}

// Get returns the entry for id.
func (s *SQL) Get(ctx context.Context, id string) (ingest.StateEntry, error) {
	row, err := s.take(ctx, s.key(id))
	if err != nil {
		return ingest.StateEntry{}, err
	}
	return s.decode(row)
}

func (s *SQL) take(ctx context.Context, key string) (stateRow, error) {
	var row stateRow
	err := s.q(ctx).Where("address_id = ?", key).Take(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return stateRow{}, ingest.ErrNotFound
	case err != nil:
		return stateRow{}, ingest.MarkStoreUnavailable(err, "select state row")
	}
	return row, nil
}

// PutIfAbsentOrChanged inserts entry when absent, or updates it guarded by the
// previously read content hash. A concurrent writer that wins the race is retried
// against the fresh row.
func (s *SQL) PutIfAbsentOrChanged(ctx context.Context, entry ingest.StateEntry) (bool, error) {
	key := s.key(entry.ID)
	row := stateRow{
		AddressID:     key,
		Indicator:     entry.ID,
		ContentHash:   entry.ContentHash,
		FirstSeen:     nonZero(entry.FirstSeen),
		LastSeen:      entry.LastSeen.UTC(),
		LastForwarded: utcPtr(entry.LastForwarded),
	}

	for attempt := 0; attempt < casAttempts; attempt++ {
		cur, err := s.take(ctx, key)
		if errors.Is(err, ingest.ErrNotFound) {
			res := s.q(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
			if res.Error != nil {
				return false, ingest.MarkStoreUnavailable(res.Error, "insert state row")
			}
			if res.RowsAffected == 1 {
				return true, nil
			}
			continue
		}
		if err != nil {
			return false, err
		}
		if cur.ContentHash == entry.ContentHash {
			return false, nil
		}

		res := s.q(ctx).
			Where("address_id = ? AND content_hash = ?", key, cur.ContentHash).
			Updates(map[string]any{
				"content_hash":   row.ContentHash,
				"first_seen":     row.FirstSeen,
				"last_seen":      row.LastSeen,
				"last_forwarded": row.LastForwarded,
			})
		if res.Error != nil {
			return false, ingest.MarkStoreUnavailable(res.Error, "update state row")
		}
		if res.RowsAffected == 1 {
			return true, nil
		}
	}
	return false, ingest.MarkStoreUnavailable(
		errors.Newf("state row %s contended after %d attempts", entry.ID, casAttempts), "conditional write")
}

// BatchGet returns the stored entries for ids.
func (s *SQL) BatchGet(ctx context.Context, ids []string) (map[string]ingest.StateEntry, error) {
	out := make(map[string]ingest.StateEntry, len(ids))
	for lo := 0; lo < len(ids); lo += sqlBatchLimit {
		hi := min(lo+sqlBatchLimit, len(ids))
		keys := make([]string, 0, hi-lo)
		for _, id := range ids[lo:hi] {
			keys = append(keys, s.key(id))
		}

		var rows []stateRow
		if err := s.q(ctx).Where("address_id IN ?", keys).Find(&rows).Error; err != nil {
			return nil, ingest.MarkStoreUnavailable(err, "select state rows")
		}
		for _, row := range rows {
			e, err := s.decode(row)
			if err != nil {
				return nil, err
			}
			out[e.ID] = e
		}
	}
	return out, nil
}

func (s *SQL) decode(row stateRow) (ingest.StateEntry, error) {
	if row.Indicator == "" || row.AddressID != s.key(row.Indicator) {
		return ingest.StateEntry{}, ingest.Corruptf("state row %q does not match indicator %q", row.AddressID, row.Indicator)
	}
	e := row.entry()
	if err := ingest.ValidateEntry(e); err != nil {
		return ingest.StateEntry{}, err
	}
	return e, nil
}
