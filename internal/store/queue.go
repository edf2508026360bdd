package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pawradar/pawradar/internal/model"
)

// QueueStore is the durable notification queue: the system of record for
// delivery state. Rows only ever move forward: insert, claim, then exactly
// one of processed or dead.
type QueueStore struct {
	db *sql.DB
}

func NewQueueStore(db *sql.DB) *QueueStore {
	return &QueueStore{db: db}
}

// Insert appends one entry for a (recipient, report) pair. The unique index
// on that pair makes duplicate enqueues a no-op; returns false when the pair
// was already queued.
func (s *QueueStore) Insert(recipientID, reportID string, distanceMeters float64, payload model.NotificationPayload) (bool, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return false, fmt.Errorf("marshal payload: %w", err)
	}

	result, err := s.db.Exec(
		`INSERT INTO alert_queue (id, recipient_id, report_id, distance_meters, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(recipient_id, report_id) DO NOTHING`,
		uuid.NewString(), recipientID, reportID, distanceMeters, string(data), time.Now().UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("insert queue entry: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert queue entry rows affected: %w", err)
	}
	return n > 0, nil
}

// ClaimBatch atomically claims up to limit pending entries, oldest first, and
// returns them. A claimed entry is invisible to concurrent claimers until its
// claim is older than claimTimeout, which doubles as crash recovery: a worker
// that dies mid-batch loses its claim after the timeout and the entries are
// re-claimed by a later sweep.
//
// minAge filters to entries created at least that long ago; the immediate
// trigger passes zero, the retry sweep passes its age threshold.
func (s *QueueStore) ClaimBatch(limit int, minAge, claimTimeout time.Duration) ([]model.AlertQueueEntry, error) {
	now := time.Now().UTC()
	createdCutoff := now.Add(-minAge)
	staleClaimCutoff := now.Add(-claimTimeout)

	rows, err := s.db.Query(
		`UPDATE alert_queue SET claimed_at = ?
		 WHERE id IN (
		   SELECT id FROM alert_queue
		   WHERE processed_at IS NULL AND dead_at IS NULL
		     AND created_at <= ?
		     AND (claimed_at IS NULL OR claimed_at <= ?)
		   ORDER BY created_at
		   LIMIT ?
		 )
		 RETURNING id, recipient_id, report_id, distance_meters, payload, attempts,
		           created_at, claimed_at, processed_at, dead_at`,
		now, createdCutoff, staleClaimCutoff, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("claim batch: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// MarkProcessed records terminal success. Calling it twice is a no-op; the
// first-set timestamp wins.
func (s *QueueStore) MarkProcessed(id string) error {
	_, err := s.db.Exec(
		`UPDATE alert_queue SET processed_at = ?, claimed_at = NULL
		 WHERE id = ? AND processed_at IS NULL AND dead_at IS NULL`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}
	return nil
}

// Release returns a claimed entry to the pending pool after a transient
// failure, incrementing its attempt counter. Returns the new attempt count.
func (s *QueueStore) Release(id string) (int, error) {
	var attempts int
	err := s.db.QueryRow(
		`UPDATE alert_queue SET claimed_at = NULL, attempts = attempts + 1
		 WHERE id = ? AND processed_at IS NULL AND dead_at IS NULL
		 RETURNING attempts`,
		id,
	).Scan(&attempts)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("release claim: %w", err)
	}
	return attempts, nil
}

// MarkDead moves an entry to the dead-letter terminal state: permanent
// delivery failure or attempt exhaustion. Dead entries are never retried and
// age out through retention like processed ones.
func (s *QueueStore) MarkDead(id string) error {
	_, err := s.db.Exec(
		`UPDATE alert_queue SET dead_at = ?, claimed_at = NULL
		 WHERE id = ? AND processed_at IS NULL AND dead_at IS NULL`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("mark dead: %w", err)
	}
	return nil
}

// DeleteTerminalBefore deletes processed and dead entries whose terminal
// timestamp is older than the cutoff. Pending entries are never touched.
func (s *QueueStore) DeleteTerminalBefore(cutoff time.Time) (int64, error) {
	result, err := s.db.Exec(
		`DELETE FROM alert_queue
		 WHERE (processed_at IS NOT NULL AND processed_at < ?)
		    OR (dead_at IS NOT NULL AND dead_at < ?)`,
		cutoff.UTC(), cutoff.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("delete terminal entries: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete terminal rows affected: %w", err)
	}
	return n, nil
}

// Get returns a single entry by id, or nil if unknown.
func (s *QueueStore) Get(id string) (*model.AlertQueueEntry, error) {
	rows, err := s.db.Query(
		`SELECT id, recipient_id, report_id, distance_meters, payload, attempts,
		        created_at, claimed_at, processed_at, dead_at
		 FROM alert_queue WHERE id = ?`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("get queue entry: %w", err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

// ListByReport returns all entries fanned out for a report, oldest first.
func (s *QueueStore) ListByReport(reportID string) ([]model.AlertQueueEntry, error) {
	rows, err := s.db.Query(
		`SELECT id, recipient_id, report_id, distance_meters, payload, attempts,
		        created_at, claimed_at, processed_at, dead_at
		 FROM alert_queue WHERE report_id = ? ORDER BY created_at`, reportID,
	)
	if err != nil {
		return nil, fmt.Errorf("list queue entries by report: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Stats returns a census of the queue by state.
func (s *QueueStore) Stats() (*model.QueueStats, error) {
	var stats model.QueueStats
	err := s.db.QueryRow(
		`SELECT
		   COUNT(*) FILTER (WHERE processed_at IS NULL AND dead_at IS NULL AND claimed_at IS NULL),
		   COUNT(*) FILTER (WHERE processed_at IS NULL AND dead_at IS NULL AND claimed_at IS NOT NULL),
		   COUNT(*) FILTER (WHERE processed_at IS NOT NULL),
		   COUNT(*) FILTER (WHERE dead_at IS NOT NULL)
		 FROM alert_queue`,
	).Scan(&stats.Pending, &stats.Claimed, &stats.Processed, &stats.Dead)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	return &stats, nil
}

func scanEntries(rows *sql.Rows) ([]model.AlertQueueEntry, error) {
	var entries []model.AlertQueueEntry
	for rows.Next() {
		var e model.AlertQueueEntry
		var payload string
		var claimedAt, processedAt, deadAt sql.NullTime

		if err := rows.Scan(&e.ID, &e.RecipientID, &e.ReportID, &e.DistanceMeters,
			&payload, &e.Attempts, &e.CreatedAt, &claimedAt, &processedAt, &deadAt); err != nil {
			return nil, fmt.Errorf("scan queue entry: %w", err)
		}

		if err := json.Unmarshal([]byte(payload), &e.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
		if claimedAt.Valid {
			e.ClaimedAt = &claimedAt.Time
		}
		if processedAt.Valid {
			e.ProcessedAt = &processedAt.Time
		}
		if deadAt.Valid {
			e.DeadAt = &deadAt.Time
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
