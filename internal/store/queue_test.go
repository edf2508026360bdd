package store

import (
	"database/sql"
	"testing"
	"time"

	"github.com/pawradar/pawradar/internal/model"
)

func insertTestReport(t *testing.T, db *sql.DB, id string) {
	t.Helper()
	_, err := db.Exec(
		`INSERT INTO reports (id, type, reporter_id, latitude, longitude, status) VALUES (?, 'lost', 'reporter', 0, 0, 'active')`,
		id,
	)
	if err != nil {
		t.Fatalf("insert test report: %v", err)
	}
}

func testPayload() model.NotificationPayload {
	return model.NotificationPayload{
		ReportType: model.ReportTypeLost,
		PetName:    "Rex",
		Species:    "dog",
	}
}

func TestQueueInsertDeduplicates(t *testing.T) {
	db := openTestDB(t)
	qs := NewQueueStore(db)
	insertTestReport(t, db, "report-1")

	ok, err := qs.Insert("user-1", "report-1", 800, testPayload())
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if !ok {
		t.Fatal("first insert should report a new row")
	}

	ok, err = qs.Insert("user-1", "report-1", 800, testPayload())
	if err != nil {
		t.Fatalf("duplicate insert: %v", err)
	}
	if ok {
		t.Error("duplicate (recipient, report) should be a no-op")
	}

	entries, err := qs.ListByReport("report-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len = %d, want 1", len(entries))
	}
	if entries[0].Payload.PetName != "Rex" {
		t.Errorf("payload pet name = %q, want Rex", entries[0].Payload.PetName)
	}
}

func TestClaimBatchOldestFirstAndBounded(t *testing.T) {
	db := openTestDB(t)
	qs := NewQueueStore(db)
	insertTestReport(t, db, "report-1")

	qs.Insert("user-a", "report-1", 100, testPayload())
	qs.Insert("user-b", "report-1", 200, testPayload())
	qs.Insert("user-c", "report-1", 300, testPayload())

	// Spread creation times so ordering is deterministic.
	base := time.Now().UTC().Add(-time.Hour)
	for i, u := range []string{"user-a", "user-b", "user-c"} {
		if _, err := db.Exec("UPDATE alert_queue SET created_at = ? WHERE recipient_id = ?",
			base.Add(time.Duration(i)*time.Minute), u); err != nil {
			t.Fatalf("stamp created_at: %v", err)
		}
	}

	claimed, err := qs.ClaimBatch(2, 0, 5*time.Minute)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if len(claimed) != 2 {
		t.Fatalf("claimed = %d, want 2", len(claimed))
	}
	if claimed[0].RecipientID != "user-a" || claimed[1].RecipientID != "user-b" {
		t.Errorf("claim order = %s, %s; want user-a, user-b", claimed[0].RecipientID, claimed[1].RecipientID)
	}
	for _, e := range claimed {
		if e.ClaimedAt == nil {
			t.Errorf("entry %s missing claim timestamp", e.ID)
		}
	}
}

func TestClaimBatchInvisibleToConcurrentClaimer(t *testing.T) {
	db := openTestDB(t)
	qs := NewQueueStore(db)
	insertTestReport(t, db, "report-1")
	qs.Insert("user-1", "report-1", 100, testPayload())

	first, err := qs.ClaimBatch(10, 0, 5*time.Minute)
	if err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("first claim len = %d, want 1", len(first))
	}

	// A second claimer arrives before the first finishes: nothing to take.
	second, err := qs.ClaimBatch(10, 0, 5*time.Minute)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if len(second) != 0 {
		t.Errorf("second claim len = %d, want 0 (entry is in-flight)", len(second))
	}
}

func TestClaimBatchReclaimsStaleClaims(t *testing.T) {
	db := openTestDB(t)
	qs := NewQueueStore(db)
	insertTestReport(t, db, "report-1")
	qs.Insert("user-1", "report-1", 100, testPayload())

	if _, err := qs.ClaimBatch(10, 0, 5*time.Minute); err != nil {
		t.Fatalf("claim: %v", err)
	}

	// Simulate a worker that died mid-batch: age the claim past the timeout.
	stale := time.Now().UTC().Add(-10 * time.Minute)
	if _, err := db.Exec("UPDATE alert_queue SET claimed_at = ?", stale); err != nil {
		t.Fatalf("age claim: %v", err)
	}

	reclaimed, err := qs.ClaimBatch(10, 0, 5*time.Minute)
	if err != nil {
		t.Fatalf("reclaim: %v", err)
	}
	if len(reclaimed) != 1 {
		t.Errorf("reclaimed = %d, want 1 (stale claim recovered)", len(reclaimed))
	}
}

func TestClaimBatchRespectsMinAge(t *testing.T) {
	db := openTestDB(t)
	qs := NewQueueStore(db)
	insertTestReport(t, db, "report-1")
	qs.Insert("user-1", "report-1", 100, testPayload())

	claimed, err := qs.ClaimBatch(10, time.Hour, 5*time.Minute)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if len(claimed) != 0 {
		t.Errorf("claimed = %d, want 0 (entry too young for sweep)", len(claimed))
	}

	claimed, err = qs.ClaimBatch(10, 0, 5*time.Minute)
	if err != nil {
		t.Fatalf("immediate claim: %v", err)
	}
	if len(claimed) != 1 {
		t.Errorf("immediate claim = %d, want 1", len(claimed))
	}
}

func TestMarkProcessedIdempotent(t *testing.T) {
	db := openTestDB(t)
	qs := NewQueueStore(db)
	insertTestReport(t, db, "report-1")
	qs.Insert("user-1", "report-1", 100, testPayload())

	entries, _ := qs.ClaimBatch(1, 0, time.Minute)
	id := entries[0].ID

	if err := qs.MarkProcessed(id); err != nil {
		t.Fatalf("mark processed: %v", err)
	}
	first, _ := qs.Get(id)
	if first.ProcessedAt == nil {
		t.Fatal("processed_at not set")
	}
	if first.ClaimedAt != nil {
		t.Error("claim should be cleared on completion")
	}

	time.Sleep(10 * time.Millisecond)
	if err := qs.MarkProcessed(id); err != nil {
		t.Fatalf("second mark processed: %v", err)
	}
	second, _ := qs.Get(id)
	if !second.ProcessedAt.Equal(*first.ProcessedAt) {
		t.Errorf("processed_at changed on second call: %v -> %v", first.ProcessedAt, second.ProcessedAt)
	}

	// Processed entries are never claimed again.
	claimed, _ := qs.ClaimBatch(10, 0, 0)
	if len(claimed) != 0 {
		t.Errorf("claimed processed entry")
	}
}

func TestReleaseIncrementsAttempts(t *testing.T) {
	db := openTestDB(t)
	qs := NewQueueStore(db)
	insertTestReport(t, db, "report-1")
	qs.Insert("user-1", "report-1", 100, testPayload())

	entries, _ := qs.ClaimBatch(1, 0, time.Minute)
	id := entries[0].ID

	attempts, err := qs.Release(id)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}

	// Released entries are immediately claimable again.
	entries, _ = qs.ClaimBatch(1, 0, time.Minute)
	if len(entries) != 1 {
		t.Fatal("released entry not claimable")
	}
	if entries[0].Attempts != 1 {
		t.Errorf("claimed attempts = %d, want 1", entries[0].Attempts)
	}

	attempts, _ = qs.Release(id)
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestMarkDeadTerminates(t *testing.T) {
	db := openTestDB(t)
	qs := NewQueueStore(db)
	insertTestReport(t, db, "report-1")
	qs.Insert("user-1", "report-1", 100, testPayload())

	entries, _ := qs.ClaimBatch(1, 0, time.Minute)
	id := entries[0].ID

	if err := qs.MarkDead(id); err != nil {
		t.Fatalf("mark dead: %v", err)
	}

	entry, _ := qs.Get(id)
	if entry.DeadAt == nil {
		t.Fatal("dead_at not set")
	}

	claimed, _ := qs.ClaimBatch(10, 0, 0)
	if len(claimed) != 0 {
		t.Error("dead entry should never be claimed")
	}
}

func TestDeleteTerminalBefore(t *testing.T) {
	db := openTestDB(t)
	qs := NewQueueStore(db)
	insertTestReport(t, db, "report-1")

	qs.Insert("old-processed", "report-1", 1, testPayload())
	qs.Insert("new-processed", "report-1", 2, testPayload())
	qs.Insert("still-pending", "report-1", 3, testPayload())
	qs.Insert("old-dead", "report-1", 4, testPayload())

	mark := func(recipient, column string, at time.Time) {
		t.Helper()
		if _, err := db.Exec("UPDATE alert_queue SET "+column+" = ? WHERE recipient_id = ?", at, recipient); err != nil {
			t.Fatalf("mark %s: %v", recipient, err)
		}
	}
	now := time.Now().UTC()
	mark("old-processed", "processed_at", now.Add(-8*24*time.Hour))
	mark("new-processed", "processed_at", now.Add(-time.Hour))
	mark("old-dead", "dead_at", now.Add(-9*24*time.Hour))

	deleted, err := qs.DeleteTerminalBefore(now.Add(-7 * 24 * time.Hour))
	if err != nil {
		t.Fatalf("delete terminal: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}

	remaining, _ := qs.ListByReport("report-1")
	left := map[string]bool{}
	for _, e := range remaining {
		left[e.RecipientID] = true
	}
	if !left["still-pending"] || !left["new-processed"] {
		t.Errorf("retention deleted rows it must keep: %v", left)
	}
	if left["old-processed"] || left["old-dead"] {
		t.Errorf("retention kept rows past the window: %v", left)
	}
}

func TestQueueStats(t *testing.T) {
	db := openTestDB(t)
	qs := NewQueueStore(db)
	insertTestReport(t, db, "report-1")

	qs.Insert("a", "report-1", 1, testPayload())
	qs.Insert("b", "report-1", 2, testPayload())
	qs.Insert("c", "report-1", 3, testPayload())

	entries, _ := qs.ClaimBatch(1, 0, time.Minute)
	qs.MarkProcessed(entries[0].ID)
	entries, _ = qs.ClaimBatch(1, 0, time.Minute)
	qs.MarkDead(entries[0].ID)

	stats, err := qs.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Pending != 1 || stats.Processed != 1 || stats.Dead != 1 || stats.Claimed != 0 {
		t.Errorf("stats = %+v, want 1 pending, 1 processed, 1 dead", stats)
	}
}
