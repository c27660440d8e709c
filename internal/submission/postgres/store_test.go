package postgres_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openseva/vaani/internal/submission"
	"github.com/openseva/vaani/internal/submission/postgres"
)

// testDSN returns the test database DSN from the environment, or skips the
// test if VAANI_TEST_POSTGRES_DSN is not set.
func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("VAANI_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("VAANI_TEST_POSTGRES_DSN not set, skipping PostgreSQL integration tests")
	}
	return dsn
}

// newTestStore creates a fresh [postgres.Store] with a clean schema.
func newTestStore(t *testing.T) *postgres.Store {
	t.Helper()
	dsn := testDSN(t)
	ctx := context.Background()

	cleanPool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	t.Cleanup(cleanPool.Close)
	if _, err := cleanPool.Exec(ctx, "DROP TABLE IF EXISTS submissions CASCADE"); err != nil {
		t.Fatalf("drop schema: %v", err)
	}

	store, err := postgres.NewStore(ctx, dsn)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(store.Close)
	return store
}

func mustCreate(t *testing.T, store *postgres.Store, serviceID int) submission.Submission {
	t.Helper()
	sub, err := submission.New(serviceID, "Ration Card", map[string]string{
		"name":  "Ramesh Kumar",
		"phone": "9876543210",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := store.Create(context.Background(), sub); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return sub
}

func TestStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	sub := mustCreate(t, store, 20)

	got, err := store.Get(ctx, sub.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != sub.ID || got.ServiceID != 20 || got.ServiceName != "Ration Card" {
		t.Errorf("got = %+v", got)
	}
	if got.Values["name"] != "Ramesh Kumar" {
		t.Errorf("values = %+v", got.Values)
	}
	if len(got.StatusHistory) != 1 || got.StatusHistory[0].Status != submission.StatusSubmitted {
		t.Errorf("history = %+v", got.StatusHistory)
	}

	if err := store.Create(ctx, sub); !errors.Is(err, submission.ErrDuplicateID) {
		t.Errorf("duplicate Create err = %v, want ErrDuplicateID", err)
	}
	if _, err := store.Get(ctx, "missing"); !errors.Is(err, submission.ErrNotFound) {
		t.Errorf("Get(missing) err = %v, want ErrNotFound", err)
	}
}

func TestStoreStatusWorkflow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	sub := mustCreate(t, store, 20)

	got, err := store.UpdateStatus(ctx, sub.ID, submission.StatusUnderReview, "admin1", "opened")
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if got.Status != submission.StatusUnderReview || len(got.StatusHistory) != 2 {
		t.Errorf("got = %+v", got)
	}
	if got.AdminNotes != "opened" {
		t.Errorf("adminNotes = %q", got.AdminNotes)
	}
	if len(got.ViewedBy) != 1 || got.ViewedBy[0] != "admin1" {
		t.Errorf("viewedBy = %+v", got.ViewedBy)
	}

	if _, err := store.UpdateStatus(ctx, sub.ID, submission.StatusCollected, "admin1", ""); err != nil {
		t.Fatalf("UpdateStatus to collected: %v", err)
	}
	if _, err := store.UpdateStatus(ctx, sub.ID, submission.StatusSubmitted, "admin1", ""); !errors.Is(err, submission.ErrFinal) {
		t.Errorf("update after collection err = %v, want ErrFinal", err)
	}
	if _, err := store.UpdateStatus(ctx, "missing", submission.StatusProcessing, "admin1", ""); !errors.Is(err, submission.ErrNotFound) {
		t.Errorf("missing id err = %v, want ErrNotFound", err)
	}
}

func TestStoreUpdateValuesMerges(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	sub := mustCreate(t, store, 20)

	got, err := store.UpdateValues(ctx, sub.ID, map[string]string{
		"phone":   "9123456780",
		"address": "12 MG Road, Hyderabad",
	}, "admin2")
	if err != nil {
		t.Fatalf("UpdateValues: %v", err)
	}
	if got.Values["phone"] != "9123456780" || got.Values["name"] != "Ramesh Kumar" {
		t.Errorf("values = %+v", got.Values)
	}
	if got.Status != submission.StatusSubmitted {
		t.Errorf("status = %q, changed by a value update", got.Status)
	}
}

func TestStoreListAndStats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := mustCreate(t, store, 20)
	mustCreate(t, store, 20)
	mustCreate(t, store, 21)
	if _, err := store.UpdateStatus(ctx, a.ID, submission.StatusRejected, "admin1", "incomplete"); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	active, err := store.List(ctx, submission.ListOptions{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(active) != 2 {
		t.Errorf("active listing = %d entries, want 2", len(active))
	}

	all, err := store.List(ctx, submission.ListOptions{IncludeFinal: true})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("full listing = %d entries, want 3", len(all))
	}
	// Newest first.
	for i := 1; i < len(all); i++ {
		if all[i].SubmittedAt.After(all[i-1].SubmittedAt) {
			t.Errorf("listing not sorted newest first: %v after %v", all[i].SubmittedAt, all[i-1].SubmittedAt)
		}
	}

	byService, err := store.List(ctx, submission.ListOptions{ServiceID: 21})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(byService) != 1 {
		t.Errorf("service listing = %+v", byService)
	}

	byPhone, err := store.List(ctx, submission.ListOptions{Phone: "9876543210"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(byPhone) != 2 {
		t.Errorf("phone listing = %d entries, want 2 active", len(byPhone))
	}
	noPhone, err := store.List(ctx, submission.ListOptions{Phone: "9999999999"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(noPhone) != 0 {
		t.Errorf("unmatched phone listing = %+v", noPhone)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 3 || stats.Active != 2 || stats.Final != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestStoreDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	sub := mustCreate(t, store, 20)

	if err := store.Delete(ctx, sub.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Delete(ctx, sub.ID); !errors.Is(err, submission.ErrNotFound) {
		t.Errorf("second Delete err = %v, want ErrNotFound", err)
	}
}
