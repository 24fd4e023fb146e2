package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func sampleRecord(id string, createdAt time.Time) *ReportRecord {
	return &ReportRecord{
		RequestID:           id,
		ImagePath:           "uploads/" + id + ".png",
		AnalysisResult:      "- Degradation Detected: Yes",
		FinalReport:         "--- [AI Master Report] ---\n- Degradation Detected: Yes\n--------------------------",
		DegradationDetected: true,
		Model:               "stub",
		Source:              "api",
		DurationMS:          42,
		CreatedAt:           createdAt,
	}
}

func exerciseStore(t *testing.T, store ReportStore) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrReportNotFound) {
		t.Fatalf("Get(missing) error = %v, want ErrReportNotFound", err)
	}

	for i, id := range []string{"r1", "r2", "r3"} {
		if err := store.Save(ctx, sampleRecord(id, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("Save(%s) error = %v", id, err)
		}
	}

	got, err := store.Get(ctx, "r2")
	if err != nil {
		t.Fatalf("Get(r2) error = %v", err)
	}
	if got.FinalReport != sampleRecord("r2", base).FinalReport || !got.DegradationDetected || got.DurationMS != 42 {
		t.Errorf("Get(r2) = %+v", got)
	}

	recent, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(recent) != 2 || recent[0].RequestID != "r3" || recent[1].RequestID != "r2" {
		t.Errorf("List(2) = %+v", recent)
	}
}

func TestSQLStoreSQLite(t *testing.T) {
	store, err := NewSQLStore("sqlite://" + filepath.Join(t.TempDir(), "reports.db"))
	if err != nil {
		t.Fatalf("NewSQLStore() error = %v", err)
	}
	defer store.Close()
	exerciseStore(t, store)
}

func TestNewSQLStoreRejectsUnknownScheme(t *testing.T) {
	if _, err := NewSQLStore("redis://localhost"); err == nil {
		t.Error("expected error for unsupported scheme")
	}
}

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	store, err := NewMongoStore(context.Background(), uri, "degradation_test_"+time.Now().Format("150405"))
	if err != nil {
		t.Fatalf("NewMongoStore() error = %v", err)
	}
	defer func() {
		store.collection.Database().Drop(context.Background())
		store.Close()
	}()

	exerciseStore(t, store)
}

func TestNopStore(t *testing.T) {
	var store ReportStore = NopStore{}
	if err := store.Save(context.Background(), sampleRecord("x", time.Now())); err != nil {
		t.Errorf("Save() error = %v", err)
	}
	if _, err := store.Get(context.Background(), "x"); !errors.Is(err, ErrReportNotFound) {
		t.Errorf("Get() error = %v", err)
	}
}

type countingStore struct {
	NopStore
	records map[string]ReportRecord
	gets    int
	saveErr error
}

func (c *countingStore) Save(ctx context.Context, record *ReportRecord) error {
	if c.saveErr != nil {
		return c.saveErr
	}
	c.records[record.RequestID] = *record
	return nil
}

func (c *countingStore) Get(ctx context.Context, requestID string) (*ReportRecord, error) {
	c.gets++
	record, ok := c.records[requestID]
	if !ok {
		return nil, ErrReportNotFound
	}
	return &record, nil
}

func TestCachedStore(t *testing.T) {
	inner := &countingStore{records: map[string]ReportRecord{}}
	cache := NewCachedStore(inner, time.Minute)
	ctx := context.Background()

	if err := cache.Save(ctx, sampleRecord("a", time.Now())); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if _, err := cache.Get(ctx, "a"); err != nil {
			t.Fatalf("Get() error = %v", err)
		}
	}
	if inner.gets != 0 {
		t.Errorf("inner gets = %d, want 0 while cached", inner.gets)
	}

	inner.saveErr = errors.New("disk full")
	if err := cache.Save(ctx, sampleRecord("a", time.Now())); err == nil {
		t.Fatal("expected save error")
	}
	inner.saveErr = nil
	if _, err := cache.Get(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if inner.gets != 1 {
		t.Errorf("inner gets = %d, want 1 after a failed save dropped the cached copy", inner.gets)
	}

	if _, err := cache.Get(ctx, "nope"); !errors.Is(err, ErrReportNotFound) {
		t.Errorf("Get(nope) error = %v", err)
	}
}

func TestCachedStoreZeroTTLDisablesCache(t *testing.T) {
	inner := &countingStore{records: map[string]ReportRecord{}}
	cache := NewCachedStore(inner, 0)
	ctx := context.Background()

	cache.Save(ctx, sampleRecord("a", time.Now()))
	cache.Get(ctx, "a")
	cache.Get(ctx, "a")
	if inner.gets != 2 {
		t.Errorf("inner gets = %d, want 2", inner.gets)
	}
}
