package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// fakeInserter records what it was asked to insert.
type fakeInserter struct {
	calls     int
	table     string
	batchSize int
	staged    *Staging
	err       error
}

func (f *fakeInserter) BulkInsert(ctx context.Context, table string, s *Staging, batchSize int) (int64, error) {
	f.calls++
	f.table = table
	f.batchSize = batchSize
	f.staged = s
	if f.err != nil {
		return 0, f.err
	}
	return int64(s.Len()), nil
}

func newTestService(t *testing.T, dest BulkInserter) (*Service, string) {
	t.Helper()
	dupPath := filepath.Join(t.TempDir(), "duplicates.csv")
	svc := NewService(dest, newTestNormalizer(t), Options{
		DuplicatesPath: dupPath,
		BatchSize:      2,
	}, NewImportLimiter(time.Second))
	return svc, dupPath
}

func TestService_Import_EndToEnd(t *testing.T) {
	dest := &fakeInserter{}
	svc, dupPath := newTestService(t, dest)

	// rows 1 and 3 share pickup, dropoff and passenger count
	path := writeCSV(t,
		tripHeader,
		"2020-01-01 00:00:00,2020-01-01 00:10:00,1,1.5,N,132,48,12.50,2.00",
		"2020-01-01 00:05:00,2020-01-01 00:20:00,2,2.0,N,132,48,14.00,3.00",
		"2020-01-01 00:00:00,2020-01-01 00:10:00,1,7.25,Y,10,11,30.00,0",
		"2020-01-01 00:07:00,2020-01-01 00:30:00,,4.0,N,132,48,20.00,4.00",
	)

	res, err := svc.Import(context.Background(), path)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}

	if res.TotalRows != 4 || res.Unique != 3 || res.Duplicates != 1 {
		t.Errorf("counts = total %d unique %d dups %d, want 4/3/1", res.TotalRows, res.Unique, res.Duplicates)
	}
	if res.Inserted != 3 {
		t.Errorf("Inserted = %d, want 3", res.Inserted)
	}
	if res.ImportID == "" {
		t.Error("ImportID not set")
	}
	if dest.calls != 1 {
		t.Fatalf("BulkInsert called %d times, want 1", dest.calls)
	}
	if dest.staged.Len() != 3 {
		t.Errorf("staged rows = %d, want 3", dest.staged.Len())
	}
	if dest.table != DefaultTable {
		t.Errorf("table = %q, want %q", dest.table, DefaultTable)
	}
	if dest.batchSize != 2 {
		t.Errorf("batchSize = %d, want 2", dest.batchSize)
	}

	// the duplicate file holds row 3's values
	dups, err := NewParser(newTestNormalizer(t)).ReadAll(dupPath)
	if err != nil {
		t.Fatalf("read duplicates: %v", err)
	}
	if len(dups) != 1 {
		t.Fatalf("duplicates file has %d rows, want 1", len(dups))
	}
	if dups[0].TripDistance != 7.25 || dups[0].PULocationID != 10 || dups[0].StoreAndFwdFlag != FlagYes {
		t.Errorf("duplicate row = %s, want row 3", dups[0])
	}
}

func TestService_Import_MalformedWritesNothing(t *testing.T) {
	dest := &fakeInserter{}
	svc, dupPath := newTestService(t, dest)

	path := writeCSV(t,
		tripHeader,
		"2020-01-01 00:00:00,2020-01-01 00:10:00,1,1.5,N,132,48,12.50,2.00",
		"2020-01-01 00:00:00,2020-01-01 00:10:00,1,1.5,N,132,48,12.50,2.00",
		"2020-01-01 00:05:00,2020-01-01 00:20:00,2,abc,N,132,48,14.00,3.00",
	)

	_, err := svc.Import(context.Background(), path)
	if !errors.Is(err, ErrParse) {
		t.Fatalf("error = %v, want ErrParse", err)
	}
	if dest.calls != 0 {
		t.Errorf("BulkInsert called %d times, want 0", dest.calls)
	}
	if _, err := os.Stat(dupPath); !os.IsNotExist(err) {
		t.Errorf("duplicates file exists after parse failure")
	}
}

func TestService_Import_MissingFile(t *testing.T) {
	dest := &fakeInserter{}
	svc, _ := newTestService(t, dest)

	tests := []struct {
		name string
		path string
	}{
		{"empty path", ""},
		{"missing", filepath.Join(t.TempDir(), "nope.csv")},
		{"directory", t.TempDir()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Import(context.Background(), tt.path)
			if !errors.Is(err, ErrInput) {
				t.Errorf("error = %v, want ErrInput", err)
			}
		})
	}
	if dest.calls != 0 {
		t.Errorf("BulkInsert called %d times, want 0", dest.calls)
	}
}

func TestService_Import_FileTooLarge(t *testing.T) {
	svc := NewService(&fakeInserter{}, newTestNormalizer(t), Options{
		DuplicatesPath: filepath.Join(t.TempDir(), "d.csv"),
		MaxFileSize:    10,
	}, nil)

	path := writeCSV(t, tripHeader)
	if _, err := svc.Import(context.Background(), path); !errors.Is(err, ErrInput) {
		t.Errorf("error = %v, want ErrInput", err)
	}
}

func TestService_Import_PersistFailure(t *testing.T) {
	dest := &fakeInserter{err: errors.New("ERROR: duplicate key value violates unique constraint")}
	svc, dupPath := newTestService(t, dest)

	path := writeCSV(t,
		tripHeader,
		"2020-01-01 00:00:00,2020-01-01 00:10:00,1,1.5,N,132,48,12.50,2.00",
		"2020-01-01 00:00:00,2020-01-01 00:10:00,1,1.5,N,132,48,12.50,2.00",
	)

	_, err := svc.Import(context.Background(), path)
	if !errors.Is(err, ErrPersist) {
		t.Fatalf("error = %v, want ErrPersist", err)
	}
	if got := MapError(err).Code; got != "DB001" {
		t.Errorf("MapError code = %q, want DB001", got)
	}

	// overflow is not rolled back
	if _, err := os.Stat(dupPath); err != nil {
		t.Errorf("duplicates file missing after insert failure: %v", err)
	}
}

func TestService_Import_OverflowFailure(t *testing.T) {
	dest := &fakeInserter{}
	svc := NewService(dest, newTestNormalizer(t), Options{
		DuplicatesPath: filepath.Join(t.TempDir(), "no", "such", "dir.csv"),
	}, nil)

	path := writeCSV(t,
		tripHeader,
		"2020-01-01 00:00:00,2020-01-01 00:10:00,1,1.5,N,132,48,12.50,2.00",
	)
	_, err := svc.Import(context.Background(), path)
	if !errors.Is(err, ErrOverflow) {
		t.Fatalf("error = %v, want ErrOverflow", err)
	}
	if dest.calls != 0 {
		t.Errorf("BulkInsert called %d times, want 0", dest.calls)
	}
}

func TestService_Import_HeaderOnly(t *testing.T) {
	dest := &fakeInserter{}
	svc, dupPath := newTestService(t, dest)

	res, err := svc.Import(context.Background(), writeCSV(t, tripHeader))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.TotalRows != 0 || res.Inserted != 0 {
		t.Errorf("got total %d inserted %d, want 0/0", res.TotalRows, res.Inserted)
	}
	if dest.calls != 0 {
		t.Errorf("BulkInsert called %d times for empty input, want 0", dest.calls)
	}

	data, err := os.ReadFile(dupPath)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(data)) != tripHeader {
		t.Errorf("duplicates file = %q, want header only", data)
	}
}

func TestService_Import_Busy(t *testing.T) {
	limiter := NewImportLimiter(50 * time.Millisecond)
	svc := NewService(&fakeInserter{}, newTestNormalizer(t), Options{
		DuplicatesPath: filepath.Join(t.TempDir(), "d.csv"),
	}, limiter)

	if err := limiter.Acquire(context.Background(), "other.csv"); err != nil {
		t.Fatal(err)
	}
	defer limiter.Release()

	_, err := svc.Import(context.Background(), writeCSV(t, tripHeader))
	if !errors.Is(err, ErrImportBusy) {
		t.Errorf("error = %v, want ErrImportBusy", err)
	}
}

func TestOptions_Defaults(t *testing.T) {
	o := Options{}.withDefaults()
	if o.BatchSize != DefaultBatchSize {
		t.Errorf("BatchSize = %d, want %d", o.BatchSize, DefaultBatchSize)
	}
	if o.Table != DefaultTable {
		t.Errorf("Table = %q, want %q", o.Table, DefaultTable)
	}
	if o.DuplicatesPath != DefaultDuplicatesPath {
		t.Errorf("DuplicatesPath = %q, want %q", o.DuplicatesPath, DefaultDuplicatesPath)
	}
	if o.Timeout != DefaultImportTimeout {
		t.Errorf("Timeout = %v, want %v", o.Timeout, DefaultImportTimeout)
	}
}
