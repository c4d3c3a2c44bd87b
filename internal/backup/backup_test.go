package backup

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"chorewheel/internal/database"
	"chorewheel/internal/model"
	"chorewheel/internal/store"
)

// fakeS3 records uploaded objects in memory.
type fakeS3 struct {
	mu       sync.Mutex
	objects  map[string][]byte
	putFails int
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putFails > 0 {
		f.putFails--
		return nil, errors.New("transient upload failure")
	}
	data, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*input.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[*input.Key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(string(data)))}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, *input.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func testManager(t *testing.T) (*Manager, *fakeS3, *store.BackupStore) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := database.Open(dbPath)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	records := store.NewBackupStore(db)
	fake := newFakeS3()

	m := NewManager(Config{
		S3:            S3Config{Bucket: "test-bucket", AccessKey: "k", SecretKey: "s"},
		DBPath:        dbPath,
		RetentionDays: 30,
	}, db, records, slog.Default())
	m.client = fake

	return m, fake, records
}

func TestRunUploadsSnapshot(t *testing.T) {
	m, fake, records := testManager(t)

	id, err := m.Run(context.Background(), 1)
	if err != nil {
		t.Fatalf("run backup: %v", err)
	}

	record, err := records.GetByID(id)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if record.Status != model.BackupStatusCompleted {
		t.Errorf("status = %q, want %q", record.Status, model.BackupStatusCompleted)
	}
	if record.SizeBytes == 0 {
		t.Error("expected non-zero snapshot size")
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if _, ok := fake.objects[record.S3Key]; !ok {
		t.Errorf("expected object at key %s", record.S3Key)
	}
}

func TestRunRetriesTransientFailures(t *testing.T) {
	m, fake, records := testManager(t)
	fake.putFails = 2

	id, err := m.Run(context.Background(), 1)
	if err != nil {
		t.Fatalf("run backup: %v", err)
	}

	record, _ := records.GetByID(id)
	if record.Status != model.BackupStatusCompleted {
		t.Errorf("status = %q, want completed after retries", record.Status)
	}
}

func TestRunDisabledWithoutCredentials(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := database.Open(dbPath)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	m := NewManager(Config{DBPath: dbPath}, db, store.NewBackupStore(db), slog.Default())
	if m.Enabled() {
		t.Error("expected manager disabled without S3 credentials")
	}
	if _, err := m.Run(context.Background(), 1); err == nil {
		t.Error("expected error running disabled manager")
	}
}

func TestDownload(t *testing.T) {
	m, _, _ := testManager(t)

	id, err := m.Run(context.Background(), 1)
	if err != nil {
		t.Fatalf("run backup: %v", err)
	}

	body, size, err := m.Download(context.Background(), id)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if int64(len(data)) != size {
		t.Errorf("downloaded %d bytes, record says %d", len(data), size)
	}
}

func TestDownloadMissing(t *testing.T) {
	m, _, _ := testManager(t)
	if _, _, err := m.Download(context.Background(), 999); err == nil {
		t.Error("expected error for unknown backup id")
	}
}
