package backup

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sethvargo/go-retry"

	"chorewheel/internal/model"
	"chorewheel/internal/store"
)

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

// Config holds backup manager configuration.
type Config struct {
	S3            S3Config
	DBPath        string
	RetentionDays int
}

// Manager snapshots the SQLite database and uploads it to S3-compatible
// storage. A zero-value S3 config leaves the manager disabled.
type Manager struct {
	mu      sync.RWMutex
	cfg     Config
	db      *sql.DB
	records *store.BackupStore
	client  s3Client
	logger  *slog.Logger
}

// NewManager creates a backup manager. The manager is disabled when the S3
// bucket or credentials are missing.
func NewManager(cfg Config, db *sql.DB, records *store.BackupStore, logger *slog.Logger) *Manager {
	m := &Manager{
		cfg:     cfg,
		db:      db,
		records: records,
		logger:  logger.With("component", "backup"),
	}
	if cfg.RetentionDays <= 0 {
		m.cfg.RetentionDays = 30
	}
	if cfg.S3.Bucket != "" && cfg.S3.AccessKey != "" && cfg.S3.SecretKey != "" {
		m.client = newS3Client(cfg.S3)
	}
	return m
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Enabled reports whether the manager has a configured S3 target.
func (m *Manager) Enabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client != nil
}

// Run snapshots the database and uploads it, recording progress in the
// backups table. It returns the backup record ID.
func (m *Manager) Run(ctx context.Context, householdID int64) (int64, error) {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	m.mu.RUnlock()

	if client == nil {
		return 0, fmt.Errorf("backup not configured: S3 credentials missing")
	}

	timestamp := time.Now().UTC().Format("2006-01-02T150405Z")
	filename := fmt.Sprintf("backup-%s.db", timestamp)
	s3Key := fmt.Sprintf("%d/%s", householdID, filename)

	record, err := m.records.Create(householdID, filename, s3Key)
	if err != nil {
		return 0, fmt.Errorf("create backup record: %w", err)
	}

	snapshot := filepath.Join(os.TempDir(), fmt.Sprintf("chorewheel-backup-%d.db", record.ID))
	defer os.Remove(snapshot)

	if err := m.snapshot(ctx, snapshot); err != nil {
		m.fail(record.ID, err)
		return 0, err
	}

	m.records.UpdateStatus(record.ID, model.BackupStatusUploading, "")

	size, err := m.upload(ctx, client, bucket, s3Key, snapshot)
	if err != nil {
		m.fail(record.ID, err)
		return 0, err
	}

	if err := m.records.UpdateCompleted(record.ID, size); err != nil {
		return 0, fmt.Errorf("mark backup completed: %w", err)
	}

	m.logger.Info("backup completed", "id", record.ID, "key", s3Key, "size_bytes", size)
	return record.ID, nil
}

// snapshot writes a consistent copy of the live database. VACUUM INTO
// produces a compacted single-file snapshot without blocking writers.
func (m *Manager) snapshot(ctx context.Context, dst string) error {
	os.Remove(dst)
	if _, err := m.db.ExecContext(ctx, `VACUUM INTO ?`, dst); err != nil {
		return fmt.Errorf("vacuum into snapshot: %w", err)
	}
	return nil
}

// upload puts the snapshot to S3, retrying transient failures with
// exponential backoff.
func (m *Manager) upload(ctx context.Context, client s3Client, bucket, key, path string) (int64, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat snapshot: %w", err)
	}

	backoff := retry.WithMaxRetries(4, retry.NewExponential(500*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		_, err = client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(bucket),
			Key:           aws.String(key),
			Body:          f,
			ContentLength: aws.Int64(stat.Size()),
		})
		if err != nil {
			m.logger.Warn("upload attempt failed", "key", key, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("upload to s3: %w", err)
	}
	return stat.Size(), nil
}

func (m *Manager) fail(recordID int64, cause error) {
	if err := m.records.UpdateStatus(recordID, model.BackupStatusFailed, cause.Error()); err != nil {
		m.logger.Error("mark backup failed", "id", recordID, "error", err)
	}
}

// Download streams a stored backup from S3.
func (m *Manager) Download(ctx context.Context, backupID int64) (io.ReadCloser, int64, error) {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	m.mu.RUnlock()

	if client == nil {
		return nil, 0, fmt.Errorf("backup not configured")
	}

	record, err := m.records.GetByID(backupID)
	if err != nil {
		return nil, 0, fmt.Errorf("get backup: %w", err)
	}
	if record == nil {
		return nil, 0, fmt.Errorf("backup not found")
	}

	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(record.S3Key),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("download from s3: %w", err)
	}

	return result.Body, record.SizeBytes, nil
}

// Cleanup deletes backups past the retention window, removing the S3 object
// before the local record.
func (m *Manager) Cleanup(ctx context.Context, householdID int64) error {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	retention := m.cfg.RetentionDays
	m.mu.RUnlock()

	if client == nil {
		return nil
	}

	old, err := m.records.ListOlderThan(householdID, retention)
	if err != nil {
		return fmt.Errorf("list old backups: %w", err)
	}

	for _, b := range old {
		if _, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(b.S3Key),
		}); err != nil {
			m.logger.Warn("delete s3 object", "key", b.S3Key, "error", err)
			continue
		}
		if err := m.records.Delete(b.ID); err != nil {
			m.logger.Error("delete backup record", "id", b.ID, "error", err)
		}
	}

	return nil
}
