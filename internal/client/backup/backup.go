// Package backup uploads snapshots of the local SQLite store to an
// S3-compatible bucket.
package backup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/farmadvisor/internal/client/config"
	"github.com/dmitrijs2005/farmadvisor/internal/logging"
)

var (
	ErrDisabled      = errors.New("backup bucket is not configured")
	ErrNotPersistent = errors.New("local store is in memory, nothing to back up")
)

// Uploader is the part of the S3 client used for backups.
type Uploader interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Test seams around the SDK constructors.
var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig
	newS3Uploader        = func(cfg aws.Config, optFns ...func(*s3.Options)) Uploader {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// Result describes an uploaded snapshot.
type Result struct {
	Bucket string
	Key    string
	Size   int64
}

type Service struct {
	cfg      config.BackupConfig
	db       *sql.DB
	log      logging.Logger
	now      func() time.Time
	uploader Uploader
}

// New returns a backup service for db. db may be nil when the store runs in
// memory; Run then reports ErrNotPersistent.
func New(cfg config.BackupConfig, db *sql.DB, log logging.Logger, now func() time.Time) *Service {
	if log == nil {
		log = logging.Nop()
	}
	if now == nil {
		now = time.Now
	}
	return &Service{cfg: cfg, db: db, log: log.With("module", "backup"), now: now}
}

func (s *Service) Enabled() bool {
	return s.cfg.Enabled() && s.db != nil
}

func (s *Service) client(ctx context.Context) (Uploader, error) {
	if s.uploader != nil {
		return s.uploader, nil
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(s.cfg.Region)}
	if s.cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.cfg.AccessKey, s.cfg.SecretKey, ""),
		))
	}
	cfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	s.uploader = newS3Uploader(cfg, func(o *s3.Options) {
		if s.cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(s.cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return s.uploader, nil
}

// Key names the object for a snapshot taken at t.
func (s *Service) Key(t time.Time) string {
	return s.cfg.Prefix + "farmadvisor-" + t.UTC().Format("20060102T150405Z") + ".db"
}

// Run writes a consistent copy of the database with VACUUM INTO and uploads it.
func (s *Service) Run(ctx context.Context) (Result, error) {
	if !s.cfg.Enabled() {
		return Result{}, ErrDisabled
	}
	if s.db == nil {
		return Result{}, ErrNotPersistent
	}

	dir, err := os.MkdirTemp("", "farmadvisor-backup-")
	if err != nil {
		return Result{}, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "snapshot.db")
	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", path); err != nil {
		return Result{}, fmt.Errorf("failed to snapshot database: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Result{}, fmt.Errorf("failed to stat snapshot: %w", err)
	}

	up, err := s.client(ctx)
	if err != nil {
		return Result{}, err
	}

	res := Result{Bucket: s.cfg.Bucket, Key: s.Key(s.now()), Size: info.Size()}
	_, err = up.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(res.Bucket),
		Key:           aws.String(res.Key),
		Body:          f,
		ContentLength: aws.Int64(res.Size),
		ContentType:   aws.String("application/vnd.sqlite3"),
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to upload %s: %w", res.Key, err)
	}

	s.log.Info(ctx, "backup uploaded", "bucket", res.Bucket, "key", res.Key, "size", res.Size)
	return res, nil
}
