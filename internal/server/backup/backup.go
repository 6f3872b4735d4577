// Package backup uploads a snapshot of the credential table to S3-compatible
// object storage. Private keys stay sealed in the snapshot.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/okhaimie-dev/PallyApp/internal/logging"
	"github.com/okhaimie-dev/PallyApp/internal/netx"
	"github.com/okhaimie-dev/PallyApp/internal/server/models"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}

	uploadToPresignedURL = netx.UploadToPresignedURL
)

var ErrNotConfigured = errors.New("backup bucket not configured")

const presignExpiry = 15 * time.Minute

type Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// Source lists stored credentials; limit <= 0 means all of them.
type Source interface {
	List(ctx context.Context, limit int) ([]models.Credential, error)
}

// Record is one wallet row as written to the snapshot.
type Record struct {
	Email               string    `json:"email"`
	EncryptedPrivateKey string    `json:"encrypted_private_key"`
	PublicKey           string    `json:"public_key"`
	AccountAddress      string    `json:"account_address"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

type Snapshot struct {
	TakenAt time.Time `json:"taken_at"`
	Count   int       `json:"count"`
	Wallets []Record  `json:"wallets"`
}

type Service struct {
	cfg    Config
	source Source
	logger logging.Logger
	now    func() time.Time
}

func NewService(cfg Config, source Source, logger logging.Logger) *Service {
	return &Service{
		cfg:    cfg,
		source: source,
		logger: logger.With("module", "backup"),
		now:    time.Now,
	}
}

// Run takes a snapshot and uploads it, returning the object key.
func (s *Service) Run(ctx context.Context) (string, error) {
	if s.cfg.Bucket == "" {
		return "", ErrNotConfigured
	}

	rows, err := s.source.List(ctx, 0)
	if err != nil {
		return "", fmt.Errorf("list credentials: %w", err)
	}

	snap := Snapshot{TakenAt: s.now().UTC(), Count: len(rows), Wallets: make([]Record, 0, len(rows))}
	for _, c := range rows {
		snap.Wallets = append(snap.Wallets, Record{
			Email:               c.Email,
			EncryptedPrivateKey: c.EncryptedPrivateKey,
			PublicKey:           c.PublicKey,
			AccountAddress:      c.AccountAddress,
			CreatedAt:           c.CreatedAt,
			UpdatedAt:           c.UpdatedAt,
		})
	}

	body, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	key, url, err := s.presignedPutURL(ctx, snap.TakenAt)
	if err != nil {
		return "", fmt.Errorf("presign: %w", err)
	}

	if err := uploadToPresignedURL(ctx, url, "application/json", body); err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}

	s.logger.Info(ctx, "backup uploaded", "bucket", s.cfg.Bucket, "key", key, "wallets", snap.Count)
	return key, nil
}

func storageKey(t time.Time) string {
	return fmt.Sprintf("backups/%d/%02d/%02d/%s.json", t.Year(), t.Month(), t.Day(), uuid.New())
}

func (s *Service) getPresignClient(ctx context.Context) (*s3.PresignClient, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(s.cfg.Region)}
	if s.cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.cfg.AccessKey, s.cfg.SecretKey, "")))
	}

	cfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if s.cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(s.cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3PresignClient(client), nil
}

func (s *Service) presignedPutURL(ctx context.Context, t time.Time) (string, string, error) {
	pc, err := s.getPresignClient(ctx)
	if err != nil {
		return "", "", err
	}

	bucket := s.cfg.Bucket
	key := storageKey(t)

	req, err := presignPutObject(pc, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", "", err
	}

	return key, req.URL, nil
}
