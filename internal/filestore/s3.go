package filestore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	commons3 "github.com/xxxsen/common/s3"

	"github.com/lectern-ai/lectern/internal/config"
)

type s3Config struct {
	Endpoint  string `json:"endpoint"`
	SecretID  string `json:"secret_id"`
	SecretKey string `json:"secret_key"`
	Bucket    string `json:"bucket"`
	Region    string `json:"region"`
	Prefix    string `json:"prefix"`
	UseSSL    bool   `json:"use_ssl"`
}

type s3Store struct {
	client *commons3.S3Client
	prefix string
}

func init() {
	Register("s3", createS3Store)
}

func createS3Store(cfg config.StorageConfig) (Store, error) {
	sc := &s3Config{}
	if err := decodeConfig(cfg.Data, sc); err != nil {
		return nil, err
	}
	if sc.Endpoint == "" || sc.Bucket == "" || sc.SecretID == "" || sc.SecretKey == "" {
		return nil, fmt.Errorf("storage.data endpoint/bucket/secret_id/secret_key are required for s3")
	}
	if sc.Region == "" {
		sc.Region = "cn"
	}
	client, err := commons3.New(
		commons3.WithEndpoint(sc.Endpoint),
		commons3.WithSecret(sc.SecretID, sc.SecretKey),
		commons3.WithBucket(sc.Bucket),
		commons3.WithRegion(sc.Region),
		commons3.WithSSL(sc.UseSSL),
	)
	if err != nil {
		return nil, err
	}
	return &s3Store{client: client, prefix: strings.Trim(sc.Prefix, "/")}, nil
}

func (s *s3Store) objectKey(key string) string {
	key = strings.TrimPrefix(key, "/")
	if s.prefix != "" {
		return path.Join(s.prefix, key)
	}
	return key
}

func (s *s3Store) Save(ctx context.Context, key string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if _, err := s.client.Upload(ctx, s.objectKey(key), bytes.NewReader(data), int64(len(data))); err != nil {
		return err
	}
	return nil
}

func (s *s3Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	_ = ctx
	_ = key
	return nil, fmt.Errorf("s3 store does not support open; serve objects via the bucket URL")
}

func (s *s3Store) Delete(ctx context.Context, key string) error {
	_ = ctx
	_ = key
	return fmt.Errorf("s3 store does not support delete")
}
