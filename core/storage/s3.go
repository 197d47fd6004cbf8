package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	appconfig "healthtrack-api/core/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Archive writes raw provider payloads to S3 so synced data can be
// re-validated or re-imported later without calling the provider again.
type Archive struct {
	client *s3.Client
	bucket string
}

func NewArchive(cfg appconfig.ArchiveConfig) *Archive {
	creds := credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")

	client := s3.New(s3.Options{
		Region:      cfg.Region,
		Credentials: aws.NewCredentialsCache(creds),
	})

	return &Archive{
		client: client,
		bucket: cfg.Bucket,
	}
}

// ArchiveRaw stores one day's payload under raw/{provider}/{user}/{date}.json.
// Re-archiving the same day overwrites the previous object.
func (a *Archive) ArchiveRaw(ctx context.Context, provider string, userID uuid.UUID, day time.Time, payload []byte) error {
	key := fmt.Sprintf("raw/%s/%s/%s.json", provider, userID, day.Format("2006-01-02"))

	input := &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	}

	_, err := a.client.PutObject(ctx, input)
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}

	return nil
}
