package external

import (
	"bytes"
	"context"
	"fmt"
	"path"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/tessera-chain/tessera/pkg/log"
)

// S3Connection dumps state parts into an S3-compatible bucket. Credentials
// come from the default chain, i.e. the AWS_ACCESS_KEY_ID and
// AWS_SECRET_ACCESS_KEY environment variables.
type S3Connection struct {
	client *s3.Client
	bucket string
}

// NewS3Connection builds a client for bucket in region.
func NewS3Connection(ctx context.Context, bucket, region string) (*S3Connection, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return &S3Connection{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
	}, nil
}

func (c *S3Connection) PutStatePart(ctx context.Context, data []byte, shardID uint64, location string) error {
	_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &c.bucket,
		Key:    &location,
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to put state part to s3://%s/%s: %w", c.bucket, location, err)
	}
	log.WithShardID(shardID).Debug().
		Str("bucket", c.bucket).
		Str("location", location).
		Msg("Wrote a state part to S3")
	return nil
}

func (c *S3Connection) ListStateParts(ctx context.Context, shardID uint64, directory string) ([]string, error) {
	prefix := directory + "/"
	delimiter := "/"
	var names []string
	paginator := s3.NewListObjectsV2Paginator(c.client, &s3.ListObjectsV2Input{
		Bucket:    &c.bucket,
		Prefix:    &prefix,
		Delimiter: &delimiter,
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list s3://%s/%s: %w", c.bucket, prefix, err)
		}
		for _, object := range page.Contents {
			if object.Key != nil {
				names = append(names, path.Base(*object.Key))
			}
		}
	}
	return names, nil
}
