package files

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"casedesk/internal/platform/idgen"
)

// ObjectPutter is the slice of *s3.Client the transport needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3 uploads objects to a bucket. References look like "s3://bucket/key".
type S3 struct {
	client ObjectPutter
	bucket string
	prefix string
	ids    idgen.Generator
}

func NewS3(client ObjectPutter, bucket, prefix string) *S3 {
	return &S3{client: client, bucket: bucket, prefix: prefix, ids: idgen.NanoID{Size: 12}}
}

// NewS3FromEnv builds an S3 transport from the default AWS credential chain.
func NewS3FromEnv(ctx context.Context, bucket, prefix string) (*S3, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return NewS3(s3.NewFromConfig(cfg), bucket, prefix), nil
}

func (t *S3) Put(ctx context.Context, obj Object) (string, error) {
	key := objectKey(t.prefix, obj.CaseID, t.ids.NewID(), obj.Name)
	input := &s3.PutObjectInput{
		Bucket: aws.String(t.bucket),
		Key:    aws.String(key),
		Body:   obj.Body,
	}
	if obj.ContentType != "" {
		input.ContentType = aws.String(obj.ContentType)
	}
	if obj.Size > 0 {
		input.ContentLength = aws.Int64(obj.Size)
	}
	if _, err := t.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return "s3://" + t.bucket + "/" + key, nil
}
