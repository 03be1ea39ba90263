package objstore

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	pkgerrors "github.com/pkg/errors"
)

type s3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type S3Store struct {
	client s3API
}

// NewS3Store uses the default AWS credential chain.
func NewS3Store(ctx context.Context, region string) (*S3Store, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "load aws config")
	}
	return &S3Store{client: s3.NewFromConfig(cfg)}, nil
}

func (s *S3Store) Download(ctx context.Context, raw, dst string) error {
	bucket, key, err := ParseS3URL(raw)
	if err != nil {
		return err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return pkgerrors.Wrap(ErrNotFound, raw)
		}
		return pkgerrors.Wrapf(err, "get object %s", raw)
	}
	defer out.Body.Close()
	return writeFile(dst, out.Body)
}
