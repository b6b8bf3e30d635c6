package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

type S3Client struct {
	s3       *s3.S3
	bucket   string
	maxBytes int64
}

func NewS3Client(region, bucket string, maxBytes int64) (*S3Client, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, err
	}

	return &S3Client{
		s3:       s3.New(sess),
		bucket:   bucket,
		maxBytes: maxBytes,
	}, nil
}

func (c *S3Client) UploadFile(ctx context.Context, file *File, path string) (string, error) {
	// 图片不超过上限，整体读入内存以满足 PutObject 对 ReadSeeker 的要求
	buffer, err := io.ReadAll(LimitBody(file, c.maxBytes))
	if err != nil {
		return "", err
	}

	_, err = c.s3.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(path),
		Body:          bytes.NewReader(buffer),
		ContentLength: aws.Int64(int64(len(buffer))),
		ContentType:   aws.String(file.ContentType),
	})
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", c.bucket, path), nil
}
