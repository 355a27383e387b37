package s3infra

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"

	"github.com/notify-dapp/internal/config"
	"github.com/notify-dapp/internal/domain"
	"github.com/notify-dapp/internal/infrastructure/awscfg"
)

const payloadPrefix = "payloads/"

// objectAPI is the part of *s3.Client the publisher uses.
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// NewClient creates an S3 client. A LocalStack endpoint needs path-style addressing.
func NewClient(ctx context.Context, cfg *config.Config) (*s3.Client, error) {
	awsCfg, err := awscfg.Load(ctx, cfg, "")
	if err != nil {
		return nil, err
	}
	endpoint := awscfg.Endpoint(cfg)
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != nil {
			o.BaseEndpoint = endpoint
			o.UsePathStyle = true
		}
	}), nil
}

// Publisher stores payloads in a bucket under their own CID, so the pointer
// handed to the chain is verifiable against the stored bytes.
type Publisher struct {
	client objectAPI
	bucket string
}

func NewPublisher(client objectAPI, bucket string) *Publisher {
	return &Publisher{client: client, bucket: bucket}
}

// ContentID returns the CIDv1 (raw codec, sha2-256) of b.
func ContentID(b []byte) (string, error) {
	c, err := cid.NewPrefixV1(cid.Raw, mh.SHA2_256).Sum(b)
	if err != nil {
		return "", err
	}
	return c.String(), nil
}

func (p *Publisher) Publish(ctx context.Context, payload []byte) (string, error) {
	id, err := ContentID(payload)
	if err != nil {
		return "", fmt.Errorf("content id: %w: %v", domain.ErrPublish, err)
	}
	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(payloadPrefix + id),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("s3 put object: %w: %v", domain.ErrPublish, err)
	}
	return id, nil
}

// Fetch returns the payload stored under pointer.
func (p *Publisher) Fetch(ctx context.Context, pointer string) ([]byte, error) {
	if _, err := cid.Decode(pointer); err != nil {
		return nil, fmt.Errorf("pointer %q: %w", pointer, domain.ErrBadRequest)
	}
	out, err := p.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(payloadPrefix + pointer),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get object: %w", err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}
