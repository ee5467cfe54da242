package catalog

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3 persists records to an object store, one JSON document per record.
type S3 struct {
	Client *minio.Client
	Bucket string
	Prefix string
}

func NewS3(endpoint, region, bucket, prefix, accessKey, secretKey, sessionToken string, useSSL, forcePathStyle, insecure bool) (*S3, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(accessKey, secretKey, sessionToken),
		Secure:    useSSL,
		Region:    region,
		Transport: transport,
		BucketLookup: func() minio.BucketLookupType {
			if forcePathStyle {
				return minio.BucketLookupPath
			}
			return minio.BucketLookupDNS
		}(),
	})
	if err != nil {
		return nil, err
	}
	return &S3{Client: client, Bucket: bucket, Prefix: prefix}, nil
}

func (s *S3) AddRecord(ctx context.Context, product *ProductRecord, extraction ExtractionRecord) (uint64, error) {
	// No shared counter across processes; a timestamp id keeps object
	// keys unique and ordered.
	id := uint64(time.Now().UnixNano())
	if product != nil {
		product.ID = id
	}
	payload, err := json.MarshalIndent(record{Product: product, Extraction: extraction}, "", "  ")
	if err != nil {
		return 0, err
	}
	key := path.Join(s.Prefix, fmt.Sprintf("%d%s", id, recordSuffix))
	opts := minio.PutObjectOptions{ContentType: "application/json", UserMetadata: map[string]string{"dpi-record": "true"}}
	_, err = s.Client.PutObject(ctx, s.Bucket, key, bytes.NewReader(payload), int64(len(payload)), opts)
	return id, err
}
