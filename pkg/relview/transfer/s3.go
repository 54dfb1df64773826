package transfer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Cnily03/release-viewer/pkg/relview/logging"
)

// s3 mirrors release files into object storage, addressed as
// s3://bucket/prefix.
type s3 struct {
	client *minio.Client
	bucket string
	prefix string
}

func newS3(spec string, opts S3Options) (*s3, error) {
	rest := strings.TrimPrefix(spec, "s3://")
	bucket, prefix, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return nil, fmt.Errorf("missing bucket in %q", spec)
	}
	if opts.Endpoint == "" {
		return nil, errors.New("s3 target requires an endpoint")
	}

	endpoint := strings.TrimPrefix(opts.Endpoint, "https://")
	endpoint = strings.TrimPrefix(endpoint, "http://")

	client, err := minio.New(endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure:    opts.UseSSL,
		Region:    opts.Region,
		Transport: http.DefaultTransport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}
	return &s3{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}, nil
}

// key maps a target-relative path to its object name.
func (s *s3) key(rel string) string {
	if s.prefix == "" {
		return rel
	}
	return path.Join(s.prefix, rel)
}

// put uploads one local file.
func (s *s3) put(ctx context.Context, src, rel string) error {
	if _, err := s.client.FPutObject(ctx, s.bucket, s.key(rel), src, minio.PutObjectOptions{}); err != nil {
		return fmt.Errorf("failed to upload %s: %w", rel, err)
	}
	return nil
}

// list returns the target-relative names of every object under the
// prefix.
func (s *s3) list(ctx context.Context) (map[string]struct{}, error) {
	listPrefix := s.prefix
	if listPrefix != "" {
		listPrefix += "/"
	}
	have := make(map[string]struct{})
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    listPrefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", obj.Err)
		}
		have[strings.TrimPrefix(obj.Key, listPrefix)] = struct{}{}
	}
	return have, nil
}

func (s *s3) Copy(ctx context.Context, src string) error {
	files, err := walkFiles(src)
	if err != nil {
		return err
	}
	for rel := range files {
		if err := s.put(ctx, filepath.Join(src, filepath.FromSlash(rel)), rel); err != nil {
			return err
		}
	}
	return nil
}

func (s *s3) Move(ctx context.Context, src, rel string) error {
	if err := s.put(ctx, src, rel); err != nil {
		return err
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("failed to remove source %s: %w", src, err)
	}
	return nil
}

func (s *s3) Mirror(ctx context.Context, src string) error {
	want, err := walkFiles(src)
	if err != nil {
		return err
	}
	have, err := s.list(ctx)
	if err != nil {
		return err
	}

	for rel := range have {
		if _, ok := want[rel]; ok {
			continue
		}
		logging.Get("transfer").Debug("removing extraneous object", "key", s.key(rel))
		if err := s.client.RemoveObject(ctx, s.bucket, s.key(rel), minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("failed to remove %s: %w", rel, err)
		}
	}
	return nil
}

func (s *s3) Exists(ctx context.Context, rel string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, s.key(rel), minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	return false, fmt.Errorf("failed to probe %s: %w", rel, err)
}
