// Package storage uploads export files to S3 compatible object storage.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gofrs/uuid"
	"github.com/minio/minio-go/v7"
	"golang.org/x/sync/errgroup"
)

type MinIO interface {
	FPutObject(ctx context.Context, bucketName, objectName string, filePath string, opts minio.PutObjectOptions) (info minio.UploadInfo, err error)
}

const defaultConcurrency = 4

var contentTypes = map[string]string{
	".csv":  "text/csv",
	".prom": "text/plain; version=0.0.4",
	".md":   "text/markdown",
}

type Uploader struct {
	mc          MinIO
	bucket      string
	prefix      string
	concurrency int

	// NewBackOff returns the retry policy of one upload.
	NewBackOff func() backoff.BackOff
}

func NewUploader(mc MinIO, bucket, prefix string) *Uploader {
	return &Uploader{
		mc:          mc,
		bucket:      bucket,
		prefix:      prefix,
		concurrency: defaultConcurrency,
		NewBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff(backoff.WithMaxElapsedTime(2 * time.Minute))
		},
	}
}

// NewRunID returns a random id grouping the files of one run.
func NewRunID() (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", fmt.Errorf("generate run id: %w", err)
	}
	return id.String(), nil
}

// Upload is one uploaded file.
type Upload struct {
	File   string
	Object string
	Size   int64
}

// UploadDir uploads every regular file directly inside dir to
// <prefix>/<runID>/<name>. Uploads run concurrently and are retried; the first
// failure cancels the rest.
func (u *Uploader) UploadDir(ctx context.Context, dir, runID string) ([]Upload, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read export dir: %w", err)
	}

	var uploads []Upload
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		uploads = append(uploads, Upload{
			File:   filepath.Join(dir, e.Name()),
			Object: path.Join(u.prefix, runID, e.Name()),
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.concurrency)
	for i := range uploads {
		up := &uploads[i]
		g.Go(func() error {
			info, err := u.put(gctx, up.File, up.Object)
			if err != nil {
				return fmt.Errorf("upload %s: %w", up.File, err)
			}
			up.Size = info.Size
			slog.Info("uploaded", "bucket", u.bucket, "object", up.Object, "size", info.Size)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(uploads, func(i, j int) bool { return uploads[i].Object < uploads[j].Object })
	return uploads, nil
}

func (u *Uploader) put(ctx context.Context, file, object string) (minio.UploadInfo, error) {
	opts := minio.PutObjectOptions{ContentType: contentTypes[filepath.Ext(file)]}

	var info minio.UploadInfo
	err := backoff.Retry(func() error {
		var err error
		info, err = u.mc.FPutObject(ctx, u.bucket, object, file, opts)
		if err != nil && ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		if err != nil {
			slog.Warn("upload failed, retrying", "object", object, "err", err)
		}
		return err
	}, backoff.WithContext(u.NewBackOff(), ctx))
	return info, err
}
