// Package blob implements datasource.Source on top of gocloud.dev/blob, so
// datasets can be read from s3://, gs://, file:// or mem:// buckets.
package blob

import (
	"context"
	"fmt"
	"io"

	gcblob "gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // file:// driver
	_ "gocloud.dev/blob/gcsblob"  // gs:// driver
	_ "gocloud.dev/blob/memblob"  // mem:// driver
	_ "gocloud.dev/blob/s3blob"   // s3:// driver

	"olistdw/internal/datasource"
)

// Bucket is an opened object-store location. It hands out one Source per key.
type Bucket struct {
	url    string
	bucket *gcblob.Bucket
}

// Open opens the bucket identified by a gocloud URL, e.g. "s3://olist?region=eu-west-1".
func Open(ctx context.Context, bucketURL string) (*Bucket, error) {
	b, err := gcblob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("open bucket %s: %w", bucketURL, err)
	}
	return FromBucket(bucketURL, b), nil
}

// FromBucket wraps an already opened gocloud bucket.
func FromBucket(name string, b *gcblob.Bucket) *Bucket {
	return &Bucket{url: name, bucket: b}
}

// Source returns a datasource.Source reading key from the bucket.
func (b *Bucket) Source(key string) datasource.Source {
	return &Object{bucket: b, key: key}
}

// Close releases the bucket.
func (b *Bucket) Close() error {
	if b == nil || b.bucket == nil {
		return nil
	}
	return b.bucket.Close()
}

// Object is a single key inside a Bucket.
type Object struct {
	bucket *Bucket
	key    string
}

// Open starts reading the object. Keys ending in ".gz" are gunzipped.
func (o *Object) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	r, err := o.bucket.bucket.NewReader(ctx, o.key, nil)
	if err != nil {
		return nil, fmt.Errorf("open %s/%s: %w", o.bucket.url, o.key, err)
	}
	rc, err := datasource.MaybeGunzip(o.key, r)
	if err != nil {
		return nil, fmt.Errorf("gunzip %s/%s: %w", o.bucket.url, o.key, err)
	}
	return rc, nil
}

// Upload writes r to key, replacing any existing object.
func (b *Bucket) Upload(ctx context.Context, key string, r io.Reader) error {
	w, err := b.bucket.NewWriter(ctx, key, nil)
	if err != nil {
		return fmt.Errorf("create writer for %s/%s: %w", b.url, key, err)
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("write %s/%s: %w", b.url, key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close writer for %s/%s: %w", b.url, key, err)
	}
	return nil
}
