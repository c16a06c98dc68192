package blob

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/klauspost/compress/gzip"
	"gocloud.dev/blob/memblob"
)

func TestObjectOpen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem := memblob.OpenBucket(nil)
	b := FromBucket("mem://test", mem)
	defer b.Close()

	if err := mem.WriteAll(ctx, "raw/olist_sellers_dataset.csv", []byte("seller_id\ns1\n"), nil); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	_, _ = zw.Write([]byte("seller_id\ns2\n"))
	_ = zw.Close()
	if err := mem.WriteAll(ctx, "raw/olist_sellers_dataset.csv.gz", gz.Bytes(), nil); err != nil {
		t.Fatalf("WriteAll gz: %v", err)
	}

	tests := []struct {
		name    string
		key     string
		want    string
		wantErr bool
	}{
		{name: "plain", key: "raw/olist_sellers_dataset.csv", want: "seller_id\ns1\n"},
		{name: "gzip", key: "raw/olist_sellers_dataset.csv.gz", want: "seller_id\ns2\n"},
		{name: "missing", key: "raw/none.csv", wantErr: true},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			rc, err := b.Source(tc.key).Open(ctx)
			if tc.wantErr {
				if err == nil {
					rc.Close()
					t.Fatalf("expected error for %s", tc.key)
				}
				return
			}
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer rc.Close()
			got, err := io.ReadAll(rc)
			if err != nil {
				t.Fatalf("ReadAll: %v", err)
			}
			if string(got) != tc.want {
				t.Fatalf("content = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestObjectOpen_CanceledContext(t *testing.T) {
	t.Parallel()

	b := FromBucket("mem://test", memblob.OpenBucket(nil))
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := b.Source("any.csv").Open(ctx); err != context.Canceled {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestBucketUpload(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem := memblob.OpenBucket(nil)
	b := FromBucket("mem://test", mem)
	defer b.Close()

	if err := b.Upload(ctx, "exports/rows.parquet", bytes.NewReader([]byte("PAR1"))); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	got, err := mem.ReadAll(ctx, "exports/rows.parquet")
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "PAR1" {
		t.Fatalf("content = %q", got)
	}
}
