package scgenomisc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
	"github.com/klauspost/compress/gzip"
	"google.golang.org/api/iterator"
)

// IsGoogleStoragePath reports whether p points at a gs:// object.
func IsGoogleStoragePath(p string) bool {
	return strings.HasPrefix(p, "gs://")
}

// SplitGoogleStoragePath detects the bucket and the path to the actual file
func SplitGoogleStoragePath(p string) (bucket, object string, err error) {
	pathParts := strings.SplitN(strings.TrimPrefix(p, "gs://"), "/", 2)
	if len(pathParts) != 2 {
		return "", "", fmt.Errorf("Tried to split your google storage path into 2 parts, but got %d: %v", len(pathParts), pathParts)
	}

	return pathParts[0], pathParts[1], nil
}

// JoinPath joins elements onto a local or gs:// base path.
func JoinPath(base string, elem ...string) string {
	if IsGoogleStoragePath(base) {
		return "gs://" + path.Join(append([]string{strings.TrimPrefix(base, "gs://")}, elem...)...)
	}

	return filepath.Join(append([]string{base}, elem...)...)
}

// Opener reads and writes files that live either on the local filesystem or
// in Google Storage. The zero value handles local paths only.
type Opener struct {
	// Safe for concurrent use by multiple goroutines
	Client *storage.Client
}

// NewOpener initializes the Google Storage client only if any of the paths
// point to Google Storage.
func NewOpener(ctx context.Context, paths ...string) (*Opener, error) {
	o := &Opener{}
	for _, p := range paths {
		if !IsGoogleStoragePath(p) {
			continue
		}

		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, pfx.Err(err)
		}
		o.Client = client
		break
	}

	return o, nil
}

// Close releases the Google Storage client, if one was created.
func (o *Opener) Close() error {
	if o == nil || o.Client == nil {
		return nil
	}

	return o.Client.Close()
}

func (o *Opener) object(p string) (*storage.ObjectHandle, error) {
	if o == nil || o.Client == nil {
		return nil, fmt.Errorf("%s: no Google Storage client was initialized", p)
	}

	bucketName, pathName, err := SplitGoogleStoragePath(p)
	if err != nil {
		return nil, err
	}

	// Open the bucket with default credentials
	return o.Client.Bucket(bucketName).Object(pathName), nil
}

// Open returns a reader over the decompressed contents of p.
func (o *Opener) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	var rc io.ReadCloser

	if IsGoogleStoragePath(p) {
		handle, err := o.object(p)
		if err != nil {
			return nil, err
		}

		gsr, err := handle.NewReader(ctx)
		if err != nil {
			return nil, pfx.Err(fmt.Errorf("%s: %w", p, err))
		}
		rc = gsr
	} else {
		local, err := ExpandHome(p)
		if err != nil {
			return nil, err
		}

		f, err := os.Open(local)
		if err != nil {
			return nil, pfx.Err(err)
		}
		rc = f
	}

	return MaybeDecompressReadCloser(rc)
}

// Create opens p for writing, creating parent directories for local paths.
// Paths ending in .gz are gzip compressed. The file is only complete once
// Close returns without error.
func (o *Opener) Create(ctx context.Context, p string) (io.WriteCloser, error) {
	var wc io.WriteCloser

	if IsGoogleStoragePath(p) {
		handle, err := o.object(p)
		if err != nil {
			return nil, err
		}
		wc = handle.NewWriter(ctx)
	} else {
		local, err := ExpandHome(p)
		if err != nil {
			return nil, err
		}

		if dir := filepath.Dir(local); dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, pfx.Err(err)
			}
		}

		f, err := os.Create(local)
		if err != nil {
			return nil, pfx.Err(err)
		}
		wc = f
	}

	if strings.HasSuffix(p, ".gz") {
		return &gzipWriteCloser{Writer: gzip.NewWriter(wc), dst: wc}, nil
	}

	return wc, nil
}

// Exists reports whether p can be found. Errors other than "not found" are
// returned.
func (o *Opener) Exists(ctx context.Context, p string) (bool, error) {
	if IsGoogleStoragePath(p) {
		handle, err := o.object(p)
		if err != nil {
			return false, err
		}

		if _, err := handle.Attrs(ctx); errors.Is(err, storage.ErrObjectNotExist) {
			return false, nil
		} else if err != nil {
			return false, pfx.Err(fmt.Errorf("%s: %w", p, err))
		}

		return true, nil
	}

	local, err := ExpandHome(p)
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(local); os.IsNotExist(err) {
		return false, nil
	} else if err != nil {
		return false, pfx.Err(err)
	}

	return true, nil
}

// List returns the sorted base names of the files directly inside the
// directory (or gs:// prefix) dir.
func (o *Opener) List(ctx context.Context, dir string) ([]string, error) {
	if IsGoogleStoragePath(dir) {
		if o == nil || o.Client == nil {
			return nil, fmt.Errorf("%s: no Google Storage client was initialized", dir)
		}
		return ListFromGoogleStorage(ctx, dir, o.Client)
	}

	local, err := ExpandHome(dir)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(local)
	if err != nil {
		return nil, pfx.Err(err)
	}

	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		out = append(out, entry.Name())
	}
	sort.Strings(out)

	return out, nil
}

// ListFromGoogleStorage lists the objects directly beneath a gs:// prefix,
// returning their base names.
func ListFromGoogleStorage(ctx context.Context, dir string, client *storage.Client) ([]string, error) {
	bucketName, prefix, err := SplitGoogleStoragePath(strings.TrimSuffix(dir, "/") + "/")
	if err != nil {
		return nil, err
	}

	it := client.Bucket(bucketName).Objects(ctx, &storage.Query{Prefix: prefix, Delimiter: "/"})

	out := make([]string, 0)
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		} else if err != nil {
			return nil, pfx.Err(fmt.Errorf("%s: %w", dir, err))
		}

		// Synthetic "directory" entries only carry a Prefix
		if attrs.Name == "" {
			continue
		}

		out = append(out, strings.TrimPrefix(attrs.Name, prefix))
	}
	sort.Strings(out)

	return out, nil
}

type gzipWriteCloser struct {
	*gzip.Writer
	dst io.WriteCloser
}

func (g *gzipWriteCloser) Close() error {
	if err := g.Writer.Close(); err != nil {
		g.dst.Close()
		return err
	}

	return g.dst.Close()
}
