// Package storage holds the domain.PhotoStore backends: a local directory and
// an S3-compatible bucket.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Disk stores photos as files in a single directory.
type Disk struct {
	dir string
}

// NewDisk returns a Disk rooted at dir. The directory is created on first Save.
func NewDisk(dir string) *Disk {
	return &Disk{dir: dir}
}

// Dir returns the directory photos are written to.
func (d *Disk) Dir() string { return d.dir }

// Save writes r to <dir>/<name>. The bytes land in a temp file first and are
// renamed into place, so readers never observe a partial photo.
func (d *Disk) Save(ctx context.Context, name, _ string, _ int64, r io.Reader) error {
	if err := checkName(name); err != nil {
		return err
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}

	tmp, err := os.CreateTemp(d.dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, readerWithContext(ctx, r)); err != nil {
		tmp.Close()
		return fmt.Errorf("write photo: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close photo: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod photo: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(d.dir, name)); err != nil {
		return fmt.Errorf("move photo: %w", err)
	}
	return nil
}

// checkName rejects anything that is not a plain file name.
func checkName(name string) error {
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name {
		return fmt.Errorf("invalid photo name %q", name)
	}
	return nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// readerWithContext stops a copy once ctx is cancelled.
func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return ctxReader{ctx: ctx, r: r}
}
