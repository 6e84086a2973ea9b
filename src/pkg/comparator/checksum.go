package comparator

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"os"

	"github.com/gh-nvat/vdiffchk/src/pkg/models"
)

// Checksum compares images byte for byte. Any difference is above threshold and no diff image is written.
type Checksum struct{}

var _ Comparator = (*Checksum)(nil)

func NewChecksum() *Checksum {
	return &Checksum{}
}

func (c *Checksum) Name() string {
	return models.COMPARATOR_TYPE_CHECKSUM
}

func (c *Checksum) Compare(ctx context.Context, buildPath, approvedPath, _ string) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Equal, invocationError(c, buildPath, err)
	}
	buildSum, err := sum(buildPath)
	if err != nil {
		return Equal, invocationError(c, buildPath, err)
	}
	approvedSum, err := sum(approvedPath)
	if err != nil {
		return Equal, invocationError(c, buildPath, err)
	}
	if bytes.Equal(buildSum, approvedSum) {
		return Equal, nil
	}
	return AboveThreshold, nil
}

func sum(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return h.Sum(nil), nil
}
