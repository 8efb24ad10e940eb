package fetcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Source is one remote dataset and the local file it is mirrored to.
type Source struct {
	Name string
	URL  string
	Path string
}

// Replace deletes any previous local copy of src, downloads a fresh one and
// writes the body verbatim to src.Path. The body is staged in a sibling
// ".part" file so a failed download never leaves a truncated dataset behind.
func Replace(ctx context.Context, f Fetcher, src Source) (int64, error) {
	log := zap.L().With(zap.String("component", "fetcher"), zap.String("source", src.Name))

	if err := os.Remove(src.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return 0, eris.Wrapf(err, "fetcher: remove stale %s", src.Path)
	}
	if err := os.MkdirAll(filepath.Dir(src.Path), 0o755); err != nil {
		return 0, eris.Wrapf(err, "fetcher: create data dir for %s", src.Name)
	}

	log.Info("retrieving source", zap.String("url", src.URL))

	part := src.Path + ".part"
	n, err := f.DownloadToFile(ctx, src.URL, part)
	if err != nil {
		_ = os.Remove(part)
		return 0, eris.Wrapf(err, "fetcher: retrieve %s", src.Name)
	}
	if err := os.Rename(part, src.Path); err != nil {
		_ = os.Remove(part)
		return 0, eris.Wrapf(err, "fetcher: finalize %s", src.Name)
	}

	log.Info("source saved", zap.String("path", src.Path), zap.Int64("bytes", n))
	return n, nil
}
