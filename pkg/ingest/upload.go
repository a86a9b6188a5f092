package ingest

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/otherjamesbrown/confab/pkg/logging"

	cferrors "github.com/otherjamesbrown/confab/pkg/errors"
)

// Saver writes validated uploads into a scoped temporary directory. Write
// failures are retried exactly once before surfacing as ErrStorage.
type Saver struct {
	dir    string
	logger logging.Logger
}

// NewSaver creates a saver rooted at dir, creating it if needed.
func NewSaver(dir string, logger logging.Logger) (*Saver, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating upload dir: %v", cferrors.ErrStorage, err)
	}
	return &Saver{
		dir:    dir,
		logger: logger.With(logging.F("component", "upload_saver")),
	}, nil
}

// Dir returns the upload directory.
func (sv *Saver) Dir() string {
	return sv.dir
}

// Save writes the upload under its client-visible filename, which the
// dashboard later uses to recover the session id from the listing. The
// filename is flattened to its base to keep writes inside the scoped dir.
// Returns the stored path.
func (sv *Saver) Save(filename string, r io.Reader, limit int64) (string, error) {
	base := filepath.Base(filename)
	path := filepath.Join(sv.dir, base)

	// Buffer the payload so the retry sees the whole body. Uploads are
	// size-capped, so this stays small.
	var src io.Reader = r
	if limit > 0 {
		src = io.LimitReader(r, limit)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return "", fmt.Errorf("%w: reading upload body: %v", cferrors.ErrStorage, err)
	}

	if err := sv.write(path, data); err != nil {
		// Transient I/O gets one retry before surfacing.
		sv.logger.Warn("upload write failed, retrying once",
			logging.Err(err),
			logging.F("path", path))
		if err = sv.write(path, data); err != nil {
			return "", fmt.Errorf("%w: %v", cferrors.ErrStorage, err)
		}
	}
	return path, nil
}

// Path returns the stored path for a previously uploaded filename, checking
// that the file exists.
func (sv *Saver) Path(filename string) (string, error) {
	path := filepath.Join(sv.dir, filepath.Base(filename))
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: %s", cferrors.ErrStorage, filename)
	}
	return path, nil
}

// Remove deletes a stored upload. Missing files are not an error.
func (sv *Saver) Remove(filename string) error {
	path := filepath.Join(sv.dir, filepath.Base(filename))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: removing %s: %v", cferrors.ErrStorage, filename, err)
	}
	return nil
}

func (sv *Saver) write(path string, data []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}
