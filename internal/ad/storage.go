package ad

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/ovaphlow/pitchfork/service-avrex/pkg/utilities"
)

// URLPrefix is the server-relative path uploaded images are served under.
const URLPrefix = "/static/uploads"

var ErrUnsupportedImage = errors.New("unsupported image type")

// imageExts are the file extensions Save accepts.
var imageExts = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".webp": {},
}

// IsImageName reports whether name carries an accepted image extension.
func IsImageName(name string) bool {
	_, ok := imageExts[strings.ToLower(path.Ext(SafeName(name)))]
	return ok
}

// Storage keeps ad images in a directory on the local filesystem.
type Storage struct {
	dir   string
	newID func() string
}

func NewStorage(dir string) *Storage {
	return &Storage{dir: dir, newID: utilities.NewKSUID}
}

// Dir is the directory images are written to.
func (s *Storage) Dir() string { return s.dir }

// SafeName reduces an uploaded filename to a single path element made of
// ASCII letters, digits, '.', '-' and '_'.
func SafeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	var b strings.Builder
	for _, r := range name {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)), r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune('_')
		}
	}
	out := strings.TrimLeft(b.String(), "._")
	if out == "" {
		return "upload"
	}
	return out
}

// Save writes r under a unique name derived from filename and returns the
// server-relative URL of the stored image. Only image extensions are accepted.
func (s *Storage) Save(filename string, r io.Reader) (string, error) {
	if !IsImageName(filename) {
		return "", ErrUnsupportedImage
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	name := s.newID() + "_" + SafeName(filename)
	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close upload: %w", err)
	}
	return URLPrefix + "/" + name, nil
}

// PathFor maps a stored image URL back to its file. Only URLs produced by Save
// resolve.
func (s *Storage) PathFor(url string) (string, bool) {
	rest, ok := strings.CutPrefix(url, URLPrefix+"/")
	if !ok || rest == "" || strings.ContainsAny(rest, "/\\") || rest == ".." {
		return "", false
	}
	return filepath.Join(s.dir, rest), true
}

// Remove deletes the file behind url.
func (s *Storage) Remove(url string) error {
	p, ok := s.PathFor(url)
	if !ok {
		return fmt.Errorf("not a stored upload: %q", url)
	}
	return os.Remove(p)
}
