// Package static maps request targets to files under a root directory.
package static

import (
	"errors"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var ErrNotFound = errors.New("static: file not found")

// DefaultContentType is used for any suffix missing from the table.
const DefaultContentType = "application/octet-stream"

var contentTypes = map[string]string{
	"txt":  "text/plain",
	"html": "text/html",
	"js":   "application/javascript",
	"css":  "text/css",
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"xml":  "text/xml",
}

// ContentType returns the MIME type for name's suffix.
func ContentType(name string) string {
	ext := strings.TrimPrefix(path.Ext(name), ".")
	if ct, ok := contentTypes[strings.ToLower(ext)]; ok {
		return ct
	}
	return DefaultContentType
}

// File is a resolved static resource.
type File struct {
	Path        string
	ContentType string
	Data        []byte
}

type Resolver struct {
	Root string
}

// Resolve loads the file target names. The target may carry a query string.
// Targets that leave the root, directories and missing files are ErrNotFound.
// Any ".." segment is refused, even one that would stay inside the root, so
// "/a/../b.html" is ErrNotFound rather than "/b.html".
func (r *Resolver) Resolve(target string) (*File, error) {
	p := target
	if i := strings.LastIndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	if p == "/" || p == "" {
		p = "/index.html"
	}
	if !strings.HasPrefix(p, "/") || hasDotDot(p) {
		return nil, ErrNotFound
	}

	name, err := r.join(p)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(name)
	if err != nil || !info.Mode().IsRegular() {
		return nil, ErrNotFound
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, ErrNotFound
	}
	return &File{
		Path:        name,
		ContentType: ContentType(name),
		Data:        data,
	}, nil
}

// join places the slash separated p under the root and checks the result
// still lies inside it.
func (r *Resolver) join(p string) (string, error) {
	root, err := filepath.Abs(r.Root)
	if err != nil {
		return "", ErrNotFound
	}
	name := filepath.Join(root, filepath.FromSlash(path.Clean(p)))
	rel, err := filepath.Rel(root, name)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrNotFound
	}
	return name, nil
}

// Within reports whether the slash separated p stays inside root once joined.
func Within(root, p string) (string, bool) {
	if hasDotDot(p) {
		return "", false
	}
	r := &Resolver{Root: root}
	name, err := r.join("/" + strings.TrimPrefix(p, "/"))
	return name, err == nil
}

func hasDotDot(p string) bool {
	if !strings.Contains(p, "..") {
		return false
	}
	for _, seg := range strings.FieldsFunc(p, isSlashRune) {
		if seg == ".." {
			return true
		}
	}
	return false
}

func isSlashRune(r rune) bool { return r == '/' || r == '\\' }
