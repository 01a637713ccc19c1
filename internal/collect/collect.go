// Package collect loads statement files for replay.
package collect

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pgindex/pgindex/internal/errs"
)

// DefaultExtension selects statement files when no extension is given.
const DefaultExtension = ".sql"

// File is one statement file. Path doubles as the replay label.
type File struct {
	Path    string `json:"path"`
	Content string `json:"-"`
}

// Collect walks root depth-first and returns every regular file whose
// extension matches ext, in lexical order within each directory. Symlinks,
// sockets and other non-regular entries are skipped. Either the full set is
// returned or an error; a partial result is never returned.
func Collect(root, ext string) ([]File, error) {
	if ext == "" {
		ext = DefaultExtension
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, errs.Filesystem("open "+root, err)
	}
	if !info.IsDir() {
		return nil, errs.Filesystem("open "+root, &os.PathError{Op: "readdir", Path: root, Err: os.ErrInvalid})
	}

	var files []File
	if err := walk(root, ext, &files); err != nil {
		return nil, err
	}
	return files, nil
}

func walk(dir, ext string, files *[]File) error {
	// os.ReadDir sorts by name
	entries, err := os.ReadDir(dir)
	if err != nil {
		return errs.Filesystem("list "+dir, err)
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		switch {
		case entry.IsDir():
			if err := walk(path, ext, files); err != nil {
				return err
			}
		case entry.Type().IsRegular():
			if !strings.EqualFold(filepath.Ext(entry.Name()), ext) {
				continue
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return errs.Filesystem("read "+path, err)
			}
			*files = append(*files, File{Path: path, Content: string(data)})
		}
	}
	return nil
}
