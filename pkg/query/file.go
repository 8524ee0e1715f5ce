package query

import (
	"fmt"
	"io/fs"
	"os"
	"unicode/utf8"
)

// FromFile reads a SQL file and binds params to its placeholders. It is the
// run-time counterpart of the loader calls that sqlinline rewrites at build
// time.
func FromFile(path string, params ...any) (Query, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Query{}, fmt.Errorf("query: read %s: %w", path, err)
	}
	return fromBytes(path, data, params)
}

// FromFS is FromFile for an fs.FS such as embed.FS.
func FromFS(fsys fs.FS, path string, params ...any) (Query, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return Query{}, fmt.Errorf("query: read %s: %w", path, err)
	}
	return fromBytes(path, data, params)
}

func fromBytes(path string, data []byte, params []any) (Query, error) {
	if !utf8.Valid(data) {
		return Query{}, fmt.Errorf("query: %s is not valid UTF-8", path)
	}
	return Raw(string(data), params...), nil
}
