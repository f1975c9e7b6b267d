package storage

import "strings"

// Open returns the store named by dsn: "sqlite:<path>" selects the SQLite
// catalog, anything else is a FileStore directory. The store is not
// initialized.
func Open(dsn string) (Store, error) {
	if path, ok := strings.CutPrefix(dsn, "sqlite:"); ok {
		return newSQLiteStore(path)
	}
	return NewFileStore(dsn), nil
}
