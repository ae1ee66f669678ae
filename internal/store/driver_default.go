//go:build !sqlite_vec

package store

// modernc.org/sqlite is a pure-Go SQLite build with FTS5 compiled in; it is
// the default driver so anchoros runs without cgo. See driver_vec.go for the
// cgo alternative that loads the real sqlite-vec extension.
import _ "modernc.org/sqlite"

const driverName = "sqlite"
