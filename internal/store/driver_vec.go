//go:build sqlite_vec && cgo

package store

import (
	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

const driverName = "sqlite3"

func init() {
	// Registers sqlite-vec as an auto-loadable extension with mattn's cgo
	// driver, giving the reserved molecule embedding column a real ANN index
	// to sit behind when this build tag is enabled.
	vec.Auto()
}
