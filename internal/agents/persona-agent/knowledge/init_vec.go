//go:build sqlite_vec && cgo

package knowledge

import (
	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
)

func init() {
	// Registers vec_* functions on every new mattn/go-sqlite3 connection.
	vec.Auto()
}
