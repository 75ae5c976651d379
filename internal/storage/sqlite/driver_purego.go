//go:build !cgo_sqlite

package sqlite

// Pure Go driver, no C toolchain required. Default build.

import (
	_ "modernc.org/sqlite"
)

const DriverName = "sqlite"
