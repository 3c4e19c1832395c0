// Package all wires every built-in storage backend into the storage factory.
//
// It exists purely for side effects: a blank import runs each backend's init
// function, which registers its factory with the storage package. Importing
// this package makes the "csvfile", "sqlite", and "postgres" kinds available
// at runtime.
package all

import (
	_ "parkfacts/internal/storage/csvfile"
	_ "parkfacts/internal/storage/postgres"
	_ "parkfacts/internal/storage/sqlite"
)
