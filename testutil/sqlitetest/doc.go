// Package sqlitetest opens throwaway file-backed SQLite databases with the production schema applied.
//
// The databases use the pure Go modernc.org/sqlite driver, so SQL engine tests
// run without a database server and without cgo.
package sqlitetest
