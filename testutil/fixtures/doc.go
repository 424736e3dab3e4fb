// Package fixtures builds test data for books and loans and arranges it in a database.
package fixtures
