// Package returnbook implements the Return use case.
//
// Copies go back to the shelf first. The loan is then closed with a conditional update
// that only matches outstanding loans; when a concurrent return wins that race the
// released copies are reserved again.
package returnbook
