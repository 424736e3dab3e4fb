// Package borrowbook implements the Borrow use case.
//
// The reader's quota and duplicate checks run against the loan store before the inventory
// is touched. The inventory's conditional Reserve is the authoritative stock guard; the
// CheckAvailable call before it only saves a write when the shelf is obviously empty.
// When writing the loan fails after a successful Reserve, the reservation is released again.
package borrowbook
