// Package inventory provides the core types of the book inventory ledger.
//
// A book owns two counters: TotalStock (copies owned) and AvailableStock (copies not lent).
// The ledger only ever changes them through conditional single-row mutations, so the invariant
//
//	0 <= AvailableStock <= TotalStock
//
// holds at all times, no matter how many service instances mutate the same book concurrently.
//
// Key types:
//   - Book: catalog entry including its stock counters
//   - Stock: the counters after a successful ledger mutation
//   - BookQuery / BookPage: paginated catalog listing
//
// The SQL implementation lives in the sqlengine subpackage.
package inventory
