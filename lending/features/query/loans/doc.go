// Package loans answers the read side of the lending service: single loans, filtered
// listings, per-user statistics and the outstanding count.
//
// Every query carries the caller. Readers see their own records, administrators see all.
package loans
