// Package renewloan implements the Renew use case.
//
// The new due time is written with an optimistic guard on the renew count the handler
// observed, so two concurrent renewals of the same loan cannot both succeed.
package renewloan
