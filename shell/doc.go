// Package shell holds small building blocks shared by the inventory and lending services:
// pagination, a truncating clock, retry with exponential backoff, the observability
// interfaces, and the helpers that instrument command handlers.
package shell
