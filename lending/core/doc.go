// Package core holds the borrow domain of the lending service: the loan status sum type,
// the loan record, the lending policy, list queries, statistics, and the domain errors.
//
// Nothing in here performs I/O. Storage lives in lending/loanstore and the workflow
// in the feature packages under lending/features.
package core
