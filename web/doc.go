// Package web holds what both HTTP surfaces share: the response envelope, the mapping
// from domain errors to status codes and envelope codes, pagination, middleware and
// the echo server setup.
package web
