// Package downstream holds the HTTP clients the services use to reach each other.
//
// Every call runs under a per-call timeout and through a circuit breaker. Transport
// failures, timeouts and remote 5xx answers surface as ErrServiceUnavailable; business
// failures carried in the remote envelope come back as the typed errors of the
// inventory and identity packages.
package downstream
