// Package config reads the service settings from the environment and builds the database
// connections and the OpenTelemetry providers both binaries start with.
package config
