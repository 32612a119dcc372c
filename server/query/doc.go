// Package query implements a GameSpy style UDP query responder.
//
// The package exposes a provider interface that allows the main server
// implementation to describe its current state. The query package handles the
// UDP wiring and responds to external query requests using the data supplied
// by that provider.
package query
