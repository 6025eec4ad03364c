// Package internal contains the implementation packages of htmt.
//
// # Package Organization
//
// The packages are organized by functional domain:
//
//   - markup: position-tracking HTML node tree that re-renders byte for byte
//   - substitute: placeholder scanning and usage substitution
//   - element: element store and whole-store reference resolution
//   - page: page compilation against resolved elements
//   - diagnostics: non-fatal findings and the sinks that receive them
//   - errors: structured and located error types
//   - manifest: manifest decoding
//   - assets: discreet and intermixed asset copying
//   - site: manifest-driven build with a bounded page worker pool
//   - monitoring: Prometheus build metrics
//   - watcher: debounced file watching for rebuilds
//   - config, logging, version: ambient support for the CLI
//
// # Data Flow
//
// The site generator reads the manifest and registers every element with an
// element.Store. The store resolves all definitions at once, expanding
// nested usages and rejecting reference cycles, before any page is read.
// Each page is then compiled independently against the resolved
// definitions; diagnostics flow to a diagnostics.Sink and fatal failures
// come back as located errors.
package internal
