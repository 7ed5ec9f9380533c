// Package security holds release tooling for goSession.
//
// cmd/perf-regression gates the session read and login benchmarks against a
// stored baseline.
//
// # What this package must NOT do
//
//   - Be imported by library code.
package security
