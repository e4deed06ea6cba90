// Package main provides a CLI for compiling querygen descriptor documents.
//
// The CLI supports:
//   - compile: Compile descriptor documents into dialect-specific SQL
//   - explain: Ask a live database for the query plan of compiled statements
//   - dialects: List the registered dialects and their capabilities
//   - config show: Print the effective configuration
//   - version: Print version information
//
// Usage:
//
//	querygen [flags] <command>
package main

func main() {
	Execute()
}
