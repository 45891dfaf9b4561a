// Package phpguard provides the command-line interface for phpguard. It wires
// subcommands (scan, snippet, archive, watch, baseline, etc.), resolves flags
// against the YAML config files, and renders results.
//
// Typical usage from a main package:
//
//	package main
//	import "github.com/phpguard/phpguard/cmd/phpguard"
//	func main() { phpguard.Execute() }
package phpguard
