// Package main provides the entry point for the ballotresearch CLI.
//
// ballotresearch runs grounded research on ballot propositions and rewrites
// the redirect links in the answers into their final destination URLs.
//
// Usage:
//
//	ballotresearch resolve agent_output.txt
//	ballotresearch research --propositions 1,2
//	ballotresearch history
//
// See --help for all available options.
package main

// main is the entry point for ballotresearch.
func main() {
	Execute()
}
