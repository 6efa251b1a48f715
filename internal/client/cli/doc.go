// Package cli provides the interactive BookDrive command-line client.
//
// It wires configuration, the local session cache and the HTTP API client
// into a REPL whose commands are parsed with cobra. A background watcher
// probes the server and shows whether it is reachable in the prompt.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
