// Package client provides the `synthlog session` command-line client.
//
// The CLI talks to the synthlog HTTP API to inspect and edit session logs
// from a terminal.
//
// # Address configuration
//
// The HTTP base URL is discovered by the application that embeds the
// commands via a BaseURLFunc. The standalone binary reads SYNTHLOG_HTTP and
// defaults to http://127.0.0.1:8080.
//
// Usage
//
//	synthlog session new
//	synthlog session list
//
//	synthlog session append -s abc123 --data '{"query":"q","answer":"a"}'
//	synthlog session append -s abc123 --file records.jsonl
//	cat records.jsonl | synthlog session append -s abc123 --file -
//
//	synthlog session page -s abc123 --page 2 --page-size 20
//	synthlog session count -s abc123
//
//	synthlog session update -s abc123 --id 0192... --data '{"answer":"fixed"}'
//	synthlog session search -s abc123 --filter 'json.isError' --limit 5
//	synthlog session export -s abc123 -o abc123.jsonl
//
//	# Reconcile the index after a crash between chunk and index writes
//	synthlog session repair -s abc123
//
//	# Delete every record (requires --confirm)
//	synthlog session clear -s abc123 --confirm
package client
