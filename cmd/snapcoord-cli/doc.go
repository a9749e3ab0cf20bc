// Package main provides the entry point for snapcoord-cli.
//
// The CLI speaks the same frames as the guest agent and the host, and reads
// the server's HTTP status endpoint:
//
//	snapcoord-cli host start --all --correlation 7
//	snapcoord-cli agent request-all --wait 10s
//	snapcoord-cli agent proceed --target 0 --lun 0
//	snapcoord-cli host listen --count 3
//	snapcoord-cli status sessions -o json
package main
