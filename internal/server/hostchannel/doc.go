// Package hostchannel connects the coordinator to the host control queue.
//
// Inbound, EventHandler decodes lifecycle events (start, complete and their
// all-disk variants) and applies them to the coordinator, acknowledging
// each with a one-byte control response. Outbound, Dispatcher queues
// snapshot-ready reports and delivers them from a single goroutine so that
// host event handling never waits on the report socket.
package hostchannel
