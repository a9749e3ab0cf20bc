// Package agentbridge serves the guest agent's snapshot control calls.
//
// Each call arrives as one AgentBuffer. The bridge validates the signature
// first, then the header and payload lengths, then the control code, and
// only then touches the coordinator. Whatever happens, the agent gets its
// buffer back with one of the five agent status codes written to both the
// status field and the header return code.
package agentbridge
