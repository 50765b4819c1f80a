// Package protocol defines the wire format spoken between a scope harness and
// a scope process.
//
// Each frame is one JSON object on its own line. The harness writes Request
// frames to the scope's stdin and reads Event frames from its stdout:
//
//	{"id":1,"method":"init","params":{"scope_id":"goscope",...}}
//	{"id":1,"type":"ready","payload":{"scope_id":"goscope"}}
//	{"id":2,"method":"search","params":{"query":{"scope_id":"goscope","query_string":""}}}
//	{"id":2,"type":"category","payload":{"id":"category","title":"Category",...}}
//	{"id":2,"type":"result","payload":{"category":"category","attrs":{...}}}
//	{"id":2,"type":"finished"}
//
// Every request is answered by exactly one terminal event (ready, finished,
// error or activation) after any number of intermediate events with the
// same id.
package protocol
