// Package server exposes a sheet over HTTP.
//
// Routes:
//
//	GET  /cells         every cell in definition order
//	GET  /cells/{name}  one cell
//	PUT  /cells/{name}  write an input or lens cell; body {"value": ...}
//	POST /update        write several cells in one transaction; body {"name": value, ...}
//	GET  /watch/{name}  WebSocket stream of {"cell", "value", "seq"} messages
//	GET  /healthz       liveness
//
// When a registry is configured its metrics are served at the metrics path.
//
// The sheet is single-threaded, so the server serialises every request that
// touches it. Watch reactions run while a write holds that lock; they only
// queue the encoded message for the watcher's writer goroutine. A watcher
// whose queue is full is disconnected instead of blocking writers.
package server
