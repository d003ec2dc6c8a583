// Package ws implements the WebSocket hub for signalguard-server.
//
// Hub keeps a set of connected clients and broadcasts the dashboard view to
// all of them on a fixed interval (the server's broadcast_interval).
//
// Message format:
//
//	{
//	  "event": "view",
//	  "data":  { /* same schema as GET /api/v1/view */ }
//	}
//
// A client that falls queueDepth messages behind is disconnected. The
// endpoint is mounted at /ws/stream by the server.
package ws
