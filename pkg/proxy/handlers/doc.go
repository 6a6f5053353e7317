// Package handlers provides the HTTP and real-time endpoint handlers.
//
// # Handler Types
//
// Chat:
//   - ChatHandler: POST /v1/chat, one message per request
//
// Health:
//   - HealthHandler: liveness probe (always 200)
//   - ReadyHandler: 200 while at least one backend is not unhealthy
//   - BackendHealthHandler: backend descriptors in preference order
//
// Real-time:
//   - WebSocketHandler: GET /v1/ws
//
// # Real-time Protocol
//
// The handshake token is read from the Authorization bearer header or the
// ?token= query parameter. A missing or invalid token closes the
// connection with status 4001 "invalid credentials".
//
// Inbound frames:
//
//	{"type":"ping"}
//	{"type":"chat_message","text":"How was my run?","backend":"claude"}
//	{"type":"typing_start"} {"type":"typing_stop"}
//	{"type":"voice_recording_start"} {"type":"voice_recording_stop"}
//
// Outbound frames:
//
//	{"type":"connection_established","userId":"u1","connectionId":"...","connectedAt":"..."}
//	{"type":"pong","timestamp":"..."}
//	{"type":"chat_broadcast","userId":"u1","role":"assistant","message":"...","backendUsed":"claude","success":true,"timestamp":"..."}
//	{"type":"user_typing","userId":"u1","isTyping":true}
//	{"type":"user_recording","userId":"u1","isRecording":true}
//	{"type":"user_disconnected","userId":"u1","connectionId":"...","timestamp":"..."}
//	{"type":"error","message":"...","code":"rate_limited","retryAfter":12,"resetTime":"..."}
//
// A chat message is answered through the same pipeline as POST /v1/chat.
// The user's text is mirrored to their other connections as role "user";
// the answer goes to all of their connections, sender included. A
// rejection is an error frame to the sender only. Typing and recording
// indicators go to the user's other connections.
//
// # Connection Lifecycle
//
// Each connection runs three goroutines under an errgroup:
//
//   - reader: decodes frames in order; chat messages are queued
//   - chat worker: answers queued messages one at a time
//   - writer: drains the send buffer and pings every ping interval
//
// The send buffer and chat queue are bounded. A full send buffer drops the
// frame; a full chat queue answers with an error frame. When any goroutine
// ends, the connection is unregistered before the handler returns and the
// user's remaining connections receive user_disconnected.
package handlers
