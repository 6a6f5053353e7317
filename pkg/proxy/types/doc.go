// Package types defines the wire shapes of the HTTP API and the real-time
// protocol.
//
// # HTTP
//
//   - ChatRequest / ChatResponse: body of POST /v1/chat
//   - ErrorResponse: {"error":{"message","type","param","code"}} returned
//     for every failed request
//
// # Real-time frames
//
// Every frame is a JSON object with a "type" field.
//
// Inbound (client → server):
//
//	{"type":"ping"}
//	{"type":"chat_message","text":"How was my run?"}
//	{"type":"typing_start"}  {"type":"typing_stop"}
//	{"type":"voice_recording_start"}  {"type":"voice_recording_stop"}
//
// Outbound (server → client):
//
//	{"type":"connection_established","userId":"u1","connectionId":"…","connectedAt":"…"}
//	{"type":"pong","timestamp":"…"}
//	{"type":"chat_broadcast","userId":"u1","role":"assistant","message":"…","timestamp":"…"}
//	{"type":"user_typing","userId":"u1","isTyping":true}
//	{"type":"user_recording","userId":"u1","isRecording":true}
//	{"type":"user_disconnected","userId":"u1","connectionId":"…","timestamp":"…"}
//	{"type":"error","message":"…","code":"rate_limited","retryAfter":12}
//
// Outbound frame types implement Kind so the delivery layer can label them.
package types
