package types

import (
	"errors"
	"time"
)

// Inbound frame types.
const (
	FramePing                = "ping"
	FrameChatMessage         = "chat_message"
	FrameTypingStart         = "typing_start"
	FrameTypingStop          = "typing_stop"
	FrameVoiceRecordingStart = "voice_recording_start"
	FrameVoiceRecordingStop  = "voice_recording_stop"
)

// Outbound frame types.
const (
	FramePong                  = "pong"
	FrameChatBroadcast         = "chat_broadcast"
	FrameUserTyping            = "user_typing"
	FrameUserRecording         = "user_recording"
	FrameUserDisconnected      = "user_disconnected"
	FrameError                 = "error"
	FrameConnectionEstablished = "connection_established"
)

// Chat broadcast roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrUnknownFrame is returned for an inbound frame of unsupported type.
var ErrUnknownFrame = errors.New("unknown frame type")

// InboundFrame is any message a client sends on the real-time connection.
type InboundFrame struct {
	Type string `json:"type"`

	// Text is the chat message body for chat_message.
	Text string `json:"text,omitempty"`

	// Backend optionally names the preferred backend for chat_message.
	Backend string `json:"backend,omitempty"`
}

// Validate checks the frame type and, for chat messages, the text.
func (f *InboundFrame) Validate() error {
	switch f.Type {
	case FramePing, FrameTypingStart, FrameTypingStop, FrameVoiceRecordingStart, FrameVoiceRecordingStop:
		return nil
	case FrameChatMessage:
		req := ChatRequest{Message: f.Text}
		return req.Validate()
	default:
		return ErrUnknownFrame
	}
}

// Pong answers a ping.
type Pong struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// Kind implements delivery.Message.
func (m Pong) Kind() string { return m.Type }

// NewPong creates a pong frame.
func NewPong(now time.Time) Pong {
	return Pong{Type: FramePong, Timestamp: now}
}

// ChatBroadcast carries one side of a chat exchange to a user's
// connections.
type ChatBroadcast struct {
	Type        string    `json:"type"`
	UserID      string    `json:"userId"`
	Role        string    `json:"role"`
	Message     string    `json:"message"`
	BackendUsed string    `json:"backendUsed,omitempty"`
	Success     bool      `json:"success"`
	Timestamp   time.Time `json:"timestamp"`
}

// Kind implements delivery.Message.
func (m ChatBroadcast) Kind() string { return m.Type }

// NewChatBroadcast creates a chat broadcast frame for role.
func NewChatBroadcast(userID, role, message string, at time.Time) ChatBroadcast {
	return ChatBroadcast{Type: FrameChatBroadcast, UserID: userID, Role: role, Message: message, Success: true, Timestamp: at}
}

// UserTyping reports a typing indicator change.
type UserTyping struct {
	Type     string `json:"type"`
	UserID   string `json:"userId"`
	IsTyping bool   `json:"isTyping"`
}

// Kind implements delivery.Message.
func (m UserTyping) Kind() string { return m.Type }

// NewUserTyping creates a typing indicator frame.
func NewUserTyping(userID string, typing bool) UserTyping {
	return UserTyping{Type: FrameUserTyping, UserID: userID, IsTyping: typing}
}

// UserRecording reports a voice recording indicator change.
type UserRecording struct {
	Type        string `json:"type"`
	UserID      string `json:"userId"`
	IsRecording bool   `json:"isRecording"`
}

// Kind implements delivery.Message.
func (m UserRecording) Kind() string { return m.Type }

// NewUserRecording creates a recording indicator frame.
func NewUserRecording(userID string, recording bool) UserRecording {
	return UserRecording{Type: FrameUserRecording, UserID: userID, IsRecording: recording}
}

// UserDisconnected tells a user's remaining connections that one of their
// connections closed.
type UserDisconnected struct {
	Type         string    `json:"type"`
	UserID       string    `json:"userId"`
	ConnectionID string    `json:"connectionId"`
	Timestamp    time.Time `json:"timestamp"`
}

// Kind implements delivery.Message.
func (m UserDisconnected) Kind() string { return m.Type }

// NewUserDisconnected creates a presence frame.
func NewUserDisconnected(userID, connID string, now time.Time) UserDisconnected {
	return UserDisconnected{Type: FrameUserDisconnected, UserID: userID, ConnectionID: connID, Timestamp: now}
}

// ErrorFrame reports a problem with the client's last frame. RetryAfter
// and ResetTime are set when the message was rejected by admission
// control.
type ErrorFrame struct {
	Type       string     `json:"type"`
	Message    string     `json:"message"`
	Code       string     `json:"code,omitempty"`
	RetryAfter int        `json:"retryAfter,omitempty"`
	ResetTime  *time.Time `json:"resetTime,omitempty"`
}

// Kind implements delivery.Message.
func (m ErrorFrame) Kind() string { return m.Type }

// NewErrorFrame creates an error frame.
func NewErrorFrame(code, message string) ErrorFrame {
	return ErrorFrame{Type: FrameError, Code: code, Message: message}
}

// ConnectionEstablished is the first frame on an authenticated connection.
type ConnectionEstablished struct {
	Type         string    `json:"type"`
	UserID       string    `json:"userId"`
	ConnectionID string    `json:"connectionId"`
	ConnectedAt  time.Time `json:"connectedAt"`
}

// Kind implements delivery.Message.
func (m ConnectionEstablished) Kind() string { return m.Type }

// NewConnectionEstablished creates the greeting frame.
func NewConnectionEstablished(userID, connID string, at time.Time) ConnectionEstablished {
	return ConnectionEstablished{Type: FrameConnectionEstablished, UserID: userID, ConnectionID: connID, ConnectedAt: at}
}
