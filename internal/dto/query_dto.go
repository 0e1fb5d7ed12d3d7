package dto

import "rolplay-assistant-be/pkg/conversation"

// LegacyQueryRequest is the body of POST /query.
type LegacyQueryRequest struct {
	Query string `json:"query"`
}

type QueryRequest struct {
	Query     string `json:"query" validate:"required,max=2000"`
	SessionID string `json:"session_id,omitempty" validate:"omitempty,max=128"`
}

type QueryResponse struct {
	Response string `json:"response"`
}

type QueryResult struct {
	SessionID string `json:"session_id"`
	Response  string `json:"response"`
}

type ContextResponse struct {
	SessionID string               `json:"session_id"`
	Context   conversation.Context `json:"context"`
}

// WSQueryMessage is one client frame on the query socket.
type WSQueryMessage struct {
	Query string `json:"query"`
}

type WSReplyMessage struct {
	Type     string `json:"type"`
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}
