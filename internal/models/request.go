package models

import "encoding/json"

type CreateSequenceRequest struct {
	Name string `json:"name"`
}

type RenameSequenceRequest struct {
	Name string `json:"name"`
}

type CreateSnapshotRequest struct {
	Name string `json:"name"`
}

type SaveSessionRequest struct {
	// Document is the full session document; the editor state inside it is
	// opaque to this service.
	Document json.RawMessage `json:"document"`
	// Version is the concurrency token: the session version the client last
	// observed. Ignored when Force is set.
	Version int64 `json:"version"`
	Force   bool  `json:"force,omitempty"`
}

type HeartbeatRequest struct {
	DisplayName string  `json:"displayName"`
	PhotoURL    *string `json:"photoURL,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
