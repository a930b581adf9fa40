package models

import (
	"encoding/json"
	"time"
)

type SequenceResponse struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	DurationMS     int64   `json:"duration_ms"`
	IsDefault      bool    `json:"is_default"`
	ThumbnailURL   string  `json:"thumbnail_url,omitempty"`
	LockedBy       *string `json:"locked_by"`
	LockHolderName *string `json:"lock_holder_name"`
}

type SequenceListResponse struct {
	Sequences []SequenceResponse `json:"sequences"`
}

type SnapshotResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"created_at"`
	DurationMS int64     `json:"duration_ms"`
}

type SnapshotListResponse struct {
	Snapshots []SnapshotResponse `json:"snapshots"`
}

// ResolvedReference pairs a session asset reference with the live asset it
// resolved to, if any. AssetID null means the reference is unresolved and
// needs manual reattachment.
type ResolvedReference struct {
	Reference AssetReference `json:"reference"`
	AssetID   *string        `json:"asset_id"`
}

type OpenSessionResponse struct {
	Document   json.RawMessage     `json:"document"`
	Version    int64               `json:"version"`
	Migrated   bool                `json:"migrated"`
	Warnings   []string            `json:"warnings,omitempty"`
	References []ResolvedReference `json:"references"`
	Unresolved []AssetReference    `json:"unresolved,omitempty"`
}

type SaveSessionResponse struct {
	Version int64 `json:"version"`
}

// ConflictResponse is returned instead of SaveSessionResponse when the save
// token does not match the server's version. ServerVersion is what the client
// needs to either reload against or force past.
type ConflictResponse struct {
	Conflict      bool  `json:"conflict"`
	ServerVersion int64 `json:"server_version"`
}

type PresenceListResponse struct {
	Users []PresenceEntry `json:"users"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
