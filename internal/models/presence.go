package models

import "time"

// PresenceEntry is one user's liveness record within a project. There is at
// most one per (project, user); every heartbeat overwrites it.
type PresenceEntry struct {
	UserID      string    `json:"userId"`
	DisplayName string    `json:"displayName"`
	PhotoURL    *string   `json:"photoURL"`
	LastSeen    time.Time `json:"lastSeen"`
}
