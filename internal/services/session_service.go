package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"cutroom-backend/internal/assets"
	"cutroom-backend/internal/models"
	"cutroom-backend/internal/reconcile"
	"cutroom-backend/internal/schema"
	"cutroom-backend/internal/supabase"
)

// SessionService runs the session read and save pipelines. Opening a session
// is migrate-then-reconcile: the stored document is upgraded to the current
// schema, then its asset references are matched against the project's live
// assets. Unresolved references are surfaced, never dropped.
type SessionService struct {
	dbClient       *supabase.DatabaseClient
	assetClient    *assets.Client
	realtimeClient *supabase.RealtimeClient
}

func NewSessionService(dbClient *supabase.DatabaseClient, assetClient *assets.Client, realtimeClient *supabase.RealtimeClient) *SessionService {
	return &SessionService{
		dbClient:       dbClient,
		assetClient:    assetClient,
		realtimeClient: realtimeClient,
	}
}

func (s *SessionService) OpenSession(projectID, userID uuid.UUID) (*models.OpenSessionResponse, error) {
	session, err := s.dbClient.FindOrCreateSession(projectID, userID)
	if err != nil {
		return nil, err
	}

	// Migration is pure: a failure here leaves the stored document untouched.
	result, err := schema.MigrateRaw(session.Document)
	if err != nil {
		return nil, err
	}

	s.refreshAssets(projectID)

	liveAssets, err := s.dbClient.ListAssets(projectID)
	if err != nil {
		return nil, err
	}

	refs, err := referencesFromDocument(result.Data)
	if err != nil {
		return nil, err
	}

	resolution := reconcile.Resolve(refs, liveAssets)

	document, err := json.Marshal(result.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode migrated document: %w", err)
	}

	return &models.OpenSessionResponse{
		Document:   document,
		Version:    session.Version,
		Migrated:   result.Migrated,
		Warnings:   result.Warnings,
		References: resolution.References,
		Unresolved: resolution.Unresolved,
	}, nil
}

// SaveSession persists the document under the optimistic-concurrency token.
// A stale token yields a ConflictResponse carrying the server's current
// version; nothing is overwritten silently. Force skips the token check and
// is the "local wins" conflict resolution.
func (s *SessionService) SaveSession(projectID uuid.UUID, req models.SaveSessionRequest) (int64, *models.ConflictResponse, error) {
	var newVersion int64
	var err error
	if req.Force {
		newVersion, err = s.dbClient.ForceSaveSession(projectID, req.Document)
	} else {
		newVersion, err = s.dbClient.SaveSession(projectID, req.Document, req.Version)
	}

	if errors.Is(err, supabase.ErrVersionConflict) {
		session, getErr := s.dbClient.GetSession(projectID)
		if getErr != nil {
			return 0, nil, getErr
		}
		s.realtimeClient.PublishProjectEvent(projectID, "session_conflict",
			supabase.SessionConflictPayload(projectID, session.Version))
		return 0, &models.ConflictResponse{Conflict: true, ServerVersion: session.Version}, nil
	}
	if err != nil {
		return 0, nil, err
	}

	s.realtimeClient.PublishProjectEvent(projectID, "session_saved",
		supabase.SessionSavedPayload(projectID, newVersion))
	return newVersion, nil, nil
}

// refreshAssets mirrors the asset service's records into the local assets
// table. Best-effort: reconciliation falls back to the existing mirror when
// the asset service is unreachable or not configured.
func (s *SessionService) refreshAssets(projectID uuid.UUID) {
	if s.assetClient == nil {
		return
	}

	var records []assets.AssetRecord
	err := s.assetClient.RetryWithBackoff(func() error {
		var err error
		records, err = s.assetClient.ListAssets(projectID.String())
		return err
	}, 3)
	if err != nil {
		log.Printf("asset refresh failed for project %s: %v", projectID, err)
		return
	}

	for _, record := range records {
		asset := assetFromRecord(projectID, record)
		if err := s.dbClient.UpsertAsset(&asset); err != nil {
			log.Printf("asset upsert failed for %s: %v", record.ID, err)
		}
	}
}

func assetFromRecord(projectID uuid.UUID, record assets.AssetRecord) models.Asset {
	asset := models.Asset{
		ID:          record.ID,
		ProjectID:   projectID,
		Name:        record.Name,
		Type:        record.Type,
		StoragePath: record.StoragePath,
		CreatedAt:   record.CreatedAt,
	}
	if record.FileSize != nil {
		asset.FileSize.Valid = true
		asset.FileSize.Int64 = *record.FileSize
	}
	if record.DurationMS != nil {
		asset.DurationMS.Valid = true
		asset.DurationMS.Int64 = *record.DurationMS
	}
	if record.Hash != nil {
		asset.Hash.Valid = true
		asset.Hash.String = *record.Hash
	}
	if record.ThumbnailURL != nil {
		asset.ThumbnailURL.Valid = true
		asset.ThumbnailURL.String = *record.ThumbnailURL
	}
	return asset
}

func referencesFromDocument(doc map[string]interface{}) ([]models.AssetReference, error) {
	raw, err := json.Marshal(doc["asset_references"])
	if err != nil {
		return nil, fmt.Errorf("failed to encode asset references: %w", err)
	}
	var refs []models.AssetReference
	if err := json.Unmarshal(raw, &refs); err != nil {
		return nil, fmt.Errorf("failed to decode asset references: %w", err)
	}
	return refs, nil
}
