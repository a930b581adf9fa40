package supabase

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"cutroom-backend/internal/models"
)

// uniqueViolation is the Postgres error code for a unique constraint hit.
const uniqueViolation = "23505"

type DatabaseClient struct {
	db *sql.DB
}

func NewDatabaseClient(connectionString string) (*DatabaseClient, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// --- Sessions ---

// FindOrCreateSession returns the project's editing session, creating an
// empty current-schema one on first open so every page load after that finds
// the same row.
func (d *DatabaseClient) FindOrCreateSession(projectID, userID uuid.UUID) (*models.Session, error) {
	session, err := d.GetSession(projectID)
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	emptyDoc := fmt.Sprintf(`{"schema_version":%q,"asset_references":[]}`, models.SchemaVersionCurrent)

	session = &models.Session{ProjectID: projectID, UserID: userID}
	err = d.db.QueryRow(`
		INSERT INTO sessions (project_id, user_id, document)
		VALUES ($1, $2, $3)
		RETURNING id, document, version, created_at, updated_at
	`, projectID, userID, emptyDoc).Scan(
		&session.ID, &session.Document, &session.Version, &session.CreatedAt, &session.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

func (d *DatabaseClient) GetSession(projectID uuid.UUID) (*models.Session, error) {
	var session models.Session
	err := d.db.QueryRow(`
		SELECT id, project_id, user_id, document, version, created_at, updated_at
		FROM sessions
		WHERE project_id = $1
	`, projectID).Scan(
		&session.ID, &session.ProjectID, &session.UserID,
		&session.Document, &session.Version, &session.CreatedAt, &session.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return &session, nil
}

// SaveSession persists the document only when the caller's version token
// still matches the row. On a token mismatch it returns ErrVersionConflict
// and mutates nothing; the caller resolves by reloading or forcing.
func (d *DatabaseClient) SaveSession(projectID uuid.UUID, document json.RawMessage, version int64) (int64, error) {
	var newVersion int64
	err := d.db.QueryRow(`
		UPDATE sessions
		SET document = $1, version = version + 1, updated_at = NOW()
		WHERE project_id = $2 AND version = $3
		RETURNING version
	`, string(document), projectID, version).Scan(&newVersion)
	if errors.Is(err, sql.ErrNoRows) {
		// Either the session is gone or the token is stale.
		if _, getErr := d.GetSession(projectID); getErr != nil {
			return 0, getErr
		}
		return 0, ErrVersionConflict
	}
	if err != nil {
		return 0, fmt.Errorf("failed to save session: %w", err)
	}

	return newVersion, nil
}

// ForceSaveSession overwrites the server document regardless of any
// intervening saves. This is the "force" conflict resolution.
func (d *DatabaseClient) ForceSaveSession(projectID uuid.UUID, document json.RawMessage) (int64, error) {
	var newVersion int64
	err := d.db.QueryRow(`
		UPDATE sessions
		SET document = $1, version = version + 1, updated_at = NOW()
		WHERE project_id = $2
		RETURNING version
	`, string(document), projectID).Scan(&newVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to force-save session: %w", err)
	}

	return newVersion, nil
}

// --- Sequences ---

const sequenceColumns = `id, project_id, name, duration_ms, is_default, thumbnail_url, state_path, locked_by, lock_holder_name, created_at, updated_at`

func scanSequence(row interface{ Scan(...interface{}) error }) (*models.Sequence, error) {
	var seq models.Sequence
	err := row.Scan(
		&seq.ID, &seq.ProjectID, &seq.Name, &seq.DurationMS, &seq.IsDefault,
		&seq.ThumbnailURL, &seq.StatePath, &seq.LockedBy, &seq.LockHolderName,
		&seq.CreatedAt, &seq.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &seq, nil
}

func (d *DatabaseClient) ListSequences(projectID uuid.UUID) ([]models.Sequence, error) {
	rows, err := d.db.Query(`
		SELECT `+sequenceColumns+`
		FROM sequences
		WHERE project_id = $1
		ORDER BY created_at ASC
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sequences: %w", err)
	}
	defer rows.Close()

	var sequences []models.Sequence
	for rows.Next() {
		seq, err := scanSequence(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sequence: %w", err)
		}
		sequences = append(sequences, *seq)
	}

	return sequences, nil
}

func (d *DatabaseClient) GetSequence(sequenceID uuid.UUID) (*models.Sequence, error) {
	seq, err := scanSequence(d.db.QueryRow(`
		SELECT `+sequenceColumns+`
		FROM sequences
		WHERE id = $1
	`, sequenceID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sequence: %w", err)
	}

	return seq, nil
}

func (d *DatabaseClient) CreateSequence(projectID uuid.UUID, name string, isDefault bool) (*models.Sequence, error) {
	seq, err := scanSequence(d.db.QueryRow(`
		INSERT INTO sequences (project_id, name, is_default)
		VALUES ($1, $2, $3)
		RETURNING `+sequenceColumns+`
	`, projectID, name, isDefault))
	if isUniqueViolation(err) {
		return nil, ErrNameTaken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create sequence: %w", err)
	}

	return seq, nil
}

// CopySequence duplicates a sequence's row under a new name. The copy starts
// unlocked; the state blob copy is the service layer's job.
func (d *DatabaseClient) CopySequence(sequenceID uuid.UUID, name string) (*models.Sequence, error) {
	seq, err := scanSequence(d.db.QueryRow(`
		INSERT INTO sequences (project_id, name, duration_ms, thumbnail_url, state_path)
		SELECT project_id, $2, duration_ms, thumbnail_url, state_path
		FROM sequences
		WHERE id = $1
		RETURNING `+sequenceColumns+`
	`, sequenceID, name))
	if isUniqueViolation(err) {
		return nil, ErrNameTaken
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to copy sequence: %w", err)
	}

	return seq, nil
}

func (d *DatabaseClient) RenameSequence(sequenceID uuid.UUID, name string) (*models.Sequence, error) {
	seq, err := scanSequence(d.db.QueryRow(`
		UPDATE sequences
		SET name = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+sequenceColumns+`
	`, sequenceID, name))
	if isUniqueViolation(err) {
		return nil, ErrNameTaken
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to rename sequence: %w", err)
	}

	return seq, nil
}

// DeleteSequence removes a sequence and, via cascade, its snapshots. The
// project's default sequence is never deletable.
func (d *DatabaseClient) DeleteSequence(sequenceID uuid.UUID) error {
	seq, err := d.GetSequence(sequenceID)
	if err != nil {
		return err
	}
	if seq.IsDefault {
		return ErrDefaultSequence
	}

	_, err = d.db.Exec(`DELETE FROM sequences WHERE id = $1`, sequenceID)
	if err != nil {
		return fmt.Errorf("failed to delete sequence: %w", err)
	}
	return nil
}

// AcquireSequenceLock takes the exclusive lock for userID. The WHERE clause
// makes acquisition atomic: it succeeds only when the lock is free or already
// held by the caller (re-acquisition is a no-op refresh).
func (d *DatabaseClient) AcquireSequenceLock(sequenceID uuid.UUID, userID, holderName string) (*models.Sequence, error) {
	seq, err := scanSequence(d.db.QueryRow(`
		UPDATE sequences
		SET locked_by = $2, lock_holder_name = $3, updated_at = NOW()
		WHERE id = $1 AND (locked_by IS NULL OR locked_by = $2)
		RETURNING `+sequenceColumns+`
	`, sequenceID, userID, holderName))
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := d.GetSequence(sequenceID); getErr != nil {
			return nil, getErr
		}
		return nil, ErrLockHeld
	}
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}

	return seq, nil
}

func (d *DatabaseClient) ReleaseSequenceLock(sequenceID uuid.UUID, userID string) error {
	result, err := d.db.Exec(`
		UPDATE sequences
		SET locked_by = NULL, lock_holder_name = NULL, updated_at = NOW()
		WHERE id = $1 AND locked_by = $2
	`, sequenceID, userID)
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		if _, getErr := d.GetSequence(sequenceID); getErr != nil {
			return getErr
		}
		return ErrLockRequired
	}
	return nil
}

// RestoreSequenceState points the sequence at a captured state blob. This is
// the destructive half of snapshot restore; the lock gate lives in the
// service layer, which must verify the caller holds the sequence lock first.
func (d *DatabaseClient) RestoreSequenceState(sequenceID uuid.UUID, statePath string, durationMS int64) error {
	result, err := d.db.Exec(`
		UPDATE sequences
		SET state_path = $2, duration_ms = $3, updated_at = NOW()
		WHERE id = $1
	`, sequenceID, statePath, durationMS)
	if err != nil {
		return fmt.Errorf("failed to restore sequence state: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Snapshots ---

func (d *DatabaseClient) CreateSnapshot(snapshot *models.Snapshot) error {
	err := d.db.QueryRow(`
		INSERT INTO snapshots (id, sequence_id, name, duration_ms, state_path)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, snapshot.ID, snapshot.SequenceID, snapshot.Name, snapshot.DurationMS, snapshot.StatePath).Scan(&snapshot.CreatedAt)
	if isUniqueViolation(err) {
		return ErrNameTaken
	}
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	return nil
}

// ListSnapshots returns a sequence's snapshots in creation order. Snapshot
// ids are ULIDs, so id order and creation order agree.
func (d *DatabaseClient) ListSnapshots(sequenceID uuid.UUID) ([]models.Snapshot, error) {
	rows, err := d.db.Query(`
		SELECT id, sequence_id, name, duration_ms, state_path, created_at
		FROM snapshots
		WHERE sequence_id = $1
		ORDER BY id ASC
	`, sequenceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []models.Snapshot
	for rows.Next() {
		var snap models.Snapshot
		err := rows.Scan(
			&snap.ID, &snap.SequenceID, &snap.Name,
			&snap.DurationMS, &snap.StatePath, &snap.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, snap)
	}

	return snapshots, nil
}

func (d *DatabaseClient) GetSnapshot(sequenceID uuid.UUID, snapshotID string) (*models.Snapshot, error) {
	var snap models.Snapshot
	err := d.db.QueryRow(`
		SELECT id, sequence_id, name, duration_ms, state_path, created_at
		FROM snapshots
		WHERE sequence_id = $1 AND id = $2
	`, sequenceID, snapshotID).Scan(
		&snap.ID, &snap.SequenceID, &snap.Name,
		&snap.DurationMS, &snap.StatePath, &snap.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	return &snap, nil
}

func (d *DatabaseClient) DeleteSnapshot(sequenceID uuid.UUID, snapshotID string) error {
	result, err := d.db.Exec(`
		DELETE FROM snapshots
		WHERE sequence_id = $1 AND id = $2
	`, sequenceID, snapshotID)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Assets ---

func (d *DatabaseClient) ListAssets(projectID uuid.UUID) ([]models.Asset, error) {
	rows, err := d.db.Query(`
		SELECT id, project_id, name, type, file_size, duration_ms, hash, storage_path, thumbnail_url, created_at
		FROM assets
		WHERE project_id = $1
		ORDER BY created_at ASC
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	defer rows.Close()

	var assets []models.Asset
	for rows.Next() {
		var asset models.Asset
		err := rows.Scan(
			&asset.ID, &asset.ProjectID, &asset.Name, &asset.Type,
			&asset.FileSize, &asset.DurationMS, &asset.Hash,
			&asset.StoragePath, &asset.ThumbnailURL, &asset.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, asset)
	}

	return assets, nil
}

// UpsertAsset mirrors one asset-service record into the local assets table.
func (d *DatabaseClient) UpsertAsset(asset *models.Asset) error {
	_, err := d.db.Exec(`
		INSERT INTO assets (id, project_id, name, type, file_size, duration_ms, hash, storage_path, thumbnail_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, type = EXCLUDED.type, file_size = EXCLUDED.file_size,
		    duration_ms = EXCLUDED.duration_ms, hash = EXCLUDED.hash,
		    storage_path = EXCLUDED.storage_path, thumbnail_url = EXCLUDED.thumbnail_url
	`, asset.ID, asset.ProjectID, asset.Name, asset.Type,
		asset.FileSize, asset.DurationMS, asset.Hash,
		asset.StoragePath, asset.ThumbnailURL, asset.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert asset: %w", err)
	}
	return nil
}

func (d *DatabaseClient) Close() error {
	return d.db.Close()
}
