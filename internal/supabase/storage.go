package supabase

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"
	storage "github.com/supabase-community/storage-go"
)

type StorageClient struct {
	client  *storage.Client
	bucket  string
	baseURL string
}

func NewStorageClient(supabaseURL, serviceRoleKey, bucket string) (*StorageClient, error) {
	// Ensure URL doesn't have trailing slash
	baseURL := supabaseURL
	if len(baseURL) > 0 && baseURL[len(baseURL)-1] == '/' {
		baseURL = baseURL[:len(baseURL)-1]
	}
	client := storage.NewClient(baseURL+"/storage/v1", serviceRoleKey, nil)

	return &StorageClient{
		client:  client,
		bucket:  bucket,
		baseURL: baseURL,
	}, nil
}

// SequenceStatePath is where a sequence's live state blob lives.
func SequenceStatePath(projectID, sequenceID uuid.UUID) string {
	return fmt.Sprintf("projects/%s/sequences/%s/state.json", projectID.String(), sequenceID.String())
}

// SnapshotStatePath is where a snapshot's captured state blob lives. The
// snapshot id is a ULID, so listing the prefix yields creation order.
func SnapshotStatePath(projectID, sequenceID uuid.UUID, snapshotID string) string {
	return fmt.Sprintf("projects/%s/sequences/%s/snapshots/%s.json", projectID.String(), sequenceID.String(), snapshotID)
}

func (s *StorageClient) UploadState(storagePath string, data []byte) error {
	contentType := "application/json"
	upsert := true
	_, err := s.client.UploadFile(s.bucket, storagePath, bytes.NewReader(data), storage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return fmt.Errorf("failed to upload state: %w", err)
	}
	return nil
}

func (s *StorageClient) DownloadState(storagePath string) ([]byte, error) {
	data, err := s.client.DownloadFile(s.bucket, storagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to download state: %w", err)
	}
	return data, nil
}

func (s *StorageClient) DeleteState(storagePath string) error {
	_, err := s.client.RemoveFile(s.bucket, []string{storagePath})
	return err
}

// DeleteSequenceStates removes a sequence's live state and every snapshot
// blob under it. Used when a sequence is deleted.
func (s *StorageClient) DeleteSequenceStates(projectID, sequenceID uuid.UUID) error {
	prefix := fmt.Sprintf("projects/%s/sequences/%s/", projectID.String(), sequenceID.String())

	files, err := s.client.ListFiles(s.bucket, prefix, storage.FileSearchOptions{
		Limit: 1000,
	})
	if err != nil {
		return fmt.Errorf("failed to list files: %w", err)
	}

	if len(files) > 0 {
		filePaths := make([]string, len(files))
		for i, file := range files {
			filePaths[i] = file.Name
		}
		_, err = s.client.RemoveFile(s.bucket, filePaths)
		if err != nil {
			return fmt.Errorf("failed to delete files: %w", err)
		}
	}

	return nil
}

func (s *StorageClient) GetPublicURL(storagePath string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s",
		s.baseURL, s.bucket, storagePath)
}
