package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/patrickmn/go-cache"

	"video-production-service/application/ports/outbound"
	"video-production-service/config"
	"video-production-service/domain"
)

const stateFileName = "state.json"

type fsWorkflowStore struct {
	logger  outbound.LoggerPort
	rootDir string
	// stateCache keeps the serialized form of recently touched sessions so
	// status polls during a long production run skip the disk read.
	stateCache *cache.Cache
}

// NewFsWorkflowStore persists one state.json per session under the session
// workspace. Saves are atomic via temp-file-and-rename; the file on disk is
// authoritative and the cache only mirrors it.
func NewFsWorkflowStore(workspaceConfig *config.WorkspaceConfig, logger outbound.LoggerPort) outbound.WorkflowStorePort {
	return &fsWorkflowStore{
		logger:     logger,
		rootDir:    workspaceConfig.RootDir,
		stateCache: cache.New(5*time.Minute, 10*time.Minute),
	}
}

func (s *fsWorkflowStore) Save(_ context.Context, state *domain.WorkflowState) error {
	payload, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	path := s.statePath(state.SessionID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".state-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(payload); err != nil {
		closeAndRemove(tmp, s.logger)
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		if removeErr := os.Remove(tmp.Name()); removeErr != nil {
			s.logger.Error(removeErr, "Failed to remove orphaned state temp file")
		}
		return err
	}

	s.stateCache.Set(state.SessionID, payload, cache.DefaultExpiration)
	return nil
}

func (s *fsWorkflowStore) Load(_ context.Context, sessionID string) (*domain.WorkflowState, error) {
	payload, err := s.readState(sessionID)
	if err != nil {
		return nil, err
	}

	var state domain.WorkflowState
	if err := json.Unmarshal(payload, &state); err != nil {
		return nil, fmt.Errorf("decoding state for session %s: %w", sessionID, err)
	}
	return &state, nil
}

func (s *fsWorkflowStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.rootDir, "sessions"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var ids []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := os.Stat(s.statePath(entry.Name())); err == nil {
			ids = append(ids, entry.Name())
		}
	}
	return ids, nil
}

func (s *fsWorkflowStore) readState(sessionID string) ([]byte, error) {
	if cached, found := s.stateCache.Get(sessionID); found {
		return cached.([]byte), nil
	}

	payload, err := os.ReadFile(s.statePath(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.NewNotFound(fmt.Sprintf("no state for session %s", sessionID))
		}
		return nil, err
	}

	s.stateCache.Set(sessionID, payload, cache.DefaultExpiration)
	return payload, nil
}

func (s *fsWorkflowStore) statePath(sessionID string) string {
	return filepath.Join(s.rootDir, "sessions", sessionID, stateFileName)
}

func closeAndRemove(f *os.File, logger outbound.LoggerPort) {
	if err := f.Close(); err != nil {
		logger.Error(err, "Failed to close temp file")
	}
	if err := os.Remove(f.Name()); err != nil {
		logger.Error(err, "Failed to remove temp file")
	}
}
