package adapters

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"video-production-service/application/ports/outbound"
	"video-production-service/config"
	"video-production-service/domain"
)

const (
	imagesDir      = "images"
	videosDir      = "videos"
	finalVideoName = "final_video.mp4"
)

type fsAssetStore struct {
	logger  outbound.LoggerPort
	rootDir string
}

// NewFsAssetStore lays a session out as
// <root>/sessions/<id>/{images,videos,final_video.mp4}. Writes go through a
// temp file and rename so a crash never leaves a half-written asset behind
// a valid-looking path.
func NewFsAssetStore(workspaceConfig *config.WorkspaceConfig, logger outbound.LoggerPort) outbound.AssetStorePort {
	return &fsAssetStore{
		logger:  logger,
		rootDir: workspaceConfig.RootDir,
	}
}

func (s *fsAssetStore) EnsureSession(sessionID string) error {
	for _, dir := range []string{
		filepath.Join(s.sessionDir(sessionID), imagesDir),
		filepath.Join(s.sessionDir(sessionID), videosDir),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			s.logger.ErrorWithFields(err, "Failed to create session directory", map[string]interface{}{
				"session_id": sessionID,
				"dir":        dir,
			})
			return err
		}
	}
	return nil
}

func (s *fsAssetStore) SaveImage(_ context.Context, sessionID, sceneID string, kind domain.AssetKind, data []byte) (*domain.AssetReference, error) {
	path := filepath.Join(s.sessionDir(sessionID), imagesDir, fmt.Sprintf("%s_%s.png", sceneID, kind))

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return nil, err
	}
	if _, err := tmp.Write(data); err != nil {
		s.discardTemp(tmp)
		return nil, err
	}
	if err := s.commitTemp(tmp, path); err != nil {
		return nil, err
	}

	return &domain.AssetReference{
		SceneID:   sceneID,
		Kind:      kind,
		Path:      path,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (s *fsAssetStore) SaveVideo(_ context.Context, sessionID, sceneID string, r io.Reader) (*domain.AssetReference, error) {
	path := filepath.Join(s.sessionDir(sessionID), videosDir, sceneID+".mp4")

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(tmp, r); err != nil {
		s.discardTemp(tmp)
		return nil, err
	}
	if err := s.commitTemp(tmp, path); err != nil {
		return nil, err
	}

	return &domain.AssetReference{
		SceneID:   sceneID,
		Kind:      domain.VideoAsset,
		Path:      path,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (s *fsAssetStore) FinalVideoPath(sessionID string) string {
	return filepath.Join(s.sessionDir(sessionID), finalVideoName)
}

func (s *fsAssetStore) sessionDir(sessionID string) string {
	return filepath.Join(s.rootDir, "sessions", sessionID)
}

func (s *fsAssetStore) commitTemp(tmp *os.File, path string) error {
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		if removeErr := os.Remove(tmp.Name()); removeErr != nil {
			s.logger.Error(removeErr, "Failed to remove orphaned temp file")
		}
		return err
	}
	return nil
}

func (s *fsAssetStore) discardTemp(tmp *os.File) {
	if err := tmp.Close(); err != nil {
		s.logger.Error(err, "Failed to close temp file")
	}
	if err := os.Remove(tmp.Name()); err != nil {
		s.logger.Error(err, "Failed to remove temp file")
	}
}
