package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/lankastats/tourcast/pkg/errors"
)

// FileStoreConfig holds configuration for filesystem artifact storage.
type FileStoreConfig struct {
	BaseDir string `json:"base_dir" yaml:"base_dir"`
}

// FileStore keeps artifact generations under BaseDir/generations/<id>/
// with a current file naming the live generation. Publishing writes the
// new generation completely before swapping the pointer via rename.
type FileStore struct {
	config *FileStoreConfig
	logger *logrus.Logger
}

// NewFileStore creates a filesystem artifact store.
func NewFileStore(config *FileStoreConfig, logger *logrus.Logger) (*FileStore, error) {
	if config == nil || config.BaseDir == "" {
		return nil, errors.NewStorageError(errors.CodeInvalidConfig, "file store requires a base directory")
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &FileStore{config: config, logger: logger}, nil
}

func (s *FileStore) generationDir(id string) string {
	return filepath.Join(s.config.BaseDir, "generations", id)
}

func (s *FileStore) currentPath() string {
	return filepath.Join(s.config.BaseDir, "current")
}

// Publish writes the artifact set as a fresh generation and atomically
// repoints current at it.
func (s *FileStore) Publish(ctx context.Context, set *ArtifactSet) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	id := uuid.New().String()
	set.GenerationID = id
	if set.CreatedAt.IsZero() {
		set.CreatedAt = time.Now().UTC()
	}

	dir := s.generationDir(id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeWriteFailed,
			fmt.Sprintf("failed to create generation directory %s", dir))
	}

	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return "", errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeWriteFailed,
			"failed to serialize artifact set")
	}
	if err := os.WriteFile(filepath.Join(dir, "artifacts.json"), data, 0o644); err != nil {
		return "", errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeWriteFailed,
			"failed to write artifact set")
	}

	// Pointer swap goes through a temp file so a crash mid-write can
	// never leave current naming a partial generation.
	tmp := s.currentPath() + ".tmp"
	if err := os.WriteFile(tmp, []byte(id), 0o644); err != nil {
		return "", errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeWriteFailed,
			"failed to stage current pointer")
	}
	if err := os.Rename(tmp, s.currentPath()); err != nil {
		return "", errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeWriteFailed,
			"failed to swap current pointer")
	}

	s.logger.WithFields(logrus.Fields{
		"generation": id,
		"dir":        dir,
	}).Info("Artifact generation published")
	return id, nil
}

// Load returns the generation named by the current pointer.
func (s *FileStore) Load(ctx context.Context) (*ArtifactSet, error) {
	data, err := os.ReadFile(s.currentPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError("no artifact generation has been published")
		}
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeReadFailed,
			"failed to read current pointer")
	}
	return s.LoadGeneration(ctx, strings.TrimSpace(string(data)))
}

// LoadGeneration returns one generation by ID.
func (s *FileStore) LoadGeneration(ctx context.Context, id string) (*ArtifactSet, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	path := filepath.Join(s.generationDir(id), "artifacts.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError(fmt.Sprintf("artifact generation %s does not exist", id))
		}
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeReadFailed,
			fmt.Sprintf("failed to read artifact generation %s", id))
	}

	var set ArtifactSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeReadFailed,
			fmt.Sprintf("failed to deserialize artifact generation %s", id))
	}
	return &set, nil
}
