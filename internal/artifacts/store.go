// Package artifacts implements the version-addressed artifact store. Every
// pipeline run allocates a fresh model version directory; all of that run's
// outputs (feature table, series containers, trained model) live under it
// and are never mutated after creation.
package artifacts

import (
	"encoding/gob"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"salesfc/internal/config"
	apperrors "salesfc/internal/errors"
	"salesfc/internal/model"
	"salesfc/pkg/contracts/domain"
)

// Artifact names under a version directory. The model lives in the models
// directory as model_<version>.gob; everything else is <name>.gob inside
// the version directory.
const (
	FeatureTable     = "features"
	YTrain           = "y_train"
	FutureCovTrain   = "future_cov_train"
	YHoldout         = "y_holdout"
	FutureCovHoldout = "future_cov_holdout"
	YPreds           = "y_preds"
)

// versionStamp is the timestamp component of a model version identifier.
const versionStamp = "20060102T150405"

// Store provides version-scoped artifact persistence.
type Store struct {
	interimDir string
	modelsDir  string
	logger     *slog.Logger
}

// NewStore creates a store over the configured artifact tier roots.
func NewStore(paths config.PathsConfig, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		interimDir: paths.InterimDir,
		modelsDir:  paths.ModelsDir,
		logger:     logger,
	}
}

// NewVersion allocates a fresh, unique model version directory and returns
// its identifier. The identifier is timestamp-derived for readability with a
// random suffix checked against existing directories, so rapid repeated
// invocations cannot collide.
func (s *Store) NewVersion() (string, error) {
	stamp := time.Now().UTC().Format(versionStamp)
	for attempt := 0; attempt < 10; attempt++ {
		suffix := strings.Split(uuid.NewString(), "-")[0]
		version := fmt.Sprintf("%s_%s", stamp, suffix)
		dir := s.VersionDir(version)
		if _, err := os.Stat(dir); err == nil {
			continue // collision, try another suffix
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", apperrors.E(apperrors.KindArtifact, "artifacts.new_version",
				fmt.Errorf("create version directory: %w", err))
		}
		s.logger.Info("allocated model version",
			slog.String("version", version),
			slog.String("dir", dir))
		return version, nil
	}
	return "", apperrors.Ef(apperrors.KindArtifact, "artifacts.new_version",
		"could not allocate a unique version directory after 10 attempts")
}

// VersionDir returns the directory holding one version's artifacts.
func (s *Store) VersionDir(version string) string {
	return filepath.Join(s.interimDir, version)
}

// VersionExists reports whether a version directory is present.
func (s *Store) VersionExists(version string) bool {
	info, err := os.Stat(s.VersionDir(version))
	return err == nil && info.IsDir()
}

// ListVersions returns all known version identifiers, newest first.
func (s *Store) ListVersions() ([]string, error) {
	entries, err := os.ReadDir(s.interimDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read interim directory: %w", err)
	}
	var versions []string
	for _, e := range entries {
		if e.IsDir() {
			versions = append(versions, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(versions)))
	return versions, nil
}

// ModelPath returns the path of the trained model file for a version.
func (s *Store) ModelPath(version string) string {
	return filepath.Join(s.modelsDir, fmt.Sprintf("model_%s.gob", version))
}

func (s *Store) artifactPath(version, name string) string {
	return filepath.Join(s.VersionDir(version), name+".gob")
}

// SaveTable persists the feature table under the given version.
func (s *Store) SaveTable(version string, table *domain.Table) error {
	return s.save(s.artifactPath(version, FeatureTable), table, "feature table")
}

// LoadTable loads the feature table of a version.
func (s *Store) LoadTable(version string) (*domain.Table, error) {
	var table domain.Table
	if err := s.load(s.artifactPath(version, FeatureTable), &table, "feature table"); err != nil {
		return nil, err
	}
	return &table, nil
}

// SaveSeriesSet persists a named target-series container under a version.
func (s *Store) SaveSeriesSet(version, name string, set domain.SeriesSet) error {
	return s.save(s.artifactPath(version, name), set, name)
}

// LoadSeriesSet loads a named target-series container of a version.
func (s *Store) LoadSeriesSet(version, name string) (domain.SeriesSet, error) {
	var set domain.SeriesSet
	if err := s.load(s.artifactPath(version, name), &set, name); err != nil {
		return nil, err
	}
	return set, nil
}

// SaveFrameSet persists a named covariate container under a version.
func (s *Store) SaveFrameSet(version, name string, set domain.FrameSet) error {
	return s.save(s.artifactPath(version, name), set, name)
}

// LoadFrameSet loads a named covariate container of a version.
func (s *Store) LoadFrameSet(version, name string) (domain.FrameSet, error) {
	var set domain.FrameSet
	if err := s.load(s.artifactPath(version, name), &set, name); err != nil {
		return nil, err
	}
	return set, nil
}

// SaveModel persists a trained regressor for a version.
func (s *Store) SaveModel(version string, reg *model.Regressor) error {
	return s.save(s.ModelPath(version), reg, "model")
}

// LoadModel loads the trained regressor of a version.
func (s *Store) LoadModel(version string) (*model.Regressor, error) {
	var reg model.Regressor
	if err := s.load(s.ModelPath(version), &reg, "model"); err != nil {
		return nil, err
	}
	return &reg, nil
}

func (s *Store) save(path string, v any, what string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperrors.E(apperrors.KindArtifact, "artifacts.save",
			fmt.Errorf("create directory for %s: %w", what, err))
	}

	file, err := os.Create(path)
	if err != nil {
		return apperrors.E(apperrors.KindArtifact, "artifacts.save",
			fmt.Errorf("create %s file: %w", what, err))
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(v); err != nil {
		return apperrors.E(apperrors.KindArtifact, "artifacts.save",
			fmt.Errorf("encode %s: %w", what, err))
	}

	s.logger.Debug("saved artifact",
		slog.String("artifact", what),
		slog.String("path", path))
	return nil
}

func (s *Store) load(path string, v any, what string) error {
	file, err := os.Open(path)
	if err != nil {
		return apperrors.E(apperrors.KindArtifact, "artifacts.load",
			fmt.Errorf("open %s: %w", what, err))
	}
	defer file.Close()

	if err := gob.NewDecoder(file).Decode(v); err != nil {
		return apperrors.E(apperrors.KindArtifact, "artifacts.load",
			fmt.Errorf("decode %s: %w", what, err))
	}
	return nil
}
