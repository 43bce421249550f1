package detections

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pavanborigi/deepfake-detect/internal/application"
	domain "github.com/pavanborigi/deepfake-detect/internal/domain/detections"
	"github.com/pavanborigi/deepfake-detect/internal/domain/faults"
)

// Service implements use-cases untuk detections.
// Service is designed to be used concurrently and is thread-safe.
type Service struct {
	Repo      domain.Repository
	Media     domain.ObjectStore
	Detector  domain.Detector
	Faults    faults.Repository // optional, best-effort failure audit
	Cache     *Cache
	Clock     application.Clock
	ModelName string

	mu       sync.Mutex
	attempts uint64
	current  map[string]uint64                     // owner -> active attempt
	snaps    map[string]*domain.SubmissionSnapshot // owner -> UI snapshot
}

//
// ==== USE CASES ====
//

// Command untuk submit media
type SubmitCommand struct {
	OwnerID     string
	FileName    string
	ContentType string
	SizeBytes   int64
	File        io.ReadSeeker
}

// Submit runs the full pipeline: upload -> inference -> persist -> cache
// invalidation. Exactly one of Complete/Failed is reached; a replacement
// submit for the same owner supersedes this one, and every step result is
// applied only if this attempt is still the owner's current one. In-flight
// network calls of a superseded attempt are not aborted, their results are
// just discarded on resume.
func (s *Service) Submit(ctx context.Context, cmd SubmitCommand) (*domain.DetectionRecord, error) {
	if cmd.OwnerID == "" {
		// fail fast, no network call and no side effects
		return nil, &domain.PipelineError{Stage: domain.StageAuth, Err: domain.ErrNoSession}
	}

	attempt := s.begin(cmd.OwnerID, cmd.FileName)

	// Uploading
	key := fmt.Sprintf("%s/%d%s", cmd.OwnerID, s.Clock.Now().UnixNano(), filepath.Ext(cmd.FileName))
	mediaURL, err := s.Media.Upload(ctx, cmd.File, key, cmd.ContentType, cmd.SizeBytes)
	if err != nil {
		return nil, s.fail(ctx, cmd, attempt, domain.StageUpload, err)
	}
	if !s.advance(cmd.OwnerID, attempt, domain.StateInferring) {
		return nil, domain.ErrSuperseded
	}

	// Inferring: same local file as the upload, not the stored copy
	if _, err := cmd.File.Seek(0, io.SeekStart); err != nil {
		return nil, s.fail(ctx, cmd, attempt, domain.StageInfer, err)
	}
	pred, err := s.Detector.Classify(ctx, cmd.FileName, cmd.File)
	if err != nil {
		// the uploaded object stays behind as an accepted orphan
		return nil, s.fail(ctx, cmd, attempt, domain.StageInfer, err)
	}
	if !s.advance(cmd.OwnerID, attempt, domain.StatePersisting) {
		return nil, domain.ErrSuperseded
	}

	// Persisting
	in := domain.CreateInput{
		OwnerID:           cmd.OwnerID,
		FileName:          cmd.FileName,
		FileType:          fileTypeOf(cmd.ContentType),
		FileSizeBytes:     cmd.SizeBytes,
		MediaURL:          mediaURL,
		Classification:    domain.ClassificationFromLabel(pred.Label),
		ConfidencePercent: toPercent(pred.Confidence),
		Details: &domain.AnalysisDetails{
			RealProbabilityPercent: toPercent(pred.RealProbability),
			FakeProbabilityPercent: toPercent(pred.FakeProbability),
			ModelName:              s.ModelName,
			ProcessedAt:            s.Clock.Now(),
		},
	}
	rec, err := s.Repo.Create(ctx, in)
	if err != nil {
		return nil, s.fail(ctx, cmd, attempt, domain.StagePersist, err)
	}

	if !s.complete(cmd.OwnerID, attempt, rec) {
		// record exists but a newer attempt owns the session now
		return nil, domain.ErrSuperseded
	}
	s.Cache.Invalidate(cmd.OwnerID)

	// the record is fully known here, no need to force a cache re-read
	return rec, nil
}

// SelectFile resets the state machine to FileSelected and abandons any
// in-flight attempt for the owner.
func (s *Service) SelectFile(ownerID, fileName string) domain.SubmissionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	s.ensureMaps()
	s.current[ownerID] = s.attempts
	snap := &domain.SubmissionSnapshot{
		Attempt:   s.attempts,
		State:     domain.StateFileSelected,
		FileName:  fileName,
		UpdatedAt: s.Clock.Now(),
	}
	s.snaps[ownerID] = snap
	return *snap
}

// Snapshot returns the owner's current submission state for rendering.
func (s *Service) Snapshot(ownerID string) domain.SubmissionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap, ok := s.snaps[ownerID]; ok {
		return *snap
	}
	return domain.SubmissionSnapshot{State: domain.StateIdle}
}

// History returns the cached record list for the owner, newest first.
func (s *Service) History(ctx context.Context, ownerID string) ([]*domain.DetectionRecord, error) {
	if ownerID == "" {
		return nil, &domain.PipelineError{Stage: domain.StageAuth, Err: domain.ErrNoSession}
	}
	return s.Cache.Read(ctx, ownerID)
}

// Paginate fetches a history page straight from the store, bypassing the cache.
func (s *Service) Paginate(ctx context.Context, ownerID string, page, pageSize int, result domain.Classification) (domain.PaginatedResult, error) {
	return s.Repo.Paginate(ctx, ownerID, page, pageSize, result)
}

// Summary rekap total/real/fake untuk dashboard
func (s *Service) Summary(ctx context.Context, ownerID string) (domain.Summary, error) {
	return s.Repo.Summary(ctx, ownerID)
}

// ListFaults returns the owner's recent submission failures.
func (s *Service) ListFaults(ctx context.Context, ownerID string, limit int) ([]*faults.SubmissionFault, error) {
	if s.Faults == nil {
		return nil, nil
	}
	return s.Faults.ListByOwner(ctx, ownerID, limit)
}

// Delete removes a record and invalidates the owner's cache entry after the
// store acknowledged the delete.
func (s *Service) Delete(ctx context.Context, ownerID string, id domain.DetectionID) error {
	if err := s.Repo.Delete(ctx, ownerID, id); err != nil {
		return err
	}
	s.Cache.Invalidate(ownerID)
	return nil
}

//
// ==== state machine internals ====
//

func (s *Service) ensureMaps() {
	if s.current == nil {
		s.current = make(map[string]uint64)
		s.snaps = make(map[string]*domain.SubmissionSnapshot)
	}
}

// begin claims a fresh attempt id for the owner and enters Uploading.
func (s *Service) begin(ownerID, fileName string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	s.ensureMaps()
	s.current[ownerID] = s.attempts
	s.snaps[ownerID] = &domain.SubmissionSnapshot{
		Attempt:   s.attempts,
		State:     domain.StateUploading,
		FileName:  fileName,
		UpdatedAt: s.Clock.Now(),
	}
	return s.attempts
}

// advance moves the state machine forward iff attempt is still current.
func (s *Service) advance(ownerID string, attempt uint64, state domain.SubmissionState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current[ownerID] != attempt {
		return false
	}
	snap := s.snaps[ownerID]
	snap.State = state
	snap.UpdatedAt = s.Clock.Now()
	return true
}

func (s *Service) complete(ownerID string, attempt uint64, rec *domain.DetectionRecord) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current[ownerID] != attempt {
		return false
	}
	snap := s.snaps[ownerID]
	snap.State = domain.StateComplete
	snap.Record = rec
	snap.UpdatedAt = s.Clock.Now()
	return true
}

// fail records the terminal failure and returns the wrapped pipeline error.
// The fault audit row is written even for superseded attempts; the UI
// snapshot only changes when the attempt is still current.
func (s *Service) fail(ctx context.Context, cmd SubmitCommand, attempt uint64, stage domain.Stage, cause error) error {
	s.mu.Lock()
	if s.current[cmd.OwnerID] == attempt {
		snap := s.snaps[cmd.OwnerID]
		snap.State = domain.StateFailed
		snap.FailedStage = stage
		snap.Cause = cause.Error()
		snap.UpdatedAt = s.Clock.Now()
	}
	s.mu.Unlock()

	if s.Faults != nil {
		details, _ := json.Marshal(map[string]any{
			"file_size": cmd.SizeBytes,
			"mime":      cmd.ContentType,
		})
		_ = s.Faults.Save(ctx, &faults.SubmissionFault{
			OwnerID:     cmd.OwnerID,
			Attempt:     attempt,
			Stage:       string(stage),
			FileName:    cmd.FileName,
			Message:     cause.Error(),
			DetailsJSON: string(details),
			CreatedAt:   s.Clock.Now(),
		})
	}

	return &domain.PipelineError{Stage: stage, Err: cause}
}

//
// ==== helpers ====
//

// toPercent converts a [0,1] probability to a percentage with one decimal.
func toPercent(p float64) float64 {
	return math.Round(p*1000) / 10
}

func fileTypeOf(contentType string) domain.FileType {
	if strings.HasPrefix(contentType, "video") {
		return domain.FileTypeVideo
	}
	return domain.FileTypeImage
}
