package detections

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/pavanborigi/deepfake-detect/internal/domain/detections"
	"github.com/pavanborigi/deepfake-detect/internal/domain/faults"
)

//
// ==== fakes ====
//

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

type fakeStore struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (s *fakeStore) Upload(_ context.Context, _ io.Reader, key, _ string, _ int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.keys = append(s.keys, key)
	return "http://media.local/scans/" + key, nil
}

func (s *fakeStore) uploaded() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.keys...)
}

type fakeDetector struct {
	mu    sync.Mutex
	calls int
	pred  domain.Prediction
	err   error

	// when set, the first Classify call signals entered and then waits on
	// release before returning
	entered chan struct{}
	release chan struct{}
}

func (d *fakeDetector) Classify(_ context.Context, _ string, _ io.Reader) (domain.Prediction, error) {
	d.mu.Lock()
	d.calls++
	first := d.calls == 1
	entered, release := d.entered, d.release
	d.mu.Unlock()

	if first && entered != nil {
		entered <- struct{}{}
		<-release
	}
	if d.err != nil {
		return domain.Prediction{}, d.err
	}
	return d.pred, nil
}

func (d *fakeDetector) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

type fakeRepo struct {
	mu        sync.Mutex
	seq       int
	records   []*domain.DetectionRecord // newest first
	createErr error
	lists     int
}

func (r *fakeRepo) Create(_ context.Context, in domain.CreateInput) (*domain.DetectionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.seq++
	rec := &domain.DetectionRecord{
		ID:                domain.DetectionID(fmt.Sprintf("00000000-0000-0000-0000-%012d", r.seq)),
		OwnerID:           in.OwnerID,
		FileName:          in.FileName,
		FileType:          in.FileType,
		FileSizeBytes:     in.FileSizeBytes,
		MediaURL:          in.MediaURL,
		Classification:    in.Classification,
		ConfidencePercent: in.ConfidencePercent,
		Details:           in.Details,
		CreatedAt:         time.Now().UTC(),
	}
	r.records = append([]*domain.DetectionRecord{rec}, r.records...)
	return rec, nil
}

func (r *fakeRepo) ListByOwner(_ context.Context, ownerID string) ([]*domain.DetectionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lists++
	out := make([]*domain.DetectionRecord, 0, len(r.records))
	for _, rec := range r.records {
		if rec.OwnerID == ownerID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *fakeRepo) Delete(_ context.Context, ownerID string, id domain.DetectionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, rec := range r.records {
		if rec.OwnerID == ownerID && rec.ID == id {
			r.records = append(r.records[:i], r.records[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (r *fakeRepo) Summary(_ context.Context, ownerID string) (domain.Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var s domain.Summary
	for _, rec := range r.records {
		if rec.OwnerID != ownerID {
			continue
		}
		s.TotalScans++
		if rec.Classification == domain.ClassificationReal {
			s.RealDetected++
		} else {
			s.FakeDetected++
		}
	}
	return s, nil
}

func (r *fakeRepo) Paginate(_ context.Context, _ string, page, pageSize int, _ domain.Classification) (domain.PaginatedResult, error) {
	return domain.PaginatedResult{Page: page, PageSize: pageSize}, nil
}

func (r *fakeRepo) createCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seq
}

type fakeFaults struct {
	mu    sync.Mutex
	saved []*faults.SubmissionFault
}

func (f *fakeFaults) Save(_ context.Context, fault *faults.SubmissionFault) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, fault)
	return nil
}

func (f *fakeFaults) ListByOwner(_ context.Context, ownerID string, _ int) ([]*faults.SubmissionFault, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*faults.SubmissionFault, 0)
	for _, fa := range f.saved {
		if fa.OwnerID == ownerID {
			out = append(out, fa)
		}
	}
	return out, nil
}

type testEnv struct {
	svc      *Service
	repo     *fakeRepo
	store    *fakeStore
	detector *fakeDetector
	faults   *fakeFaults
}

func newTestService(t *testing.T) *testEnv {
	t.Helper()
	repo := &fakeRepo{}
	store := &fakeStore{}
	detector := &fakeDetector{pred: domain.Prediction{
		Label:           "fake",
		Confidence:      0.947,
		RealProbability: 0.053,
		FakeProbability: 0.947,
	}}
	fa := &fakeFaults{}
	svc := &Service{
		Repo:      repo,
		Media:     store,
		Detector:  detector,
		Faults:    fa,
		Cache:     NewCache(repo.ListByOwner),
		Clock:     &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
		ModelName: "MobileNetV3-Small",
	}
	return &testEnv{svc: svc, repo: repo, store: store, detector: detector, faults: fa}
}

func submitCmd(owner string) SubmitCommand {
	return SubmitCommand{
		OwnerID:     owner,
		FileName:    "clip.mp4",
		ContentType: "video/mp4",
		SizeBytes:   1024,
		File:        strings.NewReader("video-bytes"),
	}
}

//
// ==== tests ====
//

func TestSubmit_FullPipeline(t *testing.T) {
	env := newTestService(t)

	rec, err := env.svc.Submit(context.Background(), submitCmd("alice"))
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, "alice", rec.OwnerID)
	assert.Equal(t, "clip.mp4", rec.FileName)
	assert.Equal(t, domain.FileTypeVideo, rec.FileType)
	assert.Equal(t, domain.ClassificationFake, rec.Classification)
	assert.InDelta(t, 94.7, rec.ConfidencePercent, 0.001)
	require.NotNil(t, rec.Details)
	assert.InDelta(t, 5.3, rec.Details.RealProbabilityPercent, 0.001)
	assert.InDelta(t, 94.7, rec.Details.FakeProbabilityPercent, 0.001)
	assert.Equal(t, "MobileNetV3-Small", rec.Details.ModelName)

	// storage key is owner-scoped and keeps the file extension
	keys := env.store.uploaded()
	require.Len(t, keys, 1)
	assert.True(t, strings.HasPrefix(keys[0], "alice/"))
	assert.True(t, strings.HasSuffix(keys[0], ".mp4"))
	assert.True(t, strings.HasPrefix(rec.MediaURL, "http://media.local/scans/alice/"))

	snap := env.svc.Snapshot("alice")
	assert.Equal(t, domain.StateComplete, snap.State)
	require.NotNil(t, snap.Record)
	assert.Equal(t, rec.ID, snap.Record.ID)
	assert.True(t, snap.State.Terminal())

	// the new record is visible through the cache
	recs, err := env.svc.History(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, rec.ID, recs[0].ID)
}

func TestSubmit_NoSession(t *testing.T) {
	env := newTestService(t)

	_, err := env.svc.Submit(context.Background(), submitCmd(""))
	require.Error(t, err)
	require.ErrorIs(t, err, domain.ErrNoSession)
	assert.Equal(t, domain.StageAuth, domain.StageOf(err))

	// fail fast means zero side effects
	assert.Empty(t, env.store.uploaded())
	assert.Equal(t, 0, env.detector.callCount())
	assert.Equal(t, 0, env.repo.createCount())
}

func TestSubmit_UploadFailure(t *testing.T) {
	env := newTestService(t)
	env.store.err = errors.New("bucket unavailable")

	_, err := env.svc.Submit(context.Background(), submitCmd("alice"))
	require.Error(t, err)
	assert.Equal(t, domain.StageUpload, domain.StageOf(err))

	// the pipeline stops before inference and persistence
	assert.Equal(t, 0, env.detector.callCount())
	assert.Equal(t, 0, env.repo.createCount())

	snap := env.svc.Snapshot("alice")
	assert.Equal(t, domain.StateFailed, snap.State)
	assert.Equal(t, domain.StageUpload, snap.FailedStage)
	assert.Contains(t, snap.Cause, "bucket unavailable")

	list, err := env.faults.ListByOwner(context.Background(), "alice", 20)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "upload", list[0].Stage)
	assert.Equal(t, "clip.mp4", list[0].FileName)
}

func TestSubmit_InferenceFailure(t *testing.T) {
	env := newTestService(t)
	env.detector.err = domain.ErrUnreachable

	_, err := env.svc.Submit(context.Background(), submitCmd("alice"))
	require.Error(t, err)
	require.ErrorIs(t, err, domain.ErrUnreachable)
	assert.Equal(t, domain.StageInfer, domain.StageOf(err))

	// the uploaded object stays behind, nothing is persisted
	assert.Len(t, env.store.uploaded(), 1)
	assert.Equal(t, 0, env.repo.createCount())

	snap := env.svc.Snapshot("alice")
	assert.Equal(t, domain.StateFailed, snap.State)
	assert.Equal(t, domain.StageInfer, snap.FailedStage)
}

func TestSubmit_PersistFailure(t *testing.T) {
	env := newTestService(t)
	env.repo.createErr = errors.New("deadlock detected")

	_, err := env.svc.Submit(context.Background(), submitCmd("alice"))
	require.Error(t, err)
	assert.Equal(t, domain.StagePersist, domain.StageOf(err))

	snap := env.svc.Snapshot("alice")
	assert.Equal(t, domain.StateFailed, snap.State)
	assert.Equal(t, domain.StagePersist, snap.FailedStage)
}

func TestSubmit_SupersededAttempt(t *testing.T) {
	env := newTestService(t)
	env.detector.entered = make(chan struct{}, 1)
	env.detector.release = make(chan struct{})

	// attempt A suspends inside inference
	aErr := make(chan error, 1)
	go func() {
		_, err := env.svc.Submit(context.Background(), submitCmd("alice"))
		aErr <- err
	}()
	<-env.detector.entered

	// attempt B starts and finishes while A is suspended
	cmdB := submitCmd("alice")
	cmdB.FileName = "other.mp4"
	recB, err := env.svc.Submit(context.Background(), cmdB)
	require.NoError(t, err)

	// A resumes, notices it was superseded and discards its result
	close(env.detector.release)
	require.ErrorIs(t, <-aErr, domain.ErrSuperseded)

	// only B reached the store
	assert.Equal(t, 1, env.repo.createCount())
	snap := env.svc.Snapshot("alice")
	assert.Equal(t, domain.StateComplete, snap.State)
	require.NotNil(t, snap.Record)
	assert.Equal(t, recB.ID, snap.Record.ID)

	recs, err := env.svc.History(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, recB.ID, recs[0].ID)
}

func TestSelectFile_ResetsState(t *testing.T) {
	env := newTestService(t)

	snap := env.svc.SelectFile("alice", "next.jpg")
	assert.Equal(t, domain.StateFileSelected, snap.State)
	assert.Equal(t, "next.jpg", snap.FileName)
	assert.False(t, snap.State.Terminal())

	got := env.svc.Snapshot("alice")
	assert.Equal(t, snap.Attempt, got.Attempt)
	assert.Equal(t, domain.StateFileSelected, got.State)
}

func TestSnapshot_DefaultIdle(t *testing.T) {
	env := newTestService(t)
	snap := env.svc.Snapshot("nobody")
	assert.Equal(t, domain.StateIdle, snap.State)
	assert.Zero(t, snap.Attempt)
}

func TestDelete_InvalidatesCache(t *testing.T) {
	env := newTestService(t)

	rec, err := env.svc.Submit(context.Background(), submitCmd("alice"))
	require.NoError(t, err)

	recs, err := env.svc.History(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, recs, 1)

	require.NoError(t, env.svc.Delete(context.Background(), "alice", rec.ID))

	recs, err = env.svc.History(context.Background(), "alice")
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestDelete_UnknownRecord(t *testing.T) {
	env := newTestService(t)
	err := env.svc.Delete(context.Background(), "alice", "00000000-0000-0000-0000-000000000099")
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestToPercent(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0.947, 94.7},
		{0.5, 50},
		{0.004, 0.4},
		{0.0449, 4.5},
		{1, 100},
		{0, 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, toPercent(tt.in), 0.0001, "toPercent(%v)", tt.in)
	}
}

func TestFileTypeOf(t *testing.T) {
	assert.Equal(t, domain.FileTypeVideo, fileTypeOf("video/mp4"))
	assert.Equal(t, domain.FileTypeImage, fileTypeOf("image/png"))
	assert.Equal(t, domain.FileTypeImage, fileTypeOf("application/octet-stream"))
}
