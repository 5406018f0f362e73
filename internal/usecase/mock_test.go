package usecase

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hszk-dev/vidshelf/internal/domain/model"
	"github.com/hszk-dev/vidshelf/internal/domain/repository"
	"github.com/hszk-dev/vidshelf/internal/domain/schema"
	"github.com/hszk-dev/vidshelf/internal/transcoder"
)

// mustWriteFile is a test helper that writes a file and fails the test on error.
func mustWriteFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write test file %s: %v", path, err)
	}
}

// tempFile writes data to name inside a fresh temp dir and returns its path.
func tempFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	mustWriteFile(t, path, data)
	return path
}

type memObject struct {
	data         []byte
	contentType  string
	lastModified time.Time
}

// memStorage is an in-memory ObjectStorage with optional per-operation failures.
type memStorage struct {
	mu      sync.Mutex
	objects map[string]memObject
	now     func() time.Time

	uploadErr   func(key string) error
	downloadErr func(key string) error
	listErr     error
	deleted     []string
}

func newMemStorage() *memStorage {
	return &memStorage{
		objects: make(map[string]memObject),
		now:     time.Now,
	}
}

func (m *memStorage) put(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memObject{data: data, lastModified: m.now()}
}

func (m *memStorage) get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key]
	return obj.data, ok
}

func (m *memStorage) has(key string) bool {
	_, ok := m.get(key)
	return ok
}

func (m *memStorage) contentType(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.objects[key].contentType
}

func (m *memStorage) touch(key string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj := m.objects[key]
	obj.lastModified = at
	m.objects[key] = obj
}

func (m *memStorage) GeneratePresignedDownloadURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return "https://signed.example/" + key + "?expires=" + expiry.String(), nil
}

func (m *memStorage) Upload(ctx context.Context, key string, reader io.Reader, contentType string) error {
	if m.uploadErr != nil {
		if err := m.uploadErr(key); err != nil {
			return err
		}
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memObject{data: data, contentType: contentType, lastModified: m.now()}
	return nil
}

func (m *memStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	if m.downloadErr != nil {
		if err := m.downloadErr(key); err != nil {
			return nil, err
		}
	}
	data, ok := m.get(key)
	if !ok {
		return nil, repository.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memStorage) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	return nil
}

func (m *memStorage) Exists(ctx context.Context, key string) (bool, error) {
	return m.has(key), nil
}

func (m *memStorage) Stat(ctx context.Context, key string) (*repository.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, repository.ErrObjectNotFound
	}
	return &repository.ObjectInfo{
		Key:          key,
		Size:         int64(len(obj.data)),
		ContentType:  obj.contentType,
		LastModified: obj.lastModified,
	}, nil
}

func (m *memStorage) List(ctx context.Context, prefix string, recursive bool) ([]repository.ObjectInfo, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []repository.ObjectInfo
	for key, obj := range m.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if !recursive && strings.Contains(key[len(prefix):], "/") {
			continue
		}
		out = append(out, repository.ObjectInfo{Key: key, Size: int64(len(obj.data)), LastModified: obj.lastModified})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *memStorage) ListPrefixes(ctx context.Context, prefix string) ([]string, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[string]bool)
	for key := range m.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := key[len(prefix):]
		if i := strings.Index(rest, "/"); i >= 0 {
			seen[prefix+rest[:i+1]] = true
		}
	}

	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

// mockJobRepository is an in-memory QualityJobRepository.
type mockJobRepository struct {
	mu        sync.Mutex
	jobs      map[uuid.UUID]model.QualityJob
	createErr error
	updateErr error
}

func newMockJobRepository() *mockJobRepository {
	return &mockJobRepository{jobs: make(map[uuid.UUID]model.QualityJob)}
}

func (m *mockJobRepository) Create(ctx context.Context, job *model.QualityJob) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.ID]; ok {
		return repository.ErrDuplicateJob
	}
	m.jobs[job.ID] = *job
	return nil
}

func (m *mockJobRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.QualityJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, repository.ErrJobNotFound
	}
	return &job, nil
}

func (m *mockJobRepository) GetLatest(ctx context.Context, user, videoID string) (*model.QualityJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *model.QualityJob
	for _, job := range m.jobs {
		if job.UserID != user || job.VideoID != videoID {
			continue
		}
		if latest == nil || job.CreatedAt.After(latest.CreatedAt) {
			j := job
			latest = &j
		}
	}
	if latest == nil {
		return nil, repository.ErrJobNotFound
	}
	return latest, nil
}

func (m *mockJobRepository) Update(ctx context.Context, job *model.QualityJob) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.ID]; !ok {
		return repository.ErrJobNotFound
	}
	m.jobs[job.ID] = *job
	return nil
}

func (m *mockJobRepository) ListByStatus(ctx context.Context, status model.JobStatus, limit int) ([]*model.QualityJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.QualityJob
	for _, job := range m.jobs {
		if job.Status == status {
			j := job
			out = append(out, &j)
		}
	}
	return out, nil
}

func (m *mockJobRepository) only(t *testing.T) model.QualityJob {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.jobs) != 1 {
		t.Fatalf("expected exactly one job, got %d", len(m.jobs))
	}
	for _, job := range m.jobs {
		return job
	}
	return model.QualityJob{}
}

// mockMessageQueue provides a configurable mock for MessageQueue.
type mockMessageQueue struct {
	mu                    sync.Mutex
	published             []repository.QualityTask
	publishQualityTaskFn  func(ctx context.Context, task repository.QualityTask) error
	consumeQualityTasksFn func(ctx context.Context, handler func(task repository.QualityTask) error) error
}

func (m *mockMessageQueue) PublishQualityTask(ctx context.Context, task repository.QualityTask) error {
	if m.publishQualityTaskFn != nil {
		if err := m.publishQualityTaskFn(ctx, task); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, task)
	return nil
}

func (m *mockMessageQueue) ConsumeQualityTasks(ctx context.Context, handler func(task repository.QualityTask) error) error {
	if m.consumeQualityTasksFn != nil {
		return m.consumeQualityTasksFn(ctx, handler)
	}
	return nil
}

func (m *mockMessageQueue) Close() error {
	return nil
}

// mockTranscoder provides a configurable mock for Transcoder.
// Without transcodeFn it writes a small file named after the preset.
type mockTranscoder struct {
	mu          sync.Mutex
	calls       []string
	transcodeFn func(ctx context.Context, inputPath, outputDir string, preset model.QualityPreset) (string, error)
}

func (m *mockTranscoder) TranscodeToPreset(ctx context.Context, inputPath, outputDir string, preset model.QualityPreset) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, preset.Label)
	m.mu.Unlock()

	if m.transcodeFn != nil {
		return m.transcodeFn(ctx, inputPath, outputDir, preset)
	}
	out := filepath.Join(outputDir, preset.Label+".mp4")
	if err := os.WriteFile(out, []byte("rendition "+preset.Label), 0644); err != nil {
		return "", err
	}
	return out, nil
}

// mockProber provides a configurable mock for Prober.
type mockProber struct {
	probeFn func(ctx context.Context, path string) (*transcoder.MediaInfo, error)
}

func (m *mockProber) Probe(ctx context.Context, path string) (*transcoder.MediaInfo, error) {
	if m.probeFn != nil {
		return m.probeFn(ctx, path)
	}
	return &transcoder.MediaInfo{Width: 1920, Height: 1080, Codec: "h264", Duration: 95, FrameRate: 30}, nil
}

// mockInvalidator counts catalog invalidations.
type mockInvalidator struct {
	mu    sync.Mutex
	count int
}

func (m *mockInvalidator) Invalidate(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count++
	return nil
}

func (m *mockInvalidator) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}

// mockRecordCache is a map-backed RecordCache.
type mockRecordCache struct {
	mu       sync.Mutex
	data     map[string]*model.VideoRecord
	getErr   error
	deletes  int
	getCalls int
}

func newMockRecordCache() *mockRecordCache {
	return &mockRecordCache{data: make(map[string]*model.VideoRecord)}
}

func (m *mockRecordCache) Get(ctx context.Context, user, videoID string) (*model.VideoRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.data[user+"/"+videoID], nil
}

func (m *mockRecordCache) Set(ctx context.Context, record *model.VideoRecord, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *record
	m.data[record.UserID+"/"+record.VideoID] = &copied
	return nil
}

func (m *mockRecordCache) Delete(ctx context.Context, user, videoID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	delete(m.data, user+"/"+videoID)
	return nil
}

// fixedClock returns a clock frozen at t.
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// newTestStore builds a recordStore over storage with synchronous background work.
func newTestStore(t *testing.T, storage *memStorage, inv CatalogInvalidator) *recordStore {
	t.Helper()
	avatar := tempFile(t, "default_avatar.png", []byte("png"))
	cfg := DefaultRecordStoreConfig()
	cfg.DefaultAvatarPath = avatar

	s := newRecordStore(storage, &mockProber{}, NewSigner(storage), inv, schema.MustNewValidator(), cfg)
	s.now = fixedClock(time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC))
	s.placeholderDuration = func() string { return "07:07" }
	s.runAsync = func(fn func()) { fn() }
	return s
}
