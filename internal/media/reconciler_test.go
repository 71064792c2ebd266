package media_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/wheelitin-backend/internal/domain/valueobject"
	"github.com/ignatzorin/wheelitin-backend/internal/media"
)

const cdn = "https://cdn.example.com/"

type fakeStore struct {
	mu    sync.Mutex
	calls int
	fail  map[string]bool
}

func (s *fakeStore) Upload(_ context.Context, ref string, kind valueobject.MediaKind) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.fail[ref] {
		return "", errors.New("upload refused")
	}
	return cdn + string(kind) + "/" + strings.TrimPrefix(ref, "raw://"), nil
}

func (s *fakeStore) Owns(ref string) bool {
	return strings.HasPrefix(ref, cdn)
}

type fakeWriter struct {
	mu     sync.Mutex
	writes map[uuid.UUID]media.Outcome
	done   chan struct{}
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{writes: make(map[uuid.UUID]media.Outcome), done: make(chan struct{}, 8)}
}

func (w *fakeWriter) UpdateMedia(_ context.Context, id uuid.UUID, images, videos, warnings []string) error {
	w.mu.Lock()
	w.writes[id] = media.Outcome{Images: images, Videos: videos, Warnings: warnings}
	w.mu.Unlock()
	w.done <- struct{}{}
	return nil
}

func quiet() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestReconcile_AllUploaded(t *testing.T) {
	store := &fakeStore{}
	writer := newFakeWriter()
	r := media.NewReconciler(store, writer, media.Config{}, quiet())

	id := uuid.New()
	out, err := r.Reconcile(context.Background(), media.Job{
		ReportID: id,
		Images:   []string{"raw://a.jpg", "raw://b.jpg"},
		Videos:   []string{"raw://c.mp4"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{cdn + "image/a.jpg", cdn + "image/b.jpg"}, out.Images)
	assert.Equal(t, []string{cdn + "video/c.mp4"}, out.Videos)
	assert.Empty(t, out.Warnings)
	assert.Equal(t, out, writer.writes[id])
}

func TestReconcile_PartialFailureKeepsOriginal(t *testing.T) {
	store := &fakeStore{fail: map[string]bool{"raw://b.jpg": true}}
	writer := newFakeWriter()
	r := media.NewReconciler(store, writer, media.Config{}, quiet())

	out, err := r.Reconcile(context.Background(), media.Job{
		ReportID: uuid.New(),
		Images:   []string{"raw://a.jpg", "raw://b.jpg", "raw://c.jpg"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{cdn + "image/a.jpg", "raw://b.jpg", cdn + "image/c.jpg"}, out.Images)
	require.Len(t, out.Warnings, 1)
	assert.Contains(t, out.Warnings[0], "image 2")
	assert.Empty(t, out.Videos)
}

func TestReconcile_Convergent(t *testing.T) {
	store := &fakeStore{}
	writer := newFakeWriter()
	r := media.NewReconciler(store, writer, media.Config{}, quiet())

	id := uuid.New()
	first, err := r.Reconcile(context.Background(), media.Job{ReportID: id, Images: []string{"raw://a.jpg"}})
	require.NoError(t, err)

	second, err := r.Reconcile(context.Background(), media.Job{ReportID: id, Images: first.Images})
	require.NoError(t, err)

	assert.Equal(t, first.Images, second.Images)
	assert.Equal(t, 1, store.calls)
}

func TestReconciler_QueueAndWorkers(t *testing.T) {
	store := &fakeStore{}
	writer := newFakeWriter()
	r := media.NewReconciler(store, writer, media.Config{Workers: 2, QueueSize: 4}, quiet())
	r.Start(context.Background())

	id := uuid.New()
	require.True(t, r.Enqueue(id, []string{"raw://a.jpg"}, nil))

	select {
	case <-writer.done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not processed")
	}

	r.Stop()
	assert.False(t, r.Enqueue(id, []string{"raw://a.jpg"}, nil))

	writer.mu.Lock()
	defer writer.mu.Unlock()
	assert.Equal(t, []string{cdn + "image/a.jpg"}, writer.writes[id].Images)
}

func TestReconciler_StopFinishesQueuedJobs(t *testing.T) {
	store := &fakeStore{}
	writer := newFakeWriter()
	r := media.NewReconciler(store, writer, media.Config{Workers: 1, QueueSize: 8}, quiet())

	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for _, id := range ids {
		require.True(t, r.Enqueue(id, []string{"raw://" + id.String() + ".jpg"}, nil))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)
	r.Stop()

	writer.mu.Lock()
	defer writer.mu.Unlock()
	assert.Len(t, writer.writes, len(ids))
	for _, id := range ids {
		assert.Equal(t, []string{cdn + "image/" + id.String() + ".jpg"}, writer.writes[id].Images)
	}
}
