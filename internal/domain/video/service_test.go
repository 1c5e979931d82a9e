package video

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mediclass/mediclass/internal/platform/blobstore"
)

type likeKey struct {
	video  uuid.UUID
	viewer uuid.UUID
}

type mockRepo struct {
	videos    map[uuid.UUID]*Video
	likes     map[likeKey]bool
	createErr error
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		videos: make(map[uuid.UUID]*Video),
		likes:  make(map[likeKey]bool),
	}
}

func (m *mockRepo) Create(_ context.Context, v *Video) error {
	if m.createErr != nil {
		return m.createErr
	}
	v.ID = uuid.New()
	v.CreatedAt = time.Now()
	v.UpdatedAt = v.CreatedAt
	m.videos[v.ID] = v
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id, viewerID uuid.UUID) (*Video, error) {
	v, ok := m.videos[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *v
	cp.Liked = m.likes[likeKey{id, viewerID}]
	cp.LikeCount = m.likeCount(id)
	return &cp, nil
}

func (m *mockRepo) UpdateMeta(_ context.Context, id uuid.UUID, title, description *string) error {
	v, ok := m.videos[id]
	if !ok {
		return ErrNotFound
	}
	if title != nil {
		v.Title = *title
	}
	if description != nil {
		v.Description = *description
	}
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.videos[id]; !ok {
		return ErrNotFound
	}
	delete(m.videos, id)
	return nil
}

func (m *mockRepo) List(_ context.Context, viewerID uuid.UUID, doctorID *uuid.UUID, limit, offset int) ([]*Video, int, error) {
	var out []*Video
	for id, v := range m.videos {
		if doctorID != nil && v.DoctorID != *doctorID {
			continue
		}
		cp := *v
		cp.Liked = m.likes[likeKey{id, viewerID}]
		cp.LikeCount = m.likeCount(id)
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (m *mockRepo) IncrementViews(_ context.Context, id uuid.UUID) error {
	v, ok := m.videos[id]
	if !ok {
		return ErrNotFound
	}
	v.ViewCount++
	return nil
}

func (m *mockRepo) ToggleLike(_ context.Context, id, viewerID uuid.UUID) (bool, int, error) {
	k := likeKey{id, viewerID}
	if m.likes[k] {
		delete(m.likes, k)
	} else {
		m.likes[k] = true
	}
	return m.likes[k], m.likeCount(id), nil
}

func (m *mockRepo) likeCount(id uuid.UUID) int {
	n := 0
	for k := range m.likes {
		if k.video == id {
			n++
		}
	}
	return n
}

func newTestService() (*Service, *mockRepo, *blobstore.InMemoryBlobStore) {
	repo := newMockRepo()
	blobs := blobstore.NewInMemoryBlobStore()
	return NewService(repo, blobs, zerolog.Nop()), repo, blobs
}

func uploadRequest() UploadRequest {
	return UploadRequest{
		Title:       "Comprendre l'hypertension",
		Description: "Les bases en dix minutes",
		FileName:    "hypertension.mp4",
		ContentType: "video/mp4",
		Content:     strings.NewReader("fake mp4 payload"),
	}
}

func TestPublish(t *testing.T) {
	svc, repo, blobs := newTestService()
	doctor := uuid.New()

	v, err := svc.Publish(context.Background(), doctor, uploadRequest())
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if v.VideoURL == "" {
		t.Error("public URL must be filled in")
	}
	if blobs.Len() != 1 {
		t.Errorf("expected 1 stored blob, got %d", blobs.Len())
	}
	if len(repo.videos) != 1 {
		t.Errorf("expected 1 video row, got %d", len(repo.videos))
	}
	if !strings.HasPrefix(v.VideoKey, "videos/"+doctor.String()+"/") {
		t.Errorf("key must be scoped to the owner: %s", v.VideoKey)
	}
}

func TestPublishWithThumbnail(t *testing.T) {
	svc, _, blobs := newTestService()
	req := uploadRequest()
	req.ThumbnailName = "cover.jpg"
	req.ThumbnailContentType = "image/jpeg"
	req.Thumbnail = strings.NewReader("fake jpeg")

	v, err := svc.Publish(context.Background(), uuid.New(), req)
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if v.ThumbnailKey == nil || v.ThumbnailURL == "" {
		t.Error("thumbnail must be stored and exposed")
	}
	if blobs.Len() != 2 {
		t.Errorf("expected video plus thumbnail, got %d blobs", blobs.Len())
	}
}

func TestPublishCleansUpOnRowFailure(t *testing.T) {
	svc, repo, blobs := newTestService()
	repo.createErr = fmt.Errorf("insert failed")

	req := uploadRequest()
	req.ThumbnailName = "cover.jpg"
	req.ThumbnailContentType = "image/jpeg"
	req.Thumbnail = strings.NewReader("fake jpeg")

	if _, err := svc.Publish(context.Background(), uuid.New(), req); err == nil {
		t.Fatal("expected failure")
	}
	if blobs.Len() != 0 {
		t.Errorf("orphan blobs must be deleted, %d left", blobs.Len())
	}
}

func TestPublishRequiresTitle(t *testing.T) {
	svc, _, blobs := newTestService()
	req := uploadRequest()
	req.Title = ""
	if _, err := svc.Publish(context.Background(), uuid.New(), req); err == nil {
		t.Fatal("expected validation error")
	}
	if blobs.Len() != 0 {
		t.Error("nothing may be uploaded before validation")
	}
}

func TestWatchCountsView(t *testing.T) {
	svc, _, _ := newTestService()
	doctor := uuid.New()
	v, err := svc.Publish(context.Background(), doctor, uploadRequest())
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	viewer := uuid.New()
	got, err := svc.Watch(context.Background(), viewer, v.ID)
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	if got.ViewCount != 1 {
		t.Errorf("expected view count 1, got %d", got.ViewCount)
	}
	got, err = svc.Watch(context.Background(), viewer, v.ID)
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	if got.ViewCount != 2 {
		t.Errorf("expected view count 2, got %d", got.ViewCount)
	}
}

func TestUpdateMetaOwnerOnly(t *testing.T) {
	svc, _, _ := newTestService()
	owner := uuid.New()
	v, err := svc.Publish(context.Background(), owner, uploadRequest())
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	title := "Nouveau titre"
	got, err := svc.UpdateMeta(context.Background(), owner, v.ID, &title, nil)
	if err != nil {
		t.Fatalf("UpdateMeta failed: %v", err)
	}
	if got.Title != "Nouveau titre" {
		t.Errorf("title not applied: %q", got.Title)
	}
	if got.Description != "Les bases en dix minutes" {
		t.Errorf("omitted description must keep its value: %q", got.Description)
	}

	if _, err := svc.UpdateMeta(context.Background(), uuid.New(), v.ID, &title, nil); err != ErrNotAuthorized {
		t.Errorf("expected ErrNotAuthorized, got %v", err)
	}
}

func TestRemoveDeletesRowAndBlobs(t *testing.T) {
	svc, repo, blobs := newTestService()
	owner := uuid.New()
	req := uploadRequest()
	req.ThumbnailName = "cover.jpg"
	req.ThumbnailContentType = "image/jpeg"
	req.Thumbnail = strings.NewReader("fake jpeg")
	v, err := svc.Publish(context.Background(), owner, req)
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	if err := svc.Remove(context.Background(), uuid.New(), v.ID); err != ErrNotAuthorized {
		t.Errorf("expected ErrNotAuthorized, got %v", err)
	}
	if err := svc.Remove(context.Background(), owner, v.ID); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if len(repo.videos) != 0 {
		t.Error("video row must be gone")
	}
	if blobs.Len() != 0 {
		t.Errorf("media must be gone, %d blobs left", blobs.Len())
	}
}

func TestToggleLike(t *testing.T) {
	svc, _, _ := newTestService()
	v, err := svc.Publish(context.Background(), uuid.New(), uploadRequest())
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	viewer := uuid.New()
	liked, count, err := svc.ToggleLike(context.Background(), viewer, v.ID)
	if err != nil {
		t.Fatalf("ToggleLike failed: %v", err)
	}
	if !liked || count != 1 {
		t.Errorf("first toggle: liked=%v count=%d", liked, count)
	}

	liked, count, err = svc.ToggleLike(context.Background(), viewer, v.ID)
	if err != nil {
		t.Fatalf("ToggleLike failed: %v", err)
	}
	if liked || count != 0 {
		t.Errorf("second toggle: liked=%v count=%d", liked, count)
	}

	if _, _, err := svc.ToggleLike(context.Background(), viewer, uuid.New()); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListFiltersByDoctor(t *testing.T) {
	svc, _, _ := newTestService()
	docA := uuid.New()
	docB := uuid.New()
	for i := 0; i < 2; i++ {
		if _, err := svc.Publish(context.Background(), docA, uploadRequest()); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
	}
	if _, err := svc.Publish(context.Background(), docB, uploadRequest()); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	items, total, err := svc.List(context.Background(), uuid.New(), &docA, 20, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 2 || total != 2 {
		t.Errorf("doctor filter: got %d items (total %d)", len(items), total)
	}
	for _, v := range items {
		if v.VideoURL == "" {
			t.Error("listed videos must carry public URLs")
		}
	}

	items, total, err = svc.List(context.Background(), uuid.New(), nil, 20, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 3 || total != 3 {
		t.Errorf("unfiltered: got %d items (total %d)", len(items), total)
	}
}
