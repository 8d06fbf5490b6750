package services

import (
	"context"
	"errors"
	"testing"

	"github.com/mexonis/quickchat-backend/internal/domain"
)

// fakeBlobStore records uploads and returns deterministic URLs.
type fakeBlobStore struct {
	uploads map[string][]byte
	err     error
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{uploads: make(map[string][]byte)}
}

func (f *fakeBlobStore) Upload(ctx context.Context, path string, data []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.uploads[path] = data
	return "http://blobs/" + path, nil
}

func seedUsers(t *testing.T, svc *UserService, names ...string) {
	t.Helper()
	for _, name := range names {
		u := &domain.User{ID: "id-" + name, Name: name, Email: name + "@x.io"}
		if err := svc.CreateProfile(context.Background(), u); err != nil {
			t.Fatalf("seed %s: %v", name, err)
		}
	}
}

func TestCreateProfileAndProfile(t *testing.T) {
	svc := NewUserService(newTestStore(t), newFakeBlobStore())
	ctx := context.Background()

	if err := svc.CreateProfile(ctx, &domain.User{Name: "no id"}); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("missing id: %v", err)
	}

	seedUsers(t, svc, "Alice")
	got, err := svc.Profile(ctx, "id-Alice")
	if err != nil || got.Name != "Alice" || got.Email != "Alice@x.io" {
		t.Fatalf("profile: %v %+v", err, got)
	}
	if _, err := svc.Profile(ctx, "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("ghost: %v", err)
	}
}

func TestContacts_SortedByName(t *testing.T) {
	svc := NewUserService(newTestStore(t), newFakeBlobStore())
	seedUsers(t, svc, "Zoe", "Alice", "Mallory")

	users, err := svc.Contacts(context.Background())
	if err != nil {
		t.Fatalf("contacts: %v", err)
	}
	if len(users) != 3 || users[0].Name != "Alice" || users[1].Name != "Mallory" || users[2].Name != "Zoe" {
		t.Fatalf("not sorted by name: %+v", users)
	}
}

func TestSearch_NamePrefix(t *testing.T) {
	svc := NewUserService(newTestStore(t), newFakeBlobStore())
	seedUsers(t, svc, "Anna", "Annika", "Annabelle", "Bob")
	ctx := context.Background()

	got, err := svc.Search(ctx, "Ann")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 matches, got %+v", got)
	}
	for _, u := range got {
		if u.Name == "Bob" {
			t.Fatalf("Bob must not match prefix Ann")
		}
	}

	// The range is a true prefix scan, not a substring match.
	got, err = svc.Search(ctx, "nn")
	if err != nil || len(got) != 0 {
		t.Fatalf("substring should not match: %v %+v", err, got)
	}

	// Blank prefix lists everyone.
	got, err = svc.Search(ctx, "  ")
	if err != nil || len(got) != 4 {
		t.Fatalf("blank prefix: %v %+v", err, got)
	}
}

func TestSetAvatar_UploadsThenLinks(t *testing.T) {
	blobs := newFakeBlobStore()
	svc := NewUserService(newTestStore(t), blobs)
	seedUsers(t, svc, "Alice")
	ctx := context.Background()

	img := []byte{0xFF, 0xD8, 0xFF} // jpeg magic
	url, err := svc.SetAvatar(ctx, "id-Alice", img)
	if err != nil {
		t.Fatalf("set avatar: %v", err)
	}
	if len(blobs.uploads) != 1 {
		t.Fatalf("expected one upload, got %d", len(blobs.uploads))
	}

	// The link lands on the profile and the other fields survive the
	// merge-upsert.
	got, err := svc.Profile(ctx, "id-Alice")
	if err != nil || got.AvatarURL != url || got.Name != "Alice" || got.Email != "Alice@x.io" {
		t.Fatalf("profile after avatar: %v %+v", err, got)
	}
}

func TestSetAvatar_Failures(t *testing.T) {
	blobs := newFakeBlobStore()
	svc := NewUserService(newTestStore(t), blobs)
	seedUsers(t, svc, "Alice")
	ctx := context.Background()

	if _, err := svc.SetAvatar(ctx, "ghost", []byte{1}); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("unknown user: %v", err)
	}

	// A failed upload leaves the profile untouched.
	blobs.err = errors.New("bucket offline")
	if _, err := svc.SetAvatar(ctx, "id-Alice", []byte{1}); err == nil {
		t.Fatalf("expected upload failure")
	}
	got, err := svc.Profile(ctx, "id-Alice")
	if err != nil || got.AvatarURL != "" {
		t.Fatalf("profile should be untouched: %v %+v", err, got)
	}
}
