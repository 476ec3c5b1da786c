package user

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/recipebox/internal/model"
	"github.com/hitoshi/recipebox/internal/repository"
)

// --- モック ---

type mockUserRepo struct {
	findByIDFn       func(ctx context.Context, id string) (*model.User, error)
	findByUsernameFn func(ctx context.Context, username string) (*model.User, error)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	if m.findByUsernameFn != nil {
		return m.findByUsernameFn(ctx, username)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByEmail(_ context.Context, _ string) (*model.User, error) {
	return nil, nil
}

func (m *mockUserRepo) Create(_ context.Context, _ *model.User) error {
	return nil
}

func (m *mockUserRepo) UpdatePassword(_ context.Context, _, _ string) error {
	return nil
}

var _ repository.UserRepository = (*mockUserRepo)(nil)

// --- テスト ---

func TestGetByID_Found(t *testing.T) {
	repo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Username: "alice"}, nil
		},
	}
	svc := NewService(repo)

	user, err := svc.GetByID(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if user.Username != "alice" {
		t.Errorf("username = %q, want %q", user.Username, "alice")
	}
}

func TestGetByID_NotFound(t *testing.T) {
	svc := NewService(&mockUserRepo{})

	_, err := svc.GetByID(context.Background(), "ghost")
	if err == nil {
		t.Fatal("expected error for missing user")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeUserNotFound {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeUserNotFound)
	}
}

func TestGetByUsername_Found(t *testing.T) {
	repo := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			return &model.User{ID: "user-1", Username: username}, nil
		},
	}
	svc := NewService(repo)

	user, err := svc.GetByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("GetByUsername() error = %v", err)
	}
	if user.ID != "user-1" {
		t.Errorf("user ID = %q, want %q", user.ID, "user-1")
	}
}

func TestGetByUsername_NotFound(t *testing.T) {
	svc := NewService(&mockUserRepo{})

	_, err := svc.GetByUsername(context.Background(), "ghost")
	if err == nil {
		t.Fatal("expected error for missing user")
	}
}

func TestGetByID_RepoError(t *testing.T) {
	repo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return nil, errors.New("db down")
		},
	}
	svc := NewService(repo)

	_, err := svc.GetByID(context.Background(), "user-1")
	if err == nil {
		t.Fatal("expected error from repository")
	}
}
