package service

import (
	"context"
	"errors"
	"testing"

	"github.com/atinyakov/StudyDesk/internal/apperr"
	"github.com/atinyakov/StudyDesk/internal/models"
)

type mockUserRepo struct {
	UserExistsFunc   func(ctx context.Context, id string) (bool, error)
	RegisterUserFunc func(ctx context.Context, u models.User) error
	GetUserFunc      func(ctx context.Context, id string) (*models.User, error)
}

func (m *mockUserRepo) UserExists(ctx context.Context, id string) (bool, error) {
	return m.UserExistsFunc(ctx, id)
}
func (m *mockUserRepo) RegisterUser(ctx context.Context, u models.User) error {
	return m.RegisterUserFunc(ctx, u)
}
func (m *mockUserRepo) GetUser(ctx context.Context, id string) (*models.User, error) {
	return m.GetUserFunc(ctx, id)
}

func TestEnsure_RegistersOnce(t *testing.T) {
	lookups, registered := 0, 0
	repo := &mockUserRepo{
		UserExistsFunc: func(ctx context.Context, id string) (bool, error) {
			lookups++
			return false, nil
		},
		RegisterUserFunc: func(ctx context.Context, u models.User) error {
			registered++
			if u.ID != "carol" || u.DisplayName != "Carol" {
				t.Errorf("RegisterUser received %+v", u)
			}
			if u.CreatedAt.IsZero() {
				t.Error("RegisterUser received zero CreatedAt")
			}
			return nil
		},
	}
	svc := NewUserService(repo, WithClock(testClock()))

	for i := 0; i < 3; i++ {
		if err := svc.Ensure(context.Background(), models.User{ID: "carol", DisplayName: "Carol"}); err != nil {
			t.Fatalf("Ensure returned error: %v", err)
		}
	}
	if lookups != 1 || registered != 1 {
		t.Errorf("lookups = %d, registered = %d; want 1, 1", lookups, registered)
	}
}

func TestEnsure_ExistingUserNotRegistered(t *testing.T) {
	repo := &mockUserRepo{
		UserExistsFunc: func(ctx context.Context, id string) (bool, error) { return true, nil },
		RegisterUserFunc: func(ctx context.Context, u models.User) error {
			t.Fatal("RegisterUser should not be called")
			return nil
		},
	}
	svc := NewUserService(repo)

	if err := svc.Ensure(context.Background(), models.User{ID: "dave"}); err != nil {
		t.Fatalf("Ensure returned error: %v", err)
	}
}

func TestEnsure_ErrorIsNotCached(t *testing.T) {
	wantErr := errors.New("db error")
	calls := 0
	repo := &mockUserRepo{
		UserExistsFunc: func(ctx context.Context, id string) (bool, error) {
			calls++
			if calls == 1 {
				return false, wantErr
			}
			return true, nil
		},
	}
	svc := NewUserService(repo)

	if err := svc.Ensure(context.Background(), models.User{ID: "erin"}); err != wantErr {
		t.Fatalf("Ensure error = %v; want %v", err, wantErr)
	}
	if err := svc.Ensure(context.Background(), models.User{ID: "erin"}); err != nil {
		t.Fatalf("Ensure returned error: %v", err)
	}
	if calls != 2 {
		t.Errorf("UserExists calls = %d; want 2", calls)
	}
}

func TestEnsure_EmptyID(t *testing.T) {
	svc := NewUserService(&mockUserRepo{})

	if err := svc.Ensure(context.Background(), models.User{}); !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Fatalf("Ensure error = %v; want ErrUnauthenticated", err)
	}
}

func TestProfile(t *testing.T) {
	repo := &mockUserRepo{
		GetUserFunc: func(ctx context.Context, id string) (*models.User, error) {
			if id == "frank" {
				return &models.User{ID: id, Level: "2"}, nil
			}
			return nil, apperr.ErrNotFound
		},
	}
	svc := NewUserService(repo)

	u, err := svc.Profile(context.Background(), "frank")
	if err != nil {
		t.Fatalf("Profile returned error: %v", err)
	}
	if u.Level != "2" {
		t.Errorf("Level = %s; want 2", u.Level)
	}

	if _, err := svc.Profile(context.Background(), "ghost"); err == nil || err.Error() != "User not found" {
		t.Errorf("Profile error = %v; want User not found", err)
	}
}
