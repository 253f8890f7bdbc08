package repository

import (
	"errors"
	"testing"
)

func TestNewUserRepositoryRequiresPool(t *testing.T) {
	repo, err := NewUserRepository(nil)
	if !errors.Is(err, ErrNoDatabase) {
		t.Fatalf("err = %v, want ErrNoDatabase", err)
	}
	if repo != nil {
		t.Fatalf("repo = %v, want nil", repo)
	}
}
