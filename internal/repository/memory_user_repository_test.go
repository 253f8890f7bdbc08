package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/userkit/user-service/internal/domain"
)

func TestMemoryUserRepositoryLifecycle(t *testing.T) {
	repo := NewMemoryUserRepository().(*memoryUserRepository)
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	ctx := context.Background()

	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if list == nil || len(list) != 0 {
		t.Fatalf("empty List = %#v, want non-nil empty slice", list)
	}

	for _, u := range []*domain.User{{ID: "b", Name: "second"}, {ID: "a", Name: "third"}} {
		if err := repo.Create(ctx, u); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	list, _ = repo.List(ctx)
	if len(list) != 2 || list[0].ID != "b" || list[1].ID != "a" {
		t.Fatalf("List not ordered by creation: %+v", list)
	}

	created := list[0].CreatedAt
	update := &domain.User{ID: "b", Name: "renamed"}
	if err := repo.Update(ctx, update); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !update.CreatedAt.Equal(created) || !update.UpdatedAt.After(created) {
		t.Errorf("timestamps not maintained: %+v", update)
	}

	if err := repo.Update(ctx, &domain.User{ID: "zzz"}); !errors.Is(err, pgx.ErrNoRows) {
		t.Errorf("Update missing: err = %v", err)
	}
	if err := repo.Delete(ctx, "zzz"); !errors.Is(err, pgx.ErrNoRows) {
		t.Errorf("Delete missing: err = %v", err)
	}
	if err := repo.Delete(ctx, "b"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, "b"); !errors.Is(err, pgx.ErrNoRows) {
		t.Errorf("GetByID deleted: err = %v", err)
	}
}
