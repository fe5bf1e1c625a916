package aggregate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"family-assistant/internal/model"
	"family-assistant/internal/repository"
	"family-assistant/internal/scope"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := repository.NewDB("file::memory:")
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func TestMergeTasksFirstSeenWins(t *testing.T) {
	shared := model.Task{ID: 1, Description: "shared"}
	personalOnly := model.Task{ID: 2, Description: "personal"}
	groupOnly := model.Task{ID: 3, Description: "group"}

	merged := MergeTasks(
		[]model.Task{personalOnly, shared},
		[]model.Task{shared, groupOnly},
		[]model.Task{shared},
	)

	require.Len(t, merged, 3)
	ids := []uint{merged[0].ID, merged[1].ID, merged[2].ID}
	assert.Equal(t, []uint{2, 1, 3}, ids)
}

func TestSortTasks(t *testing.T) {
	early := time.Date(2026, 9, 4, 10, 0, 0, 0, time.UTC)
	late := time.Date(2026, 9, 5, 10, 0, 0, 0, time.UTC)

	tasks := []model.Task{
		{ID: 1, Description: "no deadline high", Priority: model.PriorityHigh},
		{ID: 2, Description: "late", Priority: model.PriorityLow, Deadline: &late},
		{ID: 3, Description: "early", Priority: model.PriorityMedium, Deadline: &early},
		{ID: 4, Description: "no deadline low", Priority: model.PriorityLow},
	}
	SortTasks(tasks)

	ids := make([]uint, 0, len(tasks))
	for _, task := range tasks {
		ids = append(ids, task.ID)
	}
	// Deadlines first (ascending), deadline-less after, higher priority first.
	assert.Equal(t, []uint{3, 2, 1, 4}, ids)
}

func TestSortShoppingAndEvents(t *testing.T) {
	now := time.Now()
	items := []model.ShoppingItem{
		{ID: 1, Category: "produce", CreatedAt: now},
		{ID: 2, Category: "dairy", CreatedAt: now.Add(-time.Hour)},
		{ID: 3, Category: "dairy", CreatedAt: now},
	}
	SortShopping(items)
	assert.Equal(t, uint(3), items[0].ID)
	assert.Equal(t, uint(2), items[1].ID)
	assert.Equal(t, uint(1), items[2].ID)

	events := []model.Event{
		{ID: 1, StartAt: now.Add(time.Hour)},
		{ID: 2, StartAt: now},
	}
	SortEvents(events)
	assert.Equal(t, uint(2), events[0].ID)
}

func TestAggregatorTasks(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	users := repository.NewUserRepository(db)
	groups := repository.NewGroupRepository(db)
	tasks := repository.NewTaskRepository(db)
	agg := New(tasks, repository.NewShoppingRepository(db), repository.NewEventRepository(db), zap.NewNop())

	dana, err := users.UpsertFromTelegram(ctx, 1, "Dana", "", "")
	require.NoError(t, err)
	omer, err := users.UpsertFromTelegram(ctx, 2, "Omer", "", "")
	require.NoError(t, err)
	group, err := groups.UpsertFromChat(ctx, -100, "Family")
	require.NoError(t, err)

	personal, err := tasks.Create(ctx, &model.Task{
		Ownership:   model.Ownership{OwnerID: &dana.ID},
		Description: "personal",
		CreatedBy:   dana.ID,
	})
	require.NoError(t, err)
	grouped, err := tasks.Create(ctx, &model.Task{
		Ownership:   model.Ownership{GroupID: &group.ID},
		Description: "for everyone",
		CreatedBy:   omer.ID,
	})
	require.NoError(t, err)
	assigned, err := tasks.Create(ctx, &model.Task{
		Ownership:   model.Ownership{GroupID: &group.ID, Assignees: model.Int64List{int64(omer.ID), int64(dana.ID)}},
		Description: "shared chore",
		CreatedBy:   omer.ID,
	})
	require.NoError(t, err)
	_, err = tasks.Create(ctx, &model.Task{
		Ownership:   model.Ownership{OwnerID: &omer.ID},
		Description: "not dana's",
		CreatedBy:   omer.ID,
	})
	require.NoError(t, err)

	t.Run("group chat view spans all dimensions without duplicates", func(t *testing.T) {
		got, err := agg.Tasks(ctx, Params{User: *dana, GroupID: &group.ID})
		require.NoError(t, err)

		ids := map[uint]bool{}
		for _, task := range got {
			ids[task.ID] = true
		}
		assert.Len(t, got, 3)
		assert.True(t, ids[personal.ID])
		assert.True(t, ids[grouped.ID])
		assert.True(t, ids[assigned.ID])
	})

	t.Run("private chat view skips the group dimension", func(t *testing.T) {
		got, err := agg.Tasks(ctx, Params{User: *dana})
		require.NoError(t, err)

		ids := map[uint]bool{}
		for _, task := range got {
			ids[task.ID] = true
		}
		assert.Len(t, got, 2)
		assert.True(t, ids[personal.ID])
		assert.True(t, ids[assigned.ID])
		assert.False(t, ids[grouped.ID])
	})

	t.Run("owner scope narrows to the personal dimension", func(t *testing.T) {
		got, err := agg.Tasks(ctx, Params{
			User:    *dana,
			GroupID: &group.ID,
			Scope:   &scope.Resolution{OwnerID: &dana.ID},
		})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, personal.ID, got[0].ID)
	})

	t.Run("owner scope for someone else matches nothing", func(t *testing.T) {
		got, err := agg.Tasks(ctx, Params{
			User:    *dana,
			GroupID: &group.ID,
			Scope:   &scope.Resolution{OwnerID: &omer.ID},
		})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("group scope narrows to group-owned records", func(t *testing.T) {
		got, err := agg.Tasks(ctx, Params{
			User:    *dana,
			GroupID: &group.ID,
			Scope:   &scope.Resolution{GroupID: &group.ID},
		})
		require.NoError(t, err)

		ids := map[uint]bool{}
		for _, task := range got {
			ids[task.ID] = true
		}
		assert.Len(t, got, 2)
		assert.True(t, ids[grouped.ID])
		assert.True(t, ids[assigned.ID])
		assert.False(t, ids[personal.ID])
	})

	t.Run("group scope for a different group matches nothing", func(t *testing.T) {
		other, err := groups.UpsertFromChat(ctx, -200, "Neighbors")
		require.NoError(t, err)

		got, err := agg.Tasks(ctx, Params{
			User:    *dana,
			GroupID: &group.ID,
			Scope:   &scope.Resolution{GroupID: &other.ID},
		})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("assignee scope requires the user in the list", func(t *testing.T) {
		withDana, err := agg.Tasks(ctx, Params{
			User:  *dana,
			Scope: &scope.Resolution{Assignees: model.Int64List{int64(dana.ID), int64(omer.ID)}},
		})
		require.NoError(t, err)
		require.Len(t, withDana, 1)
		assert.Equal(t, assigned.ID, withDana[0].ID)

		withoutDana, err := agg.Tasks(ctx, Params{
			User:  *dana,
			Scope: &scope.Resolution{Assignees: model.Int64List{int64(omer.ID)}},
		})
		require.NoError(t, err)
		assert.Empty(t, withoutDana)
	})
}
