package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"family-assistant/internal/errs"
	"family-assistant/internal/model"
)

func TestTaskCreate(t *testing.T) {
	db := newTestDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()
	owner := createTestUser(t, db, 1, "Dana")

	t.Run("requires a description", func(t *testing.T) {
		_, err := repo.Create(ctx, &model.Task{Ownership: model.Ownership{OwnerID: &owner.ID}})
		var validation *errs.ValidationError
		assert.ErrorAs(t, err, &validation)
	})

	t.Run("requires some ownership", func(t *testing.T) {
		_, err := repo.Create(ctx, &model.Task{Description: "orphan"})
		var validation *errs.ValidationError
		assert.ErrorAs(t, err, &validation)
	})

	t.Run("defaults priority to medium", func(t *testing.T) {
		task, err := repo.Create(ctx, &model.Task{
			Ownership:   model.Ownership{OwnerID: &owner.ID},
			Description: "water the plants",
			CreatedBy:   owner.ID,
		})
		require.NoError(t, err)
		assert.Equal(t, model.PriorityMedium, task.Priority)
	})
}

func TestTaskAssigneesRoundTrip(t *testing.T) {
	db := newTestDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()
	dana := createTestUser(t, db, 1, "Dana")
	omer := createTestUser(t, db, 2, "Omer")

	created, err := repo.Create(ctx, &model.Task{
		Ownership:   model.Ownership{Assignees: model.Int64List{int64(dana.ID), int64(omer.ID)}},
		Description: "call grandma",
		CreatedBy:   dana.ID,
	})
	require.NoError(t, err)

	stored, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Int64List{int64(dana.ID), int64(omer.ID)}, stored.Assignees)

	forOmer, err := repo.ListByAssignee(ctx, omer.ID, Filter{})
	require.NoError(t, err)
	require.Len(t, forOmer, 1)
	assert.Equal(t, created.ID, forOmer[0].ID)

	stranger := createTestUser(t, db, 3, "Noa")
	forNoa, err := repo.ListByAssignee(ctx, stranger.ID, Filter{})
	require.NoError(t, err)
	assert.Empty(t, forNoa)
}

func TestTaskUpdate(t *testing.T) {
	db := newTestDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()
	owner := createTestUser(t, db, 1, "Dana")

	deadline := time.Date(2026, 9, 4, 18, 0, 0, 0, time.UTC)
	task, err := repo.Create(ctx, &model.Task{
		Ownership:   model.Ownership{OwnerID: &owner.ID},
		Description: "buy bread",
		Priority:    model.PriorityHigh,
		Deadline:    &deadline,
		CreatedBy:   owner.ID,
	})
	require.NoError(t, err)

	t.Run("partial patch leaves the rest untouched", func(t *testing.T) {
		desc := "buy sourdough bread"
		updated, err := repo.Update(ctx, task.ID, TaskPatch{Description: &desc})
		require.NoError(t, err)
		assert.Equal(t, desc, updated.Description)
		assert.Equal(t, model.PriorityHigh, updated.Priority)
		require.NotNil(t, updated.Deadline)
		assert.True(t, updated.Deadline.Equal(deadline))
	})

	t.Run("sequential patches on different fields accumulate", func(t *testing.T) {
		low := model.PriorityLow
		updated, err := repo.Update(ctx, task.ID, TaskPatch{Priority: &low})
		require.NoError(t, err)
		assert.Equal(t, "buy sourdough bread", updated.Description)
		assert.Equal(t, model.PriorityLow, updated.Priority)
		require.NotNil(t, updated.Deadline)
	})

	t.Run("empty patch is a no-op", func(t *testing.T) {
		updated, err := repo.Update(ctx, task.ID, TaskPatch{})
		require.NoError(t, err)
		assert.Equal(t, "buy sourdough bread", updated.Description)
	})

	t.Run("missing record reports not found", func(t *testing.T) {
		_, err := repo.Update(ctx, 9999, TaskPatch{})
		assert.True(t, errs.IsNotFound(err))
	})
}

func TestTaskDeleteAndDone(t *testing.T) {
	db := newTestDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()
	owner := createTestUser(t, db, 1, "Dana")

	task, err := repo.Create(ctx, &model.Task{
		Ownership:   model.Ownership{OwnerID: &owner.ID},
		Description: "take out trash",
		CreatedBy:   owner.ID,
	})
	require.NoError(t, err)

	t.Run("mark done records who did it", func(t *testing.T) {
		done, err := repo.MarkDone(ctx, task.ID, owner.ID)
		require.NoError(t, err)
		assert.True(t, done.Done)
		require.NotNil(t, done.DoneBy)
		assert.Equal(t, owner.ID, *done.DoneBy)
	})

	t.Run("done tasks hide from default listings", func(t *testing.T) {
		open, err := repo.ListByOwner(ctx, owner.ID, Filter{})
		require.NoError(t, err)
		assert.Empty(t, open)

		all, err := repo.ListByOwner(ctx, owner.ID, Filter{IncludeDone: true})
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("delete reports existence", func(t *testing.T) {
		existed, err := repo.Delete(ctx, task.ID)
		require.NoError(t, err)
		assert.True(t, existed)

		existed, err = repo.Delete(ctx, task.ID)
		require.NoError(t, err)
		assert.False(t, existed)
	})
}

func TestTaskDueScan(t *testing.T) {
	db := newTestDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()
	owner := createTestUser(t, db, 1, "Dana")

	now := time.Now().UTC().Truncate(time.Second)
	soon := now.Add(10 * time.Minute)
	later := now.Add(3 * time.Hour)

	due, err := repo.Create(ctx, &model.Task{
		Ownership:   model.Ownership{OwnerID: &owner.ID},
		Description: "pick up kids",
		Deadline:    &soon,
		CreatedBy:   owner.ID,
	})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &model.Task{
		Ownership:   model.Ownership{OwnerID: &owner.ID},
		Description: "dinner prep",
		Deadline:    &later,
		CreatedBy:   owner.ID,
	})
	require.NoError(t, err)

	window, err := repo.ListDueBetween(ctx, now, now.Add(15*time.Minute))
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, due.ID, window[0].ID)

	require.NoError(t, repo.MarkNotified(ctx, due.ID, now))
	window, err = repo.ListDueBetween(ctx, now, now.Add(15*time.Minute))
	require.NoError(t, err)
	assert.Empty(t, window)
}
