package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"family-assistant/internal/aggregate"
	"family-assistant/internal/errs"
	"family-assistant/internal/intent"
	"family-assistant/internal/model"
	"family-assistant/internal/repository"
	"family-assistant/internal/scope"
)

// scriptedClassifier returns a canned action, standing in for the LLM.
type scriptedClassifier struct {
	action *intent.Action
	err    error

	lastRequest intent.Request
}

func (c *scriptedClassifier) Classify(_ context.Context, req intent.Request) (*intent.Action, error) {
	c.lastRequest = req
	return c.action, c.err
}

type env struct {
	db         *gorm.DB
	classifier *scriptedClassifier
	dispatcher *Dispatcher
	users      *repository.UserRepository
	groups     *repository.GroupRepository
	tasks      *repository.TaskRepository
	items      *repository.ShoppingRepository
	events     *repository.EventRepository
	audit      *repository.InteractionRepository
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := repository.NewDB("file::memory:")
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	users := repository.NewUserRepository(db)
	groups := repository.NewGroupRepository(db)
	tasks := repository.NewTaskRepository(db)
	items := repository.NewShoppingRepository(db)
	events := repository.NewEventRepository(db)
	audit := repository.NewInteractionRepository(db)

	classifier := &scriptedClassifier{}
	log := zap.NewNop()
	dispatcher := New(
		classifier,
		scope.NewResolver(users, groups, log),
		tasks, items, events, users, audit,
		aggregate.New(tasks, items, events, log),
		log,
	)
	return &env{
		db: db, classifier: classifier, dispatcher: dispatcher,
		users: users, groups: groups, tasks: tasks, items: items, events: events, audit: audit,
	}
}

func (e *env) addUser(t *testing.T, telegramID int64, firstName string) *model.User {
	t.Helper()
	user, err := e.users.UpsertFromTelegram(context.Background(), telegramID, firstName, "", "")
	require.NoError(t, err)
	return user
}

func (e *env) addGroup(t *testing.T, members ...*model.User) *model.Group {
	t.Helper()
	group, err := e.groups.UpsertFromChat(context.Background(), -100, "Family")
	require.NoError(t, err)
	for _, m := range members {
		require.NoError(t, e.groups.EnsureMember(context.Background(), group.ID, m.ID))
	}
	return group
}

func TestHandleMessageCreatesTask(t *testing.T) {
	e := newEnv(t)
	dana := e.addUser(t, 1, "Dana")
	ctx := context.Background()

	deadline := time.Date(2026, 9, 4, 18, 0, 0, 0, time.UTC)
	e.classifier.action = &intent.Action{
		Kind:      intent.KindTask,
		Operation: intent.OpCreate,
		Scope:     scope.LabelMe,
		TaskCreate: &intent.TaskCreateParams{
			Description: "call grandma",
			Priority:    model.PriorityHigh,
			Deadline:    &deadline,
		},
	}

	reply := e.dispatcher.HandleMessage(ctx, MessageContext{
		User: dana, ChatID: 1, Message: "remind me to call grandma friday evening",
	})
	assert.Contains(t, reply, "call grandma")
	assert.Equal(t, "remind me to call grandma friday evening", e.classifier.lastRequest.Message)
	assert.False(t, e.classifier.lastRequest.HasGroup)

	tasks, err := e.tasks.ListByOwner(ctx, dana.ID, repository.Filter{})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, model.PriorityHigh, tasks[0].Priority)

	recent, err := e.audit.ListRecent(ctx, dana.ID, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "ok", recent[0].Outcome)
}

func TestHandleMessageSharedShoppingItem(t *testing.T) {
	e := newEnv(t)
	dana := e.addUser(t, 1, "Dana")
	group := e.addGroup(t, dana)
	ctx := context.Background()

	e.classifier.action = &intent.Action{
		Kind:           intent.KindShopping,
		Operation:      intent.OpCreate,
		Scope:          scope.LabelAllOfUs,
		ShoppingCreate: &intent.ShoppingCreateParams{Name: "milk", Category: "dairy"},
	}

	reply := e.dispatcher.HandleMessage(ctx, MessageContext{
		User: dana, GroupID: &group.ID, GroupTitle: "Family", ChatID: -100, Message: "add milk for all of us",
	})
	assert.Contains(t, reply, "milk")
	assert.True(t, e.classifier.lastRequest.HasGroup)
	assert.Equal(t, "Family", e.classifier.lastRequest.Group)

	items, err := e.items.ListByGroup(ctx, group.ID, repository.Filter{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].GroupID)
	assert.Nil(t, items[0].OwnerID)
}

func TestHandleMessageScopeFailure(t *testing.T) {
	e := newEnv(t)
	dana := e.addUser(t, 1, "Dana")

	e.classifier.action = &intent.Action{
		Kind:           intent.KindShopping,
		Operation:      intent.OpCreate,
		Scope:          scope.LabelAllOfUs,
		ShoppingCreate: &intent.ShoppingCreateParams{Name: "milk"},
	}

	// No group in a private chat: the scope message is surfaced verbatim.
	reply := e.dispatcher.HandleMessage(context.Background(), MessageContext{
		User: dana, ChatID: 1, Message: "add milk for all of us",
	})
	assert.Contains(t, reply, "group chat")

	items, err := e.items.ListByOwner(context.Background(), dana.ID, repository.Filter{})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestHandleMessageClassifierFailure(t *testing.T) {
	e := newEnv(t)
	dana := e.addUser(t, 1, "Dana")

	e.classifier.err = &errs.ClassifierError{Err: context.DeadlineExceeded}
	reply := e.dispatcher.HandleMessage(context.Background(), MessageContext{
		User: dana, ChatID: 1, Message: "asdfgh",
	})
	assert.Equal(t, "I could not understand that, please rephrase.", reply)
}

func TestDispatchTaskLifecycle(t *testing.T) {
	e := newEnv(t)
	dana := e.addUser(t, 1, "Dana")
	ctx := context.Background()
	mctx := MessageContext{User: dana, ChatID: 1}

	task, err := e.tasks.Create(ctx, &model.Task{
		Ownership:   model.Ownership{OwnerID: &dana.ID},
		Description: "buy bread",
		CreatedBy:   dana.ID,
	})
	require.NoError(t, err)

	t.Run("complete", func(t *testing.T) {
		reply, err := e.dispatcher.Dispatch(ctx, mctx, &intent.Action{
			Kind:      intent.KindTask,
			Operation: intent.OpComplete,
			Target:    &intent.TargetParams{ID: task.ID},
		})
		require.NoError(t, err)
		assert.Contains(t, reply, "buy bread")
	})

	t.Run("delete", func(t *testing.T) {
		_, err := e.dispatcher.Dispatch(ctx, mctx, &intent.Action{
			Kind:      intent.KindTask,
			Operation: intent.OpDelete,
			Target:    &intent.TargetParams{ID: task.ID},
		})
		require.NoError(t, err)

		_, err = e.tasks.GetByID(ctx, task.ID)
		assert.True(t, errs.IsNotFound(err))
	})

	t.Run("acting on a deleted task reports not found", func(t *testing.T) {
		_, err := e.dispatcher.Dispatch(ctx, mctx, &intent.Action{
			Kind:      intent.KindTask,
			Operation: intent.OpComplete,
			Target:    &intent.TargetParams{ID: task.ID},
		})
		assert.True(t, errs.IsNotFound(err))
	})
}

func TestDispatchQueryAllKinds(t *testing.T) {
	e := newEnv(t)
	dana := e.addUser(t, 1, "Dana")
	ctx := context.Background()
	mctx := MessageContext{User: dana, ChatID: 1}

	_, err := e.tasks.Create(ctx, &model.Task{
		Ownership: model.Ownership{OwnerID: &dana.ID}, Description: "water plants", CreatedBy: dana.ID,
	})
	require.NoError(t, err)
	_, err = e.items.Create(ctx, &model.ShoppingItem{
		Ownership: model.Ownership{OwnerID: &dana.ID}, Name: "milk", CreatedBy: dana.ID,
	})
	require.NoError(t, err)
	_, err = e.events.Create(ctx, &model.Event{
		Ownership: model.Ownership{OwnerID: &dana.ID}, Title: "dentist",
		StartAt: time.Now().Add(24 * time.Hour), CreatedBy: dana.ID,
	})
	require.NoError(t, err)

	reply, err := e.dispatcher.Dispatch(ctx, mctx, &intent.Action{
		Kind:      intent.KindQuery,
		Operation: intent.OpList,
		List:      &intent.ListParams{},
	})
	require.NoError(t, err)
	assert.Contains(t, reply, "water plants")
	assert.Contains(t, reply, "milk")
	assert.Contains(t, reply, "dentist")
}

func TestDispatchScopedList(t *testing.T) {
	e := newEnv(t)
	dana := e.addUser(t, 1, "Dana")
	group := e.addGroup(t, dana)
	ctx := context.Background()
	mctx := MessageContext{User: dana, GroupID: &group.ID, ChatID: -100}

	personal, err := e.tasks.Create(ctx, &model.Task{
		Ownership: model.Ownership{OwnerID: &dana.ID}, Description: "water plants", CreatedBy: dana.ID,
	})
	require.NoError(t, err)
	shared, err := e.tasks.Create(ctx, &model.Task{
		Ownership: model.Ownership{GroupID: &group.ID}, Description: "clean the garage", CreatedBy: dana.ID,
	})
	require.NoError(t, err)

	t.Run("group scope hides personal records", func(t *testing.T) {
		reply, err := e.dispatcher.Dispatch(ctx, mctx, &intent.Action{
			Kind:      intent.KindTask,
			Operation: intent.OpList,
			Scope:     scope.LabelAllOfUs,
		})
		require.NoError(t, err)
		assert.Contains(t, reply, shared.Description)
		assert.NotContains(t, reply, personal.Description)
	})

	t.Run("me scope hides group records", func(t *testing.T) {
		reply, err := e.dispatcher.Dispatch(ctx, mctx, &intent.Action{
			Kind:      intent.KindQuery,
			Operation: intent.OpList,
			Scope:     scope.LabelMe,
			List:      &intent.ListParams{Kind: intent.KindTask},
		})
		require.NoError(t, err)
		assert.Contains(t, reply, personal.Description)
		assert.NotContains(t, reply, shared.Description)
	})

	t.Run("no scope fans out to both", func(t *testing.T) {
		reply, err := e.dispatcher.Dispatch(ctx, mctx, &intent.Action{
			Kind:      intent.KindTask,
			Operation: intent.OpList,
		})
		require.NoError(t, err)
		assert.Contains(t, reply, personal.Description)
		assert.Contains(t, reply, shared.Description)
	})

	t.Run("bad scope on a list surfaces the scope error", func(t *testing.T) {
		_, err := e.dispatcher.Dispatch(ctx, MessageContext{User: dana, ChatID: 1}, &intent.Action{
			Kind:      intent.KindQuery,
			Operation: intent.OpList,
			Scope:     scope.LabelAllOfUs,
		})
		var scopeErr *errs.ScopeError
		assert.ErrorAs(t, err, &scopeErr)
	})
}

func TestDispatchUserSettings(t *testing.T) {
	e := newEnv(t)
	dana := e.addUser(t, 1, "Dana")
	ctx := context.Background()
	mctx := MessageContext{User: dana, ChatID: 1}

	t.Run("set name", func(t *testing.T) {
		reply, err := e.dispatcher.Dispatch(ctx, mctx, &intent.Action{
			Kind:      intent.KindUser,
			Operation: intent.OpSetName,
			SetName:   &intent.SetNameParams{Name: "Dee"},
		})
		require.NoError(t, err)
		assert.Contains(t, reply, "Dee")

		fresh, err := e.users.FindByID(ctx, dana.ID)
		require.NoError(t, err)
		assert.Equal(t, "Dee", fresh.CustomName)
	})

	t.Run("invalid timezone is a validation error", func(t *testing.T) {
		_, err := e.dispatcher.Dispatch(ctx, mctx, &intent.Action{
			Kind:        intent.KindUser,
			Operation:   intent.OpSetTimezone,
			SetTimezone: &intent.SetTimezoneParams{Timezone: "Nowhere/Fake"},
		})
		var validation *errs.ValidationError
		assert.ErrorAs(t, err, &validation)
	})
}

func TestErrorMessageMapping(t *testing.T) {
	e := newEnv(t)
	dana := e.addUser(t, 1, "Dana")

	assert.Equal(t, "missing id", e.dispatcher.ErrorMessage(dana, errs.Validation("missing id")))
	assert.Equal(t, "Task not found.", e.dispatcher.ErrorMessage(dana, errs.NotFound("task")))
	assert.Equal(t, "Item not found.", e.dispatcher.ErrorMessage(dana, errs.NotFound("item")))
	assert.Equal(t, "Something went wrong, please try again.",
		e.dispatcher.ErrorMessage(dana, context.DeadlineExceeded))
}
