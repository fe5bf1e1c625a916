// Package dispatch routes classified actions to the entity stores and
// turns the outcome into a user-facing reply.
package dispatch

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"family-assistant/internal/aggregate"
	"family-assistant/internal/errs"
	"family-assistant/internal/intent"
	"family-assistant/internal/model"
	"family-assistant/internal/render"
	"family-assistant/internal/repository"
	"family-assistant/internal/scope"
)

// MessageContext is everything the transport knows about one inbound
// message.
type MessageContext struct {
	User       *model.User
	GroupID    *uint
	GroupTitle string
	ChatID     int64
	Message    string
	KnownNames []string
}

// Dispatcher wires the pipeline: classify, resolve scope, execute, render.
type Dispatcher struct {
	classifier   intent.Classifier
	resolver     *scope.Resolver
	tasks        *repository.TaskRepository
	items        *repository.ShoppingRepository
	events       *repository.EventRepository
	users        *repository.UserRepository
	interactions *repository.InteractionRepository
	agg          *aggregate.Aggregator
	log          *zap.Logger
}

func New(
	classifier intent.Classifier,
	resolver *scope.Resolver,
	tasks *repository.TaskRepository,
	items *repository.ShoppingRepository,
	events *repository.EventRepository,
	users *repository.UserRepository,
	interactions *repository.InteractionRepository,
	agg *aggregate.Aggregator,
	log *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		classifier:   classifier,
		resolver:     resolver,
		tasks:        tasks,
		items:        items,
		events:       events,
		users:        users,
		interactions: interactions,
		agg:          agg,
		log:          log,
	}
}

// HandleMessage runs one free-text message through the whole pipeline and
// returns the reply text. It never returns an error: every failure maps to
// a user-facing message.
func (d *Dispatcher) HandleMessage(ctx context.Context, mctx MessageContext) string {
	loc := mctx.User.Location()
	req := intent.Request{
		Message:  mctx.Message,
		UserName: mctx.User.DisplayName(),
		HasGroup: mctx.GroupID != nil,
		Group:    mctx.GroupTitle,
		Names:    mctx.KnownNames,
		Now:      time.Now().In(loc),
		Timezone: mctx.User.Timezone,
	}

	action, err := d.classifier.Classify(ctx, req)
	if err != nil {
		d.audit(ctx, mctx, nil, err)
		return d.ErrorMessage(mctx.User, err)
	}

	reply, err := d.Dispatch(ctx, mctx, action)
	d.audit(ctx, mctx, action, err)
	if err != nil {
		return d.ErrorMessage(mctx.User, err)
	}
	return reply
}

// Dispatch executes one validated action. Split from HandleMessage so the
// pipeline can be driven without a live classifier.
func (d *Dispatcher) Dispatch(ctx context.Context, mctx MessageContext, action *intent.Action) (string, error) {
	switch action.Kind {
	case intent.KindTask:
		return d.dispatchTask(ctx, mctx, action)
	case intent.KindShopping:
		return d.dispatchShopping(ctx, mctx, action)
	case intent.KindEvent:
		return d.dispatchEvent(ctx, mctx, action)
	case intent.KindQuery:
		return d.dispatchQuery(ctx, mctx, action)
	case intent.KindUser:
		return d.dispatchUserSetting(ctx, mctx, action)
	default:
		return "", &errs.UnknownActionError{Action: action.Kind, Operation: action.Operation}
	}
}

// resolveOwnership runs the scope stage. Only create operations construct
// new ownership; everything else acts on the record's stored ownership.
func (d *Dispatcher) resolveOwnership(ctx context.Context, mctx MessageContext, action *intent.Action) (*scope.Resolution, error) {
	return d.resolver.Resolve(ctx, action.Scope, action.ScopeUsers, mctx.User, mctx.GroupID)
}

// listScope resolves an explicit scope label on a list action so the
// aggregator narrows to that dimension. Without a label the view stays
// unscoped and fans out to everything the chat context allows.
func (d *Dispatcher) listScope(ctx context.Context, mctx MessageContext, action *intent.Action) (*scope.Resolution, error) {
	if action.Scope == "" {
		return nil, nil
	}
	return d.resolver.Resolve(ctx, action.Scope, action.ScopeUsers, mctx.User, mctx.GroupID)
}

func (d *Dispatcher) dispatchTask(ctx context.Context, mctx MessageContext, action *intent.Action) (string, error) {
	lang := userLang(mctx.User)
	loc := mctx.User.Location()

	switch action.Operation {
	case intent.OpCreate:
		res, err := d.resolveOwnership(ctx, mctx, action)
		if err != nil {
			return "", err
		}
		p := action.TaskCreate
		task, err := d.tasks.Create(ctx, &model.Task{
			Ownership:   res.Ownership(),
			Description: p.Description,
			Priority:    p.Priority,
			Deadline:    p.Deadline,
			CreatedBy:   mctx.User.ID,
		})
		if err != nil {
			return "", err
		}
		return render.TaskSummary(task, loc, lang), nil

	case intent.OpUpdate:
		p := action.TaskUpdate
		task, err := d.tasks.Update(ctx, p.ID, repository.TaskPatch{
			Description: p.Description,
			Priority:    p.Priority,
			Deadline:    p.Deadline,
		})
		if err != nil {
			return "", err
		}
		return render.T(lang, render.MsgUpdated) + "\n" + render.TaskLine(*task, loc, lang), nil

	case intent.OpDelete:
		task, err := d.tasks.GetByID(ctx, action.Target.ID)
		if err != nil {
			return "", err
		}
		if _, err := d.tasks.Delete(ctx, task.ID); err != nil {
			return "", err
		}
		return renderf(lang, render.MsgTaskDeleted, task.Description), nil

	case intent.OpComplete:
		task, err := d.tasks.MarkDone(ctx, action.Target.ID, mctx.User.ID)
		if err != nil {
			return "", err
		}
		return renderf(lang, render.MsgTaskDone, task.Description), nil

	case intent.OpList:
		res, err := d.listScope(ctx, mctx, action)
		if err != nil {
			return "", err
		}
		tasks, err := d.agg.Tasks(ctx, d.aggParams(mctx, action.List, res))
		if err != nil {
			return "", err
		}
		return render.TaskList(tasks, loc, lang), nil

	default:
		return "", &errs.UnknownActionError{Action: action.Kind, Operation: action.Operation}
	}
}

func (d *Dispatcher) dispatchShopping(ctx context.Context, mctx MessageContext, action *intent.Action) (string, error) {
	lang := userLang(mctx.User)

	switch action.Operation {
	case intent.OpCreate:
		res, err := d.resolveOwnership(ctx, mctx, action)
		if err != nil {
			return "", err
		}
		p := action.ShoppingCreate
		item, err := d.items.Create(ctx, &model.ShoppingItem{
			Ownership: res.Ownership(),
			Name:      p.Name,
			Category:  p.Category,
			Quantity:  p.Quantity,
			CreatedBy: mctx.User.ID,
		})
		if err != nil {
			return "", err
		}
		return render.ItemSummary(item, lang), nil

	case intent.OpUpdate:
		p := action.ShoppingUpdate
		item, err := d.items.Update(ctx, p.ID, repository.ShoppingPatch{
			Name:     p.Name,
			Category: p.Category,
			Quantity: p.Quantity,
		})
		if err != nil {
			return "", err
		}
		return render.T(lang, render.MsgUpdated) + "\n" + render.ShoppingLine(*item), nil

	case intent.OpDelete:
		item, err := d.items.GetByID(ctx, action.Target.ID)
		if err != nil {
			return "", err
		}
		if _, err := d.items.Delete(ctx, item.ID); err != nil {
			return "", err
		}
		return renderf(lang, render.MsgItemDeleted, item.Name), nil

	case intent.OpPurchase:
		item, err := d.items.MarkPurchased(ctx, action.Target.ID, mctx.User.ID)
		if err != nil {
			return "", err
		}
		return renderf(lang, render.MsgItemPurchased, item.Name), nil

	case intent.OpList:
		res, err := d.listScope(ctx, mctx, action)
		if err != nil {
			return "", err
		}
		items, err := d.agg.Shopping(ctx, d.aggParams(mctx, action.List, res))
		if err != nil {
			return "", err
		}
		return render.ShoppingList(items, lang), nil

	default:
		return "", &errs.UnknownActionError{Action: action.Kind, Operation: action.Operation}
	}
}

func (d *Dispatcher) dispatchEvent(ctx context.Context, mctx MessageContext, action *intent.Action) (string, error) {
	lang := userLang(mctx.User)
	loc := mctx.User.Location()

	switch action.Operation {
	case intent.OpCreate:
		res, err := d.resolveOwnership(ctx, mctx, action)
		if err != nil {
			return "", err
		}
		p := action.EventCreate
		event, err := d.events.Create(ctx, &model.Event{
			Ownership:   res.Ownership(),
			Title:       p.Title,
			Description: p.Description,
			StartAt:     p.StartAt,
			EndAt:       p.EndAt,
			CreatedBy:   mctx.User.ID,
		})
		if err != nil {
			return "", err
		}
		return render.EventSummary(event, loc, lang), nil

	case intent.OpUpdate:
		p := action.EventUpdate
		event, err := d.events.Update(ctx, p.ID, repository.EventPatch{
			Title:       p.Title,
			Description: p.Description,
			StartAt:     p.StartAt,
			EndAt:       p.EndAt,
		})
		if err != nil {
			return "", err
		}
		return render.T(lang, render.MsgUpdated) + "\n" + render.EventLine(*event, loc), nil

	case intent.OpDelete:
		event, err := d.events.GetByID(ctx, action.Target.ID)
		if err != nil {
			return "", err
		}
		if _, err := d.events.Delete(ctx, event.ID); err != nil {
			return "", err
		}
		return renderf(lang, render.MsgEventDeleted, event.Title), nil

	case intent.OpList:
		res, err := d.listScope(ctx, mctx, action)
		if err != nil {
			return "", err
		}
		events, err := d.agg.Events(ctx, d.aggParams(mctx, action.List, res))
		if err != nil {
			return "", err
		}
		return render.EventList(events, loc, lang), nil

	default:
		return "", &errs.UnknownActionError{Action: action.Kind, Operation: action.Operation}
	}
}

// dispatchQuery renders the combined view; with no entity kind it shows
// tasks, shopping and events in one message.
func (d *Dispatcher) dispatchQuery(ctx context.Context, mctx MessageContext, action *intent.Action) (string, error) {
	lang := userLang(mctx.User)
	loc := mctx.User.Location()
	res, err := d.listScope(ctx, mctx, action)
	if err != nil {
		return "", err
	}
	list := action.List
	if list == nil {
		list = &intent.ListParams{}
	}
	params := d.aggParams(mctx, list, res)

	switch list.Kind {
	case intent.KindTask:
		tasks, err := d.agg.Tasks(ctx, params)
		if err != nil {
			return "", err
		}
		return render.TaskList(tasks, loc, lang), nil
	case intent.KindShopping:
		items, err := d.agg.Shopping(ctx, params)
		if err != nil {
			return "", err
		}
		return render.ShoppingList(items, lang), nil
	case intent.KindEvent:
		events, err := d.agg.Events(ctx, params)
		if err != nil {
			return "", err
		}
		return render.EventList(events, loc, lang), nil
	}

	tasks, err := d.agg.Tasks(ctx, params)
	if err != nil {
		return "", err
	}
	items, err := d.agg.Shopping(ctx, params)
	if err != nil {
		return "", err
	}
	events, err := d.agg.Events(ctx, params)
	if err != nil {
		return "", err
	}
	return render.TaskList(tasks, loc, lang) + "\n\n" +
		render.ShoppingList(items, lang) + "\n\n" +
		render.EventList(events, loc, lang), nil
}

func (d *Dispatcher) dispatchUserSetting(ctx context.Context, mctx MessageContext, action *intent.Action) (string, error) {
	lang := userLang(mctx.User)

	switch action.Operation {
	case intent.OpSetName:
		if err := d.users.SetCustomName(ctx, mctx.User.ID, action.SetName.Name); err != nil {
			return "", err
		}
		return renderf(lang, render.MsgNameSet, action.SetName.Name), nil

	case intent.OpSetTimezone:
		tz := action.SetTimezone.Timezone
		if _, err := time.LoadLocation(tz); err != nil {
			return "", errs.Validation("unknown timezone %q", tz)
		}
		if err := d.users.SetTimezone(ctx, mctx.User.ID, tz); err != nil {
			return "", err
		}
		return renderf(lang, render.MsgTimezoneSet, tz), nil

	default:
		return "", &errs.UnknownActionError{Action: action.Kind, Operation: action.Operation}
	}
}

func (d *Dispatcher) aggParams(mctx MessageContext, list *intent.ListParams, res *scope.Resolution) aggregate.Params {
	filter := repository.Filter{Loc: mctx.User.Location()}
	if list != nil {
		filter.IncludeDone = list.IncludeDone
		filter.OnDate = list.OnDate
		filter.From = list.From
		filter.To = list.To
		filter.Category = list.Category
	}
	return aggregate.Params{
		User:    *mctx.User,
		GroupID: mctx.GroupID,
		Scope:   res,
		Filter:  filter,
	}
}

// ErrorMessage maps pipeline errors to user-facing text. Validation and
// scope messages are surfaced verbatim; everything unexpected collapses to
// a generic failure.
func (d *Dispatcher) ErrorMessage(user *model.User, err error) string {
	lang := userLang(user)

	var validation *errs.ValidationError
	if errors.As(err, &validation) {
		return validation.Msg
	}
	var scopeErr *errs.ScopeError
	if errors.As(err, &scopeErr) {
		return scopeErr.Msg
	}
	var notFound *errs.NotFoundError
	if errors.As(err, &notFound) {
		switch notFound.Kind {
		case "item":
			return render.T(lang, render.MsgItemNotFound)
		case "event":
			return render.T(lang, render.MsgEventNotFound)
		default:
			return render.T(lang, render.MsgTaskNotFound)
		}
	}
	var classifier *errs.ClassifierError
	if errors.As(err, &classifier) {
		d.log.Warn("classifier failed", zap.Error(err))
		return render.T(lang, render.MsgCouldNotUnderstand)
	}
	var unknown *errs.UnknownActionError
	if errors.As(err, &unknown) {
		d.log.Warn("unknown action", zap.String("action", unknown.Action), zap.String("operation", unknown.Operation))
		return render.T(lang, render.MsgGenericError)
	}

	d.log.Error("dispatch failed", zap.Error(err))
	return render.T(lang, render.MsgGenericError)
}

// audit records the interaction. Failures are logged and swallowed; the
// primary operation is never affected.
func (d *Dispatcher) audit(ctx context.Context, mctx MessageContext, action *intent.Action, opErr error) {
	rec := &model.Interaction{
		UserID:  mctx.User.ID,
		ChatID:  mctx.ChatID,
		Message: mctx.Message,
		Outcome: "ok",
	}
	if action != nil {
		rec.Action = action.Kind
		rec.Operation = action.Operation
	}
	if opErr != nil {
		rec.Outcome = errCategory(opErr)
	}
	if err := d.interactions.Record(ctx, rec); err != nil {
		d.log.Warn("record interaction", zap.Error(err))
	}
}

func errCategory(err error) string {
	var (
		validation *errs.ValidationError
		scopeErr   *errs.ScopeError
		classifier *errs.ClassifierError
		unknown    *errs.UnknownActionError
	)
	switch {
	case errors.As(err, &validation):
		return "validation"
	case errors.As(err, &scopeErr):
		return "scope"
	case errs.IsNotFound(err):
		return "not_found"
	case errors.As(err, &classifier):
		return "classifier"
	case errors.As(err, &unknown):
		return "unknown_action"
	default:
		return "error"
	}
}

func userLang(user *model.User) string {
	if user != nil && user.Lang != "" {
		return user.Lang
	}
	return "en"
}

func renderf(lang, key string, args ...interface{}) string {
	return render.Tf(lang, key, args...)
}
