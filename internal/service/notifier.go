package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"family-assistant/internal/aggregate"
	"family-assistant/internal/model"
	"family-assistant/internal/render"
	"family-assistant/internal/repository"
)

// Sender pushes a rendered message to a Telegram chat. The bot implements
// it; tests use a fake.
type Sender interface {
	SendMessage(chatID int64, text string) error
}

// Notifier scans for due tasks and upcoming events and pushes reminders.
// It is tick-driven: RunOnce does one scan for a given instant, so tests
// never wait on wall-clock time.
type Notifier struct {
	tasks       *repository.TaskRepository
	events      *repository.EventRepository
	users       *repository.UserRepository
	groups      *repository.GroupRepository
	sender      Sender
	lookahead   time.Duration
	tolerance   time.Duration
	defaultLang string
	log         *zap.Logger
}

func NewNotifier(
	tasks *repository.TaskRepository,
	events *repository.EventRepository,
	users *repository.UserRepository,
	groups *repository.GroupRepository,
	sender Sender,
	lookahead, tolerance time.Duration,
	defaultLang string,
	log *zap.Logger,
) *Notifier {
	if lookahead <= 0 {
		lookahead = 15 * time.Minute
	}
	if tolerance <= 0 {
		tolerance = time.Minute
	}
	if defaultLang == "" {
		defaultLang = "en"
	}
	return &Notifier{
		tasks:       tasks,
		events:      events,
		users:       users,
		groups:      groups,
		sender:      sender,
		lookahead:   lookahead,
		tolerance:   tolerance,
		defaultLang: defaultLang,
		log:         log,
	}
}

// RunOnce scans the window [now-tolerance, now+lookahead+tolerance] and
// notifies every recipient of each due record exactly once: records are
// stamped after their notification round so adjacent ticks cannot fire
// twice. Per-recipient delivery failures are logged and skipped; they
// never abort the batch.
func (n *Notifier) RunOnce(ctx context.Context, now time.Time) error {
	from := now.Add(-n.tolerance)
	to := now.Add(n.lookahead + n.tolerance)

	tasks, err := n.tasks.ListDueBetween(ctx, from, to)
	if err != nil {
		return err
	}
	for _, task := range tasks {
		n.notifyTask(ctx, task)
		if err := n.tasks.MarkNotified(ctx, task.ID, now); err != nil {
			n.log.Warn("mark task notified", zap.Uint("task", task.ID), zap.Error(err))
		}
	}

	events, err := n.events.ListDueBetween(ctx, from, to)
	if err != nil {
		return err
	}
	for _, event := range events {
		n.notifyEvent(ctx, event)
		if err := n.events.MarkNotified(ctx, event.ID, now); err != nil {
			n.log.Warn("mark event notified", zap.Uint("event", event.ID), zap.Error(err))
		}
	}

	return nil
}

type recipient struct {
	chatID int64
	user   *model.User // nil for group chats
}

func (n *Notifier) notifyTask(ctx context.Context, task model.Task) {
	for _, rcpt := range n.recipients(ctx, task.Ownership) {
		lang, loc := n.langAndLoc(rcpt)
		text := render.T(lang, render.MsgReminderHeader) + "\n" + render.TaskLine(task, loc, lang)
		if err := n.sender.SendMessage(rcpt.chatID, text); err != nil {
			n.log.Warn("send task reminder", zap.Int64("chat", rcpt.chatID), zap.Error(err))
		}
	}
}

func (n *Notifier) notifyEvent(ctx context.Context, event model.Event) {
	for _, rcpt := range n.recipients(ctx, event.Ownership) {
		lang, loc := n.langAndLoc(rcpt)
		text := render.T(lang, render.MsgReminderHeader) + "\n" + render.EventLine(event, loc)
		if err := n.sender.SendMessage(rcpt.chatID, text); err != nil {
			n.log.Warn("send event reminder", zap.Int64("chat", rcpt.chatID), zap.Error(err))
		}
	}
}

// recipients expands a record's ownership into concrete chat targets:
// the owner's private chat, the group chat, or each assignee's private
// chat. Lookup failures drop that recipient and are logged.
func (n *Notifier) recipients(ctx context.Context, own model.Ownership) []recipient {
	var out []recipient

	if own.OwnerID != nil {
		if user, err := n.users.FindByID(ctx, *own.OwnerID); err != nil {
			n.log.Warn("resolve owner", zap.Uint("user", *own.OwnerID), zap.Error(err))
		} else {
			out = append(out, recipient{chatID: user.TelegramID, user: user})
		}
	}

	if own.GroupID != nil {
		if group, err := n.groups.FindByID(ctx, *own.GroupID); err != nil {
			n.log.Warn("resolve group", zap.Uint("group", *own.GroupID), zap.Error(err))
		} else {
			out = append(out, recipient{chatID: group.TelegramChatID})
		}
	}

	if len(own.Assignees) > 0 {
		ids := make([]uint, 0, len(own.Assignees))
		for _, id := range own.Assignees {
			if own.OwnerID != nil && int64(*own.OwnerID) == id {
				continue
			}
			ids = append(ids, uint(id))
		}
		users, err := n.users.FindByIDs(ctx, ids)
		if err != nil {
			n.log.Warn("resolve assignees", zap.Error(err))
		}
		for i := range users {
			out = append(out, recipient{chatID: users[i].TelegramID, user: &users[i]})
		}
	}

	return out
}

func (n *Notifier) langAndLoc(rcpt recipient) (string, *time.Location) {
	if rcpt.user != nil {
		lang := rcpt.user.Lang
		if lang == "" {
			lang = n.defaultLang
		}
		return lang, rcpt.user.Location()
	}
	return n.defaultLang, time.UTC
}

// DailyDigest sends every known user their merged open-task view. Wired to
// a daily cron slot; per-user failures are logged and skipped.
func (n *Notifier) DailyDigest(ctx context.Context, now time.Time) error {
	users, err := n.users.ListAll(ctx)
	if err != nil {
		return err
	}

	for _, user := range users {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		filter := repository.Filter{Loc: user.Location()}
		personal, err := n.tasks.ListByOwner(ctx, user.ID, filter)
		if err != nil {
			n.log.Warn("digest personal tasks", zap.Uint("user", user.ID), zap.Error(err))
			continue
		}
		assigned, err := n.tasks.ListByAssignee(ctx, user.ID, filter)
		if err != nil {
			n.log.Warn("digest assigned tasks", zap.Uint("user", user.ID), zap.Error(err))
			continue
		}
		groups, err := n.groups.ListForUser(ctx, user.ID)
		if err != nil {
			n.log.Warn("digest groups", zap.Uint("user", user.ID), zap.Error(err))
			continue
		}
		sources := [][]model.Task{personal, assigned}
		for _, group := range groups {
			groupTasks, err := n.tasks.ListByGroup(ctx, group.ID, filter)
			if err != nil {
				n.log.Warn("digest group tasks", zap.Uint("group", group.ID), zap.Error(err))
				continue
			}
			sources = append(sources, groupTasks)
		}

		merged := aggregate.MergeTasks(sources...)
		if len(merged) == 0 {
			continue
		}
		aggregate.SortTasks(merged)

		lang := user.Lang
		if lang == "" {
			lang = n.defaultLang
		}
		text := render.TaskList(merged, user.Location(), lang)
		if err := n.sender.SendMessage(user.TelegramID, text); err != nil {
			n.log.Warn("send digest", zap.Int64("chat", user.TelegramID), zap.Error(err))
		}
	}

	return nil
}
