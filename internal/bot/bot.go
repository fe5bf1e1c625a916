// Package bot is the Telegram transport around the dispatch pipeline:
// it polls updates, keeps users and group memberships current, answers
// direct commands and hands free text to the dispatcher.
package bot

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"family-assistant/internal/dispatch"
	"family-assistant/internal/intent"
	"family-assistant/internal/model"
	"family-assistant/internal/render"
	"family-assistant/internal/repository"
)

// Bot aggregates the Telegram API with the dispatch pipeline.
type Bot struct {
	api          *tgbotapi.BotAPI
	users        *repository.UserRepository
	groups       *repository.GroupRepository
	interactions *repository.InteractionRepository
	dispatcher   *dispatch.Dispatcher
	defaultTZ    string
	defaultLang  string
	log          *zap.Logger
}

func New(token string, users *repository.UserRepository, groups *repository.GroupRepository, interactions *repository.InteractionRepository, dispatcher *dispatch.Dispatcher, defaultTZ, defaultLang string, log *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Info("bot authorized", zap.String("account", api.Self.UserName))

	return &Bot{
		api:          api,
		users:        users,
		groups:       groups,
		interactions: interactions,
		dispatcher:   dispatcher,
		defaultTZ:    defaultTZ,
		defaultLang:  defaultLang,
		log:          log,
	}, nil
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.log.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		if update.Message == nil || update.Message.From == nil || update.Message.From.IsBot {
			continue
		}
		if err := b.handleMessage(ctx, update.Message); err != nil {
			b.log.Error("handle message", zap.Error(err))
		}
	}

	return nil
}

// SendMessage implements the notifier's Sender.
func (b *Bot) SendMessage(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	user, groupID, err := b.ensureContext(ctx, msg)
	if err != nil {
		return err
	}

	if msg.LeftChatMember != nil || len(msg.NewChatMembers) > 0 {
		b.syncMembership(ctx, msg, groupID)
		return nil
	}

	if msg.IsCommand() {
		b.log.Info("command",
			zap.Int64("user", msg.From.ID),
			zap.String("command", msg.Command()))
		return b.handleCommand(ctx, msg, user, groupID)
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return nil
	}

	names, err := b.resolvableNames(ctx, user, groupID)
	if err != nil {
		b.log.Warn("collect names", zap.Error(err))
	}

	mctx := dispatch.MessageContext{
		User:       user,
		GroupID:    groupID,
		ChatID:     msg.Chat.ID,
		Message:    text,
		KnownNames: names,
	}
	if groupID != nil {
		mctx.GroupTitle = msg.Chat.Title
	}
	reply := b.dispatcher.HandleMessage(ctx, mctx)
	return b.SendMessage(msg.Chat.ID, reply)
}

// ensureContext upserts the sender and, in group chats, the group and its
// membership, and applies default settings to new users.
func (b *Bot) ensureContext(ctx context.Context, msg *tgbotapi.Message) (*model.User, *uint, error) {
	from := msg.From
	user, err := b.users.UpsertFromTelegram(ctx, from.ID, from.FirstName, from.LastName, from.UserName)
	if err != nil {
		return nil, nil, err
	}

	if user.Timezone == "" {
		if err := b.users.SetTimezone(ctx, user.ID, b.defaultTZ); err != nil {
			b.log.Warn("apply default timezone", zap.Error(err))
		} else {
			user.Timezone = b.defaultTZ
		}
	}
	if user.Lang == "" {
		if err := b.users.SetLang(ctx, user.ID, b.defaultLang); err != nil {
			b.log.Warn("apply default lang", zap.Error(err))
		} else {
			user.Lang = b.defaultLang
		}
	}

	if msg.Chat == nil || msg.Chat.IsPrivate() {
		return user, nil, nil
	}

	group, err := b.groups.UpsertFromChat(ctx, msg.Chat.ID, msg.Chat.Title)
	if err != nil {
		return nil, nil, err
	}
	if err := b.groups.EnsureMember(ctx, group.ID, user.ID); err != nil {
		return nil, nil, err
	}
	return user, &group.ID, nil
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, user *model.User, groupID *uint) error {
	lang := user.Lang
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start":
		return b.SendMessage(msg.Chat.ID, render.Tf(lang, render.MsgWelcome, user.DisplayName()))

	case "help":
		return b.SendMessage(msg.Chat.ID, render.T(lang, render.MsgHelp))

	case "name":
		if args == "" {
			return b.SendMessage(msg.Chat.ID, "/name Dana")
		}
		return b.dispatchDirect(ctx, msg, user, groupID, &intent.Action{
			Kind:      intent.KindUser,
			Operation: intent.OpSetName,
			SetName:   &intent.SetNameParams{Name: args},
		})

	case "timezone":
		if args == "" {
			return b.SendMessage(msg.Chat.ID, fmt.Sprintf("/timezone Asia/Jerusalem (current: %s)", escape(user.Timezone)))
		}
		return b.dispatchDirect(ctx, msg, user, groupID, &intent.Action{
			Kind:        intent.KindUser,
			Operation:   intent.OpSetTimezone,
			SetTimezone: &intent.SetTimezoneParams{Timezone: args},
		})

	case "language":
		return b.handleLanguage(ctx, msg, user, args)

	case "history":
		return b.sendHistory(ctx, msg, user)

	case "list":
		return b.dispatchDirect(ctx, msg, user, groupID, &intent.Action{
			Kind:      intent.KindQuery,
			Operation: intent.OpList,
			List:      &intent.ListParams{},
		})

	default:
		return b.SendMessage(msg.Chat.ID, render.T(lang, render.MsgHelp))
	}
}

// dispatchDirect feeds a pre-built action into the pipeline, bypassing the
// classifier.
func (b *Bot) dispatchDirect(ctx context.Context, msg *tgbotapi.Message, user *model.User, groupID *uint, action *intent.Action) error {
	mctx := dispatch.MessageContext{
		User:    user,
		GroupID: groupID,
		ChatID:  msg.Chat.ID,
		Message: msg.Text,
	}
	reply, err := b.dispatcher.Dispatch(ctx, mctx, action)
	if err != nil {
		reply = b.dispatcher.ErrorMessage(user, err)
	}
	return b.SendMessage(msg.Chat.ID, reply)
}

// syncMembership keeps group membership in step with Telegram join/leave
// service messages.
func (b *Bot) syncMembership(ctx context.Context, msg *tgbotapi.Message, groupID *uint) {
	if groupID == nil {
		return
	}
	for _, joined := range msg.NewChatMembers {
		if joined.IsBot {
			continue
		}
		user, err := b.users.UpsertFromTelegram(ctx, joined.ID, joined.FirstName, joined.LastName, joined.UserName)
		if err != nil {
			b.log.Warn("register joined member", zap.Error(err))
			continue
		}
		if err := b.groups.EnsureMember(ctx, *groupID, user.ID); err != nil {
			b.log.Warn("add member", zap.Error(err))
		}
	}
	if left := msg.LeftChatMember; left != nil && !left.IsBot {
		user, err := b.users.FindByTelegramID(ctx, left.ID)
		if err != nil {
			return
		}
		if err := b.groups.RemoveMember(ctx, *groupID, user.ID); err != nil {
			b.log.Warn("remove member", zap.Error(err))
		}
	}
}

func (b *Bot) sendHistory(ctx context.Context, msg *tgbotapi.Message, user *model.User) error {
	recs, err := b.interactions.ListRecent(ctx, user.ID, 10)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		return b.SendMessage(msg.Chat.ID, render.T(user.Lang, render.MsgNoHistory))
	}
	var sb strings.Builder
	sb.WriteString(render.T(user.Lang, render.MsgHistoryHeader))
	sb.WriteByte('\n')
	for _, rec := range recs {
		icon := "✅"
		if rec.Outcome != "ok" {
			icon = "⚠️"
		}
		sb.WriteString(fmt.Sprintf("%s %s\n", icon, escape(rec.Message)))
	}
	return b.SendMessage(msg.Chat.ID, strings.TrimSpace(sb.String()))
}

func (b *Bot) handleLanguage(ctx context.Context, msg *tgbotapi.Message, user *model.User, args string) error {
	lang := strings.ToLower(args)
	if lang != "en" && lang != "he" {
		return b.SendMessage(msg.Chat.ID, "/language en | he")
	}
	if err := b.users.SetLang(ctx, user.ID, lang); err != nil {
		return err
	}
	return b.SendMessage(msg.Chat.ID, render.T(lang, render.MsgLangSet))
}

// resolvableNames collects the display names the classifier may see in
// this conversation: group members in a group chat, all known users in a
// private one.
func (b *Bot) resolvableNames(ctx context.Context, user *model.User, groupID *uint) ([]string, error) {
	var users []model.User
	var err error
	if groupID != nil {
		users, err = b.groups.ListMembers(ctx, *groupID)
	} else {
		users, err = b.users.ListAll(ctx)
	}
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(users))
	for _, u := range users {
		if u.ID == user.ID {
			continue
		}
		names = append(names, u.DisplayName())
	}
	return names, nil
}

// RunReminderTick runs one notifier scan with a bounded timeout; wired to
// the scheduler by main.
func (b *Bot) RunReminderTick(ctx context.Context, runOnce func(context.Context, time.Time) error) {
	tickCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := runOnce(tickCtx, time.Now()); err != nil {
		b.log.Error("reminder tick", zap.Error(err))
	}
}

func escape(s string) string {
	return html.EscapeString(s)
}
