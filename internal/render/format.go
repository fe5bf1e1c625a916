package render

import (
	"fmt"
	"html"
	"strings"
	"time"

	"family-assistant/internal/model"
)

const (
	iconHigh   = "🔴"
	iconMedium = "🟡"
	iconLow    = "🟢"
	iconDone   = "✔️"
)

func priorityIcon(priority string) string {
	switch priority {
	case model.PriorityHigh:
		return iconHigh
	case model.PriorityLow:
		return iconLow
	default:
		return iconMedium
	}
}

func escape(s string) string {
	return html.EscapeString(strings.TrimSpace(s))
}

// TaskList renders tasks as a numbered listing in the given timezone.
func TaskList(tasks []model.Task, loc *time.Location, lang string) string {
	if len(tasks) == 0 {
		return T(lang, MsgNothingFoundTasks)
	}
	var b strings.Builder
	b.WriteString(T(lang, MsgTasksHeader))
	b.WriteByte('\n')
	for i, task := range tasks {
		b.WriteString(fmt.Sprintf("%d. %s", i+1, TaskLine(task, loc, lang)))
		b.WriteByte('\n')
	}
	return strings.TrimSpace(b.String())
}

// TaskLine renders a single task entry.
func TaskLine(task model.Task, loc *time.Location, lang string) string {
	var b strings.Builder
	icon := priorityIcon(task.Priority)
	if task.Done {
		icon = iconDone
	}
	b.WriteString(fmt.Sprintf("%s <b>#%d</b> %s", icon, task.ID, escape(task.Description)))
	if task.Deadline != nil {
		b.WriteString(fmt.Sprintf(" · %s %s", T(lang, MsgDue), task.Deadline.In(loc).Format("2006-01-02 15:04")))
	}
	return b.String()
}

// ShoppingList renders items as a numbered listing grouped by category.
func ShoppingList(items []model.ShoppingItem, lang string) string {
	if len(items) == 0 {
		return T(lang, MsgNothingFoundShopping)
	}
	var b strings.Builder
	b.WriteString(T(lang, MsgShoppingHeader))
	b.WriteByte('\n')

	currentCategory := "\x00"
	n := 0
	for _, item := range items {
		if item.Category != currentCategory {
			currentCategory = item.Category
			label := currentCategory
			if label == "" {
				label = "🏷️"
			} else {
				label = "🏷️ " + escape(label)
			}
			b.WriteString(fmt.Sprintf("<b>%s</b>\n", label))
		}
		n++
		b.WriteString(fmt.Sprintf("%d. %s\n", n, ShoppingLine(item)))
	}
	return strings.TrimSpace(b.String())
}

// ShoppingLine renders a single shopping entry.
func ShoppingLine(item model.ShoppingItem) string {
	var b strings.Builder
	icon := "🛒"
	if item.Purchased {
		icon = iconDone
	}
	b.WriteString(fmt.Sprintf("%s <b>#%d</b> %s", icon, item.ID, escape(item.Name)))
	if item.Quantity != "" {
		b.WriteString(fmt.Sprintf(" (%s)", escape(item.Quantity)))
	}
	return b.String()
}

// EventList renders events as a numbered listing in start-time order.
func EventList(events []model.Event, loc *time.Location, lang string) string {
	if len(events) == 0 {
		return T(lang, MsgNothingFoundEvents)
	}
	var b strings.Builder
	b.WriteString(T(lang, MsgEventsHeader))
	b.WriteByte('\n')
	for i, event := range events {
		b.WriteString(fmt.Sprintf("%d. %s\n", i+1, EventLine(event, loc)))
		if event.Description != "" {
			b.WriteString(fmt.Sprintf("   📝 %s\n", escape(event.Description)))
		}
	}
	return strings.TrimSpace(b.String())
}

// EventLine renders a single event entry.
func EventLine(event model.Event, loc *time.Location) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📅 <b>#%d</b> %s · %s", event.ID, escape(event.Title),
		event.StartAt.In(loc).Format("2006-01-02 15:04")))
	if event.EndAt != nil {
		b.WriteString("–" + event.EndAt.In(loc).Format("15:04"))
	}
	return b.String()
}

// TaskSummary renders the confirmation sent after creating a task.
func TaskSummary(task *model.Task, loc *time.Location, lang string) string {
	var b strings.Builder
	b.WriteString(T(lang, MsgTaskCreated))
	b.WriteByte('\n')
	b.WriteString(fmt.Sprintf("• <b>#%d</b> %s\n", task.ID, escape(task.Description)))
	b.WriteString(fmt.Sprintf("• %s %s\n", priorityIcon(task.Priority), task.Priority))
	if task.Deadline != nil {
		b.WriteString(fmt.Sprintf("• ⏰ %s\n", task.Deadline.In(loc).Format("2006-01-02 15:04")))
	}
	return strings.TrimSpace(b.String())
}

// ItemSummary renders the confirmation sent after adding a shopping item.
func ItemSummary(item *model.ShoppingItem, lang string) string {
	var b strings.Builder
	b.WriteString(T(lang, MsgItemCreated))
	b.WriteByte('\n')
	b.WriteString("• " + ShoppingLine(*item))
	if item.Category != "" {
		b.WriteString(fmt.Sprintf("\n• 🏷️ %s", escape(item.Category)))
	}
	return b.String()
}

// EventSummary renders the confirmation sent after creating an event.
func EventSummary(event *model.Event, loc *time.Location, lang string) string {
	var b strings.Builder
	b.WriteString(T(lang, MsgEventCreated))
	b.WriteByte('\n')
	b.WriteString("• " + EventLine(*event, loc))
	if event.Description != "" {
		b.WriteString(fmt.Sprintf("\n• 📝 %s", escape(event.Description)))
	}
	return b.String()
}
