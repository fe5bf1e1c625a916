// Package render turns records and pipeline outcomes into the HTML
// messages the bot sends, localized to English or Hebrew.
package render

import "fmt"

// Message keys.
const (
	MsgNothingFoundTasks    = "nothing_found_tasks"
	MsgNothingFoundShopping = "nothing_found_shopping"
	MsgNothingFoundEvents   = "nothing_found_events"
	MsgTaskNotFound         = "task_not_found"
	MsgItemNotFound         = "item_not_found"
	MsgEventNotFound        = "event_not_found"
	MsgTaskCreated          = "task_created"
	MsgItemCreated          = "item_created"
	MsgEventCreated         = "event_created"
	MsgTaskDone             = "task_done"
	MsgItemPurchased        = "item_purchased"
	MsgTaskDeleted          = "task_deleted"
	MsgItemDeleted          = "item_deleted"
	MsgEventDeleted         = "event_deleted"
	MsgUpdated              = "updated"
	MsgNameSet              = "name_set"
	MsgTimezoneSet          = "timezone_set"
	MsgLangSet              = "lang_set"
	MsgCouldNotUnderstand   = "could_not_understand"
	MsgGenericError         = "generic_error"
	MsgTasksHeader          = "tasks_header"
	MsgShoppingHeader       = "shopping_header"
	MsgEventsHeader         = "events_header"
	MsgReminderHeader       = "reminder_header"
	MsgHistoryHeader        = "history_header"
	MsgNoHistory            = "no_history"
	MsgDue                  = "due"
	MsgHelp                 = "help"
	MsgWelcome              = "welcome"
)

var catalog = map[string]map[string]string{
	"en": {
		MsgNothingFoundTasks:    "No tasks found.",
		MsgNothingFoundShopping: "The shopping list is empty.",
		MsgNothingFoundEvents:   "No events found.",
		MsgTaskNotFound:         "Task not found.",
		MsgItemNotFound:         "Item not found.",
		MsgEventNotFound:        "Event not found.",
		MsgTaskCreated:          "✅ Task saved",
		MsgItemCreated:          "🛒 Added to the shopping list",
		MsgEventCreated:         "📅 Event saved",
		MsgTaskDone:             "✅ Task \"%s\" is done.",
		MsgItemPurchased:        "🛒 \"%s\" marked as purchased.",
		MsgTaskDeleted:          "🗑 Task \"%s\" deleted.",
		MsgItemDeleted:          "🗑 Item \"%s\" deleted.",
		MsgEventDeleted:         "🗑 Event \"%s\" deleted.",
		MsgUpdated:              "✏️ Updated.",
		MsgNameSet:              "Nice to meet you, %s!",
		MsgTimezoneSet:          "Timezone set to %s.",
		MsgLangSet:              "Language set to English.",
		MsgCouldNotUnderstand:   "I could not understand that, please rephrase.",
		MsgGenericError:         "Something went wrong, please try again.",
		MsgTasksHeader:          "📋 <b>Tasks</b>",
		MsgShoppingHeader:       "🛒 <b>Shopping list</b>",
		MsgEventsHeader:         "📅 <b>Events</b>",
		MsgReminderHeader:       "⏰ <b>Coming up</b>",
		MsgHistoryHeader:        "🕘 <b>Recent requests</b>",
		MsgNoHistory:            "No requests yet.",
		MsgDue:                  "due",
		MsgWelcome: "👋 Hi %s!\n<b>I keep the family's tasks, shopping and events in one place.</b>\n\n" +
			"Just write to me, e.g. \"add milk to the shopping list for all of us\" or " +
			"\"remind me and Dana to call grandma on Friday\".\n\nCommands: /help",
		MsgHelp: "ℹ️ <b>Tips</b>\n" +
			"• Write freely: \"buy bread tomorrow\", \"what's on this week?\"\n" +
			"• Scopes: just you, \"all of us\" (in a group), or \"me and &lt;name&gt;\"\n" +
			"• /name &lt;name&gt; — how I should call you\n" +
			"• /timezone &lt;Area/City&gt; — your timezone\n" +
			"• /language en|he — message language\n" +
			"• /list — everything that concerns you\n" +
			"• /history — your recent requests",
	},
	"he": {
		MsgNothingFoundTasks:    "לא נמצאו משימות.",
		MsgNothingFoundShopping: "רשימת הקניות ריקה.",
		MsgNothingFoundEvents:   "לא נמצאו אירועים.",
		MsgTaskNotFound:         "המשימה לא נמצאה.",
		MsgItemNotFound:         "הפריט לא נמצא.",
		MsgEventNotFound:        "האירוע לא נמצא.",
		MsgTaskCreated:          "✅ המשימה נשמרה",
		MsgItemCreated:          "🛒 נוסף לרשימת הקניות",
		MsgEventCreated:         "📅 האירוע נשמר",
		MsgTaskDone:             "✅ המשימה \"%s\" הושלמה.",
		MsgItemPurchased:        "🛒 \"%s\" סומן כנקנה.",
		MsgTaskDeleted:          "🗑 המשימה \"%s\" נמחקה.",
		MsgItemDeleted:          "🗑 הפריט \"%s\" נמחק.",
		MsgEventDeleted:         "🗑 האירוע \"%s\" נמחק.",
		MsgUpdated:              "✏️ עודכן.",
		MsgNameSet:              "נעים להכיר, %s!",
		MsgTimezoneSet:          "אזור הזמן עודכן ל-%s.",
		MsgLangSet:              "השפה הוגדרה לעברית.",
		MsgCouldNotUnderstand:   "לא הצלחתי להבין, נסו לנסח מחדש.",
		MsgGenericError:         "משהו השתבש, נסו שוב.",
		MsgTasksHeader:          "📋 <b>משימות</b>",
		MsgShoppingHeader:       "🛒 <b>רשימת קניות</b>",
		MsgEventsHeader:         "📅 <b>אירועים</b>",
		MsgReminderHeader:       "⏰ <b>בקרוב</b>",
		MsgHistoryHeader:        "🕘 <b>בקשות אחרונות</b>",
		MsgNoHistory:            "אין בקשות עדיין.",
		MsgDue:                  "עד",
		MsgWelcome: "👋 שלום %s!\n<b>אני שומר את המשימות, הקניות והאירועים של המשפחה במקום אחד.</b>\n\n" +
			"פשוט כתבו לי, למשל \"תוסיף חלב לרשימת הקניות של כולנו\".\n\nפקודות: /help",
		MsgHelp: "ℹ️ <b>טיפים</b>\n" +
			"• כתבו חופשי: \"לקנות לחם מחר\", \"מה יש השבוע?\"\n" +
			"• היקפים: רק אתם, \"כולנו\" (בקבוצה), או \"אני ו&lt;שם&gt;\"\n" +
			"• /name — איך לקרוא לכם\n" +
			"• /timezone — אזור זמן\n" +
			"• /language en|he — שפת ההודעות\n" +
			"• /list — כל מה שנוגע לכם\n" +
			"• /history — הבקשות האחרונות שלכם",
	},
}

// T returns the message for the given language, falling back to English.
func T(lang, key string) string {
	if msgs, ok := catalog[lang]; ok {
		if msg, ok := msgs[key]; ok {
			return msg
		}
	}
	return catalog["en"][key]
}

// Tf formats a catalog message. String arguments are HTML-escaped since
// replies are sent in HTML parse mode.
func Tf(lang, key string, args ...interface{}) string {
	escaped := make([]interface{}, len(args))
	for i, arg := range args {
		if s, ok := arg.(string); ok {
			escaped[i] = escape(s)
		} else {
			escaped[i] = arg
		}
	}
	return fmt.Sprintf(T(lang, key), escaped...)
}
