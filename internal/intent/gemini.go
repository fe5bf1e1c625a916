package intent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"family-assistant/internal/errs"
)

const systemPrompt = `You turn chat messages about tasks, shopping and calendar events into one JSON action.
Messages may be in English or Hebrew. Reply with JSON only, no prose.

Shape:
{"action":"task|shopping|event|query|user_setting",
 "operation":"create|update|delete|list|mark_complete|mark_purchased|set_name|set_timezone",
 "scope":"me|all_of_us|me_and_x",
 "scope_users":["names mentioned after 'me and'"],
 "parameters":{...}}

Parameters per action:
- task create: description (required), priority (low|medium|high), deadline
- task update: id (required), any of description, priority, deadline
- task delete / mark_complete: id (required)
- shopping create: name (required), category, quantity
- shopping update: id (required), any of name, category, quantity
- shopping delete / mark_purchased: id (required)
- event create: title (required), start_at (required), description, end_at
- event update: id (required), any of title, description, start_at, end_at
- event delete: id (required)
- any list / query: kind (task|shopping|event), include_done, on_date, from, to, category
- user_setting set_name: name; set_timezone: timezone (IANA name)

Times: "2006-01-02 15:04" or "2006-01-02", in the user's timezone.
Scope only applies to create operations. "me" is the default.
"all_of_us" means the whole group; "me_and_x" means the sender plus the
people listed in scope_users, exactly as the sender wrote their names.`

// GeminiClassifier implements Classifier on top of the Gemini API in JSON
// mode.
type GeminiClassifier struct {
	client *genai.Client
	model  string
	log    *zap.Logger
}

func NewGeminiClassifier(ctx context.Context, apiKey, model string, log *zap.Logger) (*GeminiClassifier, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiClassifier{client: client, model: model, log: log}, nil
}

// Classify sends the message with its context and parses the returned JSON
// action. Any transport or decoding failure surfaces as ClassifierError.
func (c *GeminiClassifier) Classify(ctx context.Context, req Request) (*Action, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(buildUserPrompt(req), genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		Temperature:       genai.Ptr(float32(0)),
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return nil, &errs.ClassifierError{Err: fmt.Errorf("gemini request: %w", err)}
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, &errs.ClassifierError{Err: fmt.Errorf("empty response")}
	}
	c.log.Debug("classifier output", zap.String("json", text))

	loc := req.Now.Location()
	return ParseAction([]byte(text), loc)
}

func buildUserPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Sender: %s\n", req.UserName)
	if req.HasGroup {
		fmt.Fprintf(&b, "Chat: group %q\n", req.Group)
	} else {
		b.WriteString("Chat: one-on-one\n")
	}
	if len(req.Names) > 0 {
		fmt.Fprintf(&b, "Known people: %s\n", strings.Join(req.Names, ", "))
	}
	fmt.Fprintf(&b, "Now: %s (%s)\n", req.Now.Format("2006-01-02 15:04 Monday"), req.Timezone)
	fmt.Fprintf(&b, "Message: %s", req.Message)
	return b.String()
}
