// Package intent defines the structured actions the classifier extracts
// from free-text messages, and the classifier itself.
package intent

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"family-assistant/internal/errs"
)

// Action kinds.
const (
	KindTask     = "task"
	KindShopping = "shopping"
	KindEvent    = "event"
	KindQuery    = "query"
	KindUser     = "user_setting"
)

// Operations.
const (
	OpCreate      = "create"
	OpUpdate      = "update"
	OpDelete      = "delete"
	OpList        = "list"
	OpComplete    = "mark_complete"
	OpPurchase    = "mark_purchased"
	OpSetName     = "set_name"
	OpSetTimezone = "set_timezone"
)

// Action is the validated result of classifying one message. Exactly one
// params pointer is set, matching Kind and Operation; the duck-typed
// parameter bag from the wire is resolved here, not downstream.
type Action struct {
	Kind       string
	Operation  string
	Scope      string
	ScopeUsers []string

	TaskCreate     *TaskCreateParams
	TaskUpdate     *TaskUpdateParams
	ShoppingCreate *ShoppingCreateParams
	ShoppingUpdate *ShoppingUpdateParams
	EventCreate    *EventCreateParams
	EventUpdate    *EventUpdateParams
	Target         *TargetParams
	List           *ListParams
	SetName        *SetNameParams
	SetTimezone    *SetTimezoneParams
}

type TaskCreateParams struct {
	Description string
	Priority    string
	Deadline    *time.Time
}

type TaskUpdateParams struct {
	ID          uint
	Description *string
	Priority    *string
	Deadline    *time.Time
}

type ShoppingCreateParams struct {
	Name     string
	Category string
	Quantity string
}

type ShoppingUpdateParams struct {
	ID       uint
	Name     *string
	Category *string
	Quantity *string
}

type EventCreateParams struct {
	Title       string
	Description string
	StartAt     time.Time
	EndAt       *time.Time
}

type EventUpdateParams struct {
	ID          uint
	Title       *string
	Description *string
	StartAt     *time.Time
	EndAt       *time.Time
}

// TargetParams identifies an existing record for delete / mark operations.
type TargetParams struct {
	ID uint
}

// ListParams narrows list and query operations.
type ListParams struct {
	Kind        string // for KindQuery: which entity to list, empty = tasks
	IncludeDone bool
	OnDate      *time.Time
	From        *time.Time
	To          *time.Time
	Category    string
}

type SetNameParams struct {
	Name string
}

type SetTimezoneParams struct {
	Timezone string
}

// rawAction is the wire shape the classifier returns.
type rawAction struct {
	Action     string          `json:"action"`
	Operation  string          `json:"operation"`
	Scope      string          `json:"scope,omitempty"`
	ScopeUsers []string        `json:"scope_users,omitempty"`
	Parameters json.RawMessage `json:"parameters,omitempty"`
}

type rawParams struct {
	ID          *uint   `json:"id,omitempty"`
	Description *string `json:"description,omitempty"`
	Priority    *string `json:"priority,omitempty"`
	Deadline    *string `json:"deadline,omitempty"`
	Name        *string `json:"name,omitempty"`
	Category    *string `json:"category,omitempty"`
	Quantity    *string `json:"quantity,omitempty"`
	Title       *string `json:"title,omitempty"`
	StartAt     *string `json:"start_at,omitempty"`
	EndAt       *string `json:"end_at,omitempty"`
	Kind        *string `json:"kind,omitempty"`
	IncludeDone *bool   `json:"include_done,omitempty"`
	OnDate      *string `json:"on_date,omitempty"`
	From        *string `json:"from,omitempty"`
	To          *string `json:"to,omitempty"`
	Timezone    *string `json:"timezone,omitempty"`
}

// ParseAction validates the classifier's JSON output and builds a typed
// Action. Times are interpreted in loc when they carry no offset.
func ParseAction(raw []byte, loc *time.Location) (*Action, error) {
	var wire rawAction
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, &errs.ClassifierError{Err: fmt.Errorf("decode action: %w", err)}
	}

	var params rawParams
	if len(wire.Parameters) > 0 {
		if err := json.Unmarshal(wire.Parameters, &params); err != nil {
			return nil, &errs.ClassifierError{Err: fmt.Errorf("decode parameters: %w", err)}
		}
	}

	action := &Action{
		Kind:       wire.Action,
		Operation:  wire.Operation,
		Scope:      wire.Scope,
		ScopeUsers: wire.ScopeUsers,
	}

	switch wire.Action {
	case KindTask:
		return action, buildTaskParams(action, params, loc)
	case KindShopping:
		return action, buildShoppingParams(action, params, loc)
	case KindEvent:
		return action, buildEventParams(action, params, loc)
	case KindQuery:
		if wire.Operation != OpList {
			return nil, &errs.UnknownActionError{Action: wire.Action, Operation: wire.Operation}
		}
		list, err := buildListParams(params, loc)
		if err != nil {
			return nil, err
		}
		action.List = list
		return action, nil
	case KindUser:
		return action, buildUserParams(action, params)
	default:
		return nil, &errs.UnknownActionError{Action: wire.Action, Operation: wire.Operation}
	}
}

func buildTaskParams(action *Action, params rawParams, loc *time.Location) error {
	switch action.Operation {
	case OpCreate:
		p := &TaskCreateParams{}
		if params.Description != nil {
			p.Description = *params.Description
		}
		if params.Priority != nil {
			p.Priority = normalizePriority(*params.Priority)
		}
		if params.Deadline != nil {
			t, err := parseWhen(*params.Deadline, loc)
			if err != nil {
				return err
			}
			p.Deadline = &t
		}
		action.TaskCreate = p
		return nil
	case OpUpdate:
		id, err := requireID(params)
		if err != nil {
			return err
		}
		p := &TaskUpdateParams{ID: id, Description: params.Description}
		if params.Priority != nil {
			norm := normalizePriority(*params.Priority)
			p.Priority = &norm
		}
		if params.Deadline != nil {
			t, err := parseWhen(*params.Deadline, loc)
			if err != nil {
				return err
			}
			p.Deadline = &t
		}
		action.TaskUpdate = p
		return nil
	case OpDelete, OpComplete:
		id, err := requireID(params)
		if err != nil {
			return err
		}
		action.Target = &TargetParams{ID: id}
		return nil
	case OpList:
		list, err := buildListParams(params, loc)
		if err != nil {
			return err
		}
		list.Kind = KindTask
		action.List = list
		return nil
	default:
		return &errs.UnknownActionError{Action: action.Kind, Operation: action.Operation}
	}
}

func buildShoppingParams(action *Action, params rawParams, loc *time.Location) error {
	switch action.Operation {
	case OpCreate:
		p := &ShoppingCreateParams{}
		if params.Name != nil {
			p.Name = *params.Name
		}
		if params.Category != nil {
			p.Category = *params.Category
		}
		if params.Quantity != nil {
			p.Quantity = *params.Quantity
		}
		action.ShoppingCreate = p
		return nil
	case OpUpdate:
		id, err := requireID(params)
		if err != nil {
			return err
		}
		action.ShoppingUpdate = &ShoppingUpdateParams{
			ID:       id,
			Name:     params.Name,
			Category: params.Category,
			Quantity: params.Quantity,
		}
		return nil
	case OpDelete, OpPurchase:
		id, err := requireID(params)
		if err != nil {
			return err
		}
		action.Target = &TargetParams{ID: id}
		return nil
	case OpList:
		list, err := buildListParams(params, loc)
		if err != nil {
			return err
		}
		list.Kind = KindShopping
		action.List = list
		return nil
	default:
		return &errs.UnknownActionError{Action: action.Kind, Operation: action.Operation}
	}
}

func buildEventParams(action *Action, params rawParams, loc *time.Location) error {
	switch action.Operation {
	case OpCreate:
		p := &EventCreateParams{}
		if params.Title != nil {
			p.Title = *params.Title
		}
		if params.Description != nil {
			p.Description = *params.Description
		}
		if params.StartAt != nil {
			t, err := parseWhen(*params.StartAt, loc)
			if err != nil {
				return err
			}
			p.StartAt = t
		}
		if params.EndAt != nil {
			t, err := parseWhen(*params.EndAt, loc)
			if err != nil {
				return err
			}
			p.EndAt = &t
		}
		action.EventCreate = p
		return nil
	case OpUpdate:
		id, err := requireID(params)
		if err != nil {
			return err
		}
		p := &EventUpdateParams{ID: id, Title: params.Title, Description: params.Description}
		if params.StartAt != nil {
			t, err := parseWhen(*params.StartAt, loc)
			if err != nil {
				return err
			}
			p.StartAt = &t
		}
		if params.EndAt != nil {
			t, err := parseWhen(*params.EndAt, loc)
			if err != nil {
				return err
			}
			p.EndAt = &t
		}
		action.EventUpdate = p
		return nil
	case OpDelete:
		id, err := requireID(params)
		if err != nil {
			return err
		}
		action.Target = &TargetParams{ID: id}
		return nil
	case OpList:
		list, err := buildListParams(params, loc)
		if err != nil {
			return err
		}
		list.Kind = KindEvent
		action.List = list
		return nil
	default:
		return &errs.UnknownActionError{Action: action.Kind, Operation: action.Operation}
	}
}

func buildListParams(params rawParams, loc *time.Location) (*ListParams, error) {
	list := &ListParams{}
	if params.Kind != nil {
		list.Kind = *params.Kind
	}
	if params.IncludeDone != nil {
		list.IncludeDone = *params.IncludeDone
	}
	if params.Category != nil {
		list.Category = *params.Category
	}
	for _, field := range []struct {
		raw  *string
		dest **time.Time
	}{
		{params.OnDate, &list.OnDate},
		{params.From, &list.From},
		{params.To, &list.To},
	} {
		if field.raw == nil {
			continue
		}
		t, err := parseWhen(*field.raw, loc)
		if err != nil {
			return nil, err
		}
		*field.dest = &t
	}
	return list, nil
}

func buildUserParams(action *Action, params rawParams) error {
	switch action.Operation {
	case OpSetName:
		if params.Name == nil || strings.TrimSpace(*params.Name) == "" {
			return errs.Validation("name is required")
		}
		action.SetName = &SetNameParams{Name: strings.TrimSpace(*params.Name)}
		return nil
	case OpSetTimezone:
		if params.Timezone == nil || strings.TrimSpace(*params.Timezone) == "" {
			return errs.Validation("timezone is required")
		}
		action.SetTimezone = &SetTimezoneParams{Timezone: strings.TrimSpace(*params.Timezone)}
		return nil
	default:
		return &errs.UnknownActionError{Action: action.Kind, Operation: action.Operation}
	}
}

func requireID(params rawParams) (uint, error) {
	if params.ID == nil || *params.ID == 0 {
		return 0, errs.Validation("missing id")
	}
	return *params.ID, nil
}

func normalizePriority(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "high", "urgent":
		return "high"
	case "low":
		return "low"
	default:
		return "medium"
	}
}

// parseWhen accepts the few time layouts the classifier is told to emit.
// Layouts without an offset are read in loc.
func parseWhen(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &errs.ClassifierError{Err: fmt.Errorf("unparseable time %q", raw)}
}
