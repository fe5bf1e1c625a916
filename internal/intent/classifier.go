package intent

import (
	"context"
	"time"
)

// Request carries one message plus the conversational context the
// classifier needs to ground names, dates and scope.
type Request struct {
	Message  string
	UserName string
	HasGroup bool
	Group    string   // group title, empty in one-on-one chats
	Names    []string // display names resolvable in this conversation
	Now      time.Time
	Timezone string
}

// Classifier converts a free-text message into a structured Action. It is
// an external collaborator and may fail; callers must not retry or repair
// its output.
type Classifier interface {
	Classify(ctx context.Context, req Request) (*Action, error)
}
