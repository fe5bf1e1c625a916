// Package scope turns a human-facing scope selector ("me", "all of us",
// "me and X") into concrete ownership identifiers.
package scope

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"family-assistant/internal/errs"
	"family-assistant/internal/model"
	"family-assistant/internal/repository"
)

// Scope labels produced by the intent classifier.
const (
	LabelMe      = "me"
	LabelAllOfUs = "all_of_us"
	LabelMeAndX  = "me_and_x"
)

// Resolution is the transient result of resolving a scope. Exactly one of
// the three shapes is populated: a single owner, a group, or an assignee
// list that always starts with the acting user.
type Resolution struct {
	OwnerID   *uint
	GroupID   *uint
	Assignees model.Int64List

	// Names maps resolved user ids to display names for rendering.
	Names map[int64]string
}

// Ownership converts the resolution into the stored ownership shape.
func (r *Resolution) Ownership() model.Ownership {
	return model.Ownership{
		OwnerID:   r.OwnerID,
		GroupID:   r.GroupID,
		Assignees: r.Assignees,
	}
}

// Resolver resolves scope labels against known users and group members.
// It only ever reads.
type Resolver struct {
	users  *repository.UserRepository
	groups *repository.GroupRepository
	log    *zap.Logger
}

func NewResolver(users *repository.UserRepository, groups *repository.GroupRepository, log *zap.Logger) *Resolver {
	return &Resolver{users: users, groups: groups, log: log}
}

// Resolve maps a scope label plus name references to ownership identifiers.
// groupID is the group of the current chat, nil in one-on-one conversations.
func (r *Resolver) Resolve(ctx context.Context, label string, nameRefs []string, actor *model.User, groupID *uint) (*Resolution, error) {
	switch label {
	case LabelMe, "":
		owner := actor.ID
		return &Resolution{
			OwnerID: &owner,
			Names:   map[int64]string{int64(actor.ID): actor.DisplayName()},
		}, nil

	case LabelAllOfUs:
		if groupID == nil {
			return nil, errs.Scope("\"all of us\" only works in a group chat")
		}
		return &Resolution{GroupID: groupID}, nil

	case LabelMeAndX:
		return r.resolveMeAnd(ctx, nameRefs, actor, groupID)

	default:
		return nil, errs.Scope("unknown scope %q", label)
	}
}

func (r *Resolver) resolveMeAnd(ctx context.Context, nameRefs []string, actor *model.User, groupID *uint) (*Resolution, error) {
	refs := make([]string, 0, len(nameRefs))
	for _, ref := range nameRefs {
		if ref = strings.TrimSpace(ref); ref != "" {
			refs = append(refs, ref)
		}
	}
	if len(refs) == 0 {
		return nil, errs.Scope("scope \"me and ...\" needs at least one name")
	}

	all, err := r.users.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	var members []model.User
	if groupID != nil {
		members, err = r.groups.ListMembers(ctx, *groupID)
		if err != nil {
			return nil, err
		}
	}

	res := &Resolution{
		GroupID:   groupID,
		Assignees: model.Int64List{int64(actor.ID)},
		Names:     map[int64]string{int64(actor.ID): actor.DisplayName()},
	}

	var unresolved []string
	resolvedAny := false
	for _, ref := range refs {
		user := matchExact(all, ref)
		if user == nil {
			user = matchMember(members, ref)
		}
		if user == nil {
			r.log.Debug("scope name unresolved", zap.String("name", ref))
			unresolved = append(unresolved, ref)
			continue
		}
		resolvedAny = true
		id := int64(user.ID)
		if !res.Assignees.Contains(id) {
			res.Assignees = append(res.Assignees, id)
		}
		res.Names[id] = user.DisplayName()
	}

	if !resolvedAny {
		return nil, errs.Scope("could not find anyone named %s", strings.Join(unresolved, ", "))
	}
	return res, nil
}

// matchExact matches case-sensitively against custom name, first name and
// Telegram handle across all known users.
func matchExact(users []model.User, ref string) *model.User {
	for i := range users {
		u := &users[i]
		if u.CustomName == ref || u.FirstName == ref || u.Username == ref {
			return u
		}
	}
	return nil
}

// matchMember falls back to a case-insensitive match, but only among the
// current group's members.
func matchMember(members []model.User, ref string) *model.User {
	for i := range members {
		u := &members[i]
		if strings.EqualFold(u.CustomName, ref) && u.CustomName != "" {
			return u
		}
		if strings.EqualFold(u.FirstName, ref) && u.FirstName != "" {
			return u
		}
		if strings.EqualFold(u.Username, ref) && u.Username != "" {
			return u
		}
	}
	return nil
}
