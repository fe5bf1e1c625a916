// Package aggregate merges personal, group-wide and assigned-to-me query
// results into one deduplicated, sorted view.
package aggregate

import (
	"context"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"family-assistant/internal/model"
	"family-assistant/internal/repository"
	"family-assistant/internal/scope"
)

// Params selects what a single aggregation call looks at. Scope is
// optional; without it every dimension the context allows is queried.
type Params struct {
	User    model.User
	GroupID *uint
	Scope   *scope.Resolution
	Filter  repository.Filter
}

// wantPersonal, wantGroup and wantAssigned decide which of the three
// ownership dimensions apply. An unscoped list always fans out to
// everything the context allows.
func (p Params) wantPersonal() bool {
	if p.Scope == nil {
		return true
	}
	return p.Scope.OwnerID != nil && *p.Scope.OwnerID == p.User.ID
}

func (p Params) wantGroup() (uint, bool) {
	if p.Scope == nil {
		if p.GroupID != nil {
			return *p.GroupID, true
		}
		return 0, false
	}
	if p.Scope.GroupID != nil && p.GroupID != nil && *p.Scope.GroupID == *p.GroupID {
		return *p.GroupID, true
	}
	return 0, false
}

func (p Params) wantAssigned() bool {
	if p.Scope == nil {
		return true
	}
	return p.Scope.Assignees.Contains(int64(p.User.ID))
}

// Aggregator fans a list query out across the ownership dimensions,
// concurrently, and merges the results.
type Aggregator struct {
	tasks  *repository.TaskRepository
	items  *repository.ShoppingRepository
	events *repository.EventRepository
	log    *zap.Logger
}

func New(tasks *repository.TaskRepository, items *repository.ShoppingRepository, events *repository.EventRepository, log *zap.Logger) *Aggregator {
	return &Aggregator{tasks: tasks, items: items, events: events, log: log}
}

// Tasks returns the merged task view for the given params.
func (a *Aggregator) Tasks(ctx context.Context, p Params) ([]model.Task, error) {
	var personal, grouped, assigned []model.Task

	g, gctx := errgroup.WithContext(ctx)
	if p.wantPersonal() {
		g.Go(func() error {
			var err error
			personal, err = a.tasks.ListByOwner(gctx, p.User.ID, p.Filter)
			return err
		})
	}
	if groupID, ok := p.wantGroup(); ok {
		g.Go(func() error {
			var err error
			grouped, err = a.tasks.ListByGroup(gctx, groupID, p.Filter)
			return err
		})
	}
	if p.wantAssigned() {
		g.Go(func() error {
			var err error
			assigned, err = a.tasks.ListByAssignee(gctx, p.User.ID, p.Filter)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := MergeTasks(personal, grouped, assigned)
	SortTasks(merged)
	return merged, nil
}

// Shopping returns the merged shopping view for the given params.
func (a *Aggregator) Shopping(ctx context.Context, p Params) ([]model.ShoppingItem, error) {
	var personal, grouped, assigned []model.ShoppingItem

	g, gctx := errgroup.WithContext(ctx)
	if p.wantPersonal() {
		g.Go(func() error {
			var err error
			personal, err = a.items.ListByOwner(gctx, p.User.ID, p.Filter)
			return err
		})
	}
	if groupID, ok := p.wantGroup(); ok {
		g.Go(func() error {
			var err error
			grouped, err = a.items.ListByGroup(gctx, groupID, p.Filter)
			return err
		})
	}
	if p.wantAssigned() {
		g.Go(func() error {
			var err error
			assigned, err = a.items.ListByAssignee(gctx, p.User.ID, p.Filter)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := MergeItems(personal, grouped, assigned)
	SortShopping(merged)
	return merged, nil
}

// Events returns the merged event view for the given params.
func (a *Aggregator) Events(ctx context.Context, p Params) ([]model.Event, error) {
	var personal, grouped, assigned []model.Event

	g, gctx := errgroup.WithContext(ctx)
	if p.wantPersonal() {
		g.Go(func() error {
			var err error
			personal, err = a.events.ListByOwner(gctx, p.User.ID, p.Filter)
			return err
		})
	}
	if groupID, ok := p.wantGroup(); ok {
		g.Go(func() error {
			var err error
			grouped, err = a.events.ListByGroup(gctx, groupID, p.Filter)
			return err
		})
	}
	if p.wantAssigned() {
		g.Go(func() error {
			var err error
			assigned, err = a.events.ListByAssignee(gctx, p.User.ID, p.Filter)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := MergeEvents(personal, grouped, assigned)
	SortEvents(merged)
	return merged, nil
}

// MergeTasks keeps the first copy of every id, in source order: personal,
// then group, then assigned. A record matched by several dimensions is
// never counted twice.
func MergeTasks(sources ...[]model.Task) []model.Task {
	seen := make(map[uint]struct{})
	var merged []model.Task
	for _, source := range sources {
		for _, rec := range source {
			if _, ok := seen[rec.ID]; ok {
				continue
			}
			seen[rec.ID] = struct{}{}
			merged = append(merged, rec)
		}
	}
	return merged
}

func MergeItems(sources ...[]model.ShoppingItem) []model.ShoppingItem {
	seen := make(map[uint]struct{})
	var merged []model.ShoppingItem
	for _, source := range sources {
		for _, rec := range source {
			if _, ok := seen[rec.ID]; ok {
				continue
			}
			seen[rec.ID] = struct{}{}
			merged = append(merged, rec)
		}
	}
	return merged
}

func MergeEvents(sources ...[]model.Event) []model.Event {
	seen := make(map[uint]struct{})
	var merged []model.Event
	for _, source := range sources {
		for _, rec := range source {
			if _, ok := seen[rec.ID]; ok {
				continue
			}
			seen[rec.ID] = struct{}{}
			merged = append(merged, rec)
		}
	}
	return merged
}

// SortTasks orders by deadline ascending with deadline-less tasks last,
// then priority high to low, then newest first.
func SortTasks(tasks []model.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		switch {
		case a.Deadline == nil && b.Deadline != nil:
			return false
		case a.Deadline != nil && b.Deadline == nil:
			return true
		case a.Deadline != nil && b.Deadline != nil && !a.Deadline.Equal(*b.Deadline):
			return a.Deadline.Before(*b.Deadline)
		}
		if ra, rb := model.PriorityRank(a.Priority), model.PriorityRank(b.Priority); ra != rb {
			return ra > rb
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}

// SortShopping orders by category, then newest first.
func SortShopping(items []model.ShoppingItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}

// SortEvents orders by start time ascending.
func SortEvents(events []model.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].StartAt.Before(events[j].StartAt)
	})
}
