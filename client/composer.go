package client

import (
	"errors"
	"sort"
	"strings"

	"converse-service/internal/models"
)

// Stage is the group-composer wizard step.
type Stage int

const (
	// StageNaming asks for the group name.
	StageNaming Stage = iota
	// StageSelecting asks for the member selection.
	StageSelecting
)

// User-visible composer validation messages.
var (
	ErrEmptyGroupName    = errors.New("Group name cannot be empty.")
	ErrNoMembersSelected = errors.New("Select at least one member.")
)

// Submission is the composer's output: the callback payload handed to the
// parent for persistence.
type Submission struct {
	Name    string
	Members []models.UserRef
}

// GroupComposer is the two-step group creation wizard. Opening it always
// resets to the naming stage with empty state; nothing survives a close.
type GroupComposer struct {
	stage    Stage
	name     string
	selected map[string]models.UserRef
}

// NewGroupComposer constructs a composer in its reset state.
func NewGroupComposer() *GroupComposer {
	c := &GroupComposer{}
	c.Open()
	return c
}

// Open resets the wizard: naming stage, empty name, empty selection.
func (c *GroupComposer) Open() {
	c.stage = StageNaming
	c.name = ""
	c.selected = map[string]models.UserRef{}
}

// Stage returns the current wizard step.
func (c *GroupComposer) Stage() Stage {
	return c.stage
}

// SetName records the group name input.
func (c *GroupComposer) SetName(name string) {
	c.name = name
}

// Name returns the current name input.
func (c *GroupComposer) Name() string {
	return c.name
}

// Next advances from naming to selecting. The trimmed name must be
// non-empty.
func (c *GroupComposer) Next() error {
	if c.stage != StageNaming {
		return nil
	}
	if strings.TrimSpace(c.name) == "" {
		return ErrEmptyGroupName
	}
	c.stage = StageSelecting
	return nil
}

// Back returns to the naming stage, keeping the state entered so far.
func (c *GroupComposer) Back() {
	c.stage = StageNaming
}

// Toggle flips the user's membership in the selection. The selection is an
// immutable value replaced wholesale so state transitions stay observable.
func (c *GroupComposer) Toggle(user models.UserRef) {
	next := make(map[string]models.UserRef, len(c.selected)+1)
	for id, ref := range c.selected {
		next[id] = ref
	}
	if _, ok := next[user.ID]; ok {
		delete(next, user.ID)
	} else {
		next[user.ID] = user
	}
	c.selected = next
}

// IsSelected reports whether the user is currently selected.
func (c *GroupComposer) IsSelected(userID string) bool {
	_, ok := c.selected[userID]
	return ok
}

// Selected returns the selection sorted by display name, case-insensitively.
func (c *GroupComposer) Selected() []models.UserRef {
	members := make([]models.UserRef, 0, len(c.selected))
	for _, ref := range c.selected {
		members = append(members, ref)
	}
	sort.SliceStable(members, func(i, j int) bool {
		return strings.ToLower(members[i].DisplayName) < strings.ToLower(members[j].DisplayName)
	})
	return members
}

// Submit validates and emits the composer payload, then resets the wizard
// so the next open starts clean.
func (c *GroupComposer) Submit() (Submission, error) {
	name := strings.TrimSpace(c.name)
	if name == "" {
		return Submission{}, ErrEmptyGroupName
	}
	if len(c.selected) == 0 {
		return Submission{}, ErrNoMembersSelected
	}

	submission := Submission{Name: name, Members: c.Selected()}
	c.Open()
	return submission, nil
}
