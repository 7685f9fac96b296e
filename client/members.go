package client

import (
	"context"
	"errors"
	"sort"
	"strings"

	"converse-service/internal/models"
)

// MutationState is the tagged state of the manager's outstanding mutation.
// It replaces ad-hoc busy booleans so disabled/retry semantics are testable.
type MutationState int

const (
	StateIdle MutationState = iota
	StatePending
	StateSuccess
	StateError
)

// User-visible membership guard messages.
var (
	ErrMutationPending = errors.New("another membership change is still in progress")
	ErrRemoveSelf      = errors.New("cannot remove yourself; leaving a group is a separate action")
	ErrRemoveCreator   = errors.New("the group creator cannot be removed")
	ErrLastMember      = errors.New("cannot remove the last member")
)

// MembershipAPI is the persistence collaborator the manager mutates through.
type MembershipAPI interface {
	AddMembers(ctx context.Context, groupID string, members []models.UserRef) error
	RemoveMember(ctx context.Context, groupID, userID string) error
}

// MemberManager drives the manage-members dialog for one group: the
// annotated current-member list, the addable candidate selection and the
// two mutations. A single tagged MutationState guards both mutations, so
// overlapping edits from the same dialog are rejected.
type MemberManager struct {
	api       MembershipAPI
	groupID   string
	selfID    string
	creatorID string

	members  []models.UserRef
	selected map[string]models.UserRef

	state  MutationState
	errMsg string
}

// NewMemberManager builds a manager from the group's current snapshot.
func NewMemberManager(api MembershipAPI, group models.Conversation, selfID string) *MemberManager {
	members := make([]models.UserRef, 0, len(group.Members))
	for _, id := range group.Members {
		ref, ok := group.ParticipantDetails[id]
		if !ok {
			ref = models.UserRef{ID: id}
		}
		members = append(members, ref)
	}
	return &MemberManager{
		api:       api,
		groupID:   group.ID,
		selfID:    selfID,
		creatorID: group.CreatedBy,
		members:   members,
		selected:  map[string]models.UserRef{},
	}
}

// Members returns the current member snapshot.
func (m *MemberManager) Members() []models.UserRef {
	return m.members
}

// Removable reports whether the member row exposes a remove action.
func (m *MemberManager) Removable(userID string) bool {
	return userID != m.selfID && userID != m.creatorID && len(m.members) > 1
}

// Toggle flips a candidate in the to-add selection; the selection is
// replaced wholesale on each change.
func (m *MemberManager) Toggle(user models.UserRef) {
	next := make(map[string]models.UserRef, len(m.selected)+1)
	for id, ref := range m.selected {
		next[id] = ref
	}
	if _, ok := next[user.ID]; ok {
		delete(next, user.ID)
	} else {
		next[user.ID] = user
	}
	m.selected = next
}

// Selected returns the to-add selection sorted by display name.
func (m *MemberManager) Selected() []models.UserRef {
	selection := make([]models.UserRef, 0, len(m.selected))
	for _, ref := range m.selected {
		selection = append(selection, ref)
	}
	sort.SliceStable(selection, func(i, j int) bool {
		return strings.ToLower(selection[i].DisplayName) < strings.ToLower(selection[j].DisplayName)
	})
	return selection
}

// AddSelected sends the whole selection in one call. On success the
// selection is cleared; on failure it is kept intact so the user can retry.
func (m *MemberManager) AddSelected(ctx context.Context) error {
	if m.state == StatePending {
		return ErrMutationPending
	}
	if len(m.selected) == 0 {
		return ErrNoMembersSelected
	}

	batch := m.Selected()
	m.state = StatePending
	m.errMsg = ""

	if err := m.api.AddMembers(ctx, m.groupID, batch); err != nil {
		m.state = StateError
		m.errMsg = err.Error()
		return err
	}

	m.members = append(m.members, batch...)
	m.selected = map[string]models.UserRef{}
	m.state = StateSuccess
	return nil
}

// Remove removes a single member. Guard failures reject before any network
// call: the caller cannot remove themselves here, the creator is fixed, and
// the group can never be emptied.
func (m *MemberManager) Remove(ctx context.Context, userID string) error {
	if m.state == StatePending {
		return ErrMutationPending
	}
	if userID == m.selfID {
		return ErrRemoveSelf
	}
	if userID == m.creatorID {
		return ErrRemoveCreator
	}
	if len(m.members) <= 1 {
		return ErrLastMember
	}

	m.state = StatePending
	m.errMsg = ""

	if err := m.api.RemoveMember(ctx, m.groupID, userID); err != nil {
		m.state = StateError
		m.errMsg = err.Error()
		return err
	}

	for i, ref := range m.members {
		if ref.ID == userID {
			m.members = append(m.members[:i], m.members[i+1:]...)
			break
		}
	}
	m.state = StateSuccess
	return nil
}

// State returns the tagged mutation state.
func (m *MemberManager) State() MutationState {
	return m.state
}

// Err returns the last mutation error message, if any.
func (m *MemberManager) Err() string {
	return m.errMsg
}

// FilterCandidates narrows addable candidates by a case-insensitive
// substring match on display name, excluding current members.
func (m *MemberManager) FilterCandidates(candidates []models.UserRef, term string) []models.UserRef {
	present := map[string]struct{}{}
	for _, ref := range m.members {
		present[ref.ID] = struct{}{}
	}

	needle := strings.ToLower(strings.TrimSpace(term))
	var filtered []models.UserRef
	for _, ref := range candidates {
		if _, ok := present[ref.ID]; ok {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(ref.DisplayName), needle) {
			continue
		}
		filtered = append(filtered, ref)
	}
	return filtered
}
