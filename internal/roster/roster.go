// Package roster derives contact sets from a user's conversation list.
package roster

import (
	"sort"
	"strings"

	"converse-service/internal/models"
)

// Counterparts returns one entry per distinct counterpart across the user's
// one-to-one conversations. Group chats and self-chats contribute nothing.
// The first occurrence of a counterpart id wins; results are sorted by
// display name ascending, case-insensitively.
func Counterparts(conversations []models.Conversation, selfID string) []models.UserRef {
	seen := map[string]struct{}{}
	var contacts []models.UserRef
	for _, conv := range conversations {
		other, ok := conv.Counterpart(selfID)
		if !ok {
			continue
		}
		if _, dup := seen[other.ID]; dup {
			continue
		}
		seen[other.ID] = struct{}{}
		contacts = append(contacts, other)
	}

	sort.SliceStable(contacts, func(i, j int) bool {
		return strings.ToLower(contacts[i].DisplayName) < strings.ToLower(contacts[j].DisplayName)
	})
	return contacts
}

// AddableCandidates returns the counterparts that could still be added to
// the group: current members are excluded and the remainder is filtered by
// a case-insensitive substring match on display name. An empty term matches
// everyone.
func AddableCandidates(group models.Conversation, conversations []models.Conversation, selfID string, term string) []models.UserRef {
	members := map[string]struct{}{}
	for _, id := range group.Members {
		members[id] = struct{}{}
	}

	needle := strings.ToLower(strings.TrimSpace(term))
	var candidates []models.UserRef
	for _, contact := range Counterparts(conversations, selfID) {
		if _, present := members[contact.ID]; present {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(contact.DisplayName), needle) {
			continue
		}
		candidates = append(candidates, contact)
	}
	return candidates
}
