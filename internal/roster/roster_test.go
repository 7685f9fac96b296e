package roster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"converse-service/internal/models"
)

func direct(id, self, otherID, otherName string) models.Conversation {
	return models.Conversation{
		ID:      id,
		Members: []string{self, otherID},
		ParticipantDetails: map[string]models.UserRef{
			self:    {ID: self, DisplayName: "Me"},
			otherID: {ID: otherID, DisplayName: otherName},
		},
	}
}

func TestCounterpartsDistinctSorted(t *testing.T) {
	convs := []models.Conversation{
		direct("c1", "me", "u2", "zoe"),
		direct("c2", "me", "u3", "Alice"),
		direct("c3", "me", "u4", "bob"),
	}

	contacts := Counterparts(convs, "me")
	require.Len(t, contacts, 3)
	assert.Equal(t, "Alice", contacts[0].DisplayName)
	assert.Equal(t, "bob", contacts[1].DisplayName)
	assert.Equal(t, "zoe", contacts[2].DisplayName)
}

func TestCounterpartsFirstOccurrenceWins(t *testing.T) {
	convs := []models.Conversation{
		direct("c1", "me", "u2", "Old Name"),
		direct("c2", "me", "u2", "New Name"),
	}

	contacts := Counterparts(convs, "me")
	require.Len(t, contacts, 1)
	assert.Equal(t, "Old Name", contacts[0].DisplayName)
}

func TestCounterpartsSkipGroupsAndSelfChats(t *testing.T) {
	convs := []models.Conversation{
		{
			ID:      "g1",
			IsGroup: true,
			Members: []string{"me", "u2", "u3"},
			ParticipantDetails: map[string]models.UserRef{
				"u2": {ID: "u2", DisplayName: "Grouped"},
			},
		},
		{
			ID:         "s1",
			IsSelfChat: true,
			Members:    []string{"me"},
			ParticipantDetails: map[string]models.UserRef{
				"me": {ID: "me", DisplayName: "Me"},
			},
		},
		direct("c1", "me", "u5", "Solo"),
	}

	contacts := Counterparts(convs, "me")
	require.Len(t, contacts, 1)
	assert.Equal(t, "u5", contacts[0].ID)
}

func TestCounterpartsIgnoreForeignConversations(t *testing.T) {
	convs := []models.Conversation{
		direct("c1", "someone-else", "u2", "Stranger"),
	}

	assert.Empty(t, Counterparts(convs, "me"))
}

func TestAddableCandidatesExcludesMembersAndFilters(t *testing.T) {
	group := models.Conversation{
		ID:      "g1",
		IsGroup: true,
		Members: []string{"me", "u2"},
	}
	convs := []models.Conversation{
		direct("c1", "me", "u2", "Already In"),
		direct("c2", "me", "u3", "Alice Smith"),
		direct("c3", "me", "u4", "Bob Jones"),
	}

	all := AddableCandidates(group, convs, "me", "")
	require.Len(t, all, 2)

	filtered := AddableCandidates(group, convs, "me", "aLiCe")
	require.Len(t, filtered, 1)
	assert.Equal(t, "u3", filtered[0].ID)

	assert.Empty(t, AddableCandidates(group, convs, "me", "nobody"))
}
