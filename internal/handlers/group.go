package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"converse-service/internal/middleware"
	"converse-service/internal/models"
	"converse-service/internal/repositories"
	"converse-service/internal/roster"
	"converse-service/internal/telemetry"
)

// Validation messages for the group composer. Each failure mode has its own
// user-visible text.
const (
	msgEmptyGroupName = "Group name cannot be empty."
	msgNoMembers      = "Select at least one member."
)

// GroupHandler manages group conversations and their membership.
type GroupHandler struct {
	convRepo repositories.ConversationRepository
	audit    *telemetry.AuditEmitter
}

// NewGroupHandler constructs a GroupHandler.
func NewGroupHandler(convRepo repositories.ConversationRepository, audit *telemetry.AuditEmitter) *GroupHandler {
	return &GroupHandler{convRepo: convRepo, audit: audit}
}

// Create handles POST /api/groups. The name must be non-empty after
// trimming and at least one member must be selected; each failure carries a
// distinct message and nothing is persisted.
func (h *GroupHandler) Create(c *gin.Context) {
	caller, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}

	var req struct {
		Name    string             `json:"name"`
		Members []memberDescriptor `json:"members"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgEmptyGroupName})
		return
	}

	members := make([]models.UserRef, 0, len(req.Members))
	for _, d := range req.Members {
		if d.ID == caller.ID {
			continue
		}
		members = append(members, d.toRef())
	}
	if len(members) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgNoMembers})
		return
	}

	group, err := h.convRepo.CreateGroup(c.Request.Context(), caller, name, members)
	if err != nil {
		h.emitAudit(c, "ERROR", "group_create", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create group"})
		return
	}

	h.emitAudit(c, "INFO", "group_create", "Group created")
	c.JSON(http.StatusCreated, gin.H{"group": group})
}

type memberView struct {
	models.UserRef
	IsYou     bool `json:"is_you"`
	IsCreator bool `json:"is_creator"`
	Removable bool `json:"removable"`
}

// ListMembers returns the group's members, annotated for the membership
// dialog. A member is removable only when it is neither the caller nor the
// creator and removal would not empty the group.
func (h *GroupHandler) ListMembers(c *gin.Context) {
	group, ok := h.loadGroupForMember(c)
	if !ok {
		return
	}
	userID := userIDFromContext(c)

	members := make([]memberView, 0, len(group.Members))
	for _, id := range group.Members {
		ref, ok := group.ParticipantDetails[id]
		if !ok {
			ref = models.UserRef{ID: id}
		}
		view := memberView{
			UserRef:   ref,
			IsYou:     id == userID,
			IsCreator: id == group.CreatedBy,
		}
		view.Removable = !view.IsYou && !view.IsCreator && len(group.Members) > 1
		members = append(members, view)
	}

	c.JSON(http.StatusOK, gin.H{"members": members, "created_by": group.CreatedBy})
}

// Candidates returns users who could be added to the group: the caller's
// one-to-one contacts minus current members, filtered by the search term.
func (h *GroupHandler) Candidates(c *gin.Context) {
	group, ok := h.loadGroupForMember(c)
	if !ok {
		return
	}
	userID := userIDFromContext(c)

	convs, err := h.convRepo.ListForUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversations"})
		return
	}

	candidates := roster.AddableCandidates(group, convs, userID, c.Query("term"))
	if candidates == nil {
		candidates = []models.UserRef{}
	}
	c.JSON(http.StatusOK, gin.H{"candidates": candidates})
}

// AddMembers handles POST /api/groups/:group_id/members: the whole selected
// batch goes to the repository in one call. Already-present members are
// no-ops.
func (h *GroupHandler) AddMembers(c *gin.Context) {
	group, ok := h.loadGroupForMember(c)
	if !ok {
		return
	}

	var req struct {
		Members []memberDescriptor `json:"members"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Members) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgNoMembers})
		return
	}

	seen := map[string]struct{}{}
	members := make([]models.UserRef, 0, len(req.Members))
	for _, d := range req.Members {
		if _, dup := seen[d.ID]; dup {
			continue
		}
		seen[d.ID] = struct{}{}
		members = append(members, d.toRef())
	}

	if err := h.convRepo.AddMembers(c.Request.Context(), group.ID, members); err != nil {
		h.emitAudit(c, "ERROR", "group_members_add", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not add members"})
		return
	}

	h.emitAudit(c, "INFO", "group_members_add", "Members added to group")
	c.Status(http.StatusNoContent)
}

// RemoveMember handles DELETE /api/groups/:group_id/members/:user_id. The
// caller cannot remove themselves through this path, the creator cannot be
// removed, and the group can never be left empty; every guard fires before
// the repository is touched.
func (h *GroupHandler) RemoveMember(c *gin.Context) {
	group, ok := h.loadGroupForMember(c)
	if !ok {
		return
	}
	userID := userIDFromContext(c)
	targetID := c.Param("user_id")

	if targetID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot remove yourself; leaving a group is a separate action"})
		return
	}
	if targetID == group.CreatedBy {
		c.JSON(http.StatusForbidden, gin.H{"error": "the group creator cannot be removed"})
		return
	}
	if len(group.Members) <= 1 {
		c.JSON(http.StatusConflict, gin.H{"error": "cannot remove the last member"})
		return
	}

	if err := h.convRepo.RemoveMember(c.Request.Context(), group.ID, targetID); err != nil {
		if errors.Is(err, repositories.ErrNotAMember) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user is not a member"})
			return
		}
		h.emitAudit(c, "ERROR", "group_member_remove", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not remove member"})
		return
	}

	h.emitAudit(c, "INFO", "group_member_remove", "Member removed from group")
	c.Status(http.StatusNoContent)
}

// loadGroupForMember fetches the group and enforces that it is a group
// conversation the caller belongs to. It writes the error response itself.
func (h *GroupHandler) loadGroupForMember(c *gin.Context) (models.Conversation, bool) {
	groupID := c.Param("group_id")
	userID := userIDFromContext(c)

	group, err := h.convRepo.Get(c.Request.Context(), groupID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrConversationNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "group not found"})
		return models.Conversation{}, false
	}
	if !group.IsGroup {
		c.JSON(http.StatusBadRequest, gin.H{"error": "not a group conversation"})
		return models.Conversation{}, false
	}
	if !group.HasMember(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a member"})
		return models.Conversation{}, false
	}
	return group, true
}

func (h *GroupHandler) emitAudit(c *gin.Context, level, action, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, action, text, requestMeta(c))
}
