package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"converse-service/internal/middleware"
	"converse-service/internal/models"
	"converse-service/internal/repositories"
	"converse-service/internal/roster"
)

// memberDescriptor is the wire form of a selected user: the identity
// snapshot copied into the conversation at join time.
type memberDescriptor struct {
	ID          string `json:"id" binding:"required"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

func (d memberDescriptor) toRef() models.UserRef {
	return models.UserRef{ID: d.ID, DisplayName: d.DisplayName, AvatarURL: d.AvatarURL}
}

// ConversationHandler manages conversation and message endpoints.
type ConversationHandler struct {
	convRepo    repositories.ConversationRepository
	messageRepo repositories.MessageRepository
}

// NewConversationHandler builds a ConversationHandler.
func NewConversationHandler(convRepo repositories.ConversationRepository, messageRepo repositories.MessageRepository) *ConversationHandler {
	return &ConversationHandler{convRepo: convRepo, messageRepo: messageRepo}
}

// List returns the conversations visible to the authenticated user.
func (h *ConversationHandler) List(c *gin.Context) {
	userID := userIDFromContext(c)

	convs, err := h.convRepo.ListForUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversations"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": convs})
}

// StartDirect creates or returns the one-to-one conversation with another
// user. Posting the caller's own descriptor yields the self-chat.
func (h *ConversationHandler) StartDirect(c *gin.Context) {
	caller, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}

	var req memberDescriptor
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var conv models.Conversation
	var err error
	if req.ID == caller.ID {
		conv, err = h.convRepo.CreateSelfChat(c.Request.Context(), caller)
	} else {
		conv, err = h.convRepo.CreateDirect(c.Request.Context(), caller, req.toRef())
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create conversation"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversation": conv})
}

// Candidates returns the group-composer candidate set: distinct
// counterparts across the caller's one-to-one conversations.
func (h *ConversationHandler) Candidates(c *gin.Context) {
	userID := userIDFromContext(c)

	convs, err := h.convRepo.ListForUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversations"})
		return
	}

	candidates := roster.Counterparts(convs, userID)
	if candidates == nil {
		candidates = []models.UserRef{}
	}
	c.JSON(http.StatusOK, gin.H{"candidates": candidates})
}

// GetMessages returns a conversation's messages, oldest first.
func (h *ConversationHandler) GetMessages(c *gin.Context) {
	conversationID := c.Param("conversation_id")
	userID := userIDFromContext(c)

	member, err := h.convRepo.IsMember(c.Request.Context(), conversationID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "membership check failed"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a member"})
		return
	}

	msgs, err := h.messageRepo.ListForConversation(c.Request.Context(), conversationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// PostMessage appends a message to the conversation.
func (h *ConversationHandler) PostMessage(c *gin.Context) {
	conversationID := c.Param("conversation_id")
	userID := userIDFromContext(c)

	member, err := h.convRepo.IsMember(c.Request.Context(), conversationID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "membership check failed"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a member"})
		return
	}

	var req struct {
		Text      string `json:"text"`
		MediaURL  string `json:"media_url"`
		MediaType string `json:"media_type"`
		FileName  string `json:"file_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Text == "" && req.MediaURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message requires text or media"})
		return
	}

	msg, err := h.messageRepo.Append(c.Request.Context(), models.Message{
		ChatID:    conversationID,
		SenderID:  userID,
		Text:      req.Text,
		MediaURL:  req.MediaURL,
		MediaType: req.MediaType,
		FileName:  req.FileName,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	c.JSON(http.StatusCreated, msg)
}

// ToggleReaction adds or removes the caller's reaction on a message.
func (h *ConversationHandler) ToggleReaction(c *gin.Context) {
	conversationID := c.Param("conversation_id")
	messageID := c.Param("message_id")
	userID := userIDFromContext(c)

	member, err := h.convRepo.IsMember(c.Request.Context(), conversationID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "membership check failed"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a member"})
		return
	}

	var req struct {
		Emoji string `json:"emoji" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.messageRepo.GetMessage(c.Request.Context(), messageID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrMessageNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "message not found"})
		return
	}
	if msg.ChatID != conversationID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message does not belong to conversation"})
		return
	}

	updated, err := h.messageRepo.ToggleReaction(c.Request.Context(), messageID, req.Emoji, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update reactions"})
		return
	}

	c.JSON(http.StatusOK, updated)
}
