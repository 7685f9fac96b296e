package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"converse-service/internal/mocks"
	"converse-service/internal/models"
)

func setupConversationRouter(handler *ConversationHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", "me")
		c.Set("user", models.UserRef{ID: "me", DisplayName: "Me"})
		c.Next()
	})
	r.GET("/api/conversations", handler.List)
	r.POST("/api/conversations/direct", handler.StartDirect)
	r.GET("/api/conversations/candidates", handler.Candidates)
	r.GET("/api/conversations/:conversation_id/messages", handler.GetMessages)
	r.POST("/api/conversations/:conversation_id/messages", handler.PostMessage)
	r.POST("/api/conversations/:conversation_id/messages/:message_id/reactions", handler.ToggleReaction)
	return r
}

func TestListConversations(t *testing.T) {
	convRepo := new(mocks.ConversationRepositoryMock)
	handler := NewConversationHandler(convRepo, new(mocks.MessageRepositoryMock))
	router := setupConversationRouter(handler)

	convRepo.On("ListForUser", mock.Anything, "me").Return([]models.Conversation{{ID: "c1"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/conversations", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	convRepo.AssertExpectations(t)
}

func TestStartDirectCreatesConversation(t *testing.T) {
	convRepo := new(mocks.ConversationRepositoryMock)
	handler := NewConversationHandler(convRepo, new(mocks.MessageRepositoryMock))
	router := setupConversationRouter(handler)

	convRepo.On("CreateDirect", mock.Anything, models.UserRef{ID: "me", DisplayName: "Me"}, models.UserRef{ID: "u2", DisplayName: "Bob"}).
		Return(models.Conversation{ID: "c9"}, nil).Once()

	body := bytes.NewBufferString(`{"id":"u2","display_name":"Bob"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/conversations/direct", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	convRepo.AssertExpectations(t)
}

func TestStartDirectWithOwnIDCreatesSelfChat(t *testing.T) {
	convRepo := new(mocks.ConversationRepositoryMock)
	handler := NewConversationHandler(convRepo, new(mocks.MessageRepositoryMock))
	router := setupConversationRouter(handler)

	convRepo.On("CreateSelfChat", mock.Anything, models.UserRef{ID: "me", DisplayName: "Me"}).
		Return(models.Conversation{ID: "s1", IsSelfChat: true}, nil).Once()

	body := bytes.NewBufferString(`{"id":"me","display_name":"Me"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/conversations/direct", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	convRepo.AssertExpectations(t)
}

func TestCandidatesDerivedFromConversations(t *testing.T) {
	convRepo := new(mocks.ConversationRepositoryMock)
	handler := NewConversationHandler(convRepo, new(mocks.MessageRepositoryMock))
	router := setupConversationRouter(handler)

	convRepo.On("ListForUser", mock.Anything, "me").Return([]models.Conversation{
		{
			ID:      "c1",
			Members: []string{"me", "u2"},
			ParticipantDetails: map[string]models.UserRef{
				"u2": {ID: "u2", DisplayName: "Bob"},
			},
		},
		{ID: "g1", IsGroup: true, Members: []string{"me", "u3"}},
	}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/conversations/candidates", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Candidates []models.UserRef `json:"candidates"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Candidates, 1)
	assert.Equal(t, "u2", resp.Candidates[0].ID)
}

func TestGetMessagesForbiddenForNonMembers(t *testing.T) {
	convRepo := new(mocks.ConversationRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := NewConversationHandler(convRepo, messageRepo)
	router := setupConversationRouter(handler)

	convRepo.On("IsMember", mock.Anything, "c1", "me").Return(false, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/conversations/c1/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	messageRepo.AssertNotCalled(t, "ListForConversation", mock.Anything, mock.Anything)
}

func TestPostMessageRequiresContent(t *testing.T) {
	convRepo := new(mocks.ConversationRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := NewConversationHandler(convRepo, messageRepo)
	router := setupConversationRouter(handler)

	convRepo.On("IsMember", mock.Anything, "c1", "me").Return(true, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/api/conversations/c1/messages", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	messageRepo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestPostMessageSuccess(t *testing.T) {
	convRepo := new(mocks.ConversationRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := NewConversationHandler(convRepo, messageRepo)
	router := setupConversationRouter(handler)

	convRepo.On("IsMember", mock.Anything, "c1", "me").Return(true, nil).Once()
	messageRepo.On("Append", mock.Anything, models.Message{ChatID: "c1", SenderID: "me", Text: "hi"}).
		Return(models.Message{ID: "m1", ChatID: "c1", SenderID: "me", Text: "hi"}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/api/conversations/c1/messages", bytes.NewBufferString(`{"text":"hi"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	messageRepo.AssertExpectations(t)
}

func TestToggleReactionWrongConversation(t *testing.T) {
	convRepo := new(mocks.ConversationRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := NewConversationHandler(convRepo, messageRepo)
	router := setupConversationRouter(handler)

	convRepo.On("IsMember", mock.Anything, "c1", "me").Return(true, nil).Once()
	messageRepo.On("GetMessage", mock.Anything, "m1").Return(models.Message{ID: "m1", ChatID: "other"}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/api/conversations/c1/messages/m1/reactions", bytes.NewBufferString(`{"emoji":"👍"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	messageRepo.AssertNotCalled(t, "ToggleReaction", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
