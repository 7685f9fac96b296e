package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"converse-service/internal/genai"
	"converse-service/internal/models"
)

type ConversationRepositoryMock struct {
	mock.Mock
}

func (m *ConversationRepositoryMock) CreateDirect(ctx context.Context, user models.UserRef, other models.UserRef) (models.Conversation, error) {
	args := m.Called(ctx, user, other)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationRepositoryMock) CreateSelfChat(ctx context.Context, user models.UserRef) (models.Conversation, error) {
	args := m.Called(ctx, user)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationRepositoryMock) CreateGroup(ctx context.Context, creator models.UserRef, name string, members []models.UserRef) (models.Conversation, error) {
	args := m.Called(ctx, creator, name, members)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationRepositoryMock) Get(ctx context.Context, conversationID string) (models.Conversation, error) {
	args := m.Called(ctx, conversationID)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationRepositoryMock) ListForUser(ctx context.Context, userID string) ([]models.Conversation, error) {
	args := m.Called(ctx, userID)
	var list []models.Conversation
	if val := args.Get(0); val != nil {
		list = val.([]models.Conversation)
	}
	return list, args.Error(1)
}

func (m *ConversationRepositoryMock) IsMember(ctx context.Context, conversationID string, userID string) (bool, error) {
	args := m.Called(ctx, conversationID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *ConversationRepositoryMock) MemberCount(ctx context.Context, conversationID string) (int, error) {
	args := m.Called(ctx, conversationID)
	return args.Int(0), args.Error(1)
}

func (m *ConversationRepositoryMock) AddMembers(ctx context.Context, conversationID string, members []models.UserRef) error {
	args := m.Called(ctx, conversationID, members)
	return args.Error(0)
}

func (m *ConversationRepositoryMock) RemoveMember(ctx context.Context, conversationID string, userID string) error {
	args := m.Called(ctx, conversationID, userID)
	return args.Error(0)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) Append(ctx context.Context, msg models.Message) (models.Message, error) {
	args := m.Called(ctx, msg)
	var stored models.Message
	if val := args.Get(0); val != nil {
		stored = val.(models.Message)
	}
	return stored, args.Error(1)
}

func (m *MessageRepositoryMock) ListForConversation(ctx context.Context, conversationID string) ([]models.Message, error) {
	args := m.Called(ctx, conversationID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) GetMessage(ctx context.Context, messageID string) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ToggleReaction(ctx context.Context, messageID string, emoji string, userID string) (models.Message, error) {
	args := m.Called(ctx, messageID, emoji, userID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

type IdentityClientMock struct {
	mock.Mock
}

func (m *IdentityClientMock) ListUsers(ctx context.Context, query string, limit int) ([]models.SearchedUser, error) {
	args := m.Called(ctx, query, limit)
	var users []models.SearchedUser
	if val := args.Get(0); val != nil {
		users = val.([]models.SearchedUser)
	}
	return users, args.Error(1)
}

func (m *IdentityClientMock) VerifySession(ctx context.Context, token string) (models.UserRef, error) {
	args := m.Called(ctx, token)
	var user models.UserRef
	if val := args.Get(0); val != nil {
		user = val.(models.UserRef)
	}
	return user, args.Error(1)
}

type GeneratorMock struct {
	mock.Mock
}

func (m *GeneratorMock) GenerateReply(ctx context.Context, message string, history []genai.Turn) (string, error) {
	args := m.Called(ctx, message, history)
	return args.String(0), args.Error(1)
}

func (m *GeneratorMock) GenerateImage(ctx context.Context, prompt string) genai.ImageResult {
	args := m.Called(ctx, prompt)
	var result genai.ImageResult
	if val := args.Get(0); val != nil {
		result = val.(genai.ImageResult)
	}
	return result
}

type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, event any) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

func (m *PublisherMock) Close() error {
	args := m.Called()
	return args.Error(0)
}
