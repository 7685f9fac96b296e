package genai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, "test-key", "chat-model", "image-model")
}

func TestGenerateReply(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/chat-model:generateContent", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 3)
		assert.Equal(t, "user", req.Contents[0].Role)
		assert.Equal(t, "model", req.Contents[1].Role)
		assert.Equal(t, "user", req.Contents[2].Role)
		assert.Len(t, req.SafetySettings, 4)

		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": "a reply"}}}},
			},
		})
	})

	reply, err := client.GenerateReply(context.Background(), "and now?", []Turn{
		{Role: "user", Text: "hello"},
		{Role: "assistant", Text: "hi"},
	})
	require.NoError(t, err)
	assert.Equal(t, "a reply", reply)
}

func TestGenerateReplyEmptyCandidatesFallsBack(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
	})

	reply, err := client.GenerateReply(context.Background(), "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, ReplyFallback, reply)
}

func TestGenerateReplyGatewayError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	})

	_, err := client.GenerateReply(context.Background(), "hello", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestGenerateImageReturnsDataURI(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/image-model:generateContent", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{
					{"inline_data": map[string]any{"mime_type": "image/png", "data": "aGVsbG8="}},
				}}},
			},
		})
	})

	result := client.GenerateImage(context.Background(), "a red cat")
	assert.Empty(t, result.Error)
	assert.Equal(t, "data:image/png;base64,aGVsbG8=", result.ImageDataURI)
}

func TestGenerateImageSafetyBlocked(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []any{}}, "finishReason": "SAFETY"},
			},
		})
	})

	result := client.GenerateImage(context.Background(), "something off limits")
	assert.Equal(t, ImageSafetyBlockedError, result.Error)
	assert.Empty(t, result.ImageDataURI)
}

func TestGenerateImageNoMedia(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": "cannot draw that"}}}},
			},
		})
	})

	result := client.GenerateImage(context.Background(), "a red cat")
	assert.Equal(t, ImageNoMediaError, result.Error)
}

func TestGenerateImageGatewayFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	result := client.GenerateImage(context.Background(), "a red cat")
	assert.Equal(t, ImageFailedError, result.Error)
}
