package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// ReplyFallback is returned when the model produces an empty reply.
const ReplyFallback = "Sorry, I couldn't come up with a reply. Please try again."

// User-facing image failure texts. Callers receive these inside ImageResult,
// never as returned errors.
const (
	ImageSafetyBlockedError = "Image generation was blocked due to safety settings."
	ImageNoMediaError       = "No image was generated. Please try a different prompt."
	ImageFailedError        = "Image generation failed. Please try again."
)

// maxResponseSize bounds generative gateway response bodies. Image payloads
// arrive base64-encoded inline, so the cap is generous.
const maxResponseSize = 32 << 20

// Turn is one role-tagged entry of prior conversation history.
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// ImageResult is the outcome of an image generation call. Exactly one of
// ImageDataURI and Error is non-empty.
type ImageResult struct {
	ImageDataURI string `json:"imageDataUri"`
	Error        string `json:"error,omitempty"`
}

// Client talks to the generative model gateway over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	chatModel  string
	imageModel string
	httpClient *http.Client
}

// NewClient constructs the genai client.
func NewClient(baseURL, apiKey, chatModel, imageModel string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		chatModel:  chatModel,
		imageModel: imageModel,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
			Timeout: 60 * time.Second,
		},
	}
}

type contentPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type content struct {
	Role  string        `json:"role,omitempty"`
	Parts []contentPart `json:"parts"`
}

type safetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type generateRequest struct {
	Contents       []content       `json:"contents"`
	SafetySettings []safetySetting `json:"safetySettings,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
}

// defaultSafetySettings is the provider-specific safety configuration sent
// with every generation request.
var defaultSafetySettings = []safetySetting{
	{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
	{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
	{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
	{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
}

// GenerateReply produces a chat reply for the message, given optional prior
// turn history. An empty model result yields ReplyFallback, not an error.
func (c *Client) GenerateReply(ctx context.Context, message string, history []Turn) (string, error) {
	contents := make([]content, 0, len(history)+1)
	for _, turn := range history {
		role := turn.Role
		if role != "user" {
			role = "model"
		}
		contents = append(contents, content{Role: role, Parts: []contentPart{{Text: turn.Text}}})
	}
	contents = append(contents, content{Role: "user", Parts: []contentPart{{Text: message}}})

	resp, err := c.generate(ctx, c.chatModel, generateRequest{
		Contents:       contents,
		SafetySettings: defaultSafetySettings,
	})
	if err != nil {
		return "", err
	}

	reply := firstText(resp)
	if strings.TrimSpace(reply) == "" {
		return ReplyFallback, nil
	}
	return reply, nil
}

// GenerateImage produces an image for the prompt. The result always carries
// either a self-contained data URI or one of the fixed error texts; this
// call never returns an error to its caller.
func (c *Client) GenerateImage(ctx context.Context, prompt string) ImageResult {
	resp, err := c.generate(ctx, c.imageModel, generateRequest{
		Contents:       []content{{Role: "user", Parts: []contentPart{{Text: prompt}}}},
		SafetySettings: defaultSafetySettings,
	})
	if err != nil {
		log.Printf("image generation failed: %v", err)
		return ImageResult{Error: ImageFailedError}
	}

	for _, candidate := range resp.Candidates {
		if strings.EqualFold(candidate.FinishReason, "SAFETY") {
			return ImageResult{Error: ImageSafetyBlockedError}
		}
	}
	for _, candidate := range resp.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && part.InlineData.Data != "" {
				mime := part.InlineData.MimeType
				if mime == "" {
					mime = "image/png"
				}
				return ImageResult{ImageDataURI: fmt.Sprintf("data:%s;base64,%s", mime, part.InlineData.Data)}
			}
		}
	}
	return ImageResult{Error: ImageNoMediaError}
}

func (c *Client) generate(ctx context.Context, model string, payload generateRequest) (generateResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return generateResponse{}, err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return generateResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return generateResponse{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return generateResponse{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return generateResponse{}, fmt.Errorf("genai gateway status %d: %s", resp.StatusCode, truncate(raw))
	}

	var parsed generateResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return generateResponse{}, fmt.Errorf("decode genai response: %w", err)
	}
	return parsed, nil
}

func firstText(resp generateResponse) string {
	for _, candidate := range resp.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				return part.Text
			}
		}
	}
	return ""
}

func truncate(body []byte) string {
	const limit = 200
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
