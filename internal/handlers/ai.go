package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"

	"converse-service/internal/genai"
	"converse-service/internal/observability"
	"converse-service/internal/telemetry"
)

type generator interface {
	GenerateReply(ctx context.Context, message string, history []genai.Turn) (string, error)
	GenerateImage(ctx context.Context, prompt string) genai.ImageResult
}

// AIHandler exposes the generative call sites: chat reply, conversation
// summary and image generation.
type AIHandler struct {
	gen   generator
	audit *telemetry.AuditEmitter
}

// NewAIHandler constructs an AIHandler.
func NewAIHandler(gen generator, audit *telemetry.AuditEmitter) *AIHandler {
	return &AIHandler{gen: gen, audit: audit}
}

// Reply handles POST /api/ai/reply.
func (h *AIHandler) Reply(c *gin.Context) {
	var req struct {
		Message string       `json:"message"`
		History []genai.Turn `json:"history"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	ctx, span := otel.Tracer("converse-service/ai").Start(c.Request.Context(), "genai.reply")
	defer span.End()

	start := time.Now()
	reply, err := h.gen.GenerateReply(ctx, req.Message, req.History)
	if err != nil {
		observability.ObserveGenAICall("reply", "error", time.Since(start))
		h.emitAudit(c, "ERROR", "ai_reply", "reply generation failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "reply generation failed"})
		return
	}

	observability.ObserveGenAICall("reply", "ok", time.Since(start))
	h.emitAudit(c, "INFO", "ai_reply", "Reply generated")
	c.JSON(http.StatusOK, gin.H{"reply": reply})
}

// summaryInstruction frames the history for a summarization turn.
const summaryInstruction = "Summarize the following conversation in a few short sentences, highlighting decisions and open points."

// Summarize handles POST /api/ai/summary: a reply-generation call framed as
// a summarization request over the supplied turns.
func (h *AIHandler) Summarize(c *gin.Context) {
	var req struct {
		History []genai.Turn `json:"history"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.History) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "history is required"})
		return
	}

	ctx, span := otel.Tracer("converse-service/ai").Start(c.Request.Context(), "genai.summary")
	defer span.End()

	start := time.Now()
	summary, err := h.gen.GenerateReply(ctx, summaryInstruction, req.History)
	if err != nil {
		observability.ObserveGenAICall("summary", "error", time.Since(start))
		c.JSON(http.StatusBadGateway, gin.H{"error": "summarization failed"})
		return
	}

	observability.ObserveGenAICall("summary", "ok", time.Since(start))
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

// Image handles POST /api/ai/image. The response always carries a result
// payload; generation failures are reported inside it, never as transport
// errors.
func (h *AIHandler) Image(c *gin.Context) {
	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prompt is required"})
		return
	}

	ctx, span := otel.Tracer("converse-service/ai").Start(c.Request.Context(), "genai.image")
	defer span.End()

	start := time.Now()
	result := h.gen.GenerateImage(ctx, req.Prompt)

	outcome := "ok"
	if result.Error != "" {
		outcome = "error"
	}
	observability.ObserveGenAICall("image", outcome, time.Since(start))
	h.emitAudit(c, "INFO", "ai_image", "Image generation attempted")

	c.JSON(http.StatusOK, result)
}

func (h *AIHandler) emitAudit(c *gin.Context, level, action, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, action, text, requestMeta(c))
}
