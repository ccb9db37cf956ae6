package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "lms",
		Subsystem: "ai",
		Name:      "feedback_duration_seconds",
		Help:      "Duration of AI feedback drafting requests",
	}, []string{"model"})

	aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lms",
		Subsystem: "ai",
		Name:      "feedback_failures_total",
		Help:      "Number of AI feedback drafting failures",
	}, []string{"model"})
)

// OpenAIConfig defines configuration options for the OpenAI drafter.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// OpenAIDrafter implements Drafter against the OpenAI chat completion API.
type OpenAIDrafter struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIDrafter builds a new drafter using the provided configuration.
func NewOpenAIDrafter(cfg OpenAIConfig) (*OpenAIDrafter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 512
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	client := openai.NewClientWithConfig(openai.DefaultConfig(cfg.APIKey))

	return &OpenAIDrafter{
		client: client,
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/lms-portal-api/pkg/ai/openai"),
		logger: logger,
	}, nil
}

// Draft sends the answer to OpenAI and parses the suggested feedback.
func (d *OpenAIDrafter) Draft(parent context.Context, input FeedbackInput) (FeedbackDraft, error) {
	ctx, span := d.tracer.Start(parent, "openai.draft_feedback", trace.WithAttributes(
		attribute.String("model", d.cfg.Model),
	))
	defer span.End()

	start := time.Now()
	request := openai.ChatCompletionRequest{
		Model:       d.cfg.Model,
		MaxTokens:   d.cfg.MaxTokens,
		Temperature: d.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: drafterSystemPrompt(),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildUserPrompt(input),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}

	resp, err := d.client.CreateChatCompletion(ctx, request)
	aiDuration.WithLabelValues(d.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		aiFailures.WithLabelValues(d.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return FeedbackDraft{}, fmt.Errorf("openai draft: %w", err)
	}

	if len(resp.Choices) == 0 {
		err := fmt.Errorf("no choices returned from openai")
		aiFailures.WithLabelValues(d.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return FeedbackDraft{}, err
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	draft, err := parseDraftResponse(content, input.MaxPoints)
	if err != nil {
		aiFailures.WithLabelValues(d.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return FeedbackDraft{}, err
	}

	draft.Raw = map[string]interface{}{
		"usage": resp.Usage,
	}

	return draft, nil
}

func drafterSystemPrompt() string {
	return "You are a teaching assistant drafting grading feedback. Respond with a JSON object containing suggested_points " +
		"(number, at most the stated maximum) and feedback (constructive prose addressed to the student)."
}

func buildUserPrompt(input FeedbackInput) string {
	builder := strings.Builder{}
	builder.WriteString("# Assignment\n")
	builder.WriteString(input.AssignmentTitle)
	builder.WriteString("\n\n## Question\n")
	builder.WriteString(input.QuestionPrompt)
	builder.WriteString(fmt.Sprintf("\n\n## Maximum Points\n%.1f", input.MaxPoints))
	builder.WriteString("\n\n## Student Answer\n")
	builder.WriteString(input.AnswerText)
	if input.RubricNotes != "" {
		builder.WriteString("\n\n## Rubric Notes\n")
		builder.WriteString(input.RubricNotes)
	}
	builder.WriteString("\nReturn JSON.")
	return builder.String()
}

func parseDraftResponse(content string, maxPoints float64) (FeedbackDraft, error) {
	type payload struct {
		SuggestedPoints float64 `json:"suggested_points"`
		Feedback        string  `json:"feedback"`
	}

	var data payload
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		return FeedbackDraft{}, fmt.Errorf("parse feedback json: %w", err)
	}

	if data.SuggestedPoints < 0 {
		data.SuggestedPoints = 0
	}
	if maxPoints > 0 && data.SuggestedPoints > maxPoints {
		data.SuggestedPoints = maxPoints
	}

	return FeedbackDraft{
		SuggestedPoints: data.SuggestedPoints,
		Feedback:        data.Feedback,
	}, nil
}
