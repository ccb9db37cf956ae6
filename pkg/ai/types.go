package ai

import "context"

// FeedbackInput contains the artefacts needed to draft feedback for one
// free-text answer.
type FeedbackInput struct {
	AssignmentTitle string
	QuestionPrompt  string
	AnswerText      string
	MaxPoints       float64
	RubricNotes     string
}

// FeedbackDraft is the structured suggestion returned by the AI drafter.
// SuggestedPoints is advisory only; teachers always confirm the final score.
type FeedbackDraft struct {
	SuggestedPoints float64                `json:"suggested_points"`
	Feedback        string                 `json:"feedback"`
	Raw             map[string]interface{} `json:"raw,omitempty"`
}

// Drafter describes an AI model capable of drafting grading feedback for
// essay and short-answer responses.
type Drafter interface {
	Draft(ctx context.Context, input FeedbackInput) (FeedbackDraft, error)
}
