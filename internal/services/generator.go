package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/PixelPioneer1807/SmartPrepAI/internal/models"
	"github.com/PixelPioneer1807/SmartPrepAI/internal/retry"
)

type GenerateParams struct {
	Topic        string
	Difficulty   string
	QuestionType string
	// Context holds retrieved mistake documents. Non-empty selects the personalized template.
	Context []string
}

func (p GenerateParams) prompt() string {
	switch {
	case len(p.Context) > 0:
		return buildRAGPrompt(p.Topic, p.Difficulty, p.Context)
	case p.QuestionType == models.QuestionTypeFillBlank:
		return buildFillBlankPrompt(p.Topic, p.Difficulty)
	default:
		return buildMCQPrompt(p.Topic, p.Difficulty)
	}
}

func (p GenerateParams) expectedType() string {
	if len(p.Context) > 0 {
		return models.QuestionTypeMultipleChoice
	}
	if p.QuestionType == models.QuestionTypeFillBlank {
		return models.QuestionTypeFillBlank
	}
	return models.QuestionTypeMultipleChoice
}

type Generator struct {
	llm    LLM
	policy retry.Policy
	log    *zap.Logger
}

func NewGenerator(llm LLM, policy retry.Policy, log *zap.Logger) *Generator {
	return &Generator{llm: llm, policy: policy, log: log.With(zap.String("component", "generator"))}
}

// Generate asks the model for one question and retries, with the same
// prompt, until it parses and validates or the attempts run out.
func (g *Generator) Generate(ctx context.Context, p GenerateParams) (*models.Question, error) {
	prompt := p.prompt()
	qType := p.expectedType()

	q, err := retry.Until(ctx, g.policy,
		func(ctx context.Context) (*models.Question, error) {
			raw, err := g.llm.Complete(ctx, prompt)
			if err != nil {
				return nil, err
			}
			return parseQuestion(raw, qType)
		},
		validateQuestion,
		func(attempt int, err error, wait time.Duration) {
			g.log.Warn("question attempt failed",
				zap.String("topic", p.Topic),
				zap.Int("attempt", attempt),
				zap.Duration("retry_in", wait),
				zap.Error(err))
		},
	)
	if err != nil {
		var exhausted *retry.ExhaustedError
		if errors.As(err, &exhausted) {
			g.log.Error("question generation exhausted",
				zap.String("topic", p.Topic), zap.Int("attempts", exhausted.Attempts), zap.Error(exhausted.Err))
			return nil, &GenerationError{Attempts: exhausted.Attempts, Err: exhausted.Err}
		}
		return nil, err
	}
	return q, nil
}

// GenerateQuiz builds n questions in order. Any failure discards the whole quiz.
func (g *Generator) GenerateQuiz(ctx context.Context, p GenerateParams, n int, onProgress func(done, total int)) ([]models.Question, error) {
	questions := make([]models.Question, 0, n)
	for i := 0; i < n; i++ {
		q, err := g.Generate(ctx, p)
		if err != nil {
			return nil, err
		}
		questions = append(questions, *q)
		if onProgress != nil {
			onProgress(i+1, n)
		}
	}
	return questions, nil
}

type rawQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Answer        string   `json:"answer"`
	Explanation   string   `json:"explanation"`
}

func parseQuestion(raw, qType string) (*models.Question, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var rq rawQuestion
	if err := json.Unmarshal([]byte(text), &rq); err != nil {
		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start < 0 || end <= start {
			return nil, &QuestionValidationError{Reason: "response is not JSON"}
		}
		if err := json.Unmarshal([]byte(text[start:end+1]), &rq); err != nil {
			return nil, &QuestionValidationError{Reason: fmt.Sprintf("response is not JSON: %v", err)}
		}
	}

	correct := rq.CorrectAnswer
	if correct == "" {
		correct = rq.Answer
	}

	q := &models.Question{
		Type:          qType,
		Question:      strings.TrimSpace(rq.Question),
		CorrectAnswer: strings.TrimSpace(correct),
		Explanation:   strings.TrimSpace(rq.Explanation),
	}
	if qType == models.QuestionTypeMultipleChoice {
		q.Options = make([]string, len(rq.Options))
		for i, o := range rq.Options {
			q.Options[i] = strings.TrimSpace(o)
		}
	} else {
		q.Question = normalizeBlanks(q.Question)
	}
	return q, nil
}

var blankRun = regexp.MustCompile(`_{3,}`)

// normalizeBlanks collapses any run of three or more underscores into the blank marker.
func normalizeBlanks(s string) string {
	return blankRun.ReplaceAllString(s, models.BlankMarker)
}

func validateQuestion(q *models.Question) error {
	if q.Question == "" {
		return &QuestionValidationError{Reason: "question text is empty"}
	}
	if q.CorrectAnswer == "" {
		return &QuestionValidationError{Reason: "correct answer is empty"}
	}

	switch q.Type {
	case models.QuestionTypeMultipleChoice:
		if len(q.Options) != 4 {
			return &QuestionValidationError{Reason: fmt.Sprintf("expected 4 options, got %d", len(q.Options))}
		}
		seen := make(map[string]bool, 4)
		found := false
		for _, o := range q.Options {
			if o == "" {
				return &QuestionValidationError{Reason: "empty option"}
			}
			key := strings.ToLower(o)
			if seen[key] {
				return &QuestionValidationError{Reason: "duplicate option " + o}
			}
			seen[key] = true
			if o == q.CorrectAnswer {
				found = true
			}
		}
		if !found {
			return &QuestionValidationError{Reason: "correct answer is not one of the options"}
		}
	case models.QuestionTypeFillBlank:
		if n := strings.Count(q.Question, models.BlankMarker); n != 1 {
			return &QuestionValidationError{Reason: fmt.Sprintf("expected exactly one blank, got %d", n)}
		}
	default:
		return &QuestionValidationError{Reason: "unknown question type " + q.Type}
	}
	return nil
}
