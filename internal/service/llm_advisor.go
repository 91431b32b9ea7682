package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/samber/lo"
	ierr "github.com/siteforge/backend/internal/errors"
	"github.com/siteforge/backend/pkg/llm"
)

// LLMAdvisor は chat completions API を使う Advisor の実装
type LLMAdvisor struct {
	client llm.Client
}

// NewLLMAdvisor は LLMAdvisor を生成する
func NewLLMAdvisor(client llm.Client) *LLMAdvisor {
	return &LLMAdvisor{client: client}
}

const (
	scoreSystemPrompt = "You are an AI assistant that evaluates product recommendation scores based on user interactions. " +
		"Analyze the user's answers and update the recommendation scores for each product accordingly. " +
		"Provide the updated scores in JSON format without any additional explanation."
	questionSystemPrompt = "You are an AI assistant that generates the next question and answer options for a product recommendation system. " +
		"The questions should help narrow down the user's preferences. Provide the question and answers in JSON format."
	explainSystemPrompt = "You are an AI assistant that provides a final product recommendation to the user, along with a personalized reason based on their previous answers. " +
		"Provide the reason in JSON format without any additional explanation."
)

// Score asks for updated scores keyed by product name.
func (a *LLMAdvisor) Score(ctx context.Context, history []QA, candidates []Candidate, previous []ProductScore) (map[string]float64, error) {
	prev := lo.Map(previous, func(p ProductScore, _ int) string { return fmt.Sprintf("%s: %g", p.Name, p.Score) })
	user := fmt.Sprintf("Products:\n%s\n\nUser's answers:\n%s\n\nPrevious recommendation scores:\n%s\n\n"+
		"Based on the user's answers, update the recommendation scores for each product. "+
		"Only provide the updated scores in JSON format, where keys are product names and values are the scores.",
		describeCandidates(candidates), describeHistory(history, ""), strings.Join(prev, "\n"))

	var out map[string]float64
	if err := a.ask(ctx, scoreSystemPrompt, user, 500, 0.5, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// NextQuestion asks for the next question with 2 to 5 answers.
func (a *LLMAdvisor) NextQuestion(ctx context.Context, history []QA, _ []Candidate) (Question, error) {
	user := fmt.Sprintf("Previous question-answer history:\n%s\n\n"+
		"Generate the next question and 2 to 5 answer options to help recommend a product. "+
		"Provide the output in the following JSON format:\n"+
		"{\n  \"question\": \"Your generated question\",\n  \"answers\": [\"Option 1\", \"Option 2\", ..., \"Option N\"]\n}",
		describeHistory(history, "None"))

	var q Question
	if err := a.ask(ctx, questionSystemPrompt, user, 500, 0.7, &q); err != nil {
		return Question{}, err
	}
	return q, nil
}

// Explain asks for a personalised reason for the final recommendation.
func (a *LLMAdvisor) Explain(ctx context.Context, product Candidate, history []QA) (string, error) {
	user := fmt.Sprintf("Recommended product:\n%s\n\nUser's previous question-answer history:\n%s\n\n"+
		"Provide a personalized recommendation reason to the user. "+
		"Output in the following JSON format:\n{\n  \"reason\": \"Your personalized reason for the recommendation\"\n}",
		describeCandidates([]Candidate{product}), describeHistory(history, "None"))

	var out struct {
		Reason string `json:"reason"`
	}
	if err := a.ask(ctx, explainSystemPrompt, user, 150, 0.7, &out); err != nil {
		return "", err
	}
	if out.Reason == "" {
		return "", ierr.NewError("empty recommendation reason").
			WithHint("The recommendation service returned an empty answer; please retry").
			Mark(ierr.ErrCollaborator)
	}
	return out.Reason, nil
}

func (a *LLMAdvisor) ask(ctx context.Context, system, user string, maxTokens int, temperature float64, dst any) error {
	content, err := a.client.Complete(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return ierr.WithError(err).
			WithHint("The recommendation service is unavailable; please retry").
			Mark(ierr.ErrCollaborator)
	}
	if err := json.Unmarshal([]byte(stripCodeFence(content)), dst); err != nil {
		return ierr.WithError(err).
			WithMessage("parse collaborator response").
			WithHint("The recommendation service returned an unreadable answer; please retry").
			Mark(ierr.ErrCollaborator)
	}
	return nil
}

// stripCodeFence removes a surrounding ``` block that chat models like to add.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func describeCandidates(cs []Candidate) string {
	return strings.Join(lo.Map(cs, func(c Candidate, _ int) string {
		return fmt.Sprintf("Product Name: %s\nDescription: %s", c.Name, c.Description)
	}), "\n")
}

func describeHistory(history []QA, empty string) string {
	if len(history) == 0 {
		return empty
	}
	return strings.Join(lo.Map(history, func(qa QA, _ int) string {
		return fmt.Sprintf("Q: %s\nA: %s", qa.Question, qa.Answer)
	}), "\n")
}
