package answer

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"docchat/internal/config"
	"docchat/internal/domain"
)

// Refusal is the exact sentence the model is told to reply with when the
// excerpts do not contain the answer.
const Refusal = "This information is not available in the document."

const systemPrompt = `You are an assistant that answers questions about a set of documents.
Each excerpt below starts with its source file and page in brackets, like [report.pdf p.3].
Answer using only the excerpts. Name the source and page your answer came from.
If the excerpts do not contain the answer, reply exactly: ` + Refusal

const userTemplate = "Excerpts:\n\n%s\n\nQuestion: %s"

// Composer turns retrieved chunks and a question into a grounded answer
// through a chat model.
type Composer struct {
	model       llms.Model
	counter     *tokenCounter
	budget      int
	temperature float64
	maxReply    int
}

// New builds a composer against an OpenAI-compatible chat endpoint. The
// API key is read from the environment variable named in the config. A
// missing key does not block construction; generation fails per call
// until the key is exported.
func New(cfg config.LLMConfig, contextBudget int) (*Composer, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		key = "unset"
	}
	model, err := openai.New(
		openai.WithModel(cfg.Model),
		openai.WithToken(key),
		openai.WithBaseURL(cfg.BaseURL),
	)
	if err != nil {
		return nil, fmt.Errorf("build chat client: %w", err)
	}
	return NewWithModel(model, contextBudget, cfg.Temperature, cfg.MaxTokens), nil
}

// NewWithModel wraps an already-built chat model.
func NewWithModel(model llms.Model, contextBudget int, temperature float64, maxReply int) *Composer {
	if contextBudget <= 0 {
		contextBudget = 3000
	}
	return &Composer{
		model:       model,
		counter:     newTokenCounter(),
		budget:      contextBudget,
		temperature: temperature,
		maxReply:    maxReply,
	}
}

// Compose sends the question with as many excerpts as the token budget
// allows, best-ranked first. The answer records which chunks were sent.
func (c *Composer) Compose(ctx context.Context, question string, results []domain.ScoredChunk) (domain.Answer, error) {
	if len(results) == 0 {
		return domain.Answer{}, domain.ErrNoResults
	}

	excerpts, used := c.buildExcerpts(results)
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, fmt.Sprintf(userTemplate, excerpts, question)),
	}

	opts := []llms.CallOption{llms.WithTemperature(c.temperature)}
	if c.maxReply > 0 {
		opts = append(opts, llms.WithMaxTokens(c.maxReply))
	}
	resp, err := c.model.GenerateContent(ctx, content, opts...)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("%w: %v", domain.ErrGeneration, err)
	}
	if len(resp.Choices) == 0 {
		return domain.Answer{}, fmt.Errorf("%w: model returned no choices", domain.ErrGeneration)
	}
	return domain.Answer{
		Text:    strings.TrimSpace(resp.Choices[0].Content),
		Sources: used,
	}, nil
}

// buildExcerpts concatenates tagged excerpts until the budget runs out.
// The first excerpt always goes in, even when it alone exceeds the budget.
func (c *Composer) buildExcerpts(results []domain.ScoredChunk) (string, []domain.ScoredChunk) {
	var b strings.Builder
	var used []domain.ScoredChunk
	total := 0
	for _, r := range results {
		block := fmt.Sprintf("[%s p.%d]\n%s", r.Source, r.Page, r.Text)
		cost := c.counter.Count(block)
		if len(used) > 0 && total+cost > c.budget {
			break
		}
		if len(used) > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(block)
		total += cost
		used = append(used, r)
	}
	return b.String(), used
}
