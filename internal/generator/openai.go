package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"appforge/internal/config"
	"appforge/internal/domain/model"
	"appforge/internal/domain/repository"
	"appforge/pkg/log"
)

const systemPrompt = `You are a code generator for small Node.js web applications.
Respond ONLY with complete files in this exact format:

<file path="relative/path.js">
file content
</file>

Optionally include a <changes>short explanation</changes> block.
Every file must be complete; never elide content. Paths must be relative
to the application root. Backend servers must listen on port 3000 and
respond to GET / with HTTP 200.`

// OpenAIGenerator implements the Generator interface against an
// OpenAI-compatible chat-completion API.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

var _ repository.Generator = (*OpenAIGenerator)(nil)

// NewOpenAIGenerator creates a generator client from configuration.
func NewOpenAIGenerator(cfg config.GeneratorConfig) *OpenAIGenerator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
	}
}

// GenerateApp produces the initial file set for a new app.
func (g *OpenAIGenerator) GenerateApp(ctx context.Context, prompt string) (*model.GeneratedApp, error) {
	user := fmt.Sprintf("Generate a complete web application: %s", prompt)
	return g.generate(ctx, user)
}

// ImproveApp produces the complete next file set for an existing app. The
// improvement scope is analyzed first so the prompt can steer generation
// toward the affected half of the app; an analysis failure falls back to
// deterministic keyword classification and is never fatal.
func (g *OpenAIGenerator) ImproveApp(ctx context.Context, appName string, files model.FileSet, intent string) (*model.GeneratedApp, error) {
	target, err := g.analyzeScope(ctx, intent)
	if err != nil {
		var analysisErr *model.AnalysisError
		if errors.As(err, &analysisErr) {
			target = AnalyzeIntent(intent)
			log.Warn("scope analysis failed, using keyword fallback", "app", appName, "intent", intent, "target", target)
		} else {
			return nil, err
		}
	}

	user := fmt.Sprintf(`Improve the application %q. Improvement request: %s
The change primarily affects the %s.
Current files:
%s
Return the COMPLETE updated file set, including unchanged files.`,
		appName, intent, target, RenderFiles(files))
	return g.generate(ctx, user)
}

// SuggestFix produces a corrected file set after a failed container build.
func (g *OpenAIGenerator) SuggestFix(ctx context.Context, appName string, files model.FileSet, diagnostics string) (*model.GeneratedApp, error) {
	user := fmt.Sprintf(`The container build for application %q failed. Build output:
%s
Current files:
%s
Fix the problem and return the COMPLETE corrected file set.`,
		appName, diagnostics, RenderFiles(files))
	return g.generate(ctx, user)
}

// analyzeScope asks the API whether an intent targets the frontend, the
// backend or both. Failures are reported as AnalysisError so the caller can
// recover locally.
func (g *OpenAIGenerator) analyzeScope(ctx context.Context, intent string) (model.ImprovementTarget, error) {
	user := fmt.Sprintf(`Classify this change request for a web application: %q
Answer with exactly one word: frontend, backend or fullstack.`, intent)

	answer, err := g.chat(ctx, "You classify change requests.", user)
	if err != nil {
		return "", &model.AnalysisError{Intent: intent, Err: err}
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "frontend":
		return model.TargetFrontend, nil
	case "backend":
		return model.TargetBackend, nil
	case "fullstack":
		return model.TargetFullstack, nil
	default:
		return "", &model.AnalysisError{Intent: intent, Err: fmt.Errorf("unparseable classification %q", answer)}
	}
}

func (g *OpenAIGenerator) generate(ctx context.Context, user string) (*model.GeneratedApp, error) {
	raw, err := g.chat(ctx, systemPrompt, user)
	if err != nil {
		return nil, fmt.Errorf("generation call failed: %w", err)
	}

	result := Parse(raw)
	if len(result.Files) == 0 {
		return nil, fmt.Errorf("generation returned no usable files (%d skipped)", result.SkippedFiles)
	}
	if result.SkippedFiles > 0 {
		log.Warn("generation returned files with unsafe paths", "skipped", result.SkippedFiles)
	}
	return result, nil
}

func (g *OpenAIGenerator) chat(ctx context.Context, system, user string) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion response")
	}
	return resp.Choices[0].Message.Content, nil
}
