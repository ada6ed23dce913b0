// Package vision analyzes roof photographs through an ordered chain of
// multimodal models, with a seeded synthetic estimator as the last resort.
package vision

import (
	"context"
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/solar-engine/internal/model"
	"github.com/sells-group/solar-engine/pkg/anthropic"
	"github.com/sells-group/solar-engine/pkg/gemini"
)

// Image is an uploaded roof photograph.
type Image struct {
	Data      []byte
	MediaType string
}

// Provider is one model strategy in the chain.
type Provider interface {
	// Name is "vendor:model".
	Name() string
	Analyze(ctx context.Context, img Image, prompt string) (model.RoofAnalysis, error)
}

// ProviderSpec is a parsed "vendor:model" entry.
type ProviderSpec struct {
	Vendor string
	Model  string
}

// ParseProviderSpec splits "vendor:model".
func ParseProviderSpec(s string) (ProviderSpec, error) {
	vendor, modelID, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || vendor == "" || modelID == "" {
		return ProviderSpec{}, eris.Errorf("vision: provider %q must be vendor:model", s)
	}
	return ProviderSpec{Vendor: strings.ToLower(vendor), Model: modelID}, nil
}

// Clients holds the vendor SDK clients available to BuildProviders. A nil
// client means the vendor is not configured.
type Clients struct {
	Anthropic anthropic.Client
	Gemini    gemini.Client
	MaxTokens int64
}

// BuildProviders turns specs into providers, skipping vendors without a
// client. Unknown vendors are an error.
func BuildProviders(specs []string, c Clients) ([]Provider, error) {
	var out []Provider
	for _, raw := range specs {
		spec, err := ParseProviderSpec(raw)
		if err != nil {
			return nil, err
		}
		switch spec.Vendor {
		case "anthropic":
			if c.Anthropic != nil {
				out = append(out, NewAnthropicProvider(c.Anthropic, spec.Model, c.MaxTokens))
			}
		case "gemini":
			if c.Gemini != nil {
				out = append(out, NewGeminiProvider(c.Gemini, spec.Model, c.MaxTokens))
			}
		default:
			return nil, eris.Errorf("vision: unknown provider vendor %q", spec.Vendor)
		}
	}
	return out, nil
}

// AnthropicProvider analyzes roofs with a Claude model.
type AnthropicProvider struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropicProvider creates a Claude-backed provider.
func NewAnthropicProvider(client anthropic.Client, modelID string, maxTokens int64) *AnthropicProvider {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &AnthropicProvider{client: client, model: modelID, maxTokens: maxTokens}
}

// Name implements Provider.
func (p *AnthropicProvider) Name() string { return "anthropic:" + p.model }

// Analyze implements Provider.
func (p *AnthropicProvider) Analyze(ctx context.Context, img Image, prompt string) (model.RoofAnalysis, error) {
	temp := 0.0
	resp, err := p.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       p.model,
		MaxTokens:   p.maxTokens,
		System:      systemPrompt,
		Temperature: &temp,
		Messages: []anthropic.Message{{
			Role:    "user",
			Content: buildPrompt(prompt),
			Images:  []anthropic.Image{{MediaType: img.MediaType, Data: img.Data}},
		}},
	})
	if err != nil {
		return model.RoofAnalysis{}, err
	}
	return parseReply(resp.Text())
}

// GeminiProvider analyzes roofs with a Gemini model.
type GeminiProvider struct {
	client    gemini.Client
	model     string
	maxTokens int32
}

// NewGeminiProvider creates a Gemini-backed provider.
func NewGeminiProvider(client gemini.Client, modelID string, maxTokens int64) *GeminiProvider {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	maxTokens = min(maxTokens, math.MaxInt32)
	return &GeminiProvider{client: client, model: modelID, maxTokens: int32(maxTokens)}
}

// Name implements Provider.
func (p *GeminiProvider) Name() string { return "gemini:" + p.model }

// Analyze implements Provider.
func (p *GeminiProvider) Analyze(ctx context.Context, img Image, prompt string) (model.RoofAnalysis, error) {
	resp, err := p.client.Generate(ctx, gemini.Request{
		Model:           p.model,
		System:          systemPrompt,
		Prompt:          buildPrompt(prompt),
		Images:          []gemini.Image{{MIMEType: img.MediaType, Data: img.Data}},
		MaxOutputTokens: p.maxTokens,
		JSON:            true,
	})
	if err != nil {
		return model.RoofAnalysis{}, err
	}
	return parseReply(resp.Text)
}
