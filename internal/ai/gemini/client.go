// Package gemini implements the ai collaborators on top of the Google GenAI SDK.
package gemini

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"
)

const (
	defaultModel = "gemini-2.5-flash"
	profileTTL   = 6 * time.Hour
)

type Config struct {
	APIKey string `mapstructure:"api-key" json:"-"`
	Model  string `mapstructure:"model"`
	// Temperature is left to the model default when nil.
	Temperature *float32 `mapstructure:"temperature"`
}

// Generator wraps the Google GenAI client to provide simple prompt-based interactions.
type Generator struct {
	client      *genai.Client
	modelName   string
	temperature *float32

	cacheMu      sync.RWMutex
	profileCache map[string]cachedContent
}

type cachedContent struct {
	name string
	hash string
}

// NewGenerator creates a Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, cfg Config) (*Generator, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}

	return &Generator{client: client, modelName: model, temperature: cfg.Temperature}, nil
}

// GenerateContent sends the prompt to Gemini and returns the textual response.
func (g *Generator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	return g.generateContent(ctx, prompt, g.baseConfig())
}

// GenerateContentWithCache sends the prompt and reuses the named cached content.
func (g *Generator) GenerateContentWithCache(ctx context.Context, prompt, cacheName string) (string, error) {
	cfg := g.baseConfig()
	if cacheName = strings.TrimSpace(cacheName); cacheName != "" {
		if cfg == nil {
			cfg = &genai.GenerateContentConfig{}
		}
		cfg.CachedContent = cacheName
	}
	return g.generateContent(ctx, prompt, cfg)
}

// EnsureProfileCache stores the candidate profile in a Gemini cached content
// resource and returns its name. The same payload is uploaded only once.
func (g *Generator) EnsureProfileCache(ctx context.Context, profileID, payload string) (string, error) {
	if g == nil || g.client == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	profileID = strings.TrimSpace(profileID)
	if profileID == "" {
		return "", errors.New("profile id is required")
	}

	payload = strings.TrimSpace(payload)
	if payload == "" {
		return "", errors.New("profile payload must not be empty")
	}

	sum := sha256.Sum256([]byte(payload))
	hash := fmt.Sprintf("%x", sum[:])

	g.cacheMu.RLock()
	existing, ok := g.profileCache[profileID]
	g.cacheMu.RUnlock()
	if ok && existing.hash == hash && existing.name != "" {
		return existing.name, nil
	}

	g.cacheMu.Lock()
	defer g.cacheMu.Unlock()

	if g.profileCache == nil {
		g.profileCache = make(map[string]cachedContent)
	}
	if existing, ok := g.profileCache[profileID]; ok && existing.hash == hash && existing.name != "" {
		return existing.name, nil
	}

	cached, err := g.client.Caches.Create(ctx, g.modelName, &genai.CreateCachedContentConfig{
		DisplayName: "profile-" + profileID,
		TTL:         profileTTL,
		Contents: []*genai.Content{{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{{Text: payload}},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("create profile cache: %w", err)
	}

	name := strings.TrimSpace(cached.Name)
	if name == "" {
		return "", errors.New("gemini api returned empty cache name")
	}

	g.profileCache[profileID] = cachedContent{name: name, hash: hash}
	return name, nil
}

func (g *Generator) baseConfig() *genai.GenerateContentConfig {
	if g == nil || g.temperature == nil {
		return nil
	}
	return &genai.GenerateContentConfig{Temperature: g.temperature}
}

func (g *Generator) generateContent(ctx context.Context, prompt string, config *genai.GenerateContentConfig) (string, error) {
	if g == nil || g.client == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.modelName, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	return responseText(resp)
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", errors.New("gemini api returned no response")
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", errors.New("gemini api returned empty response")
	}

	return output, nil
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.modelName
}
