package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

type Prompt struct {
	System string
	User   string
}

type Client interface {
	Generate(ctx context.Context, prompt Prompt) (string, error)
	Provider() string
	Model() string
}

type Config struct {
	Provider        string
	Model           string
	BaseURL         string
	APIKey          string
	Temperature     float64
	MaxOutputTokens int
	TimeoutSeconds  int
}

// StatusError is returned when the provider answers with a non-2xx status.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s error (%d): %s", e.Provider, e.Code, e.Body)
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func New(cfg Config) (Client, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = "openai"
	}
	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = 30
	}

	switch provider {
	case "openai":
		apiKey := strings.TrimSpace(cfg.APIKey)
		if apiKey == "" {
			apiKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
		}
		if apiKey == "" {
			return nil, errors.New("openai selected but no API key provided (OPENAI_API_KEY)")
		}
		model := strings.TrimSpace(cfg.Model)
		if model == "" {
			model = "gpt-3.5-turbo"
		}
		baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
		if baseURL == "" {
			baseURL = "https://api.openai.com/v1"
		}
		return &openAIClient{
			baseURL:         baseURL,
			apiKey:          apiKey,
			model:           model,
			temperature:     cfg.Temperature,
			maxOutputTokens: cfg.MaxOutputTokens,
			http:            &http.Client{Timeout: time.Duration(timeout) * time.Second},
		}, nil
	case "ollama":
		model := strings.TrimSpace(cfg.Model)
		if model == "" {
			model = "llama3.2"
		}
		baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return &ollamaClient{
			baseURL:         baseURL,
			model:           model,
			temperature:     cfg.Temperature,
			maxOutputTokens: cfg.MaxOutputTokens,
			http:            &http.Client{Timeout: time.Duration(timeout) * time.Second},
		}, nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", provider)
	}
}

func messages(prompt Prompt) ([]message, error) {
	out := []message{}
	if strings.TrimSpace(prompt.System) != "" {
		out = append(out, message{Role: "system", Content: prompt.System})
	}
	if strings.TrimSpace(prompt.User) != "" {
		out = append(out, message{Role: "user", Content: prompt.User})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty prompt")
	}
	return out, nil
}

func readBody(provider string, resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, &StatusError{Provider: provider, Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}
