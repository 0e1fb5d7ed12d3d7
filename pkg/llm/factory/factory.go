package factory

import (
	"fmt"
	"time"

	"rolplay-assistant-be/pkg/llm"
	"rolplay-assistant-be/pkg/llm/ollama"
	"rolplay-assistant-be/pkg/llm/openai"
)

// Params collects what any provider may need.
type Params struct {
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
}

func NewLLMProvider(p Params) (llm.LLMProvider, error) {
	switch p.Provider {
	case "ollama":
		baseURL := p.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return ollama.NewOllamaProvider(baseURL, p.Model, p.Timeout), nil
	case "openai", "":
		return openai.NewOpenAIProvider(p.APIKey, p.BaseURL, p.Model, p.Timeout), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", p.Provider)
	}
}
