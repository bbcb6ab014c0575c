package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"devops-pulse/internal/registry"

	"github.com/rs/zerolog/log"
)

// ModelConfig holds the connection settings for the completion model.
type ModelConfig struct {
	Endpoint   string // resource base URL
	Deployment string
	APIKey     string
	APIVersion string
}

// azureClient implements Completer against an Azure OpenAI-compatible chat
// completions deployment using the function-calling wire format.
type azureClient struct {
	cfg        ModelConfig
	httpClient *http.Client
}

// NewAzureCompleter creates a Completer backed by the configured deployment.
func NewAzureCompleter(cfg ModelConfig) (Completer, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("model endpoint is not configured")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("model API key is not configured")
	}
	return &azureClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 90 * time.Second,
		},
	}, nil
}

type completionRequest struct {
	Messages []Message  `json:"messages"`
	Tools    []toolSpec `json:"tools,omitempty"`
}

type toolSpec struct {
	Type     string       `json:"type"`
	Function functionSpec `json:"function"`
}

type functionSpec struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  any    `json:"parameters,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *azureClient) Complete(ctx context.Context, history []Message, tools []registry.Tool) (*Message, error) {
	reqBody := completionRequest{Messages: history}
	for _, t := range tools {
		reqBody.Tools = append(reqBody.Tools, toolSpec{
			Type: "function",
			Function: functionSpec{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.InputSchema,
			},
		})
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("encode completion request: %w", err)
	}

	url := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		strings.TrimRight(c.cfg.Endpoint, "/"), c.cfg.Deployment, c.cfg.APIVersion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.cfg.APIKey)

	log.Debug().Int("messages", len(history)).Int("tools", len(tools)).Msg("Requesting model completion")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read completion response: %w", err)
	}

	var parsed completionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode completion response (status %d): %w", resp.StatusCode, err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("model error: %s", parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("completion request failed with status %d", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("completion response contained no choices")
	}

	msg := parsed.Choices[0].Message
	if msg.Role == "" {
		msg.Role = "assistant"
	}
	return &msg, nil
}
