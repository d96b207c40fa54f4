package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// RecommendConfig holds recommendation client configuration
type RecommendConfig struct {
	APIKey   string
	Endpoint string
	Model    string

	// HTTPClient replaces the bearer-token client when set
	HTTPClient *http.Client
}

// RecommendService asks a chat-completion model for a movie suggestion
type RecommendService struct {
	client   *http.Client
	endpoint string
	model    string
	logger   zerolog.Logger
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// NewRecommendService creates a new RecommendService
func NewRecommendService(cfg RecommendConfig, logger zerolog.Logger) *RecommendService {
	client := cfg.HTTPClient
	if client == nil {
		client = oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: cfg.APIKey,
			TokenType:   "Bearer",
		}))
		client.Timeout = 30 * time.Second
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://api.deepseek.com/v1/chat/completions"
	}
	if cfg.Model == "" {
		cfg.Model = "deepseek-chat"
	}

	return &RecommendService{
		client:   client,
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		logger:   logger.With().Str("component", "recommend").Logger(),
	}
}

// Recommend suggests one movie based on the given titles
func (s *RecommendService) Recommend(ctx context.Context, titles []string) (string, error) {
	if len(titles) == 0 {
		return "", ErrNoData
	}

	prompt := fmt.Sprintf(
		"Recommend me a movie based on these: %s. Just give the title and a one-sentence reason.",
		strings.Join(titles, ", "),
	)
	body, err := json.Marshal(chatRequest{
		Model:     s.model,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens: 100,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("recommendation API error: status %d, body: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode recommendation: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", ErrNoData
	}

	suggestion := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if suggestion == "" {
		return "", ErrNoData
	}

	s.logger.Debug().Int("titles", len(titles)).Msg("recommendation received")
	return suggestion, nil
}
