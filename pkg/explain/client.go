package explain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/pharmaguard-server/internal/domain"
)

const (
	defaultBaseURL   = "https://api.anthropic.com"
	defaultModel     = "claude-sonnet-4-20250514"
	defaultMaxTokens = 1024
	defaultTimeout   = 30 * time.Second
	defaultRateLimit = 2
	apiVersion       = "2023-06-01"
)

// ClientConfig represents LLM explanation client configuration
type ClientConfig struct {
	APIKey    string        `json:"api_key"`
	BaseURL   string        `json:"base_url"`
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	Timeout   time.Duration `json:"timeout"`
	RateLimit float64       `json:"rate_limit"`
}

// Client generates explanations through the Anthropic messages API. Calls
// are rate limited and guarded by a circuit breaker; callers are expected to
// fall back to the template explainer on any error.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	rateLimit  *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	logger     *logrus.Logger
}

// NewClient creates an LLM explanation client. The API key is required;
// every other field falls back to a sensible default.
func NewClient(config ClientConfig, logger *logrus.Logger) (*Client, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("explanation API key is required")
	}
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Model == "" {
		config.Model = defaultModel
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = defaultMaxTokens
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	if config.RateLimit == 0 {
		config.RateLimit = defaultRateLimit
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "Explanation",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimit: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		breaker:   breaker,
		logger:    logger,
	}, nil
}

// Explain requests a structured clinical narrative for one verdict
func (c *Client) Explain(ctx context.Context, facts domain.ExplanationFacts) (*domain.Explanation, error) {
	if err := c.rateLimit.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	prompt := buildPrompt(facts)

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.complete(ctx, prompt)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState {
			return nil, fmt.Errorf("explanation service unavailable (circuit breaker open)")
		}
		return nil, err
	}

	return parseExplanation(result.(string))
}

func buildPrompt(facts domain.ExplanationFacts) string {
	variantText := "no variants detected (wildtype)"
	if len(facts.DetectedVariants) > 0 {
		variantText = strings.Join(facts.DetectedVariants, ", ")
	}

	return fmt.Sprintf(`You are a clinical pharmacogenomics expert. Generate a structured clinical explanation.

Patient Data:
- Gene: %s
- Diplotype: %s
- Phenotype: %s
- Drug: %s
- Detected Variants: %s
- Risk Assessment: %s
- Clinical Action: %s
- Guideline: %s

Respond ONLY with a valid JSON object with exactly these 3 keys (no markdown, no extra text):

{
  "summary": "2-3 sentences: state genotype, phenotype, detected variants, and predicted risk for this drug.",
  "mechanism": "3-4 sentences: explain biological mechanism, enzyme/transporter function, molecular consequence of variant, effect on drug plasma levels or efficacy. Include specific dosing implication.",
  "guideline_reference": "1-2 sentences: cite the specific CPIC/DPWG guideline, recommendation strength, and where to find full guidance."
}`,
		facts.Gene, facts.Diplotype, facts.Phenotype, facts.Drug,
		variantText, facts.RiskLabel, facts.Action, facts.Guideline)
}

type messagesRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	Messages  []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(messagesRequest{
		Model:     c.config.Model,
		MaxTokens: c.config.MaxTokens,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal messages request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.config.APIKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("messages request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("messages API returned status %d", resp.StatusCode)
	}

	var decoded messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("failed to decode messages response: %w", err)
	}
	if len(decoded.Content) == 0 {
		return "", fmt.Errorf("messages API returned empty content")
	}

	return decoded.Content[0].Text, nil
}

// parseExplanation extracts the three narrative fields from the model
// output. Code fences are stripped first since models occasionally wrap JSON
// despite instructions; missing keys decode to empty strings.
func parseExplanation(text string) (*domain.Explanation, error) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.ReplaceAll(cleaned, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	var payload struct {
		Summary            string `json:"summary"`
		Mechanism          string `json:"mechanism"`
		GuidelineReference string `json:"guideline_reference"`
	}
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse explanation JSON: %w", err)
	}

	return &domain.Explanation{
		Summary:            payload.Summary,
		Mechanism:          payload.Mechanism,
		GuidelineReference: payload.GuidelineReference,
		Source:             domain.ExplanationSourceLLM,
	}, nil
}
