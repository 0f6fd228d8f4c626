package explain

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmaguard-server/internal/domain"
)

func messagesReply(text string) map[string]interface{} {
	return map[string]interface{}{
		"content": []map[string]interface{}{
			{"type": "text", "text": text},
		},
	}
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient(ClientConfig{
		APIKey:    "test-key",
		BaseURL:   baseURL,
		RateLimit: 1000,
	}, testLogger())
	require.NoError(t, err)
	return client
}

func TestNewClient(t *testing.T) {
	t.Run("requires API key", func(t *testing.T) {
		_, err := NewClient(ClientConfig{}, testLogger())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "API key is required")
	})

	t.Run("applies defaults", func(t *testing.T) {
		client, err := NewClient(ClientConfig{APIKey: "test-key"}, testLogger())
		require.NoError(t, err)

		assert.Equal(t, defaultBaseURL, client.config.BaseURL)
		assert.Equal(t, defaultModel, client.config.Model)
		assert.Equal(t, defaultMaxTokens, client.config.MaxTokens)
		assert.Equal(t, defaultTimeout, client.config.Timeout)
	})
}

func TestClient_Explain(t *testing.T) {
	t.Run("successful generation", func(t *testing.T) {
		var captured messagesRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/v1/messages", r.URL.Path)
			assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
			assert.Equal(t, apiVersion, r.Header.Get("anthropic-version"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(messagesReply(`{"summary":"PM genotype detected.","mechanism":"CYP2C19 bioactivation is absent.","guideline_reference":"CPIC clopidogrel guideline."}`))
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		explanation, err := client.Explain(context.Background(), clopidogrelFacts())
		require.NoError(t, err)

		assert.Equal(t, "PM genotype detected.", explanation.Summary)
		assert.Equal(t, "CYP2C19 bioactivation is absent.", explanation.Mechanism)
		assert.Equal(t, "CPIC clopidogrel guideline.", explanation.GuidelineReference)
		assert.Equal(t, domain.ExplanationSourceLLM, explanation.Source)

		assert.Equal(t, defaultModel, captured.Model)
		assert.Equal(t, defaultMaxTokens, captured.MaxTokens)
		require.Len(t, captured.Messages, 1)
		assert.Equal(t, "user", captured.Messages[0].Role)
		assert.Contains(t, captured.Messages[0].Content, "- Gene: CYP2C19")
		assert.Contains(t, captured.Messages[0].Content, "- Detected Variants: rs4244285, rs4986893")
		assert.Contains(t, captured.Messages[0].Content, "Respond ONLY with a valid JSON object")
	})

	t.Run("wildtype prompt text", func(t *testing.T) {
		var captured messagesRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
			json.NewEncoder(w).Encode(messagesReply(`{"summary":"s","mechanism":"m","guideline_reference":"g"}`))
		}))
		defer server.Close()

		facts := clopidogrelFacts()
		facts.DetectedVariants = nil

		client := newTestClient(t, server.URL)
		_, err := client.Explain(context.Background(), facts)
		require.NoError(t, err)

		assert.Contains(t, captured.Messages[0].Content, "- Detected Variants: no variants detected (wildtype)")
	})

	t.Run("strips code fences from response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(messagesReply("```json\n{\"summary\":\"fenced\",\"mechanism\":\"m\",\"guideline_reference\":\"g\"}\n```"))
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		explanation, err := client.Explain(context.Background(), clopidogrelFacts())
		require.NoError(t, err)
		assert.Equal(t, "fenced", explanation.Summary)
	})

	t.Run("missing keys decode to empty strings", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(messagesReply(`{"summary":"only summary"}`))
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		explanation, err := client.Explain(context.Background(), clopidogrelFacts())
		require.NoError(t, err)
		assert.Equal(t, "only summary", explanation.Summary)
		assert.Empty(t, explanation.Mechanism)
		assert.Empty(t, explanation.GuidelineReference)
	})

	t.Run("non-JSON response is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(messagesReply("I cannot produce JSON today."))
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		_, err := client.Explain(context.Background(), clopidogrelFacts())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse explanation JSON")
	})

	t.Run("server error status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		_, err := client.Explain(context.Background(), clopidogrelFacts())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "returned status 500")
	})

	t.Run("empty content is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"content":[]}`)
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		_, err := client.Explain(context.Background(), clopidogrelFacts())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty content")
	})
}

func TestClient_CircuitBreakerOpens(t *testing.T) {
	requestCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	for i := 0; i < 3; i++ {
		_, err := client.Explain(context.Background(), clopidogrelFacts())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "returned status 503")
	}

	// Three consecutive failures trip the breaker; the next call is
	// rejected without reaching the server.
	_, err := client.Explain(context.Background(), clopidogrelFacts())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker open")
	assert.Equal(t, 3, requestCount)
}
