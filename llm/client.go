package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"auction-crawler/config"
	"auction-crawler/metrics"
	"auction-crawler/utils"
)

// maxContentRunes bounds the page content sent in a prompt.
const maxContentRunes = 8000

// ErrNotConfigured is returned by Complete when no API key is set.
var ErrNotConfigured = errors.New("llm: API key not configured")

// Message is one chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Analysis is the relevance verdict for one record. IsRelevant is nil when
// the verdict is unknown, and Error is set when the call degraded.
type Analysis struct {
	IsRelevant *bool   `json:"is_relevant"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
	Error      string  `json:"error,omitempty"`
}

// Client talks to a DeepSeek-compatible chat completions endpoint.
type Client struct {
	apiKey string
	model  string
	apiURL string
	http   *http.Client
	logger *utils.Logger
}

// New builds a Client from configuration.
func New(cfg *config.Config, logger *utils.Logger) *Client {
	if !cfg.LLMConfigured() {
		logger.Warn("[llm] DeepSeek API key not provided, LLM functionality will be limited")
	}
	return NewClient(cfg.DeepSeekAPIKey, cfg.DeepSeekModel, cfg.DeepSeekAPIURL, cfg.LLMTimeout, logger)
}

// NewClient builds a Client for an explicit endpoint/model pair.
func NewClient(apiKey, model, apiURL string, timeout time.Duration, logger *utils.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		model:  model,
		apiURL: apiURL,
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Configured reports whether a credential is present.
func (c *Client) Configured() bool {
	return c != nil && c.apiKey != ""
}

// Complete requests a JSON-formatted completion and returns the first
// choice's content.
func (c *Client) Complete(ctx context.Context, operation string, messages []Message) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	requestBody, err := json.Marshal(map[string]any{
		"model":           c.model,
		"messages":        messages,
		"response_format": map[string]string{"type": "json_object"},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewBuffer(requestBody))
	if err != nil {
		return "", fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.LLMRequests.WithLabelValues(operation, "transport_error").Inc()
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.LLMRequests.WithLabelValues(operation, strconv.Itoa(resp.StatusCode)).Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("received non-200 status code: %d - %s", resp.StatusCode, string(body))
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		metrics.LLMRequests.WithLabelValues(operation, "decode_error").Inc()
		return "", fmt.Errorf("failed to decode response body: %w", err)
	}
	if len(response.Choices) == 0 {
		metrics.LLMRequests.WithLabelValues(operation, "empty").Inc()
		return "", fmt.Errorf("no choices returned from DeepSeek")
	}

	metrics.LLMRequests.WithLabelValues(operation, "ok").Inc()
	return response.Choices[0].Message.Content, nil
}

// Analyze asks whether content describes a property in or near query.
// It never fails: problems come back as an Analysis with Error set.
func (c *Client) Analyze(ctx context.Context, content, query, location string) Analysis {
	if !c.Configured() {
		c.logger.Warn("[llm] DeepSeek API not configured, returning content without analysis")
		return Analysis{Error: "API not configured"}
	}

	raw, err := c.Complete(ctx, "analyze", analysisPrompt(content, query, location))
	if err != nil {
		c.logger.Error("[llm] Error calling DeepSeek API: %v", err)
		return Analysis{Error: err.Error()}
	}

	analysis, err := parseAnalysis(raw)
	if err != nil {
		c.logger.Error("[llm] Error parsing LLM response: %v", err)
		return Analysis{Error: "Failed to parse response"}
	}
	return analysis
}

// Extract asks for structured auction fields found in html. Failures yield
// an empty map.
func (c *Client) Extract(ctx context.Context, html, query string) map[string]any {
	if !c.Configured() {
		c.logger.Warn("[llm] DeepSeek API not configured, returning empty extraction")
		return map[string]any{}
	}

	raw, err := c.Complete(ctx, "extract", extractionPrompt(html, query))
	if err != nil {
		c.logger.Error("[llm] Error extracting auction data: %v", err)
		return map[string]any{}
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		c.logger.Error("[llm] Error parsing extracted data: %v", err)
		return map[string]any{}
	}
	return fields
}

func parseAnalysis(raw string) (Analysis, error) {
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return Analysis{}, err
	}

	var a Analysis
	switch v := m["is_relevant"].(type) {
	case bool:
		a.IsRelevant = &v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			a.IsRelevant = &b
		}
	}
	switch v := m["confidence"].(type) {
	case float64:
		a.Confidence = v
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			a.Confidence = f
		}
	}
	if a.Confidence < 0 {
		a.Confidence = 0
	}
	if a.Confidence > 1 {
		a.Confidence = 1
	}
	if reason, ok := m["reason"].(string); ok {
		a.Reason = reason
	}
	return a, nil
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
