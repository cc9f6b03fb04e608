/**
 * @description
 * This package provides a client for generating one-sentence KYC profile
 * summaries from an LLM provider. Two providers are supported: the Hugging
 * Face Inference API and a local Ollama instance.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, net/http, strings, time: Standard Go libraries.
 *
 * @notes
 * - The client includes a default HTTP client with a timeout to prevent
 *   requests from hanging indefinitely.
 * - Summary generation is strictly best-effort: callers substitute a
 *   placeholder when the client is unconfigured or the provider errors.
 */
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// ProviderHuggingFace selects the hosted Hugging Face Inference API.
	ProviderHuggingFace = "hf"
	// ProviderOllama selects a local Ollama instance.
	ProviderOllama = "ollama"

	hfEndpoint = "https://api-inference.huggingface.co/models/mistralai/Mistral-7B-Instruct-v0.2"
)

// ErrNotConfigured is returned when the selected provider is missing its
// credentials or endpoint.
var ErrNotConfigured = errors.New("summary provider not configured")

// ProfileFields carries the registration fields the prompt is built from.
type ProfileFields struct {
	FirstName        string
	LastName         string
	Email            string
	Phone            string
	DateOfBirth      string
	Nationality      string
	Gender           string
	Age              int
	YearlyIncome     float64
	CurrentAddress   string
	PermanentAddress string
	Notes            string
}

// Client is a client for the configured summary provider.
type Client struct {
	provider   string
	hfAPIKey   string
	ollamaURL  string
	httpClient *http.Client
}

// NewClient creates a new summary client.
func NewClient(provider, hfAPIKey, ollamaURL string) *Client {
	return &Client{
		provider:  provider,
		hfAPIKey:  hfAPIKey,
		ollamaURL: ollamaURL,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

// Summarize generates a single-sentence profile summary, or an error when the
// provider is unconfigured or fails.
func (c *Client) Summarize(ctx context.Context, fields ProfileFields) (string, error) {
	prompt := buildPrompt(fields)
	switch c.provider {
	case ProviderOllama:
		return c.summarizeOllama(ctx, prompt)
	case ProviderHuggingFace:
		if strings.TrimSpace(c.hfAPIKey) == "" {
			return "", ErrNotConfigured
		}
		return c.summarizeHuggingFace(ctx, prompt)
	default:
		return "", fmt.Errorf("unknown summary provider %q", c.provider)
	}
}

func buildPrompt(f ProfileFields) string {
	name := strings.TrimSpace(f.FirstName + " " + f.LastName)
	notes := f.Notes
	if notes == "" {
		notes = "None"
	}
	var b strings.Builder
	b.WriteString("Write exactly ONE concise professional sentence summarizing this KYC profile with no extra commentary:\n")
	fmt.Fprintf(&b, "Name: %s; Email: %s; Phone: %s;\n", name, orNA(f.Email), orNA(f.Phone))
	fmt.Fprintf(&b, "DOB: %s;\n", orNA(f.DateOfBirth))
	fmt.Fprintf(&b, "Nationality: %s; Gender: %s; Age: %d;\n", orNA(f.Nationality), orNA(f.Gender), f.Age)
	fmt.Fprintf(&b, "Notes: %s.\n", notes)
	b.WriteString("Only output the single sentence.")
	return b.String()
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

// postprocess trims a raw completion down to its first sentence, ensuring it
// ends with a period. Returns "" when the completion is empty.
func postprocess(raw string) string {
	flat := strings.Join(strings.FieldsFunc(raw, func(r rune) bool {
		return r == '\n' || r == '\r'
	}), " ")
	first, _, _ := strings.Cut(flat, ". ")
	first = strings.TrimSpace(first)
	if first == "" {
		return ""
	}
	if !strings.HasSuffix(first, ".") {
		first += "."
	}
	return first
}

func (c *Client) summarizeHuggingFace(ctx context.Context, prompt string) (string, error) {
	payload := map[string]any{
		"inputs": prompt,
		"parameters": map[string]any{
			"max_new_tokens": 50,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, hfEndpoint, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create http request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.hfAPIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send request to Hugging Face: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("hugging face api error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var generations []struct {
		GeneratedText string `json:"generated_text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&generations); err != nil {
		return "", fmt.Errorf("failed to decode successful response: %w", err)
	}
	if len(generations) == 0 {
		return "", nil
	}

	text := generations[0].GeneratedText
	// The hosted API may echo the prompt ahead of the completion.
	if idx := strings.Index(text, prompt); idx >= 0 {
		text = text[idx+len(prompt):]
	}
	return postprocess(text), nil
}

func (c *Client) summarizeOllama(ctx context.Context, prompt string) (string, error) {
	baseURL := strings.TrimSpace(c.ollamaURL)
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	payload := map[string]any{
		"model":  "mistral",
		"prompt": prompt,
		"stream": false,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimSuffix(baseURL, "/")+"/api/generate", bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send request to Ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama api error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var generation struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&generation); err != nil {
		return "", fmt.Errorf("failed to decode successful response: %w", err)
	}
	return postprocess(generation.Response), nil
}
