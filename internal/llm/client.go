package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/stonebridgeco/parley/internal/config"
)

// Message is one chat message in an OpenAI-compatible request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Tool describes one function the model is forced to call.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Client is the remote completion surface. Both free-text completions and
// forced function calls go through the same /chat/completions endpoint.
type Client interface {
	Complete(messages []Message) (string, error)
	CallTool(messages []Message, tool Tool) (json.RawMessage, error)
}

type httpClient struct {
	apiKey     string
	baseURL    string
	model      string
	requestGap time.Duration
	httpc      *http.Client

	mu       sync.Mutex
	lastCall time.Time
}

func NewClient(cfg *config.Config) Client {
	timeout := 30 * time.Second
	if d, err := time.ParseDuration(strings.TrimSpace(cfg.Provider.HTTPTimeout)); err == nil && d > 0 {
		timeout = d
	}
	gap := time.Second
	if d, err := time.ParseDuration(strings.TrimSpace(cfg.Provider.RequestGap)); err == nil && d >= 0 {
		gap = d
	}
	return &httpClient{
		apiKey:     cfg.Provider.APIKey,
		baseURL:    cfg.Provider.BaseURL,
		model:      cfg.Provider.Model,
		requestGap: gap,
		httpc:      &http.Client{Timeout: timeout},
	}
}

func (c *httpClient) Complete(messages []Message) (string, error) {
	body, err := c.send(map[string]any{
		"model":       c.model,
		"messages":    messages,
		"temperature": 0.7,
	})
	if err != nil {
		return "", err
	}

	var decoded struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("empty choices in response")
	}
	content := strings.TrimSpace(decoded.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("empty content in response")
	}
	return content, nil
}

func (c *httpClient) CallTool(messages []Message, tool Tool) (json.RawMessage, error) {
	body, err := c.send(map[string]any{
		"model":       c.model,
		"messages":    messages,
		"temperature": 0.0,
		"tools": []map[string]any{{
			"type": "function",
			"function": map[string]any{
				"name":        tool.Name,
				"description": tool.Description,
				"parameters":  tool.Parameters,
			},
		}},
		"tool_choice": map[string]any{
			"type":     "function",
			"function": map[string]string{"name": tool.Name},
		},
	})
	if err != nil {
		return nil, err
	}

	var decoded struct {
		Choices []struct {
			Message struct {
				ToolCalls []struct {
					Function struct {
						Name      string `json:"name"`
						Arguments string `json:"arguments"`
					} `json:"function"`
				} `json:"tool_calls"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return nil, fmt.Errorf("empty choices in response")
	}
	calls := decoded.Choices[0].Message.ToolCalls
	if len(calls) == 0 {
		return nil, fmt.Errorf("no tool call in response")
	}
	args := strings.TrimSpace(calls[0].Function.Arguments)
	if args == "" {
		return nil, fmt.Errorf("empty tool arguments in response")
	}
	return json.RawMessage(args), nil
}

func (c *httpClient) send(payload map[string]any) ([]byte, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return nil, fmt.Errorf("missing api key")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(c.baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("missing base url")
	}
	if c.model == "" {
		return nil, fmt.Errorf("missing model")
	}

	c.pace()

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("completion http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

// pace holds back so consecutive requests are at least requestGap apart. This
// is the only throttling: a fixed gap to stay under provider rate limits.
func (c *httpClient) pace() {
	if c.requestGap <= 0 {
		return
	}
	c.mu.Lock()
	wait := c.requestGap - time.Since(c.lastCall)
	if wait > 0 {
		c.mu.Unlock()
		time.Sleep(wait)
		c.mu.Lock()
	}
	c.lastCall = time.Now()
	c.mu.Unlock()
}
