package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/tridinhbui/finpartner-ai/internal/artifact"
	"github.com/tridinhbui/finpartner-ai/internal/logging"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-2.0-flash-exp"

	systemInstruction = "You are FinPartner AI, a senior financial analyst working a dual-screen workstation. " +
		"The left pane is the conversation; the right pane is the workspace that renders source documents, charts and tables. " +
		"Never recite long number series in chat: push visuals through the renderChart, renderTable and highlightKeyMetrics tools, " +
		"then summarize the insight (root cause, trend, variance) in text. Cross-check every figure against attached filings."
)

// Config carries the settings for the Gemini-protocol client.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

type geminiClient struct {
	model       string
	apiKey      string
	baseURL     string
	temperature float64
	httpClient  *http.Client
	logger      logging.Logger

	mu      sync.Mutex
	history []geminiContent
}

// NewGeminiClient constructs a Client speaking the generateContent API
// with the three workspace tool declarations registered.
func NewGeminiClient(cfg Config) Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.4
	}
	timeout := 120 * time.Second
	if cfg.Timeout > 0 {
		timeout = cfg.Timeout
	}
	return &geminiClient{
		model:       cfg.Model,
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		temperature: cfg.Temperature,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logging.NewComponentLogger("AssistantGemini"),
	}
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text         string              `json:"text,omitempty"`
	InlineData   *geminiInlineData   `json:"inlineData,omitempty"`
	FunctionCall *geminiFunctionCall `json:"functionCall,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiFunctionCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args"`
}

type generateResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *geminiClient) SendMessage(ctx context.Context, text string, attachment *Attachment, sink UpdateSink) (string, error) {
	userParts := []geminiPart{{Text: text}}
	if attachment != nil {
		userParts = append(userParts, geminiPart{InlineData: &geminiInlineData{
			MimeType: attachment.MimeType,
			Data:     attachment.Data,
		}})
	}

	// The user turn joins the durable history only once the exchange
	// succeeds; a transport fault must not leave it behind to be
	// replayed on the next send.
	userContent := geminiContent{Role: "user", Parts: userParts}
	c.mu.Lock()
	contents := make([]geminiContent, 0, len(c.history)+1)
	contents = append(contents, c.history...)
	contents = append(contents, userContent)
	c.mu.Unlock()

	reqBody := map[string]any{
		"contents": contents,
		"systemInstruction": map[string]any{
			"parts": []map[string]any{{"text": systemInstruction}},
		},
		"tools": []map[string]any{
			{"functionDeclarations": functionDeclarations()},
		},
		"generationConfig": map[string]any{
			"temperature": c.temperature,
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	c.logger.Debug("POST %s (history=%d, attachment=%v)", endpoint, len(contents), attachment != nil)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("x-goog-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("assistant request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read assistant response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("assistant returned status %d: %s", resp.StatusCode, truncate(string(respBody), 256))
	}

	var parsed generateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("parse assistant response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("assistant error %d: %s", parsed.Error.Code, parsed.Error.Message)
	}
	if len(parsed.Candidates) == 0 {
		return "", fmt.Errorf("assistant returned no candidates")
	}

	var reply strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		if part.FunctionCall != nil {
			c.dispatchFunctionCall(*part.FunctionCall, sink)
			continue
		}
		reply.WriteString(part.Text)
	}

	finalText := reply.String()
	c.mu.Lock()
	c.history = append(c.history, userContent)
	if finalText != "" {
		c.history = append(c.history, geminiContent{
			Role:  "model",
			Parts: []geminiPart{{Text: finalText}},
		})
	}
	c.mu.Unlock()
	return finalText, nil
}

// dispatchFunctionCall routes one tool invocation to the sink. A call
// whose arguments cannot be decoded even after repair is logged and
// skipped; it never fails the whole request.
func (c *geminiClient) dispatchFunctionCall(call geminiFunctionCall, sink UpdateSink) {
	if sink == nil {
		return
	}
	raw := string(call.Args)
	switch call.Name {
	case toolRenderChart:
		chart, err := artifact.DecodeChart(raw)
		if err != nil {
			c.logger.Warn("skip renderChart call: %v", err)
			return
		}
		sink.OnChart(chart)
	case toolRenderTable:
		table, err := artifact.DecodeTable(raw)
		if err != nil {
			c.logger.Warn("skip renderTable call: %v", err)
			return
		}
		sink.OnTable(table)
	case toolHighlightMetrics:
		metrics, err := artifact.DecodeMetrics(raw)
		if err != nil {
			c.logger.Warn("skip highlightKeyMetrics call: %v", err)
			return
		}
		sink.OnMetrics(metrics)
	default:
		c.logger.Warn("unknown tool call %q ignored", call.Name)
	}
}

// Reset drops the multi-turn context. Called on login and logout.
func (c *geminiClient) Reset() {
	c.mu.Lock()
	c.history = nil
	c.mu.Unlock()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "... (truncated)"
}
