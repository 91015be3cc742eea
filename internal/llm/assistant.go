// Package llm asks a chat model to propose placeholder names for detected form
// fields.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/a3tai/mcp-legal-forms/internal/fields"
)

// DefaultModel is used when no model is configured
const DefaultModel = "llama3.2"

const systemPrompt = `You are an expert in legal document analysis and form filling.
You will be given the fillable fields detected in a legal form. Create a placeholder
variable for every field using the schema $FieldType_FieldVarType_Fieldname where
FieldType is a short field type (check, line, text, table), FieldVarType is the value
type (bool, string, date, number) and Fieldname is the label without spaces.
Example: "Option 1 [ ] Option 2 [ ]" -> $check_bool_Option1, $check_bool_Option2.
Answer with exactly one line per field in the form "<number>. <placeholder>" and nothing else.`

const userQuery = "Create placeholder variables for the fillable fields of this document."

var suggestionLine = regexp.MustCompile(`^\s*(\d+)[.)]\s*(\$[A-Za-z0-9_]+)`)

// ChatClient is the part of the Ollama client the assistant needs
type ChatClient interface {
	Chat(ctx context.Context, req *api.ChatRequest, fn api.ChatResponseFunc) error
}

// NewOllamaClient connects to baseURL, or to OLLAMA_HOST when baseURL is empty
func NewOllamaClient(baseURL string, httpClient *http.Client) (*api.Client, error) {
	if baseURL == "" {
		return api.ClientFromEnvironment()
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama url: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	return api.NewClient(u, httpClient), nil
}

// Config configures an Assistant
type Config struct {
	Model string
	// LogDir receives a <model>_responses.jsonl file when set.
	LogDir string
	Logger *slog.Logger
}

// Assistant builds prompts from field reports and parses the model's answer
type Assistant struct {
	client ChatClient
	model  string
	logDir string
	logger *slog.Logger
	mu     sync.Mutex
}

// Suggestion is a proposed placeholder for one report item
type Suggestion struct {
	Index       int    `json:"index"`
	Type        string `json:"type"`
	Label       string `json:"label"`
	Placeholder string `json:"placeholder"`
}

// Result is the outcome of one suggestion request
type Result struct {
	Model       string       `json:"model"`
	Suggestions []Suggestion `json:"suggestions"`
	Response    string       `json:"response"`
	LogFile     string       `json:"log_file,omitempty"`
}

// NewAssistant creates an assistant around a chat client
func NewAssistant(client ChatClient, cfg Config) (*Assistant, error) {
	if client == nil {
		return nil, errors.New("chat client is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Assistant{
		client: client,
		model:  cfg.Model,
		logDir: cfg.LogDir,
		logger: cfg.Logger,
	}, nil
}

// Model returns the configured model name
func (a *Assistant) Model() string {
	return a.model
}

// BuildPrompt renders the field report as a numbered list
func BuildPrompt(report fields.Report) string {
	var b strings.Builder
	if len(report.Headers) > 0 {
		b.WriteString("Sections:\n")
		for _, h := range report.Headers {
			fmt.Fprintf(&b, "- %s\n", h)
		}
		b.WriteString("\n")
	}
	b.WriteString("Fields:\n")
	for i, f := range report.Fields {
		fmt.Fprintf(&b, "%d. %s: %s", i+1, f.Type, f.Label)
		if f.Length != nil {
			fmt.Fprintf(&b, " (Length: %d)", *f.Length)
		}
		fmt.Fprintf(&b, " - Context: %s\n", f.Context)
	}
	return b.String()
}

// Suggest sends the report to the model and parses one placeholder per field
func (a *Assistant) Suggest(ctx context.Context, report fields.Report) (*Result, error) {
	if len(report.Fields) == 0 {
		return &Result{Model: a.model, Suggestions: []Suggestion{}}, nil
	}

	stream := false
	req := &api.ChatRequest{
		Model: a.model,
		Messages: []api.Message{
			{Role: "system", Content: systemPrompt + "\n\n" + BuildPrompt(report)},
			{Role: "user", Content: userQuery},
		},
		Stream: &stream,
	}

	var content strings.Builder
	var last api.ChatResponse
	err := a.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		last = resp
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("chat request failed: %w", err)
	}

	result := &Result{
		Model:       a.model,
		Response:    content.String(),
		Suggestions: ParseSuggestions(content.String(), report),
	}

	if a.logDir != "" {
		logFile, err := a.logResponse(req, last, result.Response)
		if err != nil {
			a.logger.Warn("failed to log model response", "error", err)
		} else {
			result.LogFile = logFile
		}
	}

	a.logger.Debug("placeholder suggestions received",
		"model", a.model,
		"fields", len(report.Fields),
		"suggestions", len(result.Suggestions))
	return result, nil
}

// ParseSuggestions reads "<number>. $placeholder" lines and pairs them with
// report items. Lines that do not refer to a known item are ignored.
func ParseSuggestions(response string, report fields.Report) []Suggestion {
	out := []Suggestion{}
	seen := make(map[int]bool)
	for _, line := range strings.Split(response, "\n") {
		m := suggestionLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > len(report.Fields) || seen[n] {
			continue
		}
		seen[n] = true
		item := report.Fields[n-1]
		out = append(out, Suggestion{
			Index:       n,
			Type:        item.Type,
			Label:       item.Label,
			Placeholder: m[2],
		})
	}
	return out
}

type logEntry struct {
	Time       time.Time     `json:"time"`
	Model      string        `json:"model"`
	Messages   []api.Message `json:"messages"`
	Response   string        `json:"response"`
	DoneReason string        `json:"done_reason,omitempty"`
}

// logResponse appends the exchange to <logDir>/<model>_responses.jsonl
func (a *Assistant) logResponse(req *api.ChatRequest, last api.ChatResponse, response string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.MkdirAll(a.logDir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create log directory: %w", err)
	}

	name := strings.NewReplacer("/", "_", ":", "_", "\\", "_").Replace(a.model) + "_responses.jsonl"
	path := filepath.Join(a.logDir, name)

	line, err := json.Marshal(logEntry{
		Time:       time.Now().UTC(),
		Model:      a.model,
		Messages:   req.Messages,
		Response:   response,
		DoneReason: last.DoneReason,
	})
	if err != nil {
		return "", err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return "", fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return "", fmt.Errorf("failed to write log file: %w", err)
	}
	return path, nil
}
