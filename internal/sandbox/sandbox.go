// Package sandbox runs user-submitted code snippets through the Piston
// execution API.
package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"flowbeat/internal/shared"
)

const (
	defaultBaseURL = "https://emkc.org/api/v2/piston"
	executeTimeout = 15 * time.Second
)

// runtimes maps supported languages to the Piston version and source
// file name used for each.
var runtimes = map[string]struct {
	version  string
	fileName string
}{
	"python":     {"3.10.0", "main.py"},
	"javascript": {"18.15.0", "main.js"},
	"typescript": {"5.0.3", "main.ts"},
	"go":         {"1.16.2", "main.go"},
	"rust":       {"1.68.2", "main.rs"},
	"java":       {"15.0.2", "Main.java"},
	"c":          {"10.2.0", "main.c"},
	"cpp":        {"10.2.0", "main.cpp"},
	"ruby":       {"3.0.1", "main.rb"},
	"bash":       {"5.2.0", "main.sh"},
}

// ExecutionResult is the outcome of one sandbox run.
type ExecutionResult struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
	Output   string `json:"output"`
}

type executeRequest struct {
	Language string        `json:"language"`
	Version  string        `json:"version"`
	Files    []executeFile `json:"files"`
	Stdin    string        `json:"stdin,omitempty"`
}

type executeFile struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

type executeResponse struct {
	Run struct {
		Stdout string `json:"stdout"`
		Stderr string `json:"stderr"`
		Code   int    `json:"code"`
		Output string `json:"output"`
	} `json:"run"`
	Compile struct {
		Stderr string `json:"stderr"`
		Code   int    `json:"code"`
	} `json:"compile"`
	Message string `json:"message"`
}

// Client calls the sandbox's execute endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a sandbox client. An empty baseURL selects the public
// Piston instance.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

// Languages lists the supported language identifiers.
func Languages() []string {
	names := make([]string, 0, len(runtimes))
	for name := range runtimes {
		names = append(names, name)
	}
	return names
}

// Execute runs code in the named language and returns its output.
// Unsupported languages fail with [shared.ErrInvalidArgument].
func (c *Client) Execute(ctx context.Context, language, code, stdin string) (*ExecutionResult, error) {
	runtime, ok := runtimes[language]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported language %q", shared.ErrInvalidArgument, language)
	}

	ctx, cancel := context.WithTimeout(ctx, executeTimeout)
	defer cancel()

	payload, err := json.Marshal(executeRequest{
		Language: language,
		Version:  runtime.version,
		Files:    []executeFile{{Name: runtime.fileName, Content: code}},
		Stdin:    stdin,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode execute request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/execute", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create execute request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("%w: execute status %d: %s", shared.ErrUpstream, resp.StatusCode, string(text))
	}

	var parsed executeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode execute response: %w", err)
	}

	result := &ExecutionResult{
		Stdout:   parsed.Run.Stdout,
		Stderr:   parsed.Run.Stderr,
		ExitCode: parsed.Run.Code,
		Output:   parsed.Run.Output,
	}

	// Compile failures surface on stderr so callers see why nothing ran.
	if parsed.Compile.Code != 0 && parsed.Compile.Stderr != "" {
		result.Stderr = parsed.Compile.Stderr
		result.ExitCode = parsed.Compile.Code
	}

	return result, nil
}
