package coretools

import (
	"context"
	"fmt"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/go-resty/resty/v2"
	"github.com/harun/toolflow/pkg/toolexecutor"
)

const (
	// HTTPInput is the parameter holding the address to fetch.
	HTTPInput = "uri"

	defaultHTTPTimeout = 30 * time.Second
	userAgent          = "toolflow/1.0"
)

// HTTPGetTool fetches a URL. HTML bodies are returned as markdown.
type HTTPGetTool struct {
	*toolexecutor.FunctionTool
	client *resty.Client
}

// NewHTTPGetTool creates a fetch tool named "HttpGet". A zero timeout uses 30 seconds.
func NewHTTPGetTool(timeout time.Duration) *HTTPGetTool {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	h := &HTTPGetTool{
		client: resty.New().
			SetHeader("User-Agent", userAgent).
			SetTimeout(timeout),
	}
	h.FunctionTool = toolexecutor.NewFunctionTool("HttpGet", "Fetches the content of a web page; HTML is converted to markdown", h)
	return h
}

// WithName renames the tool.
func (h *HTTPGetTool) WithName(name string) *HTTPGetTool {
	h.FunctionTool.WithName(name)
	return h
}

// WithDescription replaces the description.
func (h *HTTPGetTool) WithDescription(description string) *HTTPGetTool {
	h.FunctionTool.WithDescription(description)
	return h
}

// Parameters implements toolexecutor.Core.
func (h *HTTPGetTool) Parameters() []toolexecutor.ParameterDescriptor {
	return []toolexecutor.ParameterDescriptor{{
		Name:        HTTPInput,
		Description: "Address of the page to fetch",
		Required:    true,
		Type:        toolexecutor.StringType,
	}}
}

// ExecuteCore implements toolexecutor.Core.
func (h *HTTPGetTool) ExecuteCore(ctx context.Context, ec *toolexecutor.ExecutionContext) (toolexecutor.Result, error) {
	uri := strings.TrimSpace(toolexecutor.ToJSONString(ec.Value(HTTPInput)))
	if uri == "" {
		return toolexecutor.Result{}, fmt.Errorf("%s is required", HTTPInput)
	}

	resp, err := h.client.R().
		SetContext(ctx).
		Get(uri)
	if err != nil {
		return toolexecutor.Result{}, fmt.Errorf("failed to fetch %s: %w", uri, err)
	}
	if resp.IsError() {
		return toolexecutor.Result{}, fmt.Errorf("fetch %s failed (status %d)", uri, resp.StatusCode())
	}

	body := resp.String()
	if !strings.Contains(strings.ToLower(resp.Header().Get("Content-Type")), "html") {
		return toolexecutor.Succeeded(body), nil
	}

	markdown, err := htmltomarkdown.ConvertString(body)
	if err != nil {
		return toolexecutor.Result{}, fmt.Errorf("failed to convert %s to markdown: %w", uri, err)
	}
	return toolexecutor.Succeeded(markdown), nil
}
