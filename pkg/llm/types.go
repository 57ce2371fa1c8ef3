package llm

import (
	"context"
	"encoding/json"

	"github.com/harun/toolflow/pkg/toolexecutor"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	// RoleFunction carries a function result back to the model; Name holds the function name.
	RoleFunction Role = "function"
)

// Message is one chat message.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

// UserMessage creates a user message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// SystemMessage creates a system message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// ResponseType distinguishes plain text answers from function calls.
type ResponseType string

const (
	ResponseText         ResponseType = "text"
	ResponseFunctionCall ResponseType = "function_call"
)

// FunctionCall is a model's request to call a function.
type FunctionCall struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// Usage counts tokens for one request.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// Response is a model answer.
type Response struct {
	Type         ResponseType  `json:"type"`
	Text         string        `json:"text,omitempty"`
	FunctionCall *FunctionCall `json:"function_call,omitempty"`
	Usage        Usage         `json:"usage"`
}

// Content returns the text, or the function call as JSON.
func (r *Response) Content() string {
	if r.Type == ResponseFunctionCall && r.FunctionCall != nil {
		data, err := json.Marshal(r.FunctionCall)
		if err != nil {
			return ""
		}
		return string(data)
	}
	return r.Text
}

// LanguageModel is a chat model endpoint.
type LanguageModel interface {
	// Name identifies the model, e.g. "gpt-4o-mini".
	Name() string
	Generate(ctx context.Context, messages []Message, temperature float64) (*Response, error)
	// GenerateWithFunctions may answer with a function call to one of functions.
	GenerateWithFunctions(ctx context.Context, messages []Message, functions []toolexecutor.FunctionDescriptor, temperature float64) (*Response, error)
}
