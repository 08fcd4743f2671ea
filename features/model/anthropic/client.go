// Package anthropic provides a planner.ModelClient backed by the Anthropic
// Messages API using github.com/anthropics/anthropic-sdk-go.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// MessagesClient captures the subset of the SDK messages service used by the
// adapter.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// Options configures the Anthropic adapter.
type Options struct {
	Model     string
	MaxTokens int
}

// Client implements planner.ModelClient via the Anthropic Messages API.
type Client struct {
	messages  MessagesClient
	model     string
	maxTokens int
}

// New builds an Anthropic-backed model client over the given messages
// service.
func New(messages MessagesClient, opts Options) (*Client, error) {
	if messages == nil {
		return nil, errors.New("anthropic messages client is required")
	}
	if opts.Model == "" {
		return nil, errors.New("model is required")
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 1024
	}
	return &Client{messages: messages, model: opts.Model, maxTokens: opts.MaxTokens}, nil
}

// NewFromAPIKey constructs a client using the default SDK HTTP client.
func NewFromAPIKey(apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("api key is required")
	}
	ac := sdk.NewClient(option.WithAPIKey(apiKey))
	return New(&ac.Messages, Options{Model: model})
}

// Generate renders a single-turn completion for the prompt, concatenating
// the response's text blocks.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: int64(c.maxTokens),
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
		},
	}
	msg, err := c.messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic message: %w", err)
	}
	if msg == nil {
		return "", errors.New("anthropic message response is nil")
	}
	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("anthropic message contained no text blocks")
	}
	return sb.String(), nil
}
