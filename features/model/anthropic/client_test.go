package anthropic

import (
	"context"
	"errors"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/require"
)

type stubMessages struct {
	params   sdk.MessageNewParams
	response *sdk.Message
	err      error
}

func (s *stubMessages) New(_ context.Context, body sdk.MessageNewParams, _ ...option.RequestOption) (*sdk.Message, error) {
	s.params = body
	return s.response, s.err
}

func textMessage(parts ...string) *sdk.Message {
	blocks := make([]sdk.ContentBlockUnion, len(parts))
	for i, p := range parts {
		blocks[i] = sdk.ContentBlockUnion{Type: "text", Text: p}
	}
	return &sdk.Message{Content: blocks}
}

func TestGenerate(t *testing.T) {
	stub := &stubMessages{response: textMessage(`{"workflow_id":`, `"wf"}`)}
	c, err := New(stub, Options{Model: "claude-sonnet", MaxTokens: 512})
	require.NoError(t, err)

	out, err := c.Generate(context.Background(), "plan this")
	require.NoError(t, err)
	require.Equal(t, `{"workflow_id":"wf"}`, out, "text blocks are concatenated")

	require.Equal(t, sdk.Model("claude-sonnet"), stub.params.Model)
	require.Equal(t, int64(512), stub.params.MaxTokens)
	require.Len(t, stub.params.Messages, 1)
}

func TestGenerateSkipsNonTextBlocks(t *testing.T) {
	msg := textMessage("answer")
	msg.Content = append([]sdk.ContentBlockUnion{{Type: "tool_use"}}, msg.Content...)
	c, err := New(&stubMessages{response: msg}, Options{Model: "claude-sonnet"})
	require.NoError(t, err)

	out, err := c.Generate(context.Background(), "plan this")
	require.NoError(t, err)
	require.Equal(t, "answer", out)
}

func TestGenerateAPIError(t *testing.T) {
	c, err := New(&stubMessages{err: errors.New("overloaded")}, Options{Model: "claude-sonnet"})
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), "plan this")
	require.ErrorContains(t, err, "overloaded")
}

func TestGenerateEmptyResponse(t *testing.T) {
	c, err := New(&stubMessages{response: &sdk.Message{}}, Options{Model: "claude-sonnet"})
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), "plan this")
	require.ErrorContains(t, err, "no text blocks")
}

func TestNewValidation(t *testing.T) {
	_, err := New(nil, Options{Model: "claude-sonnet"})
	require.Error(t, err)
	_, err = New(&stubMessages{}, Options{})
	require.Error(t, err)
	_, err = NewFromAPIKey("", "claude-sonnet")
	require.Error(t, err)
}
