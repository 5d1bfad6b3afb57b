package backend

import (
	"testing"

	"github.com/openai/openai-go"
	"github.com/stretchr/testify/assert"
)

func TestEncodeOpenAIMessagesMapsRoles(t *testing.T) {
	messages := []Message{
		{Role: "system", Content: "be nice"},
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
		{Role: "tool", Content: "42", ToolCallID: "call_1"},
	}
	out := encodeOpenAIMessages(messages)
	assert.Len(t, out, 4)
}

func TestEncodeOpenAIToolsCarriesSchema(t *testing.T) {
	tools := []ToolDecl{{Name: "current_time", Description: "returns the time", Schema: map[string]interface{}{"type": "object"}}}
	out := encodeOpenAITools(tools)
	assert.Len(t, out, 1)
	assert.Equal(t, "current_time", out[0].Function.Name)
}

func TestDecodeOpenAIChoiceCopiesRoleAndContent(t *testing.T) {
	choice := openai.ChatCompletionChoice{}
	choice.Message.Content = "done"
	msg := decodeOpenAIChoice(choice)
	assert.Equal(t, "assistant", msg.Role)
	assert.Equal(t, "done", msg.Content)
}

func TestAccumulateArgsConcatenatesFragments(t *testing.T) {
	tc := &ToolCall{}
	accumulateArgs(tc, `{"a":`)
	accumulateArgs(tc, `1}`)
	assert.Equal(t, `{"a":1}`, tc.Args["__raw"])
}

func TestAccumulateArgsNoopOnEmptyFragment(t *testing.T) {
	tc := &ToolCall{}
	accumulateArgs(tc, "")
	assert.Nil(t, tc.Args)
}
