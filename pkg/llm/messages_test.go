package llm

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMessagesShortHistory(t *testing.T) {
	history := []Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
	}

	messages := BuildMessages("be nice", history, "how are you")

	require.Len(t, messages, 4)
	assert.Equal(t, Message{Role: "system", Content: "be nice"}, messages[0])
	assert.Equal(t, history[0], messages[1])
	assert.Equal(t, history[1], messages[2])
	assert.Equal(t, Message{Role: "user", Content: "how are you"}, messages[3])
}

func TestBuildMessagesWindowsLongHistory(t *testing.T) {
	history := make([]Message, 50)
	for i := range history {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		history[i] = Message{Role: role, Content: fmt.Sprintf("msg-%d", i)}
	}

	messages := BuildMessages("sys", history, "current")

	// system + last 20 + current, original order preserved
	require.Len(t, messages, HistoryWindow+2)
	assert.Equal(t, "system", messages[0].Role)
	assert.Equal(t, "msg-30", messages[1].Content)
	assert.Equal(t, "msg-49", messages[HistoryWindow].Content)
	assert.Equal(t, Message{Role: "user", Content: "current"}, messages[HistoryWindow+1])
}

func TestBuildMessagesEmptyHistory(t *testing.T) {
	messages := BuildMessages("sys", nil, "first")

	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].Role)
	assert.Equal(t, "first", messages[1].Content)
}
