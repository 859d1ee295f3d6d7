package agent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hubenschmidt/go-ragdesk/core"
	"github.com/hubenschmidt/go-ragdesk/vector"
)

func TestMemory_TrimDropsOldestFirst(t *testing.T) {
	ten := strings.Repeat("w ", 10) // 14 tokens
	m := NewMemory(30,
		core.NewUserMessage(ten),
		core.NewAssistantMessage(ten),
		core.NewUserMessage(ten),
	)
	assert.Equal(t, 42, m.Tokens())

	dropped := m.Trim(0)
	assert.Equal(t, 1, dropped)
	assert.Equal(t, 2, m.Len())
	assert.Equal(t, core.RoleAssistant, m.Messages()[0].Role)
	assert.LessOrEqual(t, m.Tokens(), 30)
}

func TestMemory_TrimWithReserve(t *testing.T) {
	m := NewMemory(20, core.NewUserMessage("a b c"), core.NewAssistantMessage("d e f"))
	assert.Equal(t, 0, m.Trim(0))

	assert.Equal(t, 1, m.Trim(15))
	assert.Equal(t, "d e f", m.Messages()[0].Content)

	assert.Equal(t, 1, m.Trim(100))
	assert.Zero(t, m.Len())
}

func TestMemory_TrimSkipsOrphanedToolResults(t *testing.T) {
	m := NewMemory(12,
		core.Message{Role: core.RoleAssistant, ToolCalls: []core.ToolCall{{ID: "1", Name: "similarity_search", Arguments: []byte(`{"query":"hours today please"}`)}}},
		core.NewToolMessage("1", "Open 9am to 11pm."),
		core.NewAssistantMessage("We open at 9am."),
	)

	m.Trim(0)
	msgs := m.Messages()
	assert.NotEmpty(t, msgs)
	assert.NotEqual(t, core.RoleTool, msgs[0].Role)
}

func TestMemory_NoLimit(t *testing.T) {
	m := NewMemory(0, core.NewUserMessage(strings.Repeat("x ", 5000)))
	assert.Zero(t, m.Trim(1000))
	assert.Equal(t, 1, m.Len())
}

func TestMemory_MessagesIsCopy(t *testing.T) {
	m := NewMemory(0, core.NewUserMessage("hi"))
	msgs := m.Messages()
	msgs[0].Content = "changed"
	assert.Equal(t, "hi", m.Messages()[0].Content)
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt("  What are the hours? ", []vector.SearchResult{{Content: "Open 9am to 11pm.", Similarity: 0.8}})
	assert.Contains(t, p, "Open 9am to 11pm.")
	assert.True(t, strings.HasSuffix(p, "Question: What are the hours?"))
	assert.NotContains(t, p, NoContext)

	empty := BuildPrompt("hours?", nil)
	assert.Contains(t, empty, NoContext)
	assert.Contains(t, empty, "don't know")
}
