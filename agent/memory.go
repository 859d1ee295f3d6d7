package agent

import "github.com/hubenschmidt/go-ragdesk/core"

// Memory is an ordered sequence of conversation turns bounded by an
// estimated token budget. It is built per request and never shared.
type Memory struct {
	limit int
	turns []core.Message
}

// NewMemory returns a memory holding turns, oldest first. A non-positive
// limit disables trimming.
func NewMemory(limit int, turns ...core.Message) *Memory {
	return &Memory{limit: limit, turns: append([]core.Message(nil), turns...)}
}

func (m *Memory) Add(turns ...core.Message) {
	m.turns = append(m.turns, turns...)
}

// Messages returns a copy of the turns, oldest first.
func (m *Memory) Messages() []core.Message {
	return append([]core.Message(nil), m.turns...)
}

func (m *Memory) Len() int {
	return len(m.turns)
}

// Tokens estimates the token count of all turns.
func (m *Memory) Tokens() int {
	return messagesTokens(m.turns)
}

// Trim drops the oldest turns until at most reserve plus the remaining turns
// fit the limit. Tool results orphaned by the cut are dropped too, so the
// kept history never starts with a tool message. It returns the number of
// turns removed.
func (m *Memory) Trim(reserve int) int {
	if m.limit <= 0 {
		return 0
	}

	budget := m.limit - reserve
	total := m.Tokens()
	drop := 0
	for drop < len(m.turns) && total > budget {
		total -= messageTokens(m.turns[drop])
		drop++
	}
	for drop < len(m.turns) && m.turns[drop].Role == core.RoleTool {
		drop++
	}

	m.turns = m.turns[drop:]
	return drop
}

func messagesTokens(msgs []core.Message) int {
	total := 0
	for _, m := range msgs {
		total += messageTokens(m)
	}
	return total
}

func messageTokens(m core.Message) int {
	n := core.EstimateTokens(m.Content)
	for _, tc := range m.ToolCalls {
		n += core.EstimateTokens(tc.Name) + core.EstimateTokens(string(tc.Arguments))
	}
	return n
}
