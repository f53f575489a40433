package agent

import "fmt"

// Role tags a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of the conversation sent to the model. Content is
// plain text; a screenshot rides along separately and is attached by the
// model client to the final message only.
type Message struct {
	Role    Role
	Content string
}

// continuePrompt is the synthetic user turn appended after every model reply
// to prime the next step.
const continuePrompt = "Continue. Next step?"

// Conversation owns the ordered message history. The first message, when
// present, is always the system prompt; the last message before a model call
// is always user-role.
type Conversation struct {
	msgs []Message
}

func NewConversation() *Conversation {
	return &Conversation{}
}

// Empty reports whether no conversation has been started yet.
func (c *Conversation) Empty() bool {
	return len(c.msgs) == 0
}

// Start replaces the history with the system prompt and the task.
func (c *Conversation) Start(systemPrompt, task string) {
	c.msgs = []Message{
		{Role: RoleSystem, Content: systemPrompt},
		{Role: RoleUser, Content: fmt.Sprintf("Task: %s\n\nTHINK, ACT, VERIFY. ONE JSON action!", task)},
	}
}

// ContinueWith appends a follow-up user message to the existing history.
func (c *Conversation) ContinueWith(task string) {
	c.msgs = append(c.msgs, Message{Role: RoleUser, Content: "Follow-up: " + task})
}

// AppendTurn records the model's raw reply and primes the next step.
func (c *Conversation) AppendTurn(reply string) {
	c.msgs = append(c.msgs,
		Message{Role: RoleAssistant, Content: reply},
		Message{Role: RoleUser, Content: continuePrompt},
	)
}

// AugmentLast temporarily rewrites the last message as
// prefix + original + suffix and returns a restore function. History must
// reflect only the clean conversational turn; the transient sensor dump
// would otherwise grow every message and pollute token accounting.
func (c *Conversation) AugmentLast(prefix, suffix string) (restore func()) {
	if len(c.msgs) == 0 {
		return func() {}
	}
	i := len(c.msgs) - 1
	original := c.msgs[i].Content
	c.msgs[i].Content = prefix + original + suffix
	return func() { c.msgs[i].Content = original }
}

// Messages returns a copy of the current history.
func (c *Conversation) Messages() []Message {
	out := make([]Message, len(c.msgs))
	copy(out, c.msgs)
	return out
}

// ContentLen is the total character count of all message contents, used for
// the rough chars/4 token estimate.
func (c *Conversation) ContentLen() int {
	n := 0
	for _, m := range c.msgs {
		n += len(m.Content)
	}
	return n
}

// Reset discards the history entirely.
func (c *Conversation) Reset() {
	c.msgs = nil
}
