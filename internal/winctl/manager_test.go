package winctl

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestMatchTitleExact(t *testing.T) {
	assert.True(t, matchTitle("Untitled - Notepad", "untitled - notepad", nil))
	assert.False(t, matchTitle("Untitled - Notepad", "Notepad", nil))
}

func TestMatchTitlePattern(t *testing.T) {
	re := regexp.MustCompile(`.*Notepad$`)
	assert.True(t, matchTitle("Untitled - Notepad", "", re))
	assert.False(t, matchTitle("Notepad - Untitled", "", re))

	// The pattern wins even when an exact title is also given.
	assert.True(t, matchTitle("report.txt - Notepad", "something else", re))
}

func TestConnectRejectsBadPattern(t *testing.T) {
	m := NewManager(zap.NewNop())
	err := m.Connect("", "([unclosed")
	assert.ErrorContains(t, err, "title pattern")
}

func TestConnectRequiresTitleOrPattern(t *testing.T) {
	m := NewManager(zap.NewNop())
	err := m.Connect("", "")
	assert.ErrorContains(t, err, "title or title_re")
}

func TestDisconnectClearsState(t *testing.T) {
	m := NewManager(zap.NewNop())
	m.attached = true
	m.attachedTitle = "Editor"
	m.attachedPid = 42

	m.Disconnect()
	title, ok := m.Attached()
	assert.False(t, ok)
	assert.Empty(t, title)
}
