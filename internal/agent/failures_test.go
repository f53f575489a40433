package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"deskpilot/internal/action"
)

func click(text string) action.Action {
	return action.Action{Kind: action.KindClick, Name: "playwright_click", Text: text}
}

func TestWarningRequiresTwoFailures(t *testing.T) {
	tr := NewFailureTracker()
	tr.RecordFailure(click("Login"))
	assert.Empty(t, tr.WarningText())

	tr.RecordFailure(click("Login"))
	warn := tr.WarningText()
	assert.Contains(t, warn, "REPEATED FAILURES")
	assert.Contains(t, warn, "playwright_click failed 2x")
}

func TestSuccessWipesSignature(t *testing.T) {
	tr := NewFailureTracker()
	tr.RecordFailure(click("Login"))
	tr.RecordFailure(click("Login"))
	tr.RecordSuccess(click("Login"))
	assert.Empty(t, tr.WarningText())

	// Failing once more starts the count over.
	tr.RecordFailure(click("Login"))
	assert.Empty(t, tr.WarningText())
}

func TestSignaturesAreIndependent(t *testing.T) {
	tr := NewFailureTracker()
	tr.RecordFailure(click("Login"))
	tr.RecordFailure(click("Submit"))
	tr.RecordFailure(click("Submit"))

	warn := tr.WarningText()
	assert.Contains(t, warn, "failed 2x")

	// A success on one signature leaves the other intact.
	tr.RecordSuccess(click("Submit"))
	assert.Empty(t, tr.WarningText())
}

func TestDifferentKindsSameText(t *testing.T) {
	tr := NewFailureTracker()
	typeAct := action.Action{Kind: action.KindType, Name: "playwright_type", Text: "Login"}
	tr.RecordFailure(click("Login"))
	tr.RecordFailure(typeAct)
	tr.RecordFailure(typeAct)

	warn := tr.WarningText()
	assert.Contains(t, warn, "playwright_type failed 2x")
	assert.NotContains(t, warn, "playwright_click")
}

func TestWarningListsAllRepeatedSignatures(t *testing.T) {
	tr := NewFailureTracker()
	mouse := action.Action{Kind: action.KindMouseClick, Name: "mouse_click"}
	key := action.Action{Kind: action.KindKey, Name: "key", Text: "enter"}
	for i := 0; i < 3; i++ {
		tr.RecordFailure(mouse)
	}
	tr.RecordFailure(key)
	tr.RecordFailure(key)

	warn := tr.WarningText()
	assert.Contains(t, warn, "mouse_click failed 3x")
	assert.Contains(t, warn, "key failed 2x")
}

func TestResetClearsEverything(t *testing.T) {
	tr := NewFailureTracker()
	tr.RecordFailure(click("x"))
	tr.RecordFailure(click("x"))
	tr.Reset()
	assert.Empty(t, tr.WarningText())
}
