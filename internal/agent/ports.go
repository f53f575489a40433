package agent

import (
	"context"
	"time"

	"deskpilot/internal/action"
)

// The dispatch loop talks to the outside world exclusively through these
// narrow ports. Implementations live in their own packages; tests substitute
// stubs.

// ModelClient sends the conversation to the chat-completion endpoint and
// returns the raw reply text. imageB64, when non-empty, is a base64 PNG
// attached to the final message as a data-URL image part.
type ModelClient interface {
	Complete(ctx context.Context, msgs []Message, imageB64 string) (string, error)
}

// Desktop is the pointer/keyboard/screen effector.
type Desktop interface {
	// Capture returns the primary screen as base64-encoded PNG bytes.
	Capture() (string, error)
	MousePosition() (x, y int)
	ScreenSize() (w, h int)
	// Click clicks at the given coordinates, or at the current position when
	// either coordinate is nil.
	Click(x, y *int, button string, double bool) error
	// PressKey presses a named key or a "+"-joined chord.
	PressKey(chord string) error
	// PasteType inserts text clipboard-paste style, optionally pressing
	// enter afterwards.
	PasteType(text string, autoEnter bool) error
}

// Browser is the controlled-browser effector. Selector arguments may be
// comma-separated fallback lists, tried in order.
type Browser interface {
	// Start tears down any existing session and launches/attaches a fresh
	// browser at the debugging endpoint, optionally opening url.
	Start(ctx context.Context, url string) error
	Connected() bool
	PageTitle(ctx context.Context) (string, error)
	// MiniDOM returns the bounded interactive-element summary.
	MiniDOM(ctx context.Context) (string, error)
	// Click clicks by selector, or by visible text when text is non-empty.
	Click(ctx context.Context, selector, text string) error
	Fill(ctx context.Context, selector, text string) error
	Text(ctx context.Context, selector string) (string, error)
	Navigate(ctx context.Context, url string) error
	Scroll(ctx context.Context, direction string) error
	Close()
}

// WindowControl attaches to a native window by exact title or title pattern.
type WindowControl interface {
	Connect(title, titlePattern string) error
	Disconnect()
}

// DocumentWriter creates office documents. Each call reports a
// human-readable outcome message alongside the error.
type DocumentWriter interface {
	// Available reports which document formats can be produced.
	Available() (docx, xlsx, pptx bool)
	CreateDocx(path, title, content string) (string, error)
	CreateXlsx(path, sheetName string, data [][]any) (string, error)
	CreatePptx(path, title string, slides []action.Slide) (string, error)
}

// Shell runs commands either synchronously with a timeout or detached.
type Shell interface {
	RunSync(ctx context.Context, command string, timeout time.Duration) error
	RunDetached(command string) error
}

// FileReader reads a text file with environment-variable expansion,
// fallback-path probing and multi-encoding decoding. It returns the decoded
// content and the path that was actually read.
type FileReader interface {
	Read(path string) (content string, resolved string, err error)
}
