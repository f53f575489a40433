// Package action defines the closed vocabulary of steps the model can request
// and the defensive parser that extracts one from a raw model reply.
package action

// Kind enumerates every action the dispatch loop knows how to execute.
type Kind string

const (
	KindCreateDocx   Kind = "create_docx"
	KindCreateXlsx   Kind = "create_xlsx"
	KindCreatePptx   Kind = "create_pptx"
	KindBrowserStart Kind = "browser_start"
	KindGetDOM       Kind = "get_dom"
	KindClick        Kind = "playwright_click"
	KindType         Kind = "playwright_type"
	KindGetText      Kind = "playwright_get_text"
	KindNavigate     Kind = "playwright_navigate"
	KindScroll       Kind = "playwright_scroll"
	KindMouseClick   Kind = "mouse_click"
	KindKey          Kind = "key"
	KindRunCommands  Kind = "run_commands"
	KindReadFile     Kind = "read_file"
	KindWinConnect   Kind = "pywinauto_connect"
	KindWinType      Kind = "pywinauto_type"
	KindScreenshot   Kind = "screenshot"
	KindWait         Kind = "wait"
	KindDone         Kind = "done"

	// KindUnknown marks an action name outside the closed set. The loop logs
	// it and moves on without side effects.
	KindUnknown Kind = ""
)

var knownKinds = map[Kind]struct{}{
	KindCreateDocx: {}, KindCreateXlsx: {}, KindCreatePptx: {},
	KindBrowserStart: {}, KindGetDOM: {}, KindClick: {}, KindType: {},
	KindGetText: {}, KindNavigate: {}, KindScroll: {}, KindMouseClick: {},
	KindKey: {}, KindRunCommands: {}, KindReadFile: {}, KindWinConnect: {},
	KindWinType: {}, KindScreenshot: {}, KindWait: {}, KindDone: {},
}

// KindOf maps a raw action name onto the closed set, or KindUnknown.
func KindOf(name string) Kind {
	if _, ok := knownKinds[Kind(name)]; ok {
		return Kind(name)
	}
	return KindUnknown
}

// Slide is one slide of a create_pptx action.
type Slide struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Action is a single parsed step. Kind selects the variant; only the fields
// relevant to that kind are populated. Produced fresh each step by Parse and
// consumed exactly once by the dispatch loop.
type Action struct {
	Kind Kind
	// Name is the raw action name from the reply, kept so unrecognized
	// actions can be reported verbatim.
	Name string

	// Documents
	Path      string
	Title     string
	Content   string
	SheetName string
	Data      [][]any
	Slides    []Slide

	// Browser
	Selector  string
	URL       string
	Direction string

	// Desktop input
	X, Y        *int
	Button      string
	DoubleClick bool
	Key         string

	// Native window
	TitlePattern string
	AutoEnter    bool

	// Shared text payload (typing targets, click-by-text, window typing).
	// Also the field failure signatures key on.
	Text string

	// Shell / files
	Commands []string

	// Control
	Reason  string
	Message string
}

// Wait is the parser's universal fallback: a harmless stall step.
func Wait() Action {
	return Action{Kind: KindWait, Name: string(KindWait)}
}
