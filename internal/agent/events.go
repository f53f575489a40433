package agent

// Terminal is the state a finished task run ended in.
type Terminal string

const (
	// TerminalNone marks a progress event of a still-running task.
	TerminalNone Terminal = ""
	// TerminalDone means the model signalled completion.
	TerminalDone Terminal = "DONE"
	// TerminalStopped means the user requested a stop.
	TerminalStopped Terminal = "STOPPED"
	// TerminalStepLimit means the step budget ran out before completion.
	// Not an error: the run is surfaced as incomplete.
	TerminalStepLimit Terminal = "STEP_LIMIT_REACHED"
)

// Event is the snapshot posted to the presentation side after anything worth
// showing happens. The worker owns all mutable state; the UI only ever sees
// these copies.
type Event struct {
	TaskID      string
	Step        int
	Line        string
	Tokens      int
	Screenshots int
	Terminal    Terminal
}
