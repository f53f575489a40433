package agent

import (
	"fmt"
	"sort"
	"strings"

	"deskpilot/internal/action"
)

// FailureTracker counts consecutive failures per action signature so the
// dispatch loop can warn the model when it keeps trying something that does
// not work. A success wipes the signature entirely; the warning only lists
// signatures that failed at least twice.
type FailureTracker struct {
	counts map[string]int
}

func NewFailureTracker() *FailureTracker {
	return &FailureTracker{counts: make(map[string]int)}
}

// signature keys on the action kind and its text payload only. Coordinates
// are deliberately not part of the key, so repeated mouse clicks anywhere
// share one signature.
func signature(a action.Action) string {
	return a.Name + "|" + a.Text
}

func (t *FailureTracker) RecordFailure(a action.Action) {
	t.counts[signature(a)]++
}

func (t *FailureTracker) RecordSuccess(a action.Action) {
	delete(t.counts, signature(a))
}

// WarningText lists every signature with two or more consecutive failures,
// or returns the empty string when none qualify.
func (t *FailureTracker) WarningText() string {
	keys := make([]string, 0, len(t.counts))
	for k, c := range t.counts {
		if c >= 2 {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("\nREPEATED FAILURES:")
	for _, k := range keys {
		kind := k[:strings.Index(k, "|")]
		fmt.Fprintf(&b, "\n  %s failed %dx", kind, t.counts[k])
	}
	return b.String()
}

func (t *FailureTracker) Reset() {
	t.counts = make(map[string]int)
}
