// Package winctl attaches to native application windows so keyboard input
// lands in the right place. Attachment means finding the window and bringing
// it to the foreground; typing itself goes through the desktop effector.
package winctl

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-vgo/robotgo"
	"go.uber.org/zap"
)

const (
	connectAttempts = 3
	connectPause    = 2 * time.Second
)

// Manager holds the currently attached window, if any.
type Manager struct {
	logger *zap.Logger

	attachedPid   int32
	attachedTitle string
	attached      bool

	sleep func(time.Duration)
}

func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		logger: logger.Named("winctl"),
		sleep:  time.Sleep,
	}
}

// Connect finds a window by exact title or, when titlePattern is set, by
// regular expression, and brings it to the foreground. Freshly launched
// applications need a moment to create their window, so the search retries.
func (m *Manager) Connect(title, titlePattern string) error {
	var re *regexp.Regexp
	if titlePattern != "" {
		var err error
		re, err = regexp.Compile(titlePattern)
		if err != nil {
			return fmt.Errorf("bad title pattern %q: %w", titlePattern, err)
		}
	}
	if title == "" && re == nil {
		return fmt.Errorf("window connect needs a title or title_re")
	}

	var lastErr error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		pid, winTitle, err := findWindow(title, re)
		if err == nil {
			if err := robotgo.ActivePid(int(pid)); err != nil {
				lastErr = fmt.Errorf("focusing %q: %w", winTitle, err)
			} else {
				m.attachedPid = pid
				m.attachedTitle = winTitle
				m.attached = true
				m.logger.Info("window attached",
					zap.String("title", winTitle),
					zap.Int32("pid", pid),
				)
				return nil
			}
		} else {
			lastErr = err
		}
		if attempt < connectAttempts {
			m.sleep(connectPause)
		}
	}
	return lastErr
}

// Disconnect forgets the attached window. The window itself is untouched.
func (m *Manager) Disconnect() {
	if m.attached {
		m.logger.Debug("window detached", zap.String("title", m.attachedTitle))
	}
	m.attached = false
	m.attachedPid = 0
	m.attachedTitle = ""
}

// Attached reports the current binding for display purposes.
func (m *Manager) Attached() (string, bool) {
	return m.attachedTitle, m.attached
}

// findWindow scans all processes for a window title match.
func findWindow(title string, re *regexp.Regexp) (int32, string, error) {
	pids, err := robotgo.Pids()
	if err != nil {
		return 0, "", fmt.Errorf("listing processes: %w", err)
	}
	for _, pid := range pids {
		winTitle := robotgo.GetTitle(pid)
		if winTitle == "" {
			continue
		}
		if matchTitle(winTitle, title, re) {
			return int32(pid), winTitle, nil
		}
	}
	want := title
	if want == "" {
		want = re.String()
	}
	return 0, "", fmt.Errorf("no window matching %q", want)
}

// matchTitle accepts an exact (case-insensitive) title or a regexp match.
func matchTitle(winTitle, title string, re *regexp.Regexp) bool {
	if re != nil {
		return re.MatchString(winTitle)
	}
	return strings.EqualFold(winTitle, title)
}
