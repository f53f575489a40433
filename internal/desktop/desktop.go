// Package desktop is the native input and screen effector: mouse, keyboard,
// clipboard-based typing and screenshots.
package desktop

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"
	"runtime"
	"strings"
	"time"

	"github.com/go-vgo/robotgo"
	"github.com/kbinani/screenshot"
	"go.uber.org/zap"
)

// keyAliases maps the key names models like to emit onto the names the input
// backend understands.
var keyAliases = map[string]string{
	"return":    "enter",
	"escape":    "esc",
	"control":   "ctrl",
	"ctl":       "ctrl",
	"win":       "cmd",
	"windows":   "cmd",
	"super":     "cmd",
	"meta":      "cmd",
	"del":       "delete",
	"ins":       "insert",
	"pgup":      "pageup",
	"pgdn":      "pagedown",
	"page_up":   "pageup",
	"page_down": "pagedown",
	"arrowup":    "up",
	"arrowdown":  "down",
	"arrowleft":  "left",
	"arrowright": "right",
}

// Controller implements the desktop effector on the real machine.
type Controller struct {
	logger *zap.Logger
}

func NewController(logger *zap.Logger) *Controller {
	return &Controller{logger: logger.Named("desktop")}
}

// Capture grabs the primary display as a base64-encoded PNG.
func (c *Controller) Capture() (string, error) {
	if screenshot.NumActiveDisplays() == 0 {
		return "", fmt.Errorf("no active displays")
	}
	img, err := screenshot.CaptureDisplay(0)
	if err != nil {
		return "", fmt.Errorf("capturing display: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encoding screenshot: %w", err)
	}
	c.logger.Debug("screen captured", zap.Int("png_bytes", buf.Len()))
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func (c *Controller) MousePosition() (int, int) {
	return robotgo.Location()
}

func (c *Controller) ScreenSize() (int, int) {
	return robotgo.GetScreenSize()
}

// Click clicks at the given coordinates, moving the pointer first. Either
// coordinate being nil means click in place.
func (c *Controller) Click(x, y *int, button string, double bool) error {
	if x != nil && y != nil {
		robotgo.Move(*x, *y)
		time.Sleep(50 * time.Millisecond)
	}
	switch button {
	case "", "left", "right", "center":
	default:
		return fmt.Errorf("unknown mouse button %q", button)
	}
	if button == "" {
		button = "left"
	}
	robotgo.Click(button, double)
	c.logger.Debug("mouse click",
		zap.String("button", button),
		zap.Bool("double", double),
	)
	return nil
}

// PressKey presses a single key or a "+"-joined chord like "ctrl+shift+s".
func (c *Controller) PressKey(chord string) error {
	key, mods, err := parseChord(chord)
	if err != nil {
		return err
	}
	args := make([]any, len(mods))
	for i, m := range mods {
		args[i] = m
	}
	if err := robotgo.KeyTap(key, args...); err != nil {
		return fmt.Errorf("pressing %q: %w", chord, err)
	}
	return nil
}

// PasteType inserts text through the clipboard, which is fast and keeps
// unicode intact. When the clipboard is unavailable it falls back to
// character-by-character typing.
func (c *Controller) PasteType(text string, autoEnter bool) error {
	if err := robotgo.WriteAll(text); err != nil {
		c.logger.Debug("clipboard unavailable, typing directly", zap.Error(err))
		robotgo.TypeStr(text)
	} else {
		time.Sleep(100 * time.Millisecond)
		pasteMod := "ctrl"
		if runtime.GOOS == "darwin" {
			pasteMod = "cmd"
		}
		if err := robotgo.KeyTap("v", pasteMod); err != nil {
			return fmt.Errorf("pasting: %w", err)
		}
	}
	if autoEnter {
		time.Sleep(100 * time.Millisecond)
		if err := robotgo.KeyTap("enter"); err != nil {
			return fmt.Errorf("pressing enter: %w", err)
		}
	}
	return nil
}

// parseChord splits "ctrl+shift+s" into the key and its modifiers, applying
// the alias table to every part.
func parseChord(chord string) (key string, mods []string, err error) {
	parts := strings.Split(chord, "+")
	cleaned := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if alias, ok := keyAliases[p]; ok {
			p = alias
		}
		cleaned = append(cleaned, p)
	}
	if len(cleaned) == 0 {
		return "", nil, fmt.Errorf("empty key chord %q", chord)
	}
	return cleaned[len(cleaned)-1], cleaned[:len(cleaned)-1], nil
}
