package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Navigate loads the given URL in the attached tab.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tctx, cancel, err := s.tab(s.cfg.NavigationTimeout)
	if err != nil {
		return err
	}
	defer cancel()
	if err := chromedp.Run(tctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	return nil
}

// PageTitle returns the current document title.
func (s *Session) PageTitle(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	tctx, cancel, err := s.tab(s.cfg.ActionTimeout)
	if err != nil {
		return "", err
	}
	defer cancel()
	var title string
	if err := chromedp.Run(tctx, chromedp.Title(&title)); err != nil {
		return "", err
	}
	return title, nil
}

// Click clicks the first matching selector from a comma-separated fallback
// list, or the first visible element containing text when text is non-empty.
func (s *Session) Click(ctx context.Context, selector, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if text != "" {
		return s.clickByText(text)
	}
	if selector == "" {
		return fmt.Errorf("click needs a selector or text")
	}

	var lastErr error
	for _, sel := range splitSelectors(selector) {
		tctx, cancel, err := s.tab(s.cfg.ActionTimeout)
		if err != nil {
			return err
		}
		err = chromedp.Run(tctx, chromedp.Click(sel, chromedp.ByQuery))
		cancel()
		if err == nil {
			s.logger.Debug("clicked", zap.String("selector", sel))
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("no selector matched %q: %w", selector, lastErr)
}

func (s *Session) clickByText(text string) error {
	tctx, cancel, err := s.tab(s.cfg.ActionTimeout)
	if err != nil {
		return err
	}
	defer cancel()

	var clicked bool
	if err := chromedp.Run(tctx, chromedp.Evaluate(clickByTextJS(text), &clicked)); err != nil {
		return fmt.Errorf("click by text %q: %w", text, err)
	}
	if !clicked {
		return fmt.Errorf("no visible element with text %q", text)
	}
	s.logger.Debug("clicked by text", zap.String("text", text))
	return nil
}

// Fill sets the value of the first matching input from a comma-separated
// fallback list and fires the framework events frameworks listen for.
func (s *Session) Fill(ctx context.Context, selector, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if selector == "" {
		return fmt.Errorf("type needs a selector")
	}

	var lastErr error
	for _, sel := range splitSelectors(selector) {
		tctx, cancel, err := s.tab(s.cfg.ActionTimeout)
		if err != nil {
			return err
		}
		var filled bool
		err = chromedp.Run(tctx, chromedp.Evaluate(fillJS(sel, text), &filled))
		cancel()
		if err == nil && filled {
			s.logger.Debug("filled", zap.String("selector", sel), zap.Int("chars", len(text)))
			return nil
		}
		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("selector %q matched nothing", sel)
		}
	}
	return fmt.Errorf("no selector accepted input %q: %w", selector, lastErr)
}

// Text returns the innerText of the first element matching the selector.
func (s *Session) Text(ctx context.Context, selector string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	tctx, cancel, err := s.tab(s.cfg.ActionTimeout)
	if err != nil {
		return "", err
	}
	defer cancel()

	var out string
	if err := chromedp.Run(tctx, chromedp.Evaluate(innerTextJS(selector), &out)); err != nil {
		return "", fmt.Errorf("reading text at %q: %w", selector, err)
	}
	return out, nil
}

// Scroll moves the viewport one screen step up or down.
func (s *Session) Scroll(ctx context.Context, direction string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tctx, cancel, err := s.tab(s.cfg.ActionTimeout)
	if err != nil {
		return err
	}
	defer cancel()

	delta := 600
	if direction == "up" {
		delta = -600
	}
	js := fmt.Sprintf("window.scrollBy(0, %d); true", delta)
	var ok bool
	return chromedp.Run(tctx, chromedp.Evaluate(js, &ok))
}

// splitSelectors breaks a comma-separated fallback list into candidates.
// Commas inside attribute selectors are rare in model output; the parse is a
// plain split on purpose.
func splitSelectors(selector string) []string {
	parts := strings.Split(selector, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
