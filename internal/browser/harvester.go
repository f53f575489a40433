package browser

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

const (
	maxElements = 100
	maxLines    = 50
)

// miniDOMJS walks the page for interactive elements and renders each as one
// compact line: a best-effort unique selector plus a few orienting details.
// The output is a prompt ingredient, so it is capped hard on both the number
// of elements scanned and the number of lines returned.
var miniDOMJS = fmt.Sprintf(`(() => {
  const sel = el => {
    let s = el.tagName.toLowerCase();
    if (el.id) return s + '#' + el.id;
    if (el.name) s += '[name="' + el.name + '"]';
    else if (el.classList.length) s += '.' + [...el.classList].slice(0, 2).join('.');
    return s;
  };
  const visible = el => {
    const r = el.getBoundingClientRect();
    return r.width > 0 && r.height > 0;
  };
  const lines = [];
  const els = document.querySelectorAll(
    'a, button, input, select, textarea, [role="button"], [onclick]');
  for (let i = 0; i < els.length && i < %d; i++) {
    const el = els[i];
    if (!visible(el)) continue;
    let line = sel(el);
    const extras = [];
    if (el.type) extras.push('type=' + el.type);
    if (el.placeholder) extras.push('ph=' + el.placeholder);
    if (el.href) extras.push('href=' + el.href.slice(0, 60));
    if (extras.length) line += ' (' + extras.join(' ') + ')';
    const text = (el.innerText || el.value || '').trim().replace(/\s+/g, ' ');
    if (text) line += ' | ' + text.slice(0, 50);
    lines.push(line);
    if (lines.length >= %d) break;
  }
  return lines.join('\n');
})()`, maxElements, maxLines)

// MiniDOM returns the bounded interactive-element summary of the current
// page, one element per line.
func (s *Session) MiniDOM(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	tctx, cancel, err := s.tab(s.cfg.ActionTimeout)
	if err != nil {
		return "", err
	}
	defer cancel()

	var out string
	if err := s.evaluate(tctx, miniDOMJS, &out); err != nil {
		return "", fmt.Errorf("harvesting mini-DOM: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// clickByTextJS clicks the first visible clickable element whose text
// contains needle, preferring exact matches.
func clickByTextJS(needle string) string {
	q := strconv.Quote(needle)
	return `(() => {
  const needle = ` + q + `.toLowerCase();
  const els = [...document.querySelectorAll(
    'a, button, input[type=submit], input[type=button], [role="button"], [onclick]')];
  const visible = el => {
    const r = el.getBoundingClientRect();
    return r.width > 0 && r.height > 0;
  };
  const textOf = el => ((el.innerText || el.value || '').trim().toLowerCase());
  let hit = els.find(el => visible(el) && textOf(el) === needle);
  if (!hit) hit = els.find(el => visible(el) && textOf(el).includes(needle));
  if (!hit) return false;
  hit.scrollIntoView({block: 'center'});
  hit.click();
  return true;
})()`
}

// fillJS sets an input's value through the native setter so React-style
// frameworks observe the change, then fires input and change.
func fillJS(selector, value string) string {
	s := strconv.Quote(selector)
	v := strconv.Quote(value)
	return `(() => {
  const el = document.querySelector(` + s + `);
  if (!el) return false;
  el.focus();
  const proto = el instanceof HTMLTextAreaElement
    ? HTMLTextAreaElement.prototype : HTMLInputElement.prototype;
  const setter = Object.getOwnPropertyDescriptor(proto, 'value');
  if (setter && setter.set) setter.set.call(el, ` + v + `);
  else el.value = ` + v + `;
  el.dispatchEvent(new Event('input', {bubbles: true}));
  el.dispatchEvent(new Event('change', {bubbles: true}));
  return true;
})()`
}

// innerTextJS reads the innerText of the first selector match, empty string
// when nothing matches.
func innerTextJS(selector string) string {
	s := strconv.Quote(selector)
	return `(() => {
  const el = document.querySelector(` + s + `);
  return el ? el.innerText : '';
})()`
}
