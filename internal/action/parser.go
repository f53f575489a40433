package action

import (
	"regexp"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Regex definitions use \x60 for backticks because Go raw strings cannot
// contain backticks.
var (
	fenceOpen = regexp.MustCompile("\x60\x60\x60(?:json)?\\s*")

	actionNameRe = regexp.MustCompile(`"action"\s*:\s*"([^"]+)"`)
	intFieldRe   = map[string]*regexp.Regexp{
		"x": regexp.MustCompile(`"x"\s*:\s*(\d+)`),
		"y": regexp.MustCompile(`"y"\s*:\s*(\d+)`),
	}
	boolFieldRe = map[string]*regexp.Regexp{
		"auto_enter": regexp.MustCompile(`(?i)"auto_enter"\s*:\s*(true|false)`),
		"double":     regexp.MustCompile(`(?i)"double"\s*:\s*(true|false)`),
	}
	commandsRe    = regexp.MustCompile(`(?s)"commands"\s*:\s*\[(.*?)\]`)
	quotedItemRe  = regexp.MustCompile(`"([^"]*)"`)
	dataArrayRe   = regexp.MustCompile(`(?s)"data"\s*:\s*(\[.*?\])\s*[,}]`)
	slidesArrayRe = regexp.MustCompile(`(?s)"slides"\s*:\s*(\[.*?\])\s*[,}]`)
)

// stringFields are scraped opportunistically in the fallback strategy, in the
// order given. The map key is the JSON field, the function stores the value.
var stringFields = []struct {
	name  string
	re    *regexp.Regexp
	store func(*Action, string)
}{
	{"selector", nil, func(a *Action, v string) { a.Selector = v }},
	{"url", nil, func(a *Action, v string) { a.URL = v }},
	{"key", nil, func(a *Action, v string) { a.Key = v }},
	{"path", nil, func(a *Action, v string) { a.Path = v }},
	{"reason", nil, func(a *Action, v string) { a.Reason = v }},
	{"message", nil, func(a *Action, v string) { a.Message = v }},
	{"text", nil, func(a *Action, v string) { a.Text = v }},
	{"title_re", nil, func(a *Action, v string) { a.TitlePattern = v }},
	{"title", nil, func(a *Action, v string) { a.Title = v }},
	{"content", nil, func(a *Action, v string) { a.Content = v }},
	{"sheet_name", nil, func(a *Action, v string) { a.SheetName = v }},
}

func init() {
	for i := range stringFields {
		stringFields[i].re = regexp.MustCompile(`"` + stringFields[i].name + `"\s*:\s*"([^"]*)"`)
	}
}

// rawAction mirrors the JSON wire shape of a well-formed reply. Coordinates
// arrive as JSON numbers, so they decode through float64.
type rawAction struct {
	Action    string   `json:"action"`
	Path      string   `json:"path"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	SheetName string   `json:"sheet_name"`
	Data      [][]any  `json:"data"`
	Slides    []Slide  `json:"slides"`
	Selector  string   `json:"selector"`
	URL       string   `json:"url"`
	Direction string   `json:"direction"`
	X         *float64 `json:"x"`
	Y         *float64 `json:"y"`
	Button    string   `json:"button"`
	Double    bool     `json:"double"`
	Key       string   `json:"key"`
	TitleRe   string   `json:"title_re"`
	AutoEnter bool     `json:"auto_enter"`
	Text      string   `json:"text"`
	Commands  []string `json:"commands"`
	Reason    string   `json:"reason"`
	Message   string   `json:"message"`
}

func (r rawAction) toAction() Action {
	a := Action{
		Kind:         KindOf(r.Action),
		Name:         r.Action,
		Path:         r.Path,
		Title:        r.Title,
		Content:      r.Content,
		SheetName:    r.SheetName,
		Data:         r.Data,
		Slides:       r.Slides,
		Selector:     r.Selector,
		URL:          r.URL,
		Direction:    r.Direction,
		Button:       r.Button,
		DoubleClick:  r.Double,
		Key:          r.Key,
		TitlePattern: r.TitleRe,
		AutoEnter:    r.AutoEnter,
		Text:         r.Text,
		Commands:     r.Commands,
		Reason:       r.Reason,
		Message:      r.Message,
	}
	if r.X != nil {
		x := int(*r.X)
		a.X = &x
	}
	if r.Y != nil {
		y := int(*r.Y)
		a.Y = &y
	}
	return a
}

// strategy is one pure text -> Action attempt. Strategies are composed
// first-success-wins; Parse never fails because the last resort is wait.
type strategy func(string) (Action, bool)

var strategies = []strategy{parseStructured, parseScraped}

// Parse extracts one action from a raw model reply. The reply usually
// contains a single JSON object but is not guaranteed well-formed; any text
// that cannot be decoded degrades to the wait action rather than an error.
func Parse(raw string) Action {
	txt := stripFences(raw)
	if !strings.Contains(txt, "{") {
		return Wait()
	}
	for _, s := range strategies {
		if a, ok := s(txt); ok {
			return a
		}
	}
	return Wait()
}

func stripFences(txt string) string {
	txt = fenceOpen.ReplaceAllString(txt, "")
	return strings.ReplaceAll(strings.TrimSpace(txt), "\x60\x60\x60", "")
}

// parseStructured walks from the first brace tracking string-quote and
// escape state, counting braces only outside strings. When nesting returns
// to zero, exactly that substring is decoded.
func parseStructured(txt string) (Action, bool) {
	start := strings.IndexByte(txt, '{')
	if start < 0 {
		return Action{}, false
	}

	depth := 0
	inString := false
	escape := false
	for i := start; i < len(txt); i++ {
		c := txt[i]
		if escape {
			escape = false
			continue
		}
		switch c {
		case '\\':
			escape = true
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					var r rawAction
					if err := json.UnmarshalFromString(txt[start:i+1], &r); err != nil {
						return Action{}, false
					}
					return r.toAction(), true
				}
			}
		}
	}
	return Action{}, false
}

// parseScraped is the fallback for truncated or malformed objects: it pulls
// known fields out individually. The action name is required; everything
// else is best effort.
func parseScraped(txt string) (Action, bool) {
	m := actionNameRe.FindStringSubmatch(txt)
	if m == nil {
		return Action{}, false
	}
	a := Action{Kind: KindOf(m[1]), Name: m[1]}

	for _, f := range stringFields {
		if fm := f.re.FindStringSubmatch(txt); fm != nil {
			f.store(&a, fm[1])
		}
	}
	if fm := intFieldRe["x"].FindStringSubmatch(txt); fm != nil {
		if v, err := strconv.Atoi(fm[1]); err == nil {
			a.X = &v
		}
	}
	if fm := intFieldRe["y"].FindStringSubmatch(txt); fm != nil {
		if v, err := strconv.Atoi(fm[1]); err == nil {
			a.Y = &v
		}
	}
	if fm := boolFieldRe["auto_enter"].FindStringSubmatch(txt); fm != nil {
		a.AutoEnter = strings.EqualFold(fm[1], "true")
	}
	if fm := boolFieldRe["double"].FindStringSubmatch(txt); fm != nil {
		a.DoubleClick = strings.EqualFold(fm[1], "true")
	}

	switch a.Kind {
	case KindRunCommands:
		if cm := commandsRe.FindStringSubmatch(txt); cm != nil {
			for _, item := range quotedItemRe.FindAllStringSubmatch(cm[1], -1) {
				a.Commands = append(a.Commands, item[1])
			}
		}
	case KindCreateXlsx:
		if dm := dataArrayRe.FindStringSubmatch(txt); dm != nil {
			// A nested-array decode failure just leaves Data empty.
			_ = json.UnmarshalFromString(dm[1], &a.Data)
		}
	case KindCreatePptx:
		if sm := slidesArrayRe.FindStringSubmatch(txt); sm != nil {
			_ = json.UnmarshalFromString(sm[1], &a.Slides)
		}
	}
	return a, true
}
