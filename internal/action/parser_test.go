package action

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBalancedObject(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want func(t *testing.T, a Action)
	}{
		{
			name: "plain object",
			raw:  `{"action":"playwright_click","selector":"#submit"}`,
			want: func(t *testing.T, a Action) {
				assert.Equal(t, KindClick, a.Kind)
				assert.Equal(t, "#submit", a.Selector)
			},
		},
		{
			name: "object wrapped in prose",
			raw:  `I will click the button now. {"action":"mouse_click","x":10,"y":20,"double":true} Let me know.`,
			want: func(t *testing.T, a Action) {
				assert.Equal(t, KindMouseClick, a.Kind)
				require.NotNil(t, a.X)
				require.NotNil(t, a.Y)
				assert.Equal(t, 10, *a.X)
				assert.Equal(t, 20, *a.Y)
				assert.True(t, a.DoubleClick)
			},
		},
		{
			name: "markdown fenced",
			raw:  "```json\n{\"action\":\"playwright_navigate\",\"url\":\"https://example.org\"}\n```",
			want: func(t *testing.T, a Action) {
				assert.Equal(t, KindNavigate, a.Kind)
				assert.Equal(t, "https://example.org", a.URL)
			},
		},
		{
			name: "nested object with braces inside strings",
			raw:  `{"action":"pywinauto_type","text":"if (x) { y } else { z }","auto_enter":true}`,
			want: func(t *testing.T, a Action) {
				assert.Equal(t, KindWinType, a.Kind)
				assert.Equal(t, "if (x) { y } else { z }", a.Text)
				assert.True(t, a.AutoEnter)
			},
		},
		{
			name: "escaped quotes inside strings",
			raw:  `{"action":"playwright_click","text":"say \"hello\""}`,
			want: func(t *testing.T, a Action) {
				assert.Equal(t, KindClick, a.Kind)
				assert.Equal(t, `say "hello"`, a.Text)
			},
		},
		{
			name: "xlsx grid",
			raw:  `{"action":"create_xlsx","path":"/tmp/t.xlsx","data":[["A","B"],[1,2]]}`,
			want: func(t *testing.T, a Action) {
				assert.Equal(t, KindCreateXlsx, a.Kind)
				require.Len(t, a.Data, 2)
				assert.Equal(t, "A", a.Data[0][0])
			},
		},
		{
			name: "pptx slides",
			raw:  `{"action":"create_pptx","path":"/tmp/d.pptx","slides":[{"title":"One","content":"Intro"},{"title":"Two","content":"Body"}]}`,
			want: func(t *testing.T, a Action) {
				assert.Equal(t, KindCreatePptx, a.Kind)
				require.Len(t, a.Slides, 2)
				assert.Equal(t, "One", a.Slides[0].Title)
				assert.Equal(t, "Body", a.Slides[1].Content)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.want(t, Parse(tt.raw))
		})
	}
}

func TestParseNoBraceReturnsWait(t *testing.T) {
	for _, raw := range []string{"", "I am thinking about what to do next.", "done", "``````"} {
		a := Parse(raw)
		assert.Equal(t, KindWait, a.Kind, "input %q", raw)
	}
}

func TestParseTruncatedRunCommands(t *testing.T) {
	// The closing brace never arrives, so structured decoding cannot work;
	// field scraping must still recover the command list.
	raw := `{"action":"run_commands","commands":["systeminfo > %TEMP%\\sysinfo.txt","echo done"],"reason":"gather`
	a := Parse(raw)
	require.Equal(t, KindRunCommands, a.Kind)
	assert.Equal(t, []string{`systeminfo > %TEMP%\\sysinfo.txt`, "echo done"}, a.Commands)
}

func TestParseTruncatedStringFields(t *testing.T) {
	raw := `{"action":"read_file","path":"C:\\temp\\report.txt","x":42,"auto_enter":true,"junk":`
	a := Parse(raw)
	require.Equal(t, KindReadFile, a.Kind)
	assert.Equal(t, `C:\\temp\\report.txt`, a.Path)
	require.NotNil(t, a.X)
	assert.Equal(t, 42, *a.X)
	assert.True(t, a.AutoEnter)
}

func TestParseTruncatedXlsxData(t *testing.T) {
	raw := `{"action":"create_xlsx","path":"/tmp/t.xlsx","data":[["H1","H2"],["a","b"]],"sheet_name":"Repo`
	a := Parse(raw)
	require.Equal(t, KindCreateXlsx, a.Kind)
	require.Len(t, a.Data, 2)
	assert.Equal(t, "H2", a.Data[0][1])
}

func TestParseMalformedWithoutActionReturnsWait(t *testing.T) {
	a := Parse(`{"selector": "#x", "text": "no action name`)
	assert.Equal(t, KindWait, a.Kind)
}

func TestParseDecodedObjectWithoutActionIsUnknown(t *testing.T) {
	// A well-formed object with no action name is reported as unrecognized,
	// not silently converted to wait.
	a := Parse(`{"thought":"hmm"}`)
	assert.Equal(t, KindUnknown, a.Kind)
	assert.Empty(t, a.Name)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindDone, KindOf("done"))
	assert.Equal(t, KindUnknown, KindOf("self_destruct"))
}
