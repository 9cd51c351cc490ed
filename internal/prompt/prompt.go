package prompt

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/alnah/go-subprep/internal/lang"
)

// Prompt name constants.
const (
	Split     = "split"
	SplitJSON = "split-json"
)

// DefaultSeparator is the two-part marker the service must insert.
const DefaultSeparator = "||"

// ---------------------------------------------------------------------------
// Name type - represents a validated prompt name
// ---------------------------------------------------------------------------

// Name represents a validated prompt name.
// Zero value is invalid and must not be rendered.
type Name struct {
	name string
}

// Pre-parsed prompt names.
var (
	SplitName     = Name{name: Split}
	SplitJSONName = Name{name: SplitJSON}
)

// ParseName validates and parses a prompt name string.
func ParseName(s string) (Name, error) {
	if s == "" {
		return Name{}, fmt.Errorf("prompt name cannot be empty: %w", ErrUnknown)
	}
	if _, ok := templates[s]; !ok {
		return Name{}, fmt.Errorf("unknown prompt %q: %w", s, ErrUnknown)
	}
	return Name{name: s}, nil
}

// MustParseName parses a prompt name, panicking if invalid.
// Use only for constants and tests.
func MustParseName(s string) Name {
	n, err := ParseName(s)
	if err != nil {
		panic(err)
	}
	return n
}

// String returns the prompt name string.
func (n Name) String() string {
	return n.name
}

// IsZero returns true if no prompt is set.
func (n Name) IsZero() bool {
	return n.name == ""
}

// Data holds the values substituted into a prompt.
type Data struct {
	Sentence  string
	Separator string
	// Language is a language code; empty means the sentence's own language.
	Language string
}

// Render fills the named prompt with data.
// An empty separator defaults to DefaultSeparator.
func (n Name) Render(data Data) (string, error) {
	if n.IsZero() {
		return "", fmt.Errorf("render: %w", ErrUnknown)
	}
	if strings.TrimSpace(data.Sentence) == "" {
		return "", ErrEmptyInput
	}
	if data.Separator == "" {
		data.Separator = DefaultSeparator
	}

	view := struct {
		Data
		LanguageName string
	}{Data: data}
	if data.Language != "" {
		view.LanguageName = lang.DisplayName(data.Language)
	}

	var sb strings.Builder
	if err := templates[n.name].Execute(&sb, view); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", n.name, err)
	}
	return sb.String(), nil
}

// Names returns the available prompt names in a stable order.
func Names() []string {
	return []string{Split, SplitJSON}
}

var templates = map[string]*template.Template{
	Split:     template.Must(template.New(Split).Parse(splitPrompt)),
	SplitJSON: template.Must(template.New(SplitJSON).Parse(splitJSONPrompt)),
}

const splitPrompt = `Split the following sentence into two parts at the most natural point of meaning, marking the cut with {{.Separator}}. Both parts must read as complete units and have similar lengths.
{{- if .LanguageName}}
The sentence is written in {{.LanguageName}}.
{{- end}}

Sentence: {{.Sentence}}

Rules:
1. Exactly two parts
2. Use only {{.Separator}} as the separator
3. Do not change the original text
4. Do not add punctuation or spaces
5. Reply with the split sentence only, nothing else

Example input: This is a long sentence that needs to be split into two parts with similar lengths
Example output: This is a long sentence {{.Separator}} that needs to be split into two parts with similar lengths`

const splitJSONPrompt = `Split the following sentence into two parts at the most natural point of meaning. Both parts must read as complete units and have similar lengths.
{{- if .LanguageName}}
The sentence is written in {{.LanguageName}}.
{{- end}}

Sentence: {{.Sentence}}

Rules:
1. Exactly two parts
2. Do not change the original text
3. Do not add punctuation
4. Reply with JSON only, in this shape: {"parts": ["first part", "second part"]}`
