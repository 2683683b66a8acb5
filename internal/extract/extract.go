package extract

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/stonebridgeco/parley/internal/llm"
)

const (
	toolName        = "extract_info"
	toolDescription = "Record personal information found in the text."
	extractSystem   = "Extract personal info. Use null for missing."
)

// Caller is the function-calling surface the extractor needs.
type Caller interface {
	CallTool(messages []llm.Message, tool llm.Tool) (json.RawMessage, error)
}

// Age holds an extracted age. Models occasionally return it as text, so the
// raw form is kept alongside the parse result for validation to inspect.
type Age struct {
	raw     string
	value   int
	numeric bool
}

func (a *Age) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		return nil
	}
	if len(s) >= 2 && s[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		a.raw = strings.TrimSpace(str)
	} else {
		a.raw = s
	}
	if n, err := strconv.Atoi(a.raw); err == nil {
		a.value = n
		a.numeric = true
	} else if f, err := strconv.ParseFloat(a.raw, 64); err == nil && f == float64(int(f)) {
		a.value = int(f)
		a.numeric = true
	}
	return nil
}

func (a Age) MarshalJSON() ([]byte, error) {
	if a.numeric {
		return json.Marshal(a.value)
	}
	return json.Marshal(a.raw)
}

// Int returns the age and whether it parsed as an integer.
func (a Age) Int() (int, bool) { return a.value, a.numeric }

func (a Age) String() string {
	if a.numeric {
		return strconv.Itoa(a.value)
	}
	return a.raw
}

// AgeOf builds a numeric Age. Test and caller convenience.
func AgeOf(n int) *Age { return &Age{raw: strconv.Itoa(n), value: n, numeric: true} }

// AgeText builds an Age from raw text, parsing it if possible.
func AgeText(s string) *Age {
	a := &Age{raw: strings.TrimSpace(s)}
	if n, err := strconv.Atoi(a.raw); err == nil {
		a.value = n
		a.numeric = true
	}
	return a
}

// Fields is the extraction result. Nil means the field was absent from the
// text. Decoding into this record drops any unknown fields in the response.
type Fields struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
	Location *string `json:"location"`
	Age      *Age    `json:"age"`
}

// Count reports how many fields were extracted.
func (f Fields) Count() int {
	n := 0
	for _, present := range []bool{
		f.Name != nil, f.Email != nil, f.Phone != nil, f.Location != nil, f.Age != nil,
	} {
		if present {
			n++
		}
	}
	return n
}

// Extractor sends free text plus the fixed field schema to the remote
// function-calling endpoint.
type Extractor struct {
	client Caller
}

func New(client Caller) *Extractor {
	return &Extractor{client: client}
}

func schema() map[string]any {
	nullable := func(t string) map[string]any {
		return map[string]any{"type": []string{t, "null"}}
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":     nullable("string"),
			"email":    nullable("string"),
			"phone":    nullable("string"),
			"location": nullable("string"),
			"age":      nullable("integer"),
		},
	}
}

// Extract pulls the five known fields out of text. Text with nothing
// recognizable yields all fields absent, not an error. Remote and decode
// failures bubble to the caller.
func (e *Extractor) Extract(text string) (Fields, error) {
	args, err := e.client.CallTool(
		[]llm.Message{
			{Role: "system", Content: extractSystem},
			{Role: "user", Content: "Extract from: " + text},
		},
		llm.Tool{Name: toolName, Description: toolDescription, Parameters: schema()},
	)
	if err != nil {
		return Fields{}, fmt.Errorf("extract: %w", err)
	}

	var fields Fields
	if err := json.Unmarshal(args, &fields); err != nil {
		return Fields{}, fmt.Errorf("parse extraction arguments: %w", err)
	}
	normalize(&fields)
	return fields, nil
}

// normalize drops empty strings so "present but blank" reads as absent.
func normalize(f *Fields) {
	clean := func(p **string) {
		if *p == nil {
			return
		}
		v := strings.TrimSpace(**p)
		if v == "" {
			*p = nil
			return
		}
		**p = v
	}
	clean(&f.Name)
	clean(&f.Email)
	clean(&f.Phone)
	clean(&f.Location)
	if f.Age != nil && f.Age.raw == "" {
		f.Age = nil
	}
}
