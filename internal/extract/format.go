package extract

import (
	"fmt"
	"strings"
)

// FormatResult renders an extraction and its validation report for display.
// Pure presentation, no logic.
func FormatResult(source string, f Fields, r Report) string {
	var sb strings.Builder

	preview := source
	if len(preview) > 50 {
		preview = preview[:50] + "..."
	}
	fmt.Fprintf(&sb, "Extraction: %s\n", preview)

	values := map[string]string{}
	if f.Name != nil {
		values["name"] = *f.Name
	}
	if f.Email != nil {
		values["email"] = *f.Email
	}
	if f.Phone != nil {
		values["phone"] = *f.Phone
	}
	if f.Location != nil {
		values["location"] = *f.Location
	}
	if f.Age != nil {
		values["age"] = f.Age.String()
	}

	for _, field := range FieldNames {
		if v, ok := values[field]; ok {
			fmt.Fprintf(&sb, "  [x] %s: %s\n", field, v)
		} else {
			fmt.Fprintf(&sb, "  [ ] %s: not found\n", field)
		}
	}

	verdict := "valid"
	if !r.Valid {
		verdict = "invalid"
	}
	fmt.Fprintf(&sb, "Validation: %d/%d fields, %s\n", r.Extracted, len(FieldNames), verdict)
	for _, c := range r.Checks {
		if c.Present && !c.OK {
			fmt.Fprintf(&sb, "  %s: %s\n", c.Field, c.Reason)
		}
	}

	return sb.String()
}
