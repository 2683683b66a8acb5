package extract

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phoneStrip   = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", "+", "", ".", "")
)

const minPhoneDigits = 10

// FieldNames is the fixed field order used in reports and rendering.
var FieldNames = []string{"name", "email", "phone", "location", "age"}

// Check is one field's validation outcome.
type Check struct {
	Field   string
	Value   string
	Present bool
	OK      bool
	Reason  string
}

// Report is the per-field validation outcome for one extraction. Valid is
// true when every present field passes its format check; absent fields are
// reported but do not invalidate the result.
type Report struct {
	Checks    []Check
	Extracted int
	Valid     bool
}

// Validate applies independent, stateless checks per field. It never fails:
// bad values produce failing report entries, not errors.
func Validate(f Fields) Report {
	r := Report{Valid: true, Extracted: f.Count()}

	r.add(checkPresence("name", f.Name))
	r.add(checkEmail(f.Email))
	r.add(checkPhone(f.Phone))
	r.add(checkPresence("location", f.Location))
	r.add(checkAge(f.Age))

	return r
}

func (r *Report) add(c Check) {
	r.Checks = append(r.Checks, c)
	if c.Present && !c.OK {
		r.Valid = false
	}
}

func checkPresence(field string, v *string) Check {
	if v == nil {
		return Check{Field: field, Reason: "not found"}
	}
	return Check{Field: field, Value: *v, Present: true, OK: true}
}

func checkEmail(v *string) Check {
	if v == nil {
		return Check{Field: "email", Reason: "not found"}
	}
	c := Check{Field: "email", Value: *v, Present: true}
	if !emailPattern.MatchString(*v) {
		c.Reason = "does not look like an email address"
		return c
	}
	c.OK = true
	return c
}

func checkPhone(v *string) Check {
	if v == nil {
		return Check{Field: "phone", Reason: "not found"}
	}
	c := Check{Field: "phone", Value: *v, Present: true}
	digits := phoneStrip.Replace(*v)
	if len(digits) < minPhoneDigits || !allDigits(digits) {
		c.Reason = fmt.Sprintf("expected at least %d digits", minPhoneDigits)
		return c
	}
	c.OK = true
	return c
}

func checkAge(a *Age) Check {
	if a == nil {
		return Check{Field: "age", Reason: "not found"}
	}
	c := Check{Field: "age", Value: a.String(), Present: true}
	n, ok := a.Int()
	if !ok {
		c.Reason = "age is not an integer"
		return c
	}
	if n < 0 || n > 150 {
		c.Reason = "age out of range"
		return c
	}
	c.OK = true
	return c
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
