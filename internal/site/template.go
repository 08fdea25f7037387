package site

import "strings"

// ExpandTemplate replaces every {field} placeholder in tmpl with the
// matching value from vars. Placeholders without a value are left intact
// so a misconfigured template stays visible in the resulting path.
func ExpandTemplate(tmpl string, vars map[string]string) string {
	var b strings.Builder
	b.Grow(len(tmpl))

	for {
		open := strings.IndexByte(tmpl, '{')
		if open < 0 {
			b.WriteString(tmpl)
			return b.String()
		}
		closing := strings.IndexByte(tmpl[open:], '}')
		if closing < 0 {
			b.WriteString(tmpl)
			return b.String()
		}
		closing += open

		b.WriteString(tmpl[:open])
		name := tmpl[open+1 : closing]
		if val, ok := vars[name]; ok {
			b.WriteString(val)
		} else {
			b.WriteString(tmpl[open : closing+1])
		}
		tmpl = tmpl[closing+1:]
	}
}
