package fields

import "strings"

var typographic = strings.NewReplacer(
	"►", "->",
	"•", "*",
	"–", "-",
	"—", "--",
	"‘", "'",
	"’", "'",
	"“", `"`,
	"”", `"`,
)

// Normalize maps typographic characters to ASCII equivalents and trims
// surrounding whitespace
func Normalize(s string) string {
	return strings.TrimSpace(typographic.Replace(s))
}
