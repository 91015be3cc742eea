package fields

import (
	"strings"
	"unicode/utf8"
)

const (
	DefaultContextWindow    = 3
	DefaultContextMaxLength = 100

	sectionPrefix = "Section: "
	ellipsis      = "..."
)

// ContextOptions bound the context search
type ContextOptions struct {
	// Window is the number of preceding fragments searched for a header.
	Window int
	// MaxLength is the rune limit of a surrounding-text context.
	MaxLength int
}

// DefaultContextOptions returns a three-fragment window and a 100 rune limit
func DefaultContextOptions() ContextOptions {
	return ContextOptions{Window: DefaultContextWindow, MaxLength: DefaultContextMaxLength}
}

func (o ContextOptions) withDefaults() ContextOptions {
	if o.Window <= 0 {
		o.Window = DefaultContextWindow
	}
	if o.MaxLength <= 0 {
		o.MaxLength = DefaultContextMaxLength
	}
	return o
}

// ResolveContext describes where the fragment at index sits. The nearest
// preceding header within the window wins; otherwise the surrounding fragment
// texts are joined and truncated. index may equal len(fragments) for positions
// after the last fragment.
func ResolveContext(index int, fragments []Fragment, headers []Header, opts ContextOptions) string {
	opts = opts.withDefaults()

	if len(headers) > 0 {
		known := make(map[string]struct{}, len(headers))
		for _, h := range headers {
			known[h.Text] = struct{}{}
		}
		stop := max(0, index-opts.Window)
		for i := min(index, len(fragments)) - 1; i >= stop; i-- {
			if _, ok := known[fragments[i].Text]; ok {
				return sectionPrefix + fragments[i].Text
			}
		}
	}

	start := max(0, index-1)
	end := min(len(fragments), index+2)
	if start >= end {
		return ""
	}
	texts := make([]string, 0, end-start)
	for _, f := range fragments[start:end] {
		texts = append(texts, f.Text)
	}
	return truncate(strings.TrimSpace(strings.Join(texts, " ")), opts.MaxLength)
}

// truncate shortens s to limit runes, ending it with an ellipsis
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	if limit <= len(ellipsis) {
		return string(runes[:limit])
	}
	return string(runes[:limit-len(ellipsis)]) + ellipsis
}
