// internal/assist/linebuffer.go
package assist

import "strings"

// LineBuffer reassembles streamed text into complete lines. The zero value is ready to use.
type LineBuffer struct {
	partial strings.Builder
}

// Write appends a streamed piece and returns every line it completed, without terminators.
func (b *LineBuffer) Write(piece string) []string {
	var lines []string
	for {
		i := strings.IndexByte(piece, '\n')
		if i < 0 {
			b.partial.WriteString(piece)
			return lines
		}
		b.partial.WriteString(piece[:i])
		lines = append(lines, strings.TrimSuffix(b.partial.String(), "\r"))
		b.partial.Reset()
		piece = piece[i+1:]
	}
}

// Flush returns the unterminated remainder, if any, and empties the buffer.
func (b *LineBuffer) Flush() (string, bool) {
	if b.partial.Len() == 0 {
		return "", false
	}
	rest := strings.TrimSuffix(b.partial.String(), "\r")
	b.partial.Reset()
	return rest, true
}
