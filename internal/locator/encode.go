// internal/locator/encode.go
package locator

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/xkilldash9x/locator-cli/internal/browser/dom"
)

// EncodePath builds an absolute structural path (XPath) from the root to n.
//
// An element carrying an id short-circuits to //*[@id="..."]. The id is assumed to be unique
// in the document; this is not checked. Every other step gets a positional qualifier only when
// its index is above one or a later sibling shares its tag.
func EncodePath(n *html.Node) string {
	if !dom.IsElement(n) {
		return ""
	}
	if id := dom.Attr(n, "id"); id != "" {
		return fmt.Sprintf("//*[@id=%s]", xpathLiteral(id))
	}

	var segments []string
	for cur := n; cur != nil && cur.Type == html.ElementNode; cur = cur.Parent {
		index, following := siblingPosition(cur)
		segment := cur.Data
		if index > 1 || following {
			segment = fmt.Sprintf("%s[%d]", segment, index)
		}
		segments = append(segments, segment)
	}
	if len(segments) == 0 {
		return ""
	}
	reverse(segments)
	return "/" + strings.Join(segments, "/")
}

// EncodeSelector builds a child-combinator CSS selector for n, stopping below <html>.
// The ascent ends at the first element with an id, which is emitted as tag#id and assumed
// unique, like EncodePath.
func EncodeSelector(n *html.Node) string {
	var segments []string
	for cur := n; dom.IsElement(cur) && dom.TagName(cur) != "html"; cur = cur.Parent {
		tag := dom.TagName(cur)
		if id := dom.Attr(cur, "id"); id != "" {
			segments = append(segments, tag+"#"+cssEscape(id))
			break
		}
		index, following := siblingPosition(cur)
		segment := tag
		if index > 1 || following {
			segment = fmt.Sprintf("%s:nth-of-type(%d)", tag, index)
		}
		segments = append(segments, segment)
	}
	reverse(segments)
	return strings.Join(segments, " > ")
}

// siblingPosition returns the 1-based index of n among same-tag siblings and whether a
// same-tag sibling follows it.
func siblingPosition(n *html.Node) (index int, following bool) {
	index = 1
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode && s.Data == n.Data {
			index++
		}
	}
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode && s.Data == n.Data {
			following = true
			break
		}
	}
	return index, following
}

func reverse(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

// xpathLiteral quotes s as an XPath 1.0 string literal. XPath has no escape sequences, so a
// value holding both quote kinds is split with concat().
func xpathLiteral(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	parts := strings.Split(s, `"`)
	quoted := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `'"'`)
		}
		if p != "" {
			quoted = append(quoted, `"`+p+`"`)
		}
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}

// cssEscape serializes an identifier the way CSS.escape() does.
func cssEscape(ident string) string {
	var sb strings.Builder
	first, _ := utf8.DecodeRuneInString(ident)
	runes := []rune(ident)
	for i, r := range runes {
		switch {
		case r == 0:
			sb.WriteRune(utf8.RuneError)
		case (r >= 0x1 && r <= 0x1f) || r == 0x7f:
			fmt.Fprintf(&sb, `\%x `, r)
		case i == 0 && r >= '0' && r <= '9':
			fmt.Fprintf(&sb, `\%x `, r)
		case i == 1 && r >= '0' && r <= '9' && first == '-':
			fmt.Fprintf(&sb, `\%x `, r)
		case i == 0 && r == '-' && len(runes) == 1:
			sb.WriteString(`\-`)
		case r >= 0x80 || r == '-' || r == '_' ||
			(r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			sb.WriteRune(r)
		default:
			sb.WriteByte('\\')
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// cssString quotes s as a double-quoted CSS string.
func cssString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\a `)
	return `"` + r.Replace(s) + `"`
}
