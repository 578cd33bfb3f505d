// browser/dom/node.go
package dom

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// TagName returns the lowercase tag name of an element node, or "" for anything else.
func TagName(n *html.Node) string {
	if n == nil || n.Type != html.ElementNode {
		return ""
	}
	return strings.ToLower(n.Data)
}

// IsElement reports whether n is an element node.
func IsElement(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode
}

// Attr returns the value of the named attribute, or "" when absent.
func Attr(n *html.Node, key string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

// HasAttr reports whether the named attribute is present, even if empty.
func HasAttr(n *html.Node, key string) bool {
	if n == nil {
		return false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return true
		}
	}
	return false
}

// SetAttr sets or replaces an attribute value.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr deletes an attribute if present.
func RemoveAttr(n *html.Node, key string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			continue
		}
		out = append(out, a)
	}
	n.Attr = out
}

// Attributes copies the attribute list into a map. Later duplicates win, matching the DOM.
func Attributes(n *html.Node) map[string]string {
	attrs := make(map[string]string, len(n.Attr))
	for _, a := range n.Attr {
		key := a.Key
		if a.Namespace != "" {
			key = a.Namespace + ":" + a.Key
		}
		attrs[key] = a.Val
	}
	return attrs
}

// Classes returns the whitespace separated tokens of the class attribute.
func Classes(n *html.Node) []string {
	return strings.Fields(Attr(n, "class"))
}

// HasClass reports whether every token in names is present in the class attribute.
func HasClass(n *html.Node, names ...string) bool {
	if len(names) == 0 {
		return false
	}
	have := make(map[string]struct{})
	for _, c := range Classes(n) {
		have[c] = struct{}{}
	}
	for _, name := range names {
		if _, ok := have[name]; !ok {
			return false
		}
	}
	return true
}

// AddClass appends a class token unless it is already present.
func AddClass(n *html.Node, name string) {
	classes := Classes(n)
	for _, c := range classes {
		if c == name {
			return
		}
	}
	SetAttr(n, "class", strings.Join(append(classes, name), " "))
}

// RemoveClass drops a class token. The attribute is removed when it becomes empty.
func RemoveClass(n *html.Node, name string) {
	if !HasAttr(n, "class") {
		return
	}
	var kept []string
	for _, c := range Classes(n) {
		if c != name {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		RemoveAttr(n, "class")
		return
	}
	SetAttr(n, "class", strings.Join(kept, " "))
}

// DirectText concatenates the text node children of n without descending into elements.
func DirectText(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return sb.String()
}

// TextContent returns the aggregate text of the subtree, like the DOM textContent property.
func TextContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(cur *html.Node) {
		if cur.Type == html.TextNode {
			sb.WriteString(cur.Data)
			return
		}
		if cur.Type == html.CommentNode {
			return
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// OuterHTML renders the node and its subtree.
func OuterHTML(n *html.Node) string {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return ""
	}
	return buf.String()
}

// InnerHTML renders only the children of the node.
func InnerHTML(n *html.Node) string {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return buf.String()
		}
	}
	return buf.String()
}

// ElementChildren lists the element children of n in document order.
func ElementChildren(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// Walk visits every element in the subtree rooted at n in document order.
// Returning false from fn stops the walk.
func Walk(n *html.Node, fn func(*html.Node) bool) {
	var visit func(*html.Node) bool
	visit = func(cur *html.Node) bool {
		if cur.Type == html.ElementNode && !fn(cur) {
			return false
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			if !visit(c) {
				return false
			}
		}
		return true
	}
	if n != nil {
		visit(n)
	}
}

// Contains reports whether n is root or one of its descendants.
func Contains(root, n *html.Node) bool {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur == root {
			return true
		}
	}
	return false
}
