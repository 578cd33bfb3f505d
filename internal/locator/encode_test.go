package locator

import (
	"testing"

	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/locator-cli/internal/browser/dom"
)

const encodeHTML = `
	<html>
	<body>
		<div id="header">
			<h1>Welcome</h1>
		</div>
		<div class="content">
			<p>P1</p><p>P2</p>
			<ul>
				<li>Item 1</li>
				<li>Item 2</li>
				<li id="special">Item 3</li>
			</ul>
		</div>
		<div class="content"><p>P3</p><span id="a.b">dotted</span></div>
	</body>
	</html>
	`

func TestEncodePath(t *testing.T) {
	doc, err := dom.ParseString(encodeHTML)
	require.NoError(t, err)

	tests := []struct {
		name         string
		targetXPath  string
		expectedPath string
	}{
		{"Body", "//body", "/html/body"},
		{"Element with ID", "//div[@id='header']", `//*[@id="header"]`},
		{"Child of ID element walks to the root", "//h1", "/html/body/div[1]/h1"},
		{"Specific index", "(//p)[2]", "/html/body/div[2]/p[2]"},
		{"Singleton child is unqualified", "(//div[@class='content'])[2]/p", "/html/body/div[3]/p"},
		{"List item skipping whitespace", "//ul/li[2]", "/html/body/div[2]/ul/li[2]"},
		{"First of several gets a qualifier", "//ul/li[1]", "/html/body/div[2]/ul/li[1]"},
		{"List item with ID", "//li[@id='special']", `//*[@id="special"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := htmlquery.FindOne(doc.Root(), tt.targetXPath)
			require.NotNil(t, target, "test setup error: target node not found with %s", tt.targetXPath)

			path := EncodePath(target)
			assert.Equal(t, tt.expectedPath, path)

			matches, err := QueryXPath(doc.Root(), path)
			require.NoError(t, err)
			require.Len(t, matches, 1, "path must select exactly one node")
			assert.Same(t, target, matches[0])
		})
	}
}

func TestEncodeSelector(t *testing.T) {
	doc, err := dom.ParseString(encodeHTML)
	require.NoError(t, err)

	tests := []struct {
		name        string
		targetXPath string
		expected    string
	}{
		{"Body", "//body", "body"},
		{"Element with ID", "//div[@id='header']", "div#header"},
		{"Ascent stops at ID ancestor", "//h1", "div#header > h1"},
		{"Specific index", "(//p)[2]", "body > div:nth-of-type(2) > p:nth-of-type(2)"},
		{"Singleton child is unqualified", "(//div[@class='content'])[2]/p", "body > div:nth-of-type(3) > p"},
		{"List item", "//ul/li[2]", "body > div:nth-of-type(2) > ul > li:nth-of-type(2)"},
		{"List item with ID", "//li[@id='special']", "li#special"},
		{"ID needing escapes", "//span", `span#a\.b`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := htmlquery.FindOne(doc.Root(), tt.targetXPath)
			require.NotNil(t, target)

			sel := EncodeSelector(target)
			assert.Equal(t, tt.expected, sel)

			matches := cascadia.QueryAll(doc.Root(), cascadia.MustCompile(sel))
			require.Len(t, matches, 1, "selector must select exactly one node")
			assert.Same(t, target, matches[0])
		})
	}
}

func TestEncodeThreeSiblings(t *testing.T) {
	doc, err := dom.ParseString(`<ul><li>a</li><li>b</li><li>c</li></ul>`)
	require.NoError(t, err)
	second := htmlquery.FindOne(doc.Root(), "//li[2]")
	require.NotNil(t, second)

	path := EncodePath(second)
	assert.Equal(t, "/html/body/ul/li[2]", path)

	engine := NewEngine(doc, nil)
	res := engine.Verify(Candidate{Type: LabelXPath, Value: path})
	require.Equal(t, 1, res.Count)
	assert.Same(t, second, res.Nodes[0])
}

func TestEncodeDegenerateNodes(t *testing.T) {
	doc, err := dom.ParseString(`<p>text</p>`)
	require.NoError(t, err)
	p := htmlquery.FindOne(doc.Root(), "//p")

	assert.Empty(t, EncodePath(nil))
	assert.Empty(t, EncodePath(p.FirstChild), "text nodes have no path")
	assert.Empty(t, EncodeSelector(nil))
	assert.Equal(t, "/div", EncodePath(doc.CreateElement("div")), "detached element encodes itself only")
}

func TestIDShortCircuit(t *testing.T) {
	doc, err := dom.ParseString(`<div><section><button id="go">Go</button></section></div>`)
	require.NoError(t, err)
	btn := htmlquery.FindOne(doc.Root(), "//button")

	assert.Equal(t, `//*[@id="go"]`, EncodePath(btn))
	assert.Equal(t, "button#go", EncodeSelector(btn))
}

func TestXPathLiteral(t *testing.T) {
	assert.Equal(t, `"plain"`, xpathLiteral("plain"))
	assert.Equal(t, `'say "hi"'`, xpathLiteral(`say "hi"`))
	assert.Equal(t, `concat("it's ", '"', "quoted", '"')`, xpathLiteral(`it's "quoted"`))

	doc, err := dom.ParseString(`<p>it's "quoted"</p>`)
	require.NoError(t, err)
	nodes, err := QueryXPath(doc.Root(), "//p[text()="+xpathLiteral(`it's "quoted"`)+"]")
	require.NoError(t, err)
	assert.Len(t, nodes, 1)
}

func TestCSSEscape(t *testing.T) {
	tests := map[string]string{
		"plain_id-1": "plain_id-1",
		"1abc":       `\31 abc`,
		"-1x":        `-\31 x`,
		"-":          `\-`,
		"a.b":        `a\.b`,
		"a:b":        `a\:b`,
		"café":       "café",
	}
	for in, want := range tests {
		assert.Equal(t, want, cssEscape(in), "cssEscape(%q)", in)
	}
}
