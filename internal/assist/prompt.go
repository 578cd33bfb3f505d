// internal/assist/prompt.go
package assist

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	json "github.com/json-iterator/go"

	"github.com/xkilldash9x/locator-cli/internal/locator"
)

// GenerationSystemPrompt frames single-shot candidate generation.
const GenerationSystemPrompt = "You are a professional UI test automation expert who writes stable, reliable element locators."

const missingPage = "(page HTML unavailable)"

var generationTemplate = template.Must(template.New("generation").Parse(`You are a professional UI test automation expert. Your task is to analyse an HTML element and produce **unique and stable** locator strategies.

## Full page HTML

The full page structure follows, so you can see every element's relationships and context:

` + "```" + `html
{{.Page}}
` + "```" + `

---

## Target element

**Produce locator strategies for this element:**

` + "```" + `html
{{.OuterHTML}}
` + "```" + `

### Current XPath for reference
` + "```" + `
{{.XPath}}
` + "```" + `

### Element attributes
` + "```" + `json
{{.Attributes}}
` + "```" + `

---

## Analysis

1. **Locate the target element within the full HTML**
2. **Walk the ancestor chain** 3-5 levels up looking for an ancestor with a unique identifier
3. **Study parents and siblings, especially ones that carry text**
4. **Identify stable class names**: prefer semantic classes (.header, .user-form) and component library classes (.el-dialog, .ant-btn); avoid hashed classes
5. **Prefer visible text as an anchor** (label, heading, button text)
6. **Every locator you return must match exactly one element**
7. **Order by stability: unique ancestor + text > text > unique attribute > stable class combination > composite strategy**

### Output format (follow strictly)

Number every strategy:

1. XPath: <xpath expression>
2. CSS Selector: <css expression>
3. XPath: <another xpath expression>
4. CSS Selector: <another css expression>

- Use the form "number. Type: expression"
- One strategy per line
- No explanations or comments
- Return 3-5 strategies

### Never
- Dynamically generated ids (#el-id-6695-119, #__next_123)
- Hashed classes (.css-1h8iw9x, .Button_button__2Fp3q, .sc-xyz123)
- Strategies that match more than one element
- Bare positional indexes unless anchored on a unique parent

Return the locator list in exactly the format above.`))

var chatTemplate = template.Must(template.New("chat").Parse(`You are a professional UI test automation expert and technical advisor. The user is analysing page elements with Element Locator and generating locator strategies.

## Full page HTML

` + "```" + `html
{{.Page}}
` + "```" + `

---

## Currently selected element

**Element HTML:**
` + "```" + `html
{{.OuterHTML}}
` + "```" + `

**Element XPath:**
` + "```" + `
{{.XPath}}
` + "```" + `

**Element attributes:**
` + "```" + `json
{{.Attributes}}
` + "```" + `

## You can help the user to
1. **Analyse locator strategies** and suggest better ones
2. **Answer test automation questions**
3. **Optimise locators** for special requirements
4. **Solve elements that are hard to locate**
5. **Give code examples** for Selenium, Playwright and Cypress
6. **Advise on automation best practice**

## Answering
- Answer directly, concisely and professionally
- For locators prefer: ancestor + text > ancestor > text > unique attribute > stable class combination
- Every locator you give must be unique on the page
- Avoid generated ids and hashed classes
- Name the framework (Selenium/Playwright/Cypress) whenever you show code`))

// promptJSON keeps markup characters readable inside the prompt.
var promptJSON = json.Config{SortMapKeys: true, EscapeHTML: false}.Froze()

type promptData struct {
	Page       string
	OuterHTML  string
	XPath      string
	Attributes string
}

func newPromptData(rec locator.ElementRecord) promptData {
	d := promptData{
		Page:       rec.FullPageHTML,
		OuterHTML:  rec.OuterHTML,
		XPath:      rec.XPath,
		Attributes: attributesJSON(rec.Attributes),
	}
	if d.Page == "" {
		d.Page = missingPage
	}
	if d.OuterHTML == "" {
		d.OuterHTML = "(unavailable)"
	}
	if d.XPath == "" {
		d.XPath = "(none)"
	}
	return d
}

// BuildPrompt renders the user prompt for candidate generation. A non-empty custom template
// replaces the built-in one; its {html} and {attributes} placeholders receive the element's
// outer markup and its attributes as indented JSON.
func BuildPrompt(rec locator.ElementRecord, custom string) (string, error) {
	if custom != "" {
		r := strings.NewReplacer("{html}", rec.OuterHTML, "{attributes}", attributesJSON(rec.Attributes))
		return r.Replace(custom), nil
	}
	return render(generationTemplate, rec)
}

// BuildChatSystemPrompt renders the system prompt that grounds a chat in the selected element.
func BuildChatSystemPrompt(rec locator.ElementRecord) (string, error) {
	return render(chatTemplate, rec)
}

func render(t *template.Template, rec locator.ElementRecord) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, newPromptData(rec)); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", t.Name(), err)
	}
	return buf.String(), nil
}

func attributesJSON(attrs map[string]string) string {
	if len(attrs) == 0 {
		return "{}"
	}
	out, err := promptJSON.MarshalIndent(attrs, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(out)
}
