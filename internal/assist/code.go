// internal/assist/code.go
package assist

import (
	"fmt"

	"github.com/xkilldash9x/locator-cli/internal/locator"
)

// seleniumBy maps a model-supplied type to the Selenium By strategy. Unknown types use XPath.
var seleniumBy = map[string]string{
	"XPath":        "XPATH",
	"CSS Selector": "CSS_SELECTOR",
	"ID":           "ID",
	"Name":         "NAME",
	"Class":        "CLASS_NAME",
	"Class Name":   "CLASS_NAME",
	"Tag Name":     "TAG_NAME",
}

var seleniumJavaBy = map[string]string{
	"XPATH":        "xpath",
	"CSS_SELECTOR": "cssSelector",
	"ID":           "id",
	"NAME":         "name",
	"CLASS_NAME":   "className",
	"TAG_NAME":     "tagName",
}

// RenderCode produces framework snippets for a model-proposed candidate. typ is the label
// without the AI suffix.
func RenderCode(typ, value string) locator.Code {
	by, ok := seleniumBy[typ]
	if !ok {
		by = "XPATH"
	}
	q := locator.QuoteLiteral(value)

	code := locator.Code{
		Selenium:     fmt.Sprintf("driver.find_element(By.%s, %s)", by, q),
		SeleniumJava: fmt.Sprintf("driver.findElement(By.%s(%s));", seleniumJavaBy[by], q),
	}
	switch typ {
	case "CSS Selector":
		code.Playwright = fmt.Sprintf("page.locator(%s)", q)
		code.Cypress = fmt.Sprintf("cy.get(%s)", q)
	case "XPath":
		code.Playwright = fmt.Sprintf("page.locator(%s)", locator.QuoteLiteral("xpath="+value))
		code.Cypress = fmt.Sprintf("cy.xpath(%s)", q)
	case "ID":
		code.Playwright = fmt.Sprintf("page.locator(%s)", locator.QuoteLiteral("#"+value))
		code.Cypress = fmt.Sprintf("cy.get(%s)", locator.QuoteLiteral("#"+value))
	default:
		code.Playwright = fmt.Sprintf("page.locator(%s)", q)
		code.Cypress = fmt.Sprintf("cy.get(%s)", q)
	}
	return code
}
