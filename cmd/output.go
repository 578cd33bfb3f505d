// File: cmd/output.go
package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	json "github.com/json-iterator/go"

	"github.com/xkilldash9x/locator-cli/internal/locator"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

func validateFormat(format string) error {
	switch format {
	case formatTable, formatJSON:
		return nil
	default:
		return fmt.Errorf("unsupported output format '%s'. Supported: [%s, %s]", format, formatTable, formatJSON)
	}
}

// candidateRow is the presentation form of one candidate and its verification outcome.
type candidateRow struct {
	Type     string          `json:"type"`
	Value    string          `json:"value"`
	Priority int             `json:"priority,omitempty"`
	Code     locator.Code    `json:"code"`
	Count    *int            `json:"count,omitempty"`
	Status   *locator.Status `json:"status,omitempty"`
}

func rowsFor(cands []locator.Candidate, results []locator.Result) []candidateRow {
	rows := make([]candidateRow, len(cands))
	for i, c := range cands {
		rows[i] = candidateRow{Type: c.Type, Value: c.Value, Priority: c.Priority, Code: c.Code}
		if i < len(results) {
			count, status := results[i].Count, results[i].Status()
			rows[i].Count, rows[i].Status = &count, &status
		}
	}
	return rows
}

// writeJSON prints v as indented JSON.
func writeJSON(w io.Writer, v interface{}) error {
	out, err := json.ConfigCompatibleWithStandardLibrary.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize output to JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

// statusStyles colours a verification status: green when unique, yellow when ambiguous, red when missing.
func statusStyles(cell lipgloss.Style) map[locator.Status]lipgloss.Style {
	return map[locator.Status]lipgloss.Style{
		locator.StatusUnique:    cell.Foreground(lipgloss.Color("2")),
		locator.StatusAmbiguous: cell.Foreground(lipgloss.Color("3")),
		locator.StatusNotFound:  cell.Foreground(lipgloss.Color("1")),
	}
}

// writeCandidateTable renders rows as a bordered table. Colours are applied only when w is a terminal.
func writeCandidateTable(w io.Writer, rows []candidateRow) error {
	r := lipgloss.NewRenderer(w)
	header := r.NewStyle().Bold(true).Padding(0, 1)
	cell := r.NewStyle().Padding(0, 1)
	statusStyle := statusStyles(cell)

	verified := len(rows) > 0 && rows[0].Status != nil
	headers := []string{"#", "TYPE", "VALUE"}
	if verified {
		headers = append(headers, "MATCHES", "STATUS")
	}

	data := make([][]string, len(rows))
	for i, row := range rows {
		data[i] = []string{strconv.Itoa(i + 1), row.Type, row.Value}
		if verified && row.Status != nil {
			data[i] = append(data[i], strconv.Itoa(*row.Count), string(*row.Status))
		}
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(r.NewStyle().Faint(true)).
		Headers(headers...).
		Rows(data...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			if verified && col == 4 && row >= 0 && row < len(rows) && rows[row].Status != nil {
				return statusStyle[*rows[row].Status]
			}
			return cell
		})
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// writeCode prints the framework snippets of one candidate.
func writeCode(w io.Writer, c locator.Code) {
	if c.Selenium != "" {
		fmt.Fprintf(w, "  selenium:      %s\n", c.Selenium)
	}
	if c.SeleniumJava != "" {
		fmt.Fprintf(w, "  selenium-java: %s\n", c.SeleniumJava)
	}
	if c.Playwright != "" {
		fmt.Fprintf(w, "  playwright:    %s\n", c.Playwright)
	}
	if c.Cypress != "" {
		fmt.Fprintf(w, "  cypress:       %s\n", c.Cypress)
	}
}

// writeCandidates renders candidates in the requested format, optionally with code snippets.
func writeCandidates(w io.Writer, format string, cands []locator.Candidate, results []locator.Result, withCode bool) error {
	rows := rowsFor(cands, results)
	if format == formatJSON {
		return writeJSON(w, rows)
	}
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No locator candidates.")
		return err
	}
	if err := writeCandidateTable(w, rows); err != nil {
		return err
	}
	if withCode {
		for i, row := range rows {
			fmt.Fprintf(w, "\n%d. %s: %s\n", i+1, row.Type, row.Value)
			writeCode(w, row.Code)
		}
	}
	return nil
}
