package roster

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jhillyerd/enmime"
	pdf "github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"
)

type Source string

const (
	SourceText  Source = "text"
	SourceHTML  Source = "html_table"
	SourceXLSX  Source = "xlsx"
	SourcePDF   Source = "pdf"
	SourceEmail Source = "email"
)

// Row is one hero/affiliation pair pulled out of a document.
type Row struct {
	LineNo      int            `json:"lineNo"`
	Source      Source         `json:"source"`
	RawLine     string         `json:"rawLine"`
	HeroName    string         `json:"heroName"`
	Affiliation string         `json:"affiliation"`
	Meta        map[string]any `json:"meta,omitempty"`
}

var (
	reSpaces   = regexp.MustCompile(`\s+`)
	reLineSep  = regexp.MustCompile(`^([^:\t]+)[:\t]\s*(.+)$`)
	reHasAlpha = regexp.MustCompile(`\pL`)

	ignorePatterns = []*regexp.Regexp{
		regexp.MustCompile(`^--+$`),
		regexp.MustCompile(`(?i)^(thanks|regards|cheers)\b`),
		regexp.MustCompile(`(?i)^(from|to|sent|subject|date):`),
		regexp.MustCompile(`(?i)^https?:`),
	}

	nameProbes        = []string{"hero", "name", "character", "alias"}
	affiliationProbes = []string{"affiliation", "team", "group", "member"}
)

// ExtractFile reads rows from path, picking the parser by extension.
// Anything unrecognised is read as plain text.
func ExtractFile(path string) ([]Row, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var rows []Row
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		rows, err = parseXLSX(blob)
	case ".pdf":
		rows, err = parsePDF(blob)
	case ".html", ".htm":
		rows = parseHTMLTables(string(blob))
	case ".eml":
		rows, err = parseEmail(blob)
	default:
		rows = parseText(string(blob))
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return number(dedupeRows(rows)), nil
}

// parseEmail collects rows from the text body, HTML tables and any xlsx or
// pdf attachments of a forwarded roster.
func parseEmail(raw []byte) ([]Row, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	var rows []Row
	if env.Text != "" {
		rows = append(rows, tag(parseText(env.Text), SourceEmail, nil)...)
	}
	if env.HTML != "" {
		rows = append(rows, parseHTMLTables(env.HTML)...)
	}

	for _, att := range env.Attachments {
		filename := strings.TrimSpace(att.FileName)
		if filename == "" {
			filename = "attachment"
		}
		var extra []Row
		switch strings.ToLower(filepath.Ext(filename)) {
		case ".xlsx":
			extra, err = parseXLSX(att.Content)
		case ".pdf":
			extra, err = parsePDF(att.Content)
		default:
			continue
		}
		if err != nil {
			continue
		}
		rows = append(rows, tag(extra, "", map[string]any{"attachment": filename})...)
	}
	return rows, nil
}

// parseText reads "Hero: affiliations" or tab-separated lines.
func parseText(text string) []Row {
	var out []Row
	for _, line := range splitLines(text) {
		if isLikelyNoise(line) {
			continue
		}
		m := reLineSep.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name, aff := normalizeSpaces(m[1]), normalizeSpaces(m[2])
		if !reHasAlpha.MatchString(name) || aff == "" {
			continue
		}
		out = append(out, Row{Source: SourceText, RawLine: line, HeroName: name, Affiliation: aff})
	}
	return out
}

func parseHTMLTables(html string) []Row {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var out []Row
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		trs := table.Find("tr")
		if trs.Length() < 2 {
			return
		}

		var headers []string
		trs.First().Find("th,td").Each(func(_ int, cell *goquery.Selection) {
			headers = append(headers, strings.ToLower(normalizeSpaces(cell.Text())))
		})
		nameIdx, affIdx := inferColumns(headers)
		if nameIdx < 0 || affIdx < 0 {
			nameIdx, affIdx = 0, 1
		}

		trs.Slice(1, trs.Length()).Each(func(_ int, tr *goquery.Selection) {
			var cells []string
			tr.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, normalizeSpaces(cell.Text()))
			})
			if row, ok := cellsToRow(SourceHTML, cells, nameIdx, affIdx); ok {
				row.Meta = map[string]any{"row": cells}
				out = append(out, row)
			}
		})
	})
	return out
}

func parseXLSX(content []byte) ([]Row, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []Row
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}

		nameIdx, affIdx := -1, -1
		for i, row := range rows {
			cells := normalizeCells(row)
			if len(cells) == 0 {
				continue
			}
			if i < 3 && nameIdx < 0 {
				nameIdx, affIdx = inferColumns(lower(cells))
				if nameIdx >= 0 && affIdx >= 0 {
					continue
				}
				nameIdx, affIdx = -1, -1
			}

			n, a := nameIdx, affIdx
			if n < 0 {
				n, a = 0, 1
			}
			if r, ok := cellsToRow(SourceXLSX, cells, n, a); ok {
				r.Meta = map[string]any{"sheet": sheet, "rowNumber": i + 1}
				out = append(out, r)
			}
		}
	}
	return out, nil
}

func parsePDF(content []byte) ([]Row, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, err
	}

	var out []Row
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		out = append(out, tag(parseText(text), SourcePDF, map[string]any{"page": i})...)
	}
	return out, nil
}

func cellsToRow(source Source, cells []string, nameIdx, affIdx int) (Row, bool) {
	name := pickCell(cells, nameIdx)
	aff := pickCell(cells, affIdx)
	if name == "" || aff == "" || !reHasAlpha.MatchString(name) {
		return Row{}, false
	}
	return Row{Source: source, RawLine: strings.Join(cells, " | "), HeroName: name, Affiliation: aff}, true
}

// inferColumns finds the hero name and affiliation columns of a header row.
func inferColumns(headers []string) (nameIdx, affIdx int) {
	affIdx = findHeaderIndex(headers, affiliationProbes, -1)
	nameIdx = findHeaderIndex(headers, nameProbes, affIdx)
	return
}

func findHeaderIndex(headers []string, probes []string, skip int) int {
	for i, h := range headers {
		if i == skip {
			continue
		}
		for _, probe := range probes {
			if strings.Contains(h, probe) {
				return i
			}
		}
	}
	return -1
}

func pickCell(cells []string, idx int) string {
	if idx >= 0 && idx < len(cells) {
		return strings.TrimSpace(cells[idx])
	}
	return ""
}

// tag overrides the source when one is given and merges meta into each row.
func tag(rows []Row, source Source, meta map[string]any) []Row {
	for i := range rows {
		if source != "" {
			rows[i].Source = source
		}
		if len(meta) == 0 {
			continue
		}
		if rows[i].Meta == nil {
			rows[i].Meta = map[string]any{}
		}
		for k, v := range meta {
			rows[i].Meta[k] = v
		}
	}
	return rows
}

func dedupeRows(rows []Row) []Row {
	seen := map[string]struct{}{}
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		key := strings.ToLower(r.HeroName) + "|" + r.Affiliation
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

func number(rows []Row) []Row {
	for i := range rows {
		rows[i].LineNo = i + 1
	}
	return rows
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	parts := strings.Split(text, "\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isLikelyNoise(line string) bool {
	for _, re := range ignorePatterns {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

func normalizeSpaces(input string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(input, " "))
}

func normalizeCells(row []string) []string {
	out := make([]string, 0, len(row))
	for _, c := range row {
		out = append(out, normalizeSpaces(c))
	}
	return out
}

func lower(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.ToLower(c)
	}
	return out
}
