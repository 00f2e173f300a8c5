package extract

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/cfb-rookie-crawler/internal/scraper"
)

var labelMarkers = strings.NewReplacer("*", "", "+", "")

// Extract finds the section's table (live first, then comments) and parses
// it. The boolean is false when the table is absent.
func Extract(doc *Document, section scraper.Section) (scraper.SectionTable, bool) {
	table, ok := doc.FindTable(section.ID)
	if !ok {
		return scraper.SectionTable{}, false
	}
	return ParseTable(table, section), true
}

// ParseTable converts a season-indexed table into prefixed, season-keyed
// rows. Repeated header banners are skipped and rows whose cell count does
// not match the header are dropped.
func ParseTable(table *goquery.Selection, section scraper.Section) scraper.SectionTable {
	out := scraper.SectionTable{
		Section: section.ID,
		Prefix:  section.Prefix,
		Rows:    make(map[string]map[string]string),
	}
	headers := headerCells(table)
	if len(headers) < 2 {
		return out
	}
	// headers[0] labels the season column itself.
	for _, h := range columnNames(headers[1:]) {
		out.Columns = append(out.Columns, section.Prefix+h)
	}

	bodyRows(table).Each(func(_ int, row *goquery.Selection) {
		if hasClass(row, "thead") {
			return
		}
		label := row.ChildrenFiltered("th").First()
		if label.Length() == 0 {
			return
		}
		season := SeasonLabel(label.Text())
		if season == "" {
			return
		}
		cells := row.ChildrenFiltered("td")
		if cells.Length() != len(out.Columns) {
			return
		}
		values := make(map[string]string, len(out.Columns))
		cells.Each(func(i int, td *goquery.Selection) {
			values[out.Columns[i]] = cleanText(td.Text())
		})
		if _, seen := out.Rows[season]; !seen {
			out.Seasons = append(out.Seasons, season)
		}
		out.Rows[season] = values
	})
	return out
}

// SeasonLabel trims a row header and removes footnote markers.
func SeasonLabel(raw string) string {
	return strings.TrimSpace(labelMarkers.Replace(cleanText(raw)))
}

type headerCell struct {
	text     string
	dataStat string
}

func headerCells(table *goquery.Selection) []headerCell {
	var row *goquery.Selection
	table.Find("thead tr").Each(func(_ int, tr *goquery.Selection) {
		if hasClass(tr, "over_header") {
			return
		}
		row = tr
	})
	if row == nil {
		table.Find("tr").EachWithBreak(func(_ int, tr *goquery.Selection) bool {
			if tr.ChildrenFiltered("td").Length() == 0 && tr.ChildrenFiltered("th").Length() > 0 {
				row = tr
				return false
			}
			return true
		})
	}
	if row == nil {
		return nil
	}
	var out []headerCell
	row.ChildrenFiltered("th,td").Each(func(_ int, th *goquery.Selection) {
		out = append(out, headerCell{
			text:     cleanText(th.Text()),
			dataStat: th.AttrOr("data-stat", ""),
		})
	})
	return out
}

// columnNames resolves blank and repeated headers into unique names.
func columnNames(cells []headerCell) []string {
	names := make([]string, len(cells))
	seen := make(map[string]int, len(cells))
	for i, c := range cells {
		name := c.text
		if name == "" {
			name = c.dataStat
		}
		if name == "" {
			name = "col_" + strconv.Itoa(i+1)
		}
		seen[name]++
		if n := seen[name]; n > 1 {
			name += "_" + strconv.Itoa(n)
		}
		names[i] = name
	}
	return names
}

func bodyRows(table *goquery.Selection) *goquery.Selection {
	if rows := table.Find("tbody tr"); rows.Length() > 0 {
		return rows
	}
	return table.Find("tr").FilterFunction(func(_ int, tr *goquery.Selection) bool {
		return tr.ChildrenFiltered("td").Length() > 0
	})
}

func hasClass(sel *goquery.Selection, class string) bool {
	for _, c := range strings.Fields(sel.AttrOr("class", "")) {
		if c == class {
			return true
		}
	}
	return false
}

// cleanText collapses whitespace runs, including non-breaking spaces.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
