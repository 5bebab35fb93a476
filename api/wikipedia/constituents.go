package wikipedia

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	c "ndx.service/api"
	m "ndx.service/data/models"
)

const (
	PageUrlDefault = "https://en.wikipedia.org/wiki/Nasdaq-100"
	TimeoutDefault = time.Second * 30
)

var (
	footnotes  = regexp.MustCompile(`\[[^\]]*\]`)
	whitespace = regexp.MustCompile(`\s+`)

	tickerHeaders      = []string{"ticker", "symbol"}
	sectorHeaders      = []string{"gics sector"}
	companyHeaders     = []string{"company", "security"}
	subIndustryHeaders = []string{"gics sub-industry", "gics subindustry"}
)

type Client struct {
	connection c.Connection
	page       *url.URL
}

func GetClient(pageUrl string, timeout time.Duration) (*Client, error) {
	page, err := url.Parse(pageUrl)
	if err != nil {
		return nil, fmt.Errorf("error parsing reference page url %q: %w", pageUrl, err)
	}

	host, err := c.NewClientHost(pageUrl, timeout, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating reference client: %w", err)
	}

	return &Client{connection: host, page: page}, nil
}

// Constituents downloads the index membership page and parses its constituents table
func (wc *Client) Constituents(ctx context.Context) ([]m.Constituent, error) {
	resp, err := wc.connection.Request(ctx, &url.URL{Path: wc.page.Path, RawQuery: wc.page.RawQuery})
	if err != nil {
		return nil, &c.DataUnavailableError{Reason: "reference page request failed", Err: err}
	}
	defer resp.Body.Close()

	return ParseConstituents(resp.Body)
}

type columns struct {
	ticker, sector, company, subIndustry int
}

// ParseConstituents picks the first table whose header row names both a ticker
// (or symbol) column and a GICS sector column
func ParseConstituents(r io.Reader) ([]m.Constituent, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, &c.DataUnavailableError{Reason: "reference page is not valid html", Err: err}
	}

	var res []m.Constituent
	found := false
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		cols, ok := headerColumns(table)
		if !ok {
			return true
		}

		found = true
		res = parseRows(table, cols)
		return false
	})

	if !found {
		return nil, &c.DataUnavailableError{Reason: "no table with ticker and GICS sector columns on reference page"}
	}
	if len(res) == 0 {
		return nil, &c.DataUnavailableError{Reason: "constituents table has no rows"}
	}

	return res, nil
}

func headerColumns(table *goquery.Selection) (columns, bool) {
	cols := columns{ticker: -1, sector: -1, company: -1, subIndustry: -1}

	header := table.Find("tr").First()
	header.Find("th").Each(func(i int, th *goquery.Selection) {
		name := strings.ToLower(cleanText(th.Text()))
		switch {
		case cols.ticker < 0 && matches(name, tickerHeaders):
			cols.ticker = i
		case cols.sector < 0 && matches(name, sectorHeaders):
			cols.sector = i
		case cols.subIndustry < 0 && matches(name, subIndustryHeaders):
			cols.subIndustry = i
		case cols.company < 0 && matches(name, companyHeaders):
			cols.company = i
		}
	})

	return cols, cols.ticker >= 0 && cols.sector >= 0
}

func parseRows(table *goquery.Selection, cols columns) []m.Constituent {
	seen := make(map[string]bool)
	var res []m.Constituent

	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		if i == 0 || row.Find("td").Length() == 0 {
			return
		}

		var cells []string
		row.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, cleanText(cell.Text()))
		})

		ticker := strings.ToUpper(cell(cells, cols.ticker))
		if ticker == "" || seen[ticker] {
			return
		}
		seen[ticker] = true

		res = append(res, m.Constituent{
			Ticker:      ticker,
			Company:     cell(cells, cols.company),
			Sector:      cell(cells, cols.sector),
			SubIndustry: cell(cells, cols.subIndustry),
		})
	})

	return res
}

func matches(name string, candidates []string) bool {
	for _, candidate := range candidates {
		if name == candidate {
			return true
		}
	}
	return false
}

func cell(cells []string, i int) string {
	if i < 0 || i >= len(cells) {
		return ""
	}
	return cells[i]
}

// cleanText drops footnote markers like [1] or [a] and collapses whitespace
func cleanText(s string) string {
	s = footnotes.ReplaceAllString(s, "")
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}
