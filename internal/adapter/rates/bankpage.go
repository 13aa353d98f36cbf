package rates

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/timedeposit-backend/internal/domain"
	"golang.org/x/net/html"
)

// BankPageURL is the public rate board of Bank of Taiwan
const BankPageURL = "https://rate.bot.com.tw/xrt?Lang=en-US"

// DefaultCurrencies are the rows read from the rate board when none are configured
var DefaultCurrencies = []string{"USD", "AUD", "NZD", "CNY"}

var codeInParens = regexp.MustCompile(`\(([A-Z]{3})\)`)

// BankPageScraper reads the "Spot Buying" column of a bank's HTML rate board
type BankPageScraper struct {
	url        string
	currencies map[string]bool
	httpClient *http.Client
}

// NewBankPageScraper creates a new scraper for the given currencies
func NewBankPageScraper(url string, currencies []string, timeout time.Duration) *BankPageScraper {
	if len(currencies) == 0 {
		currencies = DefaultCurrencies
	}
	wanted := make(map[string]bool, len(currencies))
	for _, c := range currencies {
		wanted[strings.ToUpper(c)] = true
	}
	return &BankPageScraper{
		url:        url,
		currencies: wanted,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// FetchRates implements domain.RateProvider
func (s *BankPageScraper) FetchRates(ctx context.Context) (domain.RateSnapshot, error) {
	body, err := get(ctx, s.httpClient, s.url, "text/html")
	if err != nil {
		return domain.RateSnapshot{}, err
	}
	return ParseBankPage(body, s.currencies)
}

// ParseBankPage extracts the time label and the spot buying rate of each wanted currency
// Logic:
//   - The label is the text of the first element with class "time"
//   - Each table body row names its currency in a ".currency .print_show" cell, e.g. "American Dollar (USD)"
//   - The rate is the first cell with data-table="Spot Buying"; rows quoting "-" are skipped
func ParseBankPage(body []byte, wanted map[string]bool) (domain.RateSnapshot, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return domain.RateSnapshot{}, fmt.Errorf("%w: parse page: %v", domain.ErrRateFetchFailure, err)
	}

	snap := domain.RateSnapshot{Rates: make(map[string]decimal.Decimal)}

	if label := find(doc, func(n *html.Node) bool { return hasClass(n, "time") }); label != nil {
		snap.Time = strings.TrimSpace(text(label))
	}

	for _, tbody := range findAll(doc, func(n *html.Node) bool { return isElement(n, "tbody") }) {
		for _, row := range findAll(tbody, func(n *html.Node) bool { return isElement(n, "tr") }) {
			code, rate, ok := parseRow(row)
			if !ok || !wanted[code] {
				continue
			}
			snap.Rates[code] = rate
		}
	}

	if snap.IsEmpty() {
		return domain.RateSnapshot{}, fmt.Errorf("%w: no wanted currency found on page", domain.ErrRateFetchFailure)
	}

	return snap, nil
}

func parseRow(row *html.Node) (string, decimal.Decimal, bool) {
	cell := find(row, func(n *html.Node) bool { return isElement(n, "td") && hasClass(n, "currency") })
	if cell == nil {
		return "", decimal.Zero, false
	}
	name := find(cell, func(n *html.Node) bool { return hasClass(n, "print_show") })
	if name == nil {
		return "", decimal.Zero, false
	}
	m := codeInParens.FindStringSubmatch(text(name))
	if m == nil {
		return "", decimal.Zero, false
	}

	spot := find(row, func(n *html.Node) bool { return isElement(n, "td") && attr(n, "data-table") == "Spot Buying" })
	if spot == nil {
		return "", decimal.Zero, false
	}
	rate, err := decimal.NewFromString(strings.TrimSpace(text(spot)))
	if err != nil || !rate.IsPositive() {
		return "", decimal.Zero, false
	}

	return m[1], rate, true
}

func isElement(n *html.Node, tag string) bool {
	return n.Type == html.ElementNode && n.Data == tag
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func text(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// find returns the first descendant of n (depth first, n excluded) matching pred
func find(n *html.Node, pred func(*html.Node) bool) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if pred(c) {
			return c
		}
		if found := find(c, pred); found != nil {
			return found
		}
	}
	return nil
}

// findAll returns every descendant of n matching pred, without descending into matches
func findAll(n *html.Node, pred func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if pred(c) {
			out = append(out, c)
			continue
		}
		out = append(out, findAll(c, pred)...)
	}
	return out
}
