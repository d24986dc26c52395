// Package pages implements the page-object layer: one Site per supported
// website, each encapsulating how to turn that site's pages into listing
// URLs and RealEstate items, decoupled from crawl control.
package pages

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/aronkovacs/real-estate-scrapers/parser"
)

// Kind tells the crawler how to treat a fetched page.
type Kind string

// Page kinds. Home pages link to list pages, list pages link to listing
// detail pages, detail pages yield items.
const (
	KindHome   Kind = "home"
	KindList   Kind = "list"
	KindDetail Kind = "detail"
)

// Page is one fetched response handed to a page object. Page objects only
// read from it; issuing further requests stays with the crawler.
type Page struct {
	URL  *url.URL
	Body []byte

	doc *goquery.Document
}

// NewPage parses a fetched response body for page-object consumption.
func NewPage(rawURL string, body []byte) (*Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url %q: %w", rawURL, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse page body for %q: %w", rawURL, err)
	}
	return &Page{URL: u, Body: body, doc: doc}, nil
}

// Doc exposes the parsed document for site-specific selections.
func (p *Page) Doc() *goquery.Document { return p.doc }

// Text returns the normalized text of the first node matching selector,
// or "" when nothing matches.
func (p *Page) Text(selector string) string {
	return parser.NormalizeSpace(p.doc.Find(selector).First().Text())
}

// Texts returns the normalized text of every node matching selector.
func (p *Page) Texts(selector string) []string {
	var out []string
	p.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		out = append(out, parser.NormalizeSpace(s.Text()))
	})
	return out
}

// Attr returns the named attribute of the first node matching selector.
func (p *Page) Attr(selector, attr string) string {
	value, _ := p.doc.Find(selector).First().Attr(attr)
	return value
}

// Attrs returns the named attribute of every node matching selector that
// carries it.
func (p *Page) Attrs(selector, attr string) []string {
	var out []string
	p.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if value, ok := s.Attr(attr); ok {
			out = append(out, value)
		}
	})
	return out
}

// FindByText returns the nodes matching selector whose normalized text
// equals text. Replaces the xpath text()= predicates of the original site
// specifications.
func (p *Page) FindByText(selector, text string) *goquery.Selection {
	return p.doc.Find(selector).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return parser.NormalizeSpace(s.Text()) == text
	})
}

// FindContains returns the nodes matching selector whose text contains substr.
func (p *Page) FindContains(selector, substr string) *goquery.Selection {
	return p.doc.Find(selector).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(s.Text(), substr)
	})
}

// AbsoluteURL resolves href against the page URL.
func (p *Page) AbsoluteURL(href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	return p.URL.ResolveReference(ref).String()
}

// JSON unmarshals the raw body into v, for API-backed sites.
func (p *Page) JSON(v any) error {
	if err := json.Unmarshal(p.Body, v); err != nil {
		return fmt.Errorf("decode json page %s: %w", p.URL, err)
	}
	return nil
}

// OwnText returns the normalized text of sel's direct text nodes, without
// the text of child elements.
func OwnText(sel *goquery.Selection) string {
	var b strings.Builder
	for _, node := range sel.Nodes {
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			if child.Type == html.TextNode {
				b.WriteString(child.Data)
			}
		}
	}
	return parser.NormalizeSpace(b.String())
}
