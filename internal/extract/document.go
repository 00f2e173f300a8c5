// Package extract locates stats tables in profile pages and parses them into
// season-keyed rows. Tables may live in the visible markup or inside HTML
// comments; both are exposed through the same lookup so parsing is written
// once.
package extract

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Document is a parsed page plus the sub-documents embedded in its comments.
type Document struct {
	live *goquery.Document

	commentsOnce sync.Once
	comments     []*goquery.Document
}

// Parse builds a Document from raw HTML.
func Parse(body []byte) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Document{live: doc}, nil
}

// Sources returns the live document followed by every comment sub-document
// that carries table markup.
func (d *Document) Sources() []*goquery.Selection {
	d.commentsOnce.Do(d.parseComments)
	out := make([]*goquery.Selection, 0, len(d.comments)+1)
	out = append(out, d.live.Selection)
	for _, c := range d.comments {
		out = append(out, c.Selection)
	}
	return out
}

// FindTable returns the first table with the given id, searching the live
// markup before the comments.
func (d *Document) FindTable(id string) (*goquery.Selection, bool) {
	selector := fmt.Sprintf(`table[id=%q]`, id)
	for _, src := range d.Sources() {
		if t := src.Find(selector).First(); t.Length() > 0 {
			return t, true
		}
	}
	return nil, false
}

// FirstTable returns the first table accepted by match, in source order.
func (d *Document) FirstTable(match func(*goquery.Selection) bool) (*goquery.Selection, bool) {
	for _, src := range d.Sources() {
		var found *goquery.Selection
		src.Find("table").EachWithBreak(func(_ int, t *goquery.Selection) bool {
			if match == nil || match(t) {
				found = t
				return false
			}
			return true
		})
		if found != nil {
			return found, true
		}
	}
	return nil, false
}

func (d *Document) parseComments() {
	for _, n := range d.live.Nodes {
		walkComments(n, func(data string) {
			if !strings.Contains(strings.ToLower(data), "<table") {
				return
			}
			sub, err := goquery.NewDocumentFromReader(strings.NewReader(data))
			if err != nil {
				return
			}
			d.comments = append(d.comments, sub)
		})
	}
}

func walkComments(n *html.Node, visit func(string)) {
	if n == nil {
		return
	}
	if n.Type == html.CommentNode {
		visit(n.Data)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkComments(c, visit)
	}
}
