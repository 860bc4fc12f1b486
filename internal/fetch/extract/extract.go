// Package extract turns raw HTML into normalized visible text.
//
// The pipeline: raw HTML → parse → drop non-content elements → visible text →
// collapse whitespace → truncate. The same normalization runs for every fetch
// path so content hashes stay comparable across cycles.
package extract

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// nonContentSelector matches elements that carry markup, chrome, or
// navigation rather than page content.
const nonContentSelector = "script, style, nav, footer, header, noscript"

// Result is the output of content extraction.
type Result struct {
	Title string
	Text  string
}

// Content parses raw HTML, strips non-content elements, and returns the page
// title plus normalized visible text.
func Content(rawHTML []byte) (Result, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(rawHTML))
	if err != nil {
		return Result{}, fmt.Errorf("parse html: %w", err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())

	doc.Find(nonContentSelector).Remove()

	body := doc.Find("body")
	var text string
	if body.Length() > 0 {
		text = body.Text()
	} else {
		text = doc.Text()
	}

	return Result{
		Title: title,
		Text:  Normalize(text),
	}, nil
}

var multiSpaceRe = regexp.MustCompile(`\s+`)

// Normalize collapses runs of whitespace to single spaces and trims. Hashes
// are computed over normalized text, so this must stay deterministic.
func Normalize(text string) string {
	return strings.TrimSpace(multiSpaceRe.ReplaceAllString(text, " "))
}

// Truncate caps text at max runes. Content is truncated before hashing to
// bound downstream payload size.
func Truncate(text string, max int) string {
	if max <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}
