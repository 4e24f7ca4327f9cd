package crawler

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DocumentScanner builds a DOM with goquery and visits every element.
// Parsing runs with scripting disabled so <noscript> content is markup.
type DocumentScanner struct{}

// Scan implements TagScanner.
func (DocumentScanner) Scan(markup string, visit TagVisitor) error {
	root, err := html.ParseWithOptions(strings.NewReader(markup), html.ParseOptionEnableScripting(false))
	if err != nil {
		return fmt.Errorf("parse html: %w", err)
	}

	goquery.NewDocumentFromNode(root).Find("*").Each(func(_ int, sel *goquery.Selection) {
		node := sel.Get(0)
		visit(node.Data, attrMap(node.Attr))
	})
	return nil
}

// TokenScanner streams start tags with the x/net/html tokenizer without
// building a tree. <noscript> content is tokenized as markup.
type TokenScanner struct{}

// Scan implements TagScanner.
func (TokenScanner) Scan(markup string, visit TagVisitor) error {
	z := html.NewTokenizer(strings.NewReader(markup))
	for {
		switch z.Next() {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return nil
			}
			return fmt.Errorf("tokenize html: %w", z.Err())
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if tok.DataAtom == atom.Noscript {
				z.NextIsNotRawText()
			}
			visit(tok.Data, attrMap(tok.Attr))
		}
	}
}

// attrMap flattens attributes; a repeated key keeps its last value.
func attrMap(attrs []html.Attribute) map[string]string {
	out := make(map[string]string, len(attrs))
	for _, a := range attrs {
		out[a.Key] = a.Val
	}
	return out
}

// NewScanner returns the scanner for a parser name ("dom" or "stream").
func NewScanner(parser string) (TagScanner, error) {
	switch strings.ToLower(strings.TrimSpace(parser)) {
	case "", "dom":
		return DocumentScanner{}, nil
	case "stream":
		return TokenScanner{}, nil
	default:
		return nil, fmt.Errorf("unsupported parser %q", parser)
	}
}
