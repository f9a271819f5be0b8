package distill

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"
	"golang.org/x/net/html"
)

// LoadCorpus reads a corpus file and returns its plain text. Markdown and
// HTML inputs are flattened to text so chunk boundaries fall on prose rather
// than markup; anything else is returned verbatim.
func LoadCorpus(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("LoadCorpus: path is empty")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("LoadCorpus: read file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return flattenMarkdown(b)
	case ".html", ".htm":
		return flattenHTML(b)
	default:
		return string(b), nil
	}
}

// flattenMarkdown walks the goldmark AST and collects text segments,
// inserting blank lines between block elements.
func flattenMarkdown(src []byte) (string, error) {
	doc := goldmark.New().Parser().Parse(gmtext.NewReader(src))

	var b strings.Builder
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			if t, ok := n.(*ast.Text); ok {
				b.Write(t.Segment.Value(src))
				if t.SoftLineBreak() || t.HardLineBreak() {
					b.WriteByte('\n')
				}
			}
			return ast.WalkContinue, nil
		}
		switch n.(type) {
		case *ast.Paragraph, *ast.Heading, *ast.ListItem, *ast.Blockquote:
			b.WriteString("\n\n")
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			b.WriteString("\n\n")
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", fmt.Errorf("flatten markdown: %w", err)
	}
	return strings.TrimSpace(b.String()), nil
}

// flattenHTML extracts visible text, skipping script and style subtrees.
func flattenHTML(src []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(src))
	if err != nil {
		return "", fmt.Errorf("flatten html: %w", err)
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			}
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				b.WriteString(t)
				b.WriteByte(' ')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "p", "div", "br", "li", "h1", "h2", "h3", "h4", "h5", "h6",
				"tr", "blockquote", "pre", "section", "article":
				b.WriteString("\n")
			}
		}
	}
	walk(doc)
	return strings.TrimSpace(b.String()), nil
}

var userLineRe = regexp.MustCompile(`(?m)^(?:\*\*You:\*\*|You:)\s*(.+)$`)

// UserMessages pulls the user-authored lines out of a corpus written in the
// "**You:** message" convention that WriteUserCorpus emits.
func UserMessages(text string) []string {
	matches := userLineRe.FindAllStringSubmatch(text, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if msg := strings.TrimSpace(m[1]); msg != "" {
			out = append(out, msg)
		}
	}
	return out
}
