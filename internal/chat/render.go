package chat

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// renderer walks a goldmark AST to produce Telegram-flavoured HTML,
// grounded on the teacher's parser.MarkdownParser AST-walk idiom in
// internal/parser/markdown.go, generalized from inbound plan parsing to
// outbound message formatting (§4.7 parse_mode: HTML).
type renderer struct {
	md goldmark.Markdown
}

func newRenderer() *renderer {
	return &renderer{md: goldmark.New()}
}

// ToTelegramHTML converts a Markdown-formatted status message into the
// small subset of HTML Telegram's sendMessage accepts
// (b/i/code/pre/a), escaping everything else as plain text.
func (r *renderer) ToTelegramHTML(markdown string) string {
	source := []byte(markdown)
	doc := r.md.Parser().Parse(text.NewReader(source))

	var buf bytes.Buffer
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Text:
			if entering {
				buf.WriteString(escapeHTML(string(node.Segment.Value(source))))
			}
		case *ast.Emphasis:
			tag := "i"
			if node.Level >= 2 {
				tag = "b"
			}
			if entering {
				buf.WriteString("<" + tag + ">")
			} else {
				buf.WriteString("</" + tag + ">")
			}
		case *ast.CodeSpan:
			if entering {
				buf.WriteString("<code>")
			} else {
				buf.WriteString("</code>")
			}
		case *ast.FencedCodeBlock:
			if entering {
				buf.WriteString("<pre>")
				for i := 0; i < node.Lines().Len(); i++ {
					line := node.Lines().At(i)
					buf.WriteString(escapeHTML(string(line.Value(source))))
				}
				buf.WriteString("</pre>")
			}
		case *ast.Paragraph:
			if !entering {
				buf.WriteString("\n")
			}
		case *ast.List:
			// rendered via its ListItem children; nothing to emit here.
		case *ast.ListItem:
			if entering {
				buf.WriteString("• ")
			} else {
				buf.WriteString("\n")
			}
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimRight(buf.String(), "\n")
}

func escapeHTML(s string) string {
	replacer := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return replacer.Replace(s)
}
