package markup

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Parse tokenizes src into a document node. Parsing never reorders or
// rewrites the input: Parse(src).String() == src.
func Parse(src string) (*Node, error) {
	doc := &Node{Type: DocumentNode, Line: 1, Column: 1}
	if err := parseInto(doc, src); err != nil {
		return nil, err
	}
	return doc, nil
}

// ParseFragment parses src and returns its top-level nodes, detached from
// any document.
func ParseFragment(src string) ([]*Node, error) {
	doc, err := Parse(src)
	if err != nil {
		return nil, err
	}
	nodes := doc.Children
	for _, n := range nodes {
		n.Parent = nil
	}
	doc.Children = nil
	return nodes, nil
}

// Roots returns the significant top-level nodes of a fragment: elements,
// doctypes and non-blank text. Comments and whitespace are ignored.
func Roots(nodes []*Node) []*Node {
	var roots []*Node
	for _, n := range nodes {
		switch n.Type {
		case CommentNode:
			continue
		case TextNode:
			if strings.TrimSpace(n.Data) == "" {
				continue
			}
		}
		roots = append(roots, n)
	}
	return roots
}

type cursor struct {
	line   int
	column int
}

func (c *cursor) advance(raw string) {
	if i := strings.LastIndexByte(raw, '\n'); i >= 0 {
		c.line += strings.Count(raw, "\n")
		c.column = utf8.RuneCountInString(raw[i+1:]) + 1
		return
	}
	c.column += utf8.RuneCountInString(raw)
}

func parseInto(doc *Node, src string) error {
	z := html.NewTokenizer(strings.NewReader(src))
	stack := []*Node{doc}
	pos := cursor{line: 1, column: 1}
	offset := 0

	for {
		tt := z.Next()
		// Raw must be copied before TagName, TagAttr or Text are called:
		// they lower-case and unescape the tokenizer's buffer in place.
		raw := string(z.Raw())
		line, column, start := pos.line, pos.column, offset
		pos.advance(raw)
		offset += len(raw)
		top := stack[len(stack)-1]

		switch tt {
		case html.ErrorToken:
			if z.Err() != io.EOF {
				return fmt.Errorf("tokenize at %d,%d: %w", line, column, z.Err())
			}
			if raw != "" {
				// An unterminated tag at the very end of the input.
				top.AppendChild(&Node{Type: TextNode, Data: raw, Line: line, Column: column, Offset: start})
			}
			return nil

		case html.TextToken:
			top.AppendChild(&Node{Type: TextNode, Data: raw, Line: line, Column: column, Offset: start})

		case html.CommentToken:
			top.AppendChild(&Node{Type: CommentNode, Data: raw, Line: line, Column: column, Offset: start})

		case html.DoctypeToken:
			top.AppendChild(&Node{Type: DoctypeNode, Data: raw, Line: line, Column: column, Offset: start})

		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			n := &Node{
				Type:     ElementNode,
				Data:     string(name),
				Line:     line,
				Column:   column,
				Offset:   start,
				startTag: raw,
			}
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = z.TagAttr()
				n.Attr = append(n.Attr, Attribute{Key: string(key), Val: string(val)})
			}
			if raws := rawAttrValues(raw); len(raws) == len(n.Attr) {
				for i := range n.Attr {
					n.Attr[i].Raw = raws[i]
				}
			} else {
				for i := range n.Attr {
					n.Attr[i].Raw = html.EscapeString(n.Attr[i].Val)
				}
			}
			top.AppendChild(n)

			if tt == html.SelfClosingTagToken || isVoid(n.Data) {
				n.void = true
				continue
			}
			stack = append(stack, n)

		case html.EndTagToken:
			name, _ := z.TagName()
			closed := false
			for i := len(stack) - 1; i > 0; i-- {
				if stack[i].Data == string(name) {
					stack[i].endTag = raw
					stack = stack[:i]
					closed = true
					break
				}
			}
			if !closed {
				// Stray end tags are kept verbatim.
				top.AppendChild(&Node{Type: TextNode, Data: raw, Line: line, Column: column, Offset: start})
			}
		}
	}
}

// rawAttrValues cuts the attribute values out of a start tag as written,
// entities and all, in the order the tokenizer reports the attributes.
// It follows the tokenizer's attribute states so the two stay aligned.
func rawAttrValues(tag string) []string {
	var vals []string
	i := 1
	for i < len(tag) && !isSpace(tag[i]) && tag[i] != '/' && tag[i] != '>' {
		i++
	}
	for {
		i = skipSpace(tag, i)
		if i >= len(tag) || tag[i] == '>' {
			return vals
		}

		start := i
		for i < len(tag) {
			c := tag[i]
			if c == '=' && i == start {
				i++
				continue
			}
			if c == '=' || c == '/' || c == '>' || isSpace(c) {
				break
			}
			i++
		}
		hasKey := i > start

		val := ""
		j := skipSpace(tag, i)
		switch {
		case j >= len(tag):
			i = j
		case tag[j] == '/':
			i = j + 1
		case tag[j] != '=':
			i = j
		default:
			j = skipSpace(tag, j+1)
			switch {
			case j >= len(tag) || tag[j] == '>':
				i = j
			case tag[j] == '"' || tag[j] == '\'':
				end := strings.IndexByte(tag[j+1:], tag[j])
				if end < 0 {
					val, i = tag[j+1:], len(tag)
				} else {
					val, i = tag[j+1:j+1+end], j+2+end
				}
			default:
				k := j
				for k < len(tag) && tag[k] != '>' && !isSpace(tag[k]) {
					k++
				}
				val, i = tag[j:k], k
			}
		}
		if hasKey {
			vals = append(vals, val)
		}
		if i == start {
			i++
		}
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\r' || c == '\t' || c == '\f'
}

func skipSpace(s string, i int) int {
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	return i
}

func isVoid(name string) bool {
	switch atom.Lookup([]byte(name)) {
	case atom.Area, atom.Base, atom.Br, atom.Col, atom.Embed, atom.Hr, atom.Img,
		atom.Input, atom.Keygen, atom.Link, atom.Meta, atom.Param, atom.Source,
		atom.Track, atom.Wbr:
		return true
	}
	return false
}
