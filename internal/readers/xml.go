package readers

import (
	"context"
	"encoding/xml"
	"errors"
	"io"
	"strings"
)

const CodeXML = "xml"

// XMLReader decodes a document into nested maps keyed by element name.
// Attributes are stored as "@name", text next to child elements as "#text",
// and repeated child elements become lists. The root element is kept, so
// records of <feed><entry/>...</feed> live under the "feed/entry" path.
type XMLReader struct {
	fetcher Fetcher
}

func NewXMLReader(fetcher Fetcher) *XMLReader {
	return &XMLReader{fetcher: fetcher}
}

func (r *XMLReader) Code() string     { return CodeXML }
func (r *XMLReader) DataInRoot() bool { return false }

func (r *XMLReader) Read(ctx context.Context, link string, opts ReadOptions) (ImportedData, error) {
	res, err := r.fetcher.Fetch(ctx, link)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	doc, err := DecodeXML(res.Body)
	if err != nil {
		return nil, newReaderError(link, "invalid XML data", err)
	}
	return NewMemoryData(doc, r.DataInRoot()), nil
}

type xmlFrame struct {
	name string
	node map[string]any
	text strings.Builder
}

func (f *xmlFrame) value() any {
	text := strings.TrimSpace(f.text.String())
	if len(f.node) == 0 {
		return text
	}
	if text != "" {
		f.node["#text"] = text
	}
	return f.node
}

// DecodeXML converts an XML document into generic maps.
func DecodeXML(r io.Reader) (map[string]any, error) {
	decoder := xml.NewDecoder(r)
	var stack []*xmlFrame
	var root map[string]any

	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := token.(type) {
		case xml.StartElement:
			frame := &xmlFrame{name: t.Name.Local, node: map[string]any{}}
			for _, attr := range t.Attr {
				if attr.Name.Space == "xmlns" || attr.Name.Local == "xmlns" {
					continue
				}
				frame.node["@"+attr.Name.Local] = attr.Value
			}
			stack = append(stack, frame)
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}
		case xml.EndElement:
			frame := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				root = map[string]any{frame.name: frame.value()}
				continue
			}
			addXMLChild(stack[len(stack)-1].node, frame.name, frame.value())
		}
	}

	if root == nil {
		return nil, errors.New("document has no root element")
	}
	return root, nil
}

func addXMLChild(node map[string]any, name string, value any) {
	existing, ok := node[name]
	if !ok {
		node[name] = value
		return
	}
	if list, ok := existing.([]any); ok {
		node[name] = append(list, value)
		return
	}
	node[name] = []any{existing, value}
}
