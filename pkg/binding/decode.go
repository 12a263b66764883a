package binding

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/asyncsoap/pkg/domain"
)

const namespaceXSI = "http://www.w3.org/2001/XMLSchema-instance"

// node is a parsed XML element.
type node struct {
	name     xml.Name
	attrs    []xml.Attr
	text     strings.Builder
	children []*node
}

func parseTree(data []byte) (*node, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var root *node
	var stack []*node
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &node{name: t.Name, attrs: t.Copy().Attr}
			switch {
			case len(stack) > 0:
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, n)
			case root == nil:
				root = n
			default:
				return nil, errors.New("multiple root elements")
			}
			stack = append(stack, n)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}
		}
	}
	if root == nil {
		return nil, errNotAnEnvelope
	}
	return root, nil
}

func (n *node) child(local string) *node {
	for _, c := range n.children {
		if c.name.Local == local {
			return c
		}
	}
	return nil
}

func (n *node) childText(local string) string {
	if c := n.child(local); c != nil {
		return strings.TrimSpace(c.text.String())
	}
	return ""
}

func (n *node) isNil() bool {
	for _, a := range n.attrs {
		if a.Name.Space == namespaceXSI && a.Name.Local == "nil" {
			return a.Value == "true" || a.Value == "1"
		}
	}
	return false
}

// value converts the element into a generic tree: leaves become strings,
// elements become maps keyed by local name, repeated names become slices.
func (n *node) value() any {
	if n.isNil() {
		return nil
	}
	if len(n.children) == 0 {
		s := n.text.String()
		if strings.TrimSpace(s) == "" {
			return ""
		}
		return s
	}
	m := make(map[string]any, len(n.children))
	for _, c := range n.children {
		v := c.value()
		prev, ok := m[c.name.Local]
		if !ok {
			m[c.name.Local] = v
			continue
		}
		// Element values are never slices, so a slice here is one we built.
		if list, isList := prev.([]any); isList {
			m[c.name.Local] = append(list, v)
			continue
		}
		m[c.name.Local] = []any{prev, v}
	}
	return m
}

type envelope struct {
	value   any
	headers map[string]any
	fault   *domain.Fault
}

func isEnvelopeNamespace(ns string) bool {
	return ns == NamespaceEnvelope11 || ns == NamespaceEnvelope12
}

func decodeEnvelope(data []byte) (*envelope, error) {
	root, err := parseTree(data)
	if err != nil {
		if errors.Is(err, errNotAnEnvelope) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", errNotAnEnvelope, err)
	}
	if root.name.Local != "Envelope" || !isEnvelopeNamespace(root.name.Space) {
		return nil, fmt.Errorf("%w: root element is <%s>", errNotAnEnvelope, root.name.Local)
	}

	env := &envelope{}
	if header := root.child("Header"); header != nil && len(header.children) > 0 {
		env.headers = make(map[string]any, len(header.children))
		for _, h := range header.children {
			env.headers[h.name.Local] = h.value()
		}
	}

	body := root.child("Body")
	if body == nil {
		return nil, errNoBodyElement
	}
	if len(body.children) == 0 {
		return env, nil
	}

	first := body.children[0]
	if first.name.Local == "Fault" && isEnvelopeNamespace(first.name.Space) {
		env.fault = decodeFault(first, root.name.Space)
		return env, nil
	}
	env.value = first.value()
	return env, nil
}

func decodeFault(f *node, envNS string) *domain.Fault {
	if envNS == NamespaceEnvelope12 {
		fault := &domain.Fault{
			Actor: f.childText("Role"),
		}
		if code := f.child("Code"); code != nil {
			fault.Code = code.childText("Value")
		}
		if reason := f.child("Reason"); reason != nil {
			fault.String = reason.childText("Text")
		}
		if detail := f.child("Detail"); detail != nil {
			fault.Detail = detail.value()
		}
		return fault
	}

	fault := &domain.Fault{
		Code:   f.childText("faultcode"),
		String: f.childText("faultstring"),
		Actor:  f.childText("faultactor"),
	}
	if detail := f.child("detail"); detail != nil {
		fault.Detail = detail.value()
	}
	return fault
}
