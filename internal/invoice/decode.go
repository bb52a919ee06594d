package invoice

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

type nodeKind int

const (
	kindNull nodeKind = iota
	kindString
	kindNumber
	kindBool
	kindArray
	kindObject
)

// node is a JSON value that remembers object key order.
type node struct {
	kind   nodeKind
	str    string
	num    float64
	b      bool
	items  []*node
	keys   []string
	fields map[string]*node
}

func (n *node) get(key string) (*node, bool) {
	if n.kind != kindObject {
		return nil, false
	}
	c, ok := n.fields[key]
	return c, ok
}

// truthy follows the usual dynamic-language rules: empty strings, empty
// collections, zero and null are false.
func (n *node) truthy() bool {
	switch n.kind {
	case kindString:
		return n.str != ""
	case kindNumber:
		return n.num != 0
	case kindBool:
		return n.b
	case kindArray:
		return len(n.items) > 0
	case kindObject:
		return len(n.keys) > 0
	default:
		return false
	}
}

// scalar flattens a node into a cell value.
func (n *node) scalar() Value {
	switch n.kind {
	case kindNumber:
		return Number(n.num)
	case kindString:
		return Text(n.str)
	case kindBool:
		if n.b {
			return Text("True")
		}
		return Text("False")
	case kindArray:
		parts := make([]string, 0, len(n.items))
		for _, it := range n.items {
			parts = append(parts, it.scalar().String())
		}
		return Text("[" + strings.Join(parts, ", ") + "]")
	case kindObject:
		parts := make([]string, 0, len(n.keys))
		for _, k := range n.keys {
			parts = append(parts, k+": "+n.fields[k].scalar().String())
		}
		return Text("{" + strings.Join(parts, ", ") + "}")
	default:
		return Text("")
	}
}

func parseNode(data []byte) (*node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	n, err := readNode(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing data after JSON value")
	}
	return n, nil
}

func readNode(dec *json.Decoder) (*node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			n := &node{kind: kindObject, fields: map[string]*node{}}
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := kt.(string)
				if !ok {
					return nil, fmt.Errorf("unexpected object key %v", kt)
				}
				child, err := readNode(dec)
				if err != nil {
					return nil, err
				}
				if _, dup := n.fields[key]; !dup {
					n.keys = append(n.keys, key)
				}
				n.fields[key] = child
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return n, nil
		case '[':
			n := &node{kind: kindArray}
			for dec.More() {
				child, err := readNode(dec)
				if err != nil {
					return nil, err
				}
				n.items = append(n.items, child)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return n, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %v", t)
	case string:
		return &node{kind: kindString, str: t}, nil
	case json.Number:
		f, err := strconv.ParseFloat(t.String(), 64)
		if err != nil {
			return nil, err
		}
		return &node{kind: kindNumber, num: f}, nil
	case bool:
		return &node{kind: kindBool, b: t}, nil
	case nil:
		return &node{kind: kindNull}, nil
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}
