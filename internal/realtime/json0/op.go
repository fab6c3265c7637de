// Package json0 decodes json0 operation components into addressable paths.
// Only location and kind are interpreted here; applying and transforming ops
// belongs to the OT engine.
package json0

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	json "github.com/goccy/go-json"

	"github.com/gogotex/gogotex/backend/go-realtime/internal/realtime/objpath"
)

// Kind classifies an op component by what it does at its path.
type Kind string

const (
	KindSet          Kind = "set"
	KindUnset        Kind = "unset"
	KindListInsert   Kind = "list-insert"
	KindListDelete   Kind = "list-delete"
	KindListReplace  Kind = "list-replace"
	KindListMove     Kind = "list-move"
	KindNumberAdd    Kind = "number-add"
	KindStringInsert Kind = "string-insert"
	KindStringDelete Kind = "string-delete"
	KindSubtype      Kind = "subtype"
	KindNoop         Kind = "noop"
)

var ErrInvalidOp = errors.New("invalid json0 op")

// Op is a single json0 component. Presence of a field matters more than its
// value, so values are kept raw.
type Op struct {
	P  []any           `json:"p"`
	OI json.RawMessage `json:"oi,omitempty"`
	OD json.RawMessage `json:"od,omitempty"`
	LI json.RawMessage `json:"li,omitempty"`
	LD json.RawMessage `json:"ld,omitempty"`
	LM *int            `json:"lm,omitempty"`
	NA json.RawMessage `json:"na,omitempty"`
	SI *string         `json:"si,omitempty"`
	SD *string         `json:"sd,omitempty"`
	T  string          `json:"t,omitempty"`
	O  json.RawMessage `json:"o,omitempty"`
}

// Kind reports the mutation kind. An op carrying both od and oi replaces a
// value and is reported as a set.
func (op Op) Kind() Kind {
	switch {
	case op.LI != nil && op.LD != nil:
		return KindListReplace
	case op.LI != nil:
		return KindListInsert
	case op.LD != nil:
		return KindListDelete
	case op.LM != nil:
		return KindListMove
	case op.OI != nil:
		return KindSet
	case op.OD != nil:
		return KindUnset
	case op.NA != nil:
		return KindNumberAdd
	case op.SI != nil:
		return KindStringInsert
	case op.SD != nil:
		return KindStringDelete
	case op.T != "":
		return KindSubtype
	}
	return KindNoop
}

// Path converts p into a concrete path. JSON numbers must be non-negative
// integers. The document root is not addressable.
func (op Op) Path() (objpath.Path, error) {
	if len(op.P) == 0 {
		return nil, fmt.Errorf("%w: empty path addresses the document root", ErrInvalidOp)
	}
	out := make(objpath.Path, len(op.P))
	for i, e := range op.P {
		switch v := e.(type) {
		case string:
			out[i] = v
		case int:
			if v < 0 {
				return nil, fmt.Errorf("%w: path element %d is not an index: %v", ErrInvalidOp, i, v)
			}
			out[i] = v
		case int64:
			if v < 0 || v > math.MaxInt {
				return nil, fmt.Errorf("%w: path element %d is not an index: %v", ErrInvalidOp, i, v)
			}
			out[i] = int(v)
		case uint64:
			if v > math.MaxInt {
				return nil, fmt.Errorf("%w: path element %d is not an index: %v", ErrInvalidOp, i, v)
			}
			out[i] = int(v)
		case float64:
			if v < 0 || v >= math.MaxInt || v != math.Trunc(v) {
				return nil, fmt.Errorf("%w: path element %d is not an index: %v", ErrInvalidOp, i, v)
			}
			out[i] = int(v)
		case json.Number:
			n, err := v.Int64()
			if err != nil || n < 0 || n > math.MaxInt {
				return nil, fmt.Errorf("%w: path element %d is not an index: %v", ErrInvalidOp, i, v)
			}
			out[i] = int(n)
		default:
			return nil, fmt.Errorf("%w: path element %d has type %T", ErrInvalidOp, i, e)
		}
	}
	return out, nil
}

// Decode parses a single component or an array of components.
func Decode(raw []byte) ([]Op, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, fmt.Errorf("%w: empty op", ErrInvalidOp)
	}
	var ops []Op
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &ops); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidOp, err)
		}
	} else {
		var op Op
		if err := json.Unmarshal(raw, &op); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidOp, err)
		}
		ops = []Op{op}
	}
	for i, op := range ops {
		if op.P == nil {
			return nil, fmt.Errorf("%w: component %d has no path", ErrInvalidOp, i)
		}
		if _, err := op.Path(); err != nil {
			return nil, fmt.Errorf("component %d: %w", i, err)
		}
	}
	return ops, nil
}

// Paths decodes the path of every component in the batch.
func Paths(ops []Op) ([]objpath.Path, error) {
	out := make([]objpath.Path, len(ops))
	for i, op := range ops {
		p, err := op.Path()
		if err != nil {
			return nil, fmt.Errorf("component %d: %w", i, err)
		}
		out[i] = p
	}
	return out, nil
}
