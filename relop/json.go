/*
Copyright 2026 The Relq Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package relop

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/relq/relq/rqerrors"
	"github.com/relq/relq/schema"
)

// The JSON plan format encodes every operator and expression as an object
// with a single tag key. Scan aliases must be unique within a plan; column
// references are written "alias.column" and resolved against the scans
// decoded so far, which is why operator inputs always precede conditions.

// DecodePlan parses the JSON encoding of an operator tree. Scans are
// resolved against cat and their column ids minted from vg.
func DecodePlan(data []byte, cat *schema.Catalog, vg *VarGen) (Operator, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, rqerrors.Wrap(err, "malformed plan document")
	}
	d := &planDecoder{cat: cat, vg: vg, scans: map[string]*Scan{}}
	return d.decodeOp(raw)
}

type planDecoder struct {
	cat   *schema.Catalog
	vg    *VarGen
	scans map[string]*Scan
}

func (d *planDecoder) node(raw json.RawMessage) (string, json.RawMessage, error) {
	var node map[string]json.RawMessage
	if err := unmarshal(raw, &node); err != nil {
		return "", nil, err
	}
	if len(node) != 1 {
		return "", nil, rqerrors.Errorf(rqerrors.InvalidArgument, "plan node must have exactly one tag, got %d", len(node))
	}
	for tag, body := range node {
		return tag, body, nil
	}
	panic("unreachable")
}

func (d *planDecoder) decodeOp(raw json.RawMessage) (Operator, error) {
	tag, body, err := d.node(raw)
	if err != nil {
		return nil, err
	}
	switch tag {
	case "scan":
		return d.decodeScan(body)
	case "join":
		return d.decodeJoin(body)
	case "cross":
		return d.decodeCross(body)
	case "filter":
		return d.decodeFilter(body)
	case "project":
		return d.decodeProject(body)
	case "nest":
		return d.decodeNest(body)
	case "single_row":
		return &SingleRow{}, nil
	default:
		return nil, rqerrors.Errorf(rqerrors.InvalidArgument, "unknown operator tag %q", tag)
	}
}

func (d *planDecoder) decodeScan(body json.RawMessage) (*Scan, error) {
	var spec struct {
		Table string `json:"table"`
		As    string `json:"as"`
	}
	if err := unmarshal(body, &spec); err != nil {
		return nil, err
	}
	rel, err := d.cat.Relation(spec.Table)
	if err != nil {
		return nil, err
	}
	alias := spec.As
	if alias == "" {
		alias = spec.Table
	}
	if _, found := d.scans[alias]; found {
		return nil, rqerrors.Errorf(rqerrors.InvalidArgument, "duplicate scan alias %q", alias)
	}
	scan := NewScan(d.vg, rel, alias)
	d.scans[alias] = scan
	return scan, nil
}

func (d *planDecoder) decodeJoin(body json.RawMessage) (*Join, error) {
	var spec struct {
		Kind  string          `json:"kind"`
		Left  json.RawMessage `json:"left"`
		Right json.RawMessage `json:"right"`
		On    json.RawMessage `json:"on"`
	}
	if err := unmarshal(body, &spec); err != nil {
		return nil, err
	}
	var kind JoinKind
	switch spec.Kind {
	case "inner", "":
		kind = InnerJoin
	case "left":
		kind = LeftOuterJoin
	case "full":
		kind = FullOuterJoin
	default:
		return nil, rqerrors.Errorf(rqerrors.InvalidArgument, "unknown join kind %q", spec.Kind)
	}
	left, err := d.decodeOp(spec.Left)
	if err != nil {
		return nil, err
	}
	right, err := d.decodeOp(spec.Right)
	if err != nil {
		return nil, err
	}
	var on Expr
	if len(spec.On) > 0 {
		if on, err = d.decodeExpr(spec.On); err != nil {
			return nil, err
		}
	}
	return NewJoin(kind, left, right, on), nil
}

func (d *planDecoder) decodeCross(body json.RawMessage) (*CrossJoin, error) {
	var specs []json.RawMessage
	if err := unmarshal(body, &specs); err != nil {
		return nil, err
	}
	if len(specs) < 2 {
		return nil, rqerrors.Errorf(rqerrors.InvalidArgument, "cross join needs at least two sources, got %d", len(specs))
	}
	sources := make([]Operator, 0, len(specs))
	for _, s := range specs {
		op, err := d.decodeOp(s)
		if err != nil {
			return nil, err
		}
		sources = append(sources, op)
	}
	return NewCrossJoin(sources...), nil
}

func (d *planDecoder) decodeFilter(body json.RawMessage) (*Filter, error) {
	var spec struct {
		Source json.RawMessage `json:"source"`
		Where  json.RawMessage `json:"where"`
	}
	if err := unmarshal(body, &spec); err != nil {
		return nil, err
	}
	src, err := d.decodeOp(spec.Source)
	if err != nil {
		return nil, err
	}
	where, err := d.decodeExpr(spec.Where)
	if err != nil {
		return nil, err
	}
	return NewFilter(src, where), nil
}

func (d *planDecoder) decodeProject(body json.RawMessage) (*Project, error) {
	var spec struct {
		Source  json.RawMessage `json:"source"`
		Columns []struct {
			Expr json.RawMessage `json:"expr"`
			As   string          `json:"as"`
		} `json:"columns"`
	}
	if err := unmarshal(body, &spec); err != nil {
		return nil, err
	}
	src, err := d.decodeOp(spec.Source)
	if err != nil {
		return nil, err
	}
	projections := make([]ProjExpr, 0, len(spec.Columns))
	for _, col := range spec.Columns {
		expr, err := d.decodeExpr(col.Expr)
		if err != nil {
			return nil, err
		}
		projections = append(projections, ProjExpr{Expr: expr, As: col.As})
	}
	return &Project{Source: src, Projections: projections}, nil
}

func (d *planDecoder) decodeNest(body json.RawMessage) (*Nest, error) {
	var spec struct {
		Source  json.RawMessage `json:"source"`
		GroupBy []string        `json:"group_by"`
		As      string          `json:"as"`
	}
	if err := unmarshal(body, &spec); err != nil {
		return nil, err
	}
	src, err := d.decodeOp(spec.Source)
	if err != nil {
		return nil, err
	}
	groupBy := make([]*Column, 0, len(spec.GroupBy))
	for _, ref := range spec.GroupBy {
		col, err := d.resolveColumn(ref)
		if err != nil {
			return nil, err
		}
		groupBy = append(groupBy, col)
	}
	return &Nest{Source: src, GroupBy: groupBy, CollectionAs: spec.As}, nil
}

func (d *planDecoder) decodeExpr(raw json.RawMessage) (Expr, error) {
	tag, body, err := d.node(raw)
	if err != nil {
		return nil, err
	}
	switch tag {
	case "col":
		var ref string
		if err := unmarshal(body, &ref); err != nil {
			return nil, err
		}
		return d.resolveColumn(ref)
	case "lit":
		return d.decodeLiteral(body)
	case "cmp":
		return d.decodeComparison(body)
	case "and", "or":
		var specs []json.RawMessage
		if err := unmarshal(body, &specs); err != nil {
			return nil, err
		}
		if len(specs) < 2 {
			return nil, rqerrors.Errorf(rqerrors.InvalidArgument, "%q needs at least two operands, got %d", tag, len(specs))
		}
		exprs := make([]Expr, 0, len(specs))
		for _, s := range specs {
			e, err := d.decodeExpr(s)
			if err != nil {
				return nil, err
			}
			exprs = append(exprs, e)
		}
		if tag == "and" {
			return AndExpressions(exprs...), nil
		}
		out := exprs[0]
		for _, e := range exprs[1:] {
			out = &Or{Left: out, Right: e}
		}
		return out, nil
	case "not":
		inner, err := d.decodeExpr(body)
		if err != nil {
			return nil, err
		}
		return &Not{Inner: inner}, nil
	case "is":
		return d.decodeIs(body)
	case "call":
		return d.decodeCall(body)
	default:
		return nil, rqerrors.Errorf(rqerrors.InvalidArgument, "unknown expression tag %q", tag)
	}
}

func (d *planDecoder) decodeLiteral(body json.RawMessage) (Expr, error) {
	var val any
	if err := unmarshal(body, &val); err != nil {
		return nil, err
	}
	if num, ok := val.(json.Number); ok {
		if i, err := num.Int64(); err == nil {
			return &Literal{Val: i}, nil
		}
		f, err := num.Float64()
		if err != nil {
			return nil, rqerrors.Errorf(rqerrors.InvalidArgument, "bad numeric literal %q", num.String())
		}
		return &Literal{Val: f}, nil
	}
	return &Literal{Val: val}, nil
}

func (d *planDecoder) decodeComparison(body json.RawMessage) (Expr, error) {
	var spec struct {
		Op    string          `json:"op"`
		Left  json.RawMessage `json:"left"`
		Right json.RawMessage `json:"right"`
	}
	if err := unmarshal(body, &spec); err != nil {
		return nil, err
	}
	op, err := parseComparisonOp(spec.Op)
	if err != nil {
		return nil, err
	}
	left, err := d.decodeExpr(spec.Left)
	if err != nil {
		return nil, err
	}
	right, err := d.decodeExpr(spec.Right)
	if err != nil {
		return nil, err
	}
	return &Comparison{Op: op, Left: left, Right: right}, nil
}

func (d *planDecoder) decodeIs(body json.RawMessage) (Expr, error) {
	var spec struct {
		Op   string          `json:"op"`
		Expr json.RawMessage `json:"expr"`
	}
	if err := unmarshal(body, &spec); err != nil {
		return nil, err
	}
	inner, err := d.decodeExpr(spec.Expr)
	if err != nil {
		return nil, err
	}
	switch spec.Op {
	case "null":
		return &Is{Left: inner, Op: IsNullOp}, nil
	case "not null":
		return &Is{Left: inner, Op: IsNotNullOp}, nil
	default:
		return nil, rqerrors.Errorf(rqerrors.InvalidArgument, "unknown is-test %q", spec.Op)
	}
}

func (d *planDecoder) decodeCall(body json.RawMessage) (Expr, error) {
	var spec struct {
		Func string            `json:"func"`
		Args []json.RawMessage `json:"args"`
	}
	if err := unmarshal(body, &spec); err != nil {
		return nil, err
	}
	if spec.Func == "" {
		return nil, rqerrors.New(rqerrors.InvalidArgument, "call without a function name")
	}
	args := make([]Expr, 0, len(spec.Args))
	for _, a := range spec.Args {
		e, err := d.decodeExpr(a)
		if err != nil {
			return nil, err
		}
		args = append(args, e)
	}
	return &Call{Name: spec.Func, Args: args}, nil
}

func (d *planDecoder) resolveColumn(ref string) (*Column, error) {
	alias, name, found := strings.Cut(ref, ".")
	if !found {
		return nil, rqerrors.Errorf(rqerrors.InvalidArgument, "column reference %q must be alias.column", ref)
	}
	scan, ok := d.scans[alias]
	if !ok {
		return nil, rqerrors.Errorf(rqerrors.InvalidArgument, "column reference %q names an unknown scan", ref)
	}
	col := scan.Column(name)
	if col == nil {
		return nil, rqerrors.Errorf(rqerrors.InvalidArgument, "relation %s has no column %q", scan.Relation.Name, name)
	}
	return col, nil
}

func parseComparisonOp(s string) (ComparisonOp, error) {
	switch s {
	case "=":
		return EqualOp, nil
	case "!=", "<>":
		return NotEqualOp, nil
	case "<":
		return LessThanOp, nil
	case "<=":
		return LessEqualOp, nil
	case ">":
		return GreaterThanOp, nil
	case ">=":
		return GreaterEqualOp, nil
	default:
		return 0, rqerrors.Errorf(rqerrors.InvalidArgument, "unknown comparison operator %q", s)
	}
}

func unmarshal(raw json.RawMessage, into any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(into); err != nil {
		return rqerrors.Wrap(err, "malformed plan document")
	}
	return nil
}

// EncodePlan renders an operator tree back into the JSON plan format.
// The output round-trips through DecodePlan given the same catalog.
func EncodePlan(op Operator) ([]byte, error) {
	doc, err := encodeOp(op)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(doc, "", "  ")
}

func encodeOp(op Operator) (any, error) {
	switch op := op.(type) {
	case *Scan:
		return tagged("scan", map[string]any{"table": op.Relation.Name, "as": op.Alias}), nil
	case *Join:
		var kind string
		switch op.Kind {
		case InnerJoin:
			kind = "inner"
		case LeftOuterJoin:
			kind = "left"
		case FullOuterJoin:
			kind = "full"
		}
		body := map[string]any{"kind": kind}
		var err error
		if body["left"], err = encodeOp(op.Left); err != nil {
			return nil, err
		}
		if body["right"], err = encodeOp(op.Right); err != nil {
			return nil, err
		}
		if op.Condition != nil {
			if body["on"], err = encodeExpr(op.Condition); err != nil {
				return nil, err
			}
		}
		return tagged("join", body), nil
	case *CrossJoin:
		sources := make([]any, 0, len(op.Sources))
		for _, src := range op.Sources {
			doc, err := encodeOp(src)
			if err != nil {
				return nil, err
			}
			sources = append(sources, doc)
		}
		return tagged("cross", sources), nil
	case *Filter:
		src, err := encodeOp(op.Source)
		if err != nil {
			return nil, err
		}
		where, err := encodeExpr(op.Condition())
		if err != nil {
			return nil, err
		}
		return tagged("filter", map[string]any{"source": src, "where": where}), nil
	case *Project:
		src, err := encodeOp(op.Source)
		if err != nil {
			return nil, err
		}
		columns := make([]any, 0, len(op.Projections))
		for _, pe := range op.Projections {
			expr, err := encodeExpr(pe.Expr)
			if err != nil {
				return nil, err
			}
			columns = append(columns, map[string]any{"expr": expr, "as": pe.As})
		}
		return tagged("project", map[string]any{"source": src, "columns": columns}), nil
	case *Nest:
		src, err := encodeOp(op.Source)
		if err != nil {
			return nil, err
		}
		groupBy := make([]string, 0, len(op.GroupBy))
		for _, col := range op.GroupBy {
			groupBy = append(groupBy, col.String())
		}
		return tagged("nest", map[string]any{"source": src, "group_by": groupBy, "as": op.CollectionAs}), nil
	case *SingleRow:
		return tagged("single_row", map[string]any{}), nil
	default:
		return nil, rqerrors.Bug("cannot encode operator %T", op)
	}
}

func encodeExpr(e Expr) (any, error) {
	switch e := e.(type) {
	case *Column:
		return tagged("col", e.String()), nil
	case *Literal:
		return tagged("lit", e.Val), nil
	case *Comparison:
		left, err := encodeExpr(e.Left)
		if err != nil {
			return nil, err
		}
		right, err := encodeExpr(e.Right)
		if err != nil {
			return nil, err
		}
		return tagged("cmp", map[string]any{"op": e.Op.String(), "left": left, "right": right}), nil
	case *And:
		operands, err := flattenBinary(e)
		if err != nil {
			return nil, err
		}
		return tagged("and", operands), nil
	case *Or:
		operands, err := flattenBinary(e)
		if err != nil {
			return nil, err
		}
		return tagged("or", operands), nil
	case *Not:
		inner, err := encodeExpr(e.Inner)
		if err != nil {
			return nil, err
		}
		return tagged("not", inner), nil
	case *Is:
		inner, err := encodeExpr(e.Left)
		if err != nil {
			return nil, err
		}
		op := "null"
		if e.Op == IsNotNullOp {
			op = "not null"
		}
		return tagged("is", map[string]any{"op": op, "expr": inner}), nil
	case *Call:
		args := make([]any, 0, len(e.Args))
		for _, a := range e.Args {
			doc, err := encodeExpr(a)
			if err != nil {
				return nil, err
			}
			args = append(args, doc)
		}
		return tagged("call", map[string]any{"func": e.Name, "args": args}), nil
	default:
		return nil, rqerrors.Bug("cannot encode expression %T", e)
	}
}

// flattenBinary spreads a left-leaning And/Or chain into the flat operand
// list the JSON format uses.
func flattenBinary(e Expr) ([]any, error) {
	var operands []any
	var walk func(Expr) error
	sameKind := func(child Expr) bool {
		switch e.(type) {
		case *And:
			_, ok := child.(*And)
			return ok
		case *Or:
			_, ok := child.(*Or)
			return ok
		}
		return false
	}
	walk = func(cur Expr) error {
		if sameKind(cur) {
			left, right := binaryChildren(cur)
			if err := walk(left); err != nil {
				return err
			}
			return walk(right)
		}
		doc, err := encodeExpr(cur)
		if err != nil {
			return err
		}
		operands = append(operands, doc)
		return nil
	}
	if err := walk(e); err != nil {
		return nil, err
	}
	return operands, nil
}

func binaryChildren(e Expr) (Expr, Expr) {
	switch e := e.(type) {
	case *And:
		return e.Left, e.Right
	case *Or:
		return e.Left, e.Right
	}
	panic("BUG: binaryChildren on a non-binary expression")
}

func tagged(tag string, body any) map[string]any {
	return map[string]any{tag: body}
}
