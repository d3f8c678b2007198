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

package command

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/relq/relq/joinelim"
	"github.com/relq/relq/relop"
	"github.com/relq/relq/rqerrors"
	"github.com/relq/relq/schema"
	"github.com/relq/relq/semantics"
)

// Optimize runs join elimination over one serialized plan.
var Optimize = &cobra.Command{
	Use:                   "optimize --catalog <catalog.json> --plan <plan.json> [--format tree|json]",
	Short:                 "Runs join elimination over a serialized plan and prints the rewritten plan.",
	DisableFlagsInUseLine: true,
	Args:                  cobra.NoArgs,
	RunE:                  commandOptimize,
}

var optimizeOptions = struct {
	Catalog string
	Plan    string
	Format  string
}{
	Format: "tree",
}

func init() {
	Optimize.Flags().StringVar(&optimizeOptions.Catalog, "catalog", "", "catalog file describing relations, keys and foreign keys")
	Optimize.Flags().StringVar(&optimizeOptions.Plan, "plan", "", "plan file holding the serialized operator tree")
	Optimize.Flags().StringVar(&optimizeOptions.Format, "format", optimizeOptions.Format, "output format, one of {tree, json}")
	Optimize.MarkFlagRequired("catalog")
	Optimize.MarkFlagRequired("plan")
	Optimize.MarkFlagFilename("catalog")
	Optimize.MarkFlagFilename("plan")

	Root.AddCommand(Optimize)
}

func commandOptimize(cmd *cobra.Command, _ []string) error {
	if optimizeOptions.Format != "tree" && optimizeOptions.Format != "json" {
		return rqerrors.Errorf(rqerrors.InvalidArgument, "unknown output format %q, want tree or json", optimizeOptions.Format)
	}

	catalogData, err := os.ReadFile(optimizeOptions.Catalog)
	if err != nil {
		return err
	}
	cat, err := schema.LoadCatalog(catalogData)
	if err != nil {
		return err
	}

	planData, err := os.ReadFile(optimizeOptions.Plan)
	if err != nil {
		return err
	}
	plan, err := relop.DecodePlan(planData, cat, relop.NewVarGen())
	if err != nil {
		return err
	}

	optimized, res, err := rewritePlan(plan, cat)
	if err != nil {
		return err
	}

	if optimizeOptions.Format == "json" {
		return printJSON(cmd.OutOrStdout(), plan, optimized, res)
	}
	return printTree(cmd.OutOrStdout(), plan, optimized, res)
}

// rewritePlan runs join elimination over the topmost join region of the
// plan. Operators above the region keep their shape; their expressions are
// redirected through the substitution map on the way out.
func rewritePlan(plan relop.Operator, cat *schema.Catalog) (relop.Operator, *joinelim.Result, error) {
	sem, err := semantics.Analyze(plan)
	if err != nil {
		return nil, nil, err
	}

	var spine []relop.Operator
	region := plan
walk:
	for {
		switch region.(type) {
		case *relop.Join, *relop.CrossJoin:
			break walk
		case *relop.Filter, *relop.Project, *relop.Nest:
			spine = append(spine, region)
			region = region.Inputs()[0]
		default:
			return nil, nil, rqerrors.Errorf(rqerrors.InvalidArgument, "plan holds no join region to optimize, found %T", region)
		}
	}

	res, err := joinelim.Eliminate(region, sem, cat)
	if err != nil {
		return nil, nil, err
	}

	rebuilt := res.Root
	for i := len(spine) - 1; i >= 0; i-- {
		op := spine[i].Clone([]relop.Operator{rebuilt})
		substituteColumns(op, res.VarMap)
		rebuilt = op
	}
	return rebuilt, res, nil
}

// substituteColumns redirects eliminated columns in the operator's own
// expressions. Inputs are left alone.
func substituteColumns(op relop.Operator, varMap map[relop.VarID]*relop.Column) {
	lookup := func(col *relop.Column) *relop.Column {
		return varMap[col.ID]
	}
	switch op := op.(type) {
	case *relop.Filter:
		for i, p := range op.Predicates {
			op.Predicates[i] = relop.SubstituteColumns(p, lookup)
		}
	case *relop.Project:
		for i, pe := range op.Projections {
			op.Projections[i].Expr = relop.SubstituteColumns(pe.Expr, lookup)
		}
	case *relop.Nest:
		for i, col := range op.GroupBy {
			if repl := varMap[col.ID]; repl != nil {
				op.GroupBy[i] = repl
			}
		}
	}
}

func printTree(w io.Writer, plan, optimized relop.Operator, res *joinelim.Result) error {
	fmt.Fprintf(w, "-- plan --\n%s", relop.ToTree(plan))
	fmt.Fprintf(w, "-- optimized --\n%s", relop.ToTree(optimized))
	if len(res.Applied) == 0 {
		fmt.Fprintln(w, "no rewrites applied")
		return nil
	}
	fmt.Fprintln(w, "-- rewrites --")
	for _, note := range res.Applied {
		fmt.Fprintln(w, note)
	}
	if lines := substitutionLines(plan, res.VarMap); len(lines) > 0 {
		fmt.Fprintln(w, "-- substitutions --")
		for _, line := range lines {
			fmt.Fprintln(w, line)
		}
	}
	return nil
}

func printJSON(w io.Writer, plan, optimized relop.Operator, res *joinelim.Result) error {
	before, err := relop.EncodePlan(plan)
	if err != nil {
		return err
	}
	after, err := relop.EncodePlan(optimized)
	if err != nil {
		return err
	}
	byID := columnsByID(plan)
	subs := make(map[string]string, len(res.VarMap))
	for id, repl := range res.VarMap {
		subs[byID[id].String()] = repl.String()
	}
	doc := struct {
		Plan          json.RawMessage   `json:"plan"`
		Optimized     json.RawMessage   `json:"optimized"`
		Substitutions map[string]string `json:"substitutions,omitempty"`
		Applied       []string          `json:"applied,omitempty"`
	}{
		Plan:          before,
		Optimized:     after,
		Substitutions: subs,
		Applied:       res.Applied,
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

// substitutionLines renders the delta map ordered by variable id, which is
// plan-construction order.
func substitutionLines(plan relop.Operator, varMap map[relop.VarID]*relop.Column) []string {
	byID := columnsByID(plan)
	ids := make([]relop.VarID, 0, len(varMap))
	for id := range varMap {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	lines := make([]string, 0, len(ids))
	for _, id := range ids {
		lines = append(lines, byID[id].String()+" -> "+varMap[id].String())
	}
	return lines
}

func columnsByID(plan relop.Operator) map[relop.VarID]*relop.Column {
	byID := map[relop.VarID]*relop.Column{}
	for _, scan := range relop.ScansIn(plan) {
		for _, col := range scan.Columns {
			byID[col.ID] = col
		}
	}
	return byID
}
