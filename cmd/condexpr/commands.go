package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/matthewbaird/condexpr/internal/catalog"
	"github.com/matthewbaird/condexpr/internal/condition"
	"github.com/matthewbaird/condexpr/internal/editor"
	"github.com/matthewbaird/condexpr/internal/expr"
)

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func printConditions(w io.Writer, cs []condition.Condition) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tCONNECTOR\tFIELD\tOPERATOR\tVALUE")
	for i, c := range cs {
		if c.Raw {
			fmt.Fprintf(tw, "%d\t%s\t%s\t\t%s\n", i+1, c.Connector, c.FieldLabel, c.Fragment)
			continue
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i+1, c.Connector, c.FieldLabel, c.OperatorLabel, c.DisplayValue)
	}
	tw.Flush()
}

func newBuildCmd(a *app) *cobra.Command {
	var conds []string
	cmd := &cobra.Command{
		Use:   "build <entity>",
		Short: "Build an expression from conditions",
		Example: `  condexpr build Case --cond "Status EQ Open" --cond "OR Priority IN High, Low"
  condexpr build Case --cond "ClosedDate > LAST_N_DAYS:30"`,
		GroupID: "expressions",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ed := editor.New(editor.Config{Catalog: a.backend.Catalog})
			if err := ed.SelectEntity(cmd.Context(), args[0]); err != nil {
				return err
			}
			for _, s := range conds {
				in, err := parseCondition(s)
				if err != nil {
					return err
				}
				if _, err := ed.Add(in); err != nil {
					return err
				}
			}

			state := ed.State()
			if a.jsonOutput {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"expression": state.Expression,
					"conditions": state.Conditions,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), state.Expression)
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&conds, "cond", "c", nil, `condition "[AND|OR] <field> <operator> [value]" (repeatable)`)
	return cmd
}

func newParseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "parse <entity> <expression>",
		Short:   "Recover the condition list of a stored expression",
		GroupID: "expressions",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := a.backend.Catalog.Fields(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			res := expr.Parse(args[1], catalog.NewFieldSet(fields))

			out := cmd.OutOrStdout()
			if a.jsonOutput {
				reason := ""
				if res.Err != nil {
					reason = res.Err.Error()
				}
				return printJSON(out, map[string]any{
					"conditions": res.Conditions,
					"raw":        res.Raw,
					"reason":     reason,
				})
			}
			if res.Raw {
				fmt.Fprintf(out, "Kept as raw expression: %v\n", res.Err)
			}
			printConditions(out, res.Conditions)
			return nil
		},
	}
}

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "validate <entity> <expression>",
		Short:   "Run a trial count of an expression against the database",
		GroupID: "expressions",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.backend.Validator == nil {
				return errors.New("validation needs a database: set database.dsn or --dsn")
			}
			res, err := a.backend.Validator.Validate(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if a.jsonOutput {
				if err := printJSON(cmd.OutOrStdout(), res); err != nil {
					return err
				}
			} else if res.Valid {
				fmt.Fprintf(cmd.OutOrStdout(), "Valid: %d matching rows\n", res.Count)
			}
			if !res.Valid {
				return fmt.Errorf("invalid expression: %s", res.Message)
			}
			return nil
		},
	}
}

func newEntitiesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "entities",
		Short:   "List the catalog's entities",
		GroupID: "catalog",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lister, ok := a.backend.Catalog.(catalog.EntityLister)
			if !ok {
				return errors.New("catalog cannot list entities")
			}
			names, err := lister.Entities(cmd.Context())
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return printJSON(cmd.OutOrStdout(), names)
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(names, "\n"))
			return nil
		},
	}
}

func newFieldsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "fields <entity>",
		Short:   "List an entity's fields and their categories",
		GroupID: "catalog",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := a.backend.Catalog.Fields(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return printJSON(cmd.OutOrStdout(), fields)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "API NAME\tLABEL\tTYPE\tCATEGORY")
			for _, f := range fields {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.APIName, f.Label, f.DataType, condition.Classify(f.DataType))
			}
			return tw.Flush()
		},
	}
}

func newOperatorsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "operators <category>",
		Short:       "List the operators of a field category",
		GroupID:     "catalog",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{annotationBackend: "none"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, ok := condition.ParseCategory(args[0])
			if !ok {
				return fmt.Errorf("unknown category %q", args[0])
			}
			ops := condition.OperatorsFor(cat)
			if a.jsonOutput {
				return printJSON(cmd.OutOrStdout(), ops)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "CODE\tLABEL")
			for _, op := range ops {
				fmt.Fprintf(tw, "%s\t%s\n", op.Code, op.Label)
			}
			return tw.Flush()
		},
	}
}
