package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ceyewan/tablegen/clog"
	"github.com/ceyewan/tablegen/xerrors"
)

func newSchemaCmd(flags *rootFlags) *cobra.Command {
	var exec bool
	cmd := &cobra.Command{
		Use:       "schema <create|drop>",
		Short:     "Print or execute the segment table DDL",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"create", "drop"},
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := newBootstrap(cmd.Context(), flags, false)
			if err != nil {
				return err
			}
			defer func() { _ = b.Close(context.Background()) }()
			return runSchema(cmd.Context(), b.app, args[0], exec, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&exec, "exec", false, "execute the statements instead of printing them")
	return cmd
}

func runSchema(ctx context.Context, a *app, action string, exec bool, out io.Writer) error {
	if a.database == nil {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "store %s has no schema", a.cfg.Store.Driver)
	}

	stmts := a.registry.SchemaCreateStatements()
	if action == "drop" {
		stmts = a.registry.SchemaDropStatements()
	}
	if !exec {
		for _, stmt := range stmts {
			fmt.Fprintln(out, stmt+";")
		}
		return nil
	}

	if action == "create" {
		return a.EnsureSchema(ctx)
	}
	for _, stmt := range stmts {
		a.logger.Info("execute ddl", clog.String("sql", stmt))
		if err := a.database.DB(ctx).Exec(stmt).Error; err != nil {
			return xerrors.Wrapf(err, "execute %q", stmt)
		}
	}
	return nil
}
