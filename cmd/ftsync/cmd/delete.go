package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	ftserr "github.com/Aman-CERP/ftsync/internal/errors"
	"github.com/Aman-CERP/ftsync/internal/output"
)

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <type> <key>",
		Aliases: []string{"rm"},
		Short:   "Delete a record by primary key",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(cmd, args[0], args[1])
		},
	}
}

func runDelete(cmd *cobra.Command, typeName, rawKey string) error {
	ctx := cmd.Context()

	p, err := openProject(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	t, err := p.recordType(typeName)
	if err != nil {
		return err
	}
	pk, ok := t.PrimaryKey()
	if !ok {
		return ftserr.ValidationError(fmt.Sprintf("%s has no primary key", t.Name), nil)
	}
	key, err := parseValue(pk, rawKey)
	if err != nil {
		return err
	}

	tx, err := p.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	row, err := tx.Delete(ctx, t.Name, key)
	if err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return commitFailure(err)
	}

	output.New(cmd.OutOrStdout()).Successf("deleted %s", row)
	return nil
}
