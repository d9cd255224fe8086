package cmd

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/ftsync/internal/output"
	"github.com/Aman-CERP/ftsync/internal/record"
	"github.com/Aman-CERP/ftsync/internal/recordstore"
)

func newPutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put <type> <attr=value>...",
		Short: "Insert or update a record",
		Long: `Insert a record, or update it when the primary key is given and a record
with that key exists. Indexes covering the type are updated on commit.`,
		Example: `  ftsync put Entry title="chuck norris" content="roundhouse kick"
  ftsync put Entry id=1 title="chuck norris jr"`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPut(cmd, args[0], args[1:])
		},
	}
}

func runPut(cmd *cobra.Command, typeName string, assignments []string) error {
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
	values, err := parseAssignments(t, assignments)
	if err != nil {
		return err
	}

	update := false
	if pk, ok := t.PrimaryKey(); ok {
		if key, set := values[pk.Name]; set {
			_, err := p.store.Get(ctx, t.Name, key)
			switch {
			case err == nil:
				update = true
			case !errors.Is(err, recordstore.ErrNotFound):
				return err
			}
		}
	}

	tx, err := p.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	row := record.NewRow(t.Name, values)
	if update {
		row, err = tx.Update(ctx, row)
	} else {
		row, err = tx.Insert(ctx, row)
	}
	if err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return commitFailure(err)
	}

	verb := "inserted"
	if update {
		verb = "updated"
	}
	slog.Info("record_saved", slog.String("type", t.Name), slog.String("op", verb))
	output.New(cmd.OutOrStdout()).Successf("%s %s", verb, row)
	return nil
}
