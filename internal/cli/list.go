package cli

import (
	"fmt"

	units "github.com/docker/go-units"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/SmitUplenchwar2687/vmcloop/internal/storage"
)

func newListCmd(root *rootOptions) *cobra.Command {
	var (
		store      storageOptions
		outputJSON bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List stored recordings",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()
			st, err := store.open(ctx, cmd, &root.cfg.Storage)
			if err != nil {
				return err
			}
			defer func() {
				err = multierr.Append(err, st.Close())
			}()

			infos, err := st.List(ctx)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if outputJSON {
				if infos == nil {
					infos = []storage.Info{}
				}
				return writeJSON(w, infos)
			}
			if len(infos) == 0 {
				warning.Fprintf(w, "no recordings in %s storage\n", store.backend)
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(w)
			t.AppendHeader(table.Row{"Name", "Size"})
			for _, info := range infos {
				t.AppendRow(table.Row{info.Name, units.HumanSize(float64(info.Size))})
			}
			t.AppendFooter(table.Row{fmt.Sprintf("%d recordings", len(infos)),
				units.HumanSize(float64(lo.SumBy(infos, func(i storage.Info) int64 { return i.Size })))})
			t.Render()
			return nil
		},
	}

	store.addFlags(cmd)
	cmd.Flags().BoolVar(&outputJSON, "json", false, "output as JSON")

	return cmd
}

func newDeleteCmd(root *rootOptions) *cobra.Command {
	var store storageOptions

	cmd := &cobra.Command{
		Use:     "delete name...",
		Aliases: []string{"rm"},
		Short:   "Delete stored recordings",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := store.open(ctx, cmd, &root.cfg.Storage)
			if err != nil {
				return err
			}

			var errs error
			for _, name := range args {
				if err := st.Delete(ctx, name); err != nil {
					errs = multierr.Append(errs, err)
					continue
				}
				success.Fprintf(cmd.OutOrStdout(), "deleted %q\n", name)
			}
			return multierr.Append(errs, st.Close())
		},
	}

	store.addFlags(cmd)

	return cmd
}
