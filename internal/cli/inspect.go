package cli

import (
	"encoding/json"
	"io"
	"sort"
	"time"

	units "github.com/docker/go-units"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/SmitUplenchwar2687/vmcloop/internal/recording"
	"github.com/SmitUplenchwar2687/vmcloop/internal/storage"
)

// Inspection summarizes a recording.
type Inspection struct {
	Source    string         `json:"source"`
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	Duration  time.Duration  `json:"duration"`
	Packets   int            `json:"packets"`
	Bundles   int            `json:"bundles"`
	Messages  int            `json:"messages"`
	Period    time.Duration  `json:"period"` // zero when no period can be derived
	Size      int            `json:"size"`
	Addresses []AddressCount `json:"addresses"`
}

// AddressCount is one row of the address histogram.
type AddressCount struct {
	Address string `json:"address"`
	Count   int    `json:"count"`
}

func inspect(source string, rec *recording.Recording) (Inspection, error) {
	b, err := storage.Encode(rec)
	if err != nil {
		return Inspection{}, err
	}

	addrs := lo.MapToSlice(rec.AddressCounts(), func(addr string, n int) AddressCount {
		return AddressCount{Address: addr, Count: n}
	})
	sort.Slice(addrs, func(i, j int) bool {
		if addrs[i].Count != addrs[j].Count {
			return addrs[i].Count > addrs[j].Count
		}
		return addrs[i].Address < addrs[j].Address
	})

	bundles := lo.CountBy(rec.Packets, func(p recording.RecordedPacket) bool {
		_, ok := p.Data.(*recording.Bundle)
		return ok
	})

	return Inspection{
		Source:    source,
		ID:        rec.ID.String(),
		CreatedAt: rec.CreatedAt,
		Duration:  rec.Duration,
		Packets:   rec.PacketCount(),
		Bundles:   bundles,
		Messages:  rec.MessageCount(),
		Period:    rec.MaxOffset(),
		Size:      len(b),
		Addresses: addrs,
	}, nil
}

func printInspection(w io.Writer, in Inspection) {
	period := "n/a"
	if in.Period > 0 {
		period = in.Period.String()
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(in.Source)
	t.AppendRows([]table.Row{
		{"ID", in.ID},
		{"Created", in.CreatedAt.Format(time.RFC3339)},
		{"Duration", in.Duration.Round(time.Millisecond)},
		{"Packets", in.Packets},
		{"Bundles", in.Bundles},
		{"Messages", in.Messages},
		{"Loop period", period},
		{"Stored size", units.HumanSize(float64(in.Size))},
	})
	t.Render()

	if len(in.Addresses) == 0 {
		return
	}
	h := table.NewWriter()
	h.SetOutputMirror(w)
	h.AppendHeader(table.Row{"Address", "Messages"})
	for _, a := range in.Addresses {
		h.AppendRow(table.Row{a.Address, a.Count})
	}
	h.AppendFooter(table.Row{"Total", in.Messages})
	h.Render()
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newInspectCmd(root *rootOptions) *cobra.Command {
	var (
		src        recordingSource
		outputJSON bool
	)

	cmd := &cobra.Command{
		Use:   "inspect [name]",
		Short: "Summarize a recording",
		Long: `Prints the packet and message counts, the capture duration, the loop
period playback would derive, and how many messages each address carries.`,
		Example: `  vmcloop inspect idle
  vmcloop inspect --file idle.vmcrec --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, from, err := src.load(cmd.Context(), cmd, &root.cfg.Storage, args)
			if err != nil {
				return err
			}
			in, err := inspect(from, rec)
			if err != nil {
				return err
			}
			if outputJSON {
				return writeJSON(cmd.OutOrStdout(), in)
			}
			printInspection(cmd.OutOrStdout(), in)
			return nil
		},
	}

	src.addFlags(cmd)
	cmd.Flags().BoolVar(&outputJSON, "json", false, "output as JSON")

	return cmd
}
