package cli

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/SmitUplenchwar2687/vmcloop/internal/config"
	"github.com/SmitUplenchwar2687/vmcloop/internal/errdefs"
	"github.com/SmitUplenchwar2687/vmcloop/internal/pcapimport"
	"github.com/SmitUplenchwar2687/vmcloop/internal/vmc"
)

func newImportPcapCmd(root *rootOptions) *cobra.Command {
	var (
		port     int
		allOSC   bool
		gazeOnly bool
		sink     recordingSink
	)

	cmd := &cobra.Command{
		Use:   "import-pcap capture.pcap",
		Short: "Build a recording from a packet capture",
		Long: `Reads a pcap or pcapng file, keeps the UDP datagrams sent to --port and
turns them into a recording with the captured spacing, as if they had been
recorded live. Use --port 0 to take UDP datagrams on any port.`,
		Example: `  vmcloop import-pcap session.pcapng --name idle
  vmcloop import-pcap session.pcap --port 39539 --out idle.vmcrec`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if port < 0 || port > 65535 {
				return errors.Wrapf(errdefs.ErrInvalidArgument, "--port must be in 0-65535, got %d", port)
			}
			if sink.empty() {
				return errors.Wrap(errdefs.ErrInvalidArgument, "import-pcap needs --name or --out")
			}
			if err := sink.validate(); err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return errors.Wrapf(err, "opening %s", args[0])
			}
			defer f.Close()

			rec, st, err := pcapimport.Import(f, pcapimport.Options{
				Port:     port,
				Selector: vmc.Selector(allOSC, gazeOnly),
				Logger:   root.log,
			})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			t := table.NewWriter()
			t.SetOutputMirror(w)
			t.SetTitle(args[0])
			t.AppendHeader(table.Row{"Frames", "UDP", "Matched", "Imported", "Filtered", "Undecodable"})
			t.AppendRow(table.Row{st.Frames, st.UDP, st.Matched, st.Imported, st.Filtered, st.BadData})
			t.Render()
			success.Fprintf(w, "imported %d packets (%d messages) spanning %s\n",
				rec.PacketCount(), rec.MessageCount(), rec.Duration)

			return sink.save(cmd.Context(), cmd, &root.cfg.Storage, rec)
		},
	}

	cmd.Flags().IntVar(&port, "port", config.DefaultCapturePort, "UDP destination port to import (0 for any)")
	cmd.Flags().BoolVar(&allOSC, "all-osc", false, "keep every OSC message, not only /VMC ones")
	cmd.Flags().BoolVar(&gazeOnly, "gaze-only", false, "drop root and body bones, keep the eyes")
	sink.addFlags(cmd)

	return cmd
}
