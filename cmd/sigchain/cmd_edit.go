package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/sigchain/pkg/sigchain"
	"github.com/randalmurphal/sigchain/pkg/sigchain/params"
)

// descriptorFlags select a processor version other than the newest.
type descriptorFlags struct {
	library string
	version string
}

func (f *descriptorFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.library, "library", "", "processor library")
	cmd.Flags().StringVar(&f.version, "proc-version", "", "processor version (default: newest)")
}

func newAddCmd(c *cli) *cobra.Command {
	var (
		df descriptorFlags
		at int
	)
	cmd := &cobra.Command{
		Use:   "add <processor>",
		Short: "Insert a processor into the active chain",
		Long: "Insert a processor into the active chain before position --at of the\n" +
			"visible sequence. Positions past the end append.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := c.descriptor(args[0], df.library, df.version)
			if err != nil {
				return err
			}
			return c.edit(func(ed *sigchain.Editor) error {
				k := at
				if k < 0 {
					k = len(ed.Sequence())
				}
				n, err := ed.AddNode(d, k)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "added node %d (%s) at %d\n", n.ID(), n.Descriptor(), ed.IndexOf(n.ID()))
				return nil
			})
		},
	}
	df.register(cmd)
	cmd.Flags().IntVar(&at, "at", -1, "insertion point (default: end of the active chain)")
	return cmd
}

func newChainCmd(c *cli) *cobra.Command {
	var df descriptorFlags
	cmd := &cobra.Command{
		Use:   "chain <processor>",
		Short: "Start a new chain with one processor and select it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := c.descriptor(args[0], df.library, df.version)
			if err != nil {
				return err
			}
			return c.edit(func(ed *sigchain.Editor) error {
				n, err := ed.AddChain(d)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "added chain %d starting at node %d\n", ed.ActiveChain(), n.ID())
				return nil
			})
		},
	}
	df.register(cmd)
	return cmd
}

func newRemoveCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>...",
		Short: "Remove nodes and repair the links around them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseNodeIDs(args)
			if err != nil {
				return err
			}
			return c.edit(func(ed *sigchain.Editor) error {
				if len(ids) == 1 {
					err = ed.RemoveNode(ids[0])
				} else {
					err = ed.RemoveSelected(ids)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", strings.Join(args, ", "))
				return nil
			})
		},
	}
}

func newMoveCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "move <id> <index>",
		Short: "Move a node to another position of the active chain",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseNodeID(args[0])
			if err != nil {
				return err
			}
			k, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid index %q", args[1])
			}
			return c.edit(func(ed *sigchain.Editor) error {
				if err := ed.MoveNode(id, k); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "moved node %d to %d\n", id, ed.IndexOf(id))
				return nil
			})
		},
	}
}

func newSwitchCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "switch <id> <A|B>",
		Short: "Select the active path of a splitter or merger",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseNodeID(args[0])
			if err != nil {
				return err
			}
			p, err := sigchain.ParsePath(args[1])
			if err != nil {
				return err
			}
			return c.edit(func(ed *sigchain.Editor) error {
				if err := ed.SwitchBranch(id, p); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "node %d now shows path %s\n", id, p)
				return nil
			})
		},
	}
}

func newConnectCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "connect <merger> <A|B> <tail>",
		Short: "Feed a branch tail into an empty merger input",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			merger, err := parseNodeID(args[0])
			if err != nil {
				return err
			}
			p, err := sigchain.ParsePath(args[1])
			if err != nil {
				return err
			}
			tail, err := parseNodeID(args[2])
			if err != nil {
				return err
			}
			return c.edit(func(ed *sigchain.Editor) error {
				if err := ed.ConnectMerger(merger, p, tail); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "connected node %d to input %s of merger %d\n", tail, p, merger)
				return nil
			})
		},
	}
}

func newRenameCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Set the display name of a node",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseNodeID(args[0])
			if err != nil {
				return err
			}
			return c.edit(func(ed *sigchain.Editor) error {
				return ed.Rename(id, args[1])
			})
		},
	}
}

func newSetCmd(c *cli) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "set <id> [key=value]...",
		Short: "Change parameters of a node",
		Long: "Change parameters of a node. Pairs given on the command line are\n" +
			"applied after the ones read from --params.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseNodeID(args[0])
			if err != nil {
				return err
			}
			var p params.Set
			if file != "" {
				if p, err = params.FromFile(file); err != nil {
					return err
				}
			}
			for _, pair := range args[1:] {
				k, v, ok := strings.Cut(pair, "=")
				if !ok || k == "" {
					return fmt.Errorf("invalid parameter %q, want key=value", pair)
				}
				p = p.Put(k, v)
			}
			if p.IsZero() {
				return fmt.Errorf("no parameters given")
			}
			return c.edit(func(ed *sigchain.Editor) error {
				return ed.SetParameters(id, p)
			})
		},
	}
	cmd.Flags().StringVar(&file, "params", "", "yaml or json file of parameters")
	return cmd
}

func newSelectCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "select <chain>",
		Short: "Make a chain the active one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			i, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid chain index %q", args[0])
			}
			return c.edit(func(ed *sigchain.Editor) error {
				fmt.Fprintf(cmd.OutOrStdout(), "active chain %d\n", ed.SelectChain(i))
				return nil
			})
		},
	}
}

func newDuplicateCmd(c *cli) *cobra.Command {
	var at int
	cmd := &cobra.Command{
		Use:   "duplicate <id>...",
		Short: "Copy nodes of the active chain and paste them at --at",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseNodeIDs(args)
			if err != nil {
				return err
			}
			return c.edit(func(ed *sigchain.Editor) error {
				if err := ed.Copy(ids); err != nil {
					return err
				}
				k := at
				if k < 0 {
					k = len(ed.Sequence())
				}
				pasted, err := ed.Paste(k)
				if err != nil && len(pasted) == 0 {
					return err
				}
				for _, id := range pasted {
					fmt.Fprintf(cmd.OutOrStdout(), "added node %d\n", id)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&at, "at", -1, "insertion point (default: end of the active chain)")
	return cmd
}

func newClearCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every chain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.edit(func(ed *sigchain.Editor) error {
				return ed.Clear()
			})
		},
	}
}

func newImportCmd(c *cli) *cobra.Command {
	var keepIDs bool
	cmd := &cobra.Command{
		Use:   "import <path>",
		Short: "Append the chains of another document",
		Long: "Append the chains of another document. New node IDs are assigned\n" +
			"unless --keep-ids is set; with it, records whose ID is taken are dropped.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read document: %w", err)
			}
			return c.edit(func(ed *sigchain.Editor) error {
				report, err := ed.Import(data, !keepIDs)
				if err != nil {
					return fmt.Errorf("could not parse %s: %w", args[0], err)
				}
				printReport(cmd, report)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&keepIDs, "keep-ids", false, "keep the node IDs of the document")
	return cmd
}

func printReport(cmd *cobra.Command, report *sigchain.LoadReport) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "loaded %d chains, %d nodes\n", report.Chains, report.Nodes)
	for _, u := range report.Unresolved {
		fmt.Fprintf(out, "warning: %v\n", u)
	}
	for _, col := range report.Collisions {
		fmt.Fprintf(out, "dropped: %v\n", col)
	}
	for _, id := range report.Dropped {
		fmt.Fprintf(out, "dropped: node %d lost its branch head\n", id)
	}
}

func newExportNodeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "export-node <id> <path>",
		Short: "Write the parameters and name of one node to a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseNodeID(args[0])
			if err != nil {
				return err
			}
			ed, err := c.open()
			if err != nil {
				return err
			}
			return statusErr(ed.SavePluginState(args[1], id))
		},
	}
}

func newImportNodeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "import-node <path> <id>",
		Short: "Apply parameters saved with export-node to a node",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseNodeID(args[1])
			if err != nil {
				return err
			}
			return c.edit(func(ed *sigchain.Editor) error {
				return statusErr(ed.LoadPluginState(args[0], id))
			})
		},
	}
}
