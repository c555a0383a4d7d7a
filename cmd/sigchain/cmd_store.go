package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/randalmurphal/sigchain/pkg/sigchain"
	"github.com/randalmurphal/sigchain/pkg/sigchain/store"
)

func newSaveCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "save <name>",
		Short: "Store the document under a name as a new revision",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ed, err := c.open()
			if err != nil {
				return err
			}
			st, err := c.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			if err := ed.SaveTo(cmd.Context(), st, args[0]); err != nil {
				return err
			}
			revs, err := st.Revisions(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s revision %d\n", args[0], len(revs))
			return nil
		},
	}
}

func newLoadCmd(c *cli) *cobra.Command {
	var revision int
	cmd := &cobra.Command{
		Use:   "load <name>",
		Short: "Replace the document with a stored one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			ed := c.newEditor()
			var report *sigchain.LoadReport
			if revision > 0 {
				data, err := st.LoadRevision(args[0], revision)
				if err != nil {
					return fmt.Errorf("load %q revision %d: %w", args[0], revision, err)
				}
				report, err = ed.Load(data)
				if err != nil {
					return err
				}
			} else {
				if report, err = ed.LoadFrom(cmd.Context(), st, args[0]); err != nil {
					return err
				}
			}
			printReport(cmd, report)
			return statusErr(ed.SaveState(c.path()))
		},
	}
	cmd.Flags().IntVar(&revision, "revision", 0, "revision to load (default: newest)")
	return cmd
}

func newListCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := c.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			infos, err := st.List()
			if err != nil {
				return err
			}
			if len(infos) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No stored documents.")
				return nil
			}
			printInfos(cmd, infos)
			return nil
		},
	}
}

func newRevisionsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "revisions <name>",
		Short: "List the revisions of a stored document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			infos, err := st.Revisions(args[0])
			if err != nil {
				return err
			}
			if len(infos) == 0 {
				return fmt.Errorf("%q: %w", args[0], store.ErrNotFound)
			}
			printInfos(cmd, infos)
			return nil
		},
	}
}

func newDeleteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete every revision of a stored document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			return st.Delete(args[0])
		},
	}
}

func printInfos(cmd *cobra.Command, infos []store.Info) {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tREVISION\tSIZE\tSAVED")
	for _, info := range infos {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", info.Name, info.Revision,
			humanize.Bytes(uint64(info.Size)), info.Timestamp.Local().Format(time.DateTime))
	}
	_ = tw.Flush()
}
