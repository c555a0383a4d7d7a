package main

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/sigchain/pkg/sigchain"
)

func newShowCmd(c *cli) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the chains of the document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ed, err := c.open()
			if err != nil {
				return err
			}
			printChains(cmd.OutOrStdout(), ed.ChainSet(), all)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include nodes on inactive paths")
	return cmd
}

func printChains(out io.Writer, set *sigchain.ChainSet, all bool) {
	if set.Len() == 0 {
		fmt.Fprintln(out, "No chains.")
		return
	}
	for _, ch := range set.Chains() {
		header := fmt.Sprintf("chain %d", ch.Index)
		if ch.Index == set.Active() {
			header += " (active)"
		}
		fmt.Fprintln(out, header)

		ids := ch.Sequence
		if all {
			ids = ch.Members
		}
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		for _, id := range ids {
			n, _ := set.Node(id)
			mark := " "
			if !slices.Contains(ch.Sequence, id) {
				mark = "~"
			}
			fmt.Fprintf(tw, "%s %d\t%s\t%s\t%s\n", mark, id, n.Name(), n.Kind(), nodeDetail(n))
		}
		_ = tw.Flush()
	}
}

func nodeDetail(n *sigchain.Node) string {
	var parts []string
	if n.Name() != n.Descriptor().Name {
		parts = append(parts, n.Descriptor().String())
	}
	if n.Shape().IsBranchPoint() {
		parts = append(parts, "path="+n.ActivePath().String())
		if n.IsPassThrough() {
			parts = append(parts, "pass-through")
		}
	}
	if n.Kind() == sigchain.KindMissing {
		parts = append(parts, "unavailable: "+n.Descriptor().String())
	}
	for _, p := range n.Params().Params() {
		parts = append(parts, p.Key+"="+p.Value)
	}
	return strings.Join(parts, " ")
}

func newValidateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the document without changing it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := os.ReadFile(c.path())
			if err != nil {
				return fmt.Errorf("read document: %w", err)
			}
			set, report, err := c.newEditor().Deserialize(data, false)
			if err != nil {
				return fmt.Errorf("could not parse %s: %w", c.path(), err)
			}
			if err := set.Validate(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, u := range report.Unresolved {
				fmt.Fprintf(out, "warning: %v\n", u)
			}
			fmt.Fprintf(out, "ok: %d chains, %d nodes\n", report.Chains, report.Nodes)
			return nil
		},
	}
}

func newCatalogCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List the available processors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			for _, cat := range c.registry.Catalog() {
				fmt.Fprintln(out, cat.Name)
				tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				for _, e := range cat.Entries {
					fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", e.Descriptor.Name, e.Descriptor.Version, e.Kind, e.Description)
				}
				_ = tw.Flush()
			}
			return nil
		},
	}
}
