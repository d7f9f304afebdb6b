package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newTierCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tier",
		Short: "Manage a pool's funding tiers",
	}

	add := &cobra.Command{
		Use:   "add SPEC",
		Short: "Add a tier (NAME:PRICING:PRICE[:CAPACITY])",
		Args:  cobra.ExactArgs(1),
		RunE:  withEngine(runTierAdd),
	}
	update := &cobra.Command{
		Use:   "update INDEX SPEC",
		Short: "Replace a tier that has no commitments yet",
		Args:  cobra.ExactArgs(2),
		RunE:  withEngine(runTierUpdate),
	}
	enable := &cobra.Command{
		Use:   "enable INDEX",
		Short: "Accept commitments on a tier",
		Args:  cobra.ExactArgs(1),
		RunE:  withEngine(tierActiveRunner(true)),
	}
	disable := &cobra.Command{
		Use:   "disable INDEX",
		Short: "Stop accepting commitments on a tier",
		Args:  cobra.ExactArgs(1),
		RunE:  withEngine(tierActiveRunner(false)),
	}
	list := &cobra.Command{
		Use:   "list",
		Short: "List tiers",
		Args:  cobra.NoArgs,
		RunE:  withEngine(runTierList),
	}

	for _, c := range []*cobra.Command{add, update, enable, disable} {
		addPoolFlag(c)
		addAsFlag(c, "Pool owner account")
	}
	addPoolFlag(list)

	cmd.AddCommand(add, update, enable, disable, list)
	return cmd
}

func runTierAdd(cmd *cobra.Command, args []string, e *engine) error {
	spec, err := parseTierSpec(args[0])
	if err != nil {
		return err
	}
	p, err := e.pool(cmd)
	if err != nil {
		return err
	}
	as, err := addressFlag(cmd, "as")
	if err != nil {
		return err
	}
	now, err := nowFlag(cmd)
	if err != nil {
		return err
	}

	tier, err := p.AddTier(as, spec, now)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added tier %d %q\n", tier.Index, tier.Name)
	return nil
}

func runTierUpdate(cmd *cobra.Command, args []string, e *engine) error {
	index, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("tier index: %w", err)
	}
	spec, err := parseTierSpec(args[1])
	if err != nil {
		return err
	}
	p, err := e.pool(cmd)
	if err != nil {
		return err
	}
	as, err := addressFlag(cmd, "as")
	if err != nil {
		return err
	}
	now, err := nowFlag(cmd)
	if err != nil {
		return err
	}

	tier, err := p.UpdateTier(as, index, spec, now)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated tier %d %q\n", tier.Index, tier.Name)
	return nil
}

func tierActiveRunner(active bool) func(*cobra.Command, []string, *engine) error {
	return func(cmd *cobra.Command, args []string, e *engine) error {
		index, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("tier index: %w", err)
		}
		p, err := e.pool(cmd)
		if err != nil {
			return err
		}
		as, err := addressFlag(cmd, "as")
		if err != nil {
			return err
		}
		now, err := nowFlag(cmd)
		if err != nil {
			return err
		}
		return p.SetTierActive(as, index, active, now)
	}
}

func runTierList(cmd *cobra.Command, args []string, e *engine) error {
	p, err := e.pool(cmd)
	if err != nil {
		return err
	}
	printTiers(cmd.OutOrStdout(), p.Tiers())
	return nil
}
