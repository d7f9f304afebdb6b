package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/patronhq/poolengine/fixedpoint"
	"github.com/patronhq/poolengine/pool"
)

func newPoolCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pool",
		Short: "Create and inspect pools",
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a pool",
		Long: `Create a pool owned by --owner. Tiers may be given inline with --tier,
using NAME:fixed:PRICE, NAME:range:MIN-MAX or NAME:unbounded:MIN, each
optionally followed by :CAPACITY.`,
		Args: cobra.NoArgs,
		RunE: withEngine(runPoolCreate),
	}
	create.Flags().String("name", "", "Pool name")
	create.Flags().String("owner", "", "Owner account")
	create.Flags().String("target", "", "Funding target in tokens")
	create.Flags().String("cap", "", "Funding cap in tokens (empty = uncapped)")
	create.Flags().String("end", "", "End time (RFC3339)")
	create.Flags().Duration("duration", 0, "Funding period; overrides the configured default when --end is not set")
	create.Flags().StringArray("tier", nil, "Tier specification (repeatable)")
	create.Flags().Int("fee-bps", -1, "Platform fee in basis points (default from config)")
	create.Flags().String("fee-recipient", "", "Platform fee recipient (default from config)")
	create.Flags().Bool("activate", false, "Open for commitments immediately")

	list := &cobra.Command{
		Use:   "list",
		Short: "List pools",
		Args:  cobra.NoArgs,
		RunE:  withEngine(runPoolList),
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show a pool's accounting state",
		Args:  cobra.NoArgs,
		RunE:  withEngine(runPoolShow),
	}
	addPoolFlag(show)

	status := &cobra.Command{
		Use:   "check",
		Short: "Re-evaluate a pool's status at --now",
		Args:  cobra.NoArgs,
		RunE:  withEngine(runPoolCheck),
	}
	addPoolFlag(status)

	verify := &cobra.Command{
		Use:   "verify",
		Short: "Check value and share conservation",
		Args:  cobra.NoArgs,
		RunE:  withEngine(runPoolVerify),
	}
	addPoolFlag(verify)

	events := &cobra.Command{
		Use:   "events",
		Short: "Print a pool's event journal",
		Args:  cobra.NoArgs,
		RunE:  withEngine(runPoolEvents),
	}
	addPoolFlag(events)

	cmd.AddCommand(create, list, show, status, verify, events)
	return cmd
}

func runPoolCreate(cmd *cobra.Command, args []string, e *engine) error {
	now, err := nowFlag(cmd)
	if err != nil {
		return err
	}
	owner, err := addressFlag(cmd, "owner")
	if err != nil {
		return err
	}
	target, err := amountFlag(cmd, "target")
	if err != nil {
		return err
	}
	capacity, err := amountFlag(cmd, "cap")
	if err != nil {
		return err
	}
	end, err := endTime(cmd, e, now)
	if err != nil {
		return err
	}

	params := pool.Params{
		Owner:   owner,
		Target:  target,
		Cap:     capacity,
		EndTime: end,
		FeeBps:  e.cfg.Pool.FeeBps,
	}
	params.Name, _ = cmd.Flags().GetString("name")
	params.Activate, _ = cmd.Flags().GetBool("activate")

	if bps, _ := cmd.Flags().GetInt("fee-bps"); bps >= 0 {
		params.FeeBps = uint32(bps)
	}
	if cmd.Flags().Changed("fee-recipient") {
		params.FeeRecipient, err = addressFlag(cmd, "fee-recipient")
	} else {
		params.FeeRecipient, err = e.cfg.FeeRecipientAddress()
	}
	if err != nil {
		return err
	}

	tiers, _ := cmd.Flags().GetStringArray("tier")
	for _, s := range tiers {
		spec, err := parseTierSpec(s)
		if err != nil {
			return err
		}
		params.Tiers = append(params.Tiers, spec)
	}

	p, err := e.reg.Create(params, now)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created pool %s (%s)\n", p.ID(), p.Status())
	return nil
}

func endTime(cmd *cobra.Command, e *engine, now time.Time) (time.Time, error) {
	if s, _ := cmd.Flags().GetString("end"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("--end: %w", err)
		}
		return t.UTC(), nil
	}
	d, _ := cmd.Flags().GetDuration("duration")
	if d == 0 {
		d = time.Duration(e.cfg.Pool.DurationDays) * 24 * time.Hour
	}
	return now.Add(d), nil
}

// parseTierSpec reads NAME:PRICING:PRICE[:CAPACITY].
func parseTierSpec(s string) (pool.TierSpec, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 3 || len(parts) > 4 {
		return pool.TierSpec{}, fmt.Errorf("tier %q: want NAME:PRICING:PRICE[:CAPACITY]", s)
	}

	pricing, err := pool.ParsePricing(parts[1])
	if err != nil {
		return pool.TierSpec{}, err
	}
	spec := pool.TierSpec{Name: parts[0], Pricing: pricing}

	switch pricing {
	case pool.PricingFixed:
		spec.Price, err = fixedpoint.Parse(parts[2])
	case pool.PricingRange:
		lo, hi, ok := strings.Cut(parts[2], "-")
		if !ok {
			return pool.TierSpec{}, fmt.Errorf("tier %q: range price wants MIN-MAX", s)
		}
		if spec.MinPrice, err = fixedpoint.Parse(lo); err == nil {
			spec.MaxPrice, err = fixedpoint.Parse(hi)
		}
	case pool.PricingUnbounded:
		spec.MinPrice, err = fixedpoint.Parse(parts[2])
	}
	if err != nil {
		return pool.TierSpec{}, fmt.Errorf("tier %q: %w", s, err)
	}

	if len(parts) == 4 {
		n, err := strconv.ParseUint(parts[3], 10, 32)
		if err != nil {
			return pool.TierSpec{}, fmt.Errorf("tier %q: capacity: %w", s, err)
		}
		spec.Capacity = uint32(n)
	}
	return spec, spec.Validate()
}

func runPoolList(cmd *cobra.Command, args []string, e *engine) error {
	pools := e.reg.List()
	w := cmd.OutOrStdout()
	if len(pools) == 0 {
		fmt.Fprintln(w, "No pools.")
		return nil
	}
	for _, p := range pools {
		st := p.Snapshot()
		fmt.Fprintf(w, "%s  %-12s  %s / %s  %s\n", st.ID, st.Status, st.TotalCommitted, st.Target, st.Name)
	}
	return nil
}

func runPoolShow(cmd *cobra.Command, args []string, e *engine) error {
	p, err := e.pool(cmd)
	if err != nil {
		return err
	}
	printPool(cmd.OutOrStdout(), p.Snapshot())
	return nil
}

func runPoolCheck(cmd *cobra.Command, args []string, e *engine) error {
	p, err := e.pool(cmd)
	if err != nil {
		return err
	}
	now, err := nowFlag(cmd)
	if err != nil {
		return err
	}
	status, err := p.CheckStatus(now)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), status)
	return nil
}

func runPoolVerify(cmd *cobra.Command, args []string, e *engine) error {
	p, err := e.pool(cmd)
	if err != nil {
		return err
	}
	if err := p.Verify(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Pool %s is consistent\n", p.ID())
	return nil
}

func runPoolEvents(cmd *cobra.Command, args []string, e *engine) error {
	p, err := e.pool(cmd)
	if err != nil {
		return err
	}
	events, err := e.store.Events(p.ID())
	if err != nil {
		return err
	}
	printEvents(cmd.OutOrStdout(), events)
	return nil
}
