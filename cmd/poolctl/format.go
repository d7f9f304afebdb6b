package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/patronhq/poolengine/event"
	"github.com/patronhq/poolengine/pool"
)

func printPool(w io.Writer, st *pool.State) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	row := func(k string, v any) { fmt.Fprintf(tw, "%s:\t%v\n", k, v) }

	row("ID", st.ID)
	row("Name", st.Name)
	row("Status", st.Status)
	row("Owner", st.Owner)
	row("Custody", st.Custody)
	row("Target", st.Target)
	if st.Capped() {
		row("Cap", st.Cap)
	} else {
		row("Cap", "none")
	}
	row("Ends", st.EndTime.Format(time.RFC3339))
	if !st.TargetReachedTime.IsZero() {
		row("Target reached", st.TargetReachedTime.Format(time.RFC3339))
	}
	row("Committed", st.TotalCommitted)
	row("Withdrawn", st.TotalWithdrawn)
	row("Refunded", st.TotalRefunded)
	row("Available", st.Available())
	row("Shares", st.TotalShares)
	row("Revenue (net)", st.RevenueAccumulated)
	row("Distributed", st.RevenueDistributed)
	row("Fees", st.PlatformFeeAccrued)
	if !st.FeeRecipient.IsZero() {
		row("Fee", fmt.Sprintf("%d bps to %s", st.FeeBps, st.FeeRecipient))
	}
	tw.Flush()

	if len(st.Tiers) == 0 {
		return
	}
	fmt.Fprintln(w)
	printTiers(w, st.Tiers)
}

func printTiers(w io.Writer, tiers []pool.Tier) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tNAME\tPRICING\tPRICE\tCAPACITY\tCOMMITS\tCOMMITTED\tACTIVE")
	for _, t := range tiers {
		capacity := "-"
		if t.Capacity != 0 {
			capacity = fmt.Sprint(t.Capacity)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%s\t%t\n",
			t.Index, t.Name, t.Pricing, priceLabel(t.TierSpec), capacity, t.Commitments, t.Committed, t.Active)
	}
	tw.Flush()
}

func priceLabel(s pool.TierSpec) string {
	switch s.Pricing {
	case pool.PricingFixed:
		return s.Price.String()
	case pool.PricingRange:
		return s.MinPrice.String() + "-" + s.MaxPrice.String()
	default:
		return ">=" + s.MinPrice.String()
	}
}

func printEvents(w io.Writer, events []event.Event) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tTIME\tKIND\tACTOR\tAMOUNT\tSTATUS\tRECEIPT")
	for _, e := range events {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Seq, e.Time.Format(time.RFC3339), e.Kind, e.Actor, e.Amount, e.Status, e.ID)
	}
	tw.Flush()
}
