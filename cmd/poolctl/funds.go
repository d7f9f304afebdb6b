package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/patronhq/poolengine/account"
	"github.com/patronhq/poolengine/fixedpoint"
	"github.com/patronhq/poolengine/pool"
)

func newCommitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Commit tokens to a tier in exchange for shares and a pass",
		Args:  cobra.NoArgs,
		RunE:  withEngine(runCommit),
	}
	addPoolFlag(cmd)
	addAsFlag(cmd, "Patron account")
	cmd.Flags().Int("tier", 0, "Tier index")
	cmd.Flags().String("amount", "", "Amount in tokens")
	return cmd
}

func runCommit(cmd *cobra.Command, args []string, e *engine) error {
	p, err := e.pool(cmd)
	if err != nil {
		return err
	}
	patron, err := addressFlag(cmd, "as")
	if err != nil {
		return err
	}
	amount, err := amountFlag(cmd, "amount")
	if err != nil {
		return err
	}
	now, err := nowFlag(cmd)
	if err != nil {
		return err
	}
	tier, _ := cmd.Flags().GetInt("tier")

	c, err := p.Commit(tier, amount, patron, now)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Commitment %d: %s to tier %d, pass #%d, pool %s\n",
		c.ID, c.Amount, c.Tier, c.PassID, p.Status())
	return nil
}

func newRefundCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refund",
		Short: "Reclaim commitments from a failed or cancelled pool",
		Args:  cobra.NoArgs,
		RunE:  withEngine(patronRunner("Refunded", (*pool.Pool).ClaimRefund)),
	}
	addPoolFlag(cmd)
	addAsFlag(cmd, "Patron account")
	return cmd
}

func newClaimCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "claim",
		Short: "Claim pending revenue share",
		Args:  cobra.NoArgs,
		RunE:  withEngine(patronRunner("Claimed", (*pool.Pool).ClaimDistribution)),
	}
	addPoolFlag(cmd)
	addAsFlag(cmd, "Patron account")
	return cmd
}

func newPendingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "Show a holder's shares and unclaimed revenue",
		Args:  cobra.NoArgs,
		RunE:  withEngine(runPending),
	}
	addPoolFlag(cmd)
	addAsFlag(cmd, "Holder account")
	return cmd
}

type patronAction func(p *pool.Pool, patron account.Address, now time.Time) (fixedpoint.Amount, error)

func patronRunner(verb string, fn patronAction) func(*cobra.Command, []string, *engine) error {
	return func(cmd *cobra.Command, args []string, e *engine) error {
		p, err := e.pool(cmd)
		if err != nil {
			return err
		}
		patron, err := addressFlag(cmd, "as")
		if err != nil {
			return err
		}
		now, err := nowFlag(cmd)
		if err != nil {
			return err
		}
		amount, err := fn(p, patron, now)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", verb, amount)
		return nil
	}
}

func runPending(cmd *cobra.Command, args []string, e *engine) error {
	p, err := e.pool(cmd)
	if err != nil {
		return err
	}
	holder, err := addressFlag(cmd, "as")
	if err != nil {
		return err
	}
	pending, err := p.PendingRewards(holder)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Shares:  %s\n", p.SharesOf(holder))
	fmt.Fprintf(w, "Pending: %s\n", pending)
	return nil
}

func newWithdrawCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Withdraw committed capital to the pool owner",
		Args:  cobra.NoArgs,
		RunE:  withEngine(runWithdraw),
	}
	addPoolFlag(cmd)
	addAsFlag(cmd, "Pool owner account")
	cmd.Flags().String("amount", "", "Amount in tokens (empty = all available)")
	return cmd
}

func runWithdraw(cmd *cobra.Command, args []string, e *engine) error {
	p, err := e.pool(cmd)
	if err != nil {
		return err
	}
	owner, err := addressFlag(cmd, "as")
	if err != nil {
		return err
	}
	amount, err := amountFlag(cmd, "amount")
	if err != nil {
		return err
	}
	now, err := nowFlag(cmd)
	if err != nil {
		return err
	}

	sent, err := p.WithdrawFunds(amount, owner, now)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Withdrew %s\n", sent)
	return nil
}

func newRevenueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revenue",
		Short: "Pay revenue into an executing pool",
		Args:  cobra.NoArgs,
		RunE:  withEngine(runRevenue),
	}
	addPoolFlag(cmd)
	addAsFlag(cmd, "Paying account")
	cmd.Flags().String("amount", "", "Gross revenue in tokens")
	return cmd
}

func runRevenue(cmd *cobra.Command, args []string, e *engine) error {
	p, err := e.pool(cmd)
	if err != nil {
		return err
	}
	payer, err := addressFlag(cmd, "as")
	if err != nil {
		return err
	}
	amount, err := amountFlag(cmd, "amount")
	if err != nil {
		return err
	}
	now, err := nowFlag(cmd)
	if err != nil {
		return err
	}

	if err := p.ReceiveRevenue(amount, payer, now); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Received %s\n", amount)
	return nil
}

func newDistributeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "distribute",
		Short: "Push every holder's pending revenue to them",
		Args:  cobra.NoArgs,
		RunE:  withEngine(runDistribute),
	}
	addPoolFlag(cmd)
	return cmd
}

func runDistribute(cmd *cobra.Command, args []string, e *engine) error {
	p, err := e.pool(cmd)
	if err != nil {
		return err
	}
	now, err := nowFlag(cmd)
	if err != nil {
		return err
	}
	paid, err := p.DistributeRevenue(now)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Distributed %s\n", paid)
	return nil
}

func newFeeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fee",
		Short: "Configure the platform fee before any revenue arrives",
		Args:  cobra.NoArgs,
		RunE:  withEngine(runFee),
	}
	addPoolFlag(cmd)
	addAsFlag(cmd, "Pool owner account")
	cmd.Flags().String("recipient", "", "Fee recipient account")
	cmd.Flags().Uint32("bps", 0, "Fee in basis points")
	return cmd
}

func runFee(cmd *cobra.Command, args []string, e *engine) error {
	p, err := e.pool(cmd)
	if err != nil {
		return err
	}
	owner, err := addressFlag(cmd, "as")
	if err != nil {
		return err
	}
	recipient, err := addressFlag(cmd, "recipient")
	if err != nil {
		return err
	}
	now, err := nowFlag(cmd)
	if err != nil {
		return err
	}
	bps, _ := cmd.Flags().GetUint32("bps")

	if err := p.SetFee(owner, recipient, bps, now); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Fee set to %d bps to %s\n", bps, recipient)
	return nil
}
