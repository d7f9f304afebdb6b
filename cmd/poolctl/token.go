package main

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/patronhq/poolengine/account"
	"github.com/patronhq/poolengine/fixedpoint"
)

func newMintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mint ACCOUNT AMOUNT",
		Short: "Credit stable tokens to an account",
		Long: `Credit stable tokens to an account in the local ledger. This stands in
for the external token contract when operating a data directory by hand.`,
		Args: cobra.ExactArgs(2),
		RunE: withEngine(runMint),
	}
	return cmd
}

func runMint(cmd *cobra.Command, args []string, e *engine) error {
	addr, err := parseAddress("account", args[0])
	if err != nil {
		return err
	}
	amount, err := parseAmount("amount", args[1])
	if err != nil {
		return err
	}
	if err := e.store.Mint(addr, amount); err != nil {
		return err
	}
	bal, err := e.store.Balance(addr)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s balance %s\n", addr, bal)
	return nil
}

func newBalanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance [ACCOUNT]",
		Short: "Show token balances",
		Long:  `Show the balance of ACCOUNT, or of every funded account when omitted.`,
		Args:  cobra.MaximumNArgs(1),
		RunE:  withEngine(runBalance),
	}
	return cmd
}

func runBalance(cmd *cobra.Command, args []string, e *engine) error {
	w := cmd.OutOrStdout()
	if len(args) == 1 {
		addr, err := parseAddress("account", args[0])
		if err != nil {
			return err
		}
		bal, err := e.store.Balance(addr)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, bal)
		return nil
	}

	balances, err := e.store.Balances()
	if err != nil {
		return err
	}
	for _, addr := range sortedAccounts(balances) {
		fmt.Fprintf(w, "%s  %s\n", addr, balances[addr])
	}
	return nil
}

func sortedAccounts(balances map[account.Address]fixedpoint.Amount) []account.Address {
	out := make([]account.Address, 0, len(balances))
	for addr := range balances {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i][:], out[j][:]) < 0 })
	return out
}
