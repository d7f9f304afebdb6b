package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/patronhq/poolengine/account"
	"github.com/patronhq/poolengine/pool"
)

type ownerAction func(p *pool.Pool, requester account.Address, now time.Time) error

// newLifecycleCmds returns one command per owner status transition.
func newLifecycleCmds() []*cobra.Command {
	actions := []struct {
		use, short string
		fn         ownerAction
	}{
		{"activate", "Open an inactive pool for commitments", (*pool.Pool).Activate},
		{"execute", "Begin execution of a funded pool", (*pool.Pool).BeginExecution},
		{"complete", "Mark an executing pool completed", (*pool.Pool).Complete},
		{"pause", "Pause commitments", (*pool.Pool).Pause},
		{"resume", "Resume a paused pool", (*pool.Pool).Resume},
		{"close", "Stop accepting commitments", (*pool.Pool).Close},
		{"cancel", "Cancel a pool and allow refunds", (*pool.Pool).Cancel},
	}

	cmds := make([]*cobra.Command, 0, len(actions))
	for _, a := range actions {
		cmd := &cobra.Command{
			Use:   a.use,
			Short: a.short,
			Args:  cobra.NoArgs,
			RunE:  withEngine(lifecycleRunner(a.fn)),
		}
		addPoolFlag(cmd)
		addAsFlag(cmd, "Pool owner account")
		cmds = append(cmds, cmd)
	}
	return cmds
}

func lifecycleRunner(fn ownerAction) func(*cobra.Command, []string, *engine) error {
	return func(cmd *cobra.Command, args []string, e *engine) error {
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
		if err := fn(p, as, now); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Pool %s is %s\n", p.ID(), p.Status())
		return nil
	}
}
