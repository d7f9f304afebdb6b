package pool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patronhq/poolengine/account"
	"github.com/patronhq/poolengine/event"
	"github.com/patronhq/poolengine/token"
)

func TestRegistry_CreateValidation(t *testing.T) {
	owner := makeAddr(0x01)
	tests := []struct {
		name   string
		mutate func(p *Params)
		err    error
	}{
		{"empty name", func(p *Params) { p.Name = "" }, ErrInvalidParams},
		{"zero owner", func(p *Params) { p.Owner = account.Zero }, ErrInvalidAccount},
		{"zero target", func(p *Params) { p.Target = 0 }, ErrInvalidParams},
		{"cap below target", func(p *Params) { p.Cap = tok(999) }, ErrInvalidParams},
		{"end in the past", func(p *Params) { p.EndTime = t0 }, ErrInvalidParams},
		{"fee above 100%", func(p *Params) { p.FeeBps = 10_001 }, ErrInvalidFee},
		{"active without tiers", func(p *Params) { p.Tiers = nil }, ErrNoTiers},
		{"bad tier", func(p *Params) { p.Tiers[0].Price = 0 }, ErrInvalidTierSpec},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			params := fixedParams(owner, tok(1000), 0)
			tt.mutate(&params)

			_, err := f.reg.Create(params, t0)
			require.ErrorIs(t, err, tt.err)
			assert.NotEqual(t, KindUnknown, KindOf(err))
			assert.Empty(t, f.reg.List())
			assert.Empty(t, f.rec.Events())
		})
	}
}

func TestRegistry_CreateEmitsSetup(t *testing.T) {
	f := newFixture(t)
	params := fixedParams(f.owner, tok(1000), tok(2000))
	params.FeeRecipient = makeAddr(0xFE)
	params.FeeBps = 300
	p := f.create(t, params)

	kinds := make([]event.Kind, 0)
	for _, e := range f.rec.Events() {
		kinds = append(kinds, e.Kind)
	}
	assert.Equal(t, []event.Kind{
		event.KindPoolCreated,
		event.KindTierAdded,
		event.KindFeeConfigured,
		event.KindStatusChanged,
	}, kinds)

	st := p.Snapshot()
	assert.Equal(t, StatusActive, st.Status)
	assert.Equal(t, uint32(300), st.FeeBps)
	assert.Equal(t, tok(2000), st.Cap)
	assert.Equal(t, t0, st.CreatedAt)
	assert.False(t, st.Custody.IsZero())
	assert.NotEqual(t, st.Owner, st.Custody)
}

func TestRegistry_GetAndList(t *testing.T) {
	f := newFixture(t)
	var ids []string
	for i := 0; i < 3; i++ {
		params := fixedParams(f.owner, tok(1000), 0)
		p, err := f.reg.Create(params, t0.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		ids = append(ids, p.ID())
	}

	for _, id := range ids {
		p, err := f.reg.Get(id)
		require.NoError(t, err)
		assert.Equal(t, id, p.ID())
	}

	_, err := f.reg.Get("missing")
	require.ErrorIs(t, err, ErrPoolNotFound)
	assert.Equal(t, KindNotFound, KindOf(err))

	listed := f.reg.List()
	require.Len(t, listed, 3)
	for i, p := range listed {
		assert.Equal(t, ids[i], p.ID())
	}
}

func TestRegistry_LoadFromStore(t *testing.T) {
	ledger := token.NewMemLedger()
	store := &flakyStore{}
	reg := NewRegistry(ledger, Options{Store: store})
	owner := makeAddr(0x01)

	p, err := reg.Create(fixedParams(owner, tok(200), 0), t0)
	require.NoError(t, err)
	patron := makeAddr(0x20)
	require.NoError(t, ledger.Mint(patron, tok(200)))
	_, err = p.Commit(0, tok(100), patron, t0)
	require.NoError(t, err)

	restored := NewRegistry(ledger, Options{Store: store})
	n, err := restored.Load()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	q, err := restored.Get(p.ID())
	require.NoError(t, err)
	assert.Equal(t, p.Snapshot(), q.Snapshot())

	_, err = q.Commit(0, tok(100), patron, t0)
	require.NoError(t, err)
	assert.Equal(t, StatusFunded, q.Status())
	require.NoError(t, q.Verify())

	_, err = restored.Restore(q.Snapshot())
	require.ErrorIs(t, err, ErrPoolExists)
}

func TestRegistry_RestoreRejectsInconsistentState(t *testing.T) {
	f := newFixture(t)
	p := f.create(t, fixedParams(f.owner, tok(1000), 0))
	f.commitAs(t, p, makeAddr(0x20), tok(100), t0)

	st := p.Snapshot()
	st.ID = "tampered"
	st.TotalCommitted = tok(50)

	_, err := f.reg.Restore(st)
	require.ErrorIs(t, err, ErrConservationViolated)
	_, err = f.reg.Get("tampered")
	require.ErrorIs(t, err, ErrPoolNotFound)
}

func TestRegistry_PoolsAreIndependent(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, fixedParams(f.owner, tok(100), 0))
	b := f.create(t, fixedParams(f.owner, tok(100), 0))
	assert.NotEqual(t, a.Custody(), b.Custody())

	patron := makeAddr(0x20)
	f.commitAs(t, a, patron, tok(100), t0)
	assert.Equal(t, StatusFunded, a.Status())
	assert.Equal(t, StatusActive, b.Status())
	assert.Zero(t, b.SharesOf(patron))
	assert.Zero(t, f.ledger.BalanceOf(b.Custody()))
}

func TestRegistry_CreateRejectsCustodyAccounts(t *testing.T) {
	f := newFixture(t)
	existing := f.create(t, fixedParams(f.owner, tok(100), 0))

	params := fixedParams(f.owner, tok(100), 0)
	params.FeeRecipient = existing.Custody()
	params.FeeBps = 100
	_, err := f.reg.Create(params, t0)
	require.ErrorIs(t, err, ErrInvalidAccount)

	params = fixedParams(existing.Custody(), tok(100), 0)
	_, err = f.reg.Create(params, t0)
	require.ErrorIs(t, err, ErrInvalidAccount)
	assert.Len(t, f.reg.List(), 1)

	// Restored pools register their custody account too.
	restored := NewRegistry(f.ledger, Options{})
	_, err = restored.Restore(existing.Snapshot())
	require.NoError(t, err)
	params = fixedParams(f.owner, tok(100), 0)
	params.FeeRecipient = existing.Custody()
	_, err = restored.Create(params, t0)
	require.ErrorIs(t, err, ErrInvalidAccount)
}
