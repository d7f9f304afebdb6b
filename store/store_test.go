package store

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"github.com/patronhq/poolengine/account"
	"github.com/patronhq/poolengine/event"
	"github.com/patronhq/poolengine/fixedpoint"
	"github.com/patronhq/poolengine/pool"
	"github.com/patronhq/poolengine/token"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func makeAddr(seed byte) account.Address {
	var addr account.Address
	for i := range addr {
		addr[i] = seed
	}
	return addr
}

func tempBoltStore(t *testing.T) (*BoltStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pools.db")
	store, err := OpenBoltStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, path
}

func params(owner account.Address) pool.Params {
	return pool.Params{
		Name:     "podcast season 2",
		Owner:    owner,
		Target:   200 * fixedpoint.Unit,
		EndTime:  t0.Add(14 * 24 * time.Hour),
		Tiers:    []pool.TierSpec{{Name: "listener", Pricing: pool.PricingFixed, Price: 100 * fixedpoint.Unit}},
		Activate: true,
	}
}

// ---------------------------------------------------------------------------
// Ledger tests
// ---------------------------------------------------------------------------

func TestBoltStore_MintAndSettle(t *testing.T) {
	store, _ := tempBoltStore(t)
	a, b := makeAddr(0xAA), makeAddr(0xBB)

	require.NoError(t, store.Mint(a, 100))
	require.ErrorIs(t, store.Mint(account.Zero, 1), token.ErrZeroAddress)

	err := store.Settle([]token.Transfer{{From: a, To: b, Amount: 60}}, nil)
	require.NoError(t, err)
	assert.Equal(t, fixedpoint.Amount(40), store.BalanceOf(a))
	assert.Equal(t, fixedpoint.Amount(60), store.BalanceOf(b))

	err = store.Settle([]token.Transfer{{From: a, To: b, Amount: 41}}, nil)
	require.ErrorIs(t, err, token.ErrInsufficientBalance)

	balances, err := store.Balances()
	require.NoError(t, err)
	assert.Equal(t, map[account.Address]fixedpoint.Amount{a: 40, b: 60}, balances)
}

func TestBoltStore_SettleRollsBackOnCommitError(t *testing.T) {
	store, _ := tempBoltStore(t)
	a, b := makeAddr(0xAA), makeAddr(0xBB)
	require.NoError(t, store.Mint(a, 100))

	boom := errors.New("boom")
	err := store.Settle([]token.Transfer{{From: a, To: b, Amount: 100}}, func() error {
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, fixedpoint.Amount(100), store.BalanceOf(a))
	assert.Zero(t, store.BalanceOf(b))
}

func TestBoltStore_BalanceReportsReadFailures(t *testing.T) {
	store, _ := tempBoltStore(t)
	a := makeAddr(0xAA)
	require.NoError(t, store.Mint(a, 100))

	require.NoError(t, store.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketBalances).Put(a[:], []byte{0x01})
	}))
	_, err := store.Balance(a)
	require.ErrorIs(t, err, ErrCorruptRecord)

	logger, hook := logtest.NewNullLogger()
	store.SetLogger(logger)
	assert.Zero(t, store.BalanceOf(a))
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Equal(t, a.Hex(), hook.LastEntry().Data["account"])

	require.NoError(t, store.Close())
	_, err = store.Balance(makeAddr(0xBB))
	require.ErrorIs(t, err, bbolt.ErrDatabaseNotOpen)
}

func TestBoltStore_CommitOnClosedStoreIsNotInsufficientFunds(t *testing.T) {
	store, _ := tempBoltStore(t)
	owner, patron := makeAddr(0x01), makeAddr(0x20)
	reg := pool.NewRegistry(store, pool.Options{Store: store})
	p, err := reg.Create(params(owner), t0)
	require.NoError(t, err)
	require.NoError(t, store.Mint(patron, 300*fixedpoint.Unit))
	require.NoError(t, store.Close())

	_, err = p.Commit(0, 100*fixedpoint.Unit, patron, t0.Add(time.Minute))
	require.ErrorIs(t, err, bbolt.ErrDatabaseNotOpen)
	assert.NotErrorIs(t, err, pool.ErrInsufficientFunds)
	assert.Zero(t, p.Snapshot().TotalCommitted)
}

// ---------------------------------------------------------------------------
// Pool snapshot tests
// ---------------------------------------------------------------------------

func TestBoltStore_PoolSurvivesReopen(t *testing.T) {
	store, path := tempBoltStore(t)
	owner, patron := makeAddr(0x01), makeAddr(0x20)

	reg := pool.NewRegistry(store, pool.Options{Store: store})
	p, err := reg.Create(params(owner), t0)
	require.NoError(t, err)
	require.NoError(t, store.Mint(patron, 300*fixedpoint.Unit))
	_, err = p.Commit(0, 100*fixedpoint.Unit, patron, t0.Add(time.Minute))
	require.NoError(t, err)
	_, err = p.Commit(0, 100*fixedpoint.Unit, patron, t0.Add(2*time.Minute))
	require.NoError(t, err)
	require.NoError(t, p.BeginExecution(owner, t0.Add(time.Hour)))
	require.NoError(t, store.Close())

	reopened, err := OpenBoltStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { reopened.Close() })

	restored := pool.NewRegistry(reopened, pool.Options{Store: reopened})
	n, err := restored.Load()
	require.NoError(t, err)
	require.Equal(t, 1, n)

	q, err := restored.Get(p.ID())
	require.NoError(t, err)
	st := q.Snapshot()
	assert.Equal(t, pool.StatusExecuting, st.Status)
	assert.Equal(t, 200*fixedpoint.Unit, st.TotalCommitted)
	assert.True(t, t0.Add(2*time.Minute).Equal(st.TargetReachedTime))
	assert.Len(t, st.Commitments, 2)
	assert.Equal(t, 200*fixedpoint.Unit, q.SharesOf(patron))
	assert.Equal(t, 100*fixedpoint.Unit, reopened.BalanceOf(patron))
	assert.Equal(t, 200*fixedpoint.Unit, reopened.BalanceOf(st.Custody))
	require.NoError(t, q.Verify())

	// revenue flows on the restored pool and is persisted again
	require.NoError(t, reopened.Mint(owner, 50*fixedpoint.Unit))
	require.NoError(t, q.ReceiveRevenue(50*fixedpoint.Unit, owner, t0.Add(2*time.Hour)))
	saved, err := reopened.LoadPool(p.ID())
	require.NoError(t, err)
	assert.Equal(t, 50*fixedpoint.Unit, saved.RevenueAccumulated)
	assert.Equal(t, 0, saved.Accumulator.Cmp(q.Snapshot().Accumulator))
}

func TestBoltStore_FailedOperationPersistsNothing(t *testing.T) {
	store, _ := tempBoltStore(t)
	owner, patron := makeAddr(0x01), makeAddr(0x20)
	reg := pool.NewRegistry(store, pool.Options{Store: store})
	p, err := reg.Create(params(owner), t0)
	require.NoError(t, err)
	require.NoError(t, store.Mint(patron, 50*fixedpoint.Unit))

	_, err = p.Commit(0, 100*fixedpoint.Unit, patron, t0)
	require.ErrorIs(t, err, pool.ErrInsufficientFunds)

	saved, err := store.LoadPool(p.ID())
	require.NoError(t, err)
	assert.Zero(t, saved.TotalCommitted)
	assert.Equal(t, 50*fixedpoint.Unit, store.BalanceOf(patron))
}

func TestBoltStore_LoadPoolNotFound(t *testing.T) {
	store, _ := tempBoltStore(t)
	_, err := store.LoadPool("nope")
	require.ErrorIs(t, err, ErrPoolNotFound)
	require.ErrorIs(t, store.SavePool(nil), ErrNilParam)

	pools, err := store.LoadPools()
	require.NoError(t, err)
	assert.Empty(t, pools)
}

// ---------------------------------------------------------------------------
// Event journal tests
// ---------------------------------------------------------------------------

func TestBoltStore_Journal(t *testing.T) {
	store, _ := tempBoltStore(t)
	owner, patron := makeAddr(0x01), makeAddr(0x20)

	var logs bytes.Buffer
	log := logrus.New()
	log.SetOutput(&logs)

	reg := pool.NewRegistry(store, pool.Options{Store: store, Sink: store.Journal(log)})
	p, err := reg.Create(params(owner), t0)
	require.NoError(t, err)
	require.NoError(t, store.Mint(patron, 100*fixedpoint.Unit))
	_, err = p.Commit(0, 100*fixedpoint.Unit, patron, t0)
	require.NoError(t, err)

	events, err := store.Events(p.ID())
	require.NoError(t, err)
	require.Len(t, events, 5)
	for i, e := range events {
		assert.Equal(t, uint64(i+1), e.Seq)
	}
	assert.Equal(t, event.KindPoolCreated, events[0].Kind)
	assert.Equal(t, event.KindCommitAccepted, events[3].Kind)
	assert.Equal(t, patron, events[3].Actor)
	assert.Equal(t, 100*fixedpoint.Unit, events[3].Amount)
	assert.Empty(t, logs.String())

	none, err := store.Events("other")
	require.NoError(t, err)
	assert.Empty(t, none)
}

// ---------------------------------------------------------------------------
// MemStore tests
// ---------------------------------------------------------------------------

func TestMemStore_RestoresRegistry(t *testing.T) {
	ledger := token.NewMemLedger()
	mem := NewMemStore()
	owner, patron := makeAddr(0x01), makeAddr(0x20)

	reg := pool.NewRegistry(ledger, pool.Options{Store: mem})
	p, err := reg.Create(params(owner), t0)
	require.NoError(t, err)
	require.NoError(t, ledger.Mint(patron, 100*fixedpoint.Unit))
	_, err = p.Commit(0, 100*fixedpoint.Unit, patron, t0)
	require.NoError(t, err)

	states, err := mem.LoadPools()
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.Equal(t, p.ID(), states[0].ID)
	assert.Equal(t, 100*fixedpoint.Unit, states[0].Holders[patron].Shares)
	assert.Equal(t, pool.StatusActive, states[0].Status)

	restored := pool.NewRegistry(ledger, pool.Options{Store: mem})
	n, err := restored.Load()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
