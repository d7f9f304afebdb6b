package store

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"go.etcd.io/bbolt"

	"github.com/patronhq/poolengine/account"
	"github.com/patronhq/poolengine/event"
	"github.com/patronhq/poolengine/fixedpoint"
	"github.com/patronhq/poolengine/pool"
	"github.com/patronhq/poolengine/token"
)

var (
	bucketPools    = []byte("pools")
	bucketBalances = []byte("balances")
	bucketEvents   = []byte("events")
)

// BoltStore keeps pool snapshots, token balances and the event journal in
// one bbolt database. It is both a pool.Store and a token.Ledger: a
// settlement moves balances and saves the pool snapshot in the same bbolt
// transaction.
type BoltStore struct {
	db *bbolt.DB

	mu       sync.Mutex // serializes Settle
	settling *bbolt.Tx  // open while a Settle commit callback runs

	log logrus.FieldLogger
}

// Compile-time interface checks.
var (
	_ pool.Store           = (*BoltStore)(nil)
	_ token.Ledger         = (*BoltStore)(nil)
	_ token.BalanceChecker = (*BoltStore)(nil)
)

// OpenBoltStore opens or creates the bbolt database at dbPath.
// The parent directory is created if it does not exist.
func OpenBoltStore(dbPath string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("store: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("store: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketPools, bucketBalances, bucketEvents} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("store: create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	log := logrus.New()
	log.SetOutput(io.Discard)
	return &BoltStore{db: db, log: log}, nil
}

// SetLogger sets the logger used to report read failures that cannot be
// returned to the caller.
func (s *BoltStore) SetLogger(log logrus.FieldLogger) {
	s.log = log
}

// Close closes the underlying database.
func (s *BoltStore) Close() error { return s.db.Close() }

// ---------------------------------------------------------------------------
// Pool snapshots
// ---------------------------------------------------------------------------

// SavePool stores st under its id. Inside a Settle commit callback the
// write joins the settlement's transaction.
func (s *BoltStore) SavePool(st *pool.State) error {
	if st == nil {
		return fmt.Errorf("%w: pool state", ErrNilParam)
	}
	data, err := encodeGob(st)
	if err != nil {
		return fmt.Errorf("store: encode pool %s: %w", st.ID, err)
	}
	put := func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketPools).Put([]byte(st.ID), data); err != nil {
			return fmt.Errorf("store: put pool %s: %w", st.ID, err)
		}
		return nil
	}
	if tx := s.settling; tx != nil {
		return put(tx)
	}
	return s.db.Update(put)
}

// LoadPool returns the snapshot stored under id.
func (s *BoltStore) LoadPool(id string) (*pool.State, error) {
	var st pool.State
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketPools).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrPoolNotFound, id)
		}
		if err := decodeGob(data, &st); err != nil {
			return fmt.Errorf("%w: pool %s: %v", ErrCorruptRecord, id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// LoadPools returns every stored snapshot ordered by id.
func (s *BoltStore) LoadPools() ([]*pool.State, error) {
	var out []*pool.State
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketPools).ForEach(func(k, v []byte) error {
			var st pool.State
			if err := decodeGob(v, &st); err != nil {
				return fmt.Errorf("%w: pool %s: %v", ErrCorruptRecord, k, err)
			}
			out = append(out, &st)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Token ledger
// ---------------------------------------------------------------------------

func readBalance(b *bbolt.Bucket, addr account.Address) fixedpoint.Amount {
	bal, _ := decodeAmount(b.Get(addr[:]))
	return bal
}

func writeBalance(b *bbolt.Bucket, addr account.Address, bal fixedpoint.Amount) error {
	if bal == 0 {
		return b.Delete(addr[:])
	}
	return b.Put(addr[:], encodeAmount(bal))
}

// Balance returns the stored balance of addr. A database failure or a
// corrupt record is returned as an error, never as a zero balance.
func (s *BoltStore) Balance(addr account.Address) (fixedpoint.Amount, error) {
	var bal fixedpoint.Amount
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketBalances).Get(addr[:])
		if v == nil {
			return nil
		}
		var ok bool
		if bal, ok = decodeAmount(v); !ok {
			return fmt.Errorf("%w: balance %s", ErrCorruptRecord, addr)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("store: read balance %s: %w", addr, err)
	}
	return bal, nil
}

// BalanceOf is Balance for the token.Ledger interface. Read failures are
// logged and reported as a zero balance; callers that must tell the two
// apart use Balance or token.Balance.
func (s *BoltStore) BalanceOf(addr account.Address) fixedpoint.Amount {
	bal, err := s.Balance(addr)
	if err != nil {
		s.log.WithError(err).WithField("account", addr.Hex()).Error("balance read failed")
	}
	return bal
}

// Settle validates transfers, writes the new balances and runs commit in a
// single bbolt transaction. An error from commit rolls everything back.
func (s *BoltStore) Settle(transfers []token.Transfer, commit func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketBalances)
		staged, err := token.Stage(func(a account.Address) fixedpoint.Amount {
			return readBalance(b, a)
		}, transfers)
		if err != nil {
			return err
		}
		for addr, bal := range staged {
			if err := writeBalance(b, addr, bal); err != nil {
				return fmt.Errorf("store: put balance: %w", err)
			}
		}
		if commit == nil {
			return nil
		}
		s.settling = tx
		defer func() { s.settling = nil }()
		return commit()
	})
}

// Mint credits amount to addr.
func (s *BoltStore) Mint(addr account.Address, amount fixedpoint.Amount) error {
	if addr.IsZero() {
		return token.ErrZeroAddress
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketBalances)
		next, err := readBalance(b, addr).Add(amount)
		if err != nil {
			return fmt.Errorf("store: mint: %w", err)
		}
		return writeBalance(b, addr, next)
	})
}

// Balances returns every non-zero balance.
func (s *BoltStore) Balances() (map[account.Address]fixedpoint.Amount, error) {
	out := make(map[account.Address]fixedpoint.Amount)
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketBalances).ForEach(func(k, v []byte) error {
			bal, ok := decodeAmount(v)
			if !ok || len(k) != len(account.Address{}) {
				return fmt.Errorf("%w: balance %x", ErrCorruptRecord, k)
			}
			var addr account.Address
			copy(addr[:], k)
			out[addr] = bal
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Event journal
// ---------------------------------------------------------------------------

// AppendEvent stores e in its pool's journal, keyed by sequence number.
func (s *BoltStore) AppendEvent(e event.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("store: encode event: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.Bucket(bucketEvents).CreateBucketIfNotExists([]byte(e.PoolID))
		if err != nil {
			return fmt.Errorf("store: create journal %s: %w", e.PoolID, err)
		}
		return b.Put(seqKey(e.Seq), data)
	})
}

// Events returns the journal of poolID in sequence order.
func (s *BoltStore) Events(poolID string) ([]event.Event, error) {
	var out []event.Event
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEvents).Bucket([]byte(poolID))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var e event.Event
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("%w: event %s/%x: %v", ErrCorruptRecord, poolID, k, err)
			}
			out = append(out, e)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Journal returns a sink that appends every event to the store. Write
// failures are logged; they cannot undo the committed operation.
func (s *BoltStore) Journal(log logrus.FieldLogger) event.Sink {
	return event.SinkFunc(func(e event.Event) {
		if err := s.AppendEvent(e); err != nil {
			log.WithError(err).WithField("pool_id", e.PoolID).Warn("journal event")
		}
	})
}
