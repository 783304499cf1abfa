package graph

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"tether/internal/api"
	"tether/pkg/logging"
)

// Key layout:
//
//	n/<id>             -> JSON api.Node
//	o/<from>\x00<to>   -> JSON edgeValue
//	i/<to>\x00<from>   -> JSON edgeValue
//	v/<id>             -> edge version marker, rewritten by every PutEdge
//
// The NUL separator keeps prefix scans exact for ids that share a prefix.
//
// Badger only detects conflicts on keys a transaction read, never on the
// ranges it scanned. PutEdge therefore writes v/ for both endpoints and the
// edge-deleting transactions read it first, so an edge added concurrently with
// DeleteNode turns into ErrConflict instead of a dangling edge.
const (
	nodePrefix    = "n/"
	outPrefix     = "o/"
	inPrefix      = "i/"
	versionPrefix = "v/"
	keySep        = "\x00"

	// maxConflictAttempts bounds re-execution of a transaction that lost an
	// optimistic-concurrency race. A conflicting transaction never committed,
	// so re-running it is safe.
	maxConflictAttempts = 3
)

type edgeValue struct {
	Hostname string `json:"hostname"`
}

func nodeKey(id string) []byte { return []byte(nodePrefix + id) }

func versionKey(id string) []byte { return []byte(versionPrefix + id) }

func outKey(from, to string) []byte { return []byte(outPrefix + from + keySep + to) }

func inKey(to, from string) []byte { return []byte(inPrefix + to + keySep + from) }

func outScanPrefix(from string) []byte { return []byte(outPrefix + from + keySep) }

func inScanPrefix(to string) []byte { return []byte(inPrefix + to + keySep) }

// BadgerConfig holds configuration for the badger-backed graph store.
type BadgerConfig struct {
	// Path is the directory for database files. Ignored when InMemory is true.
	Path string

	// InMemory keeps everything in RAM. Used by tests.
	InMemory bool

	// SyncWrites fsyncs every commit.
	SyncWrites bool

	// GCInterval is how often value-log GC runs. Zero disables it.
	GCInterval time.Duration

	// GCDiscardRatio is the minimum garbage ratio that triggers a rewrite.
	GCDiscardRatio float64

	// Logger receives badger's internal logs. Nil disables them.
	Logger *slog.Logger
}

// DefaultBadgerConfig returns production defaults for path.
func DefaultBadgerConfig(path string) BadgerConfig {
	return BadgerConfig{
		Path:           path,
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryBadgerConfig returns a configuration suitable for tests.
func InMemoryBadgerConfig() BadgerConfig {
	return BadgerConfig{InMemory: true}
}

// badgerLogger adapts slog.Logger to badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...), slog.String("subsystem", "GraphStore"))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...), slog.String("subsystem", "GraphStore"))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...), slog.String("subsystem", "GraphStore"))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...), slog.String("subsystem", "GraphStore"))
}

// BadgerStore implements Store on an embedded badger database. Each mutation
// is a single read-write transaction, so node and edge writes are atomic.
type BadgerStore struct {
	db     *badger.DB
	stopGC chan struct{}
	gcDone chan struct{}
}

var _ Store = (*BadgerStore)(nil)

// OpenBadger opens (or creates) a badger graph store.
func OpenBadger(cfg BadgerConfig) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent graph store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(filepath.Clean(cfg.Path), 0750); err != nil {
			return nil, fmt.Errorf("create graph store directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(filepath.Clean(cfg.Path))
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger graph store: %w", err)
	}

	s := &BadgerStore{db: db}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		s.startGC(cfg.GCInterval, cfg.GCDiscardRatio)
	}
	return s, nil
}

func (s *BadgerStore) startGC(interval time.Duration, ratio float64) {
	s.stopGC = make(chan struct{})
	s.gcDone = make(chan struct{})
	go func() {
		defer close(s.gcDone)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stopGC:
				return
			case <-ticker.C:
				err := s.db.RunValueLogGC(ratio)
				if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
					logging.Warn("GraphStore", "Value log GC failed: %v", err)
				}
			}
		}
	}()
}

// Close stops GC and closes the database.
func (s *BadgerStore) Close() error {
	if s.stopGC != nil {
		close(s.stopGC)
		<-s.gcDone
		s.stopGC = nil
	}
	return s.db.Close()
}

func (s *BadgerStore) update(ctx context.Context, op string, fn func(txn *badger.Txn) error) error {
	if err := checkContext(ctx, op); err != nil {
		return err
	}
	var err error
	for attempt := 0; attempt < maxConflictAttempts; attempt++ {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
		logging.Debug("GraphStore", "%s transaction conflict, attempt %d", op, attempt+1)
	}
	return mapBadgerError(op, err)
}

func (s *BadgerStore) view(ctx context.Context, op string, fn func(txn *badger.Txn) error) error {
	if err := checkContext(ctx, op); err != nil {
		return err
	}
	return mapBadgerError(op, s.db.View(fn))
}

func mapBadgerError(op string, err error) error {
	if err == nil || api.IsNotFound(err) {
		return err
	}
	return api.NewStoreUnavailableError(op, err)
}

// requireNode fails with NotFound when id has no node.
func requireNode(txn *badger.Txn, id string) error {
	_, err := txn.Get(nodeKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return api.NewNodeNotFoundError(id)
	}
	return err
}

// UpsertNode writes the node record.
func (s *BadgerStore) UpsertNode(ctx context.Context, node api.Node) error {
	data, err := json.Marshal(node)
	if err != nil {
		return fmt.Errorf("encode node %s: %w", node.ID, err)
	}
	return s.update(ctx, "UpsertNode", func(txn *badger.Txn) error {
		return txn.Set(nodeKey(node.ID), data)
	})
}

// GetNode reads a node record.
func (s *BadgerStore) GetNode(ctx context.Context, id string) (*api.Node, error) {
	var out api.Node
	err := s.view(ctx, "GetNode", func(txn *badger.Txn) error {
		item, err := txn.Get(nodeKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return api.NewNodeNotFoundError(id)
		}
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			return json.Unmarshal(v, &out)
		})
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// NodeIDs scans the node keyspace. Keys sort by id.
func (s *BadgerStore) NodeIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.view(ctx, "NodeIDs", func(txn *badger.Txn) error {
		ids = collectOthers(txn, []byte(nodePrefix))
		return nil
	})
	return ids, err
}

// DeleteNode removes the node and every edge touching it in one transaction.
func (s *BadgerStore) DeleteNode(ctx context.Context, id string) error {
	return s.update(ctx, "DeleteNode", func(txn *badger.Txn) error {
		return deleteNodeTxn(txn, id)
	})
}

func deleteNodeTxn(txn *badger.Txn, id string) error {
	if err := deleteEdgesTxn(txn, id); err != nil {
		return err
	}
	if err := txn.Delete(versionKey(id)); err != nil {
		return err
	}
	return txn.Delete(nodeKey(id))
}

// PutEdge writes both directions of the edge after checking that the nodes exist.
func (s *BadgerStore) PutEdge(ctx context.Context, from, to, hostname string) error {
	data, err := json.Marshal(edgeValue{Hostname: hostname})
	if err != nil {
		return fmt.Errorf("encode edge %s -> %s: %w", from, to, err)
	}
	return s.update(ctx, "PutEdge", func(txn *badger.Txn) error {
		if err := requireNode(txn, from); err != nil {
			return err
		}
		if err := requireNode(txn, to); err != nil {
			return err
		}
		if err := touchVersion(txn, from); err != nil {
			return err
		}
		if err := touchVersion(txn, to); err != nil {
			return err
		}
		if err := txn.Set(outKey(from, to), data); err != nil {
			return err
		}
		return txn.Set(inKey(to, from), data)
	})
}

// DeleteEdge removes both directions of the edge.
func (s *BadgerStore) DeleteEdge(ctx context.Context, from, to string) error {
	return s.update(ctx, "DeleteEdge", func(txn *badger.Txn) error {
		if err := txn.Delete(outKey(from, to)); err != nil {
			return err
		}
		return txn.Delete(inKey(to, from))
	})
}

// OutEdges scans the outgoing adjacency of id.
func (s *BadgerStore) OutEdges(ctx context.Context, id string) ([]api.Edge, error) {
	var edges []api.Edge
	err := s.view(ctx, "OutEdges", func(txn *badger.Txn) error {
		return scanEdges(txn, outScanPrefix(id), func(other string, v edgeValue) {
			edges = append(edges, api.Edge{From: id, To: other, Hostname: v.Hostname})
		})
	})
	return edges, err
}

// InEdges scans the incoming adjacency of id.
func (s *BadgerStore) InEdges(ctx context.Context, id string) ([]api.Edge, error) {
	var edges []api.Edge
	err := s.view(ctx, "InEdges", func(txn *badger.Txn) error {
		return scanEdges(txn, inScanPrefix(id), func(other string, v edgeValue) {
			edges = append(edges, api.Edge{From: other, To: id, Hostname: v.Hostname})
		})
	})
	return edges, err
}

// DeleteEdgesForNode removes every edge touching id, keeping the node.
func (s *BadgerStore) DeleteEdgesForNode(ctx context.Context, id string) error {
	return s.update(ctx, "DeleteEdgesForNode", func(txn *badger.Txn) error {
		return deleteEdgesTxn(txn, id)
	})
}

// scanEdges iterates keys under prefix in key order, which sorts by the
// opposite endpoint id.
func scanEdges(txn *badger.Txn, prefix []byte, fn func(other string, v edgeValue)) error {
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		other := string(bytes.TrimPrefix(item.Key(), prefix))
		var v edgeValue
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &v)
		}); err != nil {
			return fmt.Errorf("decode edge %q: %w", item.Key(), err)
		}
		fn(other, v)
	}
	return nil
}

func collectOthers(txn *badger.Txn, prefix []byte) []string {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()
	var others []string
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		others = append(others, string(bytes.TrimPrefix(it.Item().KeyCopy(nil), prefix)))
	}
	return others
}

func touchVersion(txn *badger.Txn, id string) error {
	var stamp [8]byte
	binary.BigEndian.PutUint64(stamp[:], uint64(time.Now().UnixNano()))
	return txn.Set(versionKey(id), stamp[:])
}

// deleteEdgesTxn must run in the caller's update transaction. Reading the
// version key registers it for conflict detection against concurrent PutEdge.
func deleteEdgesTxn(txn *badger.Txn, id string) error {
	if _, err := txn.Get(versionKey(id)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return err
	}
	for _, to := range collectOthers(txn, outScanPrefix(id)) {
		if err := txn.Delete(outKey(id, to)); err != nil {
			return err
		}
		if err := txn.Delete(inKey(to, id)); err != nil {
			return err
		}
	}
	for _, from := range collectOthers(txn, inScanPrefix(id)) {
		if err := txn.Delete(inKey(id, from)); err != nil {
			return err
		}
		if err := txn.Delete(outKey(from, id)); err != nil {
			return err
		}
	}
	return nil
}
