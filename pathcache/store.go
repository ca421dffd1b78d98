package pathcache

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/buntdb"
	"go.uber.org/zap"

	"nyiyui.ca/railopt"
	"nyiyui.ca/railopt/network"
)

// Store is a buntdb-backed cache of AllEdgePairsShortestPaths results,
// keyed by Hash(network). One Store instance holds one open database
// file; callers share it across repeated MIP builds against networks
// that may or may not have changed.
type Store struct {
	db *buntdb.DB
}

// Open opens (creating if necessary) the buntdb file at path.
func Open(path string) (*Store, error) {
	const op = "pathcache.Open"
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, railopt.Wrap(railopt.IoFailure, op, err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	const op = "pathcache.Store.Close"
	if err := s.db.Close(); err != nil {
		return railopt.Wrap(railopt.IoFailure, op, err)
	}
	return nil
}

func pathsKey(hash string) string { return fmt.Sprintf("paths:%s:data", hash) }

// Get looks up a previously stored shortest-path matrix by network hash.
// The second return reports whether an entry was found.
func (s *Store) Get(hash string) ([][]float64, bool, error) {
	const op = "pathcache.Store.Get"
	var found [][]float64
	err := s.db.View(func(tx *buntdb.Tx) error {
		value, err := tx.Get(pathsKey(hash))
		if err == buntdb.ErrNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return json.Unmarshal([]byte(value), &found)
	})
	if err != nil {
		return nil, false, railopt.Wrap(railopt.IoFailure, op, err)
	}
	return found, found != nil, nil
}

// Put stores paths under hash, overwriting any previous entry.
func (s *Store) Put(hash string, paths [][]float64) error {
	const op = "pathcache.Store.Put"
	data, err := json.Marshal(paths)
	if err != nil {
		return railopt.Wrap(railopt.Consistency, op, err)
	}
	err = s.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(pathsKey(hash), string(data), nil)
		return err
	})
	if err != nil {
		return railopt.Wrap(railopt.IoFailure, op, err)
	}
	return nil
}

// GetOrCompute returns the cached shortest-path matrix for n, computing
// and storing it via n.AllEdgePairsShortestPaths on a cache miss.
func (s *Store) GetOrCompute(n *network.Network) ([][]float64, error) {
	hash := Hash(n)
	if cached, ok, err := s.Get(hash); err != nil {
		return nil, err
	} else if ok {
		zap.S().Debugw("pathcache hit", "hash", hash)
		return cached, nil
	}
	zap.S().Debugw("pathcache miss, computing", "hash", hash)
	paths := n.AllEdgePairsShortestPaths()
	if err := s.Put(hash, paths); err != nil {
		return nil, err
	}
	return paths, nil
}
