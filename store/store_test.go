package store

import (
	"errors"
	"path/filepath"
	"testing"

	"uk.ac.bris.cs/lockstep/gol"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "worker.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestIntegers(t *testing.T) {
	store := openTemp(t)
	err := store.Update(func(tx *Tx) error {
		if err := tx.PutInt("stats", "aliveCount", 12); err != nil {
			return err
		}
		return tx.PutInt("stats", "index", -1)
	})
	if err != nil {
		t.Fatal(err)
	}
	err = store.View(func(tx *Tx) error {
		alive, err := tx.GetInt("stats", "aliveCount")
		if err != nil {
			return err
		}
		index, err := tx.GetInt("stats", "index")
		if err != nil {
			return err
		}
		if alive != 12 || index != -1 {
			t.Errorf("got %d, %d", alive, index)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestMissingKey(t *testing.T) {
	store := openTemp(t)
	err := store.View(func(tx *Tx) error {
		_, err := tx.GetInt("stats", "nothing")
		return err
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestFailedUpdateRollsBack(t *testing.T) {
	store := openTemp(t)
	failure := errors.New("abort")
	err := store.Update(func(tx *Tx) error {
		if err := tx.PutInt("stats", "deadCount", 5); err != nil {
			return err
		}
		return failure
	})
	if !errors.Is(err, failure) {
		t.Fatalf("got %v", err)
	}
	err = store.View(func(tx *Tx) error {
		_, err := tx.GetInt("stats", "deadCount")
		return err
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("write of failed transaction visible: %v", err)
	}
}

func TestCompareAndSwap(t *testing.T) {
	store := openTemp(t)
	store.Update(func(tx *Tx) error { return tx.PutInt("stats", "simulationStarted", 0) })

	var swapped, again bool
	err := store.Update(func(tx *Tx) (err error) {
		if swapped, err = tx.CompareAndSwapInt("stats", "simulationStarted", 0, 1); err != nil {
			return err
		}
		again, err = tx.CompareAndSwapInt("stats", "simulationStarted", 0, 1)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if !swapped || again {
		t.Errorf("first swap %v, second swap %v", swapped, again)
	}
}

func TestGridsSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "worker.db")
	store, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	grid := gol.GridFromBools([][]bool{{true, false}, {false, false}})
	if err := store.Update(func(tx *Tx) error { return tx.PutGrid("generations", "0", grid) }); err != nil {
		t.Fatal(err)
	}
	store.Close()

	store, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	var loaded *gol.Grid
	err = store.View(func(tx *Tx) (err error) {
		loaded, err = tx.GetGrid("generations", "0")
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if !loaded.Equal(grid) {
		t.Errorf("got\n%swant\n%s", loaded, grid)
	}

	store.Update(func(tx *Tx) error { return tx.Clear("generations") })
	err = store.View(func(tx *Tx) error {
		_, err := tx.GetGrid("generations", "0")
		return err
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("cleared grid still readable: %v", err)
	}
}
