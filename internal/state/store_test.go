package state

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoplugin/internal/marker"
	"autoplugin/internal/source"
	"autoplugin/internal/target"
)

func spec(cat marker.Category, path string, args ...string) target.Spec {
	return target.Spec{Category: cat, Path: path, Args: args}
}

func site(start uint32) source.Span {
	return source.Span{File: 1, Start: start, End: start + 10}
}

func keys(specs []target.Spec) []string {
	out := make([]string, 0, len(specs))
	for _, s := range specs {
		out = append(out, s.Key())
	}
	return out
}

func TestContributeRejectsDuplicates(t *testing.T) {
	s := New()
	require.NoError(t, s.Contribute("u", spec(marker.RegisterType, "Score"), site(10)))

	err := s.Contribute("u", spec(marker.RegisterType, "Score"), site(40))
	require.ErrorIs(t, err, ErrDuplicate)
	assert.Equal(t, "duplicate attribute", err.Error())

	var cerr *ContributeError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, site(10), cerr.First)

	// same path, other category or other unit: distinct
	assert.NoError(t, s.Contribute("u", spec(marker.InitResource, "Score"), site(50)))
	assert.NoError(t, s.Contribute("v", spec(marker.RegisterType, "Score"), site(60)))

	snap, ok := s.Peek("u")
	require.True(t, ok)
	assert.Equal(t, 2, snap.Len())
}

func TestGenericInstantiationsAreDistinct(t *testing.T) {
	s := New()
	require.NoError(t, s.Contribute("u", spec(marker.RegisterType, "Test", "bool"), site(1)))
	require.NoError(t, s.Contribute("u", spec(marker.RegisterType, "Test", "uint32"), site(2)))
	require.ErrorIs(t, s.Contribute("u", spec(marker.RegisterType, "Test", "bool"), site(3)), ErrDuplicate)

	snap, err := s.Finalize("u", site(100))
	require.NoError(t, err)
	assert.Equal(t, []string{"Test[bool]", "Test[uint32]"}, keys(snap.Categories[marker.RegisterType].Specs))
}

func TestFinalizeLocksUnit(t *testing.T) {
	s := New()
	require.NoError(t, s.Contribute("u", spec(marker.RegisterType, "A"), site(1)))
	_, err := s.Finalize("u", site(20))
	require.NoError(t, err)

	err = s.Contribute("u", spec(marker.RegisterType, "B"), site(30))
	require.ErrorIs(t, err, ErrPluginAlreadyRegistered)
	assert.Equal(t, "plugin already registered above, move plugin fn to the bottom of the file", err.Error())
	var cerr *ContributeError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, site(20), cerr.First)

	_, err = s.Finalize("u", site(40))
	require.ErrorIs(t, err, ErrAlreadyFinalized)
	var ferr *FinalizeError
	require.True(t, errors.As(err, &ferr))
	assert.Equal(t, site(20), ferr.First)

	snap, _ := s.Peek("u")
	assert.Equal(t, 1, snap.Len(), "rejected contribution must not land")
}

func TestSnapshotOrdering(t *testing.T) {
	s := New()
	for _, sp := range []target.Spec{
		spec(marker.AddSystem, "zeta"),
		spec(marker.InitState, "Mode"),
		spec(marker.RegisterType, "b"),
		spec(marker.RegisterType, "a"),
		spec(marker.AutoName, "Name"),
	} {
		if sp.Category == marker.AddSystem {
			sp.Schedule = &target.Schedule{Schedule: "Update"}
		}
		require.NoError(t, s.Contribute("u", sp, site(0)))
	}
	snap, err := s.Finalize("u", site(0))
	require.NoError(t, err)

	require.Len(t, snap.Categories, len(marker.Categories))
	for i, c := range snap.Categories {
		assert.Equal(t, marker.Categories[i], c.Category)
	}
	assert.Equal(t, []string{"a", "b"}, keys(snap.Categories[marker.RegisterType].Specs))
	assert.Equal(t, []string{"zeta @Update"}, keys(snap.Categories[marker.AddSystem].Specs))
	assert.Empty(t, snap.Categories[marker.AddEvent].Specs)
}

func TestUnfinalized(t *testing.T) {
	s := New()
	require.NoError(t, s.Contribute("b.go", spec(marker.RegisterType, "X"), site(0)))
	require.NoError(t, s.Contribute("a.go", spec(marker.RegisterType, "X"), site(0)))
	require.NoError(t, s.Contribute("c.go", spec(marker.RegisterType, "X"), site(0)))
	_, err := s.Finalize("c.go", site(0))
	require.NoError(t, err)

	assert.Equal(t, []Unit{"a.go", "b.go"}, s.Unfinalized())
	assert.Equal(t, []Unit{"a.go", "b.go", "c.go"}, s.Units())

	_, ok := s.Peek("missing.go")
	assert.False(t, ok)
	assert.Equal(t, []Unit{"a.go", "b.go", "c.go"}, s.Units(), "peek must not create units")
}

func TestConcurrentContributions(t *testing.T) {
	s := New()
	const workers = 16
	const perWorker = 50

	var wg sync.WaitGroup
	var mu sync.Mutex
	dups := 0
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				// every worker also tries one shared spec
				if err := s.Contribute("pkg", spec(marker.RegisterType, "Shared"), site(0)); err != nil {
					mu.Lock()
					dups++
					mu.Unlock()
				}
				sp := spec(marker.RegisterType, fmt.Sprintf("T%d_%d", w, i))
				assert.NoError(t, s.Contribute("pkg", sp, site(0)))
			}
		}(w)
	}
	wg.Wait()

	snap, err := s.Finalize("pkg", site(0))
	require.NoError(t, err)
	assert.Equal(t, workers*perWorker+1, snap.Len())
	assert.Equal(t, workers*perWorker-1, dups)
}
