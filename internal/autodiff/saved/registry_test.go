package saved_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradia-ml/gradia/internal/autodiff/saved"
	"github.com/gradia-ml/gradia/internal/tensor"
)

// identityHooks returns a pair that tags packed payloads with the given
// marker so tests can tell which pair handled a tensor.
func identityHooks(marker string, log *[]string) saved.Hooks {
	type payload struct {
		t *tensor.RawTensor
	}
	return saved.Pair(
		func(t *tensor.RawTensor) (payload, error) {
			if log != nil {
				*log = append(*log, "pack:"+marker)
			}
			return payload{t: t}, nil
		},
		func(p payload) (*tensor.RawTensor, error) {
			if log != nil {
				*log = append(*log, "unpack:"+marker)
			}
			return p.t, nil
		},
	)
}

func TestRegistry_SetAndReset(t *testing.T) {
	reg := saved.NewRegistry()
	assert.False(t, reg.Active())
	assert.Nil(t, reg.Snapshot())

	require.NoError(t, reg.Set(identityHooks("a", nil)))
	assert.True(t, reg.Active())
	assert.NotNil(t, reg.Snapshot())

	reg.Reset()
	assert.False(t, reg.Active())
}

func TestRegistry_DoubleSetFails(t *testing.T) {
	reg := saved.NewRegistry()

	var log []string
	require.NoError(t, reg.Set(identityHooks("first", &log)))

	err := reg.Set(identityHooks("second", &log))
	require.ErrorIs(t, err, saved.ErrAlreadyRegistered)

	// The originally registered pair must remain active.
	x, err := tensor.NewRaw(tensor.Shape{2}, tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	_, err = saved.Save(reg, x)
	require.NoError(t, err)
	assert.Equal(t, []string{"pack:first"}, log)
}

func TestRegistry_ResetIdempotent(t *testing.T) {
	reg := saved.NewRegistry()
	reg.Reset()
	reg.Reset()
	assert.False(t, reg.Active())

	require.NoError(t, reg.Set(identityHooks("a", nil)))
	reg.Reset()
	reg.Reset()
	assert.False(t, reg.Active())
}

func TestRegistry_SetNilFails(t *testing.T) {
	reg := saved.NewRegistry()
	require.ErrorIs(t, reg.Set(nil), saved.ErrNilHooks)
	assert.False(t, reg.Active())
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	reg := saved.NewRegistry()

	// Set, Reset and Snapshot race against each other; the registry must
	// never hand out a torn pair. Run under -race.
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				_ = reg.Set(identityHooks("c", nil))
				if h := reg.Snapshot(); h != nil {
					x, err := tensor.NewRaw(tensor.Shape{1}, tensor.Float32, tensor.CPU)
					if err != nil {
						t.Error(err)
						return
					}
					if _, err := h.Pack(x); err != nil {
						t.Error(err)
						return
					}
				}
				reg.Reset()
			}
		}()
	}
	wg.Wait()
}
