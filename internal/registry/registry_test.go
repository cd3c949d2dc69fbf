package registry_test

import (
	"sync"
	"testing"
	"time"

	"github.com/aegis-labs/aegis/internal/domain"
	"github.com/aegis-labs/aegis/internal/registry"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPosition(protocol string) domain.Position {
	return domain.Position{
		ID:               uuid.New(),
		Protocol:         protocol,
		CollateralTokens: map[domain.TokenAddress]domain.PositionToken{},
		DebtTokens:       map[domain.TokenAddress]domain.PositionToken{},
		CreatedAt:        time.Now().UTC(),
		UpdatedAt:        time.Now().UTC(),
	}
}

func TestAddGetRemove(t *testing.T) {
	reg := registry.New()
	position := newPosition("aave")

	require.NoError(t, reg.Add(position))

	got, err := reg.Get(position.ID)
	require.NoError(t, err)
	assert.Equal(t, position.ID, got.ID)

	require.NoError(t, reg.Remove(position.ID))
	_, err = reg.Get(position.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPositionNotFound)
}

func TestAddDuplicateFails(t *testing.T) {
	reg := registry.New()
	position := newPosition("aave")
	require.NoError(t, reg.Add(position))

	err := reg.Add(position)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPositionAlreadyExists)
}

func TestUpdateMissingFails(t *testing.T) {
	reg := registry.New()
	err := reg.Update(newPosition("aave"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPositionNotFound)
}

func TestGetReturnsCloneNotLiveReference(t *testing.T) {
	reg := registry.New()
	position := newPosition("aave")
	position.CollateralTokens["0xWETH"] = domain.PositionToken{TokenAddress: "0xWETH"}
	require.NoError(t, reg.Add(position))

	got, err := reg.Get(position.ID)
	require.NoError(t, err)
	got.CollateralTokens["0xUSDC"] = domain.PositionToken{TokenAddress: "0xUSDC"}

	again, err := reg.Get(position.ID)
	require.NoError(t, err)
	assert.Len(t, again.CollateralTokens, 1)
}

func TestListSnapshotAndCount(t *testing.T) {
	reg := registry.New()
	for i := 0; i < 5; i++ {
		require.NoError(t, reg.Add(newPosition("aave")))
	}
	assert.Equal(t, 5, reg.Count())
	assert.Len(t, reg.ListSnapshot(), 5)
}

func TestListByProtocol(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Add(newPosition("aave")))
	require.NoError(t, reg.Add(newPosition("compound")))
	require.NoError(t, reg.Add(newPosition("aave")))

	assert.Len(t, reg.ListByProtocol("aave"), 2)
	assert.Len(t, reg.ListByProtocol("compound"), 1)
	assert.Empty(t, reg.ListByProtocol("makerdao"))
}

func TestConcurrentAccess(t *testing.T) {
	reg := registry.New()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = reg.Add(newPosition("aave"))
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, reg.Count())

	positions := reg.ListSnapshot()
	wg.Add(len(positions))
	for _, p := range positions {
		go func(id uuid.UUID) {
			defer wg.Done()
			_, _ = reg.Get(id)
		}(p.ID)
	}
	wg.Wait()
}
