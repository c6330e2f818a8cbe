package communication

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistrySharesManagerPerIdentity(t *testing.T) {
	f := newFixture()
	f.expectLoad(nil, nil, nil, nil)
	reg := NewRegistry(f.deps(), Options{}, time.Hour)
	t.Cleanup(reg.Close)

	m1, release1, err := reg.Acquire(context.Background(), testIdentity)
	require.NoError(t, err)
	m2, release2, err := reg.Acquire(context.Background(), testIdentity)
	require.NoError(t, err)
	assert.Same(t, m1, m2)
	assert.Equal(t, StatusReady, m1.Snapshot().Status)

	other := testIdentity
	other.Role = "employer"
	m3, release3, err := reg.Acquire(context.Background(), other)
	require.NoError(t, err)
	assert.NotSame(t, m1, m3)
	assert.Equal(t, 2, reg.Len())

	release1()
	release2()
	release3()
	assert.Equal(t, 2, reg.Len())
}

func TestRegistryClosesIdleManagers(t *testing.T) {
	f := newFixture()
	f.expectLoad(nil, nil, nil, nil)
	reg := NewRegistry(f.deps(), Options{}, 20*time.Millisecond)
	t.Cleanup(reg.Close)

	m, release, err := reg.Acquire(context.Background(), testIdentity)
	require.NoError(t, err)
	release()
	release()

	require.Eventually(t, func() bool { return reg.Len() == 0 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, m.isClosed, time.Second, 5*time.Millisecond)

	fresh, release, err := reg.Acquire(context.Background(), testIdentity)
	require.NoError(t, err)
	defer release()
	assert.NotSame(t, m, fresh)
}

func TestRegistryRejectsMissingIdentityAndClosedRegistry(t *testing.T) {
	reg := NewRegistry(Dependencies{}, Options{}, time.Minute)

	_, _, err := reg.Acquire(context.Background(), Identity{ProjectID: "p1"})
	require.ErrorIs(t, err, ErrMissingIdentity)

	reg.Close()
	_, _, err = reg.Acquire(context.Background(), testIdentity)
	require.ErrorIs(t, err, ErrRegistryClosed)
}
