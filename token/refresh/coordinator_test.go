package refresh_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/jrsteele09/go-auth-bff/internal/errors"
	"github.com/jrsteele09/go-auth-bff/oauthmodel"
	"github.com/jrsteele09/go-auth-bff/token/refresh"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	calls       atomic.Int32
	coordinator *refresh.Coordinator
}

func setupTestFixture(t *testing.T, delay time.Duration, rotate bool, opts ...refresh.Option) *testFixture {
	t.Helper()
	f := &testFixture{}
	f.coordinator = refresh.NewCoordinator(func(ctx context.Context, rt string) (oauthmodel.AccessTokenBundle, error) {
		f.calls.Add(1)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return oauthmodel.AccessTokenBundle{}, apperrors.FromTransport(ctx.Err())
		}
		if rt == "revoked" {
			return oauthmodel.AccessTokenBundle{}, apperrors.ErrInvalidGrant
		}
		b := oauthmodel.AccessTokenBundle{AccessToken: "at-for-" + rt, IDToken: "id"}
		if rotate {
			b.RefreshToken = rt + "-rotated"
		}
		return b, nil
	}, opts...)
	return f
}

func TestCoordinator_ConcurrentRefreshSharesOneCall(t *testing.T) {
	f := setupTestFixture(t, 50*time.Millisecond, true)

	const callers = 10
	var wg sync.WaitGroup
	results := make([]oauthmodel.AccessTokenBundle, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.coordinator.Refresh(context.Background(), "rt-1", false)
		}(i)
	}
	wg.Wait()

	require.Equal(t, int32(1), f.calls.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, results[0], results[i])
	}
	require.Equal(t, "rt-1-rotated", results[0].RefreshToken)
}

func TestCoordinator_PreservesOriginalRefreshToken(t *testing.T) {
	f := setupTestFixture(t, 0, false)

	b, err := f.coordinator.Refresh(context.Background(), "rt-keep", false)
	require.NoError(t, err)
	require.Equal(t, "at-for-rt-keep", b.AccessToken)
	require.Equal(t, "rt-keep", b.RefreshToken)
}

func TestCoordinator_ReuseWindow(t *testing.T) {
	t.Run("late caller gets the same bundle", func(t *testing.T) {
		f := setupTestFixture(t, 0, true)
		first, err := f.coordinator.Refresh(context.Background(), "rt-1", false)
		require.NoError(t, err)
		second, err := f.coordinator.Refresh(context.Background(), "rt-1", false)
		require.NoError(t, err)
		require.Equal(t, first, second)
		require.Equal(t, int32(1), f.calls.Load())
	})

	t.Run("forced refresh goes upstream", func(t *testing.T) {
		f := setupTestFixture(t, 0, false)
		_, err := f.coordinator.Refresh(context.Background(), "rt-1", true)
		require.NoError(t, err)
		_, err = f.coordinator.Refresh(context.Background(), "rt-1", true)
		require.NoError(t, err)
		require.Equal(t, int32(2), f.calls.Load())

		_, err = f.coordinator.Refresh(context.Background(), "rt-1", false)
		require.NoError(t, err)
		require.Equal(t, int32(2), f.calls.Load())
	})

	t.Run("disabled", func(t *testing.T) {
		f := setupTestFixture(t, 0, true, refresh.WithReuseWindow(0))
		_, err := f.coordinator.Refresh(context.Background(), "rt-1", false)
		require.NoError(t, err)
		_, err = f.coordinator.Refresh(context.Background(), "rt-1", false)
		require.NoError(t, err)
		require.Equal(t, int32(2), f.calls.Load())
	})
}

func TestCoordinator_Failures(t *testing.T) {
	t.Run("invalid grant is not cached", func(t *testing.T) {
		f := setupTestFixture(t, 0, false)
		_, err := f.coordinator.Refresh(context.Background(), "revoked", false)
		require.ErrorIs(t, err, apperrors.ErrInvalidGrant)
		_, err = f.coordinator.Refresh(context.Background(), "revoked", false)
		require.ErrorIs(t, err, apperrors.ErrInvalidGrant)
		require.Equal(t, int32(2), f.calls.Load())
	})

	t.Run("missing refresh token", func(t *testing.T) {
		f := setupTestFixture(t, 0, false)
		_, err := f.coordinator.Refresh(context.Background(), "", false)
		require.ErrorIs(t, err, apperrors.ErrUnauthorized)
		require.Equal(t, int32(0), f.calls.Load())
	})

	t.Run("upstream timeout", func(t *testing.T) {
		f := setupTestFixture(t, time.Second, false, refresh.WithTimeout(20*time.Millisecond))
		_, err := f.coordinator.Refresh(context.Background(), "rt-slow", false)
		require.ErrorIs(t, err, apperrors.ErrUpstreamUnavailable)
	})
}

func TestCoordinator_AbandonedWaiterDoesNotCancelFlight(t *testing.T) {
	f := setupTestFixture(t, 50*time.Millisecond, false)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	var wg sync.WaitGroup
	var patient oauthmodel.AccessTokenBundle
	var patientErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		time.Sleep(time.Millisecond)
		patient, patientErr = f.coordinator.Refresh(context.Background(), "rt-1", false)
	}()

	_, err := f.coordinator.Refresh(ctx, "rt-1", false)
	require.ErrorIs(t, err, apperrors.ErrUpstreamUnavailable)

	wg.Wait()
	require.NoError(t, patientErr)
	require.Equal(t, "at-for-rt-1", patient.AccessToken)
	require.Equal(t, int32(1), f.calls.Load())
}

func TestFingerprint(t *testing.T) {
	fp := refresh.Fingerprint("secret-refresh-token")
	require.Len(t, fp, 12)
	require.NotContains(t, fp, "secret")
	require.Equal(t, fp, refresh.Fingerprint("secret-refresh-token"))
	require.NotEqual(t, fp, refresh.Fingerprint("other"))
}
