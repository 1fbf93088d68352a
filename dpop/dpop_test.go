package dpop_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/latamteks-cmyk/SmartEdify-app-sub003/dpop"
	"github.com/latamteks-cmyk/SmartEdify-app-sub003/dpop/dpoptest"
	"github.com/latamteks-cmyk/SmartEdify-app-sub003/dpop/repofake"
)

const (
	testTenantID = "tenant-1"
	testHTM      = "POST"
	testHTU      = "https://auth.example.com/oauth2/token"
)

func newValidator(t *testing.T, now time.Time) (*dpop.Validator, *repofake.FakeReplayGuard) {
	t.Helper()
	guard := repofake.NewFakeReplayGuard()
	v := dpop.NewValidator(guard,
		dpop.WithFreshnessWindow(30*time.Second, 5*time.Second),
		dpop.WithNowFunc(func() time.Time { return now }),
	)
	return v, guard
}

func TestValidateProof(t *testing.T) {
	now := time.Now()
	v, _ := newValidator(t, now)

	signer, err := dpoptest.NewProofSigner()
	require.NoError(t, err)

	proof, err := signer.Sign(testHTM, testHTU, now)
	require.NoError(t, err)

	result, err := v.Validate(context.Background(), proof, testHTM, testHTU, testTenantID)
	require.NoError(t, err)

	wantJKT, err := signer.JKT()
	require.NoError(t, err)
	require.Equal(t, wantJKT, result.JKT)
	require.NotEmpty(t, result.JTI)
	require.Equal(t, now.Unix(), result.IAT.Unix())
}

func TestValidateMissingProof(t *testing.T) {
	v, _ := newValidator(t, time.Now())

	_, err := v.Validate(context.Background(), "", testHTM, testHTU, testTenantID)
	require.ErrorIs(t, err, dpop.ErrProofRequired)
}

func TestValidateExpiredProof(t *testing.T) {
	now := time.Now()
	v, _ := newValidator(t, now)

	signer, err := dpoptest.NewProofSigner()
	require.NoError(t, err)

	// A 60-second-old iat is well outside the 30s window.
	proof, err := signer.Sign(testHTM, testHTU, now.Add(-60*time.Second))
	require.NoError(t, err)

	_, err = v.Validate(context.Background(), proof, testHTM, testHTU, testTenantID)
	require.ErrorIs(t, err, dpop.ErrProofExpired)
	require.NotErrorIs(t, err, dpop.ErrReplayDetected)
}

func TestValidateFutureProof(t *testing.T) {
	now := time.Now()
	v, _ := newValidator(t, now)

	signer, err := dpoptest.NewProofSigner()
	require.NoError(t, err)

	proof, err := signer.Sign(testHTM, testHTU, now.Add(time.Minute))
	require.NoError(t, err)

	_, err = v.Validate(context.Background(), proof, testHTM, testHTU, testTenantID)
	require.ErrorIs(t, err, dpop.ErrProofExpired)
}

func TestValidateReplay(t *testing.T) {
	now := time.Now()
	v, _ := newValidator(t, now)

	signer, err := dpoptest.NewProofSigner()
	require.NoError(t, err)

	proof, err := signer.Sign(testHTM, testHTU, now)
	require.NoError(t, err)

	_, err = v.Validate(context.Background(), proof, testHTM, testHTU, testTenantID)
	require.NoError(t, err)

	_, err = v.Validate(context.Background(), proof, testHTM, testHTU, testTenantID)
	require.ErrorIs(t, err, dpop.ErrReplayDetected)
}

func TestValidateMethodMismatch(t *testing.T) {
	now := time.Now()
	v, _ := newValidator(t, now)

	signer, err := dpoptest.NewProofSigner()
	require.NoError(t, err)

	proof, err := signer.Sign("GET", testHTU, now)
	require.NoError(t, err)

	_, err = v.Validate(context.Background(), proof, testHTM, testHTU, testTenantID)
	require.ErrorIs(t, err, dpop.ErrProofInvalid)
}

func TestValidateURLMismatch(t *testing.T) {
	now := time.Now()
	v, _ := newValidator(t, now)

	signer, err := dpoptest.NewProofSigner()
	require.NoError(t, err)

	proof, err := signer.Sign(testHTM, "https://attacker.example.com/oauth2/token", now)
	require.NoError(t, err)

	_, err = v.Validate(context.Background(), proof, testHTM, testHTU, testTenantID)
	require.ErrorIs(t, err, dpop.ErrProofInvalid)
}

func TestValidateIgnoresQueryInHTU(t *testing.T) {
	now := time.Now()
	v, _ := newValidator(t, now)

	signer, err := dpoptest.NewProofSigner()
	require.NoError(t, err)

	proof, err := signer.Sign(testHTM, testHTU, now)
	require.NoError(t, err)

	_, err = v.Validate(context.Background(), proof, testHTM, testHTU+"?foo=bar", testTenantID)
	require.NoError(t, err)
}

func TestValidateGarbageProof(t *testing.T) {
	v, _ := newValidator(t, time.Now())

	_, err := v.Validate(context.Background(), "not-a-jwt", testHTM, testHTU, testTenantID)
	require.ErrorIs(t, err, dpop.ErrProofInvalid)
}

// Two different key pairs reusing the same jti are distinct (jkt, jti) pairs
// and must not collide.
func TestSameJTIDistinctKeys(t *testing.T) {
	now := time.Now()
	v, _ := newValidator(t, now)

	signerA, err := dpoptest.NewProofSigner()
	require.NoError(t, err)
	signerB, err := dpoptest.NewProofSigner()
	require.NoError(t, err)

	const sharedJTI = "shared-jti-value"

	proofA, err := signerA.SignWithJTI(testHTM, testHTU, now, sharedJTI)
	require.NoError(t, err)
	proofB, err := signerB.SignWithJTI(testHTM, testHTU, now, sharedJTI)
	require.NoError(t, err)

	_, err = v.Validate(context.Background(), proofA, testHTM, testHTU, testTenantID)
	require.NoError(t, err)
	_, err = v.Validate(context.Background(), proofB, testHTM, testHTU, testTenantID)
	require.NoError(t, err)
}

// Of N concurrent identical registrations exactly one succeeds.
func TestConcurrentRegistration(t *testing.T) {
	guard := repofake.NewFakeReplayGuard()

	const workers = 32
	var wg sync.WaitGroup
	results := make(chan error, workers)
	start := make(chan struct{})

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			results <- guard.Register(context.Background(), testTenantID, "jkt-1", "jti-1", time.Now())
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	var successes, replays int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case err == dpop.ErrReplayDetected:
			replays++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, successes)
	require.Equal(t, workers-1, replays)
}

func TestPruneBefore(t *testing.T) {
	guard := repofake.NewFakeReplayGuard()
	ctx := context.Background()

	old := time.Now().Add(-2 * time.Minute)
	fresh := time.Now()

	require.NoError(t, guard.Register(ctx, testTenantID, "jkt-1", "jti-old", old))
	require.NoError(t, guard.Register(ctx, testTenantID, "jkt-1", "jti-fresh", fresh))

	removed, err := guard.PruneBefore(ctx, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)
	require.Equal(t, 1, guard.Len())
}
