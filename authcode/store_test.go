package authcode_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/latamteks-cmyk/SmartEdify-app-sub003/authcode"
	"github.com/latamteks-cmyk/SmartEdify-app-sub003/authcode/repofake"
)

const (
	testClientID    = "client-1"
	testTenantID    = "tenant-1"
	testRedirectURI = "https://app.example.com/callback"
	testUserID      = "user-1"
)

func issueParams() authcode.IssueParams {
	return authcode.IssueParams{
		ClientID:            testClientID,
		TenantID:            testTenantID,
		RedirectURI:         testRedirectURI,
		Scope:               "openid profile",
		CodeChallenge:       "challenge-value",
		CodeChallengeMethod: "S256",
	}
}

func TestIssueBindConsume(t *testing.T) {
	ctx := context.Background()
	store := authcode.NewStore(repofake.NewFakeCodeRepo())

	code, err := store.Issue(ctx, issueParams())
	require.NoError(t, err)
	require.NotEmpty(t, code)

	require.NoError(t, store.Bind(ctx, code, testUserID, "device-1"))

	record, err := store.Consume(ctx, code, testRedirectURI)
	require.NoError(t, err)
	require.Equal(t, testUserID, record.UserID)
	require.Equal(t, testClientID, record.ClientID)
	require.Equal(t, "challenge-value", record.CodeChallenge)
}

func TestConsumeTwice(t *testing.T) {
	ctx := context.Background()
	store := authcode.NewStore(repofake.NewFakeCodeRepo())

	code, err := store.Issue(ctx, issueParams())
	require.NoError(t, err)
	require.NoError(t, store.Bind(ctx, code, testUserID, ""))

	_, err = store.Consume(ctx, code, testRedirectURI)
	require.NoError(t, err)

	_, err = store.Consume(ctx, code, testRedirectURI)
	require.ErrorIs(t, err, authcode.ErrCodeInvalid)
}

// A code remains burned even if its first exchange failed downstream.
func TestConsumeAfterFailedExchange(t *testing.T) {
	ctx := context.Background()
	store := authcode.NewStore(repofake.NewFakeCodeRepo())

	code, err := store.Issue(ctx, issueParams())
	require.NoError(t, err)
	require.NoError(t, store.Bind(ctx, code, testUserID, ""))

	_, err = store.Consume(ctx, code, "https://wrong.example.com/callback")
	require.ErrorIs(t, err, authcode.ErrCodeInvalid)

	_, err = store.Consume(ctx, code, testRedirectURI)
	require.ErrorIs(t, err, authcode.ErrCodeInvalid)
}

func TestConsumeUnboundCode(t *testing.T) {
	ctx := context.Background()
	store := authcode.NewStore(repofake.NewFakeCodeRepo())

	code, err := store.Issue(ctx, issueParams())
	require.NoError(t, err)

	_, err = store.Consume(ctx, code, testRedirectURI)
	require.ErrorIs(t, err, authcode.ErrCodeInvalid)
}

func TestConsumeExpiredCode(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	current := now
	store := authcode.NewStore(repofake.NewFakeCodeRepo(),
		authcode.WithTTL(time.Minute),
		authcode.WithNowFunc(func() time.Time { return current }),
	)

	code, err := store.Issue(ctx, issueParams())
	require.NoError(t, err)
	require.NoError(t, store.Bind(ctx, code, testUserID, ""))

	current = now.Add(2 * time.Minute)
	_, err = store.Consume(ctx, code, testRedirectURI)
	require.ErrorIs(t, err, authcode.ErrCodeInvalid)
}

func TestConcurrentConsume(t *testing.T) {
	ctx := context.Background()
	store := authcode.NewStore(repofake.NewFakeCodeRepo())

	code, err := store.Issue(ctx, issueParams())
	require.NoError(t, err)
	require.NoError(t, store.Bind(ctx, code, testUserID, ""))

	const workers = 16
	var wg sync.WaitGroup
	results := make(chan error, workers)
	start := make(chan struct{})

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := store.Consume(ctx, code, testRedirectURI)
			results <- err
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	var successes int
	for err := range results {
		if err == nil {
			successes++
		} else {
			require.ErrorIs(t, err, authcode.ErrCodeInvalid)
		}
	}
	require.Equal(t, 1, successes)
}

func TestPruneExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	current := now
	store := authcode.NewStore(repofake.NewFakeCodeRepo(),
		authcode.WithTTL(time.Minute),
		authcode.WithNowFunc(func() time.Time { return current }),
	)

	_, err := store.Issue(ctx, issueParams())
	require.NoError(t, err)

	current = now.Add(2 * time.Minute)
	removed, err := store.PruneExpired(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)
}
