package registry

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonline-io/jonline-go/internal/api"
	"github.com/stretchr/testify/require"
)

func testAccount(serverID, userID string) Account {
	return Account{
		ServerID:    serverID,
		User:        api.User{ID: userID, Username: "user-" + userID},
		AccessToken: api.ExpirableToken{Token: "tok-" + userID},
	}
}

func configurationWithCDN(frontend, backend string) *api.ServerConfiguration {
	return &api.ServerConfiguration{
		ExternalCDNConfig: &api.ExternalCDNConfig{FrontendHost: frontend, BackendHost: backend},
	}
}

func TestAccountID_CombinesServerAndUser(t *testing.T) {
	acc := testAccount("https:jonline.io", "3Taj8C")
	require.Equal(t, "https:jonline.io-3Taj8C", acc.ID())
	require.Equal(t, acc.ID(), AccountID("https:jonline.io", "3Taj8C"))
}

func TestSelectActive_ResetFiresOnlyOnIdentityChange(t *testing.T) {
	accounts := NewAccountRegistry(nil)
	resets := 0
	accounts.OnCredentialedReset(func() { resets++ })

	a1 := testAccount("https:jonline.io", "u1")
	a2 := testAccount("https:jonline.io", "u2")

	accounts.SelectActive(&a1)
	require.Equal(t, 1, resets) // none -> a1

	accounts.SelectActive(&a1)
	require.Equal(t, 1, resets)

	accounts.SelectActive(&a2)
	require.Equal(t, 2, resets)

	accounts.SelectActive(nil)
	require.Equal(t, 3, resets)
	_, ok := accounts.Active()
	require.False(t, ok)
}

func TestRemove_ActiveAccountClearsSelection(t *testing.T) {
	accounts := NewAccountRegistry(nil)
	resets := 0
	accounts.OnCredentialedReset(func() { resets++ })

	acc := testAccount("https:jonline.io", "u1")
	accounts.SelectActive(&acc)
	resets = 0

	accounts.Remove(acc.ID())
	require.Equal(t, 1, resets)
	_, ok := accounts.Active()
	require.False(t, ok)
	require.Empty(t, accounts.All())
}

func TestPin_UpsertsInPlace(t *testing.T) {
	accounts := NewAccountRegistry(nil)

	accounts.Pin(PinnedServer{ServerID: "https:oakcity.social", Pinned: true})
	accounts.Pin(PinnedServer{ServerID: "https:oakcity.social", Pinned: true})

	require.Len(t, accounts.Pinned(), 1)
}

func TestPin_KeepsStoredAccountWhenIncomingIsEmpty(t *testing.T) {
	accounts := NewAccountRegistry(nil)

	accounts.Pin(PinnedServer{ServerID: "https:oakcity.social", AccountID: "https:oakcity.social-u9", Pinned: true})
	accounts.Pin(PinnedServer{ServerID: "https:oakcity.social", Pinned: true})

	pinned := accounts.Pinned()
	require.Len(t, pinned, 1)
	require.Equal(t, "https:oakcity.social-u9", pinned[0].AccountID)
	require.True(t, pinned[0].Pinned)
}

func TestUnpin_KeepsLinkWithFlagCleared(t *testing.T) {
	accounts := NewAccountRegistry(nil)
	accounts.Pin(PinnedServer{ServerID: "https:oakcity.social", AccountID: "a", Pinned: true})

	accounts.Unpin("https:oakcity.social")

	pinned := accounts.Pinned()
	require.Len(t, pinned, 1)
	require.False(t, pinned[0].Pinned)
	require.Equal(t, "a", pinned[0].AccountID)
}

func TestNotifyUserDeleted_FlagsMatchesAndClearsActive(t *testing.T) {
	accounts := NewAccountRegistry(nil)
	resets := 0
	accounts.OnCredentialedReset(func() { resets++ })

	victim := testAccount("https:jonline.io", "u1")
	bystander := testAccount("https:oakcity.social", "u1") // same user id, other server
	accounts.Upsert(bystander)
	accounts.SelectActive(&victim)
	resets = 0

	accounts.NotifyUserDeleted("https:jonline.io", api.User{ID: "u1"})

	require.Equal(t, 1, resets)
	_, ok := accounts.Active()
	require.False(t, ok)

	flagged, _ := accounts.Get(victim.ID())
	require.True(t, flagged.NeedsReauthentication)
	require.True(t, flagged.LastSyncFailed)

	untouched, _ := accounts.Get(bystander.ID())
	require.False(t, untouched.NeedsReauthentication)
}

func TestMarkSyncFailed_DegradesToAnonymous(t *testing.T) {
	accounts := NewAccountRegistry(nil)
	acc := testAccount("https:jonline.io", "u1")
	accounts.SelectActive(&acc)

	accounts.MarkSyncFailed(acc.ID())

	_, ok := accounts.Active()
	require.False(t, ok)
	flagged, _ := accounts.Get(acc.ID())
	require.True(t, flagged.NeedsReauthentication)
}

func TestCredentialExpired_ExplicitExpiry(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	expired := Account{AccessToken: api.ExpirableToken{Token: "t", ExpiresAt: &past}}
	live := Account{AccessToken: api.ExpirableToken{Token: "t", ExpiresAt: &future}}

	require.True(t, expired.CredentialExpired(now))
	require.False(t, live.CredentialExpired(now))
}

func TestCredentialExpired_JWTExpClaim(t *testing.T) {
	now := time.Now()

	signed := func(exp time.Time) string {
		tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": "u1",
			"exp": exp.Unix(),
		})
		s, err := tok.SignedString([]byte("test-key"))
		require.NoError(t, err)
		return s
	}

	expired := Account{AccessToken: api.ExpirableToken{Token: signed(now.Add(-time.Minute))}}
	live := Account{AccessToken: api.ExpirableToken{Token: signed(now.Add(time.Minute))}}

	require.True(t, expired.CredentialExpired(now))
	require.False(t, live.CredentialExpired(now))
}

func TestCredentialExpired_OpaqueTokenAssumedLive(t *testing.T) {
	acc := Account{AccessToken: api.ExpirableToken{Token: "not-a-jwt"}}
	require.False(t, acc.CredentialExpired(time.Now()))
}

func TestAccountSnapshotRoundTrip(t *testing.T) {
	accounts := NewAccountRegistry(nil)
	a1 := testAccount("https:jonline.io", "u1")
	a2 := testAccount("https:oakcity.social", "u2")
	accounts.Upsert(a1)
	accounts.SelectActive(&a2)
	accounts.Pin(PinnedServer{ServerID: "https:oakcity.social", Pinned: true})

	snap := accounts.Snapshot()

	restored := NewAccountRegistry(nil)
	restored.Restore(snap)

	require.Len(t, restored.All(), 2)
	active, ok := restored.Active()
	require.True(t, ok)
	require.Equal(t, a2.ID(), active.ID())
	require.Len(t, restored.Pinned(), 1)
}
