package federation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFederateID_RoundTrip(t *testing.T) {
	tests := []struct {
		local string
		host  string
	}{
		{"3Taj8C", "jonline.io"},
		{"abc", "oakcity.social"},
		{"x", ""},
	}
	for _, tc := range tests {
		id := FederateID(tc.local, tc.host)
		local, host := ParseFederatedID(id)
		require.Equal(t, tc.local, local)
		require.Equal(t, tc.host, host)
	}
}

func TestFederateID_EmptyHostYieldsBareID(t *testing.T) {
	require.Equal(t, "3Taj8C", FederateID("3Taj8C", ""))
	require.Equal(t, "3Taj8C@jonline.io", FederateID("3Taj8C", "jonline.io"))
}

func TestNormalizeKey_DualFormsShareOneSlot(t *testing.T) {
	bare := NormalizeKey("3Taj8C", "jonline.io")
	federated := NormalizeKey("3Taj8C@jonline.io", "jonline.io")
	require.Equal(t, bare, federated)
	require.Equal(t, "3Taj8C@jonline.io", bare)
}

func TestNormalizeKey_ForeignHostPreserved(t *testing.T) {
	key := NormalizeKey("3Taj8C@oakcity.social", "jonline.io")
	require.Equal(t, "3Taj8C@oakcity.social", key)
}

func TestNormalizeKey_DistinctHostsStayDistinct(t *testing.T) {
	a := NormalizeKey("x@jonline.io", "jonline.io")
	b := NormalizeKey("x@oakcity.social", "jonline.io")
	require.NotEqual(t, a, b)
}
