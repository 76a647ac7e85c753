package requesttrace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestForUserRequiresUserID(t *testing.T) {
	t.Parallel()

	_, err := ForUser("", "org-1", "req-1")
	require.Error(t, err)
}

func TestForUserCarriesOrganization(t *testing.T) {
	t.Parallel()

	audit, err := ForUser("user-1", "org-1", "req-1")
	require.NoError(t, err)
	require.Equal(t, ActorKindUser, audit.ActorKind)
	require.NotNil(t, audit.UserID)
	require.Equal(t, "user-1", *audit.UserID)
	require.NotNil(t, audit.OrganizationID)
	require.Equal(t, "org-1", *audit.OrganizationID)
}

func TestForUserOmitsEmptyOrganization(t *testing.T) {
	t.Parallel()

	audit, err := ForUser("user-1", "", "req-1")
	require.NoError(t, err)
	require.Nil(t, audit.OrganizationID)
}

func TestContextRoundTrip(t *testing.T) {
	t.Parallel()

	audit := System("req-2")
	ctx := IntoContext(context.Background(), audit)

	got, ok := FromContext(ctx)
	require.True(t, ok)
	require.Equal(t, audit, got)
}

func TestFromContextOrAnonymous(t *testing.T) {
	t.Parallel()

	got := FromContextOrAnonymous(context.Background())
	require.Equal(t, ActorKindAnonymous, got.ActorKind)
	require.Nil(t, got.UserID)
}
