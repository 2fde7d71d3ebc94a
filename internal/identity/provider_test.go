package identity

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openrescue/emergency_dispatch_system/internal/config"
	"github.com/openrescue/emergency_dispatch_system/internal/models"
)

func TestNewStaticProvider_ResolvesActors(t *testing.T) {
	civilianID := uuid.New()
	stationID := uuid.New()

	provider, err := NewStaticProvider([]config.ActorCredential{
		{APIKey: "civ-key", ActorID: civilianID.String(), Role: "user"},
		{APIKey: "fire-key", ActorID: stationID.String(), Role: "fire_station", StationID: "fs-01"},
	})
	require.NoError(t, err)

	civilian, ok := provider.ActorForKey("civ-key")
	require.True(t, ok)
	assert.Equal(t, models.Actor{ID: civilianID, Role: models.RoleUser}, civilian)

	station, ok := provider.ActorForKey("fire-key")
	require.True(t, ok)
	assert.Equal(t, models.Actor{ID: stationID, Role: models.RoleFireStation, StationID: "fs-01"}, station)

	_, ok = provider.ActorForKey("no-such-key")
	assert.False(t, ok)
}

func TestNewStaticProvider_RejectsBadCredentials(t *testing.T) {
	valid := config.ActorCredential{APIKey: "key", ActorID: uuid.NewString(), Role: "user"}

	tests := []struct {
		name        string
		credentials []config.ActorCredential
	}{
		{"empty api key", []config.ActorCredential{{ActorID: uuid.NewString(), Role: "user"}}},
		{"invalid actor id", []config.ActorCredential{{APIKey: "key", ActorID: "not-a-uuid", Role: "user"}}},
		{"unknown role", []config.ActorCredential{{APIKey: "key", ActorID: uuid.NewString(), Role: "dispatcher"}}},
		{"duplicate api key", []config.ActorCredential{valid, valid}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewStaticProvider(tt.credentials)
			require.Error(t, err)
			assert.Nil(t, provider)
		})
	}
}
