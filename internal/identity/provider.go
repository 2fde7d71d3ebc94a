// Package identity resolves request credentials to actors. It is the only
// place that knows where roles come from; the lifecycle rules take the actor
// as given and never mutate it.
package identity

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/openrescue/emergency_dispatch_system/internal/config"
	"github.com/openrescue/emergency_dispatch_system/internal/models"
)

// Provider resolves an API key to the actor it authenticates.
type Provider interface {
	ActorForKey(key string) (models.Actor, bool)
}

// StaticProvider serves actors from the credential list in config. A
// directory-backed provider would slot in behind the same interface.
type StaticProvider struct {
	actors map[string]models.Actor
}

// NewStaticProvider validates the configured credentials up front so a typo
// in ACTOR_KEYS fails at startup, not on the first request.
func NewStaticProvider(credentials []config.ActorCredential) (*StaticProvider, error) {
	actors := make(map[string]models.Actor, len(credentials))
	for _, cred := range credentials {
		if cred.APIKey == "" {
			return nil, fmt.Errorf("actor credential for %q has an empty API key", cred.ActorID)
		}
		actorID, err := uuid.Parse(cred.ActorID)
		if err != nil {
			return nil, fmt.Errorf("actor credential %q: invalid actor id: %w", cred.APIKey, err)
		}
		role := models.Role(cred.Role)
		if !role.Valid() {
			return nil, fmt.Errorf("actor credential %q: unknown role %q", cred.APIKey, cred.Role)
		}
		if _, dup := actors[cred.APIKey]; dup {
			return nil, fmt.Errorf("duplicate API key in actor credentials")
		}
		actors[cred.APIKey] = models.Actor{
			ID:        actorID,
			Role:      role,
			StationID: cred.StationID,
		}
	}
	return &StaticProvider{actors: actors}, nil
}

// ActorForKey returns the actor for the key, or false if the key is unknown.
func (p *StaticProvider) ActorForKey(key string) (models.Actor, bool) {
	actor, ok := p.actors[key]
	return actor, ok
}
