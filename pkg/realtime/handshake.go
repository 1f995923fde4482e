package realtime

import (
	"context"
	"fmt"

	"github.com/dmitrymomot/pushkit/pkg/strategy"
)

// DefaultHandshakeStrategy is assumed when a peer presents a token without
// naming a strategy. It maps to the role strategy.
const DefaultHandshakeStrategy = "jwt"

// Handshake authenticates a connecting peer and resolves the single room the
// connection may join. Peers without a token are treated as anonymous and
// resolved to the public room when a strategy can provide one. The returned
// room name is normalized for use as a channel id. Authentication errors are
// returned as-is so transports can surface them as the rejection reason.
func (b *Broadcaster) Handshake(ctx context.Context, creds strategy.Credentials) (string, error) {
	name := creds.Strategy
	if name == "" {
		name = DefaultHandshakeStrategy
	}
	// A missing token forces anonymous resolution regardless of the
	// requested strategy.
	if creds.Token == "" {
		name = ""
	}

	var room string
	if name != "" {
		strat := b.resolveStrategy(name)
		if strat == nil {
			return "", fmt.Errorf("%w: no strategy for %q", ErrNoRoom, name)
		}
		id, err := strat.Authenticate(ctx, creds)
		if err != nil {
			return "", err
		}
		room = strat.RoomName(id)
	} else if resolver, strat := b.publicResolver(); resolver != nil {
		id, err := resolver.Public(ctx)
		if err == nil && id != nil {
			room = strat.RoomName(id)
		}
	}

	if room == "" {
		return "", ErrNoRoom
	}
	return strategy.NormalizeRoomName(room), nil
}

// resolveStrategy maps a handshake strategy name to a registered strategy:
// the jwt path goes to the role strategy, anything else to the token
// strategy.
func (b *Broadcaster) resolveStrategy(name string) strategy.Strategy {
	want := strategy.TokenStrategyName
	if name == DefaultHandshakeStrategy {
		want = strategy.RoleStrategyName
	}
	for _, strat := range b.strategies {
		if strat.Name() == want {
			return strat
		}
	}
	return nil
}

// publicResolver returns the first strategy able to resolve anonymous
// connections, if any.
func (b *Broadcaster) publicResolver() (strategy.PublicResolver, strategy.Strategy) {
	for _, strat := range b.strategies {
		if resolver, ok := strat.(strategy.PublicResolver); ok {
			return resolver, strat
		}
	}
	return nil, nil
}
