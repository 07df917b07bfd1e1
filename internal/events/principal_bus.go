package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/SAP-F-2025/identity-service/internal/models"
	"github.com/SAP-F-2025/identity-service/internal/repositories"
)

const principalChangesTopic = "principal-changes"

// PrincipalBus fans out principal-change events in-process. The identity
// provider adapter is the single announcer; the session manager is the
// long-lived subscriber. Each subscription fires once with the current state
// before relaying changes, matching the provider's listener contract.
type PrincipalBus struct {
	pubsub *gochannel.GoChannel

	mu      sync.RWMutex
	current *models.Principal
}

func NewPrincipalBus() *PrincipalBus {
	return &PrincipalBus{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: 16},
			watermill.NopLogger{},
		),
	}
}

// Announce records p as the current principal and publishes the change.
// A nil principal announces sign-out.
func (b *PrincipalBus) Announce(ctx context.Context, p *models.Principal) error {
	b.mu.Lock()
	b.current = p
	b.mu.Unlock()

	payload := []byte{}
	if p != nil {
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("failed to marshal principal: %w", err)
		}
		payload = data
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := b.pubsub.Publish(principalChangesTopic, msg); err != nil {
		return fmt.Errorf("failed to publish principal change: %w", err)
	}

	return nil
}

// Current returns the most recently announced principal, or nil.
func (b *PrincipalBus) Current() *models.Principal {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.current
}

// Subscribe opens a principal-change subscription. The returned channel fires
// immediately with the current state, then on every announcement. Cancel ends
// the subscription; the channel is closed afterwards.
func (b *PrincipalBus) Subscribe(ctx context.Context) (<-chan repositories.PrincipalEvent, func(), error) {
	subCtx, cancel := context.WithCancel(ctx)

	msgs, err := b.pubsub.Subscribe(subCtx, principalChangesTopic)
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("failed to subscribe to principal changes: %w", err)
	}

	out := make(chan repositories.PrincipalEvent, 1)

	// Snapshot after subscribing so no change falls between the two. A change
	// racing the snapshot may be delivered twice; resolution is idempotent.
	current := b.Current()

	go func() {
		defer close(out)

		select {
		case out <- repositories.PrincipalEvent{Principal: current}:
		case <-subCtx.Done():
			return
		}

		for msg := range msgs {
			event := repositories.PrincipalEvent{}
			if len(msg.Payload) > 0 {
				var p models.Principal
				if err := json.Unmarshal(msg.Payload, &p); err == nil {
					event.Principal = &p
				}
			}
			msg.Ack()

			select {
			case out <- event:
			case <-subCtx.Done():
				return
			}
		}
	}()

	return out, cancel, nil
}

func (b *PrincipalBus) Close() error {
	return b.pubsub.Close()
}
