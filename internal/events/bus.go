package events

import (
	"fmt"

	"github.com/asaskevich/EventBus"
	"github.com/iyhunko/inventory-sync/internal/model"
)

// TopicInventoryUpdated is published after every successful commit.
const TopicInventoryUpdated = "inventory:updated"

// Bus is an in-process publish/subscribe hub for inventory events.
type Bus struct {
	bus EventBus.Bus
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{bus: EventBus.New()}
}

// PublishInventoryUpdated notifies every subscriber of a committed change.
func (b *Bus) PublishInventoryUpdated(msg model.InventoryMessage) {
	b.bus.Publish(TopicInventoryUpdated, msg)
}

// OnInventoryUpdated registers handler to run asynchronously for every
// committed change. Handlers run one at a time in publish order.
func (b *Bus) OnInventoryUpdated(handler func(model.InventoryMessage)) error {
	if err := b.bus.SubscribeAsync(TopicInventoryUpdated, handler, true); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", TopicInventoryUpdated, err)
	}
	return nil
}

// Wait blocks until all asynchronous handlers have returned.
func (b *Bus) Wait() {
	b.bus.WaitAsync()
}
