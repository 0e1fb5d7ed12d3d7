package events

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Topic carries every in-process event.
const Topic = "rolplay.events"

// Bus is an in-process publish/subscribe channel for events.
type Bus struct {
	pubSub *gochannel.GoChannel
}

func NewBus() *Bus {
	return &Bus{
		pubSub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: 256},
			watermill.NewStdLogger(false, false),
		),
	}
}

func (b *Bus) Publish(_ context.Context, e Event) error {
	raw, err := Encode(e)
	if err != nil {
		return err
	}
	return b.pubSub.Publish(Topic, message.NewMessage(watermill.NewUUID(), raw))
}

// Subscribe returns the stream of raw messages; each must be acked or nacked.
func (b *Bus) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	return b.pubSub.Subscribe(ctx, Topic)
}

func (b *Bus) Close() error {
	return b.pubSub.Close()
}
