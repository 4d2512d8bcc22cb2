package events

import "context"

// Publisher 發送 movement 事件
type Publisher interface {
	Publish(ctx context.Context, e MovementEvent) error
	Close() error
}

// NopPublisher 在未設定 AMQP 時使用，事件直接丟棄
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, MovementEvent) error { return nil }

func (NopPublisher) Close() error { return nil }
