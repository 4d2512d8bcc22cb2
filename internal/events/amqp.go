package events

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const (
	publishTimeout = 5 * time.Second

	retryBaseDelay = 500 * time.Millisecond
	retryMaxDelay  = 30 * time.Second
)

// channel 為 *amqp091.Channel 中用到的方法
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp091.Table) (amqp091.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp091.Table) error
	Qos(prefetchCount, prefetchSize int, global bool) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp091.Table) (<-chan amqp091.Delivery, error)
	Close() error
}

// 測試替換點
var (
	openChannel = func(url string) (channel, io.Closer, error) {
		conn, err := amqp091.Dial(url)
		if err != nil {
			return nil, nil, fmt.Errorf("dial AMQP: %w", err)
		}
		ch, err := conn.Channel()
		if err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("open channel: %w", err)
		}
		return ch, conn, nil
	}
	timeNow = time.Now

	// retryDelay 依連續失敗次數計算 requeue 前的等待時間
	retryDelay = func(failures int) time.Duration {
		d := retryBaseDelay
		for i := 1; i < failures && d < retryMaxDelay; i++ {
			d *= 2
		}
		return min(d, retryMaxDelay)
	}
)

// Client 透過 durable direct exchange 收發 movement 事件，
// routing key 與 queue 名稱相同
type Client struct {
	ch       channel
	conn     io.Closer
	exchange string
	queue    string
}

// Dial 連線並宣告 exchange、queue 與 binding
func Dial(url, exchange, queue string) (*Client, error) {
	ch, conn, err := openChannel(url)
	if err != nil {
		return nil, err
	}
	c := &Client{ch: ch, conn: conn, exchange: exchange, queue: queue}
	if err := c.setup(); err != nil {
		c.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}
	return c, nil
}

func (c *Client) setup() error {
	if err := c.ch.ExchangeDeclare(c.exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := c.ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := c.ch.QueueBind(c.queue, c.queue, c.exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// Publish 發送持久化訊息
func (c *Client) Publish(ctx context.Context, e MovementEvent) error {
	body, err := e.Marshal()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = c.ch.PublishWithContext(ctx, c.exchange, c.queue, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    timeNow(),
		Type:         "movement." + string(e.Action),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	slog.DebugContext(ctx, "published movement event",
		"action", e.Action,
		"movement_id", e.MovementID,
		"exchange", c.exchange)
	return nil
}

// Handler 處理單一事件；回傳錯誤時訊息會重新排入佇列
type Handler func(ctx context.Context, e MovementEvent) error

// Consume 持續處理訊息直到 ctx 結束。
// 無法解析的訊息直接丟棄，handler 失敗的訊息 requeue
func (c *Client) Consume(ctx context.Context, handler Handler) error {
	if err := c.ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	deliveries, err := c.ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}
	slog.InfoContext(ctx, "consuming movement events", "queue", c.queue)

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			if c.handle(ctx, d, handler, failures) {
				failures = 0
			} else {
				failures++
			}
		}
	}
}

// handle 回傳 handler 是否成功；失敗時依連續失敗次數延遲後才 requeue，
// 避免依賴服務中斷時訊息不斷重送
func (c *Client) handle(ctx context.Context, d amqp091.Delivery, handler Handler, failures int) bool {
	e, err := ParseMovementEvent(d.Body)
	if err != nil {
		slog.ErrorContext(ctx, "dropping malformed event", "error", err)
		d.Nack(false, false)
		return true
	}
	if err := handler(ctx, e); err != nil {
		delay := retryDelay(failures + 1)
		slog.ErrorContext(ctx, "event handler failed",
			"error", err,
			"action", e.Action,
			"movement_id", e.MovementID,
			"retry_in", delay)
		select {
		case <-ctx.Done():
		case <-time.After(delay):
		}
		d.Nack(false, true)
		return false
	}
	d.Ack(false)
	return true
}

func (c *Client) Close() error {
	if c.ch != nil {
		c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
