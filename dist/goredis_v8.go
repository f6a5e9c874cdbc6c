package dist

import (
	"context"

	redis "github.com/go-redis/redis/v8"
)

type goRedisV8 struct {
	cli *redis.Client
	ctx context.Context
}

// GoRedisV8 adapts a go-redis v8 client.
func GoRedisV8(cli *redis.Client) RedisCli {
	return &goRedisV8{cli: cli, ctx: context.Background()}
}

func (r *goRedisV8) Publish(channel string, payload []byte) error {
	return r.cli.Publish(r.ctx, channel, payload).Err()
}

func (r *goRedisV8) Subscribe(channel string, handler func([]byte)) (func() error, error) {
	sub := r.cli.Subscribe(r.ctx, channel)
	if _, err := sub.Receive(r.ctx); err != nil {
		sub.Close()
		return nil, err
	}
	go func() {
		for msg := range sub.Channel() {
			handler([]byte(msg.Payload))
		}
	}()
	return sub.Close, nil
}
