package dist

import (
	redis "github.com/go-redis/redis/v7"
)

type goRedisV7 struct {
	cli *redis.Client
}

// GoRedisV7 adapts a go-redis v7 client for hosts not yet on v8.
func GoRedisV7(cli *redis.Client) RedisCli {
	return &goRedisV7{cli: cli}
}

func (r *goRedisV7) Publish(channel string, payload []byte) error {
	return r.cli.Publish(channel, payload).Err()
}

func (r *goRedisV7) Subscribe(channel string, handler func([]byte)) (func() error, error) {
	sub := r.cli.Subscribe(channel)
	if _, err := sub.Receive(); err != nil {
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
