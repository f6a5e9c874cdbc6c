package dist

import (
	redis "github.com/gomodule/redigo/redis"
)

type redigoCli struct {
	pool *redis.Pool
}

// Redigo adapts a redigo connection pool. Subscribe holds one
// connection from the pool for the lifetime of the subscription.
func Redigo(pool *redis.Pool) RedisCli {
	return &redigoCli{pool: pool}
}

func (r *redigoCli) Publish(channel string, payload []byte) error {
	conn := r.pool.Get()
	defer conn.Close()
	_, err := conn.Do("PUBLISH", channel, payload)
	return err
}

func (r *redigoCli) Subscribe(channel string, handler func([]byte)) (func() error, error) {
	conn := r.pool.Get()
	psc := redis.PubSubConn{Conn: conn}
	if err := psc.Subscribe(channel); err != nil {
		conn.Close()
		return nil, err
	}
	go func() {
		for {
			switch v := psc.Receive().(type) {
			case redis.Message:
				handler(v.Data)
			case error:
				return // connection closed by stop, or torn down underneath us
			}
		}
	}()
	stop := func() error {
		psc.Unsubscribe(channel)
		return conn.Close()
	}
	return stop, nil
}
