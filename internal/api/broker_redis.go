package api

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MyTurnyet/switch-this-sub002/internal/switchlist"
)

// RedisBroker implements EventBroker over Redis Pub/Sub so every API replica
// sees every event.
type RedisBroker struct {
	rdb    *redis.Client
	prefix string
	log    *zap.SugaredLogger

	mu   sync.Mutex
	subs map[chan switchlist.Event]*redis.PubSub
}

// NewRedisBroker connects to url and pings it once.
func NewRedisBroker(ctx context.Context, url, prefix string, log *zap.SugaredLogger) (*RedisBroker, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &RedisBroker{rdb: rdb, prefix: prefix, log: log, subs: map[chan switchlist.Event]*redis.PubSub{}}, nil
}

func (b *RedisBroker) Subscribe(switchlistID string) chan switchlist.Event {
	ch := make(chan switchlist.Event, 16)
	ctx := context.Background()
	ps := b.rdb.Subscribe(ctx, b.chanName(switchlistID))
	// wait for the subscription to be confirmed before returning
	if _, err := ps.Receive(ctx); err != nil {
		b.log.Warnw("redis subscribe", "switchlist", switchlistID, "err", err)
	}
	b.mu.Lock()
	b.subs[ch] = ps
	b.mu.Unlock()

	go func() {
		defer close(ch)
		for msg := range ps.Channel() {
			var evt switchlist.Event
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				b.log.Debugw("dropping malformed event", "channel", msg.Channel, "err", err)
				continue
			}
			select {
			case ch <- evt:
			default:
			}
		}
	}()
	return ch
}

// Unsubscribe closes the subscription; the forwarding goroutine then closes
// ch once the PubSub channel drains.
func (b *RedisBroker) Unsubscribe(_ string, ch chan switchlist.Event) {
	b.mu.Lock()
	ps, ok := b.subs[ch]
	delete(b.subs, ch)
	b.mu.Unlock()
	if ok {
		_ = ps.Close()
	}
}

func (b *RedisBroker) Publish(switchlistID string, evt switchlist.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	data, err := json.Marshal(evt)
	if err != nil {
		b.log.Warnw("encode event", "type", evt.Type, "err", err)
		return
	}
	if err := b.rdb.Publish(ctx, b.chanName(switchlistID), data).Err(); err != nil {
		b.log.Warnw("redis publish", "switchlist", switchlistID, "err", err)
	}
}

func (b *RedisBroker) Close() error {
	b.mu.Lock()
	for ch, ps := range b.subs {
		_ = ps.Close()
		delete(b.subs, ch)
	}
	b.mu.Unlock()
	return b.rdb.Close()
}

func (b *RedisBroker) chanName(switchlistID string) string { return b.prefix + switchlistID }
