package rediscomm

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v7"
	"go.uber.org/zap"

	"github.com/SSRS-Innovation/redis-communication/pkg/codec"
)

// Handler consumes the messages of a channel.
type Handler func(ts codec.Timestamp, content interface{})

// subscribers dispatches the messages of a shared PubSub connection to one
// handler per channel.
type subscribers struct {
	lk       sync.RWMutex
	handlers map[string]Handler

	ps  *redis.PubSub
	log *zap.SugaredLogger
}

func newSubscribers(log *zap.SugaredLogger, rclient *redis.Client) *subscribers {
	return &subscribers{
		handlers: make(map[string]Handler),
		ps:       rclient.Subscribe(),
		log:      log.With("process", "subscribers"),
	}
}

func (s *subscribers) add(channel string, h Handler) error {
	s.lk.Lock()
	defer s.lk.Unlock()

	if _, ok := s.handlers[channel]; ok {
		s.log.Warnw("channel already has a subscriber", "channel", channel)
		return fmt.Errorf("%w: %s", ErrChannelExists, channel)
	}

	if err := s.ps.Subscribe(channel); err != nil {
		return wrapErr("subscribe", err)
	}
	s.handlers[channel] = h
	s.log.Debugw("added subscriber", "channel", channel)
	return nil
}

func (s *subscribers) remove(channel string) error {
	s.lk.Lock()
	defer s.lk.Unlock()

	if _, ok := s.handlers[channel]; !ok {
		return nil
	}
	delete(s.handlers, channel)

	if err := s.ps.Unsubscribe(channel); err != nil {
		return wrapErr("unsubscribe", err)
	}
	s.log.Debugw("removed subscriber", "channel", channel)
	return nil
}

func (s *subscribers) channels() []string {
	s.lk.RLock()
	defer s.lk.RUnlock()

	out := make([]string, 0, len(s.handlers))
	for ch := range s.handlers {
		out = append(out, ch)
	}
	return out
}

// listen blocks dispatching messages until ctx fires or the PubSub is
// closed.
func (s *subscribers) listen(ctx context.Context) error {
	msgCh := s.ps.Channel()
	for {
		select {
		case msg, ok := <-msgCh:
			if !ok {
				return nil
			}
			s.dispatch(msg)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *subscribers) dispatch(msg *redis.Message) {
	log := s.log.With("channel", msg.Channel)

	s.lk.RLock()
	h, ok := s.handlers[msg.Channel]
	s.lk.RUnlock()

	if !ok {
		// raced with an unsubscribe.
		log.Debugw("dropping message for channel without subscriber")
		return
	}

	env, err := codec.DecodeEnvelope([]byte(msg.Payload))
	if err != nil {
		log.Warnw("dropping malformed message", "error", err)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			log.Errorw("subscriber panicked while handling message", "panic", r)
		}
	}()
	h(env.Timestamp, env.Content)
}

func (s *subscribers) close() error {
	return s.ps.Close()
}

// Event is a message received by a Subscription.
type Event struct {
	Channel   string          `json:"channel"`
	Timestamp codec.Timestamp `json:"timestamp"`
	Content   interface{}     `json:"content"`
}

// Subscription is a dedicated subscription to a set of channels, delivering
// messages over a Go channel. It is independent from the handlers registered
// through AddSubscriber.
type Subscription struct {
	ps      *redis.PubSub
	outCh   chan *Event
	closeCh chan struct{}
	doneCh  chan struct{}
	once    sync.Once
}

// C returns the channel on which events are delivered. It is closed when the
// subscription ends.
func (s *Subscription) C() <-chan *Event {
	return s.outCh
}

// Close ends the subscription.
func (s *Subscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.closeCh)
		if err = s.ps.Close(); err == redis.ErrClosed {
			// already closed by its context.
			err = nil
		}
		<-s.doneCh
	})
	return err
}

func newSubscription(ctx context.Context, log *zap.SugaredLogger, rclient *redis.Client, channels ...string) (*Subscription, error) {
	ps := rclient.Subscribe(channels...)

	// wait for the subscription to be confirmed before returning, so that
	// messages published after Subscribe returns are not missed.
	for range channels {
		if _, err := ps.ReceiveTimeout(DefaultRedisOpts.ReadTimeout); err != nil {
			_ = ps.Close()
			return nil, wrapErr("subscribe", err)
		}
	}

	sub := &Subscription{
		ps:     ps,
		outCh:   make(chan *Event, 16),
		closeCh: make(chan struct{}),
		doneCh:  make(chan struct{}),
	}

	go func() {
		defer close(sub.doneCh)
		defer close(sub.outCh)

		msgCh := ps.Channel()
		for {
			select {
			case msg, ok := <-msgCh:
				if !ok {
					return
				}
				env, err := codec.DecodeEnvelope([]byte(msg.Payload))
				if err != nil {
					log.Warnw("dropping malformed message", "channel", msg.Channel, "error", err)
					continue
				}
				ev := &Event{Channel: msg.Channel, Timestamp: env.Timestamp, Content: env.Content}
				select {
				case sub.outCh <- ev:
				case <-sub.closeCh:
					return
				case <-ctx.Done():
					_ = ps.Close()
					return
				}
			case <-ctx.Done():
				_ = ps.Close()
				return
			}
		}
	}()

	return sub, nil
}
