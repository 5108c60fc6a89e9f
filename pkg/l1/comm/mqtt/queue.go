package mqtt

import (
	"errors"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"
)

// ErrTimeout indicates the broker didn't confirm an operation in time.
var ErrTimeout = errors.New("mqtt operation timeout")

// Handler receives messages of a subscription. topic has the broker
// prefix removed.
type Handler func(topic string, payload []byte)

// Queue is a paho client scoped to the topic prefix of a Broker. Topic
// filters are subscribed once no matter how many handlers share them, and
// subscribed again after reconnecting since sessions are clean.
type Queue struct {
	client paho.Client
	prefix string

	lock sync.Mutex
	subs map[string][]*Subscription
}

// Subscription is a handler registered on a topic filter. Token is nil
// when the filter was already subscribed.
type Subscription struct {
	Token paho.Token

	queue   *Queue
	filter  string
	handler Handler
}

// NewQueue creates a Queue on the broker. onConnect, if not nil, runs
// after every (re)connect once subscriptions are restored.
func (b *Broker) NewQueue(onConnect func(*Queue)) *Queue {
	q := &Queue{prefix: b.TopicPrefix, subs: make(map[string][]*Subscription)}
	opts := *b.Options
	opts.SetOnConnectHandler(func(paho.Client) {
		glog.Info("mqtt connected")
		q.resubscribe()
		if onConnect != nil {
			onConnect(q)
		}
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		glog.Warningf("mqtt connection lost: %v", err)
	})
	q.client = paho.NewClient(&opts)
	return q
}

// WaitToken waits for token to complete, at most timeout if positive.
func WaitToken(token paho.Token, timeout time.Duration) error {
	if timeout <= 0 {
		token.Wait()
	} else if !token.WaitTimeout(timeout) {
		return ErrTimeout
	}
	return token.Error()
}

// Connect connects and waits for the broker to accept.
func (q *Queue) Connect() error {
	return WaitToken(q.client.Connect(), 0)
}

// Close disconnects immediately.
func (q *Queue) Close() error {
	q.client.Disconnect(0)
	return nil
}

// Pub publishes a transient message.
func (q *Queue) Pub(topic string, payload []byte) paho.Token {
	return q.client.Publish(q.prefix+topic, 0, false, payload)
}

// Retain publishes a retained message at least once. A nil payload
// clears the retained message of topic.
func (q *Queue) Retain(topic string, payload []byte) paho.Token {
	return q.client.Publish(q.prefix+topic, 1, true, payload)
}

// Sub registers handler for messages matching filter.
func (q *Queue) Sub(filter string, handler Handler) *Subscription {
	sub := &Subscription{queue: q, filter: filter, handler: handler}
	q.lock.Lock()
	first := len(q.subs[filter]) == 0
	q.subs[filter] = append(q.subs[filter], sub)
	q.lock.Unlock()
	if first {
		glog.V(2).Infof("SUB %q", q.prefix+filter)
		sub.Token = q.client.Subscribe(q.prefix+filter, 0, q.dispatch)
	}
	return sub
}

// Close removes the handler and unsubscribes the filter with the last
// handler gone.
func (s *Subscription) Close() error {
	q := s.queue
	q.lock.Lock()
	subs := q.subs[s.filter]
	for n, sub := range subs {
		if sub == s {
			subs = append(subs[:n], subs[n+1:]...)
			break
		}
	}
	if len(subs) == 0 {
		delete(q.subs, s.filter)
	} else {
		q.subs[s.filter] = subs
	}
	q.lock.Unlock()
	if len(subs) > 0 {
		return nil
	}
	glog.V(2).Infof("UNSUB %q", q.prefix+s.filter)
	return WaitToken(q.client.Unsubscribe(q.prefix+s.filter), 0)
}

func (q *Queue) resubscribe() {
	filters := make(map[string]byte)
	q.lock.Lock()
	for filter := range q.subs {
		filters[q.prefix+filter] = 0
	}
	q.lock.Unlock()
	if len(filters) > 0 {
		glog.V(2).Infof("SUB %d filters", len(filters))
		q.client.SubscribeMultiple(filters, q.dispatch)
	}
}

// handlers returns the handlers of filters matching topic.
func (q *Queue) handlers(topic string) (hs []Handler) {
	q.lock.Lock()
	defer q.lock.Unlock()
	for filter, subs := range q.subs {
		if MatchTopic(topic, filter) {
			for _, sub := range subs {
				hs = append(hs, sub.handler)
			}
		}
	}
	return
}

func (q *Queue) dispatch(_ paho.Client, msg paho.Message) {
	topic := msg.Topic()
	if !strings.HasPrefix(topic, q.prefix) {
		return
	}
	topic = topic[len(q.prefix):]
	glog.V(2).Infof("RCV %q", topic)
	for _, h := range q.handlers(topic) {
		h(topic, msg.Payload())
	}
}
