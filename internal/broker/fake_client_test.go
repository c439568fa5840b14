package broker

import (
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// ---- paho fakes ----

type fakeToken struct {
	err  error
	done chan struct{}
}

func doneToken(err error) *fakeToken {
	ch := make(chan struct{})
	close(ch)
	return &fakeToken{err: err, done: ch}
}

func pendingToken() *fakeToken {
	return &fakeToken{done: make(chan struct{})}
}

func (t *fakeToken) Wait() bool {
	<-t.done
	return true
}

func (t *fakeToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}

func (t *fakeToken) Done() <-chan struct{} { return t.done }
func (t *fakeToken) Error() error          { return t.err }

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 0 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 0 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

type publishCall struct {
	topic   string
	qos     byte
	payload []byte
}

type fakeClient struct {
	mu   sync.Mutex
	opts *mqtt.ClientOptions

	connected    bool
	connectErrs  []error
	failConnect  error
	connectCalls int
	disconnects  int

	publishErr     error
	publishPending bool
	published      []publishCall

	subscribeCalls int
	handlers       map[string]mqtt.MessageHandler
	unsubscribed   []string
}

func newFakeClient() *fakeClient {
	return &fakeClient{handlers: map[string]mqtt.MessageHandler{}}
}

// factory plugs the fake into newConnManager and keeps the options so the
// connect handlers can be fired.
func (c *fakeClient) factory(o *mqtt.ClientOptions) mqtt.Client {
	c.opts = o
	return c
}

func (c *fakeClient) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}

func (c *fakeClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeClient) IsConnectionOpen() bool { return c.IsConnected() }

func (c *fakeClient) Connect() mqtt.Token {
	c.mu.Lock()
	c.connectCalls++
	var err error
	switch {
	case c.failConnect != nil:
		err = c.failConnect
	case len(c.connectErrs) > 0:
		err = c.connectErrs[0]
		c.connectErrs = c.connectErrs[1:]
	}
	if err == nil {
		c.connected = true
	}
	c.mu.Unlock()

	if err == nil {
		c.fireOnConnect()
	}
	return doneToken(err)
}

// fireOnConnect simulates a (re)connect notification from paho.
func (c *fakeClient) fireOnConnect() {
	if c.opts != nil && c.opts.OnConnect != nil {
		c.opts.OnConnect(c)
	}
}

func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	c.disconnects++
}

func (c *fakeClient) Publish(topic string, qos byte, _ bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, _ := payload.([]byte)
	c.published = append(c.published, publishCall{topic: topic, qos: qos, payload: b})
	if c.publishPending {
		return pendingToken()
	}
	return doneToken(c.publishErr)
}

func (c *fakeClient) Subscribe(topic string, _ byte, cb mqtt.MessageHandler) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribeCalls++
	c.handlers[topic] = cb
	return doneToken(nil)
}

func (c *fakeClient) SubscribeMultiple(filters map[string]byte, cb mqtt.MessageHandler) mqtt.Token {
	for t, q := range filters {
		c.Subscribe(t, q, cb)
	}
	return doneToken(nil)
}

func (c *fakeClient) Unsubscribe(topics ...string) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range topics {
		delete(c.handlers, t)
		c.unsubscribed = append(c.unsubscribed, t)
	}
	return doneToken(nil)
}

func (c *fakeClient) AddRoute(topic string, cb mqtt.MessageHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[topic] = cb
}

func (c *fakeClient) OptionsReader() mqtt.ClientOptionsReader {
	return mqtt.ClientOptionsReader{}
}

// deliver pushes a message through the handler registered for topic.
func (c *fakeClient) deliver(topic string, payload []byte) bool {
	c.mu.Lock()
	cb := c.handlers[topic]
	c.mu.Unlock()
	if cb == nil {
		return false
	}
	cb(c, fakeMessage{topic: topic, payload: payload})
	return true
}

func (c *fakeClient) publishedCalls() []publishCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]publishCall(nil), c.published...)
}
