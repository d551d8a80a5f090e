// Copyright (c) 2016 by Thorsten von Eicken

package main

import (
	"fmt"
	"hash/fnv"
	"os"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// Message describes an MQTT message with a topic and an encoded payload. It is used here to
// isolate the GW code from the paho mqtt client and also to provide a generic type for passing
// messages or packets around.
type Message struct {
	Topic   string // MQTT topic
	Payload []byte // MQTT payload, encoded with the gateway's codec
}

// broker is the part of mqtt.Client the gateway uses.
type broker interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Disconnect(quiesce uint)
}

// mq is a handle onto a MQTT broker connection.
type mq struct {
	conn     broker // broker connection
	codec    codec  // payload encoding
	log      *zap.SugaredLogger
	hooksMu  sync.Mutex           // protects subHooks
	subHooks []subHook            // subscription hooks
	dedupMu  sync.Mutex           // protects dedup
	dedup    map[uint64]time.Time // de-dup of messages we sent
	done     chan struct{}
}

// subHook is a subscription hook, that is, a hook to subscribe to messages internally so they
// get forwarded locally instead of traveling all the way to the broker and back. (Messages always
// get published to the broker, so the local routing is in addition, not in replacement.)
type subHook struct {
	topic string         // topic that is being matched (exact match for now)
	fn    func(*Message) // event function for the subscription
}

// newMQ connects to a broker and returns a new mq object. The connection is persistent, i.e.,
// re-establishes itself if there is a disconnect. Subscriptions also get renewed after a reconnect.
func newMQ(conf MqttConfig, c codec, logger *zap.SugaredLogger) (*mq, error) {
	hostname, _ := os.Hostname()
	id := "rfgateway-" + hostname
	logger.Debugw("configuring MQTT", "client", id, "host", conf.Host, "port", conf.Port,
		"user", conf.User, "format", conf.Format)
	mqtt.ERROR = zap.NewStdLog(logger.Desugar().Named("paho"))
	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", conf.Host, conf.Port))
	opts.ClientID = id
	opts.Username = conf.User
	opts.Password = conf.Password
	opts.AutoReconnect = true

	conn := mqtt.NewClient(opts)
	token := conn.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("timeout connecting to %s:%d", conf.Host, conf.Port)
	}
	if err := token.Error(); err != nil {
		return nil, err
	}
	mq := newMQConn(conn, c, logger)
	logger.Infof("MQTT connected to %s:%d", conf.Host, conf.Port)
	return mq, nil
}

// newMQConn wraps an established broker connection.
func newMQConn(conn broker, c codec, logger *zap.SugaredLogger) *mq {
	mq := &mq{
		conn:  conn,
		codec: c,
		log:   logger,
		dedup: make(map[uint64]time.Time),
		done:  make(chan struct{}),
	}
	go mq.gc()
	return mq
}

// Close stops the de-dup gc and disconnects.
func (mq *mq) Close() {
	close(mq.done)
	mq.conn.Disconnect(250)
}

// gc is an endless loop that removes message de-duplication IDs that are older than a few
// minutes. These are evidently ones for which we don't have a subscription.
func (mq *mq) gc() {
	tick := time.NewTicker(time.Minute)
	defer tick.Stop()
	for {
		select {
		case <-mq.done:
			return
		case <-tick.C:
		}
		mq.expire(time.Now().Add(-10 * time.Minute))
	}
}

func (mq *mq) expire(tooOld time.Time) {
	mq.dedupMu.Lock()
	defer mq.dedupMu.Unlock()
	for h, t := range mq.dedup {
		if t.Before(tooOld) {
			delete(mq.dedup, h)
		}
	}
}

// Publish encodes payload, forwards it to any internal subscriptions and publishes it.
func (mq *mq) Publish(topic string, payload interface{}) error {
	data, err := mq.codec.Marshal(payload)
	if err != nil {
		return fmt.Errorf("cannot encode payload for %s: %w", topic, err)
	}

	// Add message ID to de-dup hash first, the broker may echo it back before Publish returns.
	mq.dedupMu.Lock()
	mq.dedup[hashMessage(topic, data)] = time.Now()
	mq.dedupMu.Unlock()

	// Internal subscription hooks.
	mq.hooksMu.Lock()
	hooks := mq.subHooks
	mq.hooksMu.Unlock()
	for _, hook := range hooks {
		if topic == hook.topic {
			hook.fn(&Message{Topic: topic, Payload: data})
		}
	}

	// External MQTT publishing.
	mq.conn.Publish(topic, 1, false, data)
	return nil
}

// Subscribe subscribes to an MQTT topic and ensures that internal forwarding occurs as well.
func (mq *mq) Subscribe(topic string, fn func(*Message)) error {
	mq.hooksMu.Lock()
	mq.subHooks = append(mq.subHooks, subHook{topic, fn})
	mq.hooksMu.Unlock()

	// MQTT subscription handler.
	handler := func(c mqtt.Client, m mqtt.Message) {
		// Check whether we sent it, in which case we already forwarded locally.
		payload := m.Payload()
		hash := hashMessage(topic, payload)
		mq.dedupMu.Lock()
		_, dup := mq.dedup[hash]
		delete(mq.dedup, hash)
		mq.dedupMu.Unlock()
		if dup {
			return
		}
		fn(&Message{Topic: m.Topic(), Payload: payload})
	}

	// Perform MQTT subscription.
	token := mq.conn.Subscribe(topic, 1, handler)
	if !token.WaitTimeout(2 * time.Second) {
		return fmt.Errorf("timeout subscribing to %s", topic)
	}
	return token.Error()
}

func hashMessage(topic string, payload []byte) uint64 {
	h := fnv.New64()
	h.Write([]byte(topic))
	h.Write([]byte("ǂ"))
	h.Write(payload)
	return h.Sum64()
}

// topicJoin appends a suffix to a topic prefix.
func topicJoin(prefix, suffix string) string {
	if suffix == "" {
		return prefix
	}
	return strings.TrimSuffix(prefix, "/") + "/" + strings.TrimPrefix(suffix, "/")
}
