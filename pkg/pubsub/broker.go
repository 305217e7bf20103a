/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package pubsub fans session updates out to UI subscribers. A Broker is
// created once by the caller and injected where needed.
package pubsub

import (
	"log"
	"sync"
	"time"

	"github.com/suzarilshah/aquanexus-sub003/pkg/models"
)

const defaultBuffer = 16

// Event types.
const (
	EventSessionUpdated = "session_updated"
	EventBatchSent      = "batch_sent"
	EventSessionFailed  = "session_failed"
	EventCompleted      = "session_completed"
)

// Event is a push update about one session, published on the topic of its
// environment.
type Event struct {
	Type          string               `json:"type"`
	EnvironmentID string               `json:"environmentId"`
	SessionID     string               `json:"sessionId,omitempty"`
	DeviceType    models.DeviceType    `json:"deviceType,omitempty"`
	Status        models.SessionStatus `json:"status,omitempty"`
	Cursor        int                  `json:"cursor"`
	TotalRows     int                  `json:"totalRows"`
	Message       string               `json:"message,omitempty"`
	Timestamp     time.Time            `json:"timestamp"`
}

// Publisher is the write side of the broker.
type Publisher interface {
	Publish(topic string, e Event)
}

// Broker is an in-process topic broker. Publish never blocks: an event is
// dropped for a subscriber whose buffer is full.
type Broker struct {
	mu     sync.RWMutex
	subs   map[string]map[uint64]chan Event
	nextID uint64
	buffer int
}

// NewBroker creates a broker whose subscriber channels hold buffer events.
func NewBroker(buffer int) *Broker {
	if buffer <= 0 {
		buffer = defaultBuffer
	}

	return &Broker{
		subs:   make(map[string]map[uint64]chan Event),
		buffer: buffer,
	}
}

// Subscribe returns a channel of events for topic and a function that ends
// the subscription and closes the channel. The function may be called more
// than once.
func (b *Broker) Subscribe(topic string) (<-chan Event, func()) {
	ch := make(chan Event, b.buffer)

	b.mu.Lock()
	b.nextID++
	id := b.nextID

	if b.subs[topic] == nil {
		b.subs[topic] = make(map[uint64]chan Event)
	}

	b.subs[topic][id] = ch
	b.mu.Unlock()

	var once sync.Once

	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()

			delete(b.subs[topic], id)

			if len(b.subs[topic]) == 0 {
				delete(b.subs, topic)
			}

			close(ch)
		})
	}
}

// Publish delivers e to every current subscriber of topic.
func (b *Broker) Publish(topic string, e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subs[topic] {
		select {
		case ch <- e:
		default:
			log.Printf("Dropping %s event for slow subscriber %d on %s", e.Type, id, topic)
		}
	}
}

// Subscribers returns the number of subscribers of topic.
func (b *Broker) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.subs[topic])
}
