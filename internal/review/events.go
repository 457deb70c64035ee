// Copyright 2026 The Crux Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package review

import "sync"

// Change kinds published to subscribers.
const (
	ChangeCreated = "created"
	ChangeUpdated = "updated"
	ChangeDeleted = "deleted"
)

// Change is a review mutation pushed to live dashboard subscribers.
type Change struct {
	Kind   string  `json:"kind"`
	Review *Review `json:"review"`
}

// Broker fans review changes out to per-tenant subscribers. Subscribers
// are server-sent-event streams; a slow subscriber drops events rather
// than blocking publishers.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan Change]struct{}
}

// NewBroker creates an event broker
func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[chan Change]struct{})}
}

// Subscribe registers a listener for one tenant's changes. The returned
// cancel func must be called when the listener goes away.
func (b *Broker) Subscribe(tenantID string) (<-chan Change, func()) {
	ch := make(chan Change, 16)

	b.mu.Lock()
	if b.subs[tenantID] == nil {
		b.subs[tenantID] = make(map[chan Change]struct{})
	}
	b.subs[tenantID][ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if set, ok := b.subs[tenantID]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(b.subs, tenantID)
			}
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers a change to every subscriber of the tenant. Delivery
// is best effort; a full subscriber buffer drops the event.
func (b *Broker) Publish(tenantID string, change Change) {
	if b == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs[tenantID] {
		select {
		case ch <- change:
		default:
		}
	}
}
