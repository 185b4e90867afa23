package conductor

import (
	"sort"
	"sync"
)

// DeliveryReport describes the outcome of one fan-out.
type DeliveryReport struct {
	Topic     string
	Targeted  int           // Subscribers listed under the topic when the fan-out started
	Delivered int           // Subscribers that accepted the whole frame
	Pruned    []*Subscriber // Subscribers removed because their write failed
	Errors    []error       // Write errors, parallel to Pruned
}

// TopicRegistry maps topic names to the subscribers registered for them.
//
// The registry mutex guards the map and the per-topic lists only; it is never
// held across a socket write. A fan-out works on a snapshot of the topic's list
// and removes dead subscribers by identity afterwards, so registrations that
// land during a slow write are neither lost nor written to mid-fan-out.
//
// Thread safety: Safe for concurrent use.
type TopicRegistry struct {
	mu     sync.Mutex
	topics map[string][]*Subscriber
	closed bool
}

// NewTopicRegistry creates an empty registry.
func NewTopicRegistry() *TopicRegistry {
	return &TopicRegistry{
		topics: make(map[string][]*Subscriber),
	}
}

// Register appends sub to the list of every topic in topics, creating lists as
// needed. A subscriber registered twice under the same topic is listed twice.
//
// Registering on a closed registry kills the subscriber instead.
func (r *TopicRegistry) Register(topics []string, sub *Subscriber) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		sub.kill()
		return
	}
	for _, topic := range topics {
		r.topics[topic] = append(r.topics[topic], sub)
	}
	r.mu.Unlock()
}

// RouteAndDeliver writes raw to every subscriber registered for topic.
//
// An unknown topic or an empty list is a no-op. Each subscriber is written under
// its own lock; a subscriber whose write fails is removed from this topic's list
// once the pass over the snapshot is complete. Delivery to the remaining
// subscribers is unaffected by a failure.
func (r *TopicRegistry) RouteAndDeliver(topic string, raw []byte) DeliveryReport {
	report := DeliveryReport{Topic: topic}

	r.mu.Lock()
	subs := r.topics[topic]
	snapshot := make([]*Subscriber, len(subs))
	copy(snapshot, subs)
	r.mu.Unlock()

	report.Targeted = len(snapshot)
	if len(snapshot) == 0 {
		return report
	}

	dead := make(map[*Subscriber]struct{})
	for _, sub := range snapshot {
		if _, seen := dead[sub]; seen {
			continue
		}
		if err := sub.write(raw); err != nil {
			dead[sub] = struct{}{}
			report.Pruned = append(report.Pruned, sub)
			report.Errors = append(report.Errors, err)
			continue
		}
		report.Delivered++
	}

	if len(dead) > 0 {
		r.mu.Lock()
		r.topics[topic] = removeSubscribers(r.topics[topic], dead)
		r.mu.Unlock()
	}

	return report
}

// removeSubscribers filters dead out of list in place. The emptied list stays
// in the map.
func removeSubscribers(list []*Subscriber, dead map[*Subscriber]struct{}) []*Subscriber {
	kept := list[:0]
	for _, sub := range list {
		if _, ok := dead[sub]; !ok {
			kept = append(kept, sub)
		}
	}
	for i := len(kept); i < len(list); i++ {
		list[i] = nil
	}
	return kept
}

// Subscribers returns the number of entries listed under topic.
func (r *TopicRegistry) Subscribers(topic string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.topics[topic])
}

// Topics returns every topic that has a list, including emptied ones, sorted.
func (r *TopicRegistry) Topics() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	topics := make([]string, 0, len(r.topics))
	for topic := range r.topics {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	return topics
}

// Close kills every registered subscriber and refuses further registrations.
func (r *TopicRegistry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	var subs []*Subscriber
	for _, list := range r.topics {
		subs = append(subs, list...)
	}
	r.mu.Unlock()

	for _, sub := range subs {
		sub.kill()
	}
}
