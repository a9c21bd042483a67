package dummy

import "github.com/isybridge/rachio/pubsub"

// Publisher for testing - collects emitted events.
type Publisher struct {
	Events []*pubsub.Event
}

func (pub *Publisher) ID() string {
	return "dummy"
}

func (pub *Publisher) Emit(ev *pubsub.Event) {
	pub.Events = append(pub.Events, ev)
	ev.Published.Set()
}

func (pub *Publisher) Close() {
}

// OnTopic returns the emitted events matching topic.
func (pub *Publisher) OnTopic(topic pubsub.Topic) []*pubsub.Event {
	var ret []*pubsub.Event
	for _, ev := range pub.Events {
		if topic.Match(ev.Topic) {
			ret = append(ret, ev)
		}
	}
	return ret
}
