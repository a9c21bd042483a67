package pubsub

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/isybridge/rachio/util"
)

type Fields map[string]interface{}

// Event is the unit of traffic on the host bus - a topic plus a flat set of
// JSON fields.
type Event struct {
	Topic     string
	Timestamp time.Time
	Fields    Fields
	Retained  bool
	Published *util.Event
}

func NewEvent(topic string, fields map[string]interface{}) *Event {
	timestamp := time.Now().UTC()
	if ts, ok := fields["timestamp"].(string); ok {
		delete(fields, "timestamp")
		timestamp, _ = time.Parse(TimeFormat, ts)
	}
	return &Event{Topic: topic, Timestamp: timestamp, Fields: fields, Published: util.NewEvent()}
}

// NewCommand creates a command event addressed to a node.
func NewCommand(address string, command string, value interface{}) *Event {
	fields := map[string]interface{}{
		"address": address,
		"command": command,
	}
	if value != nil {
		fields["value"] = value
	}
	return NewEvent(fmt.Sprintf("command/%s", address), fields)
}

const TimeFormat = "2006-01-02 15:04:05.000"

func (event *Event) Map() map[string]interface{} {
	data := make(map[string]interface{})
	data["topic"] = event.Topic
	data["timestamp"] = event.Timestamp.Format(TimeFormat)
	for k, v := range event.Fields {
		data[k] = v
	}
	return data
}

func (event *Event) Bytes() []byte {
	v, _ := json.Marshal(event.Map())
	return v
}

func (event *Event) String() string {
	return string(event.Bytes())
}

func (event *Event) StringField(name string) string {
	ret, _ := event.Fields[name].(string)
	return ret
}

func (event *Event) IntField(name string) int64 {
	ret, _ := event.Fields[name].(float64)
	return int64(ret)
}

func (event *Event) FloatField(name string) float64 {
	ret, _ := event.Fields[name].(float64)
	return ret
}

func (event *Event) SetRetained(retained bool) {
	event.Retained = retained
}

func (event *Event) SetField(name string, value interface{}) {
	event.Fields[name] = value
}

func (event *Event) SetFields(fields map[string]interface{}) {
	for key, value := range fields {
		event.Fields[key] = value
	}
}

func (event *Event) Address() string {
	return event.StringField("address")
}

func (event *Event) Source() string {
	return event.StringField("source")
}

func (event *Event) Command() string {
	return event.StringField("command")
}

func (event *Event) DeviceID() string {
	return event.StringField("deviceId")
}

// Parse an event from the json wire form. topic overrides any topic field
// present in the message, when non-empty.
func Parse(msg string, topic string) *Event {
	var fields map[string]interface{}
	err := json.Unmarshal([]byte(msg), &fields)
	if err != nil {
		return nil
	}
	if t, ok := fields["topic"].(string); ok {
		delete(fields, "topic")
		if topic == "" {
			topic = t
		}
	}
	if topic == "" {
		return nil
	}
	return NewEvent(topic, fields)
}
