package pubsub

import (
	"fmt"
	"time"
)

func ExampleEvent_String() {
	ev := NewEvent("test", Fields{})
	loc, _ := time.LoadLocation("UTC")
	ev.Timestamp = time.Date(2020, 5, 1, 3, 4, 5, 987654321, loc)
	fmt.Println(ev.String())
	//Output: {"timestamp":"2020-05-01 03:04:05.987","topic":"test"}
}

func ExampleParse_withTimestamp() {
	ev := Parse(`{"timestamp":"2020-05-01 03:04:05.987","topic":"test","field":"value"}`, "")
	fmt.Println(ev.Topic)
	fmt.Println(ev.Timestamp)
	fmt.Println(ev.Fields)
	// Output:
	// test
	// 2020-05-01 03:04:05.987 +0000 UTC
	// map[field:value]
}

func ExampleParse_topicOverride() {
	ev := Parse(`{"deviceId":"abc"}`, "rachio/event")
	fmt.Println(ev.Topic)
	fmt.Println(ev.DeviceID())
	// Output:
	// rachio/event
	// abc
}

func ExampleParse_bad() {
	ev := Parse(`{`, "")
	fmt.Println(ev)
	// Output:
	// <nil>
}

func ExampleNewCommand() {
	ev := NewCommand("abcdef1234561", "RAIN_DELAY", 60)
	fmt.Println(ev.Topic)
	fmt.Println(ev.Address())
	fmt.Println(ev.Command())
	// Output:
	// command/abcdef1234561
	// abcdef1234561
	// RAIN_DELAY
}
