package util

import (
	"fmt"
	"time"
)

func ExampleNextSchedule() {
	now := time.Date(2020, 5, 1, 7, 0, 0, 0, time.UTC)
	d6h, _ := time.ParseDuration("6h")
	d8h, _ := time.ParseDuration("8h")
	d12h, _ := time.ParseDuration("12h")
	d24h, _ := time.ParseDuration("24h")

	fmt.Println(NextSchedule(now, d6h, d24h))
	fmt.Println(NextSchedule(now, d8h, d24h))
	fmt.Println(NextSchedule(now, d8h, d12h))
	// Output:
	// 2020-05-02 06:00:00 +0000 UTC
	// 2020-05-01 08:00:00 +0000 UTC
	// 2020-05-01 08:00:00 +0000 UTC
}

func ExampleFriendlyDuration() {
	d1, _ := time.ParseDuration("48h")
	d2, _ := time.ParseDuration("26.5h")
	d3, _ := time.ParseDuration("5h59m")
	d4, _ := time.ParseDuration("37m1s")
	d5, _ := time.ParseDuration("1500ms")
	d6, _ := time.ParseDuration("500ms")
	d7, _ := time.ParseDuration("0ms")

	fmt.Println(FriendlyDuration(d1))
	fmt.Println(FriendlyDuration(d2))
	fmt.Println(FriendlyDuration(d3))
	fmt.Println(FriendlyDuration(d4))
	fmt.Println(FriendlyDuration(d5))
	fmt.Println(FriendlyDuration(d6))
	fmt.Println(FriendlyDuration(d7))
	// Output:
	// 2 days
	// 1 day 2 hours
	// 5 hours 59 minutes
	// 37 minutes 1 second
	// 1 second
	// 500 milliseconds
	// 0 seconds
}
