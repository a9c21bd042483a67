package services

import "github.com/isybridge/rachio/pubsub"

func SendQuery(query, source, reply_to string) {
	fields := pubsub.Fields{
		"source":   source,
		"query":    query,
		"reply_to": reply_to,
	}
	ev := pubsub.NewEvent("query", fields)
	Publisher.Emit(ev)
}
