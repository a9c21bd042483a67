package api

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/isybridge/rachio/pubsub"
	"github.com/isybridge/rachio/pubsub/dummy"
	"github.com/isybridge/rachio/services"
)

func setup() *dummy.Publisher {
	store := services.NewMockStore()
	store.Set("rachio/nodes/rachio", `{"address":"rachio","name":"Rachio Bridge","nodedef":"rachio","drivers":[{"driver":"ST","value":1,"uom":2}]}`)
	store.Set("rachio/nodes/aabbccddeeff", `{"address":"aabbccddeeff","name":"Back Garden","nodedef":"rachio_device"}`)
	services.Stor = store
	pub := &dummy.Publisher{}
	services.Publisher = pub
	return pub
}

func TestApiIndex(t *testing.T) {
	setup()
	w := httptest.NewRecorder()
	router().ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), "listening")
}

func TestApiNodes(t *testing.T) {
	setup()
	w := httptest.NewRecorder()
	router().ServeHTTP(w, httptest.NewRequest("GET", "/nodes", nil))
	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), "Back Garden")
	assert.Contains(t, w.Body.String(), "Rachio Bridge")
}

func TestApiNode(t *testing.T) {
	setup()
	w := httptest.NewRecorder()
	router().ServeHTTP(w, httptest.NewRequest("GET", "/nodes/rachio", nil))
	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), "Rachio Bridge")

	w = httptest.NewRecorder()
	router().ServeHTTP(w, httptest.NewRequest("GET", "/nodes/missing", nil))
	assert.Equal(t, 404, w.Code)
}

func TestApiNodeQuery(t *testing.T) {
	pub := setup()
	w := httptest.NewRecorder()
	router().ServeHTTP(w, httptest.NewRequest("POST", "/nodes/aabbccddeeff/query", nil))
	assert.Equal(t, 200, w.Code)
	if assert.Equal(t, 1, len(pub.Events)) {
		assert.Equal(t, "command/aabbccddeeff", pub.Events[0].Topic)
		assert.Equal(t, "QUERY", pub.Events[0].Command())
	}
}

func TestApiNodeCommand(t *testing.T) {
	pub := setup()
	w := httptest.NewRecorder()
	router().ServeHTTP(w, httptest.NewRequest("GET", "/nodes/aabbccddeeff1/command?cmd=START&value=10", nil))
	assert.Equal(t, 200, w.Code)
	if assert.Equal(t, 1, len(pub.Events)) {
		ev := pub.Events[0]
		assert.Equal(t, "command/aabbccddeeff1", ev.Topic)
		assert.Equal(t, "START", ev.Command())
		assert.Equal(t, 10.0, ev.FloatField("value"))
	}

	// missing cmd
	w = httptest.NewRecorder()
	router().ServeHTTP(w, httptest.NewRequest("GET", "/nodes/aabbccddeeff1/command", nil))
	assert.Equal(t, 400, w.Code)

	// non-numeric value
	w = httptest.NewRecorder()
	router().ServeHTTP(w, httptest.NewRequest("GET", "/nodes/aabbccddeeff1/command?cmd=START&value=ten", nil))
	assert.Equal(t, 400, w.Code)
}

func TestApiEventsFeed(t *testing.T) {
	setup()
	sub := &dummy.Subscriber{Events: []*pubsub.Event{
		pubsub.NewEvent("rachio/event", pubsub.Fields{"deviceId": "dev-1"}),
		pubsub.NewEvent("status/rachio", pubsub.Fields{"driver": "ST"}),
	}}
	services.Subscriber = sub

	w := httptest.NewRecorder()
	router().ServeHTTP(w, httptest.NewRequest("GET", "/events/feed", nil))
	lines := strings.Count(w.Body.String(), "\n")
	assert.True(t, lines >= 2)
	assert.Contains(t, w.Body.String(), "dev-1")
}
