package webhook

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/isybridge/rachio/pubsub/dummy"
	"github.com/isybridge/rachio/services"
)

func setup() (*Service, *dummy.Publisher) {
	store := services.NewMockStore()
	store.Set("rachio/devices/dev-1", "aabbccddeeff")
	services.Stor = store
	pub := &dummy.Publisher{}
	services.Publisher = pub
	return &Service{testPending: true}, pub
}

func TestPostKnownDevice(t *testing.T) {
	service, pub := setup()
	body := `{"deviceId": "dev-1", "type": "ZONE_STATUS", "zoneId": "z-1"}`
	req := httptest.NewRequest("POST", "/", strings.NewReader(body))
	w := httptest.NewRecorder()
	service.router().ServeHTTP(w, req)

	assert.Equal(t, 204, w.Code)
	if assert.Equal(t, 1, len(pub.Events)) {
		ev := pub.Events[0]
		assert.Equal(t, "rachio/event", ev.Topic)
		assert.Equal(t, "dev-1", ev.DeviceID())
		assert.Equal(t, "ZONE_STATUS", ev.StringField("type"))
	}
}

func TestPostUnknownDevice(t *testing.T) {
	service, pub := setup()
	body := `{"deviceId": "dev-9", "type": "ZONE_STATUS"}`
	req := httptest.NewRequest("POST", "/", strings.NewReader(body))
	w := httptest.NewRecorder()
	service.router().ServeHTTP(w, req)

	// no acknowledgement, nothing relayed
	assert.NotEqual(t, 204, w.Code)
	assert.Equal(t, 0, len(pub.Events))
}

func TestPostMalformed(t *testing.T) {
	service, pub := setup()
	req := httptest.NewRequest("POST", "/", strings.NewReader("not json"))
	w := httptest.NewRecorder()
	service.router().ServeHTTP(w, req)
	assert.Equal(t, 0, len(pub.Events))
}

func TestSelfTest(t *testing.T) {
	service, _ := setup()
	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	service.router().ServeHTTP(w, req)
	assert.Equal(t, 200, w.Code)
	assert.JSONEq(t, `{"success": "True"}`, w.Body.String())

	// once the bridge is ready the endpoint goes quiet
	service.testPending = false
	w = httptest.NewRecorder()
	service.router().ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))
	assert.Equal(t, "", w.Body.String())
}
