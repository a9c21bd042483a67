package rachio

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testServer(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	client := NewClient("testkey")
	client.BaseURL = server.URL
	return client, server
}

func TestGetPersonID(t *testing.T) {
	client, server := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/person/info", r.URL.Path)
		assert.Equal(t, "Bearer testkey", r.Header.Get("Authorization"))
		w.Header().Set("X-RateLimit-Limit", "1700")
		w.Header().Set("X-RateLimit-Remaining", "1699")
		json.NewEncoder(w).Encode(map[string]string{"id": "person-1"})
	})
	defer server.Close()

	id, err := client.GetPersonID()
	assert.NoError(t, err)
	assert.Equal(t, "person-1", id)
	assert.Equal(t, 1700, client.RateLimit().Limit)
	assert.Equal(t, 1699, client.RateLimit().Remaining)
}

func TestGetDevice(t *testing.T) {
	client, server := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/device/dev-1", r.URL.Path)
		json.NewEncoder(w).Encode(Device{
			Id:         "dev-1",
			Name:       "Lawn",
			Status:     "ONLINE",
			MacAddress: "AABBCCDDEEFF",
			On:         true,
			Zones:      []Zone{{Id: "z-1", ZoneNumber: 1, Name: "Front", Enabled: true}},
		})
	})
	defer server.Close()

	device, err := client.GetDevice("dev-1")
	assert.NoError(t, err)
	assert.Equal(t, "Lawn", device.Name)
	assert.Equal(t, 1, len(device.Zones))
	assert.Equal(t, "Front", device.Zones[0].Name)
}

func TestStartZone(t *testing.T) {
	client, server := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "PUT", r.Method)
		assert.Equal(t, "/zone/start", r.URL.Path)
		var body struct {
			Id       string `json:"id"`
			Duration int    `json:"duration"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, "z-1", body.Id)
		assert.Equal(t, 600, body.Duration)
		w.WriteHeader(http.StatusNoContent)
	})
	defer server.Close()

	assert.NoError(t, client.StartZone("z-1", 10*time.Minute))
}

func TestErrorStatus(t *testing.T) {
	client, server := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errors":[{"message":"not found"}]}`, http.StatusNotFound)
	})
	defer server.Close()

	_, err := client.GetDevice("nope")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestCreateWebhook(t *testing.T) {
	client, server := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/notification/webhook", r.URL.Path)
		var body webhookBody
		json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, "dev-1", body.Device.Id)
		assert.Equal(t, "polyglot", body.ExternalId)
		assert.Equal(t, 9, len(body.EventTypes))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("{}"))
	})
	defer server.Close()

	var types []EventType
	for _, id := range EventTypes {
		types = append(types, EventType{Id: id})
	}
	err := client.CreateWebhook("dev-1", "polyglot", "http://example.org:3001", types)
	assert.NoError(t, err)
}

func TestListWebhooks(t *testing.T) {
	client, server := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/notification/dev-1/webhook", r.URL.Path)
		json.NewEncoder(w).Encode([]Webhook{
			{Id: "wh-1", ExternalId: "polyglot", Url: "http://old.example.org:3001"},
		})
	})
	defer server.Close()

	hooks, err := client.ListWebhooks("dev-1")
	assert.NoError(t, err)
	if assert.Equal(t, 1, len(hooks)) {
		assert.Equal(t, "polyglot", hooks[0].ExternalId)
	}
}
