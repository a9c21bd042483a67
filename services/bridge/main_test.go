package bridge

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isybridge/rachio/config"
	"github.com/isybridge/rachio/polyglot"
	"github.com/isybridge/rachio/pubsub"
	"github.com/isybridge/rachio/pubsub/dummy"
	"github.com/isybridge/rachio/rachio"
	"github.com/isybridge/rachio/services"
)

type cloud struct {
	server   *httptest.Server
	requests []string
	webhooks []rachio.Webhook
}

var testDevice = rachio.Device{
	Id:         "dev-1",
	Name:       "Back Garden",
	Status:     "ONLINE",
	MacAddress: "AA:BB:CC:DD:EE:FF",
	On:         true,
	Zones: []rachio.Zone{
		{Id: "z-1", ZoneNumber: 1, Name: "Lawn", Enabled: true},
		{Id: "z-2", ZoneNumber: 2, Name: "Beds", Enabled: true},
	},
	ScheduleRules: []rachio.ScheduleRule{
		{Id: "sched-a1", Name: "Morning", Enabled: true, TotalDuration: 1200},
	},
	FlexScheduleRules: []rachio.ScheduleRule{
		{Id: "flex-b2", Name: "Flexible", Enabled: true, TotalDuration: 600},
	},
}

func newCloud(t *testing.T) *cloud {
	c := &cloud{}
	c.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.requests = append(c.requests, r.Method+" "+r.URL.Path)
		switch r.Method + " " + r.URL.Path {
		case "GET /person/info":
			json.NewEncoder(w).Encode(map[string]string{"id": "person-1"})
		case "GET /person/person-1":
			json.NewEncoder(w).Encode(rachio.Person{Id: "person-1", Devices: []rachio.Device{testDevice}})
		case "GET /device/dev-1":
			json.NewEncoder(w).Encode(testDevice)
		case "GET /device/dev-1/current_schedule":
			json.NewEncoder(w).Encode(rachio.CurrentSchedule{
				Status: "PROCESSING", ZoneId: "z-1", Type: "MANUAL", Duration: 600,
			})
		case "GET /notification/dev-1/webhook":
			json.NewEncoder(w).Encode(c.webhooks)
		default:
			// commands and webhook writes
			w.Write([]byte("{}"))
		}
	}))
	t.Cleanup(c.server.Close)
	return c
}

func (c *cloud) count(request string) int {
	n := 0
	for _, r := range c.requests {
		if r == request {
			n++
		}
	}
	return n
}

func newTestService(t *testing.T, c *cloud) (*Service, *dummy.Publisher) {
	services.Config = config.ExampleConfig
	services.Stor = services.NewMockStore()
	pub := &dummy.Publisher{}
	services.Publisher = pub

	self := &Service{
		client:  rachio.NewClient("testkey"),
		nodes:   map[string]node{},
		devices: map[string]*DeviceNode{},
	}
	self.client.BaseURL = c.server.URL
	self.iface = polyglot.NewInterface(pub)
	self.queue = polyglot.NewAdditionQueue(self.iface, 0)
	return self, pub
}

func addedAddresses(pub *dummy.Publisher) []string {
	var ret []string
	for _, ev := range pub.Events {
		if ev.Topic == "addnode" {
			ret = append(ret, ev.StringField("address"))
		}
	}
	return ret
}

func TestDiscover(t *testing.T) {
	c := newCloud(t)
	self, pub := newTestService(t, c)

	require.NoError(t, self.discover())

	// controller, two zones, a schedule and a flex schedule
	assert.Equal(t, []string{
		"aabbccddeeff",
		"aabbccddeeff1",
		"aabbccddeeff2",
		"aabbccddeeffa1",
		"aabbccddeeffb2",
	}, addedAddresses(pub))

	// webhook device lookup recorded in the store
	address, err := services.Stor.Get("rachio/devices/dev-1")
	assert.NoError(t, err)
	assert.Equal(t, "aabbccddeeff", address)

	// one subscription created, none existed
	assert.Equal(t, 1, c.count("POST /notification/webhook"))
}

func TestDiscoverDrivers(t *testing.T) {
	c := newCloud(t)
	self, _ := newTestService(t, c)
	require.NoError(t, self.discover())

	controller := self.nodes["aabbccddeeff"].(*DeviceNode)
	st, _ := controller.Node.Driver("ST")
	assert.Equal(t, 100, st.Value) // schedule PROCESSING
	gv0, _ := controller.Node.Driver("GV0")
	assert.Equal(t, 1, gv0.Value) // ONLINE
	gv4, _ := controller.Node.Driver("GV4")
	assert.Equal(t, 1, gv4.Value) // active zone number
	gv10, _ := controller.Node.Driver("GV10")
	assert.Equal(t, 2, gv10.Value) // MANUAL
}

func TestCommandDispatch(t *testing.T) {
	c := newCloud(t)
	self, _ := newTestService(t, c)
	require.NoError(t, self.discover())

	self.handleCommand(pubsub.NewCommand("aabbccddeeff", "DON", nil))
	assert.Equal(t, 1, c.count("PUT /device/on"))

	self.handleCommand(pubsub.NewCommand("aabbccddeeff", "STOP", nil))
	assert.Equal(t, 1, c.count("PUT /device/stop_water"))

	self.handleCommand(pubsub.NewCommand("aabbccddeeff1", "START", 10.0))
	assert.Equal(t, 1, c.count("PUT /zone/start"))

	self.handleCommand(pubsub.NewCommand("aabbccddeeffa1", "SKIP", nil))
	assert.Equal(t, 1, c.count("PUT /schedulerule/skip"))

	// unknown node address is ignored
	self.handleCommand(pubsub.NewCommand("nonexistent", "DON", nil))
	assert.Equal(t, 1, c.count("PUT /device/on"))
}

func TestZoneStartValidation(t *testing.T) {
	c := newCloud(t)
	self, _ := newTestService(t, c)
	require.NoError(t, self.discover())

	zone := self.nodes["aabbccddeeff1"]
	assert.Error(t, zone.Command(pubsub.NewCommand("aabbccddeeff1", "START", nil)))
	assert.Error(t, zone.Command(pubsub.NewCommand("aabbccddeeff1", "START", 0.0)))
	assert.Equal(t, 0, c.count("PUT /zone/start"))
}

func TestCloudEventRefresh(t *testing.T) {
	c := newCloud(t)
	self, _ := newTestService(t, c)
	require.NoError(t, self.discover())
	before := c.count("GET /device/dev-1")

	// fresh cache, a cloud event should not hammer the api
	self.handleCloudEvent(pubsub.NewEvent("rachio/event", pubsub.Fields{
		"deviceId": "dev-1", "type": "ZONE_STATUS",
	}))
	assert.Equal(t, before, c.count("GET /device/dev-1"))

	// unknown device is ignored
	self.handleCloudEvent(pubsub.NewEvent("rachio/event", pubsub.Fields{
		"deviceId": "dev-9",
	}))
}

func TestWebhookReconcileStaleUrl(t *testing.T) {
	c := newCloud(t)
	self, _ := newTestService(t, c)
	c.webhooks = []rachio.Webhook{
		{Id: "wh-1", ExternalId: "polyglot", Url: "http://old.example.org:3001"},
	}

	require.NoError(t, self.configureWebhooks("dev-1"))
	assert.Equal(t, 1, c.count("PUT /notification/webhook"))
	assert.Equal(t, 0, c.count("POST /notification/webhook"))
}

func TestWebhookReconcileDuplicates(t *testing.T) {
	c := newCloud(t)
	self, _ := newTestService(t, c)
	url := services.Config.WebhookURL()
	var types []rachio.EventType
	for name, id := range rachio.EventTypes {
		if name == "WATER_BUDGET" {
			continue
		}
		types = append(types, rachio.EventType{Id: id, Name: name})
	}
	c.webhooks = []rachio.Webhook{
		{Id: "wh-1", ExternalId: "polyglot", Url: url, EventTypes: types},
		{Id: "wh-2", ExternalId: "polyglot", Url: url, EventTypes: types},
		{Id: "wh-3", ExternalId: "other", Url: "http://elsewhere:99"},
	}

	require.NoError(t, self.configureWebhooks("dev-1"))
	// first kept as-is, second deleted, third untouched
	assert.Equal(t, 0, c.count("PUT /notification/webhook"))
	assert.Equal(t, 1, c.count("DELETE /notification/webhook/wh-2"))
}

func TestAdditionInterval(t *testing.T) {
	assert.Equal(t, "5s", additionInterval(5).String())
	assert.Equal(t, "0s", additionInterval(0).String())
	// out of range falls back to the default
	assert.Equal(t, "1s", additionInterval(90).String())
	assert.Equal(t, "1s", additionInterval(-1).String())
}

func TestConnectivityRetry(t *testing.T) {
	calls := 0
	listener := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			// listener not serving yet
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"success": "True"}`))
	}))
	t.Cleanup(listener.Close)

	u, err := url.Parse(listener.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	services.Config = &config.Config{}
	services.Config.Rachio.Host = u.Hostname()
	services.Config.Rachio.Port = port

	defer func(d time.Duration) { connectivityRetryDelay = d }(connectivityRetryDelay)
	connectivityRetryDelay = time.Millisecond

	self := &Service{}
	assert.NoError(t, self.awaitConnectivity())
	assert.Equal(t, 3, calls)
}
