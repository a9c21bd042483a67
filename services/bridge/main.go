// Service bridge connects the Rachio cloud to the node server: it discovers
// controllers, zones and schedules as nodes, keeps their status drivers
// current and relays host commands back as cloud API calls.
package bridge

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/isybridge/rachio/config"
	"github.com/isybridge/rachio/polyglot"
	"github.com/isybridge/rachio/pubsub"
	"github.com/isybridge/rachio/rachio"
	"github.com/isybridge/rachio/services"
	"github.com/isybridge/rachio/util"
)

const (
	// minimum age before a forced refresh hits the cloud again
	refreshForce = 5 * time.Second
	// age beyond which a refresh always hits the cloud
	refreshStale = time.Hour

	defaultLongPoll = 60 * time.Second
)

// connectivity self-test retries while the webhook listener in this process
// comes up
var (
	connectivityAttempts   = 5
	connectivityRetryDelay = 2 * time.Second
)

// node is anything addressable by host commands.
type node interface {
	UpdateInfo(force, queryAPI bool)
	Command(ev *pubsub.Event) error
}

// Service bridge
type Service struct {
	client   *rachio.Client
	iface    *polyglot.Interface
	queue    *polyglot.AdditionQueue
	personId string
	started  time.Time

	nodes   map[string]node
	devices map[string]*DeviceNode
	root    *polyglot.Node
}

func (self *Service) ID() string {
	return "bridge"
}

func (self *Service) QueryHandlers() services.QueryHandlers {
	return services.QueryHandlers{
		"status":   services.TextHandler(self.queryStatus),
		"discover": services.TextHandler(self.queryDiscover),
		"help":     services.StaticHandler("status: cloud api quota\ndiscover: rediscover controllers"),
	}
}

func (self *Service) queryStatus(q services.Question) string {
	rl := self.client.RateLimit()
	return fmt.Sprintf("up %s, %d/%d API requests remaining until %s",
		util.FriendlyDuration(time.Since(self.started)),
		rl.Remaining, rl.Limit, rl.Reset.Format(time.RFC3339))
}

func (self *Service) queryDiscover(q services.Question) string {
	if err := self.discover(); err != nil {
		return fmt.Sprintf("discovery failed: %s", err)
	}
	return fmt.Sprintf("discovery complete: %d nodes", len(self.nodes))
}

func (self *Service) Run() error {
	self.started = time.Now()
	conf := services.Config.Rachio
	if conf.Api_Key == "" {
		return errors.New("Rachio api_key required in order to establish connection. See https://rachio.readme.io/v1.0/docs for instructions on how to obtain one")
	}
	self.client = rachio.NewClient(conf.Api_Key)
	self.iface = polyglot.NewInterface(services.Publisher)
	self.queue = polyglot.NewAdditionQueue(self.iface, additionInterval(conf.NodeAdditionInterval))
	self.nodes = map[string]node{}
	self.devices = map[string]*DeviceNode{}

	log.Printf("Ensure router/firewall forwards requests to this host on port %d", conf.Port)
	if err := self.awaitConnectivity(); err != nil {
		return errors.Wrap(err, "webhook connectivity test failed")
	}
	log.Printf("Connectivity test to %s succeeded", services.Config.WebhookURL())

	// root node for the bridge itself
	root, err := self.iface.NewNode("rachio", "rachio", "rachio", "Rachio Bridge",
		[]polyglot.Driver{{Name: "ST", Value: 0, UOM: 2}})
	if err != nil {
		return err
	}
	self.root = root
	self.iface.AddNode(root)
	self.nodes[root.Address] = &rootNode{service: self}

	if err := self.discover(); err != nil {
		log.Println("Connection error on discovery, may be temporary:", err)
	}
	root.SetDriver("ST", 1)
	services.Publisher.Emit(pubsub.NewEvent("bridge/ready", pubsub.Fields{}))

	longPoll := defaultLongPoll
	if conf.LongPoll != nil {
		longPoll = conf.LongPoll.Duration
	}
	ticker := time.NewTicker(longPoll)
	// subscriptions can drift (host address change, cloud-side edits), so
	// reconcile them once a day at 3am
	reconcile := util.NewScheduler(3*time.Hour, 24*time.Hour)
	events := services.Subscriber.Subscribe(pubsub.Prefix("command"), pubsub.Exact("rachio/event"))
	for {
		select {
		case ev := <-events:
			if ev.Topic == "rachio/event" {
				self.handleCloudEvent(ev)
			} else {
				self.handleCommand(ev)
			}
		case <-ticker.C:
			// refresh from cache only, the cloud is polled at most hourly
			self.updateAll(false, false)
			self.mirrorAll()
		case <-reconcile.C:
			for deviceId := range self.devices {
				if err := self.configureWebhooks(deviceId); err != nil {
					log.Printf("Error reconciling webhooks for device %s: %s", deviceId, err)
				}
			}
		}
	}
}

// additionInterval clamps the configured pacing to the permissible range.
func additionInterval(seconds int) time.Duration {
	if seconds < 0 || seconds > 60 {
		log.Printf("Node addition interval %d outside of permissible range of 0-60 seconds, defaulting to %d second(s)",
			seconds, config.DefaultNodeAdditionInterval)
		seconds = config.DefaultNodeAdditionInterval
	}
	return time.Duration(seconds) * time.Second
}

// awaitConnectivity retries the self-test while the webhook listener, started
// alongside in the same process, comes up.
func (self *Service) awaitConnectivity() error {
	var err error
	for try := 0; try < connectivityAttempts; try++ {
		if err = self.testConnectivity(); err == nil {
			return nil
		}
		time.Sleep(connectivityRetryDelay)
	}
	return err
}

// testConnectivity checks the webhook listener is reachable on its external
// address, otherwise cloud events would silently never arrive.
func (self *Service) testConnectivity() error {
	client := &http.Client{
		Timeout: 10 * time.Second,
		// the listener commonly runs on a self-signed certificate
		Transport: &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}},
	}
	resp, err := client.Get(services.Config.WebhookURL() + "/test")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	var body struct {
		Success string `json:"success"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return errors.Wrap(err, "unexpected response")
	}
	if body.Success != "True" {
		return errors.Errorf("unexpected content: success=%q", body.Success)
	}
	return nil
}

func (self *Service) discover() error {
	personId, err := self.client.GetPersonID()
	if err != nil {
		return err
	}
	self.personId = personId
	person, err := self.client.GetPerson(personId)
	if err != nil {
		return err
	}
	rl := self.client.RateLimit()
	log.Printf("Obtained person id (%s), %d/%d API requests remaining until %s",
		personId, rl.Remaining, rl.Limit, rl.Reset.Format(time.RFC3339))

	log.Printf("%d Rachio controllers found. Adding to ISY", len(person.Devices))
	for i := range person.Devices {
		device := person.Devices[i]
		address := polyglot.CleanAddress(device.MacAddress)
		if _, exists := self.nodes[address]; !exists {
			dn, err := newDeviceNode(self, address, &device)
			if err != nil {
				log.Printf("Error adding controller %s (%s): %s", device.Name, address, err)
				continue
			}
			self.nodes[address] = dn
			self.devices[device.Id] = dn
			self.queue.Add(dn.Node)
			services.Stor.Set("rachio/devices/"+device.Id, address)
			dn.UpdateInfo(true, true)
			dn.discoverChildren()
		}
		if err := self.configureWebhooks(device.Id); err != nil {
			log.Printf("Error configuring webhooks for device %s: %s", device.Id, err)
		}
	}
	self.mirrorAll()
	return nil
}

func (self *Service) handleCommand(ev *pubsub.Event) {
	address := ev.Address()
	n, ok := self.nodes[address]
	if !ok {
		log.Println("Command for unknown node:", address)
		return
	}
	if err := n.Command(ev); err != nil {
		log.Printf("Error running %s on %s: %s", ev.Command(), address, err)
	}
	self.mirrorAll()
}

// handleCloudEvent processes a webhook notification relayed by the webhook
// listener. Only the device the event names is refreshed.
func (self *Service) handleCloudEvent(ev *pubsub.Event) {
	deviceId := ev.StringField("deviceId")
	dn, ok := self.devices[deviceId]
	if !ok {
		log.Println("Cloud event for unknown device:", deviceId)
		return
	}
	log.Printf("Cloud %s event for %s", ev.StringField("type"), dn.Node.Name)
	dn.UpdateInfo(false, true)
	for _, n := range self.nodes {
		if child, ok := n.(deviceChild); ok && child.DeviceId() == deviceId {
			n.UpdateInfo(false, false)
		}
	}
	self.mirrorAll()
}

// deviceChild is a node subordinate to a controller.
type deviceChild interface {
	DeviceId() string
}

func (self *Service) updateAll(force, queryAPI bool) {
	for _, n := range self.nodes {
		n.UpdateInfo(force, queryAPI)
	}
}

// mirrorAll writes node snapshots to the store for the api service.
func (self *Service) mirrorAll() {
	for _, node := range self.iface.Nodes() {
		snapshot := map[string]interface{}{
			"address": node.Address,
			"name":    node.Name,
			"nodedef": node.Def,
			"primary": node.Primary,
			"drivers": node.Drivers(),
		}
		value, err := json.Marshal(snapshot)
		if err != nil {
			continue
		}
		if err := services.Stor.Set("rachio/nodes/"+node.Address, string(value)); err != nil {
			log.Println("Error writing node snapshot to store:", err)
			return
		}
	}
}

// rootNode handles commands addressed to the bridge node itself.
type rootNode struct {
	service *Service
}

func (self *rootNode) UpdateInfo(force, queryAPI bool) {}

func (self *rootNode) Command(ev *pubsub.Event) error {
	switch ev.Command() {
	case "DISCOVER":
		return self.service.discover()
	case "QUERY":
		self.service.updateAll(true, true)
		return nil
	}
	return errors.Errorf("unknown command: %s", ev.Command())
}

// retry works around transient TLS failures on the first cloud request after
// idle, trying the call twice before giving up.
func retry(action string, fn func() error) error {
	var err error
	for try := 0; try < 2; try++ {
		if err = fn(); err == nil {
			return nil
		}
		log.Printf("Error on %s: %s", action, err)
	}
	return err
}
