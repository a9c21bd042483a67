package mqtt

import (
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
)

// Prefix under which all bus traffic lives on the broker. The Polyglot host
// subscribes to the same tree.
const Prefix = "polyglot/"

// Client is the shared mqtt connection, exposed for code needing raw
// publishes outside the event bus.
var Client MQTT.Client

type Broker struct {
	broker     string
	client     MQTT.Client
	subscriber *Subscriber
}

func NewBroker(url string, name string) *Broker {
	self := &Broker{broker: url}
	self.subscriber = NewSubscriber(self)

	// generate a client id
	hostname, _ := os.Hostname()
	pid := os.Getpid()
	r := rand.Int31()
	clientID := fmt.Sprintf("%s/%s-%d-%d", name, hostname, pid, r)

	opts := MQTT.NewClientOptions()
	opts.AddBroker(url)
	opts.SetClientID(clientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetOnConnectHandler(self.subscriber.connectHandler)
	opts.SetDefaultPublishHandler(self.subscriber.publishHandler)

	client := MQTT.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalln("Couldn't connect to mqtt:", token.Error())
	}
	self.client = client
	Client = client
	return self
}

func (self *Broker) Id() string {
	return "mqtt: " + self.broker
}

func (self *Broker) Subscriber() *Subscriber {
	return self.subscriber
}

func (self *Broker) Publisher() *Publisher {
	return &Publisher{broker: self.broker, client: self.client}
}
