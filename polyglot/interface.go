package polyglot

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/isybridge/rachio/pubsub"
)

// Interface is the node server's view of the Polyglot host: a registry of
// nodes whose additions and status changes are reported over the bus.
type Interface struct {
	pub   pubsub.Publisher
	mu    sync.RWMutex
	nodes map[string]*Node
	order []string
}

func NewInterface(pub pubsub.Publisher) *Interface {
	return &Interface{pub: pub, nodes: map[string]*Node{}}
}

// NewNode constructs a node without registering it - AddNode (directly or
// through an AdditionQueue) announces it to the host.
func (self *Interface) NewNode(def, address, primary, name string, drivers []Driver) (*Node, error) {
	if address == "" || len(address) > AddressLimit {
		return nil, errors.Errorf("invalid node address %q", address)
	}
	node := &Node{
		Address: address,
		Name:    name,
		Def:     def,
		Primary: primary,
		iface:   self,
		values:  map[string]Driver{},
	}
	for _, driver := range drivers {
		node.order = append(node.order, driver.Name)
		node.values[driver.Name] = driver
	}
	return node, nil
}

// AddNode registers the node and announces it to the host. Adding an address
// twice is a no-op.
func (self *Interface) AddNode(node *Node) {
	self.mu.Lock()
	if _, exists := self.nodes[node.Address]; exists {
		self.mu.Unlock()
		return
	}
	self.nodes[node.Address] = node
	self.order = append(self.order, node.Address)
	self.mu.Unlock()

	var drivers []interface{}
	for _, driver := range node.Drivers() {
		drivers = append(drivers, map[string]interface{}{
			"driver": driver.Name,
			"value":  driver.Value,
			"uom":    driver.UOM,
		})
	}
	fields := pubsub.Fields{
		"address": node.Address,
		"name":    node.Name,
		"nodedef": node.Def,
		"primary": node.Primary,
		"drivers": drivers,
	}
	self.pub.Emit(pubsub.NewEvent("addnode", fields))
}

// Get looks a node up by address.
func (self *Interface) Get(address string) (*Node, bool) {
	self.mu.RLock()
	defer self.mu.RUnlock()
	node, ok := self.nodes[address]
	return node, ok
}

// Has reports whether a node address is registered.
func (self *Interface) Has(address string) bool {
	_, ok := self.Get(address)
	return ok
}

// Nodes returns all registered nodes in addition order.
func (self *Interface) Nodes() []*Node {
	self.mu.RLock()
	defer self.mu.RUnlock()
	ret := make([]*Node, 0, len(self.order))
	for _, address := range self.order {
		ret = append(ret, self.nodes[address])
	}
	return ret
}

func (self *Interface) emitStatus(node *Node, driver Driver) {
	fields := pubsub.Fields{
		"address": node.Address,
		"driver":  driver.Name,
		"value":   driver.Value,
		"uom":     driver.UOM,
	}
	self.pub.Emit(pubsub.NewEvent("status/"+node.Address, fields))
}
