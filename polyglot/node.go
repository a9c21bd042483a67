// Package polyglot models the node server side of the Polyglot host link -
// nodes, their status drivers and the messages the host understands. Traffic
// to the host travels as bus events (addnode, status/<address>).
package polyglot

import (
	"strings"
	"sync"
)

// AddressLimit is the longest node address the ISY accepts.
const AddressLimit = 14

// Driver is a single reportable status field on a node.
type Driver struct {
	Name  string      `json:"driver"`
	Value interface{} `json:"value"`
	UOM   int         `json:"uom"`
}

// Node is the host representation of a device - an address plus a table of
// reportable status drivers. Addresses must fit AddressLimit.
type Node struct {
	Address string
	Name    string
	// Def is the node definition id in the uploaded profile, e.g.
	// "rachio_zone".
	Def string
	// Primary is the address of the parent node.
	Primary string

	iface  *Interface
	mu     sync.Mutex
	order  []string
	values map[string]Driver
}

// CleanAddress derives a valid node address: lowercased, alphanumerics only,
// truncated to the ISY limit.
func CleanAddress(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
		if b.Len() == AddressLimit {
			break
		}
	}
	return b.String()
}

// SetDriver updates a driver value, reporting it to the host only when it
// changed.
func (self *Node) SetDriver(name string, value interface{}) {
	self.mu.Lock()
	driver, ok := self.values[name]
	if !ok || driver.Value == value {
		self.mu.Unlock()
		return
	}
	driver.Value = value
	self.values[name] = driver
	self.mu.Unlock()
	self.iface.emitStatus(self, driver)
}

// ReportDrivers re-sends every driver value to the host, changed or not.
// This is what an ISY Query rides on.
func (self *Node) ReportDrivers() {
	for _, driver := range self.Drivers() {
		self.iface.emitStatus(self, driver)
	}
}

// Drivers returns a snapshot of the driver table, in definition order.
func (self *Node) Drivers() []Driver {
	self.mu.Lock()
	defer self.mu.Unlock()
	ret := make([]Driver, 0, len(self.order))
	for _, name := range self.order {
		ret = append(ret, self.values[name])
	}
	return ret
}

// Driver returns the current value of a single driver.
func (self *Node) Driver(name string) (Driver, bool) {
	self.mu.Lock()
	defer self.mu.Unlock()
	driver, ok := self.values[name]
	return driver, ok
}
