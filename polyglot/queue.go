package polyglot

import (
	"log"
	"sync"
	"time"
)

// AdditionQueue paces node creation so a burst of discovered nodes doesn't
// flood the host. Each Add restarts the timer; when it fires one pending node
// is added and the timer restarts until the queue drains. An interval of 0
// adds immediately.
type AdditionQueue struct {
	iface    *Interface
	interval time.Duration

	mu      sync.Mutex
	pending map[string]*Node
	order   []string
	timer   *time.Timer
}

func NewAdditionQueue(iface *Interface, interval time.Duration) *AdditionQueue {
	return &AdditionQueue{
		iface:    iface,
		interval: interval,
		pending:  map[string]*Node{},
	}
}

// Add queues a node for addition and restarts the interval timer. Nodes
// already registered are ignored; re-queuing an address replaces the
// pending entry.
func (self *AdditionQueue) Add(node *Node) {
	if self.interval <= 0 {
		self.iface.AddNode(node)
		return
	}
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.iface.Has(node.Address) {
		return
	}
	if _, queued := self.pending[node.Address]; !queued {
		self.order = append(self.order, node.Address)
	}
	self.pending[node.Address] = node
	if self.timer != nil {
		self.timer.Stop()
	}
	self.timer = time.AfterFunc(self.interval, self.drain)
}

func (self *AdditionQueue) drain() {
	if node := self.pop(); node != nil {
		self.iface.AddNode(node)
	}
	self.mu.Lock()
	if len(self.order) > 0 {
		// more to add, restart the timer
		self.timer = time.AfterFunc(self.interval, self.drain)
		self.mu.Unlock()
		return
	}
	self.mu.Unlock()
	log.Println("No nodes pending addition")
}

func (self *AdditionQueue) pop() *Node {
	self.mu.Lock()
	defer self.mu.Unlock()
	if len(self.order) == 0 {
		return nil
	}
	address := self.order[0]
	self.order = self.order[1:]
	node := self.pending[address]
	delete(self.pending, address)
	return node
}

// Pending returns the number of nodes awaiting addition.
func (self *AdditionQueue) Pending() int {
	self.mu.Lock()
	defer self.mu.Unlock()
	return len(self.order)
}

// Flush adds everything queued right away, without waiting on the timer.
func (self *AdditionQueue) Flush() {
	self.mu.Lock()
	if self.timer != nil {
		self.timer.Stop()
		self.timer = nil
	}
	self.mu.Unlock()
	for {
		node := self.pop()
		if node == nil {
			return
		}
		self.iface.AddNode(node)
	}
}
