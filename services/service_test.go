package services

import (
	"testing"
	"time"

	"github.com/isybridge/rachio/pubsub/dummy"
)

type blockingService struct {
	id      string
	started chan bool
}

func (self *blockingService) ID() string {
	return self.id
}

func (self *blockingService) Run() error {
	self.started <- true
	select {}
}

// All services share one process, so one service blocking in Run must not
// stop the others from starting.
func TestRunServicesConcurrently(t *testing.T) {
	Publisher = &dummy.Publisher{}
	a := &blockingService{id: "alpha", started: make(chan bool, 1)}
	b := &blockingService{id: "beta", started: make(chan bool, 1)}
	go runServices([]Service{a, b})

	for _, s := range []*blockingService{a, b} {
		select {
		case <-s.started:
		case <-time.After(time.Second):
			t.Fatalf("service %s never started", s.id)
		}
	}
}
