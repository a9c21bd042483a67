// Package webhook is a service running the HTTP listener the Rachio cloud
// delivers event notifications to. Notifications for known devices are
// relayed onto the bus as rachio/event for the bridge to act on.
//
// The endpoints served are:
//
// POST / - cloud webhook delivery
//
// GET /test - connectivity self-test, answered until the bridge reports ready
//
// GET /events - websocket feed of relayed cloud events
package webhook

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/isybridge/rachio/pubsub"
	"github.com/isybridge/rachio/services"
	"github.com/isybridge/rachio/util"
)

// Service webhook
type Service struct {
	mu          sync.Mutex
	testPending bool
}

// ID of the service
func (self *Service) ID() string {
	return "webhook"
}

func (self *Service) handlePost(w http.ResponseWriter, r *http.Request) {
	data, err := ioutil.ReadAll(r.Body)
	if err != nil {
		return
	}
	var fields pubsub.Fields
	if err := json.Unmarshal(data, &fields); err != nil {
		log.Println("Discarding malformed notification:", err)
		return
	}
	deviceId, _ := fields["deviceId"].(string)
	if deviceId == "" {
		return
	}
	if _, err := services.Stor.Get("rachio/devices/" + deviceId); err != nil {
		// not a device of ours - no acknowledgement
		log.Println("Discarding notification for unknown device:", deviceId)
		return
	}
	log.Printf("Received %s notification for device %s", fields["type"], deviceId)
	services.Publisher.Emit(pubsub.NewEvent("rachio/event", fields))
	w.WriteHeader(http.StatusNoContent)
}

// handleTest answers the bridge's connectivity self-test. Once the bridge is
// up the endpoint goes quiet, so strangers probing the port learn nothing.
func (self *Service) handleTest(w http.ResponseWriter, r *http.Request) {
	self.mu.Lock()
	pending := self.testPending
	self.mu.Unlock()
	if !pending {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"success": "True"}`))
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (self *Service) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	ch := services.Subscriber.Subscribe(pubsub.Exact("rachio/event"))
	defer services.Subscriber.Close(ch)
	for ev := range ch {
		if err := conn.WriteMessage(websocket.TextMessage, ev.Bytes()); err != nil {
			break
		}
	}
}

// watchReady stops answering the self-test once the bridge reports ready.
func (self *Service) watchReady() {
	for range services.Subscriber.Subscribe(pubsub.Exact("bridge/ready")) {
		self.mu.Lock()
		self.testPending = false
		self.mu.Unlock()
	}
}

func (self *Service) router() *mux.Router {
	router := mux.NewRouter()
	router.Path("/").Methods("POST").HandlerFunc(self.handlePost)
	router.Path("/test").Methods("GET").HandlerFunc(self.handleTest)
	router.Path("/events").Methods("GET").HandlerFunc(self.handleEvents)
	return router
}

type loggingHandler struct {
	Handler http.Handler
}

func (service loggingHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	log.Printf("%s %s\n", req.Method, req.RequestURI)
	service.Handler.ServeHTTP(w, req)
}

// Run the service
func (self *Service) Run() error {
	self.testPending = true
	go self.watchReady()

	conf := services.Config
	addr := fmt.Sprintf(":%d", conf.Rachio.Port)
	handler := loggingHandler{Handler: self.router()}
	log.Println("Listening for cloud notifications on " + addr)
	if conf.TLSEnabled() {
		certfile := util.ExpandUser(conf.Rachio.Certfile)
		keyfile := util.ExpandUser(conf.Rachio.Keyfile)
		return http.ListenAndServeTLS(addr, certfile, keyfile, handler)
	}
	return http.ListenAndServe(addr, handler)
}
