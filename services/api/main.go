// Package api is a service providing an HTTP REST API to inspect the node
// server and send node commands.
//
// The endpoints supported are:
//
// http://localhost:8723/query/{query} - query a service, e.g. http://localhost:8723/query/bridge/status
//
// http://localhost:8723/nodes - all nodes with their driver values
//
// http://localhost:8723/nodes/{address} - a single node
//
// http://localhost:8723/nodes/{address}/query - POST to re-report a node's drivers
//
// http://localhost:8723/nodes/{address}/command?cmd=DON&value=10 - send a node command
//
// http://localhost:8723/events/feed - continuous live stream of events (line delimited)
//
// http://localhost:8723/logs - list of log files
package api

import (
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/isybridge/rachio/config"
	"github.com/isybridge/rachio/pubsub"
	"github.com/isybridge/rachio/services"
)

// Service api
type Service struct {
}

// ID of the service
func (service *Service) ID() string {
	return "api"
}

func errorResponse(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), 500)
}

func apiIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Content-Type", "text/html")
	fmt.Fprintf(w, "<html>Rachio bridge is listening</html>")
}

func jsonResponse(w http.ResponseWriter, obj interface{}) {
	w.Header().Add("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(w)
	err := enc.Encode(obj)
	if err != nil {
		errorResponse(w, err)
	}
}

func query(endpoint string, q string, w http.ResponseWriter) {
	w.Header().Add("Content-Type", "application/json; charset=utf-8")

	ch := services.QueryChannel(endpoint+" "+q, 100*time.Millisecond)

	for ev := range ch {
		fmt.Fprintf(w, ev.String()+"\r\n")
		w.(http.Flusher).Flush()
	}
}

func apiQuery(w http.ResponseWriter, r *http.Request) {
	endpoint := r.URL.Path[len("/query/"):]
	q := r.URL.Query().Get("q")
	query(endpoint, q, w)
}

func getNodes() map[string]interface{} {
	// node snapshots mirrored to the store by the bridge
	ret := make(map[string]interface{})
	nodes, _ := services.Stor.GetRecursive("rachio/nodes")
	for _, node := range nodes {
		var snapshot interface{}
		if err := json.Unmarshal([]byte(node.Value), &snapshot); err != nil {
			continue
		}
		address := node.Key[strings.LastIndex(node.Key, "/")+1:]
		ret[address] = snapshot
	}
	return ret
}

func apiNodes(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, getNodes())
}

func apiNode(w http.ResponseWriter, r *http.Request) {
	params := mux.Vars(r)
	value, err := services.Stor.Get("rachio/nodes/" + params["address"])
	if err != nil {
		http.Error(w, err.Error(), 404)
		return
	}
	w.Header().Add("Content-Type", "application/json; charset=utf-8")
	w.Write([]byte(value))
}

func apiNodeQuery(w http.ResponseWriter, r *http.Request) {
	params := mux.Vars(r)
	ev := pubsub.NewCommand(params["address"], "QUERY", nil)
	services.Publisher.Emit(ev)
	jsonResponse(w, true)
}

func apiNodeCommand(w http.ResponseWriter, r *http.Request) {
	params := mux.Vars(r)
	q := r.URL.Query()
	cmd := q.Get("cmd")
	if cmd == "" {
		http.Error(w, "cmd parameter required", 400)
		return
	}
	var value interface{}
	if s := q.Get("value"); s != "" {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			http.Error(w, "value must be numeric", 400)
			return
		}
		value = f
	}
	ev := pubsub.NewCommand(params["address"], cmd, value)
	services.Publisher.Emit(ev)
	jsonResponse(w, true)
}

func apiEventsFeed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	topics := q.Get("topics")
	w.Header().Add("Content-Type", "application/json; boundary=NL")

	var subs []pubsub.Topic
	if topics != "" {
		for _, topic := range strings.Split(topics, ",") {
			subs = append(subs, pubsub.Exact(topic))
		}
	} else {
		subs = append(subs, pubsub.All())
	}
	ch := services.Subscriber.Subscribe(subs...)
	defer services.Subscriber.Close(ch)

	for ev := range ch {
		encoder := json.NewEncoder(w)
		err := encoder.Encode(ev.Map())
		if err == nil {
			w.Write([]byte("\r\n")) // separator
		}
		if err != nil {
			break
		}
		w.(http.Flusher).Flush()
	}
}

func apiLogs(w http.ResponseWriter, r *http.Request) {
	logs := []string{}
	infos, err := ioutil.ReadDir(config.LogPath(""))
	if err != nil {
		errorResponse(w, err)
		return
	}

	for _, info := range infos {
		logs = append(logs, info.Name())
	}
	jsonResponse(w, logs)
}

func apiLogsLog(w http.ResponseWriter, r *http.Request) {
	params := mux.Vars(r)
	filename := config.LogPath(params["file"])
	file, err := os.Open(filename)
	if err != nil {
		errorResponse(w, err)
		return
	}
	defer file.Close()

	w.Header().Add("Content-Type", "text/plain; charset=utf-8")
	io.Copy(w, file)
}

func router() *mux.Router {
	router := mux.NewRouter()
	router.Path("/").HandlerFunc(apiIndex)
	router.PathPrefix("/query/").HandlerFunc(apiQuery)
	router.Path("/nodes").HandlerFunc(apiNodes)
	router.Path("/nodes/{address}").HandlerFunc(apiNode)
	router.Path("/nodes/{address}/query").Methods("POST").HandlerFunc(apiNodeQuery)
	router.Path("/nodes/{address}/command").HandlerFunc(apiNodeCommand)
	router.Path("/events/feed").HandlerFunc(apiEventsFeed)
	router.Path("/logs").HandlerFunc(apiLogs)
	router.Path("/logs/{file}").HandlerFunc(apiLogsLog)
	return router
}

type loggingHandler struct {
	Handler http.Handler
}

func (service loggingHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	log.Printf("%s %s\n", req.Method, req.RequestURI)
	service.Handler.ServeHTTP(w, req)
}

func httpEndpoint() {
	// disabled logger as this prevents ResponseWriter.Flush being accessed
	var handler http.Handler = router()
	handler = loggingHandler{Handler: handler}
	http.Handle("/", handler)
	addr := services.Config.Endpoints.Api
	log.Println("Listening on " + addr)
	err := http.ListenAndServe(addr, nil)
	if err != nil {
		log.Fatalln(err)
	}
}

// Run the service
func (service *Service) Run() error {
	httpEndpoint()
	return nil
}
