// Service for logging events to log files on disk, and pushing node driver
// values to graphite.
//
// Events are logged to a file named 'data.log' under a directory named by the
// event topic. Numeric values on status events go to graphite under
// node.<address>.<driver>.
//
// The watering query reads the series back to report how long a node spent
// running over the last day.
package datalogger

import (
	"fmt"
	"log"
	"os"
	"path"
	"strings"
	"time"

	"github.com/isybridge/rachio/lib/graphite"
	"github.com/isybridge/rachio/pubsub"
	"github.com/isybridge/rachio/services"
	"github.com/isybridge/rachio/util"
)

type querier interface {
	Query(from, until, target string) ([]graphite.Dataseries, error)
}

var (
	logDir string
	gr     graphite.IGraphite
	qr     querier
)

func ensureDirectory(path string) error {
	_, err := os.Stat(path)
	if os.IsNotExist(err) {
		return os.MkdirAll(path, 0755)
	}
	return err
}

func writeToLogFile(ev *pubsub.Event) {
	name := strings.Replace(ev.Topic, "/", ".", -1)
	p := path.Join(logDir, name)
	if err := ensureDirectory(p); err != nil {
		log.Println("Could not create directory:", err)
		return
	}
	p = path.Join(p, "data.log")
	// reopen the log file each time, so that log rotation can happen in the
	// background.
	fio, err := os.OpenFile(p, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0660)
	if err != nil {
		log.Println("Couldn't write file:", err)
		return
	}
	defer fio.Close()

	fio.Write(ev.Bytes())
	fio.WriteString("\n")
}

// sendToGraphite records a status event's driver value when it is numeric.
func sendToGraphite(ev *pubsub.Event) {
	address := ev.Address()
	driver := ev.StringField("driver")
	if address == "" || driver == "" {
		return
	}

	var floatValue float64
	switch value := ev.Fields["value"].(type) {
	case bool:
		if value {
			floatValue = 1
		}
	case int:
		floatValue = float64(value)
	case int64:
		floatValue = float64(value)
	case float64:
		floatValue = value
	default:
		// ignore non-numeric values
		return
	}

	timestamp := time.Now().UTC().Unix()
	gr.Add(fmt.Sprintf("node.%s.%s", address, driver), timestamp, floatValue)
	if err := gr.Flush(); err != nil {
		log.Println("Flush failed:", err)
	}
}

func event(ev *pubsub.Event) {
	if strings.HasPrefix(ev.Topic, "_") {
		return
	}
	writeToLogFile(ev)
	if strings.HasPrefix(ev.Topic, "status/") {
		sendToGraphite(ev)
	}
}

// Service datalogger
type Service struct{}

// ID of the service
func (self *Service) ID() string {
	return "datalogger"
}

func (self *Service) QueryHandlers() services.QueryHandlers {
	return services.QueryHandlers{
		"watering": services.TextHandler(queryWatering),
		"help":     services.StaticHandler("watering <address>: watering time for a node over the last day"),
	}
}

// queryWatering reports how long a node spent watering over the last day,
// read back from the recorded graphite series.
func queryWatering(q services.Question) string {
	if qr == nil {
		return "graphite not configured"
	}
	address := q.Args
	if address == "" {
		return "usage: watering <address>"
	}
	// ST is 100 while watering and 0 otherwise, so the day's average is the
	// percentage of the day spent running
	target := fmt.Sprintf(`summarize(node.%s.ST,"1d","avg")`, address)
	data, err := qr.Query("-24h", "now", target)
	if err != nil {
		log.Println("Failed to get graphite data:", err)
		return "graphite unavailable"
	}
	if len(data) == 0 || len(data[0].Datapoints) == 0 {
		return fmt.Sprintf("no watering data for %s", address)
	}
	watered := time.Duration(data[0].Datapoints[0].Value / 100 * float64(24*time.Hour))
	return fmt.Sprintf("%s watered for %s over the last day",
		address, util.FriendlyDuration(watered))
}

func (self *Service) Run() error {
	logDir = util.ExpandUser(services.Config.Datalogger.Path)
	if gr == nil {
		gr = graphite.NewWriter(services.Config.Graphite.Tcp)
	}
	if qr == nil && services.Config.Graphite.Url != "" {
		qr = graphite.NewQuerier(services.Config.Graphite.Url)
	}
	for ev := range services.Subscriber.Subscribe(pubsub.All()) {
		event(ev)
	}
	return nil
}
