package main

import (
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"

	"github.com/joho/godotenv"

	"github.com/isybridge/rachio/services"
	"github.com/isybridge/rachio/services/api"
	"github.com/isybridge/rachio/services/bridge"
	"github.com/isybridge/rachio/services/datalogger"
	"github.com/isybridge/rachio/services/webhook"
)

func registerServices() {
	// register available services
	services.Register(&api.Service{})
	services.Register(&bridge.Service{})
	services.Register(&datalogger.Service{})
	services.Register(&webhook.Service{})
}

func usage() {
	fmt.Println("Usage: rachio COMMAND [SERVICE]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("   command address CMD [value=X]  Send a node command")
	fmt.Println("   config  filename...            Upload configuration")
	fmt.Println("   run     [service...]           Run services")
	fmt.Println("   status  [service]              Get service status")
	fmt.Println("   query   ...                    Query services")
	fmt.Println()
}

var emptyParams = url.Values{}

func main() {
	godotenv.Load()
	log.SetOutput(os.Stdout)
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() < 1 {
		usage()
		os.Exit(1)
	}

	ps := []string{}
	if flag.NArg() > 1 {
		ps = flag.Args()[1:]
	}

	services.SetupLogging()

	command := flag.Args()[0]
	switch command {
	default:
		usage()
	case "config":
		if len(ps) < 1 {
			usage()
			return
		}
		config(ps)
	case "status":
		if len(ps) == 0 {
			// all services
			query("status", []string{}, emptyParams)
		} else {
			// single service
			query(ps[0]+"/status", []string{}, url.Values{"responses": {"1"}})
		}
	case "run":
		service(ps)
	case "command":
		if len(ps) < 2 {
			usage()
			return
		}
		nodeCommand(ps[0], ps[1:])
	case "query":
		if len(ps) == 0 {
			usage()
			return
		}
		query(ps[0], ps[1:], url.Values{"timeout": {"5000"}, "responses": {"1"}})
	}
}

// Start builtin services
func service(ss []string) {
	services.Setup("rachio")
	registerServices()
	services.Launch(ss)
}
