package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/isybridge/rachio/pubsub"
	"github.com/isybridge/rachio/services"
)

// config uploads the yaml configuration as a retained event, so services
// pick it up on startup and on change.
func config(filenames []string) {
	// concatenate files together
	data := &bytes.Buffer{}
	for _, filename := range filenames {
		f, err := os.Open(filename)
		if err != nil {
			fmt.Printf("Error opening %s: %s\n", filename, err)
			return
		}
		defer f.Close()
		_, err = io.Copy(data, f)
		if err != nil {
			fmt.Printf("Error reading %s: %s\n", filename, err)
			return
		}

		data.WriteByte('\n')
	}

	// emit event
	fields := pubsub.Fields{
		"config": data.String(),
	}

	ev := pubsub.NewEvent("config", fields)
	ev.SetRetained(true) // config messages are retained
	services.SetupBroker("rachio-config")
	services.Publisher.Emit(ev)
	ev.Published.Wait()
	services.Shutdown()
	fmt.Printf("Updated config (%d bytes)\n", data.Len())
}
