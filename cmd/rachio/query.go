package main

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/isybridge/rachio/pubsub"
	"github.com/isybridge/rachio/util"
)

func fmtFatalf(format string, v ...interface{}) {
	fmt.Printf(format, v...)
	os.Exit(1)
}

func stream(path string, params url.Values) {
	resp, err := request(path, params)
	if err != nil {
		fmtFatalf("error: %s\n", err)
	}
	defer resp.Body.Close()
	scanner := bufio.NewScanner(resp.Body)

	n := 0
	for scanner.Scan() {
		ev := pubsub.Parse(scanner.Text(), "")
		if ev == nil {
			continue
		}
		source := ev.Source()
		message := ev.StringField("message")

		if strings.Contains(message, "\n") {
			fmt.Printf("\x1b[32;1m%s\x1b[0m\n%s\n", source, message)
		} else {
			fmt.Printf("\x1b[32;1m%s\x1b[0m %s\n", source, message)
		}
		n += 1
	}
	if n == 0 {
		fmt.Println("No response")
	}
}

func request(path string, params url.Values) (*http.Response, error) {
	api := os.Getenv("RACHIO_API")
	if api == "" {
		fmtFatalf("Set RACHIO_API to the api service url. eg: http://localhost:8723\n")
	}
	uri := fmt.Sprintf("%s/%s", api, path)
	if len(params) > 0 {
		uri += "?" + params.Encode()
	}
	resp, err := http.Get(uri)
	return resp, err
}

// nodeCommand sends a command through the api service, e.g.
// rachio command aabbccddeeff1 START value=10
func nodeCommand(address string, args []string) {
	command, fields := util.ParseArgs(args)
	if command == "" {
		fmtFatalf("No command given\n")
	}
	params := url.Values{"cmd": {command}}
	if value, ok := fields["value"]; ok {
		params.Set("value", fmt.Sprint(value))
	}
	resp, err := request("nodes/"+address+"/command", params)
	if err != nil {
		fmtFatalf("error: %s\n", err)
	}
	defer resp.Body.Close()
	io.Copy(os.Stdout, resp.Body)
}

func query(first string, rest []string, params url.Values) {
	q := strings.Join(rest, " ")
	u := url.Values{"q": {q}}
	for key, value := range params {
		u[key] = value
	}

	path := fmt.Sprintf("query/%s", first)
	stream(path, u)
}
