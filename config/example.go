package config

// ExampleYaml is a minimal working configuration, used in tests.
var ExampleYaml = `
endpoints:
  mqtt:
    broker: tcp://127.0.0.1:1883
  api: ':8723'
rachio:
  api_key: 0123abcd-1111-2222-3333-deadbeef0000
  host: example.dyndns.org
  port: 3001
  nodeadditioninterval: 1
store:
  address: 127.0.0.1:6379
graphite:
  url: http://localhost:8000
  tcp: localhost:2003
datalogger:
  path: ~/rachio/data
`

var ExampleConfig *Config

func init() {
	ExampleConfig, _ = OpenRaw([]byte(ExampleYaml))
}
