package config

import (
	"io"
	"io/ioutil"
	"os"
	"path"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/isybridge/rachio/util"
)

type Duration struct {
	Duration time.Duration
}

func (self *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var value string
	if err := unmarshal(&value); err != nil {
		return err
	}
	val, err := time.ParseDuration(value)
	if err != nil {
		return err
	}
	self.Duration = val
	return nil
}

type EndpointsConf struct {
	Mqtt struct {
		Broker string
	}
	Api string
}

// RachioConf carries the cloud credentials and the webhook endpoint the
// cloud must be able to reach.
type RachioConf struct {
	// Api_Key authenticates against the Rachio cloud API. Required.
	Api_Key string `yaml:"api_key"`
	// Host is the externally reachable address for webhooks. Required for
	// local installs.
	Host string
	// Port is the externally reachable webhook port. Requests must be
	// forwarded to it by the router/firewall.
	Port int
	// NodeAdditionInterval paces node creation during discovery, in
	// seconds. 0-60, default 1.
	NodeAdditionInterval int `yaml:"nodeadditioninterval"`
	Certfile             string
	Keyfile              string
	// LongPoll is the interval between full node refreshes from cache.
	LongPoll *Duration
}

type StoreConf struct {
	Address string
}

type GraphiteConf struct {
	Url string
	Tcp string
}

type DataloggerConf struct {
	Path string
}

// Configuration structure
type Config struct {
	// yaml fields
	Endpoints  EndpointsConf
	Rachio     RachioConf
	Store      StoreConf
	Graphite   GraphiteConf
	Datalogger DataloggerConf
}

const (
	DefaultPort                 = 3001
	DefaultNodeAdditionInterval = 1
	DefaultCertfile             = "certificate.pem"
	DefaultKeyfile              = "key.pem"
	DefaultApiAddress           = ":8723"
)

// Open configuration from disk.
func Open() (*Config, error) {
	file, err := os.Open(ConfigPath("rachio.yml"))
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return OpenReader(file)
}

// Open configuration from a reader.
func OpenReader(r io.Reader) (*Config, error) {
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return OpenRaw(data)
}

// Open configuration from []byte.
func OpenRaw(data []byte) (*Config, error) {
	self := &Config{}
	err := yaml.Unmarshal(data, self)
	if err != nil {
		return nil, err
	}
	self.applyDefaults()
	return self, nil
}

func (self *Config) applyDefaults() {
	// A missing port is not an error - fall back to the default and say so
	// at service start.
	if self.Rachio.Port == 0 {
		self.Rachio.Port = DefaultPort
	}
	if self.Rachio.NodeAdditionInterval == 0 {
		self.Rachio.NodeAdditionInterval = DefaultNodeAdditionInterval
	}
	if self.Rachio.Certfile == "" {
		self.Rachio.Certfile = DefaultCertfile
	}
	if self.Rachio.Keyfile == "" {
		self.Rachio.Keyfile = DefaultKeyfile
	}
	if self.Endpoints.Api == "" {
		self.Endpoints.Api = DefaultApiAddress
	}
}

// WebhookURL is the external url the cloud delivers events to.
func (self *Config) WebhookURL() string {
	scheme := "http"
	if self.TLSEnabled() {
		scheme = "https"
	}
	return scheme + "://" + self.Rachio.Host + ":" + strconv.Itoa(self.Rachio.Port)
}

// TLSEnabled reports whether the webhook listener serves https.
func (self *Config) TLSEnabled() bool {
	_, err := os.Stat(util.ExpandUser(self.Rachio.Certfile))
	if err != nil {
		return false
	}
	_, err = os.Stat(util.ExpandUser(self.Rachio.Keyfile))
	return err == nil
}

// helpers

// Resolve a configuration file under .config/rachio
func ConfigPath(p string) string {
	config := os.Getenv("XDG_CONFIG_HOME")
	if config == "" {
		config = path.Join(os.Getenv("HOME"), ".config")
	}
	return path.Join(config, "rachio", p)
}

// Get path to a log file
func LogPath(p string) string {
	return path.Join(util.ExpandUser("~/rachio/log"), p)
}
