package rachio

import (
	"bytes"
	"encoding/json"
	"io"
	"io/ioutil"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// DefaultBaseURL is the public cloud endpoint.
const DefaultBaseURL = "https://api.rach.io/1/public"

// RateLimit is the quota state the cloud returns on every response.
type RateLimit struct {
	Limit     int
	Remaining int
	Reset     time.Time
}

// Client talks to the Rachio cloud, authenticated by api key.
type Client struct {
	BaseURL string
	client  *http.Client
	apiKey  string

	mu        sync.Mutex
	rateLimit RateLimit
}

func NewClient(apiKey string) *Client {
	return &Client{
		BaseURL: DefaultBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		apiKey:  apiKey,
	}
}

// RateLimit returns the quota state from the most recent response.
func (self *Client) RateLimit() RateLimit {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.rateLimit
}

func (self *Client) request(method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encoding request")
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, self.BaseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	req.Header.Set("Authorization", "Bearer "+self.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := self.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()
	self.captureRateLimit(resp.Header)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := ioutil.ReadAll(resp.Body)
		return errors.Errorf("%s %s: %s: %s", method, path, resp.Status, bytes.TrimSpace(data))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decoding %s %s", method, path)
	}
	return nil
}

func (self *Client) captureRateLimit(h http.Header) {
	self.mu.Lock()
	defer self.mu.Unlock()
	if v, err := strconv.Atoi(h.Get("X-RateLimit-Limit")); err == nil {
		self.rateLimit.Limit = v
	}
	if v, err := strconv.Atoi(h.Get("X-RateLimit-Remaining")); err == nil {
		self.rateLimit.Remaining = v
	}
	if v, err := time.Parse(time.RFC3339, h.Get("X-RateLimit-Reset")); err == nil {
		self.rateLimit.Reset = v
	}
}

// GetPersonID resolves the account id the api key belongs to.
func (self *Client) GetPersonID() (string, error) {
	var out struct {
		Id string `json:"id"`
	}
	err := self.request("GET", "/person/info", nil, &out)
	return out.Id, err
}

// GetPerson fetches the account and its devices.
func (self *Client) GetPerson(id string) (*Person, error) {
	person := &Person{}
	err := self.request("GET", "/person/"+id, nil, person)
	if err != nil {
		return nil, err
	}
	return person, nil
}

// GetDevice fetches one controller with zones and schedules.
func (self *Client) GetDevice(id string) (*Device, error) {
	device := &Device{}
	err := self.request("GET", "/device/"+id, nil, device)
	if err != nil {
		return nil, err
	}
	return device, nil
}

// GetCurrentSchedule fetches the running watering, empty when idle.
func (self *Client) GetCurrentSchedule(deviceId string) (*CurrentSchedule, error) {
	sched := &CurrentSchedule{}
	err := self.request("GET", "/device/"+deviceId+"/current_schedule", nil, sched)
	if err != nil {
		return nil, err
	}
	return sched, nil
}

type idBody struct {
	Id string `json:"id"`
}

// DeviceOn enables watering on the controller.
func (self *Client) DeviceOn(deviceId string) error {
	return self.request("PUT", "/device/on", idBody{deviceId}, nil)
}

// DeviceOff puts the controller in standby.
func (self *Client) DeviceOff(deviceId string) error {
	return self.request("PUT", "/device/off", idBody{deviceId}, nil)
}

// StopWater halts all watering on the controller.
func (self *Client) StopWater(deviceId string) error {
	return self.request("PUT", "/device/stop_water", idBody{deviceId}, nil)
}

// RainDelay pauses scheduled watering for the given duration.
func (self *Client) RainDelay(deviceId string, duration time.Duration) error {
	body := struct {
		Id       string `json:"id"`
		Duration int    `json:"duration"`
	}{deviceId, int(duration.Seconds())}
	return self.request("PUT", "/device/rain_delay", body, nil)
}

// StartZone waters a single zone for the given duration.
func (self *Client) StartZone(zoneId string, duration time.Duration) error {
	body := struct {
		Id       string `json:"id"`
		Duration int    `json:"duration"`
	}{zoneId, int(duration.Seconds())}
	return self.request("PUT", "/zone/start", body, nil)
}

// StartSchedule runs a schedule rule now.
func (self *Client) StartSchedule(ruleId string) error {
	return self.request("PUT", "/schedulerule/start", idBody{ruleId}, nil)
}

// SkipSchedule skips the schedule rule's next run.
func (self *Client) SkipSchedule(ruleId string) error {
	return self.request("PUT", "/schedulerule/skip", idBody{ruleId}, nil)
}

// SeasonalAdjustment scales a schedule rule's watering times, adjustment is a
// fraction (0.2 waters 20% longer, -0.2 20% shorter).
func (self *Client) SeasonalAdjustment(ruleId string, adjustment float64) error {
	body := struct {
		Id         string  `json:"id"`
		Adjustment float64 `json:"adjustment"`
	}{ruleId, adjustment}
	return self.request("PUT", "/schedulerule/seasonal_adjustment", body, nil)
}

// ListWebhooks returns the device's webhook subscriptions.
func (self *Client) ListWebhooks(deviceId string) ([]Webhook, error) {
	var out []Webhook
	err := self.request("GET", "/notification/"+deviceId+"/webhook", nil, &out)
	return out, err
}

type webhookBody struct {
	Id         string      `json:"id,omitempty"`
	Device     *idBody     `json:"device,omitempty"`
	ExternalId string      `json:"externalId"`
	Url        string      `json:"url"`
	EventTypes []EventType `json:"eventTypes"`
}

// CreateWebhook subscribes the url to the device's events.
func (self *Client) CreateWebhook(deviceId, externalId, url string, eventTypes []EventType) error {
	body := webhookBody{
		Device:     &idBody{deviceId},
		ExternalId: externalId,
		Url:        url,
		EventTypes: eventTypes,
	}
	return self.request("POST", "/notification/webhook", body, nil)
}

// UpdateWebhook points an existing subscription at a new url.
func (self *Client) UpdateWebhook(webhookId, externalId, url string, eventTypes []EventType) error {
	body := webhookBody{
		Id:         webhookId,
		ExternalId: externalId,
		Url:        url,
		EventTypes: eventTypes,
	}
	return self.request("PUT", "/notification/webhook", body, nil)
}

// DeleteWebhook removes a subscription.
func (self *Client) DeleteWebhook(webhookId string) error {
	return self.request("DELETE", "/notification/webhook/"+webhookId, nil, nil)
}
