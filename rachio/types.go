// Package rachio is a client for the Rachio public cloud API (v1): account
// and device lookup, watering commands and webhook subscription management.
package rachio

import "sort"

// Person is the account owning the controllers.
type Person struct {
	Id       string   `json:"id"`
	Username string   `json:"username"`
	FullName string   `json:"fullName"`
	Email    string   `json:"email"`
	Devices  []Device `json:"devices"`
}

// Device is a single irrigation controller.
type Device struct {
	Id                      string         `json:"id"`
	Name                    string         `json:"name"`
	Status                  string         `json:"status"`
	MacAddress              string         `json:"macAddress"`
	SerialNumber            string         `json:"serialNumber"`
	Latitude                float64        `json:"latitude"`
	Longitude               float64        `json:"longitude"`
	On                      bool           `json:"on"`
	Paused                  bool           `json:"paused"`
	ScheduleModeType        string         `json:"scheduleModeType"`
	RainDelayStartDate      int64          `json:"rainDelayStartDate"`
	RainDelayExpirationDate int64          `json:"rainDelayExpirationDate"`
	Zones                   []Zone         `json:"zones"`
	ScheduleRules           []ScheduleRule `json:"scheduleRules"`
	FlexScheduleRules       []ScheduleRule `json:"flexScheduleRules"`
}

// Zone is one watering zone on a controller.
type Zone struct {
	Id                         string  `json:"id"`
	ZoneNumber                 int     `json:"zoneNumber"`
	Name                       string  `json:"name"`
	Enabled                    bool    `json:"enabled"`
	ImageUrl                   string  `json:"imageUrl"`
	Runtime                    int     `json:"runtime"`
	AvailableWater             float64 `json:"availableWater"`
	RootZoneDepth              float64 `json:"rootZoneDepth"`
	ManagementAllowedDepletion float64 `json:"managementAllowedDepletion"`
	Efficiency                 float64 `json:"efficiency"`
	YardAreaSquareFeet         float64 `json:"yardAreaSquareFeet"`
	IrrigationAmount           float64 `json:"irrigationAmount"`
	DepthOfWater               float64 `json:"depthOfWater"`
	CustomNozzle               struct {
		InchesPerHour float64 `json:"inchesPerHour"`
	} `json:"customNozzle"`
}

// ScheduleRule is a fixed or flex watering schedule.
type ScheduleRule struct {
	Id                 string  `json:"id"`
	Name               string  `json:"name"`
	Enabled            bool    `json:"enabled"`
	Summary            string  `json:"summary"`
	TotalDuration      int     `json:"totalDuration"`
	SeasonalAdjustment float64 `json:"seasonalAdjustment"`
	RainDelay          bool    `json:"rainDelay"`
	WaterBudget        bool    `json:"waterBudget"`
	StartHour          int     `json:"startHour"`
	StartMinute        int     `json:"startMinute"`
}

// CurrentSchedule is what a controller is running right now, empty when idle.
type CurrentSchedule struct {
	DeviceId        string `json:"deviceId"`
	Type            string `json:"type"`
	Status          string `json:"status"`
	StartDate       int64  `json:"startDate"`
	Duration        int    `json:"duration"`
	ZoneId          string `json:"zoneId"`
	ZoneStartDate   int64  `json:"zoneStartDate"`
	ZoneDuration    int    `json:"zoneDuration"`
	ScheduleRuleId  string `json:"scheduleRuleId"`
	CycleCount      int    `json:"cycleCount"`
	TotalCycleCount int    `json:"totalCycleCount"`
	Cycling         bool   `json:"cycling"`
	DurationNoCycle int    `json:"durationNoCycle"`
}

// EventType is a webhook event category the cloud can deliver.
type EventType struct {
	Id   int    `json:"id"`
	Name string `json:"name,omitempty"`
}

// Webhook is a cloud-side event subscription for one device.
type Webhook struct {
	Id         string      `json:"id"`
	ExternalId string      `json:"externalId"`
	Url        string      `json:"url"`
	EventTypes []EventType `json:"eventTypes"`
}

// Event types deliverable over webhooks. WATER_BUDGET subscriptions are
// accepted on creation but never echoed back by the cloud.
var EventTypes = map[string]int{
	"DEVICE_STATUS":         5,
	"RAIN_DELAY":            6,
	"WEATHER_INTELLIGENCE":  7,
	"WATER_BUDGET":          8,
	"SCHEDULE_STATUS":       9,
	"ZONE_STATUS":           10,
	"RAIN_SENSOR_DETECTION": 11,
	"ZONE_DELTA":            12,
	"DELTA":                 14,
}

// AllEventTypes returns every subscribable event type, ordered by id.
func AllEventTypes() []EventType {
	ret := make([]EventType, 0, len(EventTypes))
	for _, id := range EventTypes {
		ret = append(ret, EventType{Id: id})
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].Id < ret[j].Id })
	return ret
}
