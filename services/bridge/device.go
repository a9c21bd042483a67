package bridge

import (
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/isybridge/rachio/polyglot"
	"github.com/isybridge/rachio/pubsub"
	"github.com/isybridge/rachio/rachio"
)

// DeviceNode is a Rachio controller. It owns the cached device and current
// schedule snapshots its zones and schedules read from.
type DeviceNode struct {
	*polyglot.Node
	service  *Service
	deviceId string

	mu           sync.Mutex
	device       *rachio.Device
	deviceAt     time.Time
	sched        *rachio.CurrentSchedule
	schedAt      time.Time
	discoverDone bool
}

var deviceDrivers = []polyglot.Driver{
	{Name: "ST", Value: 0, UOM: 78},    // Status (On/Off)
	{Name: "GV0", Value: 0, UOM: 2},    // Connected (True/False)
	{Name: "GV1", Value: 0, UOM: 2},    // Enabled (True/False)
	{Name: "GV2", Value: 0, UOM: 2},    // Paused (True/False)
	{Name: "GV3", Value: 0, UOM: 45},   // Rain Delay Minutes Remaining
	{Name: "GV4", Value: 0, UOM: 56},   // Active Zone #
	{Name: "GV5", Value: 0, UOM: 45},   // Active Schedule Minutes Remaining
	{Name: "GV6", Value: 0, UOM: 45},   // Active Schedule Minutes Elapsed
	{Name: "GV7", Value: 0, UOM: 2},    // Cycling (True/False)
	{Name: "GV8", Value: 0, UOM: 56},   // Cycle Count
	{Name: "GV9", Value: 0, UOM: 56},   // Total Cycle Count
	{Name: "GV10", Value: 0, UOM: 25},  // Current Schedule Type (Enumeration)
}

func newDeviceNode(service *Service, address string, device *rachio.Device) (*DeviceNode, error) {
	node, err := service.iface.NewNode("rachio_device", address, address, device.Name, deviceDrivers)
	if err != nil {
		return nil, err
	}
	return &DeviceNode{
		Node:     node,
		service:  service,
		deviceId: device.Id,
		device:   device,
	}, nil
}

func (self *DeviceNode) DeviceId() string {
	return self.deviceId
}

// discoverChildren queues zone and schedule nodes for this controller.
func (self *DeviceNode) discoverChildren() {
	device := self.getDeviceInfo(false)

	log.Printf("%d Rachio zones found on %q controller. Adding to ISY", len(device.Zones), self.Node.Name)
	for i := range device.Zones {
		zone := device.Zones[i]
		// zone address: controller mac appended with zone number
		address := polyglot.CleanAddress(self.Node.Address + strconv.Itoa(zone.ZoneNumber))
		if _, exists := self.service.nodes[address]; exists {
			continue
		}
		zn, err := newZoneNode(self, address, &zone)
		if err != nil {
			log.Printf("Error adding zone %s (%s): %s", zone.Name, address, err)
			continue
		}
		self.service.nodes[address] = zn
		self.service.queue.Add(zn.Node)
	}

	log.Printf("%d Rachio schedules found on %q controller. Adding to ISY", len(device.ScheduleRules), self.Node.Name)
	for i := range device.ScheduleRules {
		self.addScheduleNode(&device.ScheduleRules[i], false)
	}
	log.Printf("%d Rachio flex schedules found on %q controller. Adding to ISY", len(device.FlexScheduleRules), self.Node.Name)
	for i := range device.FlexScheduleRules {
		self.addScheduleNode(&device.FlexScheduleRules[i], true)
	}

	self.mu.Lock()
	self.discoverDone = true
	self.mu.Unlock()
}

func (self *DeviceNode) addScheduleNode(rule *rachio.ScheduleRule, flex bool) {
	// schedule address: controller mac appended with the last 2 characters
	// of the rule id, to fit the address limit
	suffix := rule.Id
	if len(suffix) > 2 {
		suffix = suffix[len(suffix)-2:]
	}
	address := polyglot.CleanAddress(self.Node.Address + suffix)
	if _, exists := self.service.nodes[address]; exists {
		return
	}
	sn, err := newScheduleNode(self, address, rule, flex)
	if err != nil {
		log.Printf("Error adding schedule %s (%s): %s", rule.Name, address, err)
		return
	}
	self.service.nodes[address] = sn
	self.service.queue.Add(sn.Node)
}

// getDeviceInfo returns the cached device, refreshing from the cloud when
// forced (at most every 5 seconds) or when over an hour old.
func (self *DeviceNode) getDeviceInfo(force bool) *rachio.Device {
	self.mu.Lock()
	age := time.Since(self.deviceAt)
	refresh := (age > refreshForce && force && self.discoverDone) || age > refreshStale
	self.mu.Unlock()
	if refresh {
		device, err := self.service.client.GetDevice(self.deviceId)
		if err != nil {
			log.Printf("Connection error on %s controller API request, normally safe to ignore: %s", self.Node.Name, err)
		} else {
			self.mu.Lock()
			self.device = device
			self.deviceAt = time.Now()
			self.mu.Unlock()
		}
	}
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.device
}

// getCurrentSchedule returns the cached running schedule, refreshed on the
// same cadence as getDeviceInfo.
func (self *DeviceNode) getCurrentSchedule(force bool) *rachio.CurrentSchedule {
	self.mu.Lock()
	age := time.Since(self.schedAt)
	refresh := (age > refreshForce && force && self.discoverDone) || age > refreshStale
	self.mu.Unlock()
	if refresh {
		sched, err := self.service.client.GetCurrentSchedule(self.deviceId)
		if err != nil {
			log.Printf("Connection error on %s controller schedule API request, normally safe to ignore: %s", self.Node.Name, err)
		} else {
			self.mu.Lock()
			self.sched = sched
			self.schedAt = time.Now()
			self.mu.Unlock()
		}
	}
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.sched == nil {
		return &rachio.CurrentSchedule{}
	}
	return self.sched
}

var runTypes = map[string]int{
	"AUTOMATIC": 1,
	"MANUAL":    2,
}

func (self *DeviceNode) UpdateInfo(force, queryAPI bool) {
	device := self.getDeviceInfo(queryAPI)
	sched := self.getCurrentSchedule(queryAPI)

	// ST: whether the controller is running a schedule
	self.SetDriver("ST", onOff(sched.Status == "PROCESSING"))
	self.SetDriver("GV0", boolInt(device.Status == "ONLINE"))
	self.SetDriver("GV1", boolInt(device.On))
	self.SetDriver("GV2", boolInt(device.Paused))

	// GV3: rain delay minutes remaining
	remaining := 0
	if expiry := msTime(device.RainDelayExpirationDate); expiry.After(time.Now()) {
		remaining = int(time.Until(expiry).Minutes())
	}
	self.SetDriver("GV3", remaining)

	// GV10: active run type
	runType := 0
	if sched.Type != "" {
		if v, ok := runTypes[sched.Type]; ok {
			runType = v
		} else {
			runType = 3 // OTHER
		}
	}
	self.SetDriver("GV10", runType)

	// GV4: active zone number
	zoneNum := 0
	if sched.ZoneId != "" {
		for _, zone := range device.Zones {
			if zone.Id == sched.ZoneId {
				zoneNum = zone.ZoneNumber
				break
			}
		}
	}
	self.SetDriver("GV4", zoneNum)

	// GV5/GV6: schedule minutes remaining/elapsed
	elapsed, left := 0, 0
	if sched.StartDate != 0 {
		start := msTime(sched.StartDate)
		elapsed = int(time.Since(start).Minutes())
		left = sched.Duration/60 - elapsed
		if left < 0 {
			left = 0
		}
	}
	self.SetDriver("GV5", left)
	self.SetDriver("GV6", elapsed)

	self.SetDriver("GV7", boolInt(sched.Cycling))
	self.SetDriver("GV8", sched.CycleCount)
	self.SetDriver("GV9", sched.TotalCycleCount)

	if force {
		self.ReportDrivers()
	}
}

func (self *DeviceNode) Command(ev *pubsub.Event) error {
	switch ev.Command() {
	case "QUERY":
		self.UpdateInfo(true, true)
		return nil
	case "DON":
		return retry("enable "+self.Node.Name, func() error {
			return self.service.client.DeviceOn(self.deviceId)
		})
	case "DOF":
		return retry("disable "+self.Node.Name, func() error {
			return self.service.client.DeviceOff(self.deviceId)
		})
	case "STOP":
		return retry("stop watering "+self.Node.Name, func() error {
			return self.service.client.StopWater(self.deviceId)
		})
	case "RAIN_DELAY":
		if _, present := ev.Fields["value"]; !present {
			return errors.New("rain delay requested but no duration specified")
		}
		duration := time.Duration(ev.FloatField("value") * float64(time.Minute))
		return retry("rain delay "+self.Node.Name, func() error {
			return self.service.client.RainDelay(self.deviceId, duration)
		})
	}
	return errors.Errorf("unknown command: %s", ev.Command())
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// onOff maps a running state to the ISY on/off levels.
func onOff(b bool) int {
	if b {
		return 100
	}
	return 0
}

// msTime converts cloud epoch milliseconds.
func msTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.Unix(ms/1000, ms%1000*int64(time.Millisecond))
}
