package bridge

import (
	"time"

	"github.com/pkg/errors"

	"github.com/isybridge/rachio/polyglot"
	"github.com/isybridge/rachio/pubsub"
	"github.com/isybridge/rachio/rachio"
)

// ZoneNode is a single watering zone, subordinate to its controller node and
// reading from its cache.
type ZoneNode struct {
	*polyglot.Node
	device *DeviceNode
	zoneId string
}

var zoneDrivers = []polyglot.Driver{
	{Name: "ST", Value: 0, UOM: 78},   // Running (On/Off)
	{Name: "GV0", Value: 0, UOM: 2},   // Enabled (True/False)
	{Name: "GV1", Value: 0, UOM: 56},  // Zone Number
	{Name: "GV2", Value: 0, UOM: 105}, // Available Water (Inches)
	{Name: "GV3", Value: 0, UOM: 105}, // Root Zone Depth (Inches)
	{Name: "GV4", Value: 0, UOM: 105}, // Allowed Depletion (Inches)
	{Name: "GV5", Value: 0, UOM: 51},  // Efficiency (Percent)
	{Name: "GV6", Value: 0, UOM: 18},  // Zone Area (Square Feet)
	{Name: "GV7", Value: 0, UOM: 105}, // Irrigation Amount (Inches)
	{Name: "GV8", Value: 0, UOM: 105}, // Depth of Water (Inches)
	{Name: "GV9", Value: 0, UOM: 45},  // Runtime (Minutes)
	{Name: "GV10", Value: 0, UOM: 24}, // Inches per Hour
}

func newZoneNode(device *DeviceNode, address string, zone *rachio.Zone) (*ZoneNode, error) {
	node, err := device.service.iface.NewNode("rachio_zone", address, device.Node.Address, zone.Name, zoneDrivers)
	if err != nil {
		return nil, err
	}
	return &ZoneNode{Node: node, device: device, zoneId: zone.Id}, nil
}

func (self *ZoneNode) DeviceId() string {
	return self.device.deviceId
}

func (self *ZoneNode) UpdateInfo(force, queryAPI bool) {
	deviceInfo := self.device.getDeviceInfo(queryAPI)
	sched := self.device.getCurrentSchedule(queryAPI)

	var zone *rachio.Zone
	for i := range deviceInfo.Zones {
		if deviceInfo.Zones[i].Id == self.zoneId {
			zone = &deviceInfo.Zones[i]
			break
		}
	}
	if zone == nil {
		return
	}

	// ST: whether this zone is the one being watered
	running := sched.Status == "PROCESSING" && sched.ZoneId == self.zoneId
	self.SetDriver("ST", onOff(running))
	self.SetDriver("GV0", boolInt(zone.Enabled))
	self.SetDriver("GV1", zone.ZoneNumber)
	self.SetDriver("GV2", zone.AvailableWater)
	self.SetDriver("GV3", zone.RootZoneDepth)
	self.SetDriver("GV4", zone.ManagementAllowedDepletion)
	self.SetDriver("GV5", int(zone.Efficiency*100))
	self.SetDriver("GV6", zone.YardAreaSquareFeet)
	self.SetDriver("GV7", zone.IrrigationAmount)
	self.SetDriver("GV8", zone.DepthOfWater)
	self.SetDriver("GV9", zone.Runtime)
	self.SetDriver("GV10", zone.CustomNozzle.InchesPerHour)

	if force {
		self.ReportDrivers()
	}
}

func (self *ZoneNode) Command(ev *pubsub.Event) error {
	switch ev.Command() {
	case "QUERY":
		self.UpdateInfo(true, true)
		return nil
	case "START":
		if _, present := ev.Fields["value"]; !present {
			return errors.New("zone requested to start but no duration specified")
		}
		minutes := ev.FloatField("value")
		if minutes == 0 {
			return errors.New("zone requested to start but duration specified was zero")
		}
		duration := time.Duration(minutes * float64(time.Minute))
		return retry("start zone "+self.Node.Name, func() error {
			return self.device.service.client.StartZone(self.zoneId, duration)
		})
	}
	return errors.Errorf("unknown command: %s", ev.Command())
}
