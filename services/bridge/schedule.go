package bridge

import (
	"github.com/pkg/errors"

	"github.com/isybridge/rachio/polyglot"
	"github.com/isybridge/rachio/pubsub"
	"github.com/isybridge/rachio/rachio"
)

// ScheduleNode is a fixed or flex watering schedule on a controller. Flex
// schedules are cloud managed and only report status.
type ScheduleNode struct {
	*polyglot.Node
	device     *DeviceNode
	scheduleId string
	flex       bool
}

var scheduleDrivers = []polyglot.Driver{
	{Name: "ST", Value: 0, UOM: 78},  // Running (On/Off)
	{Name: "GV0", Value: 0, UOM: 2},  // Enabled (True/False)
	{Name: "GV1", Value: 0, UOM: 2},  // Rain Delay (True/False)
	{Name: "GV2", Value: 0, UOM: 45}, // Duration (Minutes)
	{Name: "GV3", Value: 0, UOM: 51}, // Seasonal Adjustment (Percent)
}

var flexScheduleDrivers = []polyglot.Driver{
	{Name: "ST", Value: 0, UOM: 78},  // Running (On/Off)
	{Name: "GV0", Value: 0, UOM: 2},  // Enabled (True/False)
	{Name: "GV2", Value: 0, UOM: 45}, // Duration (Minutes)
}

func newScheduleNode(device *DeviceNode, address string, rule *rachio.ScheduleRule, flex bool) (*ScheduleNode, error) {
	def, drivers := "rachio_schedule", scheduleDrivers
	if flex {
		def, drivers = "rachio_flexschedule", flexScheduleDrivers
	}
	node, err := device.service.iface.NewNode(def, address, device.Node.Address, rule.Name, drivers)
	if err != nil {
		return nil, err
	}
	return &ScheduleNode{Node: node, device: device, scheduleId: rule.Id, flex: flex}, nil
}

func (self *ScheduleNode) DeviceId() string {
	return self.device.deviceId
}

func (self *ScheduleNode) rule(deviceInfo *rachio.Device) *rachio.ScheduleRule {
	rules := deviceInfo.ScheduleRules
	if self.flex {
		rules = deviceInfo.FlexScheduleRules
	}
	for i := range rules {
		if rules[i].Id == self.scheduleId {
			return &rules[i]
		}
	}
	return nil
}

func (self *ScheduleNode) UpdateInfo(force, queryAPI bool) {
	deviceInfo := self.device.getDeviceInfo(queryAPI)
	sched := self.device.getCurrentSchedule(queryAPI)

	rule := self.rule(deviceInfo)
	if rule == nil {
		return
	}

	self.SetDriver("ST", onOff(sched.ScheduleRuleId == self.scheduleId))
	self.SetDriver("GV0", boolInt(rule.Enabled))
	if !self.flex {
		self.SetDriver("GV1", boolInt(rule.RainDelay))
	}
	self.SetDriver("GV2", rule.TotalDuration/60)
	if !self.flex {
		self.SetDriver("GV3", rule.SeasonalAdjustment*100)
	}

	if force {
		self.ReportDrivers()
	}
}

func (self *ScheduleNode) Command(ev *pubsub.Event) error {
	switch ev.Command() {
	case "QUERY":
		self.UpdateInfo(true, true)
		return nil
	}
	if self.flex {
		return errors.Errorf("unknown command: %s", ev.Command())
	}
	client := self.device.service.client
	switch ev.Command() {
	case "START":
		return retry("start schedule "+self.Node.Name, func() error {
			return client.StartSchedule(self.scheduleId)
		})
	case "SKIP":
		return retry("skip schedule "+self.Node.Name, func() error {
			return client.SkipSchedule(self.scheduleId)
		})
	case "ADJUST":
		if _, present := ev.Fields["value"]; !present {
			return errors.New("seasonal adjustment requested but no value supplied")
		}
		adjustment := ev.FloatField("value") / 100
		return retry("adjust schedule "+self.Node.Name, func() error {
			return client.SeasonalAdjustment(self.scheduleId, adjustment)
		})
	}
	return errors.Errorf("unknown command: %s", ev.Command())
}
