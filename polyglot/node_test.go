package polyglot

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/isybridge/rachio/pubsub/dummy"
)

func ExampleCleanAddress() {
	fmt.Println(CleanAddress("AA:BB:CC:DD:EE:FF-12"))
	// Output:
	// aabbccddeeff12
}

func TestAddNode(t *testing.T) {
	pub := &dummy.Publisher{}
	iface := NewInterface(pub)
	node, err := iface.NewNode("rachio_zone", "aabbccddeeff1", "aabbccddeeff", "Front Lawn",
		[]Driver{{Name: "ST", Value: 0, UOM: 78}, {Name: "GV3", Value: 0, UOM: 58}})
	assert.NoError(t, err)
	iface.AddNode(node)

	if assert.Equal(t, 1, len(pub.Events)) {
		ev := pub.Events[0]
		assert.Equal(t, "addnode", ev.Topic)
		assert.Equal(t, "aabbccddeeff1", ev.StringField("address"))
		assert.Equal(t, "Front Lawn", ev.StringField("name"))
		assert.Equal(t, "rachio_zone", ev.StringField("nodedef"))
	}
	assert.True(t, iface.Has("aabbccddeeff1"))

	// re-adding is a no-op
	iface.AddNode(node)
	assert.Equal(t, 1, len(pub.Events))
}

func TestNewNodeBadAddress(t *testing.T) {
	iface := NewInterface(&dummy.Publisher{})
	_, err := iface.NewNode("rachio_zone", "", "", "x", nil)
	assert.Error(t, err)
	_, err = iface.NewNode("rachio_zone", "waytoolongaddress", "", "x", nil)
	assert.Error(t, err)
}

func TestSetDriver(t *testing.T) {
	pub := &dummy.Publisher{}
	iface := NewInterface(pub)
	node, _ := iface.NewNode("rachio", "rachio", "rachio", "Rachio Bridge",
		[]Driver{{Name: "ST", Value: 0, UOM: 2}})
	iface.AddNode(node)
	pub.Events = nil

	node.SetDriver("ST", 1)
	if assert.Equal(t, 1, len(pub.Events)) {
		ev := pub.Events[0]
		assert.Equal(t, "status/rachio", ev.Topic)
		assert.Equal(t, "ST", ev.StringField("driver"))
		assert.Equal(t, 1, ev.Fields["value"])
	}

	// unchanged value is not re-reported
	node.SetDriver("ST", 1)
	assert.Equal(t, 1, len(pub.Events))

	// unknown driver names are ignored
	node.SetDriver("GV9", 5)
	assert.Equal(t, 1, len(pub.Events))
}

func TestReportDrivers(t *testing.T) {
	pub := &dummy.Publisher{}
	iface := NewInterface(pub)
	node, _ := iface.NewNode("rachio_device", "aabbccddeeff", "rachio", "Lawn",
		[]Driver{{Name: "ST", Value: 1, UOM: 78}, {Name: "GV0", Value: 1, UOM: 2}})
	iface.AddNode(node)
	pub.Events = nil

	node.ReportDrivers()
	assert.Equal(t, 2, len(pub.Events))
	assert.Equal(t, "ST", pub.Events[0].StringField("driver"))
	assert.Equal(t, "GV0", pub.Events[1].StringField("driver"))
}
