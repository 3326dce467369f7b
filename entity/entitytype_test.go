package entity_test

import (
	"testing"

	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/entity"
)

func TestClassCounts(t *testing.T) {
	c := entity.ClassCounts{10, 2, 1} // car, bus, truck
	assert.Equal(t, int32(13), c.Total())
	assert.Equal(t, 10+2*2.5+3., c.Weighted([entity.NumVehicleClasses]float64{1, 2.5, 3}))
	assert.Equal(t, "car=10 bus=2 truck=1", c.String())
}

func TestParseVehicleClass(t *testing.T) {
	for _, class := range entity.AllVehicleClasses {
		got, ok := entity.ParseVehicleClass(class.String())
		assert.True(t, ok)
		assert.Equal(t, class, got)
	}
	got, ok := entity.ParseVehicleClass(" Truck ")
	assert.True(t, ok)
	assert.Equal(t, entity.VehicleClassTruck, got)
	_, ok = entity.ParseVehicleClass("person")
	assert.False(t, ok)
}

func TestSignalLight(t *testing.T) {
	green := entity.SignalState{Sub: entity.SubStateGreen}
	amber := entity.SignalState{Sub: entity.SubStateAmber}
	allRed := entity.SignalState{Sub: entity.SubStateAllRed}
	assert.Equal(t, mapv2.LightState_LIGHT_STATE_GREEN, green.Light(true))
	assert.Equal(t, mapv2.LightState_LIGHT_STATE_RED, green.Light(false))
	assert.Equal(t, mapv2.LightState_LIGHT_STATE_YELLOW, amber.Light(true))
	assert.Equal(t, mapv2.LightState_LIGHT_STATE_RED, amber.Light(false))
	assert.Equal(t, mapv2.LightState_LIGHT_STATE_RED, allRed.Light(true))
}

func TestLoadSnapshot(t *testing.T) {
	s := entity.LoadSnapshot{Counts: map[string]entity.ClassCounts{"n": {1, 0, 0}, "s": {2, 1, 1}}}
	assert.Equal(t, int32(5), s.Total())
	assert.Equal(t, entity.ClassCounts{}, s.Get("missing"))

	c := s.Clone()
	assert.Equal(t, s, c)
	c.Counts["n"] = entity.ClassCounts{9, 9, 9}
	assert.Equal(t, entity.ClassCounts{1, 0, 0}, s.Get("n"))
	assert.Nil(t, entity.LoadSnapshot{}.Clone().Counts)
}
