package domain

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/carlmjohnson/versioninfo"
	"github.com/samber/lo"
)

const (
	SENSOR_ID_BRIDGE_STATE = "bridge"

	DEVICE_CLASS_CONNECTIVITY = "connectivity"
	ENTITY_CLASS_DIAGNOSTIC   = "diagnostic"
	SENSOR_TYPE_BINARY        = "binary_sensor"
)

// Device is the HA discovery device block shared by all entities of one
// physical light (or the bridge itself).
type Device struct {
	Id           string
	Name         string
	Version      string
	Model        string
	Manufacturer string
	ViaDevice    string
}

// GenericLight describes a light entity for MQTT discovery.
type GenericLight struct {
	Device     Device
	Id         string
	Name       string
	UniqueId   string
	ColorModes []ColorMode
	Brightness bool
	MinMireds  int
	MaxMireds  int
	Icon       string
}

// GenericSensor is the trimmed sensor shape the bridge still publishes:
// its own connectivity binary sensor.
type GenericSensor struct {
	Device         Device
	Id             string
	SensorType     string
	Name           string
	UniqueId       string
	DeviceClass    string
	EntityCategory string
	Icon           string
}

func BridgeDevice(baseTopic string) Device {
	return Device{
		Id:           fmt.Sprintf("lumen_bridge_%s", md5HashShort(baseTopic)),
		Manufacturer: "lumen2mqtt",
		Model:        "Lumen bridge",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("Lumen %s", md5HashShort(baseTopic)),
	}
}

func BridgeSensors(bridgeDevice Device) []GenericSensor {
	return []GenericSensor{
		{
			Device:         bridgeDevice,
			Id:             SENSOR_ID_BRIDGE_STATE,
			SensorType:     SENSOR_TYPE_BINARY,
			Name:           "Bridge state",
			DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
			EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
			UniqueId:       uniqueId(bridgeDevice.Id, SENSOR_ID_BRIDGE_STATE),
		},
	}
}

// LightDevice builds the discovery device block for one light.
func LightDevice(info LightInfo) Device {
	name := info.Name
	if name == "" {
		name = info.Id
	}
	return Device{
		Id:           fmt.Sprintf("lumen_light_%s", md5HashShort(info.UniqueId)),
		Manufacturer: info.Manufacturer,
		Model:        info.Model,
		Version:      info.Version,
		Name:         name,
	}
}

// LightEntity builds the discovery entity for one light.
func LightEntity(device Device, info LightInfo) GenericLight {
	name := info.Name
	if name == "" {
		name = info.Id
	}
	minMireds, maxMireds := 0, 0
	if info.SupportsColorMode(ColorModeColorTemp) {
		minMireds = lo.Ternary(info.MinMired != 0, info.MinMired, DefaultMinMired)
		maxMireds = lo.Ternary(info.MaxMired != 0, info.MaxMired, DefaultMaxMired)
	}
	return GenericLight{
		Device:     device,
		Id:         info.Id,
		Name:       name,
		UniqueId:   uniqueId(device.Id, info.Id),
		ColorModes: info.ColorModes,
		Brightness: info.SupportsBrightness(),
		MinMireds:  minMireds,
		MaxMireds:  maxMireds,
	}
}

// IdDevice strips a device block down to id and name, used for every entity
// after the first so HA does not re-process the full block.
func IdDevice(device Device) Device {
	return Device{
		Id:   device.Id,
		Name: device.Name,
	}
}

func uniqueId(deviceId, entityId string) string {
	return fmt.Sprintf("%s_%s", deviceId, entityId)
}

func md5HashShort(str string) string {
	hash := md5.Sum([]byte(str))
	return hex.EncodeToString(hash[:])[:8]
}
