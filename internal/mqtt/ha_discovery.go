package mqtt

import (
	"fmt"

	"lumen2mqtt/internal/core/domain"
)

type HADiscoveryConfig struct {
	Device           HADiscoveryDevice `json:"device"`
	StateTopic       string            `json:"state_topic"`
	CommandTopic     string            `json:"command_topic,omitempty"`
	DeviceClass      string            `json:"device_class,omitempty"`
	AvTopic          string            `json:"availability_topic,omitempty"`
	EntityCategory   string            `json:"entity_category,omitempty"`
	Name             string            `json:"name"`
	UniqueId         string            `json:"unique_id"`
	Platform         string            `json:"platform"`
	EnabledByDefault *bool             `json:"enabled_by_default,omitempty"`
	PayloadOn        string            `json:"payload_on,omitempty"`
	PayloadOff       string            `json:"payload_off,omitempty"`
	Icon             string            `json:"icon,omitempty"`

	Schema              string   `json:"schema,omitempty"`
	Brightness          *bool    `json:"brightness,omitempty"`
	SupportedColorModes []string `json:"supported_color_modes,omitempty"`
	MinMireds           int      `json:"min_mireds,omitempty"`
	MaxMireds           int      `json:"max_mireds,omitempty"`
}

type HADiscoveryDevice struct {
	Id           []string `json:"identifiers"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Version      string   `json:"sw_version,omitempty"`
	Model        string   `json:"model,omitempty"`
	Name         string   `json:"name,omitempty"`
	ViaDevice    string   `json:"via_device,omitempty"`
}

func HADiscoveryLightTopic(haTopic string, light domain.GenericLight) string {
	return fmt.Sprintf("%s/light/%s/%s/config", haTopic, light.Device.Id, light.Id)
}

func HADiscoverySensorTopic(haTopic string, sensor domain.GenericSensor) string {
	return fmt.Sprintf("%s/%s/%s/%s/config", haTopic, sensor.SensorType, sensor.Device.Id, sensor.Id)
}

func GenericLightToHADiscoveryMessage(client *MQTTClient, light domain.GenericLight) HADiscoveryConfig {
	modes := make([]string, 0, len(light.ColorModes))
	for _, m := range light.ColorModes {
		modes = append(modes, string(m))
	}
	brightness := light.Brightness
	return HADiscoveryConfig{
		Device:              device(light.Device),
		StateTopic:          client.LightStateTopic(light.Id),
		CommandTopic:        client.LightCommandTopic(light.Id),
		AvTopic:             client.LightAvailabilityTopic(light.Id),
		Name:                light.Name,
		UniqueId:            light.UniqueId,
		Icon:                light.Icon,
		Platform:            "mqtt",
		Schema:              "json",
		Brightness:          &brightness,
		SupportedColorModes: modes,
		MinMireds:           light.MinMireds,
		MaxMireds:           light.MaxMireds,
	}
}

func GenericSensorToHADiscoveryMessage(client *MQTTClient, sensor domain.GenericSensor) HADiscoveryConfig {
	var topic string
	if sensor.Id == domain.SENSOR_ID_BRIDGE_STATE {
		topic = client.BridgeStateTopic()
	} else {
		topic = client.BinarySensorStateTopic(sensor.Id)
	}
	disConfig := HADiscoveryConfig{
		Device:         device(sensor.Device),
		StateTopic:     topic,
		DeviceClass:    sensor.DeviceClass,
		AvTopic:        client.BridgeStateTopic(),
		EntityCategory: sensor.EntityCategory,
		Name:           sensor.Name,
		UniqueId:       sensor.UniqueId,
		Icon:           sensor.Icon,
		Platform:       "mqtt",
	}
	if sensor.Id == domain.SENSOR_ID_BRIDGE_STATE {
		disConfig.PayloadOn = MQTT_PAYLOAD_ONLINE
		disConfig.PayloadOff = MQTT_PAYLOAD_OFFLINE
	} else {
		disConfig.PayloadOn = MQTT_PAYLOAD_ON
		disConfig.PayloadOff = MQTT_PAYLOAD_OFF
	}
	return disConfig
}

func device(d domain.Device) HADiscoveryDevice {
	return HADiscoveryDevice{
		Id:           []string{d.Id},
		Manufacturer: d.Manufacturer,
		Version:      d.Version,
		Model:        d.Model,
		Name:         d.Name,
		ViaDevice:    d.ViaDevice,
	}
}
