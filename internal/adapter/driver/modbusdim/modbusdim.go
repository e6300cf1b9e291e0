package modbusdim

import (
	"context"
	"fmt"
	"time"

	"lumen2mqtt/internal/config"
	"lumen2mqtt/internal/core/domain"
	"lumen2mqtt/internal/core/port"
	"lumen2mqtt/pkg/colorx"

	"github.com/simonvetter/modbus"
	"go.uber.org/zap"
)

const defaultTimeout = 5 * time.Second

// Driver drives a dimmer channel on a Modbus TCP unit: one coil for power,
// one holding register for the level. Transitions are not supported, the
// unit applies its own ramp if it has one.
type Driver struct {
	cfg    config.LightConfig
	logger *zap.Logger
	client *modbus.ModbusClient

	levelMax uint16
}

var _ port.LightDriver = (*Driver)(nil)

func NewDriver(cfg config.LightConfig, logger *zap.Logger) (*Driver, error) {
	client, err := modbus.NewClient(&modbus.ClientConfiguration{
		URL:     fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port),
		Timeout: defaultTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("modbusdim: create client: %w", err)
	}
	if cfg.ModbusUnitId > 0 {
		if err := client.SetUnitId(uint8(cfg.ModbusUnitId)); err != nil {
			return nil, fmt.Errorf("modbusdim: set unit id: %w", err)
		}
	}
	levelMax := uint16(cfg.ModbusLevelMax)
	if levelMax == 0 {
		levelMax = 255
	}
	return &Driver{
		cfg:      cfg,
		logger:   logger.With(zap.String("driver", config.DriverModbus)),
		client:   client,
		levelMax: levelMax,
	}, nil
}

func (d *Driver) Open(_ context.Context) error {
	return d.client.Open()
}

func (d *Driver) Close() error {
	return d.client.Close()
}

func (d *Driver) Info(_ context.Context) (*domain.LightInfo, error) {
	name := d.cfg.Name
	if name == "" {
		name = d.cfg.Id
	}
	return &domain.LightInfo{
		Id:         d.cfg.Id,
		Name:       name,
		Model:      "Modbus dimmer",
		UniqueId:   fmt.Sprintf("modbusdim_%s_%d_%d", d.cfg.Host, d.cfg.ModbusUnitId, d.cfg.ModbusLevelRegister),
		ColorModes: []domain.ColorMode{domain.ColorModeBrightness},
	}, nil
}

func (d *Driver) State(_ context.Context) (*domain.LightState, error) {
	on, err := d.client.ReadCoil(uint16(d.cfg.ModbusPowerCoil))
	if err != nil {
		return nil, fmt.Errorf("modbusdim: read power coil: %w", err)
	}
	level, err := d.client.ReadRegister(uint16(d.cfg.ModbusLevelRegister), modbus.HOLDING_REGISTER)
	if err != nil {
		return nil, fmt.Errorf("modbusdim: read level register: %w", err)
	}
	return &domain.LightState{
		On:         on,
		Brightness: colorx.ScaleToBrightness(int(level), int(d.levelMax)),
		ColorMode:  domain.ColorModeBrightness,
		Available:  true,
	}, nil
}

func (d *Driver) TurnOn(_ context.Context, cmd domain.LightCommand) error {
	if b, ok := cmd.TargetBrightness(); ok {
		level := uint16(colorx.ScaleBrightness(b, int(d.levelMax)))
		if err := d.client.WriteRegister(uint16(d.cfg.ModbusLevelRegister), level); err != nil {
			return fmt.Errorf("modbusdim: write level register: %w", err)
		}
	}
	if err := d.client.WriteCoil(uint16(d.cfg.ModbusPowerCoil), true); err != nil {
		return fmt.Errorf("modbusdim: write power coil: %w", err)
	}
	return nil
}

func (d *Driver) TurnOff(_ context.Context, _ uint32) error {
	if err := d.client.WriteCoil(uint16(d.cfg.ModbusPowerCoil), false); err != nil {
		return fmt.Errorf("modbusdim: write power coil: %w", err)
	}
	return nil
}
