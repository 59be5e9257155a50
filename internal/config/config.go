// Package config reads the YAML configuration of the LED bus.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/callebjorkell/pixelbus/internal/stream"
	"github.com/callebjorkell/pixelbus/internal/waveform"
	"gopkg.in/yaml.v3"
)

const (
	defaultLeds          = 34
	defaultBitRate       = 800000
	defaultResetTime     = 300
	defaultMaxBrightness = 100
	defaultFadeOut       = 3000
	defaultTick          = 10
	defaultOutputPin     = "GPIO18"
	defaultButtonPin     = "GPIO20"
	defaultMonitorAddr   = ":8080"

	// the zero code is a quarter period and must not be the idle level
	minTimerPeriod = 8
)

const (
	DriverSim    = "sim"
	DriverGPIO   = "gpio"
	DriverSPI    = "spi"
	DriverWS281x = "ws281x"
)

type Config struct {
	Leds           int    `yaml:"leds"`
	TimerPeriod    int    `yaml:"timer_period"`
	BitRate        uint32 `yaml:"bit_rate_hz"`
	ResetTime      int    `yaml:"reset_us"`
	ResetThreshold int    `yaml:"reset_threshold"`
	MaxBrightness  int    `yaml:"max_brightness"`
	FadeOut        uint32 `yaml:"fade_out_ms"`
	Tick           int    `yaml:"tick_ms"`
	Output         struct {
		Driver string `yaml:"driver"`
		Pin    string `yaml:"pin"`
		Port   string `yaml:"port"`
	} `yaml:"output"`
	Button struct {
		Enabled bool   `yaml:"enabled"`
		Pin     string `yaml:"pin"`
	} `yaml:"button"`
	Monitor struct {
		Addr string `yaml:"addr"`
	} `yaml:"monitor"`
	LCD struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"lcd"`
}

// Default is the configuration used when no file is given.
func Default() *Config {
	c, err := Parse(nil)
	if err != nil {
		panic(err)
	}
	return c
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config: %w", err)
	}
	return Parse(b)
}

func Parse(content []byte) (*Config, error) {
	c := &Config{}
	err := yaml.Unmarshal(content, c)
	if err != nil {
		return nil, err
	}

	if c.Leds == 0 {
		c.Leds = defaultLeds
	}
	if c.Leds < 0 || c.Leds > 0xffff {
		return nil, fmt.Errorf("led count %d is out of range", c.Leds)
	}
	if c.TimerPeriod == 0 {
		c.TimerPeriod = waveform.DefaultPeriod
	}
	if c.TimerPeriod < minTimerPeriod || c.TimerPeriod > 255 {
		return nil, fmt.Errorf("timer period must be between %d and 255, got %d", minTimerPeriod, c.TimerPeriod)
	}
	if c.BitRate == 0 {
		c.BitRate = defaultBitRate
	}
	if c.ResetTime <= 0 {
		c.ResetTime = defaultResetTime
	}
	if c.ResetThreshold != 0 && c.ResetThreshold < 2 {
		return nil, fmt.Errorf("reset threshold must be at least 2, got %d", c.ResetThreshold)
	}
	if c.MaxBrightness == 0 {
		c.MaxBrightness = defaultMaxBrightness
	}
	if c.MaxBrightness < 0 || c.MaxBrightness > 100 {
		return nil, fmt.Errorf("max brightness must be between 1 and 100, got %d", c.MaxBrightness)
	}
	if c.FadeOut == 0 {
		c.FadeOut = defaultFadeOut
	}
	if c.Tick <= 0 {
		c.Tick = defaultTick
	}

	switch c.Output.Driver {
	case "":
		c.Output.Driver = DriverSim
	case DriverSim, DriverGPIO, DriverSPI, DriverWS281x:
	default:
		return nil, fmt.Errorf("unknown output driver %q", c.Output.Driver)
	}
	if c.Output.Pin == "" {
		c.Output.Pin = defaultOutputPin
	}
	if c.Button.Pin == "" {
		c.Button.Pin = defaultButtonPin
	}
	if c.Monitor.Addr == "" {
		c.Monitor.Addr = defaultMonitorAddr
	}

	return c, nil
}

func (c Config) Encoder() waveform.Encoder {
	return waveform.NewEncoder(uint8(c.TimerPeriod))
}

// Threshold is the number of drain events spent latching, either configured or derived from the reset time.
func (c Config) Threshold() int {
	if c.ResetThreshold > 0 {
		return c.ResetThreshold
	}
	return stream.ResetThreshold(time.Duration(c.ResetTime)*time.Microsecond, c.BitRate)
}

func (c Config) TickInterval() time.Duration {
	return time.Duration(c.Tick) * time.Millisecond
}
