package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"

	"audio-policy/internal/audio"
	"audio-policy/internal/common/errors"
	"audio-policy/internal/common/validation"
	"audio-policy/internal/topology"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

//go:embed default_topology.yaml
var defaultTopology []byte

// TopologyConfig is the YAML description of the hardware modules
type TopologyConfig struct {
	Modules []ModuleConfig `yaml:"modules" validate:"required,min=1,dive"`
}

// ModuleConfig describes one hardware module
type ModuleConfig struct {
	Name                string             `yaml:"name" validate:"required"`
	HALVersion          string             `yaml:"halVersion" validate:"required,hal_version"`
	AttachedDevices     []string           `yaml:"attachedDevices"`
	DefaultOutputDevice string             `yaml:"defaultOutputDevice"`
	MixPorts            []MixPortConfig    `yaml:"mixPorts" validate:"dive"`
	DevicePorts         []DevicePortConfig `yaml:"devicePorts" validate:"dive"`
	Routes              []RouteConfig      `yaml:"routes" validate:"dive"`
}

// MixPortConfig describes a mix profile. A source mix port is an output, a
// sink mix port an input.
type MixPortConfig struct {
	Name         string         `yaml:"name" validate:"required"`
	Role         audio.PortRole `yaml:"role" validate:"required"`
	Flags        string         `yaml:"flags" validate:"audio_flags"`
	MaxOpenCount uint32         `yaml:"maxOpenCount"`
	Profiles     audio.Profiles `yaml:"profiles" validate:"required,min=1,dive"`
}

// DevicePortConfig describes a device port
type DevicePortConfig struct {
	TagName  string           `yaml:"tagName" validate:"required"`
	Type     audio.DeviceType `yaml:"type" validate:"required"`
	Role     audio.PortRole   `yaml:"role" validate:"required"`
	Address  string           `yaml:"address"`
	Profiles audio.Profiles   `yaml:"profiles" validate:"dive"`
}

// RouteConfig connects sources to a sink
type RouteConfig struct {
	Sink    string   `yaml:"sink" validate:"required"`
	Sources []string `yaml:"sources" validate:"required,min=1,dive,required"`
}

// DefaultTopology is the built-in topology: one primary module with a speaker
// and a microphone
func DefaultTopology() topology.Spec {
	spec, err := ParseTopology(defaultTopology)
	if err != nil {
		panic(fmt.Sprintf("built-in topology: %v", err))
	}
	return spec
}

// LoadTopology reads and parses the topology description at path
func LoadTopology(path string) (topology.Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return topology.Spec{}, errors.ConfigError(fmt.Sprintf("read topology %s: %v", path, err))
	}
	return ParseTopology(data)
}

// ParseTopology decodes, validates and converts a YAML topology description.
// Unknown keys are rejected.
func ParseTopology(data []byte) (topology.Spec, error) {
	var cfg TopologyConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return topology.Spec{}, errors.ConfigError(fmt.Sprintf("decode topology: %v", err))
	}
	if err := validation.ValidateStruct(cfg); err != nil {
		return topology.Spec{}, errors.ConfigError(fmt.Sprintf("invalid topology: %s", appMessage(err)))
	}
	return cfg.Spec()
}

// Spec converts the description into a topology.Spec
func (c TopologyConfig) Spec() (topology.Spec, error) {
	spec := topology.Spec{Modules: make([]topology.ModuleSpec, 0, len(c.Modules))}
	for _, mc := range c.Modules {
		ms, err := mc.spec()
		if err != nil {
			return topology.Spec{}, err
		}
		spec.Modules = append(spec.Modules, ms)
	}
	return spec, nil
}

func (mc ModuleConfig) spec() (topology.ModuleSpec, error) {
	version, err := majorVersion(mc.HALVersion)
	if err != nil {
		return topology.ModuleSpec{}, errors.ConfigError(fmt.Sprintf("module %q: %v", mc.Name, err))
	}

	ms := topology.ModuleSpec{Name: mc.Name, HALVersion: version}

	for _, name := range append(append([]string(nil), mc.AttachedDevices...), mc.DefaultOutputDevice) {
		if name == "" {
			continue
		}
		if !lo.ContainsBy(mc.DevicePorts, func(d DevicePortConfig) bool { return d.TagName == name }) {
			return topology.ModuleSpec{}, errors.ConfigError(
				fmt.Sprintf("module %q: attached device %q is not declared", mc.Name, name))
		}
	}

	for _, dp := range mc.DevicePorts {
		if dp.Role != dp.Type.Role() {
			return topology.ModuleSpec{}, errors.ConfigError(
				fmt.Sprintf("module %q: device %q of type %s cannot have role %s", mc.Name, dp.TagName, dp.Type, dp.Role))
		}
		ms.Devices = append(ms.Devices, topology.DeviceSpec{
			Name:          dp.TagName,
			Type:          dp.Type,
			Address:       dp.Address,
			Profiles:      dp.Profiles,
			Attached:      lo.Contains(mc.AttachedDevices, dp.TagName),
			DefaultOutput: dp.TagName == mc.DefaultOutputDevice,
		})
	}

	for _, mp := range mc.MixPorts {
		mix := topology.MixSpec{Name: mp.Name, Profiles: mp.Profiles, MaxOpenCount: mp.MaxOpenCount}
		switch mp.Role {
		case audio.PortRoleSource:
			if mix.OutputFlags, err = audio.ParseOutputFlags(mp.Flags); err != nil {
				return topology.ModuleSpec{}, errors.ConfigError(fmt.Sprintf("output %q: %v", mp.Name, err))
			}
			ms.Outputs = append(ms.Outputs, mix)
		case audio.PortRoleSink:
			if mix.InputFlags, err = audio.ParseInputFlags(mp.Flags); err != nil {
				return topology.ModuleSpec{}, errors.ConfigError(fmt.Sprintf("input %q: %v", mp.Name, err))
			}
			ms.Inputs = append(ms.Inputs, mix)
		default:
			return topology.ModuleSpec{}, errors.ConfigError(fmt.Sprintf("mix port %q has no role", mp.Name))
		}
	}

	for _, r := range mc.Routes {
		ms.Routes = append(ms.Routes, topology.RouteSpec{Sink: r.Sink, Sources: r.Sources})
	}
	return ms, nil
}

// majorVersion reads the major number of a <major>.<minor> version
func majorVersion(version string) (uint32, error) {
	major, _, _ := strings.Cut(version, ".")
	v, err := strconv.ParseUint(major, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid hal version %q", version)
	}
	return uint32(v), nil
}

func appMessage(err error) string {
	if appErr, ok := err.(*errors.AppError); ok {
		return appErr.Message
	}
	return err.Error()
}
