package action

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// ChannelBuilder builds the dispatch channel for one surface from its config.
type ChannelBuilder func(config ActionConfig) (Action, error)

var (
	buildersMu sync.RWMutex
	builders   = make(map[string]ChannelBuilder)
)

// RegisterActionType makes a channel type available to surface configs.
// Registering a type twice replaces the earlier builder.
func RegisterActionType(channelType string, build ChannelBuilder) {
	buildersMu.Lock()
	defer buildersMu.Unlock()

	builders[channelType] = build
	logrus.Debugf("registered dispatch channel type: %s", channelType)
}

// RegisteredTypes returns the known channel types in sorted order.
func RegisteredTypes() []string {
	buildersMu.RLock()
	defer buildersMu.RUnlock()

	types := make([]string, 0, len(builders))
	for t := range builders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// CreateAction builds the channel serving config.ID as a surface.
// A disabled surface yields (nil, nil).
func CreateAction(config ActionConfig) (Action, error) {
	if config.ID == "" {
		return nil, fmt.Errorf("%w: surface id is required", ErrInvalidConfig)
	}
	if !config.Enabled {
		logrus.Infof("skipping disabled dispatch channel for surface %s", config.ID)
		return nil, nil
	}

	buildersMu.RLock()
	build, ok := builders[config.Type]
	buildersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: surface %s has unknown channel type %q", ErrInvalidConfig, config.ID, config.Type)
	}

	channel, err := build(config)
	if err != nil {
		return nil, err
	}
	logrus.Infof("built %s channel for surface %s", config.Type, config.ID)
	return channel, nil
}

// RegisterActions builds one channel per configured surface and adds them to
// the registry. Surfaces whose channel fails to build are logged and left out;
// wiring validation then reports any playbook surface without a channel.
// Only a registry conflict is returned as an error.
func RegisterActions(registry *Registry, configs []ActionConfig) error {
	var failed []error
	registered := 0

	for _, config := range configs {
		channel, err := CreateAction(config)
		if err != nil {
			failed = append(failed, err)
			logrus.WithFields(logrus.Fields{
				"surface": config.ID,
				"type":    config.Type,
			}).Warnf("dispatch channel not built: %v", err)
			continue
		}
		if channel == nil {
			continue
		}

		if err := registry.Register(channel); err != nil {
			return fmt.Errorf("failed to register channel for surface %s: %w", config.ID, err)
		}
		registered++
	}

	if len(failed) > 0 {
		logrus.Warnf("%d of %d surfaces have no dispatch channel: %v", len(failed), len(configs), errors.Join(failed...))
	}
	logrus.Infof("registered %d dispatch channels", registered)
	return nil
}
