// Copyright (c) 2016 by Thorsten von Eicken

package main

import (
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// module is a static descriptor for a message/packet processing module. A module
// gets instantiated by calling hookModule().
//
// The runner function of a module gets called on the module's own goroutine for each message
// arriving on the subscription topic. It decodes the message with the codec and publishes
// whatever it derives through pub.
type module struct {
	name   string // name of the module, needs to be used in the config
	runner func(m *Message, c codec, pub pubFunc, log *zap.SugaredLogger)
}

// pubFunc is the publishing function passed into a runner, suffix is appended to the
// configured publication topic.
type pubFunc func(suffix string, payload interface{})

// modules is a global registry of modules that can be instantiated via config.
var modules map[string]module

// RegisterModule adds a module to the global registry. It is typically used in init() functions.
func RegisterModule(m module) {
	if modules == nil {
		modules = make(map[string]module)
	}
	modules[m.name] = m
}

// moduleNames lists the registered modules.
func moduleNames() []string {
	names := make([]string, 0, len(modules))
	for n := range modules {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// hookModule instantiates a module, hooking it to a subscription and a publishing topic.
func hookModule(mc ModuleConfig, mq *mq, logger *zap.SugaredLogger) error {
	logger.Debugf("Hooking module %s (%s -> %s)", mc.Name, mc.Sub, mc.Pub)
	m, ok := modules[mc.Name]
	if !ok {
		return fmt.Errorf("module %s not found", mc.Name)
	}
	log := logger.Named(mc.Name)

	subChan := make(chan *Message, 10)
	err := mq.Subscribe(mc.Sub, func(msg *Message) {
		select {
		case subChan <- msg:
		default:
			log.Warnf("dropping message on %s, module is behind", msg.Topic)
		}
	})
	if err != nil {
		return err
	}

	pub := func(suffix string, payload interface{}) {
		if err := mq.Publish(topicJoin(mc.Pub, suffix), payload); err != nil {
			log.Error(err)
		}
	}
	go func() {
		for msg := range subChan {
			m.runner(msg, mq.codec, pub, log)
		}
	}()
	return nil
}
