// Package models collects example systems built on the procsim primitives.
//
// Each model lives in its own package and registers itself with this package
// from an init function, so a program selects the models it ships with by
// importing them.
package models

import (
	"fmt"
	"sort"
	"sync"

	"github.com/sarchlab/procsim/sim"
)

// A Line is a place where processes wait, such as a queue, a signal, or a
// resource.
type Line interface {
	Name() string
	NumWaiting() int
}

// A Stat is one named figure of a model report.
type Stat struct {
	Name  string
	Value float64
}

// A Model is an example system that can be placed on a simulator.
type Model interface {
	// Build adds the processes of the model to the simulator. A model is built
	// at most once.
	Build(s *sim.Simulator) error

	// Lines returns where the processes of the model wait.
	Lines() []Line

	// Report summarizes what happened so far.
	Report() []Stat
}

// A Decoder fills a configuration struct. A Decoder that leaves the struct
// untouched keeps the model defaults.
type Decoder func(cfg any) error

// NoConfig is a Decoder that keeps the defaults.
func NoConfig(any) error {
	return nil
}

// A Factory creates a model from a random seed and a configuration.
type Factory func(seed int64, decode Decoder) (Model, error)

type registration struct {
	description string
	factory     Factory
}

var (
	registryLock sync.RWMutex
	registry     = make(map[string]registration)
)

// Register makes a model available by name. It panics if the name is taken.
func Register(name, description string, factory Factory) {
	registryLock.Lock()
	defer registryLock.Unlock()

	if _, found := registry[name]; found {
		panic(fmt.Sprintf("model %s is already registered", name))
	}

	registry[name] = registration{
		description: description,
		factory:     factory,
	}
}

// Names lists the registered models in alphabetical order.
func Names() []string {
	registryLock.RLock()
	defer registryLock.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Description returns the one-line description of a registered model.
func Description(name string) string {
	registryLock.RLock()
	defer registryLock.RUnlock()

	return registry[name].description
}

// New creates a registered model.
func New(name string, seed int64, decode Decoder) (Model, error) {
	registryLock.RLock()
	r, found := registry[name]
	registryLock.RUnlock()

	if !found {
		return nil, fmt.Errorf("unknown model %q", name)
	}

	if decode == nil {
		decode = NoConfig
	}

	return r.factory(seed, decode)
}
