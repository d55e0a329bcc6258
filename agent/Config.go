package agent

import (
	"fmt"
	"reflect"
	"sort"

	env "github.com/samuelfneumann/gorl/environment"
)

// Type represents a specific type of an agent Config. Config's with
// this type can create Agents of the corresponding type.
type Type string

const (
	LinearDQN  Type = "dqn"
	DeepQ      Type = "deepq"
	LinearDDPG Type = "ddpg"
)

// Config represents a configuration for creating an agent
type Config interface {
	// CreateAgent creates the agent that the config describes
	CreateAgent(e env.Environment, seed uint64) (Agent, error)

	// Validate returns an error describing whether or not the
	// configuration is valid or not.
	Validate() error

	// Type returns the type of agent the Config creates
	Type() Type
}

// Registered types with the package. Once a Type has been registered
// with this map, a Config with that type can be created by NewConfig.
//
// No Type's are registered with this package upon initialization.
// Each agent package registers its own Type to avoid circular imports.
var registeredTypes = make(map[Type]reflect.Type)

// Register registers the concrete Config type of an agent Type
func Register(t Type, c Config) {
	if _, ok := registeredTypes[t]; ok {
		panic(fmt.Sprintf("register: type %v already registered", t))
	}
	registeredTypes[t] = reflect.TypeOf(c)
}

// NewConfig returns a pointer to a new default Config of type t. If the
// registered Config has a Default() method, its result is used as the
// initial value, so that configuration files only need to name the
// fields they change.
func NewConfig(t Type) (Config, error) {
	ty, ok := registeredTypes[t]
	if !ok {
		return nil, fmt.Errorf("newConfig: type %q not registered "+
			"\n\twant(one of %v)", t, Registered())
	}

	ptr := reflect.New(ty)
	if d, ok := ptr.Elem().Interface().(interface{ Default() Config }); ok {
		ptr.Elem().Set(reflect.ValueOf(d.Default()))
	}
	return ptr.Interface().(Config), nil
}

// Registered returns the registered agent types in sorted order
func Registered() []Type {
	types := make([]Type, 0, len(registeredTypes))
	for t := range registeredTypes {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
