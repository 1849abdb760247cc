package model

// SceneSpec describes how to construct one scene. The same structure is
// read from YAML, JSON and HCL scene files and from API requests.
type SceneSpec struct {
	Name string `json:"name" yaml:"name" hcl:"name,label"`

	// Label is the text of every node spawned by Repeat.
	Label string `json:"label,omitempty" yaml:"label,omitempty" hcl:"label,optional"`
	// Repeat is the number of nodes spawned after the root.
	Repeat int `json:"repeat,omitempty" yaml:"repeat,omitempty" hcl:"repeat,optional"`
	// Direction is "forward" (default) or "downward".
	Direction string `json:"direction,omitempty" yaml:"direction,omitempty" hcl:"direction,optional"`

	// Empty makes the factory produce no scene at all.
	Empty bool `json:"empty,omitempty" yaml:"empty,omitempty" hcl:"empty,optional"`

	// Script is JavaScript run with a `caret` in scope. Returning null
	// produces no scene.
	Script string `json:"script,omitempty" yaml:"script,omitempty" hcl:"script,optional"`

	Grow *GrowSpec `json:"grow,omitempty" yaml:"grow,omitempty" hcl:"grow,block"`
}

// GrowSpec extends a constructed scene incrementally over several cycles.
type GrowSpec struct {
	Count     int    `json:"count" yaml:"count" hcl:"count"`
	PerStep   int    `json:"per_step,omitempty" yaml:"per_step,omitempty" hcl:"per_step,optional"`
	Direction string `json:"direction,omitempty" yaml:"direction,omitempty" hcl:"direction,optional"`
	Label     string `json:"label,omitempty" yaml:"label,omitempty" hcl:"label,optional"`
}
