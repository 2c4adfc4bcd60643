package model

import (
	"errors"
	"fmt"
)

// Character trait bounds enforced before any remote call.
const (
	MaxTraits        = 5
	MinTraitValue    = 0
	MaxTraitValue    = 10
	maxCharacterName = 64
)

// Trait is one named intensity of the weekly persona.
type Trait struct {
	Name      string `json:"name"`
	Intensity int    `json:"intensity"`
}

// Character is the active weekly persona configuration. At most one is
// active per epoch and, once set, the authority treats it as immutable.
type Character struct {
	Name   string  `json:"name"`
	Task   string  `json:"task"`
	Traits []Trait `json:"traits"`
}

// Validate checks the descriptor's bounds.
func (c Character) Validate() error {
	if c.Name == "" || len(c.Name) > maxCharacterName {
		return errors.New("character name must be 1-64 characters")
	}
	if c.Task == "" {
		return errors.New("character task must not be empty")
	}
	if len(c.Traits) == 0 || len(c.Traits) > MaxTraits {
		return fmt.Errorf("character must have 1-%d traits", MaxTraits)
	}
	for _, t := range c.Traits {
		if t.Name == "" {
			return errors.New("trait name must not be empty")
		}
		if t.Intensity < MinTraitValue || t.Intensity > MaxTraitValue {
			return fmt.Errorf("trait %q intensity out of range [%d,%d]",
				t.Name, MinTraitValue, MaxTraitValue)
		}
	}
	return nil
}
