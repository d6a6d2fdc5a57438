package model

import (
	"fmt"
	"strings"
)

// Descriptor is one way of identifying a target element.
//
//	{Selector}             attribute or structural CSS match
//	{Selector, Text}       nodes matching Selector whose text contains Text
//	{Selector, Has[,Text]} nodes matching Selector with a descendant matching Has
type Descriptor struct {
	Selector string `yaml:"selector"       json:"selector"`
	Text     string `yaml:"text,omitempty" json:"text,omitempty"`
	Has      string `yaml:"has,omitempty"  json:"has,omitempty"`
}

// Descriptors is an ordered set of alternatives; earlier entries are preferred.
type Descriptors []Descriptor

// CSS returns a descriptor that matches on a selector alone.
func CSS(selector string) Descriptor {
	return Descriptor{Selector: selector}
}

// Contains returns a text-content descriptor.
func Contains(selector, text string) Descriptor {
	return Descriptor{Selector: selector, Text: text}
}

// HasDescendant returns a structural descriptor requiring a descendant match.
func HasDescendant(selector, has, text string) Descriptor {
	return Descriptor{Selector: selector, Has: has, Text: text}
}

// Validate reports whether the descriptor can be evaluated.
func (d Descriptor) Validate() error {
	if strings.TrimSpace(d.Selector) == "" {
		return fmt.Errorf("descriptor has an empty selector")
	}
	return nil
}

// String renders the descriptor in the familiar jQuery-ish notation, for
// logs and error messages only.
func (d Descriptor) String() string {
	s := d.Selector
	if d.Has != "" {
		s += ":has(" + d.Has + ")"
	}
	if d.Text != "" {
		s += fmt.Sprintf(":contains(%q)", d.Text)
	}
	return s
}

// String joins the alternatives with " | ".
func (ds Descriptors) String() string {
	parts := make([]string, len(ds))
	for i, d := range ds {
		parts[i] = d.String()
	}
	return strings.Join(parts, " | ")
}

// Validate checks every alternative and rejects an empty set.
func (ds Descriptors) Validate() error {
	if len(ds) == 0 {
		return fmt.Errorf("no descriptors")
	}
	for i, d := range ds {
		if err := d.Validate(); err != nil {
			return fmt.Errorf("descriptor %d: %w", i, err)
		}
	}
	return nil
}
