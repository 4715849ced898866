package patterns

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// defaultVendorWeight is applied to vendor signatures without an explicit weight
	defaultVendorWeight = 1.0
	// defaultGenericWeight is applied to generic signatures without an explicit weight
	defaultGenericWeight = 0.5
	// defaultGenericRequiredHits is the generic label threshold
	defaultGenericRequiredHits = 2
	// defaultGenericRaisedHits is the generic label threshold when false-positive markup is present
	defaultGenericRaisedHits = 3
	// defaultFalsePositiveContentLimit is the content match count that raises the threshold
	defaultFalsePositiveContentLimit = 2
)

// Definition is the serializable form of a pattern library
type Definition struct {
	Version              string             `yaml:"version,omitempty"`
	Vendors              []VendorDefinition `yaml:"vendors,omitempty"`
	Generic              GenericDefinition  `yaml:"generic,omitempty"`
	FalsePositiveDomains []string           `yaml:"false_positive_domains,omitempty"`
	FalsePositiveContent []string           `yaml:"false_positive_content,omitempty"`
	GenericRequiredHits  int                `yaml:"generic_required_hits,omitempty"`
	GenericRaisedHits    int                `yaml:"generic_raised_hits,omitempty"`
}

// VendorDefinition lists the raw expressions for one vendor
type VendorDefinition struct {
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases,omitempty"`
	Scripts []string `yaml:"scripts,omitempty"`
	DOM     []string `yaml:"dom,omitempty"`
	Config  []string `yaml:"config,omitempty"`
	Init    []string `yaml:"init,omitempty"`
	Sockets []string `yaml:"sockets,omitempty"`
	Weight  float64  `yaml:"weight,omitempty"`
}

// GenericDefinition lists the raw expressions per generic category
type GenericDefinition struct {
	DynamicLoad []string `yaml:"dynamic_load,omitempty"`
	DOM         []string `yaml:"dom,omitempty"`
	Meta        []string `yaml:"meta,omitempty"`
	WebSocket   []string `yaml:"websocket,omitempty"`
}

// DecodeDefinition reads a YAML definition
func DecodeDefinition(r io.Reader) (Definition, error) {
	var def Definition

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(&def); err != nil {
		if errors.Is(err, io.EOF) {
			return def, nil
		}

		return Definition{}, fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
	}

	return def, nil
}

// Merge overlays other onto d. Vendors with the same name are replaced, new vendors are
// appended, and list fields are extended
func (d Definition) Merge(other Definition) Definition {
	out := d
	out.Vendors = append([]VendorDefinition{}, d.Vendors...)

	for _, v := range other.Vendors {
		replaced := false

		for i := range out.Vendors {
			if strings.EqualFold(out.Vendors[i].Name, v.Name) {
				out.Vendors[i] = v
				replaced = true

				break
			}
		}

		if !replaced {
			out.Vendors = append(out.Vendors, v)
		}
	}

	out.Generic.DynamicLoad = appendUnique(d.Generic.DynamicLoad, other.Generic.DynamicLoad)
	out.Generic.DOM = appendUnique(d.Generic.DOM, other.Generic.DOM)
	out.Generic.Meta = appendUnique(d.Generic.Meta, other.Generic.Meta)
	out.Generic.WebSocket = appendUnique(d.Generic.WebSocket, other.Generic.WebSocket)
	out.FalsePositiveDomains = appendUnique(d.FalsePositiveDomains, other.FalsePositiveDomains)
	out.FalsePositiveContent = appendUnique(d.FalsePositiveContent, other.FalsePositiveContent)

	if other.Version != "" {
		out.Version = other.Version
	}

	if other.GenericRequiredHits > 0 {
		out.GenericRequiredHits = other.GenericRequiredHits
	}

	if other.GenericRaisedHits > 0 {
		out.GenericRaisedHits = other.GenericRaisedHits
	}

	return out
}

// Compile validates every expression and builds an immutable Library
func Compile(def Definition) (*Library, error) {
	lib := &Library{
		Version:                   def.Version,
		Generic:                   make(map[Type][]Signature, len(GenericCategories)),
		GenericRequiredHits:       def.GenericRequiredHits,
		GenericRaisedHits:         def.GenericRaisedHits,
		FalsePositiveContentLimit: defaultFalsePositiveContentLimit,
	}

	if lib.GenericRequiredHits <= 0 {
		lib.GenericRequiredHits = defaultGenericRequiredHits
	}

	if lib.GenericRaisedHits < lib.GenericRequiredHits {
		lib.GenericRaisedHits = max(defaultGenericRaisedHits, lib.GenericRequiredHits+1)
	}

	for _, vd := range def.Vendors {
		if strings.TrimSpace(vd.Name) == "" {
			return nil, ErrMissingVendorName
		}

		weight := vd.Weight
		if weight <= 0 {
			weight = defaultVendorWeight
		}

		vendor := Vendor{Name: vd.Name, Aliases: vd.Aliases}

		groups := []struct {
			typ   Type
			exprs []string
		}{
			{TypeScriptReference, vd.Scripts},
			{TypeDOMElement, vd.DOM},
			{TypeMetaTag, vd.Config},
			{TypeDynamicLoad, vd.Init},
			{TypeWebSocket, vd.Sockets},
		}

		for _, g := range groups {
			sigs, err := compileSignatures(vd.Name, g.typ, weight, g.exprs)
			if err != nil {
				return nil, err
			}

			vendor.Signatures = append(vendor.Signatures, sigs...)
		}

		if len(vendor.Signatures) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrEmptyVendor, vd.Name)
		}

		lib.Vendors = append(lib.Vendors, vendor)
	}

	generic := map[Type][]string{
		TypeDynamicLoad: def.Generic.DynamicLoad,
		TypeDOMElement:  def.Generic.DOM,
		TypeMetaTag:     def.Generic.Meta,
		TypeWebSocket:   def.Generic.WebSocket,
	}

	for typ, exprs := range generic {
		sigs, err := compileSignatures(GenericLabels[0], typ, defaultGenericWeight, exprs)
		if err != nil {
			return nil, err
		}

		lib.Generic[typ] = sigs
	}

	fp, err := compileSignatures("generic", TypeFalsePositive, 0, def.FalsePositiveContent)
	if err != nil {
		return nil, err
	}

	lib.FalsePositiveContent = fp

	for _, d := range def.FalsePositiveDomains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			lib.FalsePositiveDomains = append(lib.FalsePositiveDomains, d)
		}
	}

	lib.buildAliases()

	return lib, nil
}

// compileSignatures compiles expressions case-insensitively into signatures
func compileSignatures(label string, typ Type, weight float64, exprs []string) ([]Signature, error) {
	out := make([]Signature, 0, len(exprs))

	for _, expr := range exprs {
		re, err := regexp.Compile("(?i)" + expr)
		if err != nil {
			return nil, fmt.Errorf("%w: %s %s %q: %v", ErrInvalidPattern, label, typ, expr, err)
		}

		out = append(out, Signature{
			Label:   label,
			Pattern: re,
			Type:    typ,
			Weight:  weight,
		})
	}

	return out, nil
}

// appendUnique appends values from extra not already present in base
func appendUnique(base, extra []string) []string {
	out := append([]string{}, base...)

	seen := make(map[string]struct{}, len(out))
	for _, v := range out {
		seen[v] = struct{}{}
	}

	for _, v := range extra {
		if _, ok := seen[v]; ok {
			continue
		}

		seen[v] = struct{}{}
		out = append(out, v)
	}

	return out
}
