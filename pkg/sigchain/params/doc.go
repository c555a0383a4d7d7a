/*
Package params provides ordered parameter sets for processing nodes.

# Overview

A Set holds the parameters of one processing node as ordered key/value
pairs. Values are stored as text, exactly as they appear in a persisted
document, and typed accessor methods convert on read. Missing keys and
values that cannot be converted return the caller's default.

# Basic Usage

	p := params.New(
	    params.Param{Key: "low_cut", Value: "300"},
	    params.Param{Key: "high_cut", Value: "6000"},
	    params.Param{Key: "enabled", Value: "true"},
	)

	low := p.Float("low_cut", 1)       // 300
	enabled := p.Bool("enabled", false) // true
	order := p.Int("order", 2)          // 2 (missing)

	p = p.Put("order", "4") // returns a modified copy

# File Loading

	p, err := params.FromFile("filter.yaml")
	p, err = params.FromYAML(yamlBytes)
	p, err = params.FromJSON(jsonBytes)

YAML keeps the document order. JSON objects are unordered, so their keys
are sorted.
*/
package params
