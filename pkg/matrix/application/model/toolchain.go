package model

import "path"

// ToolchainRule adds toolchain acquisition steps for every target triple matching Pattern.
type ToolchainRule struct {
	Pattern string
	Steps   []string
}

type ToolchainTable []ToolchainRule

// StepsFor returns the steps of every matching rule in declared order.
func (table ToolchainTable) StepsFor(targetTriple string) ([]string, error) {
	var steps []string
	for _, rule := range table {
		matched, err := path.Match(rule.Pattern, targetTriple)
		if err != nil {
			return nil, err
		}
		if matched {
			steps = append(steps, rule.Steps...)
		}
	}
	return steps, nil
}
