package enums

import "fmt"

// DistributionPolicy governs how pooled community surplus is split among consumers.
type DistributionPolicy string

const (
	DistributionPolicyProrata  DistributionPolicy = "prorata"
	DistributionPolicyEqual    DistributionPolicy = "equal"
	DistributionPolicyPriority DistributionPolicy = "priority"
)

var validDistributionPolicies = []DistributionPolicy{
	DistributionPolicyProrata,
	DistributionPolicyEqual,
	DistributionPolicyPriority,
}

// String implements fmt.Stringer.
func (d DistributionPolicy) String() string {
	return string(d)
}

// IsValid reports whether the value is known.
func (d DistributionPolicy) IsValid() bool {
	for _, candidate := range validDistributionPolicies {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDistributionPolicy converts raw input into a DistributionPolicy.
func ParseDistributionPolicy(value string) (DistributionPolicy, error) {
	for _, candidate := range validDistributionPolicies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid distribution policy %q", value)
}
