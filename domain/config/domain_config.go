package config

import "errors"

// LinkPolicy controls what happens to a node's existing tool references
// when new knowledge bases are linked to it
type LinkPolicy string

const (
	// LinkPolicyReplace discards the node's previous tool list
	LinkPolicyReplace LinkPolicy = "replace"
	// LinkPolicyMerge appends to the node's previous tool list
	LinkPolicyMerge LinkPolicy = "merge"
)

// DomainConfig holds all configurable business rules and constraints
type DomainConfig struct {
	// Pathway constraints
	MaxNodesPerPathway int
	MaxEdgesPerPathway int
	MaxPromptLength    int
	MaxToolsPerNode    int

	// Builder defaults
	StartNodeName     string
	EndCallNodeName   string
	EndCallPrompt     string
	GlobalHandlerName string

	// Linking behavior
	ToolLinkPolicy LinkPolicy
	EnableAutoLink bool

	// Feature flags
	EnableGlobalFrustrationNode bool
	EnableStatsEndpoint         bool
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		MaxNodesPerPathway: 200,
		MaxEdgesPerPathway: 1000,
		MaxPromptLength:    20000,
		MaxToolsPerNode:    10,

		StartNodeName:     "Greeting",
		EndCallNodeName:   "End Call",
		EndCallPrompt:     "Thank you for your time. Goodbye!",
		GlobalHandlerName: "Frustration Handler",

		ToolLinkPolicy: LinkPolicyReplace,
		EnableAutoLink: true,

		EnableGlobalFrustrationNode: false,
		EnableStatsEndpoint:         true,
	}
}

// ProductionDomainConfig returns production-specific configuration
func ProductionDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()

	config.MaxNodesPerPathway = 100
	config.MaxPromptLength = 10000

	return config
}

// DevelopmentDomainConfig returns development-specific configuration
func DevelopmentDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()

	config.MaxNodesPerPathway = 1000
	config.MaxEdgesPerPathway = 5000
	config.EnableGlobalFrustrationNode = true

	return config
}

// LoadDomainConfig loads domain configuration based on environment
func LoadDomainConfig(environment string) *DomainConfig {
	switch environment {
	case "production":
		return ProductionDomainConfig()
	case "development":
		return DevelopmentDomainConfig()
	default:
		return DefaultDomainConfig()
	}
}

// Validate checks if the configuration is valid
func (c *DomainConfig) Validate() error {
	if c.MaxNodesPerPathway <= 0 || c.MaxEdgesPerPathway <= 0 {
		return errors.New("pathway size limits must be positive")
	}
	if c.ToolLinkPolicy != LinkPolicyReplace && c.ToolLinkPolicy != LinkPolicyMerge {
		return errors.New("tool link policy must be replace or merge")
	}
	return nil
}
