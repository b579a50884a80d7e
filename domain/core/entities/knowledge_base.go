package entities

import (
	"strings"
	"time"

	"pathway-engine/domain/core/valueobjects"
	pkgerrors "pathway-engine/pkg/errors"
)

// KnowledgeBase holds reference material a pathway node can consult at
// call time. Content is opaque to the engine; tags drive auto-linking.
type KnowledgeBase struct {
	id          valueobjects.KnowledgeBaseID
	name        string
	description string
	content     string
	tags        []string
	createdAt   time.Time
	updatedAt   time.Time
}

// NewKnowledgeBase creates a knowledge base entity
func NewKnowledgeBase(name, description, content string, tags []string) (*KnowledgeBase, error) {
	if strings.TrimSpace(name) == "" {
		return nil, pkgerrors.NewValidationError("knowledge base requires a name")
	}
	if strings.TrimSpace(content) == "" {
		return nil, pkgerrors.NewValidationError("knowledge base requires content")
	}

	now := time.Now()
	return &KnowledgeBase{
		id:          valueobjects.NewKnowledgeBaseID(),
		name:        name,
		description: description,
		content:     content,
		tags:        normalizeTags(tags),
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

// ReconstructKnowledgeBase recreates a knowledge base from stored data
func ReconstructKnowledgeBase(
	id valueobjects.KnowledgeBaseID,
	name, description, content string,
	tags []string,
	createdAt, updatedAt time.Time,
) *KnowledgeBase {
	return &KnowledgeBase{
		id:          id,
		name:        name,
		description: description,
		content:     content,
		tags:        normalizeTags(tags),
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

// ID returns the knowledge base's identifier
func (kb *KnowledgeBase) ID() valueobjects.KnowledgeBaseID {
	return kb.id
}

// Name returns the knowledge base's name
func (kb *KnowledgeBase) Name() string {
	return kb.name
}

// Description returns the knowledge base's description
func (kb *KnowledgeBase) Description() string {
	return kb.description
}

// Content returns the raw reference material
func (kb *KnowledgeBase) Content() string {
	return kb.content
}

// Tags returns a copy of the knowledge base's tags
func (kb *KnowledgeBase) Tags() []string {
	return append([]string(nil), kb.tags...)
}

// CreatedAt returns when the knowledge base was created
func (kb *KnowledgeBase) CreatedAt() time.Time {
	return kb.createdAt
}

// UpdatedAt returns when the knowledge base was last modified
func (kb *KnowledgeBase) UpdatedAt() time.Time {
	return kb.updatedAt
}

// UpdateContent replaces the reference material and bumps updatedAt
func (kb *KnowledgeBase) UpdateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return pkgerrors.NewValidationError("knowledge base content cannot be empty")
	}
	kb.content = content
	kb.updatedAt = time.Now()
	return nil
}

// UpdateTags replaces the tag set and bumps updatedAt
func (kb *KnowledgeBase) UpdateTags(tags []string) {
	kb.tags = normalizeTags(tags)
	kb.updatedAt = time.Now()
}

// MatchesPrompt reports whether any tag occurs in the given prompt text.
// Matching is case-insensitive on whole tag substrings.
func (kb *KnowledgeBase) MatchesPrompt(prompt string) bool {
	if prompt == "" {
		return false
	}
	lower := strings.ToLower(prompt)
	for _, tag := range kb.tags {
		if strings.Contains(lower, tag) {
			return true
		}
	}
	return false
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		t := strings.ToLower(strings.TrimSpace(tag))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
