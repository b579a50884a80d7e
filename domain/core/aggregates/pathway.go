package aggregates

import (
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"pathway-engine/domain/core/entities"
	"pathway-engine/domain/core/valueobjects"
	"pathway-engine/domain/events"
)

// PathwayID represents a unique pathway identifier
type PathwayID string

// NewPathwayID creates a new random PathwayID
func NewPathwayID() PathwayID {
	return PathwayID(uuid.New().String())
}

// pathwayNamespace scopes ids derived from build input
var pathwayNamespace = uuid.MustParse("6f1c9b2e-8d4a-5e37-a1c0-4b2d7f9e3a58")

// DerivePathwayID returns the id deterministically assigned to a build
// seed. Rebuilding from the same source yields the same identity, which is
// what lets sync state carry across stateless processes.
func DerivePathwayID(seed string) PathwayID {
	return PathwayID(uuid.NewSHA1(pathwayNamespace, []byte(seed)).String())
}

// String returns the string representation
func (id PathwayID) String() string {
	return string(id)
}

// Pathway is the aggregate root for a dialogue graph. It owns the nodes and
// edges and is the consistency boundary for all structural changes.
type Pathway struct {
	id          PathwayID
	name        string
	description string
	nodes       map[valueobjects.NodeID]*entities.Node
	edges       map[valueobjects.EdgeID]*Edge
	createdAt   time.Time
	updatedAt   time.Time
	version     int
	events      []events.DomainEvent
}

// Edge is a directed transition between two nodes
type Edge struct {
	ID          valueobjects.EdgeID
	SourceID    valueobjects.NodeID
	TargetID    valueobjects.NodeID
	Label       string
	Condition   string
	Description string
	CreatedAt   time.Time
}

// Stats summarizes a pathway's shape
type Stats struct {
	NodeCount       int     `json:"node_count"`
	EdgeCount       int     `json:"edge_count"`
	MaxDepth        int     `json:"max_depth"`
	ComplexityScore float64 `json:"complexity_score"`
}

// NewPathway creates a new pathway aggregate with a random identity
func NewPathway(name, description string) (*Pathway, error) {
	return NewPathwayWithID(NewPathwayID(), name, description)
}

// NewPathwayWithID creates a new pathway aggregate under a caller-chosen
// identity, typically one derived from the build input
func NewPathwayWithID(id PathwayID, name, description string) (*Pathway, error) {
	if name == "" {
		return nil, errors.New("pathway name required")
	}
	if id == "" {
		return nil, errors.New("pathway id required")
	}

	now := time.Now()
	pathway := &Pathway{
		id:          id,
		name:        name,
		description: description,
		nodes:       make(map[valueobjects.NodeID]*entities.Node),
		edges:       make(map[valueobjects.EdgeID]*Edge),
		createdAt:   now,
		updatedAt:   now,
		version:     1,
		events:      []events.DomainEvent{},
	}

	pathway.addEvent(events.PathwayCreated{
		BaseEvent: events.BaseEvent{
			AggregateID: pathway.id.String(),
			EventType:   "pathway.created",
			Timestamp:   now,
			Version:     1,
		},
		PathwayID: pathway.id.String(),
		Name:      name,
	})

	return pathway, nil
}

// ReconstructPathway recreates a pathway from stored data
func ReconstructPathway(id, name, description string, createdAt, updatedAt time.Time) (*Pathway, error) {
	if id == "" || name == "" {
		return nil, errors.New("required fields missing for pathway reconstruction")
	}

	return &Pathway{
		id:          PathwayID(id),
		name:        name,
		description: description,
		nodes:       make(map[valueobjects.NodeID]*entities.Node),
		edges:       make(map[valueobjects.EdgeID]*Edge),
		createdAt:   createdAt,
		updatedAt:   updatedAt,
		version:     1,
		events:      []events.DomainEvent{},
	}, nil
}

// ID returns the pathway's unique identifier
func (p *Pathway) ID() PathwayID {
	return p.id
}

// Name returns the pathway's name
func (p *Pathway) Name() string {
	return p.name
}

// Description returns the pathway's description
func (p *Pathway) Description() string {
	return p.description
}

// CreatedAt returns when the pathway was created
func (p *Pathway) CreatedAt() time.Time {
	return p.createdAt
}

// UpdatedAt returns when the pathway was last updated
func (p *Pathway) UpdatedAt() time.Time {
	return p.updatedAt
}

// Rename updates the pathway's name and description
func (p *Pathway) Rename(name, description string) error {
	if name == "" {
		return errors.New("pathway name required")
	}
	p.name = name
	p.description = description
	p.touch()
	return nil
}

// AddNode adds a node to the pathway
func (p *Pathway) AddNode(node *entities.Node) error {
	if node == nil {
		return errors.New("node cannot be nil")
	}

	nodeID := node.ID()
	if _, exists := p.nodes[nodeID]; exists {
		return errors.New("node already exists in pathway")
	}
	if node.IsStart() {
		if start := p.findStart(); start != nil {
			return errors.New("pathway already has a start node")
		}
	}

	p.nodes[nodeID] = node
	p.touch()

	p.addEvent(events.NodeAdded{
		BaseEvent: events.BaseEvent{
			AggregateID: p.id.String(),
			EventType:   "pathway.node_added",
			Timestamp:   p.updatedAt,
			Version:     1,
		},
		PathwayID: p.id.String(),
		NodeID:    nodeID,
		Kind:      string(node.Kind()),
	})

	return nil
}

// Connect creates a labeled edge between two existing nodes
func (p *Pathway) Connect(edgeID valueobjects.EdgeID, sourceID, targetID valueobjects.NodeID, label, description string) (*Edge, error) {
	source, sourceExists := p.nodes[sourceID]
	target, targetExists := p.nodes[targetID]
	if !sourceExists || !targetExists {
		return nil, errors.New("both nodes must exist in pathway")
	}
	if sourceID.Equals(targetID) {
		return nil, errors.New("cannot connect node to itself")
	}
	if _, exists := p.edges[edgeID]; exists {
		return nil, errors.New("edge ID already in use")
	}
	// Global nodes sit outside the flow; the runtime reaches them by label
	if source.Kind() == entities.NodeKindGlobal || target.Kind() == entities.NodeKindGlobal {
		return nil, errors.New("global nodes cannot carry edges")
	}
	if source.Kind() == entities.NodeKindEndCall {
		return nil, errors.New("end call nodes cannot have outgoing edges")
	}

	edge := &Edge{
		ID:          edgeID,
		SourceID:    sourceID,
		TargetID:    targetID,
		Label:       label,
		Description: description,
		CreatedAt:   time.Now(),
	}
	p.edges[edgeID] = edge
	p.touch()

	p.addEvent(events.NodesConnected{
		BaseEvent: events.BaseEvent{
			AggregateID: p.id.String(),
			EventType:   "pathway.nodes_connected",
			Timestamp:   p.updatedAt,
			Version:     1,
		},
		PathwayID: p.id.String(),
		SourceID:  sourceID,
		TargetID:  targetID,
		Label:     label,
	})

	return edge, nil
}

// RemoveNode removes a node and every edge touching it
func (p *Pathway) RemoveNode(nodeID valueobjects.NodeID) error {
	if _, exists := p.nodes[nodeID]; !exists {
		return errors.New("node not found")
	}

	for id, edge := range p.edges {
		if edge.SourceID.Equals(nodeID) || edge.TargetID.Equals(nodeID) {
			delete(p.edges, id)
		}
	}
	delete(p.nodes, nodeID)
	p.touch()

	p.addEvent(events.NodeRemoved{
		BaseEvent: events.BaseEvent{
			AggregateID: p.id.String(),
			EventType:   "pathway.node_removed",
			Timestamp:   p.updatedAt,
			Version:     1,
		},
		PathwayID: p.id.String(),
		NodeID:    nodeID,
	})

	return nil
}

// GetNode retrieves a node by ID
func (p *Pathway) GetNode(nodeID valueobjects.NodeID) (*entities.Node, error) {
	node, exists := p.nodes[nodeID]
	if !exists {
		return nil, errors.New("node not found")
	}
	return node, nil
}

// HasNode checks if a node exists in the pathway
func (p *Pathway) HasNode(nodeID valueobjects.NodeID) bool {
	_, exists := p.nodes[nodeID]
	return exists
}

// Nodes returns the pathway's nodes sorted by id for deterministic iteration
func (p *Pathway) Nodes() []*entities.Node {
	nodes := make([]*entities.Node, 0, len(p.nodes))
	for _, node := range p.nodes {
		nodes = append(nodes, node)
	}
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].ID().String() < nodes[j].ID().String()
	})
	return nodes
}

// Edges returns the pathway's edges sorted by id for deterministic iteration
func (p *Pathway) Edges() []*Edge {
	edges := make([]*Edge, 0, len(p.edges))
	for _, edge := range p.edges {
		edges = append(edges, edge)
	}
	sort.Slice(edges, func(i, j int) bool {
		return edges[i].ID.String() < edges[j].ID.String()
	})
	return edges
}

// NodeCount returns the number of nodes
func (p *Pathway) NodeCount() int {
	return len(p.nodes)
}

// EdgeCount returns the number of edges
func (p *Pathway) EdgeCount() int {
	return len(p.edges)
}

// StartNode returns the pathway's entry node, if present
func (p *Pathway) StartNode() (*entities.Node, error) {
	start := p.findStart()
	if start == nil {
		return nil, errors.New("pathway has no start node")
	}
	return start, nil
}

// StartNodes returns every node claiming to be the entry point. More than
// one is a structural violation the validator reports.
func (p *Pathway) StartNodes() []*entities.Node {
	var starts []*entities.Node
	for _, node := range p.Nodes() {
		if node.IsStart() {
			starts = append(starts, node)
		}
	}
	return starts
}

// ReachableFromStart returns the set of node ids reachable from the start
// node by following edges forward
func (p *Pathway) ReachableFromStart() map[valueobjects.NodeID]bool {
	visited := make(map[valueobjects.NodeID]bool)
	start := p.findStart()
	if start == nil {
		return visited
	}

	adjacency := p.adjacency()
	queue := []valueobjects.NodeID{start.ID()}
	visited[start.ID()] = true
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range adjacency[current] {
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
	return visited
}

// ReachesTerminal reports whether a forward walk from the given node can
// reach a node where the call ends
func (p *Pathway) ReachesTerminal(nodeID valueobjects.NodeID) bool {
	node, exists := p.nodes[nodeID]
	if !exists {
		return false
	}
	if node.IsTerminal() {
		return true
	}

	adjacency := p.adjacency()
	visited := map[valueobjects.NodeID]bool{nodeID: true}
	queue := []valueobjects.NodeID{nodeID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range adjacency[current] {
			if visited[next] {
				continue
			}
			if n, ok := p.nodes[next]; ok && n.IsTerminal() {
				return true
			}
			visited[next] = true
			queue = append(queue, next)
		}
	}
	return false
}

// DetachKnowledgeBase removes a knowledge base reference from every node.
// Idempotent: detaching an unknown id touches nothing. Returns the number
// of nodes changed.
func (p *Pathway) DetachKnowledgeBase(kbID valueobjects.KnowledgeBaseID) int {
	touched := 0
	for _, node := range p.nodes {
		if node.RemoveTool(kbID) {
			touched++
		}
	}
	if touched > 0 {
		p.touch()
		p.addEvent(events.KnowledgeBaseDetached{
			BaseEvent: events.BaseEvent{
				AggregateID: p.id.String(),
				EventType:   "pathway.kb_detached",
				Timestamp:   p.updatedAt,
				Version:     1,
			},
			PathwayID:       p.id.String(),
			KnowledgeBaseID: kbID,
			NodesTouched:    touched,
		})
	}
	return touched
}

// RecordToolsLinked registers a tool change on a node as a domain event
func (p *Pathway) RecordToolsLinked(nodeID valueobjects.NodeID, toolIDs []valueobjects.KnowledgeBaseID) {
	ids := make([]string, len(toolIDs))
	for i, id := range toolIDs {
		ids[i] = id.String()
	}
	p.touch()
	p.addEvent(events.KnowledgeBaseLinked{
		BaseEvent: events.BaseEvent{
			AggregateID: p.id.String(),
			EventType:   "pathway.kb_linked",
			Timestamp:   p.updatedAt,
			Version:     1,
		},
		PathwayID: p.id.String(),
		NodeID:    nodeID,
		ToolIDs:   ids,
	})
}

// Stats computes shape statistics for the pathway
func (p *Pathway) Stats() Stats {
	stats := Stats{
		NodeCount: len(p.nodes),
		EdgeCount: len(p.edges),
		MaxDepth:  p.maxDepth(),
	}
	if stats.NodeCount > 0 {
		connectionsPerNode := float64(stats.EdgeCount) / float64(stats.NodeCount)
		score := 0.4*min(1.0, float64(stats.NodeCount)/100) +
			0.3*min(1.0, connectionsPerNode/5) +
			0.3*min(1.0, float64(stats.MaxDepth)/10)
		stats.ComplexityScore = float64(int(score*100+0.5)) / 100
	}
	return stats
}

// GetUncommittedEvents returns all uncommitted domain events
func (p *Pathway) GetUncommittedEvents() []events.DomainEvent {
	allEvents := make([]events.DomainEvent, len(p.events))
	copy(allEvents, p.events)
	return allEvents
}

// MarkEventsAsCommitted clears all uncommitted events
func (p *Pathway) MarkEventsAsCommitted() {
	p.events = []events.DomainEvent{}
}

// Private helper methods

func (p *Pathway) addEvent(event events.DomainEvent) {
	p.events = append(p.events, event)
}

func (p *Pathway) touch() {
	p.updatedAt = time.Now()
	p.version++
}

func (p *Pathway) findStart() *entities.Node {
	for _, node := range p.nodes {
		if node.IsStart() {
			return node
		}
	}
	return nil
}

func (p *Pathway) adjacency() map[valueobjects.NodeID][]valueobjects.NodeID {
	adjacency := make(map[valueobjects.NodeID][]valueobjects.NodeID, len(p.nodes))
	for _, edge := range p.edges {
		adjacency[edge.SourceID] = append(adjacency[edge.SourceID], edge.TargetID)
	}
	return adjacency
}

func (p *Pathway) maxDepth() int {
	start := p.findStart()
	if start == nil {
		return 0
	}

	adjacency := p.adjacency()
	visited := make(map[valueobjects.NodeID]bool)
	var dfs func(id valueobjects.NodeID, depth int) int
	dfs = func(id valueobjects.NodeID, depth int) int {
		if visited[id] {
			return depth
		}
		visited[id] = true
		maxChild := depth
		for _, next := range adjacency[id] {
			if d := dfs(next, depth+1); d > maxChild {
				maxChild = d
			}
		}
		return maxChild
	}
	return dfs(start.ID(), 0)
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
