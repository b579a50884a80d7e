package runtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"pathway-engine/application/ports"
	"pathway-engine/domain/core/aggregates"
	"pathway-engine/domain/core/entities"
	"pathway-engine/domain/core/valueobjects"
	pkgerrors "pathway-engine/pkg/errors"
)

// Prompts longer than this are stored via the prompt endpoint and
// referenced by id instead of inlined in the pathway upload
const promptInlineLimit = 2000

// ClientConfig holds the runtime client settings
type ClientConfig struct {
	BaseURL        string
	APIKey         string
	RequestTimeout time.Duration
	CacheTTL       time.Duration
	RateLimit      int
	RateWindow     time.Duration
	MaxWaiting     int
	Retry          RetryPolicy
}

// DefaultClientConfig returns conservative client settings
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:        "https://api.bland.ai/v1",
		RequestTimeout: 30 * time.Second,
		CacheTTL:       30 * time.Second,
		RateLimit:      10,
		RateWindow:     time.Second,
		MaxWaiting:     100,
		Retry:          DefaultRetryPolicy(),
	}
}

// Client talks to the voice-agent runtime REST API. Every outbound call
// passes the rate limiter; transient failures retry with backoff; reads go
// through a TTL cache that mutations invalidate; and mutations to the same
// resource serialize behind a per-resource lock.
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
	limiter    *Limiter
	cache      ports.Cache
	locks      *mutationLocks
	logger     *zap.Logger
}

var _ ports.RuntimeClient = (*Client)(nil)

// NewClient creates a runtime client
func NewClient(cfg ClientConfig, cache ports.Cache, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cache == nil {
		cache = NewResourceCache()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
		limiter:    NewLimiter(cfg.RateLimit, cfg.RateWindow, cfg.MaxWaiting),
		cache:      cache,
		locks:      newMutationLocks(),
		logger:     logger,
	}
}

// CreatePathway uploads a new pathway and returns the runtime-assigned id
func (c *Client) CreatePathway(ctx context.Context, snapshot aggregates.PathwaySnapshot) (string, error) {
	wp := toWirePathway(snapshot)
	if err := c.storeLongPrompts(ctx, snapshot.Name, &wp); err != nil {
		return "", err
	}

	var resp pathwayCreateResponse
	if err := c.do(ctx, http.MethodPost, "/pathway/create", wp, &resp); err != nil {
		return "", err
	}
	if resp.PathwayID == "" {
		return "", pkgerrors.NewExternalError("runtime", fmt.Errorf("create pathway response missing id"))
	}
	return resp.PathwayID, nil
}

// UpdatePathway replaces the remote pathway's nodes and edges
func (c *Client) UpdatePathway(ctx context.Context, remoteID string, snapshot aggregates.PathwaySnapshot) error {
	unlock := c.locks.acquire(ports.ResourceKindPathway, remoteID)
	defer unlock()

	wp := toWirePathway(snapshot)
	if err := c.storeLongPrompts(ctx, snapshot.Name, &wp); err != nil {
		return err
	}

	if err := c.do(ctx, http.MethodPost, "/pathway/"+remoteID, wp, nil); err != nil {
		return err
	}
	return c.cache.Delete(ctx, CacheKey(ports.ResourceKindPathway, remoteID))
}

// GetPathway fetches a pathway, served from cache within the TTL
func (c *Client) GetPathway(ctx context.Context, remoteID string) (aggregates.PathwaySnapshot, error) {
	key := CacheKey(ports.ResourceKindPathway, remoteID)
	if cached, ok := c.cache.Get(ctx, key); ok {
		if snapshot, ok := cached.(aggregates.PathwaySnapshot); ok {
			return snapshot, nil
		}
	}

	var resp pathwayGetResponse
	if err := c.do(ctx, http.MethodGet, "/pathway/"+remoteID, nil, &resp); err != nil {
		return aggregates.PathwaySnapshot{}, err
	}
	snapshot := fromWirePathway(resp)
	if snapshot.ID == "" {
		snapshot.ID = remoteID
	}
	if err := c.cache.Set(ctx, key, snapshot, c.cfg.CacheTTL); err != nil {
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
	return snapshot, nil
}

// ListPathways lists the pathways known to the runtime
func (c *Client) ListPathways(ctx context.Context) ([]ports.PathwaySummary, error) {
	var resp pathwayListResponse
	if err := c.do(ctx, http.MethodGet, "/pathway", nil, &resp); err != nil {
		return nil, err
	}

	summaries := make([]ports.PathwaySummary, 0, len(resp.Pathways))
	for _, entry := range resp.Pathways {
		summary := ports.PathwaySummary{
			RemoteID:    entry.ID,
			Name:        entry.Name,
			Description: entry.Description,
			NodeCount:   entry.NodeCount,
			EdgeCount:   entry.EdgeCount,
		}
		if entry.UpdatedAt != "" {
			if ts, err := time.Parse(time.RFC3339, entry.UpdatedAt); err == nil {
				summary.UpdatedAt = ts
			}
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// CreateKnowledgeBase uploads a knowledge base and returns the
// runtime-assigned id
func (c *Client) CreateKnowledgeBase(ctx context.Context, kb *entities.KnowledgeBase) (string, error) {
	var resp knowledgeBaseResponse
	err := c.do(ctx, http.MethodPost, "/knowledge", wireKnowledgeBase{
		Name:        kb.Name(),
		Description: kb.Description(),
		Content:     kb.Content(),
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.KBID == "" {
		return "", pkgerrors.NewExternalError("runtime", fmt.Errorf("create knowledge base response missing id"))
	}
	return resp.KBID, nil
}

// GetKnowledgeBase fetches a knowledge base, served from cache within the
// TTL
func (c *Client) GetKnowledgeBase(ctx context.Context, remoteID string) (*ports.KnowledgeBaseResource, error) {
	key := CacheKey(ports.ResourceKindKnowledgeBase, remoteID)
	if cached, ok := c.cache.Get(ctx, key); ok {
		if resource, ok := cached.(*ports.KnowledgeBaseResource); ok {
			return resource, nil
		}
	}

	var resp knowledgeBaseGetResponse
	if err := c.do(ctx, http.MethodGet, "/knowledge/"+remoteID, nil, &resp); err != nil {
		return nil, err
	}
	resource := &ports.KnowledgeBaseResource{
		RemoteID:    remoteID,
		Name:        resp.Name,
		Description: resp.Description,
		Content:     resp.Content,
	}
	if err := c.cache.Set(ctx, key, resource, c.cfg.CacheTTL); err != nil {
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
	return resource, nil
}

// UpdateKnowledgeBase replaces a remote knowledge base's content
func (c *Client) UpdateKnowledgeBase(ctx context.Context, remoteID string, kb *entities.KnowledgeBase) error {
	unlock := c.locks.acquire(ports.ResourceKindKnowledgeBase, remoteID)
	defer unlock()

	err := c.do(ctx, http.MethodPatch, "/knowledge/"+remoteID, wireKnowledgeBase{
		Name:        kb.Name(),
		Description: kb.Description(),
		Content:     kb.Content(),
	}, nil)
	if err != nil {
		return err
	}
	return c.cache.Delete(ctx, CacheKey(ports.ResourceKindKnowledgeBase, remoteID))
}

// DeleteKnowledgeBase removes a knowledge base from the runtime
func (c *Client) DeleteKnowledgeBase(ctx context.Context, remoteID string) error {
	unlock := c.locks.acquire(ports.ResourceKindKnowledgeBase, remoteID)
	defer unlock()

	if err := c.do(ctx, http.MethodDelete, "/knowledge/"+remoteID, nil, nil); err != nil {
		return err
	}
	return c.cache.Delete(ctx, CacheKey(ports.ResourceKindKnowledgeBase, remoteID))
}

// CreatePrompt stores a voice prompt and returns its id
func (c *Client) CreatePrompt(ctx context.Context, name, text string) (valueobjects.PromptID, error) {
	var resp promptResponse
	if err := c.do(ctx, http.MethodPost, "/prompts", wirePrompt{Name: name, Prompt: text}, &resp); err != nil {
		return valueobjects.PromptID{}, err
	}
	return valueobjects.NewPromptIDFromString(resp.PromptID)
}

// GetPrompt fetches a stored prompt's text
func (c *Client) GetPrompt(ctx context.Context, id valueobjects.PromptID) (string, error) {
	key := CacheKey(ports.ResourceKindPrompt, id.String())
	if cached, ok := c.cache.Get(ctx, key); ok {
		if text, ok := cached.(string); ok {
			return text, nil
		}
	}

	var resp promptGetResponse
	if err := c.do(ctx, http.MethodGet, "/prompts/"+id.String(), nil, &resp); err != nil {
		return "", err
	}
	if err := c.cache.Set(ctx, key, resp.Prompt, c.cfg.CacheTTL); err != nil {
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
	return resp.Prompt, nil
}

// storeLongPrompts uploads oversized node prompts via the prompt endpoint
// and rewrites the wire nodes to reference them by id
func (c *Client) storeLongPrompts(ctx context.Context, pathwayName string, wp *wirePathway) error {
	for i, node := range wp.Nodes {
		if len(node.Prompt) <= promptInlineLimit {
			continue
		}
		promptID, err := c.CreatePrompt(ctx, fmt.Sprintf("%s - %s", pathwayName, node.Name), node.Prompt)
		if err != nil {
			return pkgerrors.Wrapf(err, "store prompt for node %s", node.ID)
		}
		wp.Nodes[i].PromptID = promptID.String()
		wp.Nodes[i].Prompt = ""
	}
	return nil
}

// do executes one API call, dispatching with retries on transient
// failures. Every attempt passes the rate limiter, so a retrying call
// re-queues for a token instead of skipping ahead of fresh callers.
// Cancellation is cooperative: a request still queued at the limiter or
// between attempts stops immediately, but once dispatched it runs to
// completion on a detached context.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(err, "encode request body")
		}
	}

	attempts, err := c.cfg.Retry.Do(ctx, method+" "+path, c.logger, func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return pkgerrors.NewTimeoutError(method + " " + path).WithCause(err)
		}
		if err := c.limiter.Acquire(ctx); err != nil {
			return err
		}
		reqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.RequestTimeout)
		defer cancel()
		return c.dispatch(reqCtx, method, path, payload, out)
	})
	if err != nil {
		c.logger.Error("runtime call failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
		return err
	}
	if attempts > 1 {
		c.logger.Info("runtime call recovered after retries",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("attempts", attempts),
		)
	}
	return nil
}

// dispatch performs a single HTTP round trip
func (c *Client) dispatch(ctx context.Context, method, path string, payload []byte, out interface{}) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return pkgerrors.Wrap(err, "build request")
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.NewNetworkError("request to runtime failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.statusError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return pkgerrors.NewExternalError("runtime", fmt.Errorf("decode response: %w", err))
		}
	}
	return nil
}

// statusError maps an HTTP failure to the error taxonomy. Throttling and
// server-side failures are transient; everything else is permanent.
func (c *Client) statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	message := runtimeMessage(body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return pkgerrors.NewUnauthorizedError(message)
	case resp.StatusCode == http.StatusNotFound:
		return pkgerrors.NewNotFoundError("runtime resource")
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		appErr := pkgerrors.NewExternalError("runtime", fmt.Errorf("%s", message))
		appErr.HTTPStatus = resp.StatusCode
		return appErr
	default:
		if message == "" {
			message = fmt.Sprintf("runtime rejected request with status %d", resp.StatusCode)
		}
		return pkgerrors.NewValidationError(message)
	}
}

// runtimeMessage extracts the error message from a runtime error body
func runtimeMessage(body []byte) string {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err != nil {
		return string(body)
	}
	if er.Message != "" {
		return er.Message
	}
	if len(er.Errors) > 0 {
		return er.Errors[0].Message
	}
	return string(body)
}
