package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/samply/directory-sync-service-sub000/internal/domain"
	"github.com/samply/directory-sync-service-sub000/pkg/platform/sentinel"
)

// GraphQLClient talks to an EMX2-based Directory over its GraphQL API.
// Session tokens are JWTs; expiry is read from the unverified claims so the
// client can re-login instead of failing mid-sequence. One client is shared
// across the per-collection fan-out, so the session fields are guarded.
type GraphQLClient struct {
	baseURL  string
	email    string
	password string
	schema   string
	http     *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewGraphQL creates an EMX2 GraphQL client. schema is the Directory database
// schema name, e.g. "ERIC".
func NewGraphQL(baseURL, email, password, schema string) *GraphQLClient {
	return &GraphQLClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		email:    email,
		password: password,
		schema:   schema,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (c *GraphQLClient) Login(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.signinLocked(ctx)
}

// signinLocked performs the signin mutation. Callers must hold c.mu.
func (c *GraphQLClient) signinLocked(ctx context.Context) error {
	const query = `mutation($email: String, $password: String) {
		signin(email: $email, password: $password) { status message token }
	}`
	var out struct {
		Signin struct {
			Status  string `json:"status"`
			Message string `json:"message"`
			Token   string `json:"token"`
		} `json:"signin"`
	}
	err := c.query(ctx, c.baseURL+"/api/graphql", "", query,
		map[string]any{"email": c.email, "password": c.password}, &out)
	if err != nil {
		return fmt.Errorf("directory signin: %w", err)
	}
	if out.Signin.Status != "SUCCESS" || out.Signin.Token == "" {
		return fmt.Errorf("directory signin: %s: %w", out.Signin.Message, sentinel.ErrUnauthorized)
	}
	c.token = out.Signin.Token
	c.tokenExpiry = tokenExpiry(out.Signin.Token)
	return nil
}

// tokenExpiry reads the exp claim without verifying the signature; the client
// only needs to know when to re-login, trust comes from the TLS channel.
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// sessionToken returns the current token, re-logging in first when it is
// missing or about to expire. Concurrent callers refresh at most once.
func (c *GraphQLClient) sessionToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && (c.tokenExpiry.IsZero() || time.Until(c.tokenExpiry) > time.Minute) {
		return c.token, nil
	}
	if err := c.signinLocked(ctx); err != nil {
		return "", err
	}
	return c.token, nil
}

func (c *GraphQLClient) schemaEndpoint() string {
	return c.baseURL + "/" + c.schema + "/api/graphql"
}

func (c *GraphQLClient) GetCollections(ctx context.Context, _ string, ids []string) ([]CollectionGet, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	token, err := c.sessionToken(ctx)
	if err != nil {
		return nil, err
	}
	const query = `query($ids: [String]) {
		Collections(filter: { id: { equals: $ids } }) {
			id name description
			contact { id } country { id } biobank { id }
			type { id } data_categories { id } network { id }
		}
	}`
	var out struct {
		Collections []CollectionGet `json:"Collections"`
	}
	if err := c.query(ctx, c.schemaEndpoint(), token, query, map[string]any{"ids": ids}, &out); err != nil {
		return nil, fmt.Errorf("get collections: %w", err)
	}
	return out.Collections, nil
}

func (c *GraphQLClient) PutCollections(ctx context.Context, _ string, collections []CollectionPut) error {
	if len(collections) == 0 {
		return nil
	}
	token, err := c.sessionToken(ctx)
	if err != nil {
		return err
	}
	const query = `mutation($entities: [CollectionsInput]) {
		update(Collections: $entities) { status message }
	}`
	if err := c.mutate(ctx, token, query, map[string]any{"entities": collections}); err != nil {
		return fmt.Errorf("put collections: %w", err)
	}
	return nil
}

func (c *GraphQLClient) PutFacts(ctx context.Context, _ string, facts []domain.Fact) error {
	if len(facts) == 0 {
		return nil
	}
	if len(facts) > MaxFactBlockSize {
		return fmt.Errorf("fact block of %d exceeds limit of %d: %w",
			len(facts), MaxFactBlockSize, sentinel.ErrInvalidState)
	}
	token, err := c.sessionToken(ctx)
	if err != nil {
		return err
	}
	const query = `mutation($entities: [CollectionFactsInput]) {
		update(CollectionFacts: $entities) { status message }
	}`
	if err := c.mutate(ctx, token, query, map[string]any{"entities": facts}); err != nil {
		return fmt.Errorf("put facts: %w", err)
	}
	return nil
}

func (c *GraphQLClient) DeleteFacts(ctx context.Context, _ string, factIDs []string) error {
	if len(factIDs) == 0 {
		return nil
	}
	token, err := c.sessionToken(ctx)
	if err != nil {
		return err
	}
	entities := make([]map[string]string, 0, len(factIDs))
	for _, id := range factIDs {
		entities = append(entities, map[string]string{"id": id})
	}
	const query = `mutation($entities: [CollectionFactsInput]) {
		delete(CollectionFacts: $entities) { status message }
	}`
	if err := c.mutate(ctx, token, query, map[string]any{"entities": entities}); err != nil {
		return fmt.Errorf("delete facts: %w", err)
	}
	return nil
}

func (c *GraphQLClient) FactIDPage(ctx context.Context, collectionID string, offset int) ([]string, error) {
	token, err := c.sessionToken(ctx)
	if err != nil {
		return nil, err
	}
	const query = `query($collection: String, $offset: Int, $limit: Int) {
		CollectionFacts(
			filter: { collection: { id: { equals: [$collection] } } }
			offset: $offset, limit: $limit
		) { id }
	}`
	var out struct {
		CollectionFacts []Ref `json:"CollectionFacts"`
	}
	vars := map[string]any{"collection": collectionID, "offset": offset, "limit": FactPageSize}
	if err := c.query(ctx, c.schemaEndpoint(), token, query, vars, &out); err != nil {
		return nil, fmt.Errorf("fact id page: %w", err)
	}
	ids := make([]string, 0, len(out.CollectionFacts))
	for _, ref := range out.CollectionFacts {
		ids = append(ids, ref.ID)
	}
	return ids, nil
}

func (c *GraphQLClient) GetBiobank(ctx context.Context, id string) (*Biobank, error) {
	token, err := c.sessionToken(ctx)
	if err != nil {
		return nil, err
	}
	const query = `query($ids: [String]) {
		Biobanks(filter: { id: { equals: $ids } }) {
			id name acronym description url juridical_person contact_email capabilities
		}
	}`
	var out struct {
		Biobanks []Biobank `json:"Biobanks"`
	}
	if err := c.query(ctx, c.schemaEndpoint(), token, query, map[string]any{"ids": []string{id}}, &out); err != nil {
		return nil, fmt.Errorf("get biobank: %w", err)
	}
	if len(out.Biobanks) == 0 {
		return nil, fmt.Errorf("biobank %s: %w", id, sentinel.ErrNotFound)
	}
	return &out.Biobanks[0], nil
}

func (c *GraphQLClient) mutate(ctx context.Context, token, query string, vars map[string]any) error {
	var out struct {
		Update struct {
			Status string `json:"status"`
		} `json:"update"`
	}
	return c.query(ctx, c.schemaEndpoint(), token, query, vars, &out)
}

func (c *GraphQLClient) query(ctx context.Context, endpoint, token, query string, vars map[string]any, out any) error {
	encoded, err := json.Marshal(graphqlRequest{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("x-molgenis-token", token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return sentinel.ErrUnauthorized
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("directory returned status %d", resp.StatusCode)
	}

	var envelope graphqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		return fmt.Errorf("graphql: %s", envelope.Errors[0].Message)
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}
