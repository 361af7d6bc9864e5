package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/samply/directory-sync-service-sub000/internal/domain"
	"github.com/samply/directory-sync-service-sub000/pkg/platform/sentinel"
)

// RESTClient talks to the classic Molgenis REST API of the Directory.
type RESTClient struct {
	baseURL  string
	username string
	password string
	http     *http.Client
	token    string
}

// NewREST creates a REST client for the given Directory base URL.
func NewREST(baseURL, username, password string) *RESTClient {
	return &RESTClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		password: password,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

type restLoginResponse struct {
	Token string `json:"token"`
}

func (c *RESTClient) Login(ctx context.Context) error {
	body := map[string]string{"username": c.username, "password": c.password}
	var resp restLoginResponse
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/api/v1/login", body, &resp); err != nil {
		return fmt.Errorf("directory login: %w", err)
	}
	if resp.Token == "" {
		return fmt.Errorf("directory login: %w", sentinel.ErrUnauthorized)
	}
	c.token = resp.Token
	return nil
}

func (c *RESTClient) collectionsEndpoint() string {
	return c.baseURL + "/api/v2/eu_bbmri_eric_collections"
}

func (c *RESTClient) factsEndpoint(countryCode string) string {
	return fmt.Sprintf("%s/api/v2/eu_bbmri_eric_%s_facts", c.baseURL, countryCode)
}

type restItems[T any] struct {
	Items []T `json:"items"`
}

func (c *RESTClient) GetCollections(ctx context.Context, _ string, ids []string) ([]CollectionGet, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := url.Values{}
	q.Set("q", fmt.Sprintf("id=in=(%s)", strings.Join(ids, ",")))
	var resp restItems[CollectionGet]
	if err := c.do(ctx, http.MethodGet, c.collectionsEndpoint()+"?"+q.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("get collections: %w", err)
	}
	return resp.Items, nil
}

func (c *RESTClient) PutCollections(ctx context.Context, _ string, collections []CollectionPut) error {
	if len(collections) == 0 {
		return nil
	}
	body := map[string]any{"entities": collections}
	if err := c.do(ctx, http.MethodPut, c.collectionsEndpoint(), body, nil); err != nil {
		return fmt.Errorf("put collections: %w", err)
	}
	return nil
}

func (c *RESTClient) PutFacts(ctx context.Context, countryCode string, facts []domain.Fact) error {
	if len(facts) == 0 {
		return nil
	}
	if len(facts) > MaxFactBlockSize {
		return fmt.Errorf("fact block of %d exceeds limit of %d: %w",
			len(facts), MaxFactBlockSize, sentinel.ErrInvalidState)
	}
	body := map[string]any{"entities": facts}
	if err := c.do(ctx, http.MethodPost, c.factsEndpoint(countryCode), body, nil); err != nil {
		return fmt.Errorf("put facts: %w", err)
	}
	return nil
}

func (c *RESTClient) DeleteFacts(ctx context.Context, countryCode string, factIDs []string) error {
	if len(factIDs) == 0 {
		return nil
	}
	body := map[string]any{"entityIds": factIDs}
	if err := c.do(ctx, http.MethodDelete, c.factsEndpoint(countryCode), body, nil); err != nil {
		return fmt.Errorf("delete facts: %w", err)
	}
	return nil
}

func (c *RESTClient) FactIDPage(ctx context.Context, collectionID string, offset int) ([]string, error) {
	countryCode := CountryCode(collectionID)
	if countryCode == "" {
		return nil, fmt.Errorf("collection %q has no country segment: %w", collectionID, sentinel.ErrInvalidState)
	}
	q := url.Values{}
	q.Set("q", fmt.Sprintf("collection==%s", collectionID))
	q.Set("attrs", "id")
	q.Set("start", fmt.Sprintf("%d", offset))
	q.Set("num", fmt.Sprintf("%d", FactPageSize))
	var resp restItems[Ref]
	if err := c.do(ctx, http.MethodGet, c.factsEndpoint(countryCode)+"?"+q.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("fact id page: %w", err)
	}
	ids := make([]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		ids = append(ids, item.ID)
	}
	return ids, nil
}

func (c *RESTClient) GetBiobank(ctx context.Context, id string) (*Biobank, error) {
	q := url.Values{}
	q.Set("q", fmt.Sprintf("id==%s", id))
	var resp restItems[Biobank]
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/api/v2/eu_bbmri_eric_biobanks?"+q.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("get biobank: %w", err)
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("biobank %s: %w", id, sentinel.ErrNotFound)
	}
	return &resp.Items[0], nil
}

// do sends one JSON request, attaching the session token when present, and
// decodes the response into out when non-nil.
func (c *RESTClient) do(ctx context.Context, method, rawURL string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("x-molgenis-token", c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return sentinel.ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return sentinel.ErrNotFound
	case resp.StatusCode >= 400:
		return fmt.Errorf("directory returned status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
