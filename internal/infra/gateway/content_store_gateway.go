package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"

	"github.com/donatale/donatale/internal/domain"
	"github.com/donatale/donatale/internal/usecase"
)

const (
	defaultContentStoreURL = "https://site-api.datocms.com"
	defaultTimeout         = 10 * time.Second
	pageLimit              = 100
	itemTypesCacheKey      = "item-types"
)

// StatusError is a non-2xx answer of the content store.
type StatusError struct {
	StatusCode int
	Code       string
}

func (e *StatusError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("unexpected status code: %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status code: %d (%s)", e.StatusCode, e.Code)
}

type ContentStoreOptions struct {
	BaseURL       string
	APIToken      string
	Environment   string
	RelationField string
	UserAgent     string
	Timeout       time.Duration
	Transport     http.RoundTripper
}

// ContentStoreGateway talks to the DatoCMS content management API.
type ContentStoreGateway struct {
	client        *http.Client
	next          http.RoundTripper
	cache         *cache.Cache
	baseURL       string
	token         string
	environment   string
	relationField string
	userAgent     string
}

func NewContentStoreGateway(opts ContentStoreOptions) *ContentStoreGateway {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultContentStoreURL
	}
	relationField := opts.RelationField
	if relationField == "" {
		relationField = usecase.DefaultRelationField
	}
	next := opts.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = "donatale"
	}

	httpClient := http.Client{
		Timeout: timeout,
	}
	g := &ContentStoreGateway{
		client:        &httpClient,
		next:          next,
		cache:         cache.New(10*time.Minute, 15*time.Minute),
		baseURL:       baseURL,
		token:         opts.APIToken,
		environment:   opts.Environment,
		relationField: relationField,
		userAgent:     userAgent,
	}
	httpClient.Transport = g
	return g
}

func (g *ContentStoreGateway) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+g.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Api-Version", "3")
	req.Header.Set("User-Agent", g.userAgent)
	if g.environment != "" {
		req.Header.Set("X-Environment", g.environment)
	}
	if req.Body != nil {
		req.Header.Set("Content-Type", "application/vnd.api+json")
	}
	return g.next.RoundTrip(req)
}

type resourceRef struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

type relationship struct {
	Data *resourceRef `json:"data"`
}

type resource struct {
	ID            string                     `json:"id,omitempty"`
	Type          string                     `json:"type"`
	Attributes    map[string]json.RawMessage `json:"attributes,omitempty"`
	Relationships map[string]relationship    `json:"relationships,omitempty"`
}

type writeResource struct {
	ID            string                  `json:"id,omitempty"`
	Type          string                  `json:"type"`
	Attributes    map[string]any          `json:"attributes,omitempty"`
	Relationships map[string]relationship `json:"relationships,omitempty"`
}

type singleDocument struct {
	Data resource `json:"data"`
}

type listDocument struct {
	Data []resource `json:"data"`
	Meta struct {
		TotalCount int `json:"total_count"`
	} `json:"meta"`
}

type errorDocument struct {
	Data []struct {
		Attributes struct {
			Code string `json:"code"`
		} `json:"attributes"`
	} `json:"data"`
}

func (g *ContentStoreGateway) do(ctx context.Context, method, path string, body any, result any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to encode request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to perform request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{StatusCode: resp.StatusCode}
		var apiErr errorDocument
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && len(apiErr.Data) > 0 {
			statusErr.Code = apiErr.Data[0].Attributes.Code
		}
		return statusErr
	}

	if result == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return errors.Wrap(err, "failed to decode response")
	}
	return nil
}

// FindItem reads a single item; a 404 becomes domain.NotFoundError.
func (g *ContentStoreGateway) FindItem(ctx context.Context, id string) (domain.DonationItem, error) {
	var doc singleDocument
	err := g.do(ctx, http.MethodGet, "/items/"+url.PathEscape(id), nil, &doc)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return domain.DonationItem{}, domain.NotFoundError{Resource: "item " + id}
		}
		return domain.DonationItem{}, errors.Wrapf(err, "find item %s", id)
	}
	return g.toDonationItem(doc.Data), nil
}

// ListItemTypes returns the schema types of the project, cached in process.
func (g *ContentStoreGateway) ListItemTypes(ctx context.Context) ([]domain.ItemType, error) {
	if cached, found := g.cache.Get(itemTypesCacheKey); found {
		return cached.([]domain.ItemType), nil
	}

	var doc listDocument
	if err := g.do(ctx, http.MethodGet, "/item-types", nil, &doc); err != nil {
		return nil, errors.Wrap(err, "list item types")
	}

	types := make([]domain.ItemType, 0, len(doc.Data))
	for _, r := range doc.Data {
		types = append(types, domain.ItemType{
			ID:     r.ID,
			APIKey: stringAttr(r.Attributes, "api_key"),
			Name:   stringAttr(r.Attributes, "name"),
		})
	}
	g.cache.Set(itemTypesCacheKey, types, cache.DefaultExpiration)
	return types, nil
}

// CreateItem creates a record of the given type and returns the store-assigned id.
func (g *ContentStoreGateway) CreateItem(ctx context.Context, itemTypeID string, fields map[string]any) (string, error) {
	body := map[string]writeResource{
		"data": {
			Type:       "item",
			Attributes: fields,
			Relationships: map[string]relationship{
				"item_type": {Data: &resourceRef{ID: itemTypeID, Type: "item_type"}},
			},
		},
	}

	var doc singleDocument
	if err := g.do(ctx, http.MethodPost, "/items", body, &doc); err != nil {
		return "", errors.Wrap(err, "create item")
	}
	if doc.Data.ID == "" {
		return "", errors.New("create item: response carries no id")
	}
	return doc.Data.ID, nil
}

// UpdateItem changes only the given fields of an existing record.
func (g *ContentStoreGateway) UpdateItem(ctx context.Context, id string, fields map[string]any) error {
	body := map[string]writeResource{
		"data": {
			ID:         id,
			Type:       "item",
			Attributes: fields,
		},
	}
	if err := g.do(ctx, http.MethodPut, "/items/"+url.PathEscape(id), body, nil); err != nil {
		return errors.Wrapf(err, "update item %s", id)
	}
	return nil
}

// ListItems pages through every record of the given type.
func (g *ContentStoreGateway) ListItems(ctx context.Context, itemTypeKey string) ([]domain.DonationItem, error) {
	var items []domain.DonationItem
	for offset := 0; ; offset += pageLimit {
		query := url.Values{}
		query.Set("filter[type]", itemTypeKey)
		query.Set("page[limit]", fmt.Sprint(pageLimit))
		query.Set("page[offset]", fmt.Sprint(offset))

		var doc listDocument
		if err := g.do(ctx, http.MethodGet, "/items?"+query.Encode(), nil, &doc); err != nil {
			return nil, errors.Wrap(err, "list items")
		}
		for _, r := range doc.Data {
			item := g.toDonationItem(r)
			if uploadID := imageUploadID(r.Attributes); item.ImageURL == "" && uploadID != "" {
				item.ImageURL = g.uploadURL(ctx, uploadID)
			}
			items = append(items, item)
		}
		if len(doc.Data) < pageLimit || offset+len(doc.Data) >= doc.Meta.TotalCount {
			break
		}
	}
	return items, nil
}

// uploadURL resolves an asset id; a failure leaves the item without image.
func (g *ContentStoreGateway) uploadURL(ctx context.Context, uploadID string) string {
	cacheKey := "upload:" + uploadID
	if cached, found := g.cache.Get(cacheKey); found {
		return cached.(string)
	}

	var doc singleDocument
	if err := g.do(ctx, http.MethodGet, "/uploads/"+url.PathEscape(uploadID), nil, &doc); err != nil {
		return ""
	}
	u := stringAttr(doc.Data.Attributes, "url")
	g.cache.Set(cacheKey, u, cache.NoExpiration)
	return u
}

func (g *ContentStoreGateway) toDonationItem(r resource) domain.DonationItem {
	item := domain.DonationItem{
		ID:          r.ID,
		Title:       stringAttr(r.Attributes, "title"),
		PersonName:  stringAttr(r.Attributes, "person_name"),
		Description: stringAttr(r.Attributes, "description"),
		DonationID:  linkAttr(r.Attributes, g.relationField),
	}
	if raw, ok := r.Attributes["image"]; ok {
		var image struct {
			URL string `json:"url"`
		}
		if json.Unmarshal(raw, &image) == nil {
			item.ImageURL = image.URL
		}
	}
	return item
}

func stringAttr(attrs map[string]json.RawMessage, key string) string {
	raw, ok := attrs[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// linkAttr reads a single or multiple link field; null means unset.
func linkAttr(attrs map[string]json.RawMessage, key string) string {
	raw, ok := attrs[key]
	if !ok {
		return ""
	}
	var single string
	if json.Unmarshal(raw, &single) == nil {
		return single
	}
	var multiple []string
	if json.Unmarshal(raw, &multiple) == nil && len(multiple) > 0 {
		return multiple[0]
	}
	return ""
}

func imageUploadID(attrs map[string]json.RawMessage) string {
	raw, ok := attrs["image"]
	if !ok {
		return ""
	}
	var image struct {
		UploadID string `json:"upload_id"`
	}
	if json.Unmarshal(raw, &image) != nil {
		return ""
	}
	return image.UploadID
}

var _ usecase.ContentStore = (*ContentStoreGateway)(nil)
