package effects

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Category groups effects in the catalog.
type Category struct {
	ID          string `mapstructure:"id" json:"id"`
	Name        string `mapstructure:"name" json:"name"`
	Slug        string `mapstructure:"slug" json:"slug"`
	Description string `mapstructure:"description" json:"description,omitempty"`
}

// Effect is a transformation the service can apply. The prompt behind it
// stays on the server.
type Effect struct {
	ID              string `mapstructure:"id" json:"id"`
	Name            string `mapstructure:"name" json:"name"`
	Slug            string `mapstructure:"slug" json:"slug"`
	CategoryName    string `mapstructure:"category_name" json:"category_name,omitempty"`
	UserDescription string `mapstructure:"user_description" json:"user_description,omitempty"`
	Thumbnail       string `mapstructure:"thumbnail" json:"thumbnail,omitempty"`
	IsPremium       bool   `mapstructure:"is_premium" json:"is_premium"`
}

// Catalog reads effect categories and effects.
type Catalog struct {
	transport *Transport
	endpoints Endpoints
}

// NewCatalog builds a Catalog that reads through transport.
func NewCatalog(transport *Transport, cfg Config) *Catalog {
	cfg = cfg.withDefaults()
	return &Catalog{transport: transport, endpoints: cfg.Endpoints}
}

// Categories lists every effect category.
func (c *Catalog) Categories(ctx context.Context) ([]Category, error) {
	var out []Category
	if err := c.list(ctx, "list_categories", c.endpoints.Categories, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Effects lists effects, optionally restricted to a category slug.
func (c *Catalog) Effects(ctx context.Context, category string) ([]Effect, error) {
	var query url.Values
	if category = strings.TrimSpace(category); category != "" {
		query = url.Values{"category": {category}}
	}
	var out []Effect
	if err := c.list(ctx, "list_effects", c.endpoints.Effects, query, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// list accepts both a bare JSON array and a paginated envelope with a
// results array.
func (c *Catalog) list(ctx context.Context, op, path string, query url.Values, out any) error {
	resp, err := c.transport.Send(ctx, Request{
		Operation: op,
		Method:    http.MethodGet,
		Path:      path,
		Query:     query,
	})
	if err != nil {
		return err
	}
	if resp.Empty() {
		return nil
	}
	if !resp.Structured() {
		return fmt.Errorf("effects: %s: %s", op, invalidFormatMessage)
	}
	items := resp.Value
	if fields := resp.Fields(); fields != nil {
		results, ok := fields["results"]
		if !ok {
			return fmt.Errorf("effects: %s: response has no results", op)
		}
		items = results
	}
	page := &Response{StatusCode: resp.StatusCode, Value: items}
	if items == nil {
		return nil
	}
	return page.Decode(out)
}
