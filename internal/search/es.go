package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/eisbar/shop/internal/logging"
	"github.com/eisbar/shop/internal/models"
)

const ItemIndex = "items"

type Client struct {
	ES    *elasticsearch.Client
	Index string
}

func NewClient(url, user, password string) (*Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{url},
		Username:  user,
		Password:  password,
	})
	if err != nil {
		return nil, fmt.Errorf("es client: %w", err)
	}

	res, err := es.Info()
	if err != nil {
		return nil, fmt.Errorf("es info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("es error: %s: %s", res.Status(), body)
	}

	return &Client{ES: es, Index: ItemIndex}, nil
}

// IndexItem is best-effort: catalog writes go through even when the index is
// behind.
func (c *Client) IndexItem(ctx context.Context, item *models.Item) {
	data, err := json.Marshal(item)
	if err != nil {
		logging.FromContext(ctx).Warn("es_index_failed", "item_id", item.ID, "error", err)
		return
	}

	res, err := c.ES.Index(
		c.Index,
		bytes.NewReader(data),
		c.ES.Index.WithContext(ctx),
		c.ES.Index.WithDocumentID(strconv.FormatUint(uint64(item.ID), 10)),
	)
	if err != nil {
		logging.FromContext(ctx).Warn("es_index_failed", "item_id", item.ID, "error", err)
		return
	}
	defer res.Body.Close()
	if res.IsError() {
		logging.FromContext(ctx).Warn("es_index_failed", "item_id", item.ID, "status", res.Status())
	}
}

func (c *Client) DeleteItem(ctx context.Context, id uint) {
	res, err := c.ES.Delete(
		c.Index,
		strconv.FormatUint(uint64(id), 10),
		c.ES.Delete.WithContext(ctx),
	)
	if err != nil {
		logging.FromContext(ctx).Warn("es_delete_failed", "item_id", id, "error", err)
		return
	}
	res.Body.Close()
}

func (c *Client) SearchItems(ctx context.Context, query string, from, size int) (int64, []models.Item, error) {
	body := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     query,
				"fields":    []string{"name^2", "description"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("search encode: %w", err)
	}

	res, err := c.ES.Search(
		c.ES.Search.WithContext(ctx),
		c.ES.Search.WithIndex(c.Index),
		c.ES.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, fmt.Errorf("search: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source models.Item `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, err
	}

	items := make([]models.Item, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		items[i] = hit.Source
	}
	return r.Hits.Total.Value, items, nil
}
