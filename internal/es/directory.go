package es

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/Skotchmaster/meetsync/internal/models"
)

// Directory mirrors created meetings into a search index so members can
// look them up by title or organiser.
type Directory struct {
	ES    *elasticsearch.Client
	Index string
}

func NewDirectory(client *elasticsearch.Client, index string) *Directory {
	return &Directory{ES: client, Index: index}
}

func (d *Directory) IndexMeeting(ctx context.Context, m models.Meeting) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(m); err != nil {
		return fmt.Errorf("es: encode meeting: %w", err)
	}

	res, err := d.ES.Index(
		d.Index,
		&buf,
		d.ES.Index.WithContext(ctx),
		d.ES.Index.WithDocumentID(m.ID),
	)
	if err != nil {
		return fmt.Errorf("es: index meeting: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("es: index meeting returned %s: %s", res.Status(), body)
	}
	return nil
}

func (d *Directory) Search(ctx context.Context, query string, from, size int) (int64, []models.Meeting, error) {
	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"title^2", "createdByName"},
				"fuzziness": "AUTO",
			},
		},
		"sort": []any{map[string]any{"startsAt": map[string]any{"order": "desc"}}},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("es: encode query: %w", err)
	}

	res, err := d.ES.Search(
		d.ES.Search.WithContext(ctx),
		d.ES.Search.WithIndex(d.Index),
		d.ES.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("es: search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(res.Body)
		return 0, nil, fmt.Errorf("es: search returned %s: %s", res.Status(), msg)
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source models.Meeting `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, fmt.Errorf("es: decode search: %w", err)
	}

	meetings := make([]models.Meeting, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		meetings[i] = hit.Source
	}
	return r.Hits.Total.Value, meetings, nil
}
