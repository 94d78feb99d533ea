package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"poi-recommender/internal/common/errors"
	"poi-recommender/internal/common/logger"
	"poi-recommender/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// HistoryStore writes completed searches to Elasticsearch and reads them
// back time-sorted per user. Writes are best-effort from the caller's point
// of view; the store itself still reports failures.
type HistoryStore struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewHistoryStore(client *elasticsearch.Client, index string, log logger.Logger) *HistoryStore {
	if index == "" {
		index = "search-history"
	}
	return &HistoryStore{
		client: client,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"store": "history"}),
	}
}

// Append indexes one history entry keyed by its search id.
func (s *HistoryStore) Append(ctx context.Context, entry models.SearchHistory) error {
	body, err := json.Marshal(entry)
	if err != nil {
		return errors.NewPersistenceFailedError("history append", err)
	}

	req := esapi.IndexRequest{
		Index:      s.index,
		DocumentID: entry.SearchID,
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return errors.NewPersistenceFailedError("history append", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return errors.NewPersistenceFailedError("history append",
			fmt.Errorf("index response %s", res.Status()))
	}
	return nil
}

// ListByUser returns a user's searches, newest first.
func (s *HistoryStore) ListByUser(ctx context.Context, userID string, limit int) ([]models.SearchHistory, error) {
	if limit < 1 {
		limit = 20
	}

	query := map[string]interface{}{
		"size": limit,
		"query": map[string]interface{}{
			"term": map[string]interface{}{
				"userId": userID,
			},
		},
		"sort": []map[string]interface{}{
			{"timestamp": map[string]interface{}{"order": "desc"}},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, errors.NewPersistenceFailedError("history list", err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, errors.NewPersistenceFailedError("history list", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		// A missing index just means nothing has been logged yet.
		if res.StatusCode == 404 {
			return []models.SearchHistory{}, nil
		}
		return nil, errors.NewPersistenceFailedError("history list",
			fmt.Errorf("search response %s", res.Status()))
	}

	return decodeHistoryHits(res.Body)
}

// DeleteOlderThan removes history entries past the retention cutoff.
func (s *HistoryStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := fmt.Sprintf(
		`{"query":{"range":{"timestamp":{"lt":%q}}}}`,
		cutoff.UTC().Format(time.RFC3339),
	)

	res, err := s.client.DeleteByQuery(
		[]string{s.index},
		strings.NewReader(query),
		s.client.DeleteByQuery.WithContext(ctx),
	)
	if err != nil {
		return 0, errors.NewPersistenceFailedError("history retention delete", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		if res.StatusCode == 404 {
			return 0, nil
		}
		return 0, errors.NewPersistenceFailedError("history retention delete",
			fmt.Errorf("delete_by_query response %s", res.Status()))
	}

	var result struct {
		Deleted int64 `json:"deleted"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return 0, errors.NewPersistenceFailedError("history retention delete", err)
	}
	return result.Deleted, nil
}

func decodeHistoryHits(body io.Reader) ([]models.SearchHistory, error) {
	var envelope struct {
		Hits struct {
			Hits []struct {
				Source models.SearchHistory `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(body).Decode(&envelope); err != nil {
		return nil, errors.NewPersistenceFailedError("history list", err)
	}

	entries := make([]models.SearchHistory, 0, len(envelope.Hits.Hits))
	for _, hit := range envelope.Hits.Hits {
		entries = append(entries, hit.Source)
	}
	return entries, nil
}
