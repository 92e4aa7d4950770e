package out

import (
	"context"
	"fmt"

	"ragstream/internal/modules/corpus/domain"
	corpusout "ragstream/internal/modules/corpus/port/out"
	"ragstream/internal/platform/httpjson"
)

type statusResponse struct {
	Status        string `json:"status"`
	DocumentCount int    `json:"document_count"`
	HasDocuments  bool   `json:"has_documents"`
}

type searchRequest struct {
	SearchStr string `json:"search_str"`
	N         int    `json:"n"`
}

type searchResponse struct {
	Status  string `json:"status"`
	Results []struct {
		PageContent string         `json:"page_content"`
		Metadata    map[string]any `json:"metadata"`
	} `json:"results"`
}

type HTTPCorpusClient struct {
	client    *httpjson.Client
	statusURL string
	searchURL string
}

func NewHTTPCorpusClient(client *httpjson.Client, statusURL, searchURL string) corpusout.Client {
	return &HTTPCorpusClient{client: client, statusURL: statusURL, searchURL: searchURL}
}

func (c *HTTPCorpusClient) Status(ctx context.Context) (domain.Status, error) {
	var resp statusResponse
	if err := c.client.Get(ctx, c.statusURL, &resp); err != nil {
		return domain.Status{}, fmt.Errorf("vector status: %w", err)
	}
	return domain.Status{DocumentCount: resp.DocumentCount, HasDocuments: resp.HasDocuments}, nil
}

func (c *HTTPCorpusClient) Search(ctx context.Context, query string, n int) ([]domain.Passage, error) {
	var resp searchResponse
	if err := c.client.Post(ctx, c.searchURL, searchRequest{SearchStr: query, N: n}, &resp); err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	passages := make([]domain.Passage, 0, len(resp.Results))
	for _, r := range resp.Results {
		passages = append(passages, domain.Passage{Content: r.PageContent, Metadata: r.Metadata})
	}
	return passages, nil
}
