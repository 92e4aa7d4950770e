package out

import (
	"context"
	"fmt"

	ingestout "ragstream/internal/modules/ingest/port/out"
	"ragstream/internal/platform/httpjson"
)

type uploadRequest struct {
	FileData string `json:"file_data"`
}

type uploadResponse struct {
	Status      string   `json:"status"`
	UploadedIDs []string `json:"uploaded_ids"`
	ChunksCount int      `json:"chunks_count"`
}

type HTTPUploader struct {
	client   *httpjson.Client
	endpoint string
}

func NewHTTPUploader(client *httpjson.Client, endpoint string) ingestout.Uploader {
	return &HTTPUploader{client: client, endpoint: endpoint}
}

func (u *HTTPUploader) Upload(ctx context.Context, payload string) ([]string, error) {
	var resp uploadResponse
	if err := u.client.Post(ctx, u.endpoint, uploadRequest{FileData: payload}, &resp); err != nil {
		return nil, fmt.Errorf("upload document: %w", err)
	}
	return resp.UploadedIDs, nil
}
