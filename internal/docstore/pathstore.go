package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgallion1/docread/internal/document"
	"github.com/dgallion1/docread/internal/pathstore"
)

// PathstoreRepo stores each document as one pathstore node under
// "<prefix>/<id>".
type PathstoreRepo struct {
	client *pathstore.Client
	prefix string
}

func NewPathstoreRepo(client *pathstore.Client, prefix string) *PathstoreRepo {
	if prefix == "" {
		prefix = "docread/documents"
	}
	return &PathstoreRepo{client: client, prefix: prefix}
}

func (r *PathstoreRepo) key(id string) string {
	return r.prefix + "/" + id
}

func (r *PathstoreRepo) Save(ctx context.Context, id string, doc *document.Document) error {
	return r.client.PutNode(ctx, r.key(id), pathstore.NodeRequest{
		Value:  doc,
		Source: "docread:" + id,
	})
}

func (r *PathstoreRepo) Get(ctx context.Context, id string) (*document.Document, error) {
	node, err := r.client.GetNode(ctx, r.key(id))
	if errors.Is(err, pathstore.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var doc document.Document
	if err := json.Unmarshal(node.Value, &doc); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", id, err)
	}
	return &doc, nil
}

func (r *PathstoreRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	return r.client.DeleteNode(ctx, r.key(id), true)
}
