// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"
)

const exportLimit = 100000

// Export writes every hit matching q to w as "yaml" or "json".
func (s *Store) Export(ctx context.Context, w io.Writer, q Query, format string) error {
	q.MaxResults = exportLimit
	hits, err := s.Search(ctx, q)
	if err != nil {
		return fmt.Errorf("querying for export: %w", err)
	}
	if hits == nil {
		hits = []Hit{}
	}

	var data []byte
	switch format {
	case "yaml", "":
		data, err = yaml.Marshal(hits)
	case "json":
		data, err = json.MarshalIndent(hits, "", "  ")
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", format, err)
	}
	_, err = w.Write(data)
	return err
}
