package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"cantina/internal/catalog"
	"cantina/internal/constants"
	"cantina/internal/ratelimit"
	"cantina/internal/store"
	"cantina/internal/suggest"
	"cantina/internal/worddiff"
)

// registerTools registers all catalog MCP tools with the server.
func (s *Server) registerTools() error {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "catalog_search",
		Description: "Search catalog rows by substring, modified flag, or missing image",
	}, s.handleCatalogSearch)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "catalog_suggest",
		Description: "Rank existing descriptions as references for a row or free text",
	}, s.handleCatalogSuggest)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "catalog_diff",
		Description: "Render a word-level diff of two texts, or of a row's previous and current description",
	}, s.handleCatalogDiff)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "catalog_duplicates",
		Description: "Scan the catalog for pairs of rows with near-identical descriptions",
	}, s.handleCatalogDuplicates)

	return nil
}

// registerResources registers MCP resources for loading into context.
func (s *Server) registerResources() error {
	s.server.AddResource(&sdk.Resource{
		URI:         "cantina://catalog/summary",
		Name:        "cantina-catalog-summary",
		Description: "Current catalog counts: rows, modified rows, rows with images, recorded changes.",
		MIMEType:    "text/markdown",
	}, s.handleSummaryResource)

	return nil
}

// handleSummaryResource renders the catalog stats as a short markdown note.
func (s *Server) handleSummaryResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	stats, err := s.store.GetStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to collect stats: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("# Catalog Summary\n\n")
	if stats.TotalRows == 0 {
		sb.WriteString("The catalog is empty. Import rows with `cantina import`.\n")
	} else {
		sb.WriteString(fmt.Sprintf("- Rows: %d\n", stats.TotalRows))
		sb.WriteString(fmt.Sprintf("- Modified: %d\n", stats.ModifiedRows))
		sb.WriteString(fmt.Sprintf("- With image: %d\n", stats.RowsWithImage))
		sb.WriteString(fmt.Sprintf("- Recorded changes: %d\n", stats.Changes))
	}

	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{
			{
				URI:      "cantina://catalog/summary",
				MIMEType: "text/markdown",
				Text:     sb.String(),
			},
		},
	}, nil
}

func (s *Server) handleCatalogSearch(ctx context.Context, req *sdk.CallToolRequest, args CatalogSearchInput) (_ *sdk.CallToolResult, _ CatalogSearchOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("catalog_search", start, retErr, sanitizeParams(map[string]any{
			"contains": args.Contains, "modified_only": args.ModifiedOnly,
			"missing_image": args.MissingImage, "limit": args.Limit,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "catalog_search"); err != nil {
		return nil, CatalogSearchOutput{}, err
	}

	limit := args.Limit
	if limit <= 0 {
		limit = constants.DefaultSearchLimit
	}

	rows, err := s.store.ListRows(ctx, catalog.Filter{
		Contains:     args.Contains,
		ModifiedOnly: args.ModifiedOnly,
		MissingImage: args.MissingImage,
	})
	if err != nil {
		return nil, CatalogSearchOutput{}, fmt.Errorf("failed to list rows: %w", err)
	}

	count := len(rows)
	if len(rows) > limit {
		rows = rows[:limit]
	}

	summaries := make([]RowSummary, 0, len(rows))
	for _, r := range rows {
		summaries = append(summaries, RowSummary{
			Key:         r.Key,
			Description: r.Description,
			Refined:     r.Refined,
			Modified:    r.Modified,
			ImageURL:    r.ImageURL,
		})
	}

	return nil, CatalogSearchOutput{Rows: summaries, Count: count}, nil
}

func (s *Server) handleCatalogSuggest(ctx context.Context, req *sdk.CallToolRequest, args CatalogSuggestInput) (_ *sdk.CallToolResult, _ CatalogSuggestOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("catalog_suggest", start, retErr, sanitizeParams(map[string]any{
			"key": args.Key, "text": args.Text, "limit": args.Limit,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "catalog_suggest"); err != nil {
		return nil, CatalogSuggestOutput{}, err
	}

	if args.Key == "" && strings.TrimSpace(args.Text) == "" {
		return nil, CatalogSuggestOutput{}, fmt.Errorf("either key or text is required")
	}

	var row catalog.Row
	if args.Key != "" {
		found, err := s.store.GetRow(ctx, args.Key)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, CatalogSuggestOutput{}, s.notFoundError(ctx, args.Key)
			}
			return nil, CatalogSuggestOutput{}, fmt.Errorf("failed to load row: %w", err)
		}
		row = *found
	} else {
		// Free-text queries rank against a synthetic row; the empty key
		// means no stored row is excluded from the candidates.
		row = catalog.Row{Description: args.Text}
	}

	rows, err := s.store.ListRows(ctx, catalog.Filter{})
	if err != nil {
		return nil, CatalogSuggestOutput{}, fmt.Errorf("failed to list rows: %w", err)
	}

	engine := s.engine
	if args.Limit > 0 {
		engine = suggest.NewEngine(s.cfg.Schema(), args.Limit, s.cfg.Suggest.MinScore)
	}
	suggestions := engine.ForRow(row, rows)

	return nil, CatalogSuggestOutput{
		Query:       row.Description,
		Suggestions: suggestions,
		Count:       len(suggestions),
	}, nil
}

func (s *Server) handleCatalogDiff(ctx context.Context, req *sdk.CallToolRequest, args CatalogDiffInput) (_ *sdk.CallToolResult, _ CatalogDiffOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("catalog_diff", start, retErr, sanitizeParams(map[string]any{
			"old": args.Old, "new": args.New, "key": args.Key,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "catalog_diff"); err != nil {
		return nil, CatalogDiffOutput{}, err
	}

	oldText, newText := args.Old, args.New
	if args.Key != "" {
		if args.Old != "" || args.New != "" {
			return nil, CatalogDiffOutput{}, fmt.Errorf("key and old/new are mutually exclusive")
		}
		row, err := s.store.GetRow(ctx, args.Key)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, CatalogDiffOutput{}, s.notFoundError(ctx, args.Key)
			}
			return nil, CatalogDiffOutput{}, fmt.Errorf("failed to load row: %w", err)
		}
		oldText = row.Previous
		newText = row.Refined
		if newText == "" {
			newText = row.Description
		}
	}

	oldMarked, newMarked := worddiff.Diff(oldText, newText)

	return nil, CatalogDiffOutput{
		Old:       oldText,
		New:       newText,
		OldMarked: oldMarked,
		NewMarked: newMarked,
	}, nil
}

func (s *Server) handleCatalogDuplicates(ctx context.Context, req *sdk.CallToolRequest, args CatalogDuplicatesInput) (_ *sdk.CallToolResult, _ CatalogDuplicatesOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("catalog_duplicates", start, retErr, sanitizeParams(map[string]any{
			"threshold": args.Threshold, "limit": args.Limit,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "catalog_duplicates"); err != nil {
		return nil, CatalogDuplicatesOutput{}, err
	}

	threshold := args.Threshold
	if threshold <= 0 || threshold > 1.0 {
		threshold = s.cfg.Dedup.Threshold
	}

	rows, err := s.store.ListRows(ctx, catalog.Filter{})
	if err != nil {
		return nil, CatalogDuplicatesOutput{}, fmt.Errorf("failed to list rows: %w", err)
	}

	pairs := suggest.Duplicates(rows, threshold)
	count := len(pairs)
	if args.Limit > 0 && len(pairs) > args.Limit {
		pairs = pairs[:args.Limit]
	}

	return nil, CatalogDuplicatesOutput{
		Pairs:     pairs,
		Count:     count,
		Threshold: threshold,
	}, nil
}

// notFoundError builds a key lookup error, attaching near-miss alternatives
// when any stored key is close enough.
func (s *Server) notFoundError(ctx context.Context, key string) error {
	keys, err := s.store.Keys(ctx)
	if err == nil {
		if alts := suggest.DidYouMean(key, keys, 0); len(alts) > 0 {
			return fmt.Errorf("row not found: %s (did you mean %s?)", key, strings.Join(alts, ", "))
		}
	}
	return fmt.Errorf("row not found: %s", key)
}
