package service

import (
	"context"
	"strings"

	"connectrpc.com/connect"
	"github.com/castlemilk/grocerylens/backend/internal/auth"
	"github.com/castlemilk/grocerylens/backend/internal/search"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// SearchProducts looks products up in the verified catalogue.
func (s *ReceiptService) SearchProducts(ctx context.Context, req *connect.Request[SearchProductsRequest]) (*connect.Response[SearchProductsResponse], error) {
	if _, err := auth.RequireAuth(ctx); err != nil {
		return nil, err
	}
	if s.products == nil {
		return nil, connect.NewError(connect.CodeUnavailable, eris.New("product search is not configured"))
	}
	query := strings.TrimSpace(req.Msg.Query)
	if query == "" {
		return nil, invalidArgument("query is required")
	}

	hits, err := s.products.Search(ctx, search.SearchParams{
		Query:     query,
		StoreName: req.Msg.StoreName,
		Category:  req.Msg.Category,
		PageSize:  req.Msg.PageSize,
	})
	if err != nil {
		zap.L().Warn("product search failed", zap.String("query", query), zap.Error(err))
		return nil, connect.NewError(connect.CodeUnavailable, err)
	}
	return connect.NewResponse(&SearchProductsResponse{Products: hits}), nil
}
