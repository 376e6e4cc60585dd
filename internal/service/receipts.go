package service

import (
	"context"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/castlemilk/grocerylens/backend/internal/auth"
	"github.com/castlemilk/grocerylens/backend/internal/extraction"
	"github.com/castlemilk/grocerylens/backend/internal/receipt"
)

// loadOwnedReceipt fetches a receipt and checks the caller owns it.
func (s *ReceiptService) loadOwnedReceipt(ctx context.Context, receiptID string) (*receipt.Receipt, error) {
	if _, err := auth.RequireAuth(ctx); err != nil {
		return nil, err
	}
	if receiptID == "" {
		return nil, invalidArgument("receipt_id is required")
	}
	r, err := s.store.GetReceipt(ctx, receiptID)
	if err != nil {
		return nil, mapStoreError("get receipt", err)
	}
	if _, err := auth.RequireOwner(ctx, r.UserID); err != nil {
		return nil, err
	}
	return r, nil
}

// GetReceipt returns one of the caller's receipts.
func (s *ReceiptService) GetReceipt(ctx context.Context, req *connect.Request[GetReceiptRequest]) (*connect.Response[GetReceiptResponse], error) {
	r, err := s.loadOwnedReceipt(ctx, req.Msg.ReceiptID)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&GetReceiptResponse{Receipt: r}), nil
}

// ListReceipts lists the caller's receipts, newest first.
func (s *ReceiptService) ListReceipts(ctx context.Context, req *connect.Request[ListReceiptsRequest]) (*connect.Response[ListReceiptsResponse], error) {
	claims, err := auth.RequireAuth(ctx)
	if err != nil {
		return nil, err
	}
	start, end, err := parseDateRange(req.Msg.StartDate, req.Msg.EndDate)
	if err != nil {
		return nil, err
	}

	receipts, next, err := s.store.ListReceipts(ctx, claims.UID, start, end, auth.NormalizePageSize(req.Msg.PageSize), req.Msg.PageToken)
	if err != nil {
		return nil, mapStoreError("list receipts", err)
	}
	return connect.NewResponse(&ListReceiptsResponse{Receipts: receipts, NextPageToken: next}), nil
}

// UpdateReceipt replaces the header fields and items of a saved receipt.
// Owner, id and creation time are kept from the stored copy.
func (s *ReceiptService) UpdateReceipt(ctx context.Context, req *connect.Request[UpdateReceiptRequest]) (*connect.Response[UpdateReceiptResponse], error) {
	if req.Msg.Receipt == nil {
		return nil, invalidArgument("receipt is required")
	}
	existing, err := s.loadOwnedReceipt(ctx, req.Msg.Receipt.ID)
	if err != nil {
		return nil, err
	}

	r := req.Msg.Receipt
	r.CreatedAt = existing.CreatedAt
	s.prepareForSave(r, existing.UserID)

	if err := s.store.UpdateReceipt(ctx, r); err != nil {
		return nil, mapStoreError("update receipt", err)
	}
	return connect.NewResponse(&UpdateReceiptResponse{Receipt: r}), nil
}

// DeleteReceipt removes a saved receipt. Verified products learned from it
// are kept.
func (s *ReceiptService) DeleteReceipt(ctx context.Context, req *connect.Request[DeleteReceiptRequest]) (*connect.Response[DeleteReceiptResponse], error) {
	if _, err := s.loadOwnedReceipt(ctx, req.Msg.ReceiptID); err != nil {
		return nil, err
	}
	if err := s.store.DeleteReceipt(ctx, req.Msg.ReceiptID); err != nil {
		return nil, mapStoreError("delete receipt", err)
	}
	return connect.NewResponse(&DeleteReceiptResponse{}), nil
}

// UpdateReceiptItem replaces one item of a saved receipt.
func (s *ReceiptService) UpdateReceiptItem(ctx context.Context, req *connect.Request[UpdateReceiptItemRequest]) (*connect.Response[UpdateReceiptItemResponse], error) {
	item := req.Msg.Item
	if item == nil || item.ID == "" {
		return nil, invalidArgument("item with id is required")
	}
	if _, err := s.loadOwnedReceipt(ctx, req.Msg.ReceiptID); err != nil {
		return nil, err
	}

	item.Code = strings.TrimSpace(item.Code)
	item.IsDiscount = receipt.IsDiscount(item.Name, item.TotalPrice)
	if c := extraction.CanonicalCategory(item.Category); c != "" {
		item.Category = c
	}
	if err := s.store.UpdateReceiptItem(ctx, req.Msg.ReceiptID, item); err != nil {
		return nil, mapStoreError("update receipt item", err)
	}
	return connect.NewResponse(&UpdateReceiptItemResponse{Item: item}), nil
}

// DeleteReceiptItem removes one item of a saved receipt.
func (s *ReceiptService) DeleteReceiptItem(ctx context.Context, req *connect.Request[DeleteReceiptItemRequest]) (*connect.Response[DeleteReceiptItemResponse], error) {
	if req.Msg.ItemID == "" {
		return nil, invalidArgument("item_id is required")
	}
	if _, err := s.loadOwnedReceipt(ctx, req.Msg.ReceiptID); err != nil {
		return nil, err
	}
	if err := s.store.DeleteReceiptItem(ctx, req.Msg.ReceiptID, req.Msg.ItemID); err != nil {
		return nil, mapStoreError("delete receipt item", err)
	}
	return connect.NewResponse(&DeleteReceiptItemResponse{}), nil
}

// parseDateRange parses optional YYYY-MM-DD bounds.
func parseDateRange(startDate, endDate string) (*time.Time, *time.Time, error) {
	parse := func(field, v string) (*time.Time, error) {
		if v == "" {
			return nil, nil
		}
		t, err := time.Parse(receipt.ISODate, v)
		if err != nil {
			return nil, invalidArgument("%s must be YYYY-MM-DD", field)
		}
		return &t, nil
	}
	start, err := parse("start_date", startDate)
	if err != nil {
		return nil, nil, err
	}
	end, err := parse("end_date", endDate)
	if err != nil {
		return nil, nil, err
	}
	if start != nil && end != nil && end.Before(*start) {
		return nil, nil, invalidArgument("end_date is before start_date")
	}
	return start, end, nil
}
