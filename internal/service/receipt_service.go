package service

import (
	"context"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/castlemilk/grocerylens/backend/internal/auth"
	"github.com/castlemilk/grocerylens/backend/internal/extraction"
	"github.com/castlemilk/grocerylens/backend/internal/receipt"
	"github.com/castlemilk/grocerylens/backend/internal/reconcile"
	"github.com/castlemilk/grocerylens/backend/internal/search"
	"github.com/castlemilk/grocerylens/backend/internal/store"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Extractor turns an uploaded image into a normalized extraction.
type Extractor interface {
	Extract(ctx context.Context, ref extraction.ImageRef) (*extraction.Extraction, error)
}

// Reconciler annotates raw OCR items.
type Reconciler interface {
	Reconcile(ctx context.Context, raw []receipt.RawItem, storeChain string) []receipt.Item
}

// ProductLearner writes approved items back to the verified product store.
type ProductLearner interface {
	Learn(ctx context.Context, items []receipt.Item, storeChain, actor string) reconcile.LearnResult
}

// ProductSearcher looks products up in the catalogue index.
type ProductSearcher interface {
	Search(ctx context.Context, params search.SearchParams) ([]search.ProductHit, error)
}

// ReceiptService implements the grocerylens.v1.ReceiptService procedures.
type ReceiptService struct {
	store      store.Store
	extractor  Extractor
	reconciler Reconciler
	learner    ProductLearner
	products   ProductSearcher
	drafts     *DraftStore
	dates      *receipt.DateNormalizer
	now        func() time.Time
	newID      func() string
}

// Option configures a ReceiptService.
type Option func(*ReceiptService)

// WithProductSearch enables SearchProducts.
func WithProductSearch(p ProductSearcher) Option {
	return func(s *ReceiptService) { s.products = p }
}

// WithDrafts sets the draft store. The default keeps drafts for an hour.
func WithDrafts(d *DraftStore) Option {
	return func(s *ReceiptService) { s.drafts = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *ReceiptService) { s.now = now }
}

// WithIDGenerator overrides receipt and draft id generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *ReceiptService) { s.newID = fn }
}

// NewReceiptService creates the service.
func NewReceiptService(st store.Store, extractor Extractor, reconciler Reconciler, learner ProductLearner, opts ...Option) *ReceiptService {
	s := &ReceiptService{
		store:      st,
		extractor:  extractor,
		reconciler: reconciler,
		learner:    learner,
		now:        time.Now,
		newID:      func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.drafts == nil {
		s.drafts = newDraftStore(defaultDraftTTL, s.now)
	}
	s.dates = receipt.NewDateNormalizer(s.now)
	return s
}

// UploadReceipt runs OCR on an image, reconciles the items and stores the
// result as a review draft. Nothing is persisted.
func (s *ReceiptService) UploadReceipt(ctx context.Context, req *connect.Request[UploadReceiptRequest]) (*connect.Response[UploadReceiptResponse], error) {
	claims, err := auth.RequireAuth(ctx)
	if err != nil {
		return nil, err
	}
	if req.Msg.ImageURI == "" && len(req.Msg.ImageData) == 0 {
		return nil, invalidArgument("image_uri or image_data is required")
	}
	if s.extractor == nil {
		return nil, connect.NewError(connect.CodeUnavailable, eris.New("receipt recognition is not configured"))
	}

	ext, err := s.extractor.Extract(ctx, extraction.ImageRef{
		URI:      req.Msg.ImageURI,
		Data:     req.Msg.ImageData,
		MimeType: req.Msg.MimeType,
	})
	if err != nil {
		return nil, mapExtractionError(err)
	}

	key := receipt.LookupKey(ext.StoreName)
	items := s.reconciler.Reconcile(ctx, ext.Parsed.Items, key)

	now := s.now()
	r := &receipt.Receipt{
		ID:         s.newID(),
		UserID:     claims.UID,
		StoreName:  ext.StoreName,
		StoreChain: key,
		Date:       ext.Date,
		Subtotal:   ext.Parsed.Subtotal,
		Tax:        ext.Parsed.Tax,
		Total:      ext.Parsed.Total,
		Payment:    ext.Parsed.Payment,
		Items:      items,
		ImageURI:   req.Msg.ImageURI,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	draft := &Draft{
		ID:        s.newID(),
		UserID:    claims.UID,
		Receipt:   r,
		DateRule:  ext.DateRule,
		OCRMethod: ext.Method,
	}
	if err := s.drafts.Create(draft); err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	zap.L().Info("receipt draft created",
		zap.String("draft_id", draft.ID),
		zap.String("user_id", claims.UID),
		zap.String("store_chain", key),
		zap.String("date_rule", ext.DateRule),
		zap.Int("items", len(items)))

	return connect.NewResponse(&UploadReceiptResponse{Draft: draft}), nil
}

// ReconcileItems re-runs reconciliation on items the user edited during
// review.
func (s *ReceiptService) ReconcileItems(ctx context.Context, req *connect.Request[ReconcileItemsRequest]) (*connect.Response[ReconcileItemsResponse], error) {
	if _, err := auth.RequireAuth(ctx); err != nil {
		return nil, err
	}

	key := receipt.LookupKey(req.Msg.StoreName)
	items := s.reconciler.Reconcile(ctx, req.Msg.Items, key)
	return connect.NewResponse(&ReconcileItemsResponse{StoreChain: key, Items: items}), nil
}

// ApproveReceipt persists a reviewed receipt and learns its confirmed
// items. A failed save fails the call; learning is best-effort.
func (s *ReceiptService) ApproveReceipt(ctx context.Context, req *connect.Request[ApproveReceiptRequest]) (*connect.Response[ApproveReceiptResponse], error) {
	claims, err := auth.RequireAuth(ctx)
	if err != nil {
		return nil, err
	}

	r := req.Msg.Receipt
	if req.Msg.DraftID == "" && r != nil {
		// a receipt approved without a draft is always new
		r.ID = ""
		r.CreatedAt = time.Time{}
	}
	if req.Msg.DraftID != "" {
		draft, err := s.drafts.Get(req.Msg.DraftID)
		if err != nil {
			return nil, connect.NewError(connect.CodeNotFound, err)
		}
		if draft.UserID != claims.UID {
			return nil, connect.NewError(connect.CodePermissionDenied,
				eris.New("cannot approve another user's draft"))
		}
		if r == nil {
			r = draft.Receipt
		} else {
			r.ID = draft.Receipt.ID
			if r.ImageURI == "" {
				r.ImageURI = draft.Receipt.ImageURI
			}
		}
	}
	if r == nil {
		return nil, invalidArgument("receipt or draft_id is required")
	}
	if len(r.Items) == 0 {
		return nil, invalidArgument("receipt has no items")
	}

	s.prepareForSave(r, claims.UID)

	duplicateOf := s.findDuplicate(ctx, r)

	if err := s.store.CreateReceipt(ctx, r); err != nil {
		return nil, mapStoreError("create receipt", err)
	}

	learned := s.learner.Learn(ctx, r.Items, r.StoreChain, claims.UID)
	if req.Msg.DraftID != "" {
		s.drafts.Delete(req.Msg.DraftID)
	}

	zap.L().Info("receipt approved",
		zap.String("receipt_id", r.ID),
		zap.String("user_id", claims.UID),
		zap.Int("items", len(r.Items)),
		zap.Int("learned", learned.Written),
		zap.String("duplicate_of", duplicateOf))

	return connect.NewResponse(&ApproveReceiptResponse{
		Receipt:     r,
		Learned:     learned,
		DuplicateOf: duplicateOf,
	}), nil
}

// prepareForSave fills server-owned fields of a reviewed receipt: owner,
// ids, chain key, normalized date and discount tags.
func (s *ReceiptService) prepareForSave(r *receipt.Receipt, userID string) {
	now := s.now()
	r.UserID = userID
	if r.ID == "" {
		r.ID = s.newID()
	}
	r.StoreName = strings.TrimSpace(r.StoreName)
	r.StoreChain = receipt.LookupKey(r.StoreName)
	r.Date = s.dates.Normalize(r.Date, r.StoreName)
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now

	for i := range r.Items {
		item := &r.Items[i]
		if item.ID == "" {
			item.ID = s.newID()
		}
		item.Code = strings.TrimSpace(item.Code)
		item.IsDiscount = receipt.IsDiscount(item.Name, item.TotalPrice)
		if c := extraction.CanonicalCategory(item.Category); c != "" {
			item.Category = c
		}
	}
}

// findDuplicate returns the id of an existing receipt of the same user at
// the same store on the same day with the same total. Lookup failures are
// logged and treated as no duplicate.
func (s *ReceiptService) findDuplicate(ctx context.Context, r *receipt.Receipt) string {
	day, ok := r.DateValue()
	if !ok {
		return ""
	}
	existing, _, err := s.store.ListReceipts(ctx, r.UserID, &day, &day, 100, "")
	if err != nil {
		zap.L().Warn("duplicate check failed", zap.String("receipt_id", r.ID), zap.Error(err))
		return ""
	}
	for _, e := range existing {
		if e.ID != r.ID && e.StoreChain == r.StoreChain && sameAmount(e.Total, r.Total) {
			return e.ID
		}
	}
	return ""
}

func sameAmount(a, b float64) bool {
	d := a - b
	return d < 0.005 && d > -0.005
}
