package store

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/castlemilk/grocerylens/backend/internal/receipt"
	"github.com/rotisserie/eris"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	receiptsCollection = "receipts"
	productsCollection = "verified_products"
)

var _ Store = (*FirestoreStore)(nil)

// FirestoreStore implements the Store interface using Firestore
type FirestoreStore struct {
	client *firestore.Client
	now    func() time.Time
}

// NewFirestoreStore creates a new Firestore-backed store
func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{
		client: client,
		now:    time.Now,
	}
}

func isMissing(err error) bool {
	return status.Code(err) == codes.NotFound
}

// applyDatePagination orders receipts newest first. Firestore requires the
// range field to lead the ordering, so the cursor carries both the Date value
// and the document ID.
func (s *FirestoreStore) applyDatePagination(ctx context.Context, query firestore.Query, pageSize int32, pageToken string) (firestore.Query, error) {
	query = query.OrderBy("Date", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)

	if pageToken != "" {
		docID, err := DecodePageToken(pageToken)
		if err != nil {
			return query, eris.Wrap(err, "store: invalid page token")
		}
		cursorDoc, err := s.client.Collection(receiptsCollection).Doc(docID).Get(ctx)
		if err != nil {
			return query, eris.Wrap(err, "store: fetch cursor document")
		}
		query = query.StartAfter(cursorDoc.Data()["Date"], docID)
	}

	return query.Limit(normalizePageSize(pageSize) + 1), nil
}

// Receipt operations

func (s *FirestoreStore) CreateReceipt(ctx context.Context, r *receipt.Receipt) error {
	_, err := s.client.Collection(receiptsCollection).Doc(r.ID).Create(ctx, r)
	if err != nil {
		return eris.Wrapf(err, "store: create receipt %s", r.ID)
	}
	return nil
}

func (s *FirestoreStore) GetReceipt(ctx context.Context, receiptID string) (*receipt.Receipt, error) {
	doc, err := s.client.Collection(receiptsCollection).Doc(receiptID).Get(ctx)
	if err != nil {
		if isMissing(err) {
			return nil, eris.Wrapf(ErrNotFound, "store: receipt %s", receiptID)
		}
		return nil, eris.Wrapf(err, "store: get receipt %s", receiptID)
	}

	var r receipt.Receipt
	if err := doc.DataTo(&r); err != nil {
		return nil, eris.Wrap(err, "store: parse receipt")
	}
	return &r, nil
}

func (s *FirestoreStore) UpdateReceipt(ctx context.Context, r *receipt.Receipt) error {
	ref := s.client.Collection(receiptsCollection).Doc(r.ID)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(ref); err != nil {
			if isMissing(err) {
				return eris.Wrapf(ErrNotFound, "store: receipt %s", r.ID)
			}
			return err
		}
		return tx.Set(ref, r)
	})
	if err != nil {
		return eris.Wrapf(err, "store: update receipt %s", r.ID)
	}
	return nil
}

func (s *FirestoreStore) DeleteReceipt(ctx context.Context, receiptID string) error {
	_, err := s.client.Collection(receiptsCollection).Doc(receiptID).Delete(ctx, firestore.Exists)
	if err != nil {
		if isMissing(err) {
			return eris.Wrapf(ErrNotFound, "store: receipt %s", receiptID)
		}
		return eris.Wrapf(err, "store: delete receipt %s", receiptID)
	}
	return nil
}

func (s *FirestoreStore) ListReceipts(ctx context.Context, userID string, startDate, endDate *time.Time, pageSize int32, pageToken string) ([]*receipt.Receipt, string, error) {
	query := s.client.Collection(receiptsCollection).Query

	// Field names match the firestore struct tags on receipt.Receipt
	if userID != "" {
		query = query.Where("UserID", "==", userID)
	}
	start, end := dateBounds(startDate, endDate)
	if start != "" {
		query = query.Where("Date", ">=", start)
	}
	if end != "" {
		query = query.Where("Date", "<=", end)
	}

	query, err := s.applyDatePagination(ctx, query, pageSize, pageToken)
	if err != nil {
		return nil, "", err
	}

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, "", eris.Wrap(err, "store: list receipts")
	}

	size := normalizePageSize(pageSize)
	var nextPageToken string
	if len(docs) > size {
		docs = docs[:size]
		nextPageToken = EncodePageToken(docs[size-1].Ref.ID)
	}

	receipts := make([]*receipt.Receipt, 0, len(docs))
	for _, doc := range docs {
		var r receipt.Receipt
		if err := doc.DataTo(&r); err != nil {
			return nil, "", eris.Wrap(err, "store: parse receipt")
		}
		receipts = append(receipts, &r)
	}
	return receipts, nextPageToken, nil
}

// Item operations. Items live inside the receipt document, so edits are
// read-modify-write inside a transaction.

func (s *FirestoreStore) mutateItems(ctx context.Context, receiptID, itemID string, mutate func(r *receipt.Receipt, idx int)) error {
	ref := s.client.Collection(receiptsCollection).Doc(receiptID)
	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			if isMissing(err) {
				return eris.Wrapf(ErrNotFound, "store: receipt %s", receiptID)
			}
			return eris.Wrapf(err, "store: get receipt %s", receiptID)
		}
		var r receipt.Receipt
		if err := doc.DataTo(&r); err != nil {
			return eris.Wrap(err, "store: parse receipt")
		}
		idx := r.FindItem(itemID)
		if idx < 0 {
			return eris.Wrapf(ErrNotFound, "store: item %s on receipt %s", itemID, receiptID)
		}
		mutate(&r, idx)
		r.UpdatedAt = s.now()
		return tx.Set(ref, &r)
	})
}

func (s *FirestoreStore) UpdateReceiptItem(ctx context.Context, receiptID string, item *receipt.Item) error {
	return s.mutateItems(ctx, receiptID, item.ID, func(r *receipt.Receipt, idx int) {
		r.Items[idx] = *item
	})
}

func (s *FirestoreStore) DeleteReceiptItem(ctx context.Context, receiptID, itemID string) error {
	return s.mutateItems(ctx, receiptID, itemID, func(r *receipt.Receipt, idx int) {
		r.Items = append(r.Items[:idx], r.Items[idx+1:]...)
	})
}

// Verified product operations. Documents are keyed <chain>_<code>.

func (s *FirestoreStore) FindVerifiedProducts(ctx context.Context, codes []string, storeChain string) ([]*receipt.VerifiedProduct, error) {
	codes = dedupeCodes(codes)
	if len(codes) == 0 {
		return nil, nil
	}

	col := s.client.Collection(productsCollection)
	refs := make([]*firestore.DocumentRef, 0, len(codes))
	for _, code := range codes {
		refs = append(refs, col.Doc(receipt.ProductKey(code, storeChain)))
	}

	snaps, err := s.client.GetAll(ctx, refs)
	if err != nil {
		return nil, eris.Wrap(err, "store: find verified products")
	}

	var products []*receipt.VerifiedProduct
	for _, snap := range snaps {
		if !snap.Exists() {
			continue
		}
		var p receipt.VerifiedProduct
		if err := snap.DataTo(&p); err != nil {
			return nil, eris.Wrap(err, "store: parse verified product")
		}
		products = append(products, &p)
	}
	return products, nil
}

func (s *FirestoreStore) GetVerifiedProduct(ctx context.Context, code, storeChain string) (*receipt.VerifiedProduct, error) {
	doc, err := s.client.Collection(productsCollection).Doc(receipt.ProductKey(code, storeChain)).Get(ctx)
	if err != nil {
		if isMissing(err) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "store: get verified product")
	}
	var p receipt.VerifiedProduct
	if err := doc.DataTo(&p); err != nil {
		return nil, eris.Wrap(err, "store: parse verified product")
	}
	return &p, nil
}

func (s *FirestoreStore) UpsertVerifiedProduct(ctx context.Context, product *receipt.VerifiedProduct) error {
	_, err := s.client.Collection(productsCollection).Doc(product.Key()).Set(ctx, product)
	if err != nil {
		return eris.Wrapf(err, "store: upsert verified product %s", product.Key())
	}
	return nil
}

// RecordVerification applies a confirmation inside a transaction so that
// concurrent approvals of the same product never lose an increment.
func (s *FirestoreStore) RecordVerification(ctx context.Context, product *receipt.VerifiedProduct) (*receipt.VerifiedProduct, error) {
	ref := s.client.Collection(productsCollection).Doc(product.Key())

	var result receipt.VerifiedProduct
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		now := s.now()
		result = receipt.VerifiedProduct{}
		doc, err := tx.Get(ref)
		switch {
		case err == nil:
			if err := doc.DataTo(&result); err != nil {
				return eris.Wrap(err, "store: parse verified product")
			}
		case isMissing(err):
			result = receipt.VerifiedProduct{
				Code:       product.Code,
				StoreChain: product.StoreChain,
				CreatedAt:  now,
			}
		default:
			return err
		}

		result.Name = product.Name
		result.Brand = product.Brand
		result.Size = product.Size
		result.Category = product.Category
		result.LastVerifiedBy = product.LastVerifiedBy
		result.LastVerified = now
		result.VerificationCount++
		return tx.Set(ref, &result)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "store: record verification %s", product.Key())
	}
	return &result, nil
}
