package service

import (
	"net/http"

	"connectrpc.com/connect"
)

// ReceiptServiceName is the fully-qualified name of the ReceiptService.
const ReceiptServiceName = "grocerylens.v1.ReceiptService"

// Procedure paths of the ReceiptService.
const (
	ReceiptServiceUploadReceiptProcedure      = "/grocerylens.v1.ReceiptService/UploadReceipt"
	ReceiptServiceReconcileItemsProcedure     = "/grocerylens.v1.ReceiptService/ReconcileItems"
	ReceiptServiceApproveReceiptProcedure     = "/grocerylens.v1.ReceiptService/ApproveReceipt"
	ReceiptServiceGetReceiptProcedure         = "/grocerylens.v1.ReceiptService/GetReceipt"
	ReceiptServiceListReceiptsProcedure       = "/grocerylens.v1.ReceiptService/ListReceipts"
	ReceiptServiceUpdateReceiptProcedure      = "/grocerylens.v1.ReceiptService/UpdateReceipt"
	ReceiptServiceDeleteReceiptProcedure      = "/grocerylens.v1.ReceiptService/DeleteReceipt"
	ReceiptServiceUpdateReceiptItemProcedure  = "/grocerylens.v1.ReceiptService/UpdateReceiptItem"
	ReceiptServiceDeleteReceiptItemProcedure  = "/grocerylens.v1.ReceiptService/DeleteReceiptItem"
	ReceiptServiceGetCategoryTotalsProcedure  = "/grocerylens.v1.ReceiptService/GetCategoryTotals"
	ReceiptServiceGetMonthlyTrendsProcedure   = "/grocerylens.v1.ReceiptService/GetMonthlyTrends"
	ReceiptServiceGetSpendingSummaryProcedure = "/grocerylens.v1.ReceiptService/GetSpendingSummary"
	ReceiptServiceExportSpendingProcedure     = "/grocerylens.v1.ReceiptService/ExportSpending"
	ReceiptServiceSearchProductsProcedure     = "/grocerylens.v1.ReceiptService/SearchProducts"
)

// NewReceiptServiceHandler builds an HTTP handler for every ReceiptService
// procedure and returns the path to mount it on. Messages are JSON encoded.
func NewReceiptServiceHandler(svc *ReceiptService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(JSONCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(ReceiptServiceUploadReceiptProcedure, connect.NewUnaryHandler(ReceiptServiceUploadReceiptProcedure, svc.UploadReceipt, opts...))
	mux.Handle(ReceiptServiceReconcileItemsProcedure, connect.NewUnaryHandler(ReceiptServiceReconcileItemsProcedure, svc.ReconcileItems, opts...))
	mux.Handle(ReceiptServiceApproveReceiptProcedure, connect.NewUnaryHandler(ReceiptServiceApproveReceiptProcedure, svc.ApproveReceipt, opts...))
	mux.Handle(ReceiptServiceGetReceiptProcedure, connect.NewUnaryHandler(ReceiptServiceGetReceiptProcedure, svc.GetReceipt, opts...))
	mux.Handle(ReceiptServiceListReceiptsProcedure, connect.NewUnaryHandler(ReceiptServiceListReceiptsProcedure, svc.ListReceipts, opts...))
	mux.Handle(ReceiptServiceUpdateReceiptProcedure, connect.NewUnaryHandler(ReceiptServiceUpdateReceiptProcedure, svc.UpdateReceipt, opts...))
	mux.Handle(ReceiptServiceDeleteReceiptProcedure, connect.NewUnaryHandler(ReceiptServiceDeleteReceiptProcedure, svc.DeleteReceipt, opts...))
	mux.Handle(ReceiptServiceUpdateReceiptItemProcedure, connect.NewUnaryHandler(ReceiptServiceUpdateReceiptItemProcedure, svc.UpdateReceiptItem, opts...))
	mux.Handle(ReceiptServiceDeleteReceiptItemProcedure, connect.NewUnaryHandler(ReceiptServiceDeleteReceiptItemProcedure, svc.DeleteReceiptItem, opts...))
	mux.Handle(ReceiptServiceGetCategoryTotalsProcedure, connect.NewUnaryHandler(ReceiptServiceGetCategoryTotalsProcedure, svc.GetCategoryTotals, opts...))
	mux.Handle(ReceiptServiceGetMonthlyTrendsProcedure, connect.NewUnaryHandler(ReceiptServiceGetMonthlyTrendsProcedure, svc.GetMonthlyTrends, opts...))
	mux.Handle(ReceiptServiceGetSpendingSummaryProcedure, connect.NewUnaryHandler(ReceiptServiceGetSpendingSummaryProcedure, svc.GetSpendingSummary, opts...))
	mux.Handle(ReceiptServiceExportSpendingProcedure, connect.NewUnaryHandler(ReceiptServiceExportSpendingProcedure, svc.ExportSpending, opts...))
	mux.Handle(ReceiptServiceSearchProductsProcedure, connect.NewUnaryHandler(ReceiptServiceSearchProductsProcedure, svc.SearchProducts, opts...))

	return "/" + ReceiptServiceName + "/", mux
}
