package grpc

import (
	"context"
	"errors"
	"log"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/timedeposit-backend/internal/domain"
	"github.com/simaogato/timedeposit-backend/internal/usecase/dashboard"
	"github.com/simaogato/timedeposit-backend/internal/usecase/ledger"
	"github.com/simaogato/timedeposit-backend/internal/usecase/notifier"
	"github.com/simaogato/timedeposit-backend/internal/usecase/ratecache"
	"github.com/simaogato/timedeposit-backend/internal/usecase/sorter"
)

// watchBuffer is the number of change events queued per stream before new ones are dropped
const watchBuffer = 16

// Server implements the DepositService gRPC server
type Server struct {
	LedgerService    *ledger.LedgerService
	RateCache        *ratecache.Cache
	Notifier         *notifier.Notifier
	DashboardService *dashboard.DashboardService
}

// NewServer creates a new gRPC server instance
func NewServer(
	ledgerService *ledger.LedgerService,
	rateCache *ratecache.Cache,
	events *notifier.Notifier,
	dashboardService *dashboard.DashboardService,
) *Server {
	return &Server{
		LedgerService:    ledgerService,
		RateCache:        rateCache,
		Notifier:         events,
		DashboardService: dashboardService,
	}
}

// ListDeposits handles the ListDeposits RPC
// Returns the in-memory collection without touching the store
func (s *Server) ListDeposits(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return newStruct(map[string]any{
		"deposits": domainAccountsToList(s.LedgerService.Accounts()),
	})
}

// LoadDeposits handles the LoadDeposits RPC
func (s *Server) LoadDeposits(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	accounts, err := s.LedgerService.LoadAll(ctx)
	if err != nil {
		return nil, mapError(err)
	}

	return newStruct(map[string]any{
		"deposits": domainAccountsToList(accounts),
	})
}

// CreateDepositAccount handles the CreateDepositAccount RPC
func (s *Server) CreateDepositAccount(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	accountID := stringField(req, "account_id")
	if accountID == "" {
		return nil, status.Errorf(codes.InvalidArgument, "account_id is required")
	}

	// Parse amounts from strings to decimals
	cost, err := decimalField(req, "cost")
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}
	exchangeRate, err := decimalField(req, "exchange_rate")
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}

	// Parse origination date
	year, err := intField(req, "year")
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}
	month, err := intField(req, "month")
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}
	day, err := intField(req, "day")
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}

	input := ledger.CreateDepositInput{
		Currency:     stringField(req, "currency"),
		Cost:         cost,
		ExchangeRate: exchangeRate,
		Year:         year,
		Month:        time.Month(month),
		Day:          day,
	}

	account, err := s.LedgerService.Create(ctx, accountID, input)
	if err != nil {
		return nil, mapError(err)
	}

	return newStruct(map[string]any{
		"deposit": domainAccountToMap(*account),
	})
}

// AppendHistory handles the AppendHistory RPC
func (s *Server) AppendHistory(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	accountID := stringField(req, "account_id")
	if accountID == "" {
		return nil, status.Errorf(codes.InvalidArgument, "account_id is required")
	}

	recordMsg := req.GetFields()["record"].GetStructValue()
	if recordMsg == nil {
		return nil, status.Errorf(codes.InvalidArgument, "record is required")
	}
	record, err := historyRecordFromStruct(recordMsg)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}

	account, err := s.LedgerService.AppendHistory(ctx, accountID, record)
	if err != nil {
		return nil, mapError(err)
	}

	return newStruct(map[string]any{
		"deposit": domainAccountToMap(*account),
	})
}

// SortDeposits handles the SortDeposits RPC
func (s *Server) SortDeposits(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	key, err := sorter.ParseKey(stringField(req, "key"))
	if err != nil {
		return nil, mapError(err)
	}
	order, err := sorter.ParseOrder(stringField(req, "order"))
	if err != nil {
		return nil, mapError(err)
	}

	sorted, err := s.LedgerService.Sort(key, sorter.Options{
		Order: order,
		From:  stringField(req, "from"),
	})
	if err != nil {
		return nil, mapError(err)
	}

	return newStruct(map[string]any{
		"deposits": domainAccountsToList(sorted),
	})
}

// RefreshRates handles the RefreshRates RPC
// A failed refresh is reported in the payload; the cached snapshot stays in use
func (s *Server) RefreshRates(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	snap, err := s.RateCache.Refresh(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, mapError(ctx.Err())
		}
		return newStruct(map[string]any{
			"success": false,
			"result":  rateSnapshotToMap(snap),
			"error":   err.Error(),
		})
	}

	return newStruct(map[string]any{
		"success": true,
		"result":  rateSnapshotToMap(snap),
	})
}

// GetRates handles the GetRates RPC
func (s *Server) GetRates(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	snap, ok := s.RateCache.Get()

	out := map[string]any{
		"available": ok,
		"result":    rateSnapshotToMap(snap),
	}
	if ok {
		out["fetched_at"] = s.RateCache.FetchedAt().UTC().Format(time.RFC3339)
	}
	return newStruct(out)
}

// GetPortfolioSummary handles the GetPortfolioSummary RPC
func (s *Server) GetPortfolioSummary(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	summary, err := s.DashboardService.GetPortfolioSummary(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return newStruct(portfolioSummaryToMap(summary))
}

// GetPeriodStatus handles the GetPeriodStatus RPC
func (s *Server) GetPeriodStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	accountID := stringField(req, "account_id")
	if accountID == "" {
		return nil, status.Errorf(codes.InvalidArgument, "account_id is required")
	}

	result, err := s.DashboardService.GetPeriodStatus(ctx, accountID)
	if err != nil {
		return nil, mapError(err)
	}

	return newStruct(map[string]any{
		"deposit": domainAccountToMap(result.Account),
		"period":  periodStatusToMap(result.Period),
	})
}

// WatchDeposits handles the WatchDeposits RPC
// The latest change event is sent first, then every event until the client goes away.
// A client that falls more than watchBuffer events behind misses the overflow.
func (s *Server) WatchDeposits(req *structpb.Struct, stream WatchDepositsServer) error {
	ctx := stream.Context()
	events := make(chan domain.ChangeEvent, watchBuffer)

	detach := s.Notifier.Subscribe(func(event domain.ChangeEvent) {
		select {
		case events <- event:
		default:
			log.Printf("watch stream behind, dropping %s event %s", event.Action, event.ID)
		}
	})
	defer detach()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event := <-events:
			msg, err := newStruct(changeEventToMap(event))
			if err != nil {
				return mapError(err)
			}
			if err := stream.Send(msg); err != nil {
				return err
			}
		}
	}
}

// mapError converts domain errors to gRPC status errors
func mapError(err error) error {
	if err == nil {
		return nil
	}

	errorMsg := err.Error()

	switch {
	case errors.Is(err, domain.ErrInvalidDeposit), errors.Is(err, domain.ErrInvalidSort):
		return status.Errorf(codes.InvalidArgument, "%s", errorMsg)
	case errors.Is(err, domain.ErrNotFound):
		return status.Errorf(codes.NotFound, "%s", errorMsg)
	case errors.Is(err, domain.ErrDuplicateAccount):
		return status.Errorf(codes.AlreadyExists, "%s", errorMsg)
	case errors.Is(err, context.Canceled):
		return status.Errorf(codes.Canceled, "%s", errorMsg)
	case errors.Is(err, context.DeadlineExceeded):
		return status.Errorf(codes.DeadlineExceeded, "%s", errorMsg)
	case errors.Is(err, domain.ErrRemoteFailure), errors.Is(err, domain.ErrRateFetchFailure):
		return status.Errorf(codes.Unavailable, "%s", errorMsg)
	}

	// Default to Internal error for unknown errors
	return status.Errorf(codes.Internal, "%s", errorMsg)
}
