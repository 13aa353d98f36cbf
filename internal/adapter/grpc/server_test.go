package grpc

import (
	"context"
	"errors"
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/timedeposit-backend/internal/adapter/repository/document"
	"github.com/simaogato/timedeposit-backend/internal/adapter/repository/sqlite"
	"github.com/simaogato/timedeposit-backend/internal/domain"
	"github.com/simaogato/timedeposit-backend/internal/usecase/dashboard"
	"github.com/simaogato/timedeposit-backend/internal/usecase/ledger"
	"github.com/simaogato/timedeposit-backend/internal/usecase/notifier"
	"github.com/simaogato/timedeposit-backend/internal/usecase/ratecache"
)

const testToken = "test-token"

// stubRates is a RateProvider whose answer can be swapped between calls
type stubRates struct {
	mu   sync.Mutex
	snap domain.RateSnapshot
	err  error
}

func (s *stubRates) FetchRates(ctx context.Context) (domain.RateSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.Clone(), s.err
}

func (s *stubRates) set(snap domain.RateSnapshot, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap, s.err = snap, err
}

type testEnv struct {
	client *Client
	rates  *stubRates
	ledger *ledger.LedgerService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqlite.NewDB(filepath.Join(t.TempDir(), "deposits.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.EnsureCollection(context.Background(), document.DefaultCollection))

	rates := &stubRates{}
	cache := ratecache.NewCache(rates)
	events := notifier.NewNotifier()
	ledgerService := ledger.NewLedgerService(sqlite.NewDepositRepository(db, document.DefaultCollection), cache, events)
	ledgerService.SetClock(func() time.Time { return time.Date(2021, time.February, 20, 10, 0, 0, 0, time.UTC) })
	dashboardService := dashboard.NewDashboardService(ledgerService, cache)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(LoggingInterceptor(), AuthInterceptor(testToken)),
		grpc.StreamInterceptor(StreamAuthInterceptor(testToken)),
	)
	RegisterDepositServiceServer(srv, NewServer(ledgerService, cache, events, dashboardService))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return &testEnv{client: NewClient(conn), rates: rates, ledger: ledgerService}
}

func authed(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return metadata.AppendToOutgoingContext(ctx, "authorization", testToken)
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func createRequest(t *testing.T, id string) *structpb.Struct {
	return mustStruct(t, map[string]any{
		"account_id":    id,
		"currency":      "USD",
		"cost":          "295000",
		"exchange_rate": "29.5",
		"year":          2020,
		"month":         2,
		"day":           20,
	})
}

func appendRequest(t *testing.T, id string) *structpb.Struct {
	return mustStruct(t, map[string]any{
		"account_id": id,
		"record": map[string]any{
			"interest_start_year":            2020,
			"time_deposit_amount":            "10000",
			"received_gross_interest_amount": "150",
			"interest_rate":                  "1.5",
		},
	})
}

func deposits(t *testing.T, resp *structpb.Struct) []*structpb.Struct {
	t.Helper()
	var out []*structpb.Struct
	for _, v := range resp.GetFields()["deposits"].GetListValue().GetValues() {
		out = append(out, v.GetStructValue())
	}
	return out
}

func derived(s *structpb.Struct, key string) *structpb.Value {
	return s.GetFields()["derived"].GetStructValue().GetFields()[key]
}

func TestServer_RequiresToken(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.client.Call(context.Background(), MethodListDeposits, nil)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	ctx := metadata.AppendToOutgoingContext(context.Background(), "authorization", "wrong")
	_, err = env.client.Call(ctx, MethodListDeposits, nil)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestServer_CreateAndLoad(t *testing.T) {
	env := newTestEnv(t)
	ctx := authed(t)

	resp, err := env.client.Call(ctx, MethodCreateDepositAccount, createRequest(t, "123456789"))
	require.NoError(t, err)
	created := resp.GetFields()["deposit"].GetStructValue()
	assert.Equal(t, "123456789", created.GetFields()["id"].GetStringValue())
	assert.Equal(t, "10000", derived(created, "available_balance").GetStringValue())
	assert.False(t, derived(created, "revenue_available").GetBoolValue())

	resp, err = env.client.Call(ctx, MethodLoadDeposits, nil)
	require.NoError(t, err)
	loaded := deposits(t, resp)
	require.Len(t, loaded, 1)
	assert.Equal(t, "USD", loaded[0].GetFields()["currency"].GetStringValue())
	assert.Equal(t, float64(2), loaded[0].GetFields()["month"].GetNumberValue())

	resp, err = env.client.Call(ctx, MethodListDeposits, nil)
	require.NoError(t, err)
	assert.Len(t, deposits(t, resp), 1)
}

func TestServer_CreateErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := authed(t)

	_, err := env.client.Call(ctx, MethodCreateDepositAccount, createRequest(t, "123456789"))
	require.NoError(t, err)

	_, err = env.client.Call(ctx, MethodCreateDepositAccount, createRequest(t, "123456789"))
	assert.Equal(t, codes.AlreadyExists, status.Code(err))

	bad := createRequest(t, "2")
	bad.Fields["currency"] = structpb.NewStringValue("usd")
	_, err = env.client.Call(ctx, MethodCreateDepositAccount, bad)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	bad = createRequest(t, "3")
	bad.Fields["cost"] = structpb.NewStringValue("a lot")
	_, err = env.client.Call(ctx, MethodCreateDepositAccount, bad)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = env.client.Call(ctx, MethodCreateDepositAccount, mustStruct(t, map[string]any{"currency": "USD"}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestServer_AppendHistoryAndPeriodStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := authed(t)

	_, err := env.client.Call(ctx, MethodAppendHistory, appendRequest(t, "missing"))
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = env.client.Call(ctx, MethodCreateDepositAccount, createRequest(t, "123456789"))
	require.NoError(t, err)

	resp, err := env.client.Call(ctx, MethodAppendHistory, appendRequest(t, "123456789"))
	require.NoError(t, err)
	updated := resp.GetFields()["deposit"].GetStructValue()
	assert.Len(t, updated.GetFields()["history"].GetListValue().GetValues(), 1)
	assert.Equal(t, "10150", derived(updated, "available_balance").GetStringValue())

	// Ledger clock sits on the anniversary, so the 2020 period has just matured
	resp, err = env.client.Call(ctx, MethodGetPeriodStatus, mustStruct(t, map[string]any{"account_id": "123456789"}))
	require.NoError(t, err)
	period := resp.GetFields()["period"].GetStructValue().GetFields()
	assert.Equal(t, "MATURED", period["state"].GetStringValue())
	assert.Equal(t, "2020-02-20", period["period_start"].GetStringValue())
	assert.Equal(t, "2021-02-20", period["period_end"].GetStringValue())
	next := period["next"].GetStructValue().GetFields()
	assert.Equal(t, float64(2021), next["interest_start_year"].GetNumberValue())
	assert.Equal(t, "10150.00", next["time_deposit_amount"].GetStringValue())

	_, err = env.client.Call(ctx, MethodGetPeriodStatus, mustStruct(t, map[string]any{"account_id": "missing"}))
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestServer_SortDeposits(t *testing.T) {
	env := newTestEnv(t)
	ctx := authed(t)

	for _, id := range []string{"200", "100", "300"} {
		_, err := env.client.Call(ctx, MethodCreateDepositAccount, createRequest(t, id))
		require.NoError(t, err)
	}

	resp, err := env.client.Call(ctx, MethodSortDeposits, mustStruct(t, map[string]any{"key": "account", "order": "desc"}))
	require.NoError(t, err)
	var ids []string
	for _, d := range deposits(t, resp) {
		ids = append(ids, d.GetFields()["id"].GetStringValue())
	}
	assert.Equal(t, []string{"300", "200", "100"}, ids)

	_, err = env.client.Call(ctx, MethodSortDeposits, mustStruct(t, map[string]any{"key": "colour"}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestServer_RatesAndSummary(t *testing.T) {
	env := newTestEnv(t)
	ctx := authed(t)

	resp, err := env.client.Call(ctx, MethodGetRates, nil)
	require.NoError(t, err)
	assert.False(t, resp.GetFields()["available"].GetBoolValue())

	env.rates.set(domain.RateSnapshot{
		Time:  "2021/02/20 15:00",
		Rates: map[string]decimal.Decimal{"USD": decimal.NewFromInt(28)},
	}, nil)
	resp, err = env.client.Call(ctx, MethodRefreshRates, nil)
	require.NoError(t, err)
	assert.True(t, resp.GetFields()["success"].GetBoolValue())

	// A failed refresh reports failure but keeps serving the previous snapshot
	env.rates.set(domain.RateSnapshot{}, errors.New("bank page down"))
	resp, err = env.client.Call(ctx, MethodRefreshRates, nil)
	require.NoError(t, err)
	assert.False(t, resp.GetFields()["success"].GetBoolValue())
	assert.Empty(t, resp.GetFields()["result"].GetStructValue().GetFields()["rates"].GetStructValue().GetFields())

	resp, err = env.client.Call(ctx, MethodGetRates, nil)
	require.NoError(t, err)
	assert.True(t, resp.GetFields()["available"].GetBoolValue())
	result := resp.GetFields()["result"].GetStructValue().GetFields()
	assert.Equal(t, "28", result["rates"].GetStructValue().GetFields()["USD"].GetStringValue())

	_, err = env.client.Call(ctx, MethodCreateDepositAccount, createRequest(t, "123456789"))
	require.NoError(t, err)
	_, err = env.client.Call(ctx, MethodAppendHistory, appendRequest(t, "123456789"))
	require.NoError(t, err)

	resp, err = env.client.Call(ctx, MethodGetPortfolioSummary, nil)
	require.NoError(t, err)
	summary := resp.GetFields()
	assert.True(t, summary["revenue_available"].GetBoolValue())
	assert.Equal(t, "295000", summary["total_cost"].GetStringValue())
	assert.Equal(t, "284200", summary["total_revenue"].GetStringValue())
	assert.Equal(t, "-10800", summary["total_pl"].GetStringValue())
	assert.Equal(t, "-3.66", summary["total_roi_percent"].GetStringValue())
	assert.Equal(t, float64(1), summary["matured"].GetNumberValue())
	require.Len(t, summary["per_currency"].GetListValue().GetValues(), 1)
}

func TestServer_WatchDeposits(t *testing.T) {
	env := newTestEnv(t)
	ctx := authed(t)

	_, err := env.client.Call(ctx, MethodLoadDeposits, nil)
	require.NoError(t, err)

	watch, err := env.client.Watch(ctx)
	require.NoError(t, err)

	// The latest event is replayed on subscribe
	first, err := watch.Recv()
	require.NoError(t, err)
	assert.Equal(t, string(domain.ActionGetDeposits), first.GetFields()["action"].GetStringValue())
	assert.True(t, first.GetFields()["success"].GetBoolValue())

	_, err = env.client.Call(ctx, MethodCreateDepositAccount, createRequest(t, "123456789"))
	require.NoError(t, err)

	second, err := watch.Recv()
	require.NoError(t, err)
	assert.Equal(t, string(domain.ActionCreateDepositAccount), second.GetFields()["action"].GetStringValue())
	assert.Len(t, deposits(t, second), 1)

	_, err = env.client.Call(ctx, MethodCreateDepositAccount, createRequest(t, "123456789"))
	require.Error(t, err)

	third, err := watch.Recv()
	require.NoError(t, err)
	assert.False(t, third.GetFields()["success"].GetBoolValue())
	assert.Contains(t, third.GetFields()["error"].GetStringValue(), "already exists")
}

func TestServer_WatchRequiresToken(t *testing.T) {
	env := newTestEnv(t)

	watch, err := env.client.Watch(context.Background())
	if err == nil {
		_, err = watch.Recv()
	}
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestMapError(t *testing.T) {
	tests := []struct {
		err  error
		code codes.Code
	}{
		{domain.ErrInvalidDeposit, codes.InvalidArgument},
		{domain.ErrInvalidSort, codes.InvalidArgument},
		{domain.ErrNotFound, codes.NotFound},
		{domain.ErrDuplicateAccount, codes.AlreadyExists},
		{domain.ErrRemoteFailure, codes.Unavailable},
		{domain.ErrRateFetchFailure, codes.Unavailable},
		{context.Canceled, codes.Canceled},
		{errors.New("boom"), codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.code, status.Code(mapError(tt.err)))
		})
	}
	assert.NoError(t, mapError(nil))
}
