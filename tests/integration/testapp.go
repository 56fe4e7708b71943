package integration

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"courier-wallet/internal/adapter/gateway"
	memStorage "courier-wallet/internal/adapter/storage/memory"
	redisStorage "courier-wallet/internal/adapter/storage/redis"
	"courier-wallet/internal/service"
	"courier-wallet/pkg/logger"
)

// testApp wires the full stack against the in-memory ledger store, a
// miniredis-backed entry cache and the mock gateway. Thresholds mirror the
// production defaults: 10000 paise minimum recharge, 1000 paise floor, 18%
// GST.
type testApp struct {
	store    *memStorage.LedgerStore
	wallet   *service.WalletService
	recharge *service.RechargeService
	gateway  *gateway.MockGateway
	redis    *miniredis.Miniredis
}

const (
	testMinRecharge = int64(10000)
	testMinBalance  = int64(1000)
	testGSTPercent  = int64(18)
)

func newTestApp(t *testing.T) *testApp {
	return newDecliningApp(t, 0)
}

// newDecliningApp builds the stack with a gateway that declines payments
// above the given threshold; zero disables declining.
func newDecliningApp(t *testing.T, declineAbove int64) *testApp {
	t.Helper()

	log := logger.New("error", false)

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	cache := redisStorage.NewEntryCache(client)

	store := memStorage.NewLedgerStore()
	engine := service.NewBalanceEngine()
	validator := service.NewTransactionValidator(store, engine, testMinRecharge, testMinBalance)
	wallet := service.NewWalletService(store, cache, validator, engine, log)
	receipts := service.NewReceiptService(testGSTPercent)
	gw := gateway.NewMockGateway(declineAbove, log)
	recharge := service.NewRechargeService(gw, wallet, receipts, log)

	return &testApp{
		store:    store,
		wallet:   wallet,
		recharge: recharge,
		gateway:  gw,
		redis:    mr,
	}
}
