package api

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liquidityDesk/internal/model"
	"liquidityDesk/internal/position"
	"liquidityDesk/internal/quote"
	"liquidityDesk/internal/rangepolicy"
	"liquidityDesk/internal/token"
	"liquidityDesk/internal/v3math"
)

var (
	tokenA   = token.Token{Address: common.HexToAddress("0x00000000000000000000000000000000000000aa"), Symbol: "A", Decimals: 18, ChainID: 1}
	tokenB   = token.Token{Address: common.HexToAddress("0x00000000000000000000000000000000000000bb"), Symbol: "B", Decimals: 18, ChainID: 1}
	poolAddr = common.HexToAddress("0x00000000000000000000000000000000000000cc")
	ether    = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
)

type fakeOracle struct {
	out *big.Int
	err error
}

func (f fakeOracle) QuoteExactInputSingle(context.Context, common.Address, common.Address, uint32, *big.Int) (*big.Int, error) {
	return f.out, f.err
}

func (f fakeOracle) QuoteExactOutputSingle(context.Context, common.Address, common.Address, uint32, *big.Int) (*big.Int, error) {
	return f.out, f.err
}

type fakeTokens map[common.Address]token.Token

func (f fakeTokens) Token(_ context.Context, addr common.Address) (token.Token, error) {
	t, ok := f[addr]
	if !ok {
		return token.Token{}, errors.New("unknown token")
	}
	return t, nil
}

type fakePools struct{}

func (fakePools) Meta(_ context.Context, pool common.Address) (model.PoolRef, error) {
	return model.PoolRef{
		ChainID:     1,
		Address:     pool.Hex(),
		Token0:      tokenA.Address.Hex(),
		Token1:      tokenB.Address.Hex(),
		Fee:         3000,
		TickSpacing: 60,
	}, nil
}

func (fakePools) State(context.Context, common.Address) (position.PoolState, error) {
	return position.PoolState{SqrtPriceX96: new(big.Int).Set(v3math.Q96), Tick: 0}, nil
}

func newTestServer(oracle quote.Oracle) http.Handler {
	e := NewServer(nil)
	tokens := fakeTokens{tokenA.Address: tokenA, tokenB.Address: tokenB}
	engine := quote.NewEngine(oracle, nil, quote.EngineConfig{}, nil)
	NewQuoteHandler(e, engine, tokens, "ETH", 0.5)
	NewRangeHandler(e, rangepolicy.DefaultPolicy(), fakePools{}, tokens)
	NewPositionHandler(e, rangepolicy.DefaultPolicy(), fakePools{}, tokens)
	return e
}

func do(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func TestGetQuoteExactInput(t *testing.T) {
	h := newTestServer(fakeOracle{out: new(big.Int).Mul(big.NewInt(2), ether)})

	rec, body := do(t, h, http.MethodGet, "/quote?in="+tokenA.Address.Hex()+"&out="+tokenB.Address.Hex()+"&amount=1", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "1", body["amountInDecimal"])
	assert.Equal(t, "2", body["amountOutDecimal"])
	assert.Equal(t, "1.99", body["minimumOut"])
	assert.EqualValues(t, 50, body["slippageBps"])
}

func TestGetQuoteErrors(t *testing.T) {
	h := newTestServer(fakeOracle{err: errors.New("execution reverted")})

	rec, _ := do(t, h, http.MethodGet, "/quote?in="+tokenA.Address.Hex()+"&out="+tokenB.Address.Hex()+"&amount=1", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec, _ = do(t, h, http.MethodGet, "/quote?in="+tokenA.Address.Hex()+"&out="+tokenB.Address.Hex()+"&amount=1&fee=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, h, http.MethodGet, "/quote?in="+tokenA.Address.Hex()+"&out="+tokenB.Address.Hex()+"&amount=0", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetRangeByTick(t *testing.T) {
	h := newTestServer(nil)

	rec, body := do(t, h, http.MethodGet, "/range?tick=0&spacing=60", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	def := body["defaultRange"].(map[string]interface{})
	assert.EqualValues(t, -60, def["tickLower"])
	assert.EqualValues(t, 60, def["tickUpper"])
	assert.Len(t, body["suggestions"], 3)

	rec, _ = do(t, h, http.MethodGet, "/range?tick=0&spacing=0", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetRangeByPool(t *testing.T) {
	h := newTestServer(nil)

	rec, body := do(t, h, http.MethodGet, "/range?pool="+poolAddr.Hex(), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 60, body["tickSpacing"])
	assert.InDelta(t, 1.0, body["price"], 1e-9)
}

func TestDerivePosition(t *testing.T) {
	h := newTestServer(nil)
	payload := `{
		"tokenId": "42",
		"token0": {"address": "` + tokenA.Address.Hex() + `", "symbol": "A", "decimals": 18},
		"token1": {"address": "` + tokenB.Address.Hex() + `", "symbol": "B", "decimals": 18},
		"fee": 3000,
		"tickLower": -60,
		"tickUpper": 60,
		"liquidity": "1000000000000000000",
		"sqrtPriceX96": "` + v3math.Q96.String() + `",
		"tick": 0
	}`

	rec, body := do(t, h, http.MethodPost, "/position/derive", payload)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "42", body["tokenId"])
	assert.Equal(t, true, body["inRange"])
	assert.Equal(t, "IN_RANGE", body["side"])
	assert.Equal(t, false, body["burnable"])

	rec, _ = do(t, h, http.MethodPost, "/position/derive", `{"tickLower": 60, "tickUpper": -60, "sqrtPriceX96": "1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPreviewWarnsOnOneSidedDeposit(t *testing.T) {
	h := newTestServer(nil)
	payload := `{"pool": "` + poolAddr.Hex() + `", "tickLower": -60, "tickUpper": 60, "amount0": "1"}`

	rec, body := do(t, h, http.MethodPost, "/position/preview", payload)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 0, body["imbalanceRatio"])
	assert.Contains(t, body["warning"], "100% of A")

	rec, body = do(t, h, http.MethodPost, "/position/preview", `{"pool": "`+poolAddr.Hex()+`", "tickLower": -60, "tickUpper": 60, "amount0": "1", "primary": "0"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, body["warning"])
}

func TestPreviewFallsBackToPolicyRange(t *testing.T) {
	h := newTestServer(nil)

	rec, body := do(t, h, http.MethodPost, "/position/preview", `{"pool": "`+poolAddr.Hex()+`", "amount0": "1", "amount1": "1"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, -887220, body["tickLower"])
	assert.EqualValues(t, 887220, body["tickUpper"])

	rec, body = do(t, h, http.MethodPost, "/position/preview", `{"pool": "`+poolAddr.Hex()+`", "range": "default", "tickUpper": 600, "amount0": "1"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, -60, body["tickLower"])
	assert.EqualValues(t, 600, body["tickUpper"])

	rec, _ = do(t, h, http.MethodPost, "/position/preview", `{"sqrtPriceX96": "`+v3math.Q96.String()+`", "amount0": "1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "no pool and no spacing cannot fill the range")

	rec, _ = do(t, h, http.MethodPost, "/position/preview", `{"pool": "`+poolAddr.Hex()+`", "range": "narrow", "amount0": "1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEstimateCounterpart(t *testing.T) {
	h := newTestServer(nil)

	rec, body := do(t, h, http.MethodPost, "/position/estimate", `{"pool": "`+poolAddr.Hex()+`", "tickLower": -600, "tickUpper": 600, "amount0": "1", "primary": "0"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "1", body["amount0"])
	assert.InDelta(t, 1e18, body["amount1Wei"], 1e7)

	rec, _ = do(t, h, http.MethodPost, "/position/estimate", `{"pool": "`+poolAddr.Hex()+`", "tickLower": 0, "tickUpper": 60, "amount0": "1", "primary": "0"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "price on the lower bound")

	rec, _ = do(t, h, http.MethodPost, "/position/estimate", `{"pool": "`+poolAddr.Hex()+`", "amount0": "1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "primary is required")
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestServer(nil)

	rec, body := do(t, h, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])

	rec, _ = do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "desk_http_requests_total")
}
