package admission

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devtools-api/middleware/admission/domain"
	"devtools-api/middleware/admission/infra"
)

// heldPool devolve um pool de uma vaga já ocupada; a vaga volta no cleanup.
func heldPool(t *testing.T) (*infra.ChanPool, func()) {
	t.Helper()
	pool := infra.NewChanPool(1)
	hold, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	t.Cleanup(hold)
	return pool, hold
}

func TestConcurrencyStage_PoolExhaustedReturns503WithRequestLine(t *testing.T) {
	pool, hold := heldPool(t)
	f := newFixture(t, 5, func(o *Options) {
		o.Concurrency = ConcurrencyOptions{Pool: pool, AcquireTimeout: 20 * time.Millisecond}
	})

	rec := f.do("good-key", "/math/addition")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"error":"`+MsgTooManyInFlight+`"}`, rec.Body.String())
	assert.Zero(t, f.calls)
	assert.Equal(t, []string{"req 10.0.0.1 /math/addition"}, f.access.snapshot())

	hold()

	rec = f.do("good-key", "/math/addition")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, f.calls)
	assert.Zero(t, pool.InUse(), "slot must be released after the handler returns")
}

func TestConcurrencyStage_HoldsSlotWhileHandlerRuns(t *testing.T) {
	pool := infra.NewChanPool(2)
	access := &recordingAccess{}
	var inHandler int
	h := Middleware(Options{
		Credentials: infra.NewStaticCredentials("k"),
		Limit:       10,
		Window:      time.Minute,
		Access:      access,
		Concurrency: ConcurrencyOptions{Pool: pool},
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inHandler = pool.InUse()
		w.WriteHeader(http.StatusNoContent)
	}))

	r := httptest.NewRequest(http.MethodGet, "/p", nil)
	r.Header.Set(APIKeyHeader, "k")
	h.ServeHTTP(httptest.NewRecorder(), r)

	assert.Equal(t, 1, inHandler)
	assert.Zero(t, pool.InUse())
}

func TestConcurrencyStage_ReleasedWhenLaterStageRejects(t *testing.T) {
	pool := infra.NewChanPool(1)
	deny := StageFunc(func(w http.ResponseWriter, r *http.Request, client domain.ClientID) (*http.Request, *Rejection) {
		assert.Equal(t, 1, pool.InUse())
		return nil, &Rejection{Status: http.StatusForbidden, Message: "nope"}
	})
	f := newFixture(t, 5, func(o *Options) {
		o.Concurrency = ConcurrencyOptions{Pool: pool}
		o.Stages = []Stage{deny}
	})

	rec := f.do("good-key", "/a")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, pool.InUse())
}

func TestConcurrencyStage_UnauthenticatedNeverTakesSlot(t *testing.T) {
	pool, _ := heldPool(t)
	f := newFixture(t, 5, func(o *Options) {
		o.Concurrency = ConcurrencyOptions{Pool: pool, AcquireTimeout: time.Second}
	})

	start := time.Now()
	rec := f.do("", "/a")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestConcurrencyStage_ClientGoneWritesNothing(t *testing.T) {
	pool, _ := heldPool(t)
	access := &recordingAccess{}
	h := Middleware(Options{
		Credentials: infra.NewStaticCredentials("k"),
		Limit:       10,
		Window:      time.Minute,
		Access:      access,
		Concurrency: ConcurrencyOptions{Pool: pool},
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a slot")
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)
	r.RemoteAddr = "10.0.0.9:1"
	r.Header.Set(APIKeyHeader, "k")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)

	assert.Empty(t, rec.Body.String())
	assert.Empty(t, rec.Header().Get("Content-Type"))
	assert.Equal(t, []string{"req 10.0.0.9 /"}, access.snapshot())
}

func TestConcurrencyStage_CustomRejectStatus(t *testing.T) {
	pool, _ := heldPool(t)
	f := newFixture(t, 5, func(o *Options) {
		o.Concurrency = ConcurrencyOptions{
			Pool:           pool,
			RejectStatus:   http.StatusTooManyRequests,
			AcquireTimeout: 10 * time.Millisecond,
		}
	})

	rec := f.do("good-key", "/")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestConcurrencyStage_DisabledIsNil(t *testing.T) {
	assert.Nil(t, NewConcurrencyStage(ConcurrencyOptions{}))
	assert.NotNil(t, NewConcurrencyStage(ConcurrencyOptions{Max: 1}))
}

func TestConcurrencyStage_OutsidePipelineReleasesImmediately(t *testing.T) {
	pool := infra.NewChanPool(1)
	st := NewConcurrencyStage(ConcurrencyOptions{Pool: pool})

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	next, rej := st.Admit(httptest.NewRecorder(), r, "c")

	assert.Nil(t, rej)
	assert.Same(t, r, next)
	assert.Zero(t, pool.InUse())
}
