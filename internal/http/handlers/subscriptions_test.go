package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/waktsa/elearning/internal/domain/user"
	"github.com/waktsa/elearning/internal/http/handlers"
	"github.com/waktsa/elearning/internal/notifications"
	"github.com/waktsa/elearning/internal/repo/memory"
	"github.com/waktsa/elearning/internal/subscription"
)

type fakeReceiptQueue struct {
	receipts []notifications.Receipt
	err      error
}

func (q *fakeReceiptQueue) Enqueue(r notifications.Receipt) error {
	if q.err != nil {
		return q.err
	}
	q.receipts = append(q.receipts, r)
	return nil
}

type countingPurchases map[string]int

func (c countingPurchases) ObservePurchase(result string) { c[result]++ }

func newSubscriptionsRouter(t *testing.T) (*gin.Engine, *memory.UsersRepo, *fakeReceiptQueue, countingPurchases) {
	t.Helper()

	users := memory.NewUsersRepo()
	ctx := context.Background()

	_, err := users.Create(ctx, user.NewUser{Email: "admin@example.com", Name: "Admin", Role: user.RoleAdmin})
	require.NoError(t, err)
	_, err = users.Create(ctx, user.NewUser{Email: "student@example.com", Name: "Student", Role: user.RoleStudent})
	require.NoError(t, err)

	queue := &fakeReceiptQueue{}
	obs := countingPurchases{}

	h := handlers.NewSubscriptionsHandler(users, subscription.NewPolicy(users), queue, obs)

	r := gin.New()
	r.POST("/subscription/purchase/:id", h.PurchaseFor)
	r.GET("/subscription/check/:id", h.CheckFor)
	r.GET("/students", h.ListStudents)

	return r, users, queue, obs
}

func serve(r http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestPurchaseFor_OpensWindowOnce(t *testing.T) {
	r, users, queue, obs := newSubscriptionsRouter(t)

	w := serve(r, http.MethodPost, "/subscription/purchase/2")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var first handlers.PurchaseResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))
	assert.Equal(t, "Subscription purchased successfully", first.Message)
	assert.Equal(t, int64(2), first.StudentID)
	assert.Equal(t, subscription.Price, first.Price)
	assert.False(t, first.AlreadyActive)
	assert.True(t, first.ExpiresOn.Equal(first.SubscriptionDate.Add(subscription.Duration)))

	stored, err := users.FindByID(context.Background(), 2)
	require.NoError(t, err)
	assert.True(t, stored.Subscribed)
	require.NotNil(t, stored.SubscriptionStartedAt)

	w = serve(r, http.MethodPost, "/subscription/purchase/2")
	require.Equal(t, http.StatusOK, w.Code)

	var second handlers.PurchaseResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))
	assert.True(t, second.AlreadyActive)
	assert.Equal(t, "Subscription already active", second.Message)
	assert.True(t, second.SubscriptionDate.Equal(first.SubscriptionDate), "window must not be extended")

	require.Len(t, queue.receipts, 1)
	assert.Equal(t, "student@example.com", queue.receipts[0].Email)
	assert.Equal(t, 1, obs["purchased"])
	assert.Equal(t, 1, obs["already_active"])
}

func TestPurchaseFor_RejectsNonStudents(t *testing.T) {
	r, _, _, _ := newSubscriptionsRouter(t)

	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodPost, "/subscription/purchase/1").Code)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodPost, "/subscription/purchase/99").Code)
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodPost, "/subscription/purchase/x").Code)
}

func TestPurchaseFor_ReceiptFailureDoesNotFailPurchase(t *testing.T) {
	r, users, queue, _ := newSubscriptionsRouter(t)
	queue.err = errors.New("queue full")

	w := serve(r, http.MethodPost, "/subscription/purchase/2")
	require.Equal(t, http.StatusOK, w.Code)

	stored, err := users.FindByID(context.Background(), 2)
	require.NoError(t, err)
	assert.True(t, stored.Subscribed)
}

func TestCheckFor_ReportsStatus(t *testing.T) {
	r, users, _, _ := newSubscriptionsRouter(t)
	ctx := context.Background()

	w := serve(r, http.MethodGet, "/subscription/check/2")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"subscribed":false,"message":"No active subscription"}`, w.Body.String())

	// a window that closed yesterday is expired and gets cleared on read
	stale, err := users.FindByID(ctx, 2)
	require.NoError(t, err)
	started := time.Now().UTC().Add(-subscription.Duration - 24*time.Hour)
	stale.Subscribed = true
	stale.SubscriptionStartedAt = &started
	require.NoError(t, users.Save(ctx, stale))

	w = serve(r, http.MethodGet, "/subscription/check/2")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"subscribed":false,"message":"Subscription expired"}`, w.Body.String())

	after, err := users.FindByID(ctx, 2)
	require.NoError(t, err)
	assert.False(t, after.Subscribed)

	require.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/subscription/purchase/2").Code)

	w = serve(r, http.MethodGet, "/subscription/check/2")
	var status handlers.StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.True(t, status.Subscribed)
	assert.Equal(t, "Subscription active", status.Message)
	require.NotNil(t, status.DaysLeft)
	assert.Equal(t, 29, *status.DaysLeft)
}

func TestListStudents_OnlyStudents(t *testing.T) {
	r, _, _, _ := newSubscriptionsRouter(t)

	w := serve(r, http.MethodGet, "/students")
	require.Equal(t, http.StatusOK, w.Code)

	var list []user.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, user.RoleStudent, list[0].Role)
	assert.NotContains(t, w.Body.String(), "password")
}
