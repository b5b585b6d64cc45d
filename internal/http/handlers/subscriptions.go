package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/waktsa/elearning/internal/domain/user"
	"github.com/waktsa/elearning/internal/http/middlewares"
	"github.com/waktsa/elearning/internal/notifications"
	"github.com/waktsa/elearning/internal/subscription"
)

type SubscriptionUsers interface {
	FindByID(ctx context.Context, id int64) (user.User, error)
	List(ctx context.Context, role *user.Role) ([]user.User, error)
}

type SubscriptionPolicy interface {
	Check(ctx context.Context, u *user.User, now time.Time) (subscription.Decision, error)
	Purchase(ctx context.Context, u *user.User, now time.Time) (subscription.Decision, error)
}

type ReceiptQueue interface {
	Enqueue(r notifications.Receipt) error
}

type PurchaseObserver interface {
	ObservePurchase(result string)
}

type SubscriptionsHandler struct {
	users    SubscriptionUsers
	policy   SubscriptionPolicy
	receipts ReceiptQueue
	obs      PurchaseObserver
	now      func() time.Time
}

func NewSubscriptionsHandler(users SubscriptionUsers, policy SubscriptionPolicy, receipts ReceiptQueue, obs PurchaseObserver) *SubscriptionsHandler {
	return &SubscriptionsHandler{
		users:    users,
		policy:   policy,
		receipts: receipts,
		obs:      obs,
		now:      time.Now,
	}
}

type PurchaseResponse struct {
	Message          string    `json:"message"`
	StudentID        int64     `json:"student_id"`
	SubscriptionDate time.Time `json:"subscription_date"`
	ExpiresOn        time.Time `json:"expires_on"`
	Price            float64   `json:"price"`
	AlreadyActive    bool      `json:"already_active"`
}

type StatusResponse struct {
	Subscribed       bool       `json:"subscribed"`
	Message          string     `json:"message"`
	SubscriptionDate *time.Time `json:"subscription_date,omitempty"`
	ExpiresOn        *time.Time `json:"expires_on,omitempty"`
	DaysLeft         *int       `json:"days_left,omitempty"`
}

// PurchaseFor is the admin flow: buy a subscription on behalf of a student.
func (h *SubscriptionsHandler) PurchaseFor(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	u, ok := h.loadStudent(ctx, id)
	if !ok {
		return
	}

	buyer, _ := middlewares.UserIDFromContext(ctx)
	h.purchase(ctx, &u, buyer)
}

// PurchaseSelf lets the caller buy for themselves.
func (h *SubscriptionsHandler) PurchaseSelf(ctx *gin.Context) {
	id, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "missing_token", "Authentication required")
		return
	}

	u, ok := h.loadUser(ctx, id)
	if !ok {
		return
	}

	h.purchase(ctx, &u, 0)
}

func (h *SubscriptionsHandler) purchase(ctx *gin.Context, u *user.User, purchasedBy int64) {
	cctx, cancel := withTimeout(ctx, 3*time.Second)
	defer cancel()

	d, err := h.policy.Purchase(cctx, u, h.now())
	if err != nil && !errors.Is(err, subscription.ErrAlreadyActive) {
		h.observe("error")
		RespondInternal(ctx, "Could not purchase subscription", err)
		return
	}

	resp := PurchaseResponse{
		StudentID: u.ID,
		ExpiresOn: d.ExpiresAt,
		Price:     subscription.Price,
	}
	if d.StartedAt != nil {
		resp.SubscriptionDate = *d.StartedAt
	}

	if errors.Is(err, subscription.ErrAlreadyActive) {
		h.observe("already_active")
		resp.Message = "Subscription already active"
		resp.AlreadyActive = true
		ctx.JSON(http.StatusOK, resp)
		return
	}

	h.observe("purchased")
	resp.Message = "Subscription purchased successfully"

	if h.receipts != nil {
		err := h.receipts.Enqueue(notifications.Receipt{
			UserID:      u.ID,
			Email:       u.Email,
			Name:        u.Name,
			StartedAt:   resp.SubscriptionDate,
			ExpiresAt:   resp.ExpiresOn,
			Price:       subscription.Price,
			PurchasedBy: purchasedBy,
		})
		if err != nil {
			// the purchase stands; only the receipt is lost
			slog.Default().WarnContext(ctx.Request.Context(), "receipt_enqueue_failed", "user_id", u.ID, "err", err)
		}
	}

	ctx.JSON(http.StatusOK, resp)
}

// CheckFor is the admin view of a student's subscription.
func (h *SubscriptionsHandler) CheckFor(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	u, ok := h.loadStudent(ctx, id)
	if !ok {
		return
	}

	h.status(ctx, &u)
}

func (h *SubscriptionsHandler) Status(ctx *gin.Context) {
	id, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "missing_token", "Authentication required")
		return
	}

	u, ok := h.loadUser(ctx, id)
	if !ok {
		return
	}

	h.status(ctx, &u)
}

func (h *SubscriptionsHandler) status(ctx *gin.Context, u *user.User) {
	cctx, cancel := withTimeout(ctx, 3*time.Second)
	defer cancel()

	d, err := h.policy.Check(cctx, u, h.now())
	if err != nil {
		RespondInternal(ctx, "Could not check subscription", err)
		return
	}

	switch d.Status {
	case subscription.StatusActive:
		expires := d.ExpiresAt
		days := d.DaysLeft
		ctx.JSON(http.StatusOK, StatusResponse{
			Subscribed:       true,
			Message:          "Subscription active",
			SubscriptionDate: d.StartedAt,
			ExpiresOn:        &expires,
			DaysLeft:         &days,
		})
	case subscription.StatusExpired:
		ctx.JSON(http.StatusOK, StatusResponse{Message: "Subscription expired"})
	default:
		ctx.JSON(http.StatusOK, StatusResponse{Message: "No active subscription"})
	}
}

func (h *SubscriptionsHandler) ListStudents(ctx *gin.Context) {
	cctx, cancel := withTimeout(ctx, 3*time.Second)
	defer cancel()

	students := user.RoleStudent
	list, err := h.users.List(cctx, &students)
	if err != nil {
		RespondInternal(ctx, "Could not list students", err)
		return
	}

	ctx.JSON(http.StatusOK, list)
}

func (h *SubscriptionsHandler) loadUser(ctx *gin.Context, id int64) (user.User, bool) {
	cctx, cancel := withTimeout(ctx, 2*time.Second)
	defer cancel()

	u, err := h.users.FindByID(cctx, id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return user.User{}, false
		}
		RespondInternal(ctx, "Could not load user", err)
		return user.User{}, false
	}
	return u, true
}

func (h *SubscriptionsHandler) loadStudent(ctx *gin.Context, id int64) (user.User, bool) {
	cctx, cancel := withTimeout(ctx, 2*time.Second)
	defer cancel()

	u, err := h.users.FindByID(cctx, id)
	if err == nil && u.Role != user.RoleStudent {
		err = user.ErrNotFound
	}
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "Student not found")
			return user.User{}, false
		}
		RespondInternal(ctx, "Could not load student", err)
		return user.User{}, false
	}
	return u, true
}

func (h *SubscriptionsHandler) observe(result string) {
	if h.obs != nil {
		h.obs.ObservePurchase(result)
	}
}
