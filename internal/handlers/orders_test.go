package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cantina-system/internal/database/models"
)

func TestCreateOrderComputesTotals(t *testing.T) {
	r, db := newTestRouter(t)
	user := seedUser(t, db, "alice", models.RoleStudent)
	token := tokenFor(t, user)
	item := seedMenuItem(t, db, "Poulet braisé", "1500.00")

	w := doJSON(t, r, "POST", "/api/v1/orders", token, gin.H{
		"service_type": "takeaway",
		"lines": []gin.H{
			{"item_id": item.ID, "quantity": 2},
			{"item_id": item.ID, "quantity": 1, "unit_price": "1000.00"},
		},
	})
	requireStatus(t, w, http.StatusCreated)

	data := decodeData(t, w)
	assert.Equal(t, "4000.00", data["total_amount"])
	assert.Regexp(t, regexp.MustCompile(`^CMD-\d{8}-[A-Z2-9]{6}$`), data["order_number"])

	var order models.Order
	require.NoError(t, db.Preload("Lines").First(&order).Error)
	require.Len(t, order.Lines, 2)
	assert.Equal(t, "3000.00", order.Lines[0].Subtotal)
	assert.Equal(t, "1000.00", order.Lines[1].Subtotal)
	assert.Equal(t, models.OrderPending, order.Status)
}

func TestCreateOrderRejectsEmptyLines(t *testing.T) {
	r, db := newTestRouter(t)
	token := tokenFor(t, seedUser(t, db, "alice", models.RoleStudent))

	w := doJSON(t, r, "POST", "/api/v1/orders", token, gin.H{
		"service_type": "takeaway",
		"lines":        []gin.H{},
	})
	requireStatus(t, w, http.StatusUnprocessableEntity)
}

func TestCreateOrderRejectsUnknownItem(t *testing.T) {
	r, db := newTestRouter(t)
	token := tokenFor(t, seedUser(t, db, "alice", models.RoleStudent))

	w := doJSON(t, r, "POST", "/api/v1/orders", token, gin.H{
		"service_type": "dine-in",
		"lines":        []gin.H{{"item_id": 999, "quantity": 1}},
	})
	requireStatus(t, w, http.StatusUnprocessableEntity)
}

func TestCreateOrderRejectsMismatchedTotal(t *testing.T) {
	r, db := newTestRouter(t)
	token := tokenFor(t, seedUser(t, db, "alice", models.RoleStudent))
	item := seedMenuItem(t, db, "Salade", "500.00")

	w := doJSON(t, r, "POST", "/api/v1/orders", token, gin.H{
		"service_type": "dine-in",
		"total_amount": "9999.00",
		"lines":        []gin.H{{"item_id": item.ID, "quantity": 1}},
	})
	requireStatus(t, w, http.StatusUnprocessableEntity)
}

func TestStudentCannotOrderForAnotherUser(t *testing.T) {
	r, db := newTestRouter(t)
	token := tokenFor(t, seedUser(t, db, "alice", models.RoleStudent))
	other := seedUser(t, db, "bob", models.RoleStudent)
	item := seedMenuItem(t, db, "Salade", "500.00")

	w := doJSON(t, r, "POST", "/api/v1/orders", token, gin.H{
		"user_id":      other.ID,
		"service_type": "dine-in",
		"lines":        []gin.H{{"item_id": item.ID, "quantity": 1}},
	})
	requireStatus(t, w, http.StatusForbidden)
}

func TestShowOrderIsIdempotent(t *testing.T) {
	r, db := newTestRouter(t)
	user := seedUser(t, db, "alice", models.RoleStudent)
	token := tokenFor(t, user)
	item := seedMenuItem(t, db, "Salade", "500.00")

	w := doJSON(t, r, "POST", "/api/v1/orders", token, gin.H{
		"service_type": "dine-in",
		"lines":        []gin.H{{"item_id": item.ID, "quantity": 1}},
	})
	requireStatus(t, w, http.StatusCreated)
	orderID := int64(decodeData(t, w)["id"].(float64))

	first := doJSON(t, r, "GET", fmt.Sprintf("/api/v1/orders/%d", orderID), token, nil)
	second := doJSON(t, r, "GET", fmt.Sprintf("/api/v1/orders/%d", orderID), token, nil)
	requireStatus(t, first, http.StatusOK)
	requireStatus(t, second, http.StatusOK)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
}

func TestGetOrderNotFound(t *testing.T) {
	r, db := newTestRouter(t)
	token := tokenFor(t, seedUser(t, db, "alice", models.RoleStudent))

	w := doJSON(t, r, "GET", "/api/v1/orders/424242", token, nil)
	requireStatus(t, w, http.StatusNotFound)
}

func TestCancelOrderMatrix(t *testing.T) {
	cases := []struct {
		status models.OrderStatus
		want   int
	}{
		{models.OrderPending, http.StatusOK},
		{models.OrderPreparing, http.StatusOK},
		{models.OrderReady, http.StatusOK},
		{models.OrderInDelivery, http.StatusOK},
		{models.OrderDelivered, http.StatusBadRequest},
		{models.OrderCancelled, http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(string(tc.status), func(t *testing.T) {
			r, db := newTestRouter(t)
			user := seedUser(t, db, "alice", models.RoleStudent)
			token := tokenFor(t, user)

			order := models.Order{
				OrderNumber: "CMD-20240101-" + string(tc.status[:3]) + "XYZ",
				UserId:      user.ID,
				ServiceType: models.ServiceDelivery,
				Status:      tc.status,
				TotalAmount: "1000.00",
			}
			require.NoError(t, db.Create(&order).Error)

			w := doJSON(t, r, "POST", fmt.Sprintf("/api/v1/orders/%d/cancel", order.ID), token, nil)
			requireStatus(t, w, tc.want)

			var reloaded models.Order
			require.NoError(t, db.First(&reloaded, order.ID).Error)
			if tc.want == http.StatusOK {
				assert.Equal(t, models.OrderCancelled, reloaded.Status)
			} else {
				assert.Equal(t, tc.status, reloaded.Status)
			}
		})
	}
}

func TestStudentCannotTouchAnotherUsersOrder(t *testing.T) {
	r, db := newTestRouter(t)
	owner := seedUser(t, db, "alice", models.RoleStudent)
	intruder := seedUser(t, db, "mallory", models.RoleStudent)
	staff := seedUser(t, db, "manager", models.RoleEmployee)

	order := models.Order{
		OrderNumber: "CMD-20240101-OWN001",
		UserId:      owner.ID,
		ServiceType: models.ServiceDineIn,
		Status:      models.OrderPending,
		TotalAmount: "1000.00",
	}
	require.NoError(t, db.Create(&order).Error)

	intruderToken := tokenFor(t, intruder)

	w := doJSON(t, r, "GET", fmt.Sprintf("/api/v1/orders/%d", order.ID), intruderToken, nil)
	requireStatus(t, w, http.StatusForbidden)

	w = doJSON(t, r, "PATCH", fmt.Sprintf("/api/v1/orders/%d", order.ID), intruderToken, gin.H{
		"status": "preparing",
	})
	requireStatus(t, w, http.StatusForbidden)

	w = doJSON(t, r, "POST", fmt.Sprintf("/api/v1/orders/%d/cancel", order.ID), intruderToken, nil)
	requireStatus(t, w, http.StatusForbidden)

	var reloaded models.Order
	require.NoError(t, db.First(&reloaded, order.ID).Error)
	assert.Equal(t, models.OrderPending, reloaded.Status)

	// staff are not scoped
	w = doJSON(t, r, "GET", fmt.Sprintf("/api/v1/orders/%d", order.ID), tokenFor(t, staff), nil)
	requireStatus(t, w, http.StatusOK)
}

func TestStudentListIsScopedToOwnOrders(t *testing.T) {
	r, db := newTestRouter(t)
	alice := seedUser(t, db, "alice", models.RoleStudent)
	bob := seedUser(t, db, "bob", models.RoleStudent)

	for i, userID := range []int64{alice.ID, alice.ID, bob.ID} {
		order := models.Order{
			OrderNumber: fmt.Sprintf("CMD-20240101-SC%04d", i),
			UserId:      userID,
			ServiceType: models.ServiceDineIn,
			Status:      models.OrderPending,
			TotalAmount: "100.00",
		}
		require.NoError(t, db.Create(&order).Error)
	}

	// the user_id filter cannot widen a student's view
	w := doJSON(t, r, "GET", fmt.Sprintf("/api/v1/orders?user_id=%d", alice.ID), tokenFor(t, bob), nil)
	requireStatus(t, w, http.StatusOK)

	var resp struct {
		Data []models.Order `json:"data"`
		Meta PageMeta       `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, bob.ID, resp.Data[0].UserId)
	assert.Equal(t, int64(1), resp.Meta.Total)
}

func TestListOrdersRejectsMalformedDates(t *testing.T) {
	r, db := newTestRouter(t)
	token := tokenFor(t, seedUser(t, db, "alice", models.RoleStudent))

	w := doJSON(t, r, "GET", "/api/v1/orders?start_date=yesterday", token, nil)
	requireStatus(t, w, http.StatusUnprocessableEntity)

	w = doJSON(t, r, "GET", "/api/v1/orders?end_date=2024-13-99", token, nil)
	requireStatus(t, w, http.StatusUnprocessableEntity)
}

func TestUpdateOrderRejectsBackwardTransition(t *testing.T) {
	r, db := newTestRouter(t)
	user := seedUser(t, db, "alice", models.RoleStudent)
	token := tokenFor(t, user)

	order := models.Order{
		OrderNumber: "CMD-20240101-AAAAAA",
		UserId:      user.ID,
		ServiceType: models.ServiceTakeaway,
		Status:      models.OrderReady,
		TotalAmount: "1000.00",
	}
	require.NoError(t, db.Create(&order).Error)

	w := doJSON(t, r, "PATCH", fmt.Sprintf("/api/v1/orders/%d", order.ID), token, gin.H{
		"status": "pending",
	})
	requireStatus(t, w, http.StatusBadRequest)
}

func TestListOrdersDefaultPageSize(t *testing.T) {
	r, db := newTestRouter(t)
	user := seedUser(t, db, "alice", models.RoleStudent)
	token := tokenFor(t, user)

	for i := 0; i < 20; i++ {
		order := models.Order{
			OrderNumber: fmt.Sprintf("CMD-20240101-%06d", i),
			UserId:      user.ID,
			ServiceType: models.ServiceDineIn,
			Status:      models.OrderPending,
			TotalAmount: "100.00",
		}
		require.NoError(t, db.Create(&order).Error)
	}

	w := doJSON(t, r, "GET", "/api/v1/orders", token, nil)
	requireStatus(t, w, http.StatusOK)

	var resp struct {
		Data []models.Order `json:"data"`
		Meta PageMeta       `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 15)
	assert.Equal(t, int64(20), resp.Meta.Total)
}

func TestLineItemSubtotalRecomputedOnUpdate(t *testing.T) {
	r, db := newTestRouter(t)
	user := seedUser(t, db, "alice", models.RoleStudent)
	token := tokenFor(t, user)
	item := seedMenuItem(t, db, "Salade", "500.00")

	w := doJSON(t, r, "POST", "/api/v1/orders", token, gin.H{
		"service_type": "dine-in",
		"lines":        []gin.H{{"item_id": item.ID, "quantity": 2}},
	})
	requireStatus(t, w, http.StatusCreated)
	orderID := int64(decodeData(t, w)["id"].(float64))

	var line models.LineItem
	require.NoError(t, db.Where("order_id = ?", orderID).First(&line).Error)

	w = doJSON(t, r, "PATCH", fmt.Sprintf("/api/v1/lines/%d", line.ID), token, gin.H{
		"quantity": 5,
	})
	requireStatus(t, w, http.StatusOK)

	require.NoError(t, db.First(&line, line.ID).Error)
	assert.Equal(t, "2500.00", line.Subtotal)

	// parent total follows the lines
	var order models.Order
	require.NoError(t, db.First(&order, orderID).Error)
	assert.Equal(t, "2500.00", order.TotalAmount)
}

func TestDeleteLineRecomputesParentTotal(t *testing.T) {
	r, db := newTestRouter(t)
	user := seedUser(t, db, "alice", models.RoleStudent)
	token := tokenFor(t, user)
	item := seedMenuItem(t, db, "Salade", "500.00")

	w := doJSON(t, r, "POST", "/api/v1/orders", token, gin.H{
		"service_type": "dine-in",
		"lines": []gin.H{
			{"item_id": item.ID, "quantity": 2},
			{"item_id": item.ID, "quantity": 1},
		},
	})
	requireStatus(t, w, http.StatusCreated)
	orderID := int64(decodeData(t, w)["id"].(float64))

	var line models.LineItem
	require.NoError(t, db.Where("order_id = ? AND quantity = 2", orderID).First(&line).Error)

	w = doJSON(t, r, "DELETE", fmt.Sprintf("/api/v1/lines/%d", line.ID), token, nil)
	requireStatus(t, w, http.StatusOK)

	var order models.Order
	require.NoError(t, db.First(&order, orderID).Error)
	assert.Equal(t, "500.00", order.TotalAmount)
}
