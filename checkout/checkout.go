// Package checkout turns a cart into a placed order. Building and submitting
// are split so the storefront can show a confirmation screen in between:
// build freezes the cart into an order request, submit sends it to the sheet
// backend and clears the cart only on a confirmed acceptance.
package checkout

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"njmart/cart"
	"njmart/db"
	"njmart/metrics"
	"njmart/models"
	"njmart/pay"
	"njmart/utils"

	"github.com/julienschmidt/httprouter"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type API struct {
	Hub *cart.Hub
	UPI pay.UPIConfig
}

func NewAPI(hub *cart.Hub, upi pay.UPIConfig) *API {
	return &API{Hub: hub, UPI: upi}
}

// BuildOrder freezes the current cart into an order request. The customer
// block may be omitted when a profile was saved earlier. For UPI orders the
// response carries the payment deep link.
func (a *API) BuildOrder(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var payload struct {
		Customer      *models.Customer     `json:"customer"`
		PaymentMethod models.PaymentMethod `json:"paymentMethod"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	eng := a.Hub.Engine(userID)

	var customer models.Customer
	if payload.Customer != nil {
		customer = *payload.Customer
	} else if saved, ok := eng.Profile(r.Context()); ok {
		customer = saved
	}

	req, err := eng.BuildOrderRequest(r.Context(), customer, payload.PaymentMethod)
	if err != nil {
		cart.RespondEngineError(w, err, "build order", metrics.OrdersTotal)
		return
	}

	resp := utils.M{"order": req}
	if req.PaymentMethod == models.PaymentUPI {
		resp["upiLink"] = pay.BuildUPIURL(a.UPI, req.GrandTotal, req.ClientOrderID)
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// SubmitOrder sends a built request to the backend. Acceptance clears the
// cart, mirrors the order into Mongo for history and receipts, and pushes a
// feed event; rejection and transport faults leave the cart untouched so the
// same request can be retried.
func (a *API) SubmitOrder(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req models.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if req.ClientOrderID == "" || len(req.Items) == 0 {
		http.Error(w, "Order request is incomplete", http.StatusBadRequest)
		return
	}

	res, err := a.Hub.Engine(userID).SubmitOrder(r.Context(), req)
	if err != nil {
		cart.RespondEngineError(w, err, "submit order", metrics.OrdersTotal)
		return
	}

	metrics.OrdersTotal.WithLabelValues("accepted").Inc()

	order := models.Order{
		OrderID:   res.OrderID,
		UserID:    userID,
		Request:   req,
		Status:    "placed",
		CreatedAt: time.Now(),
	}
	if order.OrderID == "" {
		order.OrderID = req.ClientOrderID
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := db.OrderCollection.InsertOne(ctx, order); err != nil {
			log.Warnf("checkout: mirror order %s: %v", order.OrderID, err)
		}
	}()

	BroadcastOrderEvent(userID, order)

	utils.SendResponse(w, http.StatusCreated, utils.M{
		"orderId": order.OrderID,
		"status":  order.Status,
	}, "Order placed", nil)
}

// GetOrders lists the user's order history, newest first.
func (a *API) GetOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	cursor, err := db.OrderCollection.Find(ctx,
		bson.M{"userId": userID},
		options.Find().SetSort(bson.M{"createdAt": -1}).SetLimit(50),
	)
	if err != nil {
		log.Println("GetOrders find error:", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to fetch orders")
		return
	}
	defer cursor.Close(ctx)

	orders := []models.Order{}
	if err := cursor.All(ctx, &orders); err != nil {
		log.Println("GetOrders decode error:", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to fetch orders")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, orders)
}

