package cart

import (
	"encoding/json"
	"errors"
	"net/http"

	"njmart/engine"
	"njmart/metrics"
	"njmart/models"
	"njmart/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

type API struct {
	Hub *Hub
}

func NewAPI(hub *Hub) *API {
	return &API{Hub: hub}
}

// GetCart returns the user's cart with computed totals.
func (a *API) GetCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, a.Hub.Engine(userID).GetCart(r.Context()))
}

// AddItem merges a product into the cart, or appends it.
func (a *API) AddItem(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var payload struct {
		Product  models.Product `json:"product"`
		Quantity int            `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		log.Println("AddItem decode error:", err)
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if payload.Product.ProductID == "" || payload.Product.Price < 0 {
		http.Error(w, "Missing or invalid fields", http.StatusBadRequest)
		return
	}

	cart := a.Hub.Engine(userID).AddItem(r.Context(), payload.Product, payload.Quantity)
	utils.RespondWithJSON(w, http.StatusCreated, cart)
}

// SetQuantity sets a line's quantity exactly; 0 or less removes the line.
func (a *API) SetQuantity(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var payload struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	cart := a.Hub.Engine(userID).SetItemQuantity(r.Context(), ps.ByName("productId"), payload.Quantity)
	utils.RespondWithJSON(w, http.StatusOK, cart)
}

// RemoveItem deletes one line from the cart.
func (a *API) RemoveItem(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	cart := a.Hub.Engine(userID).RemoveItem(r.Context(), ps.ByName("productId"))
	utils.RespondWithJSON(w, http.StatusOK, cart)
}

// ClearCart resets the cart and drops any coupon.
func (a *API) ClearCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	cart := a.Hub.Engine(userID).ClearCart(r.Context())
	utils.RespondWithJSON(w, http.StatusOK, cart)
}

// ApplyCoupon validates a code with the backend and applies it.
func (a *API) ApplyCoupon(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var payload struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	coupon, err := a.Hub.Engine(userID).ApplyCoupon(r.Context(), payload.Code)
	if err != nil {
		RespondEngineError(w, err, "apply coupon", metrics.CouponsTotal)
		return
	}

	metrics.CouponsTotal.WithLabelValues("applied").Inc()
	cart := a.Hub.Engine(userID).GetCart(r.Context())
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"coupon": coupon, "cart": cart})
}

// RemoveCoupon clears the applied coupon.
func (a *API) RemoveCoupon(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	cart := a.Hub.Engine(userID).RemoveCoupon(r.Context())
	utils.RespondWithJSON(w, http.StatusOK, cart)
}

// RespondEngineError maps the engine's error taxonomy onto HTTP statuses:
// validation and state problems are the caller's to fix, business rejections
// carry the backend's reason, transport faults invite a retry. The outcomes
// counter gets the rejected/transport_error bump so both the coupon and the
// checkout surfaces share one mapping.
func RespondEngineError(w http.ResponseWriter, err error, op string, outcomes *prometheus.CounterVec) {
	var verr *engine.ValidationError
	var serr *engine.StateError
	var rej *engine.BusinessRejection
	var terr *engine.TransportError

	switch {
	case errors.As(err, &verr):
		utils.RespondWithJSON(w, http.StatusBadRequest, utils.M{"error": verr.Error(), "kind": "validation"})
	case errors.As(err, &serr):
		utils.RespondWithJSON(w, http.StatusConflict, utils.M{"error": serr.Error(), "kind": "state"})
	case errors.As(err, &rej):
		outcomes.WithLabelValues("rejected").Inc()
		utils.RespondWithJSON(w, http.StatusUnprocessableEntity, utils.M{"error": rej.Error(), "kind": rej.Kind})
	case errors.As(err, &terr):
		outcomes.WithLabelValues("transport_error").Inc()
		log.Warnf("%s: backend unreachable: %v", op, err)
		utils.RespondWithJSON(w, http.StatusBadGateway, utils.M{"error": "backend unreachable, try again", "kind": terr.ErrorKind()})
	default:
		log.Println(op, "error:", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "internal error")
	}
}
