// Package profile stores the customer's delivery profile in the document
// store and mirrors the checkout-relevant snapshot into the engine's
// key-value profile key, so checkout works even when Mongo is briefly away.
package profile

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"njmart/cart"
	"njmart/db"
	"njmart/models"
	"njmart/sheetapi"
	"njmart/utils"

	"github.com/julienschmidt/httprouter"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type API struct {
	Hub   *cart.Hub
	Sheet *sheetapi.Client
}

func NewAPI(hub *cart.Hub, sheet *sheetapi.Client) *API {
	return &API{Hub: hub, Sheet: sheet}
}

// GetProfile returns the saved delivery profile for the user.
func (a *API) GetProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var doc struct {
		Customer models.Customer `bson:"customer"`
	}
	err := db.ProfileCollection.FindOne(ctx, bson.M{"userId": userID}).Decode(&doc)
	if err != nil {
		// fall back to the engine's KV snapshot
		if cust, ok := a.Hub.Engine(userID).Profile(r.Context()); ok {
			utils.RespondWithJSON(w, http.StatusOK, cust)
			return
		}
		http.Error(w, "Profile not found", http.StatusNotFound)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, doc.Customer)
}

// SaveProfile upserts the profile, mirrors it into the engine's KV key and,
// best effort, onto the customer sheet.
func (a *API) SaveProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var cust models.Customer
	if err := json.NewDecoder(r.Body).Decode(&cust); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	cust.Ref = strings.TrimSpace(cust.Ref)
	cust.Address = strings.TrimSpace(cust.Address)
	if cust.Ref == "" {
		cust.Ref = userID
	}
	if cust.Name == "" && cust.Address == "" {
		http.Error(w, "Name or address required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	_, err := db.ProfileCollection.UpdateOne(ctx,
		bson.M{"userId": userID},
		bson.M{"$set": bson.M{"customer": cust, "updatedAt": time.Now()}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		log.Println("SaveProfile upsert error:", err)
		http.Error(w, "Failed to save profile", http.StatusInternalServerError)
		return
	}

	a.Hub.Engine(userID).SaveProfile(r.Context(), cust)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.Sheet.AddCustomer(ctx, cust); err != nil {
			log.Warnf("profile: mirror to sheet: %v", err)
		}
	}()

	utils.SendResponse(w, http.StatusOK, cust, "Profile updated", nil)
}
