// Package pay covers the payment edges of checkout: the UPI deep link a
// customer taps to pay, the QR rendering of that link, and replay protection
// for the submit endpoint.
package pay

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"njmart/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

// UPIConfig identifies the store's collecting VPA.
type UPIConfig struct {
	VPA       string
	PayeeName string
}

// UPIConfigFromEnv reads UPI_VPA and UPI_PAYEE_NAME, with storefront defaults.
func UPIConfigFromEnv() UPIConfig {
	cfg := UPIConfig{
		VPA:       os.Getenv("UPI_VPA"),
		PayeeName: os.Getenv("UPI_PAYEE_NAME"),
	}
	if cfg.VPA == "" {
		cfg.VPA = "njmart@upi"
	}
	if cfg.PayeeName == "" {
		cfg.PayeeName = "NJ Mart"
	}
	return cfg
}

// BuildUPIURL builds the upi://pay deep link for an order. Amount is rendered
// with two decimals; the note carries the order reference so the store can
// match the incoming payment.
func BuildUPIURL(cfg UPIConfig, amount float64, orderRef string) string {
	v := url.Values{}
	v.Set("pa", cfg.VPA)
	v.Set("pn", cfg.PayeeName)
	v.Set("am", strconv.FormatFloat(amount, 'f', 2, 64))
	v.Set("cu", "INR")
	if orderRef != "" {
		v.Set("tn", "Order "+orderRef)
	}
	return "upi://pay?" + v.Encode()
}

// QRHandler renders a payment link as a PNG so desktop customers can scan it.
// Expects ?amount= and ?ref=.
func QRHandler(cfg UPIConfig) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		if utils.GetUserIDFromRequest(r) == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		amount := utils.ParseFloat(r.URL.Query().Get("amount"))
		if amount <= 0 {
			http.Error(w, "Invalid amount", http.StatusBadRequest)
			return
		}
		ref := r.URL.Query().Get("ref")

		png, err := qrcode.Encode(BuildUPIURL(cfg, amount, ref), qrcode.Medium, 256)
		if err != nil {
			http.Error(w, "Failed to generate QR code", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Length", fmt.Sprint(len(png)))
		w.WriteHeader(http.StatusOK)
		w.Write(png)
	}
}
