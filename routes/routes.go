package routes

import (
	"net/http"

	"njmart/auth"
	"njmart/cart"
	"njmart/catalog"
	"njmart/checkout"
	"njmart/middleware"
	"njmart/pay"
	"njmart/profile"
	"njmart/ratelim"

	"github.com/julienschmidt/httprouter"
)

func AddAuthRoutes(router *httprouter.Router, rl *ratelim.RateLimiter) {
	router.POST("/api/auth/register", rl.Limit(auth.Register))
	router.POST("/api/auth/login", rl.Limit(auth.Login))
}

func AddCatalogRoutes(router *httprouter.Router, rl *ratelim.RateLimiter, api *catalog.API) {
	router.GET("/api/products", rl.Limit(middleware.OptionalAuth(api.GetProducts)))
	router.GET("/api/categories", rl.Limit(middleware.OptionalAuth(api.GetCategories)))
	router.GET("/api/settings", rl.Limit(middleware.OptionalAuth(api.GetSettings)))
	router.POST("/api/products", middleware.Authenticate(middleware.RequireRole("admin", api.AddProduct)))
}

func AddCartRoutes(router *httprouter.Router, api *cart.API) {
	router.GET("/api/cart", middleware.Authenticate(api.GetCart))
	router.POST("/api/cart/items", middleware.Authenticate(api.AddItem))
	router.PUT("/api/cart/items/:productId", middleware.Authenticate(api.SetQuantity))
	router.DELETE("/api/cart/items/:productId", middleware.Authenticate(api.RemoveItem))
	router.DELETE("/api/cart", middleware.Authenticate(api.ClearCart))
	router.POST("/api/cart/coupon", middleware.Authenticate(api.ApplyCoupon))
	router.DELETE("/api/cart/coupon", middleware.Authenticate(api.RemoveCoupon))
}

func AddCheckoutRoutes(router *httprouter.Router, rl *ratelim.RateLimiter, api *checkout.API, upi pay.UPIConfig) {
	router.POST("/api/checkout", rl.Limit(middleware.Authenticate(api.BuildOrder)))
	router.POST("/api/checkout/submit", rl.Limit(middleware.Authenticate(withIdempotency(api.SubmitOrder))))
	router.GET("/api/orders", middleware.Authenticate(api.GetOrders))
	router.GET("/api/orders/:orderId/receipt", middleware.Authenticate(api.Receipt))
	router.GET("/api/pay/qr", middleware.Authenticate(pay.QRHandler(upi)))
	router.GET("/ws/orders", middleware.Authenticate(checkout.OrderFeed))
	router.GET("/ws/store/orders", checkout.StoreFeed)
}

func AddProfileRoutes(router *httprouter.Router, api *profile.API) {
	router.GET("/api/profile", middleware.Authenticate(api.GetProfile))
	router.PUT("/api/profile", middleware.Authenticate(api.SaveProfile))
}

// withIdempotency adapts the replay-protection middleware onto a single
// httprouter handle.
func withIdempotency(h httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		pay.IdempotencyMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h(w, r, ps)
		})).ServeHTTP(w, r)
	}
}
