package rest

import (
	"net/http"

	appMiddleware "github.com/KotFed0t/portfolio_tracker/internal/transport/rest/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires the controller into a chi mux. Everything except login and
// the health probe sits behind session auth.
func NewRouter(ctrl *Controller, sessions appMiddleware.SessionStore) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.Recoverer)
	router.Use(appMiddleware.Logger())

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	router.Post("/api/login", ctrl.Login)

	router.Route("/api", func(r chi.Router) {
		r.Use(appMiddleware.SessionAuth(sessions))

		r.Post("/logout", ctrl.Logout)

		r.Get("/dashboard", ctrl.Dashboard)
		r.Get("/allocations", ctrl.Allocations)
		r.Get("/charts/value", ctrl.ValueSeries)
		r.Get("/charts/pnl", ctrl.PnLSeries)
		r.Get("/quotes/{symbol}", ctrl.PollQuote)

		r.Route("/groups", func(r chi.Router) {
			r.Get("/", ctrl.ListGroups)
			r.Post("/", ctrl.CreateGroup)
			r.Put("/{groupID}", ctrl.RenameGroup)
			r.Delete("/{groupID}", ctrl.DeleteGroup)
		})

		r.Route("/assets", func(r chi.Router) {
			r.Get("/", ctrl.ListAssets)
			r.Post("/", ctrl.CreateAsset)
			r.Get("/{assetID}", ctrl.GetAsset)
			r.Put("/{assetID}", ctrl.UpdateAsset)
			r.Delete("/{assetID}", ctrl.DeleteAsset)
			r.Post("/{assetID}/archive", ctrl.ArchiveAsset)
			r.Post("/{assetID}/unarchive", ctrl.UnarchiveAsset)
			r.Get("/{assetID}/transactions", ctrl.ListTransactions)
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Post("/", ctrl.AddTransaction)
			r.Put("/{transactionID}", ctrl.UpdateTransaction)
			r.Delete("/{transactionID}", ctrl.DeleteTransaction)
		})

		r.Route("/baskets", func(r chi.Router) {
			r.Get("/", ctrl.ListBaskets)
			r.Post("/", ctrl.CreateBasket)
			r.Put("/{basketID}", ctrl.RenameBasket)
			r.Delete("/{basketID}", ctrl.DeleteBasket)
			r.Get("/{basketID}/composite", ctrl.BasketComposite)
			r.Post("/{basketID}/members", ctrl.AddBasketMember)
			r.Delete("/{basketID}/members/{assetID}", ctrl.RemoveBasketMember)
		})
	})

	return router
}
