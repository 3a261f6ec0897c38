package register

import "github.com/gofiber/fiber/v2"

// Mount kasa route'larını verilen (JWT korumalı) gruba bağlar.
func Mount(r fiber.Router, d *Deps) {
	g := r.Group("/register")

	g.Get("/tabs", ListTabsHandler(d))
	g.Put("/active-tab", SetActiveTabHandler(d))
	g.Put("/price-list", SetPriceListHandler(d))

	g.Get("/tabs/:tab", GetTabHandler(d))
	g.Post("/tabs/:tab/lines", AddLineHandler(d))
	g.Patch("/tabs/:tab/lines/:line", UpdateLineHandler(d))
	g.Delete("/tabs/:tab/lines/:line", RemoveLineHandler(d))
	g.Post("/tabs/:tab/clear", ClearTabHandler(d))
	g.Post("/tabs/:tab/recompute", RecomputeHandler(d))

	g.Put("/tabs/:tab/customer", SelectCustomerHandler(d))
	g.Delete("/tabs/:tab/customer", ClearCustomerHandler(d))

	g.Put("/tabs/:tab/payment", PaymentPanelHandler(d))
	g.Post("/tabs/:tab/checkout", CheckoutHandler(d))
}
