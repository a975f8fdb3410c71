package apiv1

import "github.com/gofiber/fiber/v2"

// RegisterHandlers attaches all operator routes to the given group.
func RegisterHandlers(r fiber.Router, s *APIServer) {
	r.Get("/ping", s.GetPing)
	r.Get("/stats", s.GetStats)
	r.Get("/plans", s.GetPlans)

	r.Post("/tenants", s.PostTenant)
	r.Get("/tenants", s.GetTenants)
	r.Get("/tenants/:slug", s.GetTenant)
	r.Delete("/tenants/:slug", s.DeleteTenant)

	r.Post("/tenants/:slug/suspend", s.PostSuspend)
	r.Post("/tenants/:slug/reactivate", s.PostReactivate)
	r.Post("/tenants/:slug/payments", s.PostPayment)
	r.Get("/tenants/:slug/payments", s.GetPayments)
	r.Get("/tenants/:slug/billing", s.GetBilling)
	r.Get("/tenants/:slug/billing/preview", s.GetBillingPreview)
	r.Get("/tenants/:slug/usage", s.GetUsage)
	r.Get("/tenants/:slug/alerts", s.GetAlerts)
	r.Get("/tenants/:slug/activity", s.GetActivity)
	r.Post("/tenants/:slug/repair-structure", s.PostRepairStructure)
	r.Post("/tenants/:slug/reseed", s.PostReseed)

	r.Post("/cron/daily", s.PostCronDaily)
}
