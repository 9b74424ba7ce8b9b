package middlewares

import (
	"crypto/subtle"
	"os"

	"github.com/gofiber/fiber/v2"
)

// keyAuth matches a request header against an env-configured key. An empty
// env value disables the gate for that role (dev mode).
func keyAuth(header, envVar string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		want := os.Getenv(envVar)
		if want == "" {
			return c.Next()
		}
		got := c.Get(header)
		if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "unauthorized",
				"data":    nil,
			})
		}
		return c.Next()
	}
}

func AdminAuth() fiber.Handler {
	return keyAuth("x-admin-key", "ADMIN_KEY")
}

func AgentAuth() fiber.Handler {
	return keyAuth("x-agent-key", "AGENT_KEY")
}

func CashierAuth() fiber.Handler {
	return keyAuth("x-cashier-key", "CASHIER_KEY")
}
