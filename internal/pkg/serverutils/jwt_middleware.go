package serverutils

import (
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// OwnerEmailKey is the fiber Locals key carrying the authenticated identity.
const OwnerEmailKey = "owner_email"

func JwtMiddleware(ctx *fiber.Ctx) error {
	authHeader := ctx.Get("Authorization")
	if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
		return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(CodeUnauthorized, "Missing token"))
	}
	tokenStr := authHeader[7:]

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return []byte(os.Getenv("JWT_SECRET")), nil
	})

	if err != nil || !token.Valid {
		return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(CodeUnauthorized, "Invalid token"))
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(CodeUnauthorized, "Invalid claims"))
	}

	email, _ := claims["email"].(string)
	if email == "" {
		return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(CodeUnauthorized, "Missing identity claim"))
	}

	ctx.Locals(OwnerEmailKey, email)
	return ctx.Next()
}
