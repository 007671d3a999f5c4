package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"

	jwtMiddleware "github.com/gofiber/contrib/jwt"
)

// JWTProtected func for specify routes group with JWT authentication.
// Tokens are verified against a JWK set when api.auth.jwks_url is
// configured, otherwise against the shared HS256 secret.
// See: https://github.com/gofiber/contrib/jwt
func JWTProtected() func(*fiber.Ctx) error {
	config := jwtMiddleware.Config{
		ContextKey:   "jwt", // used in private routes
		ErrorHandler: jwtError,
	}

	if jwksURL := viper.GetString("api.auth.jwks_url"); jwksURL != "" {
		config.JWKSetURLs = []string{jwksURL}
	} else {
		jwtSecret := viper.GetString("api.auth.jwt_secret_key")
		config.SigningKey = jwtMiddleware.SigningKey{Key: []byte(jwtSecret)}
	}

	return jwtMiddleware.New(config)
}

func jwtError(c *fiber.Ctx, err error) error {
	if err.Error() == "Missing or malformed JWT" {
		return c.Status(fiber.StatusUnauthorized).JSON(Error{Detail: "Not authenticated"})
	}

	return c.Status(fiber.StatusUnauthorized).JSON(Error{Detail: err.Error()})
}

// AuthSubject returns the sub claim of the validated request token. The
// subject is recorded as the actor on queue, lease, finish and report
// transitions.
func AuthSubject(c *fiber.Ctx) string {
	token, ok := c.Locals("jwt").(*jwt.Token)
	if !ok {
		return ""
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ""
	}
	subject, _ := claims["sub"].(string)
	return subject
}
