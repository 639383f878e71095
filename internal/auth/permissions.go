package auth

import "portfolio_backend/internal/models"

// IsAdmin проверяет является ли пользователь администратором
func IsAdmin(claims *Claims) bool {
	return claims != nil && claims.Role == string(models.UserRoleAdmin)
}

// HasRole проверяет роль по списку разрешенных
func HasRole(role models.UserRole, allowed ...models.UserRole) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}
