// @title           Portfolio API
// @version         1.0
// @description     REST API портфолио: контент, загрузки, аутентификация и live-обновления.
// @contact.name    Portfolio maintainers
// @license.name    MIT
// @license.url     https://opensource.org/licenses/MIT
// @host            localhost:5000
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT access token. Format: "Bearer {token}".

package main

import "portfolio_backend/internal/app"

func main() {
	app.Run()
}
