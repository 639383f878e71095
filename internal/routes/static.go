package routes

import (
	_ "portfolio_backend/docs" // Swagger docs

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// registerStatic раздает загруженные файлы без листинга каталогов
func registerStatic(r *gin.Engine, dir string) {
	r.StaticFS("/uploads", gin.Dir(dir, false))
}

func registerSwagger(r *gin.Engine) {
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
