package handlers

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"bionorm/docs"
)

// RegisterSwaggerRoutes регистрирует маршруты Swagger UI в Gin роутере
func RegisterSwaggerRoutes(router *gin.Engine, port string) {
	// Устанавливаем информацию о Swagger из сгенерированной документации.
	// Пути в аннотациях абсолютные, поэтому basePath остается корнем
	docs.SwaggerInfo.Host = "localhost:" + port
	docs.SwaggerInfo.BasePath = "/"
	docs.SwaggerInfo.Schemes = []string{"http", "https"}

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))
}
