package main

import (
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"mushimap-backend/auth"
	"mushimap-backend/conn"
	"mushimap-backend/entry"
	"mushimap-backend/marker"
	"mushimap-backend/media"
	"mushimap-backend/migrations"
	"mushimap-backend/quota"
	"mushimap-backend/subscription"
	"mushimap-backend/vision"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("[main] no .env file loaded; relying on process env")
	}

	db, err := conn.NewMySQL()
	if err != nil {
		log.Fatalf("[main] mysql: %v", err)
	}
	migrations.Init(db)
	if err := migrations.Migrate(); err != nil {
		log.Fatalf("[main] migrate: %v", err)
	}

	subRepo := subscription.NewRepository(db)
	entryRepo := entry.NewRepository(db)
	markerRepo := marker.NewRepository(db)

	subSvc := subscription.NewService(subRepo, entryRepo)
	stripeSvc := subscription.NewStripeFromEnv(subSvc)
	if stripeSvc == nil {
		log.Printf("[main] STRIPE_SECRET_KEY is not set; checkout disabled")
	}
	visionClient := vision.NewClientFromEnv()
	blobs, err := media.NewCloudinaryFromEnv()
	if err != nil {
		log.Fatalf("[main] cloudinary: %v", err)
	}

	var entryBlobs entry.Blobs
	if blobs != nil {
		entryBlobs = blobs
	}
	var oracle entry.Oracle
	if visionClient != nil {
		oracle = visionClient
	}
	entrySvc := entry.NewService(entryRepo, entryBlobs, oracle)

	r := gin.Default()
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authRequired := auth.Middleware()
	quotaGuard := quota.NewValidator(subSvc).Middleware("entry_create")

	subscription.NewHandler(subSvc, stripeSvc).RegisterRoutes(r, authRequired)
	entry.NewHandler(entrySvc, visionClient, subSvc).RegisterRoutes(r, authRequired, quotaGuard)
	marker.NewHandler(markerRepo).RegisterRoutes(r, authRequired)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("[main] server: %v", err)
	}
}
