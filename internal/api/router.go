package api

import (
	"github.com/gin-gonic/gin"

	"github.com/tejaswanole/automated-smart-parking-system/internal/api/handler"
	"github.com/tejaswanole/automated-smart-parking-system/internal/api/middleware"
	"github.com/tejaswanole/automated-smart-parking-system/internal/config"
	"github.com/tejaswanole/automated-smart-parking-system/internal/realtime"
	"github.com/tejaswanole/automated-smart-parking-system/internal/service"
)

func SetupRouter(cfg *config.Config, as *service.AuthService, ps *service.ParkingService,
	rs *service.RequestService, vs *service.VisitService, hub *realtime.Hub) *gin.Engine {
	r := gin.Default()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	authMw := middleware.NewAuthMiddleware(as)

	// WebSocket endpoint; clients authenticate in-band after connecting.
	wsHandler := handler.NewWebSocketHandler(hub, ps)
	r.GET("/ws", wsHandler.Serve)

	authHandler := handler.NewAuthHandler(as)
	authRoutes := r.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
	}

	v1 := r.Group("/api/v1")
	v1.Use(authMw.Authenticate())
	{
		v1.GET("/users/me", authHandler.GetProfile)

		parkingH := handler.NewParkingHandler(ps, cfg)
		parkingRoutes := v1.Group("/parkings")
		{
			parkingRoutes.POST("", authMw.AuthorizeRole("owner", "admin"), parkingH.CreateParking)
			parkingRoutes.GET("", parkingH.ListParkings)
			parkingRoutes.GET("/nearby", parkingH.ListNearbyParkings)
			parkingRoutes.GET("/owned", authMw.AuthorizeRole("owner", "admin"), parkingH.ListOwnedParkings)
			parkingRoutes.GET("/:ref", parkingH.GetParking)
			parkingRoutes.PUT("/:ref", authMw.AuthorizeRole("owner", "admin"), parkingH.UpdateParking)
			parkingRoutes.DELETE("/:ref", authMw.AuthorizeRole("owner", "admin"), parkingH.DeactivateParking)
			parkingRoutes.PUT("/:ref/approve", authMw.AuthorizeRole("admin"), parkingH.ApproveParking)

			parkingRoutes.GET("/:ref/staff", authMw.AuthorizeRole("owner", "admin"), parkingH.ListStaff)
			parkingRoutes.POST("/:ref/staff", authMw.AuthorizeRole("owner", "admin"), parkingH.AssignStaff)
			parkingRoutes.DELETE("/:ref/staff/:userID", authMw.AuthorizeRole("owner", "admin"), parkingH.RemoveStaff)

			// Occupancy mutations; per-parking authorization happens in the
			// handler since staff membership is parking-specific.
			parkingRoutes.PUT("/:ref/vehicle-count", parkingH.SetVehicleCount)
			parkingRoutes.POST("/:ref/vehicle-count/increment", parkingH.IncrementVehicleCount)
			parkingRoutes.POST("/:ref/vehicle-count/decrement", parkingH.DecrementVehicleCount)
		}

		requestH := handler.NewRequestHandler(rs)
		requestRoutes := v1.Group("/requests")
		{
			requestRoutes.POST("", requestH.CreateRequest)
			requestRoutes.GET("/my", requestH.ListMyRequests)
			requestRoutes.GET("/pending", authMw.AuthorizeRole("admin"), requestH.ListPendingRequests)
			requestRoutes.GET("/:id", requestH.GetRequest)
			requestRoutes.PUT("/:id/review", authMw.AuthorizeRole("admin"), requestH.ReviewRequest)
		}

		visitH := handler.NewVisitHandler(vs)
		visitRoutes := v1.Group("/visits")
		{
			visitRoutes.POST("", visitH.RecordVisit)
			visitRoutes.GET("/my", visitH.ListMyVisits)
			visitRoutes.GET("/:id", visitH.GetVisit)
			visitRoutes.DELETE("/:id", authMw.AuthorizeRole("admin"), visitH.DeleteVisit)
		}
	}
	return r
}
