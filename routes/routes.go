package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/zedbingo/bingo-engine/controllers"
)

func SetupRoutes(r *gin.Engine, api *controllers.API) {
	a := r.Group("/api")

	// Users
	a.POST("/users", api.RegisterUser)
	a.GET("/users/:telegram_id", api.GetUser)
	a.GET("/users/:telegram_id/transactions", api.ListTransactions)

	// Rooms
	a.GET("/rooms", api.ListRooms)
	a.POST("/rooms/:id/join", api.JoinRoom)

	// Games
	a.GET("/games", api.ListGames)
	a.GET("/games/:id", api.GetGame)
	a.POST("/games/:id/confirm-join", api.ConfirmJoin)
	a.POST("/games/:id/leave", api.LeaveGame)
	a.POST("/games/:id/spectate", api.Spectate)
	a.POST("/games/:id/mark", api.Mark)
	a.POST("/games/:id/claim", api.Claim)
	a.POST("/games/:id/stop-calling", api.StopCalling)

	// Wallet
	a.POST("/deposit", api.Deposit)
	a.POST("/withdraw", api.Withdraw)
}
