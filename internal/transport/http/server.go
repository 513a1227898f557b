package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/voxroom-server/internal/auth"
	"github.com/vovakirdan/voxroom-server/internal/config"
	"github.com/vovakirdan/voxroom-server/internal/core"
)

// Coordinator is the part of the core the transport drives.
type Coordinator interface {
	Connect() *core.Conn
	Disconnect(id core.ConnID)
	Handle(conn *core.Conn, cmd *core.Command)
	ListPublicState() []core.RoomState
	RoomConfigs(includeHidden bool) []core.RoomConfigView
	Bans() []string
	BanDisplayName(name string) (int, error)
	UnbanDisplayName(name string) bool
}

// AdminAuthorizer validates admin bearer tokens.
type AdminAuthorizer interface {
	Authorize(token string) (*auth.Claims, error)
}

// NewServer builds the HTTP server: health, WebSocket endpoint, metrics and the admin REST API.
// A nil gatherer disables /metrics.
func NewServer(coord Coordinator, admins AdminAuthorizer, cfg *config.Config, gatherer prometheus.Gatherer, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", healthHandler)
	router.GET("/ws", gin.WrapH(NewWSHandler(coord, cfg, logger)))
	if cfg.MetricsEnabled && gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	roomHandlers := NewRoomHandlers(coord, logger)
	banHandlers := NewBanHandlers(coord, logger)

	api := router.Group("/api")
	{
		api.GET("/rooms", roomHandlers.ListRooms)
	}

	admin := router.Group("/api/admin")
	admin.Use(AdminAuthMiddleware(admins, logger))
	{
		admin.GET("/rooms", roomHandlers.ListRoomConfigs)
		admin.GET("/bans", banHandlers.ListBans)
		admin.POST("/bans", banHandlers.CreateBan)
		admin.DELETE("/bans/:name", banHandlers.DeleteBan)
	}

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
