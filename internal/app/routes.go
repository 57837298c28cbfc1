package app

import (
	"partymatch/internal/service/auth"
	"partymatch/internal/service/party"
	"partymatch/internal/service/quest"
	"partymatch/internal/service/rating"
	"partymatch/internal/service/tag"
	"partymatch/internal/service/user"
	"partymatch/pkg/oauth2"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type Routes struct {
	r *gin.Engine
}

func NewRoutes(r *gin.Engine) *Routes {
	return &Routes{
		r: r,
	}
}

func (o *Routes) setupInfraRoutes() {
	o.r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	o.r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	o.r.GET("/docs", docsHandler)
}

func (o *Routes) setupAuthRoutes(handler *auth.Handler, oauth2mgr *oauth2.Manager) {
	auth := o.r.Group("/auth")
	{
		auth.POST("/login", handler.LoginHandler())
		auth.POST("/logout", handler.LogoutHandler())
		auth.GET("/callback/google", oauth2.GoogleCallbackHandler(oauth2mgr))
	}
}

func docsHandler(c *gin.Context) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	html := `<!DOCTYPE html>
<html>
<head><title>partymatch API</title></head>
<body>
<h1>partymatch API</h1>
<p>Interactive documentation lives at <a href="/swagger/index.html">/swagger/index.html</a>.</p>
</body>
</html>`
	c.String(200, html)
}

// setupUserRoutes registers user profile endpoints. Interest tags hang
// off the profile, so the tag handler serves those routes too.
func (o *Routes) setupUserRoutes(auth *auth.Handler, uv *user.Service, tv *tag.Service) {
	userHandler := user.NewHandler(uv)
	tagHandler := tag.NewHandler(tv)

	o.r.GET("/users/:id", userHandler.GetUser)
	o.r.GET("/users/:id/tags", tagHandler.GetUserTags)

	authorized := o.r.Group("/", auth.AuthMiddleware())
	{
		authorized.GET("/profile", userHandler.GetProfile)
		authorized.PUT("/profile", userHandler.UpdateProfile)
		authorized.PUT("/profile/tags", tagHandler.ReplaceMyTags)
	}
}

// setupTagRoutes registers the tag catalog endpoints
func (o *Routes) setupTagRoutes(auth *auth.Handler, tv *tag.Service) {
	tagHandler := tag.NewHandler(tv)

	o.r.GET("/tags", tagHandler.ListTags)
	o.r.GET("/tags/:id", tagHandler.GetTag)

	authorized := o.r.Group("/", auth.AuthMiddleware())
	{
		authorized.POST("/tags", tagHandler.CreateTag)
		authorized.PUT("/tags/:id", tagHandler.UpdateTag)
		authorized.DELETE("/tags/:id", tagHandler.DeleteTag)
	}
}

// setupQuestRoutes registers quest and application endpoints
func (o *Routes) setupQuestRoutes(auth *auth.Handler, qv *quest.Service) {
	questHandler := quest.NewHandler(qv)

	o.r.GET("/quests", questHandler.ListQuests)
	o.r.GET("/quests/:id", questHandler.GetQuest)
	o.r.GET("/quests/:id/assigned-members", questHandler.ListAssignedMembers)

	authorized := o.r.Group("/", auth.AuthMiddleware())
	{
		authorized.GET("/quests/my", questHandler.GetMyQuests)
		authorized.GET("/quests/discover", questHandler.Discover)
		authorized.POST("/quests", questHandler.CreateQuest)
		authorized.PUT("/quests/:id", questHandler.UpdateQuest)
		authorized.DELETE("/quests/:id", questHandler.DeleteQuest)

		// Lifecycle transitions
		authorized.POST("/quests/:id/close", questHandler.Close)
		authorized.POST("/quests/:id/complete", questHandler.Complete)
		authorized.POST("/quests/:id/cancel", questHandler.Cancel)
		authorized.POST("/quests/:id/publicize", questHandler.Publicize)
		authorized.POST("/quests/:id/assign-members", questHandler.AssignMembers)

		// Applications
		authorized.POST("/quests/:id/apply", questHandler.Apply)
		authorized.GET("/quest-applications/my", questHandler.GetMyApplications)
		authorized.GET("/quest-applications/quests/:id", questHandler.GetQuestApplications)
		authorized.GET("/quest-applications/:id", questHandler.GetApplication)
		authorized.PUT("/quest-applications/:id", questHandler.UpdateApplication)
		authorized.POST("/quest-applications/:id/review", questHandler.ReviewApplication)
		authorized.POST("/quest-applications/:id/withdraw", questHandler.WithdrawApplication)
	}
}

// setupPartyRoutes registers party and membership endpoints. Quests
// spawned from an existing party go through the quest handler.
func (o *Routes) setupPartyRoutes(auth *auth.Handler, pv *party.Service, qv *quest.Service) {
	partyHandler := party.NewHandler(pv)
	questHandler := quest.NewHandler(qv)

	o.r.GET("/parties/:id", partyHandler.GetParty)
	o.r.GET("/parties/:id/members", partyHandler.ListMembers)

	authorized := o.r.Group("/", auth.AuthMiddleware())
	{
		authorized.POST("/parties", partyHandler.CreateParty)
		authorized.PUT("/parties/:id", partyHandler.UpdateParty)
		authorized.GET("/my-parties", partyHandler.GetMyParties)

		authorized.POST("/parties/:id/members", partyHandler.AddMember)
		authorized.PUT("/parties/:id/members/:member_id", partyHandler.UpdateMember)
		authorized.DELETE("/parties/:id/members/:member_id", partyHandler.RemoveMember)

		authorized.POST("/parties/:id/quests", questHandler.CreateForParty)
	}
}

// setupRatingRoutes registers peer rating endpoints
func (o *Routes) setupRatingRoutes(auth *auth.Handler, rv *rating.Service) {
	ratingHandler := rating.NewHandler(rv)

	o.r.GET("/ratings/users/:id/received", ratingHandler.GetUserReceivedRatings)
	o.r.GET("/ratings/users/:id/summary", ratingHandler.GetUserSummary)

	authorized := o.r.Group("/", auth.AuthMiddleware())
	{
		authorized.POST("/ratings", ratingHandler.CreateRating)
		authorized.GET("/ratings/:id", ratingHandler.GetRating)
		authorized.PUT("/ratings/:id", ratingHandler.UpdateRating)
		authorized.DELETE("/ratings/:id", ratingHandler.DeleteRating)

		authorized.GET("/ratings/users/me/received", ratingHandler.GetMyReceivedRatings)
		authorized.GET("/ratings/users/me/given", ratingHandler.GetMyGivenRatings)

		authorized.GET("/ratings/party/:id", ratingHandler.GetPartyRatings)
		authorized.GET("/ratings/party/:id/ratable-users", ratingHandler.GetRatableUsers)
		authorized.GET("/ratings/party/:id/can-rate", ratingHandler.CanRate)
		authorized.GET("/ratings/party/:id/users/:user_id/mine", ratingHandler.GetMyRatingForUser)
	}
}
