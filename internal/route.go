package internal

import (
	"net/http"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/fyp-lab/mentor/dao/model"
	"github.com/fyp-lab/mentor/internal/handler"
	"github.com/fyp-lab/mentor/internal/middleware"
	"github.com/fyp-lab/mentor/pkg/constants"
)

type Backend struct {
	R *gin.Engine
}

func Register(conf *handler.RegisterConfig) *Backend {
	s := new(Backend)
	s.R = gin.Default()

	// health check for the deployment probe
	s.R.GET(constants.APIPrefix+"/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "ok",
		})
	})

	s.RegisterService(conf)

	// Swagger
	s.R.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return s
}

func (b *Backend) RegisterService(conf *handler.RegisterConfig) {
	// Enable CORS for http://localhost:XXXX in debug mode
	if gin.Mode() == gin.DebugMode {
		fe := os.Getenv(constants.FrontendPortEnv)
		if fe != "" {
			url := "http://localhost:" + fe
			corsConf := cors.DefaultConfig()
			corsConf.AllowOrigins = []string{url}
			corsConf.AllowCredentials = true
			corsConf.AddAllowHeaders("Authorization")
			b.R.Use(cors.New(corsConf))
		}
	}

	managers := registerManagers(conf)

	///////////////////////////////////////
	//// Public routers, no need login ////
	///////////////////////////////////////

	publicRouter := b.R.Group(constants.APIPrefix)

	///////////////////////////////////////
	//// Protected routers, need login ////
	///////////////////////////////////////

	protectedRouter := b.R.Group(constants.APIPrefix)
	protectedRouter.Use(middleware.AuthProtected(conf.Stores))

	//////////////////////////////////////////
	//// Role routers, need specific role ////
	//////////////////////////////////////////

	studentRouter := protectedRouter.Group("/student")
	studentRouter.Use(middleware.AuthRole(model.RoleStudent))

	teacherRouter := protectedRouter.Group("/teacher")
	teacherRouter.Use(middleware.AuthRole(model.RoleTeacher))

	adminRouter := protectedRouter.Group("/admin")
	adminRouter.Use(middleware.AuthAdmin())

	for _, mgr := range managers {
		mgr.RegisterPublic(publicRouter)
		mgr.RegisterProtected(protectedRouter)
		mgr.RegisterStudent(studentRouter)
		mgr.RegisterTeacher(teacherRouter)
		mgr.RegisterAdmin(adminRouter)
	}
}
