package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/fyp-lab/mentor/dao/store"
	"github.com/fyp-lab/mentor/internal/supervision"
	"github.com/fyp-lab/mentor/pkg/alert"
	"github.com/fyp-lab/mentor/pkg/objectstore"
)

// Manager is implemented by every handler group. Route registration is
// split by the required privilege: public (no login), protected (any
// logged-in user), student/teacher (role-gated), admin.
type Manager interface {
	GetName() string
	RegisterPublic(group *gin.RouterGroup)
	RegisterProtected(group *gin.RouterGroup)
	RegisterStudent(group *gin.RouterGroup)
	RegisterTeacher(group *gin.RouterGroup)
	RegisterAdmin(group *gin.RouterGroup)
}

// RegisterConfig carries the shared dependencies handed to each manager
// constructor.
type RegisterConfig struct {
	Stores      store.Stores
	Workflow    *supervision.Workflow
	Alerter     alert.AlertInterface
	ObjectStore *objectstore.Client
}

type RegisterFunc func(conf *RegisterConfig) Manager

// Registers collects the manager constructors via init() in each file.
var Registers []RegisterFunc
