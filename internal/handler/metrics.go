package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fyp-lab/mentor/dao/model"
	"github.com/fyp-lab/mentor/dao/store"
	"github.com/fyp-lab/mentor/internal/resputil"
)

type MetricsMgr struct {
	name   string
	stores store.Stores
}

func NewMetricsMgr(conf *RegisterConfig) Manager {
	return &MetricsMgr{
		name:   "metrics",
		stores: conf.Stores,
	}
}

func (mgr *MetricsMgr) GetName() string { return mgr.name }

func (mgr *MetricsMgr) RegisterPublic(g *gin.RouterGroup) {
	g.GET("/metrics", mgr.GetMetrics)
}

func (mgr *MetricsMgr) RegisterProtected(_ *gin.RouterGroup) {}
func (mgr *MetricsMgr) RegisterStudent(_ *gin.RouterGroup)   {}
func (mgr *MetricsMgr) RegisterTeacher(_ *gin.RouterGroup)   {}
func (mgr *MetricsMgr) RegisterAdmin(_ *gin.RouterGroup)     {}

// 声明一个自定义的注册表
var registry *prometheus.Registry

// 声明一个prom HTTP Handler
var promHTTPHandler http.Handler

var studentsGauge = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "students_total",
		Help: "Total number of student accounts",
	},
)

var teachersGauge = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "teachers_total",
		Help: "Total number of teacher accounts",
	},
)

var projectsGauge = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "projects_total",
		Help: "Total number of projects",
	},
)

var completedProjectsGauge = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "completed_projects_total",
		Help: "Total number of completed projects",
	},
)

var pendingRequestsGauge = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "pending_supervisor_requests_total",
		Help: "Total number of pending supervisor requests",
	},
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewMetricsMgr)
	registry = prometheus.NewRegistry()
	promHTTPHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
	registry.MustRegister(studentsGauge)
	registry.MustRegister(teachersGauge)
	registry.MustRegister(projectsGauge)
	registry.MustRegister(completedProjectsGauge)
	registry.MustRegister(pendingRequestsGauge)
}

// GetMetrics godoc
// @Summary 平台指标
// @Description 返回 Prometheus 格式的账号与项目统计
// @Tags Metrics
// @Produce plain
// @Success 200 {string} string "metrics"
// @Failure 500 {object} resputil.Response[any] "其他错误"
// @Router /metrics [get]
func (mgr *MetricsMgr) GetMetrics(c *gin.Context) {
	// gauges are refreshed from the store on every scrape
	students, err := mgr.stores.Users().CountByRole(c, model.RoleStudent)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	teachers, err := mgr.stores.Users().CountByRole(c, model.RoleTeacher)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	projects, err := mgr.stores.Projects().CountAll(c)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	completed, err := mgr.stores.Projects().CountByStatus(c, model.ProjectCompleted)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	pending, err := mgr.stores.Requests().CountPending(c)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}

	studentsGauge.Set(float64(students))
	teachersGauge.Set(float64(teachers))
	projectsGauge.Set(float64(projects))
	completedProjectsGauge.Set(float64(completed))
	pendingRequestsGauge.Set(float64(pending))

	promHTTPHandler.ServeHTTP(c.Writer, c.Request)
}
