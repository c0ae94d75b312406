package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	"github.com/fyp-lab/mentor/dao/model"
	"github.com/fyp-lab/mentor/dao/store"
	"github.com/fyp-lab/mentor/internal/resputil"
	"github.com/fyp-lab/mentor/internal/supervision"
	"github.com/fyp-lab/mentor/internal/util"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewTeacherMgr)
}

type TeacherMgr struct {
	name     string
	stores   store.Stores
	workflow *supervision.Workflow
}

func NewTeacherMgr(conf *RegisterConfig) Manager {
	return &TeacherMgr{
		name:     "teacher",
		stores:   conf.Stores,
		workflow: conf.Workflow,
	}
}

func (mgr *TeacherMgr) GetName() string { return mgr.name }

func (mgr *TeacherMgr) RegisterPublic(_ *gin.RouterGroup)    {}
func (mgr *TeacherMgr) RegisterProtected(_ *gin.RouterGroup) {}
func (mgr *TeacherMgr) RegisterStudent(_ *gin.RouterGroup)   {}
func (mgr *TeacherMgr) RegisterAdmin(_ *gin.RouterGroup)     {}

func (mgr *TeacherMgr) RegisterTeacher(g *gin.RouterGroup) {
	g.GET("/requests", mgr.ListRequests)
	g.PUT("/requests/:id/accept", mgr.AcceptRequest)
	g.PUT("/requests/:id/reject", mgr.RejectRequest)
	g.GET("/students", mgr.ListStudents)
	g.GET("/projects", mgr.ListProjects)
	g.GET("/files", mgr.ListFiles)
	g.PUT("/projects/:id/complete", mgr.CompleteProject)
	g.POST("/projects/:id/feedback", mgr.AddFeedback)
	g.GET("/dashboard", mgr.Dashboard)
}

type RequestResp struct {
	model.SupervisorRequest
	// StudentProject is the requesting student's latest project, nil if
	// none was submitted yet.
	StudentProject *model.Project `json:"studentProject,omitempty"`
}

// ListRequests godoc
// @Summary 指导申请列表
// @Description 返回发给当前导师的全部申请，附带学生最新项目
// @Tags Teacher
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[[]RequestResp] "申请列表"
// @Router /teacher/requests [get]
func (mgr *TeacherMgr) ListRequests(c *gin.Context) {
	token := util.GetToken(c)
	reqs, err := mgr.stores.Requests().ListBySupervisor(c, token.UserID)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}

	resp := make([]RequestResp, 0, len(reqs))
	for i := range reqs {
		r := RequestResp{SupervisorRequest: reqs[i]}
		if p, err := mgr.stores.Projects().GetLatestByStudent(c, reqs[i].StudentID); err == nil {
			r.StudentProject = p
		}
		resp = append(resp, r)
	}
	resputil.Success(c, resp)
}

// AcceptRequest godoc
// @Summary 接受指导申请
// @Description 接受申请并建立指导关系；该学生的其他待处理申请自动拒绝
// @Tags Teacher
// @Produce json
// @Security Bearer
// @Param id path int true "申请 ID"
// @Success 200 {object} resputil.Response[model.SupervisorRequest] "已接受"
// @Failure 404 {object} resputil.Response[any] "申请不存在"
// @Failure 409 {object} resputil.Response[any] "已处理或容量已满"
// @Router /teacher/requests/{id}/accept [put]
func (mgr *TeacherMgr) AcceptRequest(c *gin.Context) {
	requestID, err := parseUintParam(c, "id")
	if err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	token := util.GetToken(c)
	req, err := mgr.workflow.Accept(c, requestID, token.UserID)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}
	resputil.Success(c, req)
}

// RejectRequest godoc
// @Summary 拒绝指导申请
// @Tags Teacher
// @Produce json
// @Security Bearer
// @Param id path int true "申请 ID"
// @Success 200 {object} resputil.Response[model.SupervisorRequest] "已拒绝"
// @Failure 404 {object} resputil.Response[any] "申请不存在"
// @Failure 409 {object} resputil.Response[any] "申请已处理"
// @Router /teacher/requests/{id}/reject [put]
func (mgr *TeacherMgr) RejectRequest(c *gin.Context) {
	requestID, err := parseUintParam(c, "id")
	if err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	token := util.GetToken(c)
	req, err := mgr.workflow.Reject(c, requestID, token.UserID)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}
	resputil.Success(c, req)
}

// ListStudents godoc
// @Summary 指导学生列表
// @Tags Teacher
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[[]UserResp] "学生列表"
// @Router /teacher/students [get]
func (mgr *TeacherMgr) ListStudents(c *gin.Context) {
	token := util.GetToken(c)
	students, err := mgr.stores.Users().ListBySupervisor(c, token.UserID)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}

	resp := make([]UserResp, 0, len(students))
	for i := range students {
		resp = append(resp, toUserResp(&students[i]))
	}
	resputil.Success(c, resp)
}

// ListProjects godoc
// @Summary 指导项目列表
// @Tags Teacher
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[[]model.Project] "项目列表"
// @Router /teacher/projects [get]
func (mgr *TeacherMgr) ListProjects(c *gin.Context) {
	token := util.GetToken(c)
	projects, err := mgr.stores.Projects().ListBySupervisor(c, token.UserID)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, projects)
}

type TeacherFileResp struct {
	model.ProjectFile
	ProjectTitle string `json:"projectTitle"`
	StudentName  string `json:"studentName"`
}

// ListFiles godoc
// @Summary 指导项目的全部文件
// @Description 汇总当前导师名下所有项目的文件，附带项目与学生信息
// @Tags Teacher
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[[]TeacherFileResp] "文件列表"
// @Router /teacher/files [get]
func (mgr *TeacherMgr) ListFiles(c *gin.Context) {
	token := util.GetToken(c)
	projects, err := mgr.stores.Projects().ListBySupervisor(c, token.UserID)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}

	files := make([]TeacherFileResp, 0)
	for i := range projects {
		for _, f := range projects[i].Files {
			files = append(files, TeacherFileResp{
				ProjectFile:  f,
				ProjectTitle: projects[i].Title,
				StudentName:  projects[i].Student.Name,
			})
		}
	}
	resputil.Success(c, files)
}

// CompleteProject godoc
// @Summary 标记项目完成
// @Description 仅指定导师可将已批准的项目标记为完成
// @Tags Teacher
// @Produce json
// @Security Bearer
// @Param id path int true "项目 ID"
// @Success 200 {object} resputil.Response[model.Project] "已完成"
// @Failure 403 {object} resputil.Response[any] "不是该项目的导师"
// @Failure 409 {object} resputil.Response[any] "状态不允许完成"
// @Router /teacher/projects/{id}/complete [put]
func (mgr *TeacherMgr) CompleteProject(c *gin.Context) {
	projectID, err := parseUintParam(c, "id")
	if err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	token := util.GetToken(c)
	project, err := mgr.stores.Projects().GetByID(c, projectID)
	if err != nil {
		resputil.HTTPError(c, http.StatusNotFound, "Project not found", resputil.ProjectNotFound)
		return
	}
	if project.SupervisorID == nil || *project.SupervisorID != token.UserID {
		resputil.HTTPError(c, http.StatusForbidden, "Not the project supervisor", resputil.UserNotAllowed)
		return
	}
	if project.Status == model.ProjectCompleted {
		resputil.HTTPError(c, http.StatusConflict, "Project already completed", resputil.AlreadyProcessed)
		return
	}
	if project.Status != model.ProjectApproved {
		resputil.HTTPError(c, http.StatusConflict, "Only approved projects can be completed", resputil.ProjectNotApproved)
		return
	}

	project.Status = model.ProjectCompleted
	if err := mgr.stores.Projects().Update(c, project); err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}

	mgr.notifyStudent(c, project.StudentID,
		"Your project has been marked as completed. Congratulations!",
		model.NotifyGeneral, model.PriorityLow)
	resputil.Success(c, project)
}

type AddFeedbackReq struct {
	Type    model.FeedbackType `json:"type" binding:"required,oneof=positive negative general"`
	Title   string             `json:"title" binding:"required"`
	Message string             `json:"message" binding:"required"`
}

// AddFeedback godoc
// @Summary 添加项目反馈
// @Description 仅当前导师可添加；反馈不可修改或删除
// @Tags Teacher
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "项目 ID"
// @Param data body AddFeedbackReq true "反馈内容"
// @Success 200 {object} resputil.Response[model.Feedback] "反馈已添加"
// @Failure 403 {object} resputil.Response[any] "不是该项目的导师"
// @Router /teacher/projects/{id}/feedback [post]
func (mgr *TeacherMgr) AddFeedback(c *gin.Context) {
	projectID, err := parseUintParam(c, "id")
	if err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var req AddFeedbackReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	token := util.GetToken(c)
	project, err := mgr.stores.Projects().GetByID(c, projectID)
	if err != nil {
		resputil.HTTPError(c, http.StatusNotFound, "Project not found", resputil.ProjectNotFound)
		return
	}
	if project.SupervisorID == nil || *project.SupervisorID != token.UserID {
		resputil.HTTPError(c, http.StatusForbidden, "Not the project supervisor", resputil.UserNotAllowed)
		return
	}

	fb := &model.Feedback{
		ProjectID:    project.ID,
		SupervisorID: token.UserID,
		Type:         req.Type,
		Title:        req.Title,
		Message:      req.Message,
	}
	if err := mgr.stores.Projects().AddFeedback(c, fb); err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}

	priority := model.PriorityLow
	if req.Type == model.FeedbackNegative {
		priority = model.PriorityHigh
	}
	mgr.notifyStudent(c, project.StudentID,
		"New feedback on your project: "+req.Title, model.NotifyFeedback, priority)
	resputil.Success(c, fb)
}

func (mgr *TeacherMgr) notifyStudent(
	c *gin.Context, studentID uint, message string,
	typ model.NotificationType, priority model.Priority,
) {
	link := "/student/project"
	n := &model.Notification{
		UserID:   studentID,
		Message:  message,
		Type:     typ,
		Priority: priority,
		Link:     &link,
	}
	if err := mgr.stores.Notifications().Create(c, n); err != nil {
		klog.Errorf("create notification for user %d: %v", studentID, err)
	}
}

type TeacherDashboardResp struct {
	AssignedStudents  int64                `json:"assignedStudents"`
	MaxStudents       int                  `json:"maxStudents"`
	PendingRequests   int64                `json:"pendingRequests"`
	ActiveProjects    int64                `json:"activeProjects"`
	CompletedProjects int64                `json:"completedProjects"`
	Notifications     []model.Notification `json:"notifications"`
}

// Dashboard godoc
// @Summary 导师工作台
// @Tags Teacher
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[TeacherDashboardResp] "统计数据"
// @Router /teacher/dashboard [get]
func (mgr *TeacherMgr) Dashboard(c *gin.Context) {
	token := util.GetToken(c)

	user, err := mgr.stores.Users().GetByID(c, token.UserID)
	if err != nil {
		resputil.HTTPError(c, http.StatusNotFound, "User not found", resputil.UserNotFound)
		return
	}
	assigned, err := mgr.stores.Users().CountBySupervisor(c, token.UserID)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	pending, err := mgr.stores.Requests().CountPendingBySupervisor(c, token.UserID)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	active, err := mgr.stores.Projects().CountBySupervisorAndStatus(c, token.UserID, model.ProjectApproved)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	completed, err := mgr.stores.Projects().CountBySupervisorAndStatus(c, token.UserID, model.ProjectCompleted)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}

	ns, err := mgr.stores.Notifications().ListLatestByUser(c, token.UserID, 3)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}

	resputil.Success(c, TeacherDashboardResp{
		AssignedStudents:  assigned,
		MaxStudents:       user.MaxStudents,
		PendingRequests:   pending,
		ActiveProjects:    active,
		CompletedProjects: completed,
		Notifications:     ns,
	})
}
