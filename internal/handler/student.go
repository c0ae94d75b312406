package handler

import (
	"errors"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"k8s.io/klog/v2"

	"github.com/fyp-lab/mentor/dao/model"
	"github.com/fyp-lab/mentor/dao/store"
	"github.com/fyp-lab/mentor/internal/resputil"
	"github.com/fyp-lab/mentor/internal/supervision"
	"github.com/fyp-lab/mentor/internal/util"
	"github.com/fyp-lab/mentor/pkg/objectstore"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewStudentMgr)
}

type StudentMgr struct {
	name        string
	stores      store.Stores
	workflow    *supervision.Workflow
	objectStore *objectstore.Client
}

func NewStudentMgr(conf *RegisterConfig) Manager {
	return &StudentMgr{
		name:        "student",
		stores:      conf.Stores,
		workflow:    conf.Workflow,
		objectStore: conf.ObjectStore,
	}
}

func (mgr *StudentMgr) GetName() string { return mgr.name }

func (mgr *StudentMgr) RegisterPublic(_ *gin.RouterGroup)    {}
func (mgr *StudentMgr) RegisterProtected(_ *gin.RouterGroup) {}
func (mgr *StudentMgr) RegisterTeacher(_ *gin.RouterGroup)   {}
func (mgr *StudentMgr) RegisterAdmin(_ *gin.RouterGroup)     {}

func (mgr *StudentMgr) RegisterStudent(g *gin.RouterGroup) {
	g.GET("/teachers", mgr.ListTeachers)
	g.GET("/supervisor", mgr.GetSupervisor)
	g.POST("/requests", mgr.CreateRequest)
	g.GET("/project", mgr.GetProject)
	g.POST("/project", mgr.SubmitProposal)
	g.POST("/project/files", mgr.UploadFiles)
	g.GET("/feedback", mgr.ListFeedback)
	g.GET("/deadlines", mgr.UpcomingDeadlines)
	g.GET("/dashboard", mgr.Dashboard)
}

type TeacherResp struct {
	ID               uint     `json:"id"`
	Name             string   `json:"name"`
	Email            string   `json:"email"`
	Department       *string  `json:"department,omitempty"`
	Expertise        []string `json:"expertise,omitempty"`
	MaxStudents      int      `json:"maxStudents"`
	AssignedStudents int64    `json:"assignedStudents"`
}

func toTeacherResp(t *model.User, assigned int64) TeacherResp {
	return TeacherResp{
		ID:               t.ID,
		Name:             t.Name,
		Email:            t.Email,
		Department:       t.Department,
		Expertise:        t.Expertise,
		MaxStudents:      t.MaxStudents,
		AssignedStudents: assigned,
	}
}

// ListTeachers godoc
// @Summary 导师列表
// @Description 返回所有导师及其当前指导人数
// @Tags Student
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[[]TeacherResp] "导师列表"
// @Router /student/teachers [get]
func (mgr *StudentMgr) ListTeachers(c *gin.Context) {
	teachers, err := mgr.stores.Users().ListByRole(c, model.RoleTeacher)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}

	resp := make([]TeacherResp, 0, len(teachers))
	for i := range teachers {
		t := &teachers[i]
		assigned, err := mgr.stores.Users().CountBySupervisor(c, t.ID)
		if err != nil {
			resputil.Error(c, err.Error(), resputil.NotSpecified)
			return
		}
		resp = append(resp, toTeacherResp(t, assigned))
	}
	resputil.Success(c, resp)
}

type CreateRequestReq struct {
	SupervisorID uint   `json:"supervisorId" binding:"required"`
	Message      string `json:"message"`
}

// CreateRequest godoc
// @Summary 申请导师
// @Description 向导师发送指导申请
// @Tags Student
// @Accept json
// @Produce json
// @Security Bearer
// @Param data body CreateRequestReq true "申请参数"
// @Success 200 {object} resputil.Response[model.SupervisorRequest] "申请已创建"
// @Failure 404 {object} resputil.Response[any] "导师不存在"
// @Failure 409 {object} resputil.Response[any] "重复申请或容量已满"
// @Router /student/requests [post]
func (mgr *StudentMgr) CreateRequest(c *gin.Context) {
	var req CreateRequestReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	token := util.GetToken(c)
	created, err := mgr.workflow.CreateRequest(c, token.UserID, req.SupervisorID, req.Message)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}
	resputil.Success(c, created)
}

// respondWorkflowError maps workflow errors onto the response envelope.
func respondWorkflowError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, supervision.ErrSupervisorNotFound),
		errors.Is(err, supervision.ErrStudentNotFound),
		errors.Is(err, supervision.ErrRequestNotFound):
		resputil.HTTPError(c, http.StatusNotFound, err.Error(), resputil.RequestNotFound)
	case errors.Is(err, supervision.ErrProjectNotFound):
		resputil.HTTPError(c, http.StatusNotFound, err.Error(), resputil.ProjectNotFound)
	case errors.Is(err, supervision.ErrNotRequestOwner):
		resputil.HTTPError(c, http.StatusForbidden, err.Error(), resputil.UserNotAllowed)
	case errors.Is(err, supervision.ErrAlreadyProcessed):
		resputil.HTTPError(c, http.StatusConflict, err.Error(), resputil.AlreadyProcessed)
	case errors.Is(err, supervision.ErrCapacityExceeded):
		resputil.HTTPError(c, http.StatusConflict, err.Error(), resputil.CapacityExceeded)
	case errors.Is(err, supervision.ErrDuplicatePending):
		resputil.HTTPError(c, http.StatusConflict, err.Error(), resputil.DuplicatePending)
	case errors.Is(err, supervision.ErrAlreadyAssigned):
		resputil.HTTPError(c, http.StatusConflict, err.Error(), resputil.AlreadyAssigned)
	case errors.Is(err, supervision.ErrProjectNotApproved):
		resputil.HTTPError(c, http.StatusConflict, err.Error(), resputil.ProjectNotApproved)
	default:
		resputil.Error(c, err.Error(), resputil.NotSpecified)
	}
}

// GetProject godoc
// @Summary 查看自己的项目
// @Description 返回学生当前（最新）项目及其文件与反馈
// @Tags Student
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[model.Project] "项目详情"
// @Failure 404 {object} resputil.Response[any] "尚未提交项目"
// @Router /student/project [get]
func (mgr *StudentMgr) GetProject(c *gin.Context) {
	token := util.GetToken(c)
	project, err := mgr.stores.Projects().GetLatestByStudent(c, token.UserID)
	if err != nil {
		resputil.HTTPError(c, http.StatusNotFound, "No project submitted yet", resputil.ProjectNotFound)
		return
	}
	resputil.Success(c, project)
}

type SubmitProposalReq struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description" binding:"required"`
	Deadline    *time.Time `json:"deadline"`
}

// SubmitProposal godoc
// @Summary 提交项目提案
// @Description 创建待审批项目；已有被拒绝的项目会被替换
// @Tags Student
// @Accept json
// @Produce json
// @Security Bearer
// @Param data body SubmitProposalReq true "提案内容"
// @Success 200 {object} resputil.Response[model.Project] "提案已创建"
// @Failure 409 {object} resputil.Response[any] "已存在未完成的项目"
// @Router /student/project [post]
func (mgr *StudentMgr) SubmitProposal(c *gin.Context) {
	var req SubmitProposalReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	token := util.GetToken(c)
	project := &model.Project{
		StudentID:   token.UserID,
		Title:       req.Title,
		Description: req.Description,
		Status:      model.ProjectPending,
		Deadline:    req.Deadline,
	}
	err := mgr.stores.Atomic(c, func(tx store.Stores) error {
		existing, err := tx.Projects().GetLatestByStudent(c, token.UserID)
		if err == nil {
			if existing.Status != model.ProjectRejected {
				return supervision.ErrAlreadyProcessed
			}
			// resubmission replaces the rejected proposal
			if err := tx.Projects().Delete(c, existing.ID); err != nil {
				return err
			}
		}
		return tx.Projects().Create(c, project)
	})
	if err != nil {
		if errors.Is(err, supervision.ErrAlreadyProcessed) {
			resputil.HTTPError(c, http.StatusConflict,
				"An active project already exists", resputil.ProposalPending)
			return
		}
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, project)
}

// UploadFiles godoc
// @Summary 上传项目文件
// @Description 将 multipart 文件上传到对象存储并记录元数据，需已分配导师
// @Tags Student
// @Accept mpfd
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[[]model.ProjectFile] "文件已上传"
// @Failure 403 {object} resputil.Response[any] "尚未分配导师"
// @Failure 404 {object} resputil.Response[any] "尚未提交项目"
// @Router /student/project/files [post]
func (mgr *StudentMgr) UploadFiles(c *gin.Context) {
	token := util.GetToken(c)
	student, err := mgr.stores.Users().GetByID(c, token.UserID)
	if err != nil || student.SupervisorID == nil {
		resputil.HTTPError(c, http.StatusForbidden, "Supervisor not assigned yet", resputil.UserNotAllowed)
		return
	}
	project, err := mgr.stores.Projects().GetLatestByStudent(c, token.UserID)
	if err != nil {
		resputil.HTTPError(c, http.StatusNotFound, "No project submitted yet", resputil.ProjectNotFound)
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	fileHeaders := form.File["files"]
	if len(fileHeaders) == 0 {
		resputil.BadRequestError(c, "no files in request")
		return
	}
	fileType := c.PostForm("fileType")
	if fileType == "" {
		fileType = "document"
	}

	var records []model.ProjectFile
	for _, fh := range fileHeaders {
		data, err := readMultipartFile(fh)
		if err != nil {
			resputil.BadRequestError(c, err.Error())
			return
		}
		objectName := buildObjectName(project.ID, fh.Filename)
		result, err := mgr.objectStore.Upload(c, objectName, fh.Header.Get("Content-Type"), data)
		if err != nil {
			klog.Errorf("upload %s for project %d: %v", fh.Filename, project.ID, err)
			resputil.Error(c, "File upload failed", resputil.NotSpecified)
			return
		}
		records = append(records, model.ProjectFile{
			ProjectID:    project.ID,
			FileType:     fileType,
			FileURL:      result.URL,
			StorageID:    result.FileID,
			OriginalName: fh.Filename,
			UploadedAt:   time.Now(),
		})
	}

	if err := mgr.stores.Projects().AddFiles(c, project.ID, records); err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, records)
}

// GetSupervisor godoc
// @Summary 当前导师
// @Tags Student
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[TeacherResp] "导师信息"
// @Failure 404 {object} resputil.Response[any] "尚未分配导师"
// @Router /student/supervisor [get]
func (mgr *StudentMgr) GetSupervisor(c *gin.Context) {
	token := util.GetToken(c)
	user, err := mgr.stores.Users().GetByID(c, token.UserID)
	if err != nil || user.Supervisor == nil {
		resputil.HTTPError(c, http.StatusNotFound, "Supervisor not assigned yet", resputil.UserNotFound)
		return
	}

	assigned, err := mgr.stores.Users().CountBySupervisor(c, user.Supervisor.ID)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, toTeacherResp(user.Supervisor, assigned))
}

// ListFeedback godoc
// @Summary 导师反馈列表
// @Description 返回当前项目的全部反馈，新到旧
// @Tags Student
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[[]model.Feedback] "反馈列表"
// @Failure 404 {object} resputil.Response[any] "尚未提交项目"
// @Router /student/feedback [get]
func (mgr *StudentMgr) ListFeedback(c *gin.Context) {
	token := util.GetToken(c)
	project, err := mgr.stores.Projects().GetLatestByStudent(c, token.UserID)
	if err != nil {
		resputil.HTTPError(c, http.StatusNotFound, "No project submitted yet", resputil.ProjectNotFound)
		return
	}
	resputil.Success(c, project.Feedback)
}

// UpcomingDeadlines godoc
// @Summary 即将到期的截止日期
// @Tags Student
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[any] "截止日期列表"
// @Router /student/deadlines [get]
func (mgr *StudentMgr) UpcomingDeadlines(c *gin.Context) {
	token := util.GetToken(c)
	projects, err := mgr.stores.Projects().ListUpcomingByStudent(c, token.UserID, time.Now(), 10)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}

	type deadlineResp struct {
		ProjectID uint      `json:"projectId"`
		Title     string    `json:"title"`
		Deadline  time.Time `json:"deadline"`
	}
	resp := lo.Map(projects, func(p model.Project, _ int) deadlineResp {
		return deadlineResp{ProjectID: p.ID, Title: p.Title, Deadline: *p.Deadline}
	})
	resputil.Success(c, resp)
}

type StudentDashboardResp struct {
	Project       *model.Project       `json:"project,omitempty"`
	Supervisor    *model.UserInfo      `json:"supervisor,omitempty"`
	Deadlines     []model.Deadline     `json:"deadlines"`
	Feedback      []model.Feedback     `json:"feedback"`
	Notifications []model.Notification `json:"notifications"`
}

// Dashboard godoc
// @Summary 学生工作台
// @Description 汇总项目状态、导师信息、最近截止日期、最新反馈和通知
// @Tags Student
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[StudentDashboardResp] "工作台数据"
// @Router /student/dashboard [get]
func (mgr *StudentMgr) Dashboard(c *gin.Context) {
	token := util.GetToken(c)
	resp := StudentDashboardResp{
		Deadlines:     []model.Deadline{},
		Feedback:      []model.Feedback{},
		Notifications: []model.Notification{},
	}

	if project, err := mgr.stores.Projects().GetLatestByStudent(c, token.UserID); err == nil {
		resp.Project = project
		resp.Feedback = lo.Slice(project.Feedback, 0, 2)
		if ds, err := mgr.stores.Deadlines().ListByProject(c, project.ID); err == nil {
			now := time.Now()
			upcoming := lo.Filter(ds, func(d model.Deadline, _ int) bool {
				return d.DueDate.After(now)
			})
			resp.Deadlines = lo.Slice(upcoming, 0, 3)
		}
	}
	if user, err := mgr.stores.Users().GetByID(c, token.UserID); err == nil && user.Supervisor != nil {
		info := user.Supervisor.Info()
		resp.Supervisor = &info
	}
	if ns, err := mgr.stores.Notifications().ListLatestByUser(c, token.UserID, 3); err == nil {
		resp.Notifications = ns
	}
	resputil.Success(c, resp)
}

func buildObjectName(projectID uint, filename string) string {
	base := filepath.Base(filename)
	return filepath.ToSlash(filepath.Join("projects", uitoa(projectID), base))
}
