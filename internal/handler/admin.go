package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"k8s.io/klog/v2"

	"github.com/fyp-lab/mentor/dao/model"
	"github.com/fyp-lab/mentor/dao/store"
	"github.com/fyp-lab/mentor/internal/resputil"
	"github.com/fyp-lab/mentor/internal/supervision"
	"github.com/fyp-lab/mentor/internal/util"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewAdminMgr)
}

type AdminMgr struct {
	name     string
	stores   store.Stores
	workflow *supervision.Workflow
}

func NewAdminMgr(conf *RegisterConfig) Manager {
	return &AdminMgr{
		name:     "admin",
		stores:   conf.Stores,
		workflow: conf.Workflow,
	}
}

func (mgr *AdminMgr) GetName() string { return mgr.name }

func (mgr *AdminMgr) RegisterPublic(_ *gin.RouterGroup)    {}
func (mgr *AdminMgr) RegisterProtected(_ *gin.RouterGroup) {}
func (mgr *AdminMgr) RegisterStudent(_ *gin.RouterGroup)   {}
func (mgr *AdminMgr) RegisterTeacher(_ *gin.RouterGroup)   {}

func (mgr *AdminMgr) RegisterAdmin(g *gin.RouterGroup) {
	g.GET("/users", mgr.ListUsers)
	g.POST("/users", mgr.CreateUser)
	g.PUT("/users/:id", mgr.UpdateUser)
	g.DELETE("/users/:id", mgr.DeleteUser)

	g.GET("/projects", mgr.ListProjects)
	g.GET("/projects/:id", mgr.GetProject)
	g.PUT("/projects/:id/approve", mgr.ApproveProject)
	g.PUT("/projects/:id/reject", mgr.RejectProject)
	g.PUT("/projects/:id/deadline", mgr.SetDeadline)
	g.PUT("/deadlines/:id", mgr.UpdateDeadline)

	g.POST("/assign", mgr.AssignSupervisor)
	g.GET("/dashboard", mgr.Dashboard)
}

// ListUsers godoc
// @Summary 账号列表
// @Description 返回全部学生和导师账号
// @Tags Admin
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[[]UserResp] "账号列表"
// @Router /admin/users [get]
func (mgr *AdminMgr) ListUsers(c *gin.Context) {
	users, err := mgr.stores.Users().ListNonAdmin(c)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}

	resp := make([]UserResp, 0, len(users))
	for i := range users {
		resp = append(resp, toUserResp(&users[i]))
	}
	resputil.Success(c, resp)
}

type CreateUserReq struct {
	Name        string     `json:"name" binding:"required"`
	Email       string     `json:"email" binding:"required,email"`
	Password    string     `json:"password" binding:"required,min=6"`
	Role        model.Role `json:"role" binding:"required,oneof=Student Teacher Admin"`
	Department  *string    `json:"department"`
	Expertise   []string   `json:"expertise"`
	MaxStudents int        `json:"maxStudents"`
}

// CreateUser godoc
// @Summary 创建账号
// @Description 管理员创建任意角色的账号
// @Tags Admin
// @Accept json
// @Produce json
// @Security Bearer
// @Param data body CreateUserReq true "账号信息"
// @Success 200 {object} resputil.Response[UserResp] "创建成功"
// @Failure 409 {object} resputil.Response[any] "邮箱已被占用"
// @Router /admin/users [post]
func (mgr *AdminMgr) CreateUser(c *gin.Context) {
	var req CreateUserReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	if _, err := mgr.stores.Users().GetByEmail(c, req.Email); err == nil {
		resputil.HTTPError(c, http.StatusConflict, "Email already registered", resputil.EmailTaken)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	password := string(hashed)

	user := &model.User{
		Name:       req.Name,
		Email:      req.Email,
		Password:   &password,
		Role:       req.Role,
		Department: req.Department,
		Expertise:  req.Expertise,
	}
	if req.Role == model.RoleTeacher && req.MaxStudents > 0 {
		user.MaxStudents = req.MaxStudents
	}
	if err := mgr.stores.Users().Create(c, user); err != nil {
		klog.Errorf("create user %s: %v", req.Email, err)
		resputil.Error(c, "Create user failed", resputil.NotSpecified)
		return
	}
	resputil.Success(c, toUserResp(user))
}

type UpdateUserReq struct {
	Name        *string  `json:"name"`
	Department  *string  `json:"department"`
	Expertise   []string `json:"expertise"`
	MaxStudents *int     `json:"maxStudents" binding:"omitempty,min=1"`
}

// UpdateUser godoc
// @Summary 更新账号
// @Tags Admin
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "账号 ID"
// @Param data body UpdateUserReq true "更新字段"
// @Success 200 {object} resputil.Response[UserResp] "更新成功"
// @Failure 404 {object} resputil.Response[any] "账号不存在"
// @Router /admin/users/{id} [put]
func (mgr *AdminMgr) UpdateUser(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var req UpdateUserReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	user, err := mgr.stores.Users().GetByID(c, id)
	if err != nil {
		resputil.HTTPError(c, http.StatusNotFound, "User not found", resputil.UserNotFound)
		return
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Department != nil {
		user.Department = req.Department
	}
	if req.Expertise != nil {
		user.Expertise = req.Expertise
	}
	if req.MaxStudents != nil && user.Role == model.RoleTeacher {
		// shrinking below the current assignment count is allowed; it
		// only blocks new assignments
		user.MaxStudents = *req.MaxStudents
	}
	if err := mgr.stores.Users().Update(c, user); err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, toUserResp(user))
}

// DeleteUser godoc
// @Summary 删除账号
// @Description 删除导师时其学生被解除指导关系而不是成为孤儿引用
// @Tags Admin
// @Produce json
// @Security Bearer
// @Param id path int true "账号 ID"
// @Success 200 {object} resputil.Response[string] "删除成功"
// @Failure 404 {object} resputil.Response[any] "账号不存在"
// @Router /admin/users/{id} [delete]
func (mgr *AdminMgr) DeleteUser(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	user, err := mgr.stores.Users().GetByID(c, id)
	if err != nil {
		resputil.HTTPError(c, http.StatusNotFound, "User not found", resputil.UserNotFound)
		return
	}

	err = mgr.stores.Atomic(c, func(tx store.Stores) error {
		if user.Role == model.RoleTeacher {
			if err := tx.Users().DetachSupervisor(c, user.ID); err != nil {
				return err
			}
			if err := tx.Projects().DetachSupervisor(c, user.ID); err != nil {
				return err
			}
		}
		return tx.Users().Delete(c, user.ID)
	})
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, "User deleted")
}

// ListProjects godoc
// @Summary 项目列表
// @Tags Admin
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[[]model.Project] "项目列表"
// @Router /admin/projects [get]
func (mgr *AdminMgr) ListProjects(c *gin.Context) {
	projects, err := mgr.stores.Projects().ListAll(c)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, projects)
}

// GetProject godoc
// @Summary 查看单个项目
// @Description 返回项目详情，供审批页面使用
// @Tags Admin
// @Produce json
// @Security Bearer
// @Param id path int true "项目 ID"
// @Success 200 {object} resputil.Response[model.Project] "项目详情"
// @Failure 404 {object} resputil.Response[any] "项目不存在"
// @Router /admin/projects/{id} [get]
func (mgr *AdminMgr) GetProject(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	project, err := mgr.stores.Projects().GetByID(c, id)
	if err != nil {
		resputil.HTTPError(c, http.StatusNotFound, "Project not found", resputil.ProjectNotFound)
		return
	}
	resputil.Success(c, project)
}

// ApproveProject godoc
// @Summary 批准项目提案
// @Tags Admin
// @Produce json
// @Security Bearer
// @Param id path int true "项目 ID"
// @Success 200 {object} resputil.Response[model.Project] "已批准"
// @Failure 409 {object} resputil.Response[any] "状态不是待审批"
// @Router /admin/projects/{id}/approve [put]
func (mgr *AdminMgr) ApproveProject(c *gin.Context) {
	mgr.transitionProject(c, model.ProjectApproved,
		"Your project proposal has been approved", model.NotifyApproval, model.PriorityLow)
}

// RejectProject godoc
// @Summary 拒绝项目提案
// @Tags Admin
// @Produce json
// @Security Bearer
// @Param id path int true "项目 ID"
// @Success 200 {object} resputil.Response[model.Project] "已拒绝"
// @Failure 409 {object} resputil.Response[any] "状态不是待审批"
// @Router /admin/projects/{id}/reject [put]
func (mgr *AdminMgr) RejectProject(c *gin.Context) {
	mgr.transitionProject(c, model.ProjectRejected,
		"Your project proposal has been rejected. You may submit a new one.",
		model.NotifyRejection, model.PriorityHigh)
}

func (mgr *AdminMgr) transitionProject(
	c *gin.Context, target model.ProjectStatus,
	message string, typ model.NotificationType, priority model.Priority,
) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	project, err := mgr.stores.Projects().GetByID(c, id)
	if err != nil {
		resputil.HTTPError(c, http.StatusNotFound, "Project not found", resputil.ProjectNotFound)
		return
	}
	if project.Status != model.ProjectPending {
		resputil.HTTPError(c, http.StatusConflict, "Project is not pending review", resputil.AlreadyProcessed)
		return
	}

	project.Status = target
	if err := mgr.stores.Projects().Update(c, project); err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}

	link := "/student/project"
	n := &model.Notification{
		UserID:   project.StudentID,
		Message:  message,
		Type:     typ,
		Priority: priority,
		Link:     &link,
	}
	if err := mgr.stores.Notifications().Create(c, n); err != nil {
		klog.Errorf("create notification for user %d: %v", project.StudentID, err)
	}
	resputil.Success(c, project)
}

type SetDeadlineReq struct {
	Name    string    `json:"name" binding:"required"`
	DueDate time.Time `json:"dueDate" binding:"required"`
}

// SetDeadline godoc
// @Summary 设置项目截止日期
// @Description 写入截止日期记录并同步到项目字段
// @Tags Admin
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "项目 ID"
// @Param data body SetDeadlineReq true "截止日期"
// @Success 200 {object} resputil.Response[model.Deadline] "设置成功"
// @Failure 404 {object} resputil.Response[any] "项目不存在"
// @Router /admin/projects/{id}/deadline [put]
func (mgr *AdminMgr) SetDeadline(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var req SetDeadlineReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	token := util.GetToken(c)
	project, err := mgr.stores.Projects().GetByID(c, id)
	if err != nil {
		resputil.HTTPError(c, http.StatusNotFound, "Project not found", resputil.ProjectNotFound)
		return
	}

	deadline := &model.Deadline{
		Name:      req.Name,
		DueDate:   req.DueDate,
		CreatedBy: token.UserID,
		ProjectID: project.ID,
	}
	err = mgr.stores.Atomic(c, func(tx store.Stores) error {
		if err := tx.Deadlines().Create(c, deadline); err != nil {
			return err
		}
		// the project carries the nearest due date for cheap lookups
		if project.Deadline == nil || req.DueDate.Before(*project.Deadline) {
			project.Deadline = &req.DueDate
			return tx.Projects().Update(c, project)
		}
		return nil
	})
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}

	link := "/student/project"
	n := &model.Notification{
		UserID:   project.StudentID,
		Message:  "A deadline has been set for your project: " + req.Name,
		Type:     model.NotifyDeadline,
		Priority: model.PriorityMedium,
		Link:     &link,
	}
	if err := mgr.stores.Notifications().Create(c, n); err != nil {
		klog.Errorf("create notification for user %d: %v", project.StudentID, err)
	}
	resputil.Success(c, deadline)
}

type UpdateDeadlineReq struct {
	Name    *string    `json:"name"`
	DueDate *time.Time `json:"dueDate"`
}

// UpdateDeadline godoc
// @Summary 修改截止日期
// @Description 更新截止日期记录并重新计算项目上冗余的最近截止时间
// @Tags Admin
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "截止日期 ID"
// @Param data body UpdateDeadlineReq true "修改内容"
// @Success 200 {object} resputil.Response[model.Deadline] "修改成功"
// @Failure 404 {object} resputil.Response[any] "截止日期不存在"
// @Router /admin/deadlines/{id} [put]
func (mgr *AdminMgr) UpdateDeadline(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var req UpdateDeadlineReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	deadline, err := mgr.stores.Deadlines().GetByID(c, id)
	if err != nil {
		resputil.HTTPError(c, http.StatusNotFound, "Deadline not found", resputil.NotSpecified)
		return
	}
	if req.Name != nil {
		deadline.Name = *req.Name
	}
	if req.DueDate != nil {
		deadline.DueDate = *req.DueDate
	}

	err = mgr.stores.Atomic(c, func(tx store.Stores) error {
		if err := tx.Deadlines().Update(c, deadline); err != nil {
			return err
		}
		project, err := tx.Projects().GetByID(c, deadline.ProjectID)
		if err != nil {
			return err
		}
		// moving a date can change which deadline is nearest
		ds, err := tx.Deadlines().ListByProject(c, deadline.ProjectID)
		if err != nil {
			return err
		}
		if len(ds) > 0 {
			project.Deadline = &ds[0].DueDate
		} else {
			project.Deadline = nil
		}
		return tx.Projects().Update(c, project)
	})
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, deadline)
}

type AssignSupervisorReq struct {
	StudentID    uint `json:"studentId" binding:"required"`
	SupervisorID uint `json:"supervisorId" binding:"required"`
}

// AssignSupervisor godoc
// @Summary 直接分配导师
// @Description 绕过申请流程直接建立指导关系；项目必须已批准
// @Tags Admin
// @Accept json
// @Produce json
// @Security Bearer
// @Param data body AssignSupervisorReq true "分配参数"
// @Success 200 {object} resputil.Response[string] "分配成功"
// @Failure 404 {object} resputil.Response[any] "学生、导师或项目不存在"
// @Failure 409 {object} resputil.Response[any] "容量已满或已有导师"
// @Router /admin/assign [post]
func (mgr *AdminMgr) AssignSupervisor(c *gin.Context) {
	var req AssignSupervisorReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	if err := mgr.workflow.AssignDirect(c, req.StudentID, req.SupervisorID); err != nil {
		respondWorkflowError(c, err)
		return
	}
	resputil.Success(c, "Supervisor assigned")
}

type AdminDashboardResp struct {
	Students          int64 `json:"students"`
	Teachers          int64 `json:"teachers"`
	Projects          int64 `json:"projects"`
	PendingProjects   int64 `json:"pendingProjects"`
	CompletedProjects int64 `json:"completedProjects"`
	PendingRequests   int64 `json:"pendingRequests"`
}

// Dashboard godoc
// @Summary 管理员工作台
// @Tags Admin
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[AdminDashboardResp] "统计数据"
// @Router /admin/dashboard [get]
func (mgr *AdminMgr) Dashboard(c *gin.Context) {
	var resp AdminDashboardResp
	var err error
	if resp.Students, err = mgr.stores.Users().CountByRole(c, model.RoleStudent); err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	if resp.Teachers, err = mgr.stores.Users().CountByRole(c, model.RoleTeacher); err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	if resp.Projects, err = mgr.stores.Projects().CountAll(c); err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	if resp.PendingProjects, err = mgr.stores.Projects().CountByStatus(c, model.ProjectPending); err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	if resp.CompletedProjects, err = mgr.stores.Projects().CountByStatus(c, model.ProjectCompleted); err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	if resp.PendingRequests, err = mgr.stores.Requests().CountPending(c); err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, resp)
}
