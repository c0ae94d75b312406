package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fyp-lab/mentor/dao/model"
	"github.com/fyp-lab/mentor/dao/store"
	"github.com/fyp-lab/mentor/internal/resputil"
	"github.com/fyp-lab/mentor/internal/util"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewNotificationMgr)
}

type NotificationMgr struct {
	name   string
	stores store.Stores
}

func NewNotificationMgr(conf *RegisterConfig) Manager {
	return &NotificationMgr{
		name:   "notifications",
		stores: conf.Stores,
	}
}

func (mgr *NotificationMgr) GetName() string { return mgr.name }

func (mgr *NotificationMgr) RegisterPublic(_ *gin.RouterGroup)  {}
func (mgr *NotificationMgr) RegisterStudent(_ *gin.RouterGroup) {}
func (mgr *NotificationMgr) RegisterTeacher(_ *gin.RouterGroup) {}

func (mgr *NotificationMgr) RegisterProtected(g *gin.RouterGroup) {
	g.GET("/notifications", mgr.List)
	g.PUT("/notifications/:id/read", mgr.MarkRead)
	g.PUT("/notifications/read-all", mgr.MarkAllRead)
	g.DELETE("/notifications/:id", mgr.Delete)
	g.DELETE("/notifications", mgr.DeleteAll)
}

func (mgr *NotificationMgr) RegisterAdmin(g *gin.RouterGroup) {
	g.GET("/notifications", mgr.ListRequestNotifications)
}

type NotificationListResp struct {
	Notifications []model.Notification `json:"notifications"`
	Unread        int                  `json:"unread"`
	Read          int                  `json:"read"`
	HighPriority  int                  `json:"highPriority"`
	ThisWeek      int                  `json:"thisWeek"`
}

// List godoc
// @Summary 通知列表
// @Description 返回当前用户的全部通知（新到旧）及未读、高优先级、本周统计
// @Tags Notification
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[NotificationListResp] "通知列表"
// @Router /notifications [get]
func (mgr *NotificationMgr) List(c *gin.Context) {
	token := util.GetToken(c)
	ns, err := mgr.stores.Notifications().ListByUser(c, token.UserID)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}

	weekAgo := time.Now().AddDate(0, 0, -7)
	resp := NotificationListResp{Notifications: ns}
	for i := range ns {
		if ns[i].IsRead {
			resp.Read++
		} else {
			resp.Unread++
		}
		if ns[i].Priority == model.PriorityHigh {
			resp.HighPriority++
		}
		if ns[i].CreatedAt.After(weekAgo) {
			resp.ThisWeek++
		}
	}
	resputil.Success(c, resp)
}

// MarkRead godoc
// @Summary 标记通知已读
// @Description 仅能操作属于自己的通知；他人的通知 ID 返回 404
// @Tags Notification
// @Produce json
// @Security Bearer
// @Param id path int true "通知 ID"
// @Success 200 {object} resputil.Response[model.Notification] "已标记"
// @Failure 404 {object} resputil.Response[any] "通知不存在"
// @Router /notifications/{id}/read [put]
func (mgr *NotificationMgr) MarkRead(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	token := util.GetToken(c)
	n, err := mgr.stores.Notifications().MarkRead(c, id, token.UserID)
	if err != nil {
		resputil.HTTPError(c, http.StatusNotFound, "Notification not found", resputil.NotSpecified)
		return
	}
	resputil.Success(c, n)
}

// MarkAllRead godoc
// @Summary 全部标记已读
// @Tags Notification
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[string] "已全部标记"
// @Router /notifications/read-all [put]
func (mgr *NotificationMgr) MarkAllRead(c *gin.Context) {
	token := util.GetToken(c)
	if err := mgr.stores.Notifications().MarkAllRead(c, token.UserID); err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, "All notifications marked as read")
}

// Delete godoc
// @Summary 删除通知
// @Tags Notification
// @Produce json
// @Security Bearer
// @Param id path int true "通知 ID"
// @Success 200 {object} resputil.Response[string] "已删除"
// @Failure 404 {object} resputil.Response[any] "通知不存在"
// @Router /notifications/{id} [delete]
func (mgr *NotificationMgr) Delete(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	token := util.GetToken(c)
	if err := mgr.stores.Notifications().Delete(c, id, token.UserID); err != nil {
		resputil.HTTPError(c, http.StatusNotFound, "Notification not found", resputil.NotSpecified)
		return
	}
	resputil.Success(c, "Notification deleted")
}

// DeleteAll godoc
// @Summary 清空通知
// @Tags Notification
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[string] "已清空"
// @Router /notifications [delete]
func (mgr *NotificationMgr) DeleteAll(c *gin.Context) {
	token := util.GetToken(c)
	if err := mgr.stores.Notifications().DeleteAll(c, token.UserID); err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, "All notifications deleted")
}

// ListRequestNotifications godoc
// @Summary 申请类通知
// @Description 管理员视角只关心指导申请相关的通知
// @Tags Notification
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[[]model.Notification] "通知列表"
// @Router /admin/notifications [get]
func (mgr *NotificationMgr) ListRequestNotifications(c *gin.Context) {
	ns, err := mgr.stores.Notifications().ListByTypes(c, []model.NotificationType{model.NotifyRequest})
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, ns)
}
