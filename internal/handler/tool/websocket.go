// Package tool holds auxiliary handlers that sit outside the main REST
// resources, currently the websocket notification stream.
package tool

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"k8s.io/klog/v2"

	"github.com/fyp-lab/mentor/dao/store"
	"github.com/fyp-lab/mentor/internal/handler"
	"github.com/fyp-lab/mentor/internal/resputil"
	"github.com/fyp-lab/mentor/internal/util"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	handler.Registers = append(handler.Registers, NewWebsocketMgr)
}

type WebsocketMgr struct {
	name   string
	stores store.Stores
}

func NewWebsocketMgr(conf *handler.RegisterConfig) handler.Manager {
	return &WebsocketMgr{
		name:   "websocket",
		stores: conf.Stores,
	}
}

func (mgr *WebsocketMgr) GetName() string { return mgr.name }

func (mgr *WebsocketMgr) RegisterPublic(_ *gin.RouterGroup)  {}
func (mgr *WebsocketMgr) RegisterStudent(_ *gin.RouterGroup) {}
func (mgr *WebsocketMgr) RegisterTeacher(_ *gin.RouterGroup) {}
func (mgr *WebsocketMgr) RegisterAdmin(_ *gin.RouterGroup)   {}

func (mgr *WebsocketMgr) RegisterProtected(g *gin.RouterGroup) {
	g.GET("/notifications/ws", mgr.StreamNotifications)
}

const (
	// WriteTimeout specifies the maximum duration for completing a write operation.
	WriteTimeout = 10 * time.Second
	pollInterval = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// auth already happened in the bearer middleware
	CheckOrigin: func(_ *http.Request) bool { return true },
}

// StreamNotifications godoc
// @Summary 通知推送
// @Description 升级为 WebSocket 连接，周期性推送新的未读通知
// @Tags Notification
// @Security Bearer
// @Success 101 {string} string "Switching Protocols"
// @Router /notifications/ws [get]
func (mgr *WebsocketMgr) StreamNotifications(c *gin.Context) {
	token := util.GetToken(c)

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	defer ws.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			// the client never sends payloads; this read only detects close
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	since := time.Now()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			ns, err := mgr.stores.Notifications().ListUnreadSince(c, token.UserID, since)
			if err != nil {
				klog.Errorf("list unread for user %d: %v", token.UserID, err)
				continue
			}
			if len(ns) == 0 {
				continue
			}
			since = ns[len(ns)-1].CreatedAt

			if err := ws.SetWriteDeadline(time.Now().Add(WriteTimeout)); err != nil {
				return
			}
			if err := ws.WriteJSON(ns); err != nil {
				return
			}
		}
	}
}
