package handler

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fyp-lab/mentor/dao/model"
	"github.com/fyp-lab/mentor/dao/store"
	"github.com/fyp-lab/mentor/internal/resputil"
	"github.com/fyp-lab/mentor/internal/util"
	"github.com/fyp-lab/mentor/pkg/objectstore"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewFileMgr)
}

// FileMgr relays project file downloads from object storage, so the
// storage credentials never reach the client.
type FileMgr struct {
	name        string
	stores      store.Stores
	objectStore *objectstore.Client
}

func NewFileMgr(conf *RegisterConfig) Manager {
	return &FileMgr{
		name:        "files",
		stores:      conf.Stores,
		objectStore: conf.ObjectStore,
	}
}

func (mgr *FileMgr) GetName() string { return mgr.name }

func (mgr *FileMgr) RegisterPublic(_ *gin.RouterGroup)  {}
func (mgr *FileMgr) RegisterStudent(_ *gin.RouterGroup) {}
func (mgr *FileMgr) RegisterTeacher(_ *gin.RouterGroup) {}
func (mgr *FileMgr) RegisterAdmin(_ *gin.RouterGroup)   {}

func (mgr *FileMgr) RegisterProtected(g *gin.RouterGroup) {
	g.GET("/projects/:id/files/:fileID", mgr.DownloadFile)
}

// DownloadFile godoc
// @Summary 下载项目文件
// @Description 校验访问权限后从对象存储转发文件内容
// @Tags File
// @Produce octet-stream
// @Security Bearer
// @Param id path int true "项目 ID"
// @Param fileID path int true "文件 ID"
// @Success 200 {file} binary "文件内容"
// @Failure 403 {object} resputil.Response[any] "无权访问"
// @Failure 404 {object} resputil.Response[any] "文件不存在"
// @Router /projects/{id}/files/{fileID} [get]
func (mgr *FileMgr) DownloadFile(c *gin.Context) {
	projectID, err := parseUintParam(c, "id")
	if err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	fileID, err := parseUintParam(c, "fileID")
	if err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	project, err := mgr.stores.Projects().GetByID(c, projectID)
	if err != nil {
		resputil.HTTPError(c, http.StatusNotFound, "Project not found", resputil.ProjectNotFound)
		return
	}

	token := util.GetToken(c)
	if !canAccessProject(&token, project) {
		resputil.HTTPError(c, http.StatusForbidden, "Access denied", resputil.UserNotAllowed)
		return
	}

	var file *model.ProjectFile
	for i := range project.Files {
		if project.Files[i].ID == fileID {
			file = &project.Files[i]
			break
		}
	}
	if file == nil {
		resputil.HTTPError(c, http.StatusNotFound, "File not found", resputil.ProjectNotFound)
		return
	}

	body, contentType, err := mgr.objectStore.Download(c, buildObjectName(project.ID, file.OriginalName))
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	defer body.Close()

	c.Header("Content-Disposition", `attachment; filename="`+file.OriginalName+`"`)
	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, body); err != nil {
		// headers are already out; nothing left to do but log via gin
		_ = c.Error(err)
	}
}

// canAccessProject allows the owning student, the assigned supervisor,
// and admins.
func canAccessProject(token *util.JWTMessage, project *model.Project) bool {
	if token.Role == model.RoleAdmin {
		return true
	}
	if project.StudentID == token.UserID {
		return true
	}
	return project.SupervisorID != nil && *project.SupervisorID == token.UserID
}

func parseUintParam(c *gin.Context, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Param(name), 10, 32)
	return uint(v), err
}

func uitoa(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}

func readMultipartFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
