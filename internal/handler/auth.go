package handler

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	ldap "github.com/go-ldap/ldap/v3"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"k8s.io/klog/v2"

	"github.com/fyp-lab/mentor/dao/model"
	"github.com/fyp-lab/mentor/dao/store"
	"github.com/fyp-lab/mentor/internal/resputil"
	"github.com/fyp-lab/mentor/internal/util"
	"github.com/fyp-lab/mentor/pkg/alert"
	"github.com/fyp-lab/mentor/pkg/config"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewAuthMgr)
}

type AuthMgr struct {
	name     string
	stores   store.Stores
	tokenMgr *util.TokenManager
	alerter  alert.AlertInterface
}

func NewAuthMgr(conf *RegisterConfig) Manager {
	return &AuthMgr{
		name:     "auth",
		stores:   conf.Stores,
		tokenMgr: util.GetTokenMgr(),
		alerter:  conf.Alerter,
	}
}

func (mgr *AuthMgr) GetName() string { return mgr.name }

func (mgr *AuthMgr) RegisterPublic(g *gin.RouterGroup) {
	g.POST("/register", mgr.Register)
	g.POST("/login", mgr.Login)
	g.POST("/refresh", mgr.RefreshToken)
	g.POST("/forgot-password", mgr.ForgotPassword)
	g.PUT("/reset-password/:token", mgr.ResetPassword)
}

func (mgr *AuthMgr) RegisterProtected(g *gin.RouterGroup) {
	g.GET("/me", mgr.Me)
	g.POST("/logout", mgr.Logout)
	g.PUT("/profile", mgr.UpdateProfile)
}

func (mgr *AuthMgr) RegisterStudent(_ *gin.RouterGroup) {}
func (mgr *AuthMgr) RegisterTeacher(_ *gin.RouterGroup) {}
func (mgr *AuthMgr) RegisterAdmin(_ *gin.RouterGroup)   {}

type (
	RegisterReq struct {
		Name       string     `json:"name" binding:"required"`
		Email      string     `json:"email" binding:"required,email"`
		Password   string     `json:"password" binding:"required,min=6"`
		Role       model.Role `json:"role" binding:"required,oneof=Student Teacher"`
		Department *string    `json:"department"`
		Expertise  []string   `json:"expertise"`
	}

	LoginReq struct {
		Email      string     `json:"email" binding:"required,email"`                      // 邮箱
		Password   string     `json:"password" binding:"required"`                         // 密码
		Role       model.Role `json:"role" binding:"required,oneof=Student Teacher Admin"` // 登录角色
		AuthMethod string     `json:"auth"`                                                // 认证方式 [normal, ldap]，默认 normal
	}

	LoginResp struct {
		AccessToken  string     `json:"accessToken"`
		RefreshToken string     `json:"refreshToken"`
		User         UserResp   `json:"user"`
		Role         model.Role `json:"role"`
	}

	UserResp struct {
		ID         uint            `json:"id"`
		Name       string          `json:"name"`
		Email      string          `json:"email"`
		Role       model.Role      `json:"role"`
		Department *string         `json:"department,omitempty"`
		Expertise  []string        `json:"expertise,omitempty"`
		Supervisor *model.UserInfo `json:"supervisor,omitempty"`
	}
)

const (
	AuthMethodNormal = "normal"
	AuthMethodLDAP   = "ldap"

	tokenCookieName  = "token"
	resetTokenExpiry = 15 * time.Minute
)

func toUserResp(u *model.User) UserResp {
	resp := UserResp{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Role:       u.Role,
		Department: u.Department,
		Expertise:  u.Expertise,
	}
	if u.Supervisor != nil {
		info := u.Supervisor.Info()
		resp.Supervisor = &info
	}
	return resp
}

// Register godoc
// @Summary 用户注册
// @Description 创建学生或导师账号，返回 JWT Token
// @Tags Auth
// @Accept json
// @Produce json
// @Param data body RegisterReq true "注册信息"
// @Success 200 {object} resputil.Response[LoginResp] "注册成功"
// @Failure 400 {object} resputil.Response[any] "请求参数错误"
// @Failure 409 {object} resputil.Response[any] "邮箱已被占用"
// @Router /register [post]
func (mgr *AuthMgr) Register(c *gin.Context) {
	var req RegisterReq
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
	if err := mgr.stores.Users().Create(c, user); err != nil {
		klog.Errorf("create user %s: %v", req.Email, err)
		resputil.Error(c, "Create user failed", resputil.NotSpecified)
		return
	}

	mgr.respondWithTokens(c, user)
}

// Login godoc
// @Summary 用户登录
// @Description 校验用户身份，生成 JWT Token
// @Tags Auth
// @Accept json
// @Produce json
// @Param data body LoginReq false "登录参数"
// @Success 200 {object} resputil.Response[LoginResp] "登录成功，返回 JWT Token"
// @Failure 400 {object} resputil.Response[any] "请求参数错误"
// @Failure 401 {object} resputil.Response[any] "邮箱、密码或角色错误"
// @Router /login [post]
func (mgr *AuthMgr) Login(c *gin.Context) {
	var req LoginReq
	if err := c.ShouldBind(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	// the account must exist under the requested role
	user, err := mgr.stores.Users().GetByEmailAndRole(c, req.Email, req.Role)
	if err != nil {
		resputil.HTTPError(c, http.StatusUnauthorized, "Invalid credentials", resputil.InvalidCredentials)
		return
	}

	switch req.AuthMethod {
	case AuthMethodLDAP:
		if err := mgr.ldapAuth(user.Email, req.Password); err != nil {
			klog.Errorf("ldap auth for %s: %v", req.Email, err)
			resputil.HTTPError(c, http.StatusUnauthorized, "Invalid credentials", resputil.InvalidCredentials)
			return
		}
	case AuthMethodNormal, "":
		if err := mgr.normalAuth(user, req.Password); err != nil {
			resputil.HTTPError(c, http.StatusUnauthorized, "Invalid credentials", resputil.InvalidCredentials)
			return
		}
	default:
		resputil.HTTPError(c, http.StatusBadRequest, "Invalid auth method", resputil.InvalidRequest)
		return
	}

	mgr.respondWithTokens(c, user)
}

func (mgr *AuthMgr) respondWithTokens(c *gin.Context, user *model.User) {
	jwtMessage := util.JWTMessage{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
		Role:   user.Role,
	}
	accessToken, refreshToken, err := mgr.tokenMgr.CreateTokens(&jwtMessage)
	if err != nil {
		resputil.HTTPError(c, http.StatusInternalServerError, err.Error(), resputil.NotSpecified)
		return
	}

	// cookie kept for parity with the web frontend; API auth is bearer-based
	c.SetCookie(tokenCookieName, accessToken, int(time.Hour.Seconds()), "/", "", false, true)
	resputil.Success(c, LoginResp{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         toUserResp(user),
		Role:         user.Role,
	})
}

func (mgr *AuthMgr) normalAuth(user *model.User, password string) error {
	if user.Password == nil {
		return fmt.Errorf("user does not have a password")
	}
	if bcrypt.CompareHashAndPassword([]byte(*user.Password), []byte(password)) != nil {
		return fmt.Errorf("wrong email or password")
	}
	return nil
}

func (mgr *AuthMgr) ldapAuth(email, password string) error {
	authConfig := config.GetConfig()
	if !authConfig.Auth.LDAP.Enable {
		return errors.New("ldap auth is disabled")
	}
	l, err := ldap.DialURL(authConfig.Auth.LDAP.Address)
	if err != nil {
		return err
	}
	defer l.Close()

	searchRequest := ldap.NewSearchRequest(
		authConfig.Auth.LDAP.SearchDN,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, 0, false,
		fmt.Sprintf("(mail=%s)", ldap.EscapeFilter(email)),
		[]string{"dn"},
		nil,
	)
	searchResult, err := l.Search(searchRequest)
	if err != nil {
		return err
	}
	if len(searchResult.Entries) != 1 {
		return fmt.Errorf("user not found or too many entries returned")
	}
	return l.Bind(searchResult.Entries[0].DN, password)
}

type (
	RefreshReq struct {
		RefreshToken string `json:"refreshToken" binding:"required"` // 不需要添加 `Bearer ` 前缀
	}

	RefreshResp struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
)

// RefreshToken godoc
// @Summary 刷新 Token
// @Description 使用 Refresh Token 换取新的 Token 对
// @Tags Auth
// @Accept json
// @Produce json
// @Param data body RefreshReq true "Refresh Token"
// @Success 200 {object} resputil.Response[RefreshResp] "刷新成功"
// @Failure 401 {object} resputil.Response[any] "Token 无效或过期"
// @Router /refresh [post]
func (mgr *AuthMgr) RefreshToken(c *gin.Context) {
	var req RefreshReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	msg, err := mgr.tokenMgr.CheckRefreshToken(req.RefreshToken)
	if err != nil {
		resputil.HTTPError(c, http.StatusUnauthorized, err.Error(), resputil.TokenExpired)
		return
	}

	// re-read the user so a role change invalidates old refresh tokens
	user, err := mgr.stores.Users().GetByID(c, msg.UserID)
	if err != nil || user.Role != msg.Role {
		resputil.HTTPError(c, http.StatusUnauthorized, "Invalid token", resputil.TokenInvalid)
		return
	}

	accessToken, refreshToken, err := mgr.tokenMgr.CreateTokens(&msg)
	if err != nil {
		resputil.HTTPError(c, http.StatusInternalServerError, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, RefreshResp{AccessToken: accessToken, RefreshToken: refreshToken})
}

type ForgotPasswordReq struct {
	Email string `json:"email" binding:"required,email"`
}

// ForgotPassword godoc
// @Summary 忘记密码
// @Description 生成重置链接并发送邮件，15 分钟内有效
// @Tags Auth
// @Accept json
// @Produce json
// @Param data body ForgotPasswordReq true "邮箱"
// @Success 200 {object} resputil.Response[string] "邮件已发送"
// @Failure 404 {object} resputil.Response[any] "用户不存在"
// @Router /forgot-password [post]
func (mgr *AuthMgr) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	user, err := mgr.stores.Users().GetByEmail(c, req.Email)
	if err != nil {
		resputil.HTTPError(c, http.StatusNotFound, "No user with that email", resputil.UserNotFound)
		return
	}

	rawToken := uuid.New().String()
	hash := hashResetToken(rawToken)
	expire := time.Now().Add(resetTokenExpiry)
	user.ResetPasswordToken = &hash
	user.ResetPasswordExpire = &expire
	if err := mgr.stores.Users().Update(c, user); err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}

	resetURL := fmt.Sprintf("%s/reset-password/%s", config.GetConfig().FrontendURL, rawToken)
	if mgr.alerter != nil {
		if err := mgr.alerter.PasswordReset(c, user, resetURL); err != nil {
			// roll the token back so a stale one cannot linger
			user.ResetPasswordToken = nil
			user.ResetPasswordExpire = nil
			if uerr := mgr.stores.Users().Update(c, user); uerr != nil {
				klog.Errorf("clear reset token for %s: %v", user.Email, uerr)
			}
			resputil.Error(c, "Email could not be sent", resputil.NotSpecified)
			return
		}
	}
	resputil.Success(c, "Email sent")
}

type ResetPasswordReq struct {
	Password string `json:"password" binding:"required,min=6"`
}

// ResetPassword godoc
// @Summary 重置密码
// @Description 通过邮件中的重置链接设置新密码
// @Tags Auth
// @Accept json
// @Produce json
// @Param token path string true "重置令牌"
// @Param data body ResetPasswordReq true "新密码"
// @Success 200 {object} resputil.Response[LoginResp] "重置成功"
// @Failure 400 {object} resputil.Response[any] "令牌无效或过期"
// @Router /reset-password/{token} [put]
func (mgr *AuthMgr) ResetPassword(c *gin.Context) {
	var req ResetPasswordReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	hash := hashResetToken(c.Param("token"))
	user, err := mgr.stores.Users().GetByResetToken(c, hash, time.Now())
	if err != nil {
		resputil.HTTPError(c, http.StatusBadRequest, "Invalid or expired token", resputil.ResetTokenInvalid)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	password := string(hashed)
	user.Password = &password
	user.ResetPasswordToken = nil
	user.ResetPasswordExpire = nil
	if err := mgr.stores.Users().Update(c, user); err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}

	mgr.respondWithTokens(c, user)
}

// Me godoc
// @Summary 当前用户信息
// @Description 返回当前登录用户的档案
// @Tags Auth
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[UserResp] "成功获取用户信息"
// @Failure 401 {object} resputil.Response[any] "未登录"
// @Router /me [get]
func (mgr *AuthMgr) Me(c *gin.Context) {
	token := util.GetToken(c)
	user, err := mgr.stores.Users().GetByID(c, token.UserID)
	if err != nil {
		resputil.HTTPError(c, http.StatusNotFound, "User not found", resputil.UserNotFound)
		return
	}
	resputil.Success(c, toUserResp(user))
}

type UpdateProfileReq struct {
	Name       *string  `json:"name"`
	Department *string  `json:"department"`
	Expertise  []string `json:"expertise"`
	Password   *string  `json:"password" binding:"omitempty,min=6"`
}

// UpdateProfile godoc
// @Summary 更新个人档案
// @Description 更新姓名、院系、研究方向或密码
// @Tags Auth
// @Accept json
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[UserResp] "更新成功"
// @Failure 400 {object} resputil.Response[any] "请求参数错误"
// @Router /profile [put]
func (mgr *AuthMgr) UpdateProfile(c *gin.Context) {
	var req UpdateProfileReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	token := util.GetToken(c)
	user, err := mgr.stores.Users().GetByID(c, token.UserID)
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
	if req.Password != nil {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			resputil.Error(c, err.Error(), resputil.NotSpecified)
			return
		}
		password := string(hashed)
		user.Password = &password
	}
	if err := mgr.stores.Users().Update(c, user); err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, toUserResp(user))
}

// Logout godoc
// @Summary 退出登录
// @Description 清除登录 Cookie
// @Tags Auth
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[string] "退出成功"
// @Router /logout [post]
func (mgr *AuthMgr) Logout(c *gin.Context) {
	c.SetCookie(tokenCookieName, "", -1, "/", "", false, true)
	resputil.Success(c, "Logged out")
}

func hashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
