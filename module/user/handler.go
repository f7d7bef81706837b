package user

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"chatwave/data/redisx"
	"chatwave/logger"
	"chatwave/middleware"
	"chatwave/module/user/model"
	"chatwave/module/user/service"
	"chatwave/service/queue"
	"chatwave/tools/security"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

// OTPIssuer abstracts the code store so handlers are testable without redis.
type OTPIssuer interface {
	Issue(ctx context.Context, email string) (code string, ok bool, err error)
	Verify(ctx context.Context, email, code string) (bool, error)
}

// Publisher sends mail jobs to the queue.
type Publisher interface {
	Publish(subject string, v any) error
}

// Store is the slice of the user service the handlers need.
type Store interface {
	FindOrCreate(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	All(ctx context.Context) ([]model.User, error)
	UpdateName(ctx context.Context, id, name string) (*model.User, error)
}

type Handler struct {
	svc Store
	otp OTPIssuer
	pub Publisher
	jwt security.Options
}

var _ OTPIssuer = (*redisx.OTPStore)(nil)
var _ Publisher = (*queue.Client)(nil)
var _ Store = (*service.Service)(nil)

func NewHandler(svc Store, otp OTPIssuer, pub Publisher, jwt security.Options) *Handler {
	return &Handler{svc: svc, otp: otp, pub: pub, jwt: jwt}
}

// Register mounts the user routes under /api/v1.
func (h *Handler) Register(r *gin.Engine) {
	auth := middleware.Auth(h.jwt)
	v1 := r.Group("/api/v1")
	v1.POST("/login", h.Login)
	v1.POST("/verify", h.Verify)
	v1.GET("/me", auth, h.Me)
	v1.GET("/user/all", auth, h.AllUsers)
	v1.GET("/user/:id", h.GetUser)
	v1.POST("/update/user", auth, h.UpdateName)
}

type loginReq struct {
	Email string `json:"email"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil || !strings.Contains(req.Email, "@") {
		c.JSON(http.StatusBadRequest, gin.H{"message": "valid email required"})
		return
	}

	code, ok, err := h.otp.Issue(c.Request.Context(), req.Email)
	if err != nil {
		logger.Errorf("[user] issue otp: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to issue OTP"})
		return
	}
	if !ok {
		c.JSON(http.StatusTooManyRequests, gin.H{"message": "too many requests, please wait before requesting a new OTP"})
		return
	}

	job := queue.MailJob{
		To:      req.Email,
		Subject: "Your OTP code",
		Body:    fmt.Sprintf("Your OTP is %s, valid for 5 minutes", code),
	}
	if err := h.pub.Publish(queue.SubjectSendOTP, job); err != nil {
		logger.Errorf("[user] publish otp job: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to queue OTP mail"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "OTP sent to your mail"})
}

type verifyReq struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

func (h *Handler) Verify(c *gin.Context) {
	var req verifyReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.OTP == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "email and OTP required"})
		return
	}

	ok, err := h.otp.Verify(c.Request.Context(), req.Email, req.OTP)
	if err != nil {
		logger.Errorf("[user] verify otp: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to verify OTP"})
		return
	}
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid or expired OTP"})
		return
	}

	u, err := h.svc.FindOrCreate(c.Request.Context(), req.Email)
	if err != nil {
		logger.Errorf("[user] find or create: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to load user"})
		return
	}

	token, _, err := security.Generate(h.jwt, u.ID)
	if err != nil {
		logger.Errorf("[user] sign token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to sign token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "user verified", "user": u, "token": token})
}

func (h *Handler) Me(c *gin.Context) {
	u, err := h.svc.FindByID(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.userError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) AllUsers(c *gin.Context) {
	users, err := h.svc.All(c.Request.Context())
	if err != nil {
		logger.Errorf("[user] list: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to list users"})
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *Handler) GetUser(c *gin.Context) {
	u, err := h.svc.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.userError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

type updateNameReq struct {
	Name string `json:"name"`
}

func (h *Handler) UpdateName(c *gin.Context) {
	var req updateNameReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "name required"})
		return
	}

	u, err := h.svc.UpdateName(c.Request.Context(), middleware.UserID(c), strings.TrimSpace(req.Name))
	if err != nil {
		h.userError(c, err)
		return
	}

	// refresh the token so clients carrying user claims stay current
	token, _, err := security.Generate(h.jwt, u.ID)
	if err != nil {
		logger.Errorf("[user] sign token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to sign token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "name updated", "user": u, "token": token})
}

func (h *Handler) userError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "user not found"})
		return
	}
	logger.Errorf("[user] %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
}
