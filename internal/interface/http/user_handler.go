package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	userapp "github.com/oksasatya/user-management-api/internal/application"
	"github.com/oksasatya/user-management-api/internal/domain/entity"
	repo "github.com/oksasatya/user-management-api/internal/domain/repository"
	"github.com/oksasatya/user-management-api/internal/interface/middleware"
	"github.com/oksasatya/user-management-api/pkg/apperror"
	"github.com/oksasatya/user-management-api/pkg/response"
	"github.com/oksasatya/user-management-api/pkg/validation"
)

type UserHandler struct {
	Svc           *userapp.Service
	Logger        *logrus.Logger
	ImageMaxBytes int64
}

const (
	defaultImageMaxBytes = 5 << 20
	maxSearchSize        = 50
)

func NewUserHandler(svc *userapp.Service, logger *logrus.Logger, imageMaxBytes int64) *UserHandler {
	if imageMaxBytes <= 0 {
		imageMaxBytes = defaultImageMaxBytes
	}
	return &UserHandler{Svc: svc, Logger: logger, ImageMaxBytes: imageMaxBytes}
}

type signUpRequest struct {
	Username string                `form:"username" binding:"required,username"`
	Password string                `form:"password" binding:"required,strongpwd"`
	Image    *multipart.FileHeader `form:"image"`
}

type updateImageRequest struct {
	Image *multipart.FileHeader `form:"image"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type addInformationRequest struct {
	FirstName    string `json:"firstName" binding:"required,nowhitespace"`
	LastName     string `json:"lastName" binding:"required,nowhitespace"`
	PersonalCode string `json:"personalCode" binding:"required,nowhitespace"`
	PhoneNumber  string `json:"phoneNumber" binding:"required,phone"`
	Email        string `json:"email" binding:"required,email"`
	City         string `json:"city" binding:"required,nowhitespace"`
	Street       string `json:"street" binding:"required,nowhitespace"`
	HouseNumber  string `json:"houseNumber" binding:"required,nowhitespace"`
	FlatNumber   string `json:"flatNumber" binding:"omitempty,nowhitespace"`
}

// FieldRoute describes one PUT /user/<key> single-field update.
type FieldRoute struct {
	Key   string
	Field entity.Field
	Rule  string
	Label string
}

var fieldRoutes = []FieldRoute{
	{Key: "firstName", Field: entity.FieldFirstName, Rule: "required,nowhitespace", Label: "Users name"},
	{Key: "lastName", Field: entity.FieldLastName, Rule: "required,nowhitespace", Label: "Users last name"},
	{Key: "phoneNumber", Field: entity.FieldPhoneNumber, Rule: "required,phone", Label: "Users phone number"},
	{Key: "email", Field: entity.FieldEmail, Rule: "required,email", Label: "Users email"},
	{Key: "personalCode", Field: entity.FieldPersonalCode, Rule: "required,nowhitespace", Label: "Users personal code"},
	{Key: "city", Field: entity.FieldCity, Rule: "required,nowhitespace", Label: "Users city"},
	{Key: "street", Field: entity.FieldStreet, Rule: "required,nowhitespace", Label: "Users street"},
	{Key: "houseNumber", Field: entity.FieldHouseNumber, Rule: "required,nowhitespace", Label: "Users house number"},
	{Key: "flatNumber", Field: entity.FieldFlatNumber, Rule: "required,nowhitespace", Label: "Users flat number"},
}

func FieldRoutes() []FieldRoute { return fieldRoutes }

func (h *UserHandler) fail(c *gin.Context, err error) {
	response.FromError(c, err, h.Logger)
}

func invalid(c *gin.Context, details map[string]string) {
	response.Error[any](c, http.StatusBadRequest, "invalid payload", details)
}

// principal reads the caller placed in the context by middleware.Auth.
func principal(c *gin.Context) (userapp.Principal, error) {
	id, err := uuid.Parse(c.GetString(middleware.CtxUserIDKey))
	if err != nil {
		return userapp.Principal{}, apperror.Wrap(apperror.KindUnauthorized, "invalid subject claim", err)
	}
	return userapp.Principal{UserID: id, Role: entity.Role(c.GetString(middleware.CtxRoleKey))}, nil
}

func (h *UserHandler) readImage(fh *multipart.FileHeader) ([]byte, map[string]string, error) {
	if details := validation.CheckFile("image", fh, h.ImageMaxBytes); details != nil {
		return nil, details, nil
	}
	f, err := fh.Open()
	if err != nil {
		return nil, nil, apperror.Wrap(apperror.KindInternal, "open upload", err)
	}
	defer func() { _ = f.Close() }()
	raw, err := io.ReadAll(io.LimitReader(f, h.ImageMaxBytes+1))
	if err != nil {
		return nil, nil, apperror.Wrap(apperror.KindInternal, "read upload", err)
	}
	if int64(len(raw)) > h.ImageMaxBytes {
		return nil, map[string]string{"image": fmt.Sprintf("must be at most %d bytes", h.ImageMaxBytes)}, nil
	}
	return raw, nil, nil
}

func (h *UserHandler) SignUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBind(&req); err != nil {
		invalid(c, validation.ToDetails(err))
		return
	}
	raw, details, err := h.readImage(req.Image)
	if err != nil {
		h.fail(c, err)
		return
	}
	if details != nil {
		invalid(c, details)
		return
	}

	res, err := h.Svc.SignUp(c.Request.Context(), userapp.SignUpInput{
		Username:    req.Username,
		Password:    req.Password,
		Image:       raw,
		ImageName:   req.Image.Filename,
		ContentType: req.Image.Header.Get("Content-Type"),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, res, fmt.Sprintf("User: %s, was created successfully", res.Username), nil)
}

func (h *UserHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, validation.ToDetails(err))
		return
	}
	res, err := h.Svc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"token": res.Token}, "login successful", map[string]any{"expiresAt": res.ExpiresAt})
}

func (h *UserHandler) AddInformation(c *gin.Context) {
	p, err := principal(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	var req addInformationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, validation.ToDetails(err))
		return
	}
	profile, err := h.Svc.AddInformation(c.Request.Context(), p.UserID, repo.PersonInfo{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PersonalCode: req.PersonalCode,
		PhoneNumber:  req.PhoneNumber,
		Email:        req.Email,
		City:         req.City,
		Street:       req.Street,
		HouseNumber:  req.HouseNumber,
		FlatNumber:   req.FlatNumber,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, profile, "information added", nil)
}

func (h *UserHandler) GetProfile(c *gin.Context) {
	p, err := principal(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	profile, err := h.Svc.GetProfile(c.Request.Context(), p.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, profile, "profile", nil)
}

// GetImage streams the stored image bytes.
func (h *UserHandler) GetImage(c *gin.Context) {
	p, err := principal(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	img, err := h.Svc.GetImage(c.Request.Context(), p.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", img.Name))
	c.Data(http.StatusOK, img.ContentType, img.ImageBytes)
}

func (h *UserHandler) UpdateImage(c *gin.Context) {
	p, err := principal(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	var req updateImageRequest
	if err := c.ShouldBind(&req); err != nil {
		invalid(c, validation.ToDetails(err))
		return
	}
	raw, details, err := h.readImage(req.Image)
	if err != nil {
		h.fail(c, err)
		return
	}
	if details != nil {
		invalid(c, details)
		return
	}
	info, err := h.Svc.UpdateImage(c.Request.Context(), p.UserID, raw, req.Image.Header.Get("Content-Type"), req.Image.Filename)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, info, "Profile photo updated with new image: "+info.Name, nil)
}

// UpdateField returns the handler for one single-field route.
func (h *UserHandler) UpdateField(route FieldRoute) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := principal(c)
		if err != nil {
			h.fail(c, err)
			return
		}
		var body map[string]string
		if err := c.ShouldBindJSON(&body); err != nil {
			invalid(c, validation.ToDetails(err))
			return
		}
		value := body[route.Key]
		if details := validation.Var(route.Key, value, route.Rule); details != nil {
			invalid(c, details)
			return
		}

		var stored string
		switch route.Field.Owner() {
		case entity.OwnerAddress:
			stored, err = h.Svc.UpdateAddress(c.Request.Context(), p.UserID, route.Field.String(), value)
		default:
			stored, err = h.Svc.UpdatePerson(c.Request.Context(), p.UserID, route.Field.String(), value)
		}
		if err != nil {
			h.fail(c, err)
			return
		}
		response.Success(c, http.StatusOK, gin.H{route.Key: stored}, fmt.Sprintf("%s changed to %s", route.Label, stored), nil)
	}
}

func (h *UserHandler) Delete(c *gin.Context) {
	p, err := principal(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	id, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		invalid(c, map[string]string{"userId": "must be a valid UUID"})
		return
	}
	deleted, err := h.Svc.DeleteUser(c.Request.Context(), p, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": deleted}, fmt.Sprintf("User was found and deleted: %t", deleted), nil)
}

func (h *UserHandler) Search(c *gin.Context) {
	p, err := principal(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	size, err := strconv.Atoi(c.DefaultQuery("size", "10"))
	if err != nil || size < 1 || size > maxSearchSize {
		invalid(c, map[string]string{"size": fmt.Sprintf("must be a number between 1 and %d", maxSearchSize)})
		return
	}
	hits, err := h.Svc.SearchUsers(c.Request.Context(), p, c.Query("q"), size)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, hits, "search results", map[string]any{"count": len(hits)})
}
