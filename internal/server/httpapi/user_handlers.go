package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/userdir/internal/server/users"
)

type createUserRequest struct {
	Login    string     `json:"login"`
	Password string     `json:"password"`
	Name     string     `json:"name"`
	Gender   int        `json:"gender"`
	Birthday *time.Time `json:"birthday"`
	Admin    bool       `json:"admin"`
}

type updateInfoRequest struct {
	TargetLogin string     `json:"targetLogin"`
	Name        string     `json:"name"`
	Gender      int        `json:"gender"`
	Birthday    *time.Time `json:"birthday"`
}

type changePasswordRequest struct {
	TargetLogin string `json:"targetLogin"`
	NewPassword string `json:"newPassword"`
}

type changeLoginRequest struct {
	TargetLogin string `json:"targetLogin"`
	NewLogin    string `json:"newLogin"`
}

type deleteUserRequest struct {
	SoftDelete bool `json:"softDelete"`
}

func (s *HTTPServer) createUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Request body is empty. Check the request payload."})
		return
	}

	created, err := s.users.Create(c.Request.Context(), callerFrom(c), &users.CreateRequest{
		Login:    req.Login,
		Password: req.Password,
		Name:     req.Name,
		Gender:   users.Gender(req.Gender),
		Birthday: req.Birthday,
		Admin:    req.Admin,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User created successfully.",
		"createdUser": gin.H{
			"login":    created.Login,
			"name":     created.Name,
			"gender":   int(created.Gender),
			"birthday": created.Birthday,
			"admin":    created.Admin,
		},
	})
}

func (s *HTTPServer) updateInfo(c *gin.Context) {
	var req updateInfoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Request body is empty. Check the request payload."})
		return
	}

	updated, err := s.users.UpdateInfo(c.Request.Context(), callerFrom(c), &users.UpdateInfoRequest{
		TargetLogin: req.TargetLogin,
		Name:        req.Name,
		Gender:      users.Gender(req.Gender),
		Birthday:    req.Birthday,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Information updated successfully.",
		"updated": gin.H{
			"login":    updated.Login,
			"name":     updated.Name,
			"gender":   int(updated.Gender),
			"birthday": updated.Birthday,
		},
	})
}

func (s *HTTPServer) changePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Request body is empty. Check the request payload."})
		return
	}

	_, err := s.users.ChangePassword(c.Request.Context(), callerFrom(c), &users.ChangePasswordRequest{
		TargetLogin: req.TargetLogin,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.String(http.StatusOK, "Password changed successfully.")
}

func (s *HTTPServer) changeLogin(c *gin.Context) {
	var req changeLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Request body is empty. Check the request payload."})
		return
	}

	_, err := s.users.ChangeLogin(c.Request.Context(), callerFrom(c), &users.ChangeLoginRequest{
		TargetLogin: req.TargetLogin,
		NewLogin:    req.NewLogin,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Login changed successfully.",
		"updatedUser": gin.H{
			"oldLogin": req.TargetLogin,
			"newLogin": req.NewLogin,
		},
	})
}

func (s *HTTPServer) activeUsers(c *gin.Context) {
	list, err := s.users.ActiveUsers(c.Request.Context(), callerFrom(c))
	if err != nil {
		s.writeError(c, err)
		return
	}

	if len(list) == 0 {
		c.JSON(http.StatusOK, gin.H{"message": "No active users."})
		return
	}

	out := make([]gin.H, 0, len(list))
	for _, u := range list {
		out = append(out, gin.H{
			"login":     u.Login,
			"name":      u.Name,
			"gender":    int(u.Gender),
			"birthday":  u.Birthday,
			"createdOn": u.CreatedOn,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("Active users found: %d", len(out)),
		"users":   out,
	})
}

func (s *HTTPServer) userByLogin(c *gin.Context) {
	u, err := s.users.ByLogin(c.Request.Context(), callerFrom(c), c.Param("login"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"name":     u.Name,
		"gender":   int(u.Gender),
		"birthday": u.Birthday,
		"isActive": u.Active(),
	})
}

func (s *HTTPServer) self(c *gin.Context) {
	u, err := s.users.Self(c.Request.Context(), callerFrom(c))
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"login":    u.Login,
		"name":     u.Name,
		"gender":   int(u.Gender),
		"birthday": u.Birthday,
		"isActive": true,
	})
}

func (s *HTTPServer) usersOlderThan(c *gin.Context) {
	age, err := strconv.Atoi(c.Param("age"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Age must be between 0 and %d.", users.MaxAge)})
		return
	}

	list, err := s.users.OlderThan(c.Request.Context(), callerFrom(c), age)
	if err != nil {
		s.writeError(c, err)
		return
	}

	if len(list) == 0 {
		c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("No users older than %d years.", age)})
		return
	}

	out := make([]gin.H, 0, len(list))
	for _, u := range list {
		out = append(out, gin.H{
			"login":    u.Login,
			"name":     u.Name,
			"birthday": u.Birthday,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("Users older than %d years found: %d", age, len(out)),
		"users":   out,
	})
}

func (s *HTTPServer) deleteUser(c *gin.Context) {
	var req deleteUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Request body is empty. Check the request payload."})
		return
	}

	login := c.Param("login")
	if err := s.users.Delete(c.Request.Context(), callerFrom(c), login, req.SoftDelete); err != nil {
		s.writeError(c, err)
		return
	}

	if req.SoftDelete {
		c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("User '%s' has been soft-deleted.", login)})
	} else {
		c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("User '%s' has been permanently deleted.", login)})
	}
}

func (s *HTTPServer) restoreUser(c *gin.Context) {
	login := c.Param("login")
	if _, err := s.users.Restore(c.Request.Context(), callerFrom(c), login); err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("User '%s' has been restored.", login)})
}

// writeError translates a domain error into a status code and, when the
// error carries a message, a JSON body.
func (s *HTTPServer) writeError(c *gin.Context, err error) {
	var uerr *users.Error
	if !errors.As(err, &uerr) {
		s.logger.Error(c.Request.Context(), "internal error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error."})
		return
	}

	status := http.StatusInternalServerError
	switch uerr.Kind {
	case users.KindBadRequest:
		status = http.StatusBadRequest
	case users.KindUnauthenticated:
		status = http.StatusUnauthorized
	case users.KindForbidden:
		status = http.StatusForbidden
	case users.KindNotFound:
		status = http.StatusNotFound
	case users.KindConflict:
		status = http.StatusConflict
	}

	if uerr.Message == "" {
		c.Status(status)
		return
	}
	c.JSON(status, gin.H{"error": uerr.Message})
}
