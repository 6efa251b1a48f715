package httpapi

import (
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/bookdrive/internal/common"
	"github.com/dmitrijs2005/bookdrive/internal/server/models"
	"github.com/dmitrijs2005/bookdrive/internal/server/services"
	"github.com/gin-gonic/gin"
)

type signUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func clientMeta(c *gin.Context) models.ClientMeta {
	return models.ClientMeta{IPAddress: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}

func (s *Server) signUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, fmt.Errorf("%w: invalid request body", common.ErrBadRequest))
		return
	}

	res, err := s.auth.SignUp(c.Request.Context(), services.SignUpInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	}, clientMeta(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (s *Server) signIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, fmt.Errorf("%w: invalid request body", common.ErrBadRequest))
		return
	}

	res, err := s.auth.SignIn(c.Request.Context(), req.Email, req.Password, clientMeta(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) signOut(c *gin.Context) {
	if err := s.auth.SignOut(c.Request.Context(), currentToken(c)); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) me(c *gin.Context) {
	c.JSON(http.StatusOK, s.auth.Me(currentUser(c)))
}
