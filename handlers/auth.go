package handlers

import (
	"net/http"

	"justice_flow_go/db"
	"justice_flow_go/models"
	"justice_flow_go/services"

	"github.com/labstack/echo/v4"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type loginResponse struct {
	*services.TokenPair
	User *models.User `json:"user"`
}

// LoginHandler exchanges credentials for an access and refresh token pair
func LoginHandler(c echo.Context) error {
	var req loginRequest
	if err := bindStrict(c, &req); err != nil {
		return err
	}

	tokens, user, err := services.Login(c.Request().Context(), db.DB, getConfig(c), req.Email, req.Password, actorFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, loginResponse{TokenPair: tokens, User: user})
}

// RefreshHandler rotates a refresh token
func RefreshHandler(c echo.Context) error {
	var req refreshRequest
	if err := bindStrict(c, &req); err != nil {
		return err
	}

	tokens, err := services.RefreshTokens(c.Request().Context(), db.DB, getConfig(c), req.RefreshToken, c.RealIP(), c.Request().UserAgent())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tokens)
}

// LogoutHandler revokes the presented refresh token
func LogoutHandler(c echo.Context) error {
	var req refreshRequest
	if err := bindStrict(c, &req); err != nil {
		return err
	}
	if err := services.Logout(db.DB, req.RefreshToken); err != nil {
		return err
	}
	services.Audit.LogActivity(c.Request().Context(), actorFrom(c), services.AuditEvent{Action: "auth.logout", ResourceType: "User"})
	return c.NoContent(http.StatusNoContent)
}

// GetCurrentUserHandler returns the authenticated user's profile
func GetCurrentUserHandler(c echo.Context) error {
	actor := actorFrom(c)
	var user models.User
	if err := db.DB.First(&user, "id = ?", actor.ID).Error; err != nil {
		return services.NotFound("user not found")
	}
	return c.JSON(http.StatusOK, user)
}

type createUserRequest struct {
	Name            string `json:"name" validate:"required,max=200"`
	Email           string `json:"email" validate:"required,email"`
	Phone           string `json:"phone" validate:"omitempty,max=32"`
	Password        string `json:"password" validate:"required"`
	Role            string `json:"role" validate:"required"`
	CourtID         string `json:"court_id" validate:"omitempty,uuid"`
	PoliceStationID string `json:"police_station_id" validate:"omitempty,uuid"`
	PrisonID        string `json:"prison_id" validate:"omitempty,uuid"`
}

// CreateUserHandler registers a platform account (admin)
func CreateUserHandler(c echo.Context) error {
	var req createUserRequest
	if err := bindStrict(c, &req); err != nil {
		return err
	}

	actor := actorFrom(c)
	user, err := services.CreateUser(db.DB, services.CreateUserInput{
		Name:            req.Name,
		Email:           req.Email,
		Phone:           req.Phone,
		Password:        req.Password,
		Role:            req.Role,
		CourtID:         req.CourtID,
		PoliceStationID: req.PoliceStationID,
		PrisonID:        req.PrisonID,
	})
	services.Audit.Record(c.Request().Context(), actor, "user.create", "User", userID(user), models.AuditSeverityHigh, err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, user)
}

func userID(u *models.User) string {
	if u == nil {
		return ""
	}
	return u.ID
}
