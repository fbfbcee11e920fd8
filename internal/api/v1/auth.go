package v1

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/theforge/forge/internal/auth"
	"github.com/theforge/forge/internal/models"
	"github.com/theforge/forge/pkg/utils"
)

const verifyTokenTTL = 24 * time.Hour

// Register creates an account and sends the verification email. The account
// starts unverified; most write surfaces stay closed until the link is
// followed.
func (h *Handlers) Register(c *fiber.Ctx) error {
	type RegisterInput struct {
		Name            string `json:"name" validate:"required,min=3,max=255"`
		Email           string `json:"email" validate:"required,email,max=100"`
		Password        string `json:"password" validate:"required,min=8,eqfield=ConfirmPassword"`
		ConfirmPassword string `json:"confirm_password" validate:"required,min=8"`
	}
	in := new(RegisterInput)
	if err := utils.StrictBodyParser(c, in); err != nil {
		h.Log.Warn(c.UserContext()).WithFields("error", err.Error()).Logs("Failed to parse register request")
		return utils.SendError(c, utils.NewError(fiber.StatusBadRequest, "Invalid request format"))
	}
	if errs := h.Validator.Validate(in); errs != nil {
		return utils.SendError(c, validationError(errs))
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	hashed, err := utils.HashPassword(in.Password)
	if err != nil {
		h.Log.Error(c.UserContext()).WithFields("error", err.Error()).Logs("Failed to hash password")
		return utils.SendError(c, utils.ErrInternalServerError)
	}

	user, err := models.NewUser(c.UserContext(), h.Rclient, h.DB, in.Name, in.Email, hashed)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate") || strings.Contains(err.Error(), "UNIQUE") {
			return utils.SendError(c, utils.NewError(fiber.StatusConflict, "Name or email already taken"))
		}
		return utils.SendError(c, err)
	}

	h.sendVerificationEmail(c, user)

	h.Log.Info(c.UserContext()).WithFields("user_id", user.ID.String()).Logs("User registered")
	return utils.Success(c).
		WithStatus(fiber.StatusCreated).
		WithMessage("Registration successful. Check your email to verify your account.").
		WithData(fiber.Map{"id": user.ID, "name": user.Name}).
		Send()
}

// Login exchanges credentials for a personal access token. Requested
// abilities are constrained to the fixed vocabulary with read always
// granted; accounts without a password cannot log in this way.
func (h *Handlers) Login(c *fiber.Ctx) error {
	type LoginInput struct {
		Email     string   `json:"email" validate:"required,email"`
		Password  string   `json:"password" validate:"required"`
		TokenName string   `json:"token_name" validate:"omitempty,max=100"`
		Abilities []string `json:"abilities" validate:"omitempty,dive,oneof=create read update delete"`
	}
	in := new(LoginInput)
	if err := utils.StrictBodyParser(c, in); err != nil {
		return utils.SendError(c, utils.NewError(fiber.StatusBadRequest, "Invalid request format"))
	}
	if errs := h.Validator.Validate(in); errs != nil {
		return utils.SendError(c, validationError(errs))
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	invalid := utils.NewError(fiber.StatusUnauthorized, "Invalid credentials").WithCode(utils.CodeInvalidCredentials)

	user, err := models.GetUserBy(c.UserContext(), h.Rclient, h.DB, "email = ?", []interface{}{in.Email})
	if err != nil {
		return utils.SendError(c, invalid)
	}
	if user.Password == "" {
		return utils.SendError(c, utils.NewError(fiber.StatusUnprocessableEntity,
			"This account uses external sign-in and has no password").
			WithCode(utils.CodePasswordLoginUnavailable))
	}
	if err := utils.ComparePasswords(user.Password, in.Password); err != nil {
		h.Log.Warn(c.UserContext()).WithFields("email", in.Email).Logs("Failed login attempt")
		return utils.SendError(c, invalid)
	}
	if user.IsBanned() {
		return utils.SendError(c, utils.NewError(fiber.StatusForbidden, "Account banned"))
	}

	name := in.TokenName
	if name == "" {
		name = "api"
	}
	issued, err := auth.NewToken(c.UserContext(), h.DB, user.ID, name, in.Abilities)
	if err != nil {
		return utils.SendError(c, err)
	}

	h.Log.Info(c.UserContext()).WithFields("user_id", user.ID.String(), "token", issued.Token.ID.String()).Logs("User logged in")
	return utils.Success(c).WithData(fiber.Map{
		"token":     issued.PlainText,
		"abilities": auth.Abilities(issued.Token),
		"user":      fiber.Map{"id": user.ID, "name": user.Name},
	}).Send()
}

// Logout revokes the token used for this request.
func (h *Handlers) Logout(c *fiber.Ctx) error {
	user := viewer(c)
	token := auth.CurrentToken(c)
	if err := auth.RevokeToken(c.UserContext(), h.DB, user.ID, token.ID); err != nil {
		return utils.SendError(c, err)
	}
	return utils.Success(c).WithMessage("Logged out").Send()
}

// LogoutAll revokes every token of the account.
func (h *Handlers) LogoutAll(c *fiber.Ctx) error {
	user := viewer(c)
	if err := auth.RevokeAllTokens(c.UserContext(), h.DB, user.ID); err != nil {
		return utils.SendError(c, err)
	}
	return utils.Success(c).WithMessage("Logged out everywhere").Send()
}

// ResendVerification re-sends the verification email. The response is the
// same whether or not the address belongs to an account.
func (h *Handlers) ResendVerification(c *fiber.Ctx) error {
	type ResendInput struct {
		Email string `json:"email" validate:"required,email"`
	}
	in := new(ResendInput)
	if err := utils.StrictBodyParser(c, in); err != nil {
		return utils.SendError(c, utils.NewError(fiber.StatusBadRequest, "Invalid request format"))
	}
	if errs := h.Validator.Validate(in); errs != nil {
		return utils.SendError(c, validationError(errs))
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	user, err := models.GetUserBy(c.UserContext(), h.Rclient, h.DB, "email = ?", []interface{}{in.Email})
	if err == nil && !user.HasVerifiedEmail() {
		h.sendVerificationEmail(c, user)
	}

	return utils.Success(c).WithMessage("If that address belongs to an account, a verification email has been sent.").Send()
}

// VerifyEmail consumes a verification token from the mailed link.
func (h *Handlers) VerifyEmail(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		return utils.SendError(c, utils.NewError(fiber.StatusBadRequest, "Verification token missing"))
	}

	key := "verify:" + utils.HashToken(token)
	userID, err := h.Rclient.Get(c.UserContext(), key).Result()
	if err != nil || userID == "" {
		return utils.SendError(c, utils.NewError(fiber.StatusBadRequest, "Invalid or expired verification token"))
	}

	now := time.Now()
	res := h.DB.WithContext(c.UserContext()).Model(&models.User{}).
		Where("id = ? AND email_verified_at IS NULL", userID).
		Update("email_verified_at", now)
	if res.Error != nil {
		return utils.SendError(c, utils.WrapError(res.Error, utils.ErrInternalServerError.Status, "Failed to verify email"))
	}
	h.Rclient.Del(c.UserContext(), key)

	h.Log.Info(c.UserContext()).WithFields("user_id", userID).Logs("Email verified")
	return utils.Success(c).WithMessage("Email verified").Send()
}

// sendVerificationEmail mints a one-time token, stashes its digest in Redis,
// and mails the link. Mail failures are logged, not surfaced; the caller's
// operation has already succeeded.
func (h *Handlers) sendVerificationEmail(c *fiber.Ctx, user *models.User) {
	token, err := utils.GenerateRandomToken(48)
	if err != nil {
		h.Log.Error(c.UserContext()).WithFields("error", err.Error()).Logs("Failed to generate verification token")
		return
	}
	key := "verify:" + utils.HashToken(token)
	if err := h.Rclient.Set(c.UserContext(), key, user.ID.String(), verifyTokenTTL).Err(); err != nil {
		h.Log.Warn(c.UserContext()).WithFields("error", err.Error()).Logs("Failed to store verification token")
		return
	}
	body := utils.VerificationEmailBody(h.EmailCfg, user.Name, token)
	if err := h.Mailer.Send(c.UserContext(), user.Email, "Verify your email", body); err != nil {
		h.Log.Warn(c.UserContext()).WithFields("user_id", user.ID.String(), "error", err.Error()).Logs("Verification email failed")
	}
}
