package workflow

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/bakery_backend/config"
	"bitbucket.org/mmdatafocus/bakery_backend/models"
	"bitbucket.org/mmdatafocus/bakery_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Users handles registration and sign-in.
type Users struct {
	db     *gorm.DB
	logger *logrus.Logger
	access *AccessPolicy
	tokens *utils.TokenIssuer
}

func NewUsers(db *gorm.DB, logger *logrus.Logger, access *AccessPolicy, tokens *utils.TokenIssuer) *Users {
	return &Users{db: db, logger: loggerOrDefault(logger), access: access, tokens: tokens}
}

type LoginInfo struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
	Roles []string     `json:"roles"`
}

// Register creates a customer account.
func (u *Users) Register(ctx context.Context, input models.NewUser) (*models.User, error) {
	user, err := InTransaction(ctx, u.db, func(tx *gorm.DB) (*models.User, error) {
		if err := input.Validate(tx); err != nil {
			return nil, err
		}
		hashed, err := utils.HashPassword(input.Password)
		if err != nil {
			return nil, err
		}
		user := &models.User{
			Name:     input.Name,
			Email:    input.Email,
			Password: string(hashed),
			Phone:    input.Phone,
		}
		if err := models.CreateUser(tx, user); err != nil {
			return nil, err
		}
		if err := models.GrantRight(tx, user.ID, models.RightCodeCustomer); err != nil {
			return nil, err
		}
		return user, nil
	})
	if err != nil {
		logFailure(u.logger, "Users", "Register", logrus.Fields{"email": input.Email}, err)
		return nil, err
	}
	if err := u.access.InvalidateRights(ctx, user.ID); err != nil {
		config.LogError(u.logger, "Users", "Register", "invalidating rights cache", user.ID, err)
	}
	u.logger.WithField("user_id", user.ID).Info("customer registered")
	return user, nil
}

// Login checks the credentials and issues a bearer token.
// Unknown email and wrong password fail the same way.
func (u *Users) Login(ctx context.Context, input models.LoginInput) (*LoginInfo, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	db := u.db.WithContext(ctx)
	user, err := models.FetchUserByEmail(db, input.Email)
	if err != nil {
		if utils.ErrorKind(err) == utils.ErrNotFound {
			return nil, utils.Unauthorized("invalid email or password")
		}
		return nil, err
	}
	if err := utils.ComparePassword(user.Password, input.Password); err != nil {
		logFailure(u.logger, "Users", "Login", logrus.Fields{"user_id": user.ID}, utils.Unauthorized("wrong password"))
		return nil, utils.Unauthorized("invalid email or password")
	}

	token, err := u.tokens.JwtGenerate(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if err := models.TouchLastLogin(db, user.ID, now); err != nil {
		return nil, err
	}
	user.LastLogin = &now

	principal, err := u.access.ResolvePrincipal(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	roles := make([]string, 0, len(principal.Roles))
	for _, r := range principal.Roles {
		roles = append(roles, r.String())
	}
	return &LoginInfo{Token: token, User: user, Roles: roles}, nil
}

// Me returns the signed-in user's profile.
func (u *Users) Me(ctx context.Context, p *Principal) (*models.User, error) {
	if p == nil {
		return nil, utils.Unauthorized("not signed in")
	}
	return models.FetchUser(u.db.WithContext(ctx), p.UserId)
}

func (u *Users) MyRights(ctx context.Context, p *Principal) ([]*models.Right, error) {
	if p == nil {
		return nil, utils.Unauthorized("not signed in")
	}
	return models.FetchUserRights(u.db.WithContext(ctx), p.UserId)
}
