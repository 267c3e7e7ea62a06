package workflow

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/bakery_backend/config"
	"bitbucket.org/mmdatafocus/bakery_backend/models"
	"bitbucket.org/mmdatafocus/bakery_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Role is the closed set of roles an operation can require.
type Role int

const (
	RoleAdmin    = Role(models.RightCodeAdmin)
	RoleCustomer = Role(models.RightCodeCustomer)
)

func (r Role) String() string {
	return models.RightCode(r).Name()
}

// Principal is the authenticated caller.
type Principal struct {
	UserId int    `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Roles  []Role `json:"roles"`
}

// NewPrincipal keeps only the right codes that map to a known role.
func NewPrincipal(user *models.User, codes []models.RightCode) *Principal {
	p := &Principal{UserId: user.ID, Name: user.Name, Email: user.Email}
	for _, c := range codes {
		if c.IsValid() {
			p.Roles = append(p.Roles, Role(c))
		}
	}
	return p
}

func (p *Principal) Has(role Role) bool {
	if p == nil {
		return false
	}
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (p *Principal) RightCodes() []int {
	codes := make([]int, 0, len(p.Roles))
	for _, r := range p.Roles {
		codes = append(codes, int(r))
	}
	return codes
}

// RequireRole is the single authorization gate in front of every operation.
func RequireRole(p *Principal, role Role) error {
	if !p.Has(role) {
		return utils.Forbidden("access denied: %s role required", role)
	}
	return nil
}

// requireOwner enforces admin_id ownership when the policy asks for it.
func requireOwner(policy config.Policy, p *Principal, adminId int, what string) error {
	if !policy.OwnerScopedAdmin || p == nil || p.UserId == adminId {
		return nil
	}
	return utils.Forbidden("access denied: %s belongs to another admin", what)
}

/*
caches:
	UserRights:$userId
*/

const rightsCacheKeyPrefix = "UserRights:"

func rightsCacheKey(userId int) string {
	return rightsCacheKeyPrefix + fmt.Sprint(userId)
}

// AccessPolicy resolves users to principals. Right codes are cached in redis when it is configured.
type AccessPolicy struct {
	db       *gorm.DB
	cache    *config.Redis
	cacheTTL time.Duration
	logger   *logrus.Logger
}

func NewAccessPolicy(db *gorm.DB, cache *config.Redis, cacheTTL time.Duration, logger *logrus.Logger) *AccessPolicy {
	return &AccessPolicy{db: db, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// RightCodes returns the codes granted to userId.
func (a *AccessPolicy) RightCodes(ctx context.Context, userId int) ([]models.RightCode, error) {
	key := rightsCacheKey(userId)
	var codes []models.RightCode
	found, err := a.cache.GetObject(ctx, key, &codes)
	if err != nil {
		config.LogError(a.logger, "AccessPolicy", "RightCodes", "reading rights cache", key, err)
	} else if found {
		return codes, nil
	}

	codes, err = models.FetchRightCodes(a.db.WithContext(ctx), userId)
	if err != nil {
		return nil, err
	}
	if err := a.cache.SetObject(ctx, key, codes, a.cacheTTL); err != nil {
		config.LogError(a.logger, "AccessPolicy", "RightCodes", "writing rights cache", key, err)
	}
	return codes, nil
}

func (a *AccessPolicy) HasRight(ctx context.Context, userId int, code models.RightCode) (bool, error) {
	codes, err := a.RightCodes(ctx, userId)
	if err != nil {
		return false, err
	}
	for _, c := range codes {
		if c == code {
			return true, nil
		}
	}
	return false, nil
}

// ResolvePrincipal loads the user and their roles. An unknown user is Unauthorized.
func (a *AccessPolicy) ResolvePrincipal(ctx context.Context, userId int) (*Principal, error) {
	user, err := models.FetchUser(a.db.WithContext(ctx), userId)
	if err != nil {
		if utils.ErrorKind(err) == utils.ErrNotFound {
			return nil, utils.Unauthorized("unknown user")
		}
		return nil, err
	}
	codes, err := a.RightCodes(ctx, userId)
	if err != nil {
		return nil, err
	}
	return NewPrincipal(user, codes), nil
}

func (a *AccessPolicy) InvalidateRights(ctx context.Context, userIds ...int) error {
	keys := make([]string, 0, len(userIds))
	for _, id := range utils.UniqueSlice(userIds) {
		keys = append(keys, rightsCacheKey(id))
	}
	if len(keys) == 0 {
		return nil
	}
	return a.cache.RemoveKey(ctx, keys...)
}

// GrantRight gives userId the role and drops their cached rights.
func (a *AccessPolicy) GrantRight(ctx context.Context, userId int, role Role) error {
	err := WithTransaction(ctx, a.db, func(tx *gorm.DB) error {
		return models.GrantRight(tx, userId, models.RightCode(role))
	})
	if err != nil {
		return err
	}
	return a.InvalidateRights(ctx, userId)
}
