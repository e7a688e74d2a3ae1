package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"

	"github.com/Talent-1/cbt-service/internal/access"
	"github.com/Talent-1/cbt-service/internal/auth"
	"github.com/Talent-1/cbt-service/internal/config"
	"github.com/Talent-1/cbt-service/internal/models"
	"github.com/Talent-1/cbt-service/internal/utils"
)

const principalContextKey = "principal"

// TokenParser verifies the service's own access tokens
type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

// SSOParser verifies tokens issued by the single sign-on provider
type SSOParser interface {
	ParseJwtToken(token string) (*casdoorsdk.Claims, error)
}

// AccountResolver maps an SSO identity to a local account
type AccountResolver interface {
	ResolveByEmail(ctx context.Context, email string) (*models.Account, error)
}

// AuthMiddleware authenticates bearer tokens and enforces the role table
type AuthMiddleware struct {
	BaseHandler
	tokens   TokenParser
	sso      SSOParser
	accounts AccountResolver
	policy   *access.Policy
}

func NewAuthMiddleware(tokens TokenParser, sso SSOParser, accounts AccountResolver, policy *access.Policy, logger utils.Logger) *AuthMiddleware {
	if policy == nil {
		policy = access.DefaultPolicy()
	}
	return &AuthMiddleware{
		BaseHandler: NewBaseHandler(logger),
		tokens:      tokens,
		sso:         sso,
		accounts:    accounts,
		policy:      policy,
	}
}

// NewCasdoorClient returns nil when SSO is not configured
func NewCasdoorClient(cfg config.CasdoorConfig) SSOParser {
	if !cfg.Enabled() {
		return nil
	}
	return casdoorsdk.NewClient(
		cfg.Endpoint,
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.Cert,
		cfg.Organization,
		cfg.Application,
	)
}

// Authenticate accepts local tokens first and falls back to SSO tokens
func (am *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			am.RespondWithError(c, http.StatusUnauthorized, "authorization header missing", nil)
			return
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || strings.ToLower(tokenParts[0]) != "bearer" || tokenParts[1] == "" {
			am.RespondWithError(c, http.StatusUnauthorized, "invalid authorization header format", nil)
			return
		}
		token := tokenParts[1]

		principal, err := am.resolve(c.Request.Context(), token)
		if err != nil {
			am.RespondWithError(c, http.StatusUnauthorized, "invalid token", err)
			return
		}

		c.Set(principalContextKey, principal)
		c.Set("user_id", principal.ID)
		c.Set("user_role", principal.Role)
		c.Next()
	}
}

func (am *AuthMiddleware) resolve(ctx context.Context, token string) (access.Principal, error) {
	claims, err := am.tokens.Parse(token)
	if err == nil {
		return claims.Principal(), nil
	}
	if am.sso == nil {
		return access.Principal{}, err
	}

	ssoClaims, ssoErr := am.sso.ParseJwtToken(token)
	if ssoErr != nil {
		return access.Principal{}, fmt.Errorf("%w; sso: %v", err, ssoErr)
	}
	email := ssoClaims.User.Email
	if email == "" {
		return access.Principal{}, fmt.Errorf("sso token carries no email")
	}
	account, err := am.accounts.ResolveByEmail(ctx, email)
	if err != nil {
		return access.Principal{}, fmt.Errorf("no local account for %s", email)
	}
	return principalFromAccount(account), nil
}

func principalFromAccount(account *models.Account) access.Principal {
	p := access.Principal{ID: account.ID, Role: account.Role, BranchID: account.BranchID}
	if account.StudentID != nil {
		p.StudentID = *account.StudentID
	}
	if account.Email != nil {
		p.Email = *account.Email
	}
	return p
}

// RequirePermission admits callers whose role is granted any of the actions on resource
func (am *AuthMiddleware) RequirePermission(resource access.Resource, actions ...access.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := GetPrincipal(c)
		if !ok {
			am.RespondWithError(c, http.StatusUnauthorized, "User not authenticated", nil)
			return
		}
		for _, action := range actions {
			if am.policy.Allows(principal, resource, action) {
				c.Next()
				return
			}
		}
		am.RespondWithError(c, http.StatusForbidden, "Forbidden",
			fmt.Sprintf("role %s may not %v %s", principal.Role, actions, resource))
	}
}

// GetPrincipal extracts the authenticated caller from the gin context
func GetPrincipal(c *gin.Context) (access.Principal, bool) {
	value, exists := c.Get(principalContextKey)
	if !exists {
		return access.Principal{}, false
	}
	principal, ok := value.(access.Principal)
	return principal, ok
}
