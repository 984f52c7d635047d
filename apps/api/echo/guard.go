package echoapi

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

// edgeGuard is the outer guard layer. It only checks that a session cookie
// is present on guarded sections and redirects to the login page otherwise;
// the cookie's validity is the session guard's job. It no-ops when the
// request host is not the configured public origin so a cross-origin
// deployment never false-denies.
func edgeGuard(conf *core.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			req := ctx.Request()
			if user.HomeSection(req.URL.Path) == "" {
				return next(ctx)
			}
			if !isPublicOrigin(conf, req.Host) {
				return next(ctx)
			}
			if _, err := req.Cookie(conf.Session.CookieName); err != nil {
				return ctx.Redirect(http.StatusFound, loginURL(req))
			}
			return next(ctx)
		}
	}
}

// sectionGuard is the inner guard layer. It fully resolves the session,
// clears dangling cookies and pins every user to their canonical home
// section; view-as-student only relaxes the student dashboard for staff.
func sectionGuard(opts *Options) echo.MiddlewareFunc {
	conf := opts.Conf
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			req := ctx.Request()

			claims, usr, err := resolveSession(ctx, conf, opts.UserSvc)
			if err != nil {
				clearSessionCookie(ctx, conf)
				if req.Method == http.MethodGet {
					return ctx.Redirect(http.StatusFound, loginURL(req))
				}
				return errUnauthorized
			}

			section := user.HomeSection(req.URL.Path)
			if home := usr.RedirectPath(); section != home {
				if !(claims.ViewingAsStudent && section == user.SectionDashboard && usr.IsStaff()) {
					if req.Method == http.MethodGet {
						return ctx.Redirect(http.StatusFound, home)
					}
					return errHttpForbidden
				}
			}
			return next(ctx)
		}
	}
}

// resolveSession validates the session cookie and re-resolves its user from
// the database. Any failure means there is no session.
func resolveSession(ctx echo.Context, conf *core.Config, svc user.Service) (Claims, user.User, error) {
	cookie, err := ctx.Request().Cookie(conf.Session.CookieName)
	if err != nil {
		return Claims{}, user.User{}, core.ErrUnauthenticated
	}

	claims := new(Claims)
	token, err := jwt.ParseWithClaims(cookie.Value, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != middleware.AlgorithmHS256 {
			return nil, core.ErrUnauthenticated
		}
		return []byte(conf.SecretKey), nil
	})
	if err != nil || !token.Valid {
		return Claims{}, user.User{}, core.ErrUnauthenticated
	}

	usr, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return Claims{}, user.User{}, core.ErrUnauthenticated
	}
	if usr.IsActive != nil && !*usr.IsActive {
		return Claims{}, user.User{}, core.ErrUnauthenticated
	}

	ctx.Set(jwtContextKey, token)
	ctx.Set(contextUserKey, usr)
	return *claims, usr, nil
}

func isPublicOrigin(conf *core.Config, reqHost string) bool {
	origin := conf.API.PublicOrigin
	if origin == "" {
		return false
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	return strings.EqualFold(u.Host, reqHost)
}

func loginURL(req *http.Request) string {
	next := req.URL.Path
	if q := req.URL.RawQuery; q != "" {
		next += "?" + q
	}
	return "/login?next=" + url.QueryEscape(next)
}

type SectionResponse struct {
	Section          string    `json:"section"`
	User             user.User `json:"user"`
	ViewingAsStudent bool      `json:"viewing_as_student"`
}

func registerSections(e *echo.Echo, opts *Options) {
	e.GET("/login", loginPage)

	guard := sectionGuard(opts)
	for _, section := range user.Sections {
		g := e.Group(section, guard)
		g.GET("", sectionHome(section))
		g.GET("/*", sectionHome(section))
	}
}

func sectionHome(section string) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		usr, _ := ctx.Get(contextUserKey).(user.User)
		claims, _ := getContextClaims(ctx)
		return ctx.JSON(http.StatusOK, SectionResponse{
			Section:          section,
			User:             usr,
			ViewingAsStudent: claims.ViewingAsStudent,
		})
	}
}

func loginPage(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{"next": ctx.QueryParam("next")})
}
