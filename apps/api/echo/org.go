package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/audit"
	"github.com/trezcool/darasa/core/org"
	"github.com/trezcool/darasa/core/user"
)

type orgApi struct {
	svc      org.Service
	userSvc  user.Service
	auditSvc audit.Service
	validate *validator.Validate
}

func registerOrgAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := orgApi{
		svc:      opts.OrgSvc,
		userSvc:  opts.UserSvc,
		auditSvc: opts.AuditSvc,
		validate: opts.Validate,
	}

	og := g.Group("/orgs", jwt)
	og.GET("", api.query)

	admin := orgAdminMiddleware(api.userSvc)
	og.GET("/:id", api.retrieve, admin)
	og.PUT("/:id", api.update, admin)
	og.GET("/:id/courses", api.queryCourses, admin)
	og.POST("/:id/courses", api.createCourse, admin)
	og.GET("/:id/audit", api.queryAudit, admin)

	// course inventory of the authenticated staff member
	cg := g.Group("/courses", jwt, staffMiddleware(api.userSvc))
	cg.GET("", api.queryStaffCourses)
}

// Handlers

func (api *orgApi) query(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if !usr.IsOrgAdmin() {
		return errHttpForbidden
	}

	orgs, err := api.svc.QueryForAdmin(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "querying organizations")
	}
	return ctx.JSON(http.StatusOK, orgs)
}

func (api *orgApi) retrieve(ctx echo.Context) error {
	o, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding organization")
	}
	return ctx.JSON(http.StatusOK, o)
}

func (api *orgApi) update(ctx echo.Context) error {
	var data org.UpdateOrganization
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateOrganization")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	o, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating organization")
	}
	return ctx.JSON(http.StatusOK, o)
}

func (api *orgApi) queryCourses(ctx echo.Context) error {
	courses, err := api.svc.CoursesByOrg(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *orgApi) createCourse(ctx echo.Context) error {
	var data org.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.CreateCourse(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *orgApi) queryAudit(ctx echo.Context) error {
	var filter audit.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}

	events, err := api.auditSvc.Query(ctx.Request().Context(), ctx.Param("id"), filter)
	if err != nil {
		return errors.Wrap(err, "querying audit events")
	}
	if events == nil {
		events = []audit.Event{}
	}
	return ctx.JSON(http.StatusOK, events)
}

func (api *orgApi) queryStaffCourses(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	courses, err := api.svc.CoursesForStaff(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "querying staff courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}
