package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/org"
	"github.com/trezcool/darasa/core/submission"
	"github.com/trezcool/darasa/core/user"
)

type submissionApi struct {
	svc      submission.Service
	orgSvc   org.Service
	userSvc  user.Service
	validate *validator.Validate
}

func registerSubmissionAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := submissionApi{
		svc:      opts.SubmissionSvc,
		orgSvc:   opts.OrgSvc,
		userSvc:  opts.UserSvc,
		validate: opts.Validate,
	}

	cg := g.Group("/courses/:id", jwt)
	cg.POST("/submissions", api.create)
	cg.GET("/submissions", api.query, api.courseStaffMiddleware())
	cg.GET("/submissions/next", api.nextUngraded, api.courseStaffMiddleware())

	sg := g.Group("/submissions", jwt)
	sg.GET("/:id", api.retrieve)
	sg.PUT("/:id/override", api.override)
}

// courseStaffMiddleware only lets staff of the course in the `id` path param
// through. Org admins and superadmins staff every course of their scope.
func (api *submissionApi) courseStaffMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx, api.userSvc)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			ok, err := api.isCourseStaff(ctx, usr, ctx.Param("id"))
			if err != nil {
				return err
			}
			if !ok {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

func (api *submissionApi) isCourseStaff(ctx echo.Context, usr user.User, courseID string) (bool, error) {
	if usr.IsSuperadmin {
		return true, nil
	}
	if role, ok := usr.CourseRole(courseID); ok && role.IsStaff() {
		return true, nil
	}
	if len(usr.OrgAdminOf) > 0 {
		c, err := api.orgSvc.GetCourse(ctx.Request().Context(), courseID)
		if err != nil {
			if errors.Cause(err) == org.ErrCourseNotFound {
				return false, nil
			}
			return false, errors.Wrap(err, "finding course")
		}
		return usr.IsOrgAdminOf(c.OrgID), nil
	}
	return false, nil
}

// Handlers

func (api *submissionApi) create(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	courseID := ctx.Param("id")
	if role, ok := usr.CourseRole(courseID); !ok || role != user.RoleStudent {
		return errHttpForbidden
	}

	var data submission.NewSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubmission")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sub, err := api.svc.Create(ctx.Request().Context(), usr, courseID, data)
	if err != nil {
		return errors.Wrap(err, "creating submission")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *submissionApi) query(ctx echo.Context) error {
	var filter submission.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.CourseID = ctx.Param("id")

	subs, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}
	if subs == nil {
		subs = []submission.Submission{}
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *submissionApi) retrieve(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	sub, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding submission")
	}

	if sub.StudentID != usr.ID {
		staff, err := api.isCourseStaff(ctx, usr, sub.CourseID)
		if err != nil {
			return err
		}
		if !staff {
			return errHttpNotFound
		}
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *submissionApi) override(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	sub, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding submission")
	}
	staff, err := api.isCourseStaff(ctx, usr, sub.CourseID)
	if err != nil {
		return err
	}
	if !staff {
		return errHttpForbidden
	}

	var data submission.Override
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Override")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sub, err = api.svc.Override(ctx.Request().Context(), usr, sub.ID, data)
	if err != nil {
		return errors.Wrap(err, "overriding grade")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *submissionApi) nextUngraded(ctx echo.Context) error {
	sub, err := api.svc.NextUngraded(ctx.Request().Context(), ctx.Param("id"), ctx.QueryParam("after"))
	if err != nil {
		if errors.Cause(err) == submission.ErrNoneRemaining {
			return ctx.JSON(http.StatusOK, NextUngradedResponse{Done: true})
		}
		return errors.Wrap(err, "finding next ungraded submission")
	}
	return ctx.JSON(http.StatusOK, NextUngradedResponse{Submission: &sub})
}

type NextUngradedResponse struct {
	Submission *submission.Submission `json:"submission,omitempty"`
	Done       bool                   `json:"done,omitempty"`
}
