package echoapi

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ocuweb/classpoints/core/attendance"
	"github.com/ocuweb/classpoints/core/student"
)

type adminApi struct {
	deps *ServerDeps
}

func registerAdminAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *ServerDeps) {
	api := adminApi{deps: deps}

	ag := g.Group("/admin")
	ag.POST("/login", api.login)

	// authed, admin-only endpoints
	pg := ag.Group("", jwt, adminMiddleware())
	pg.GET("/students", api.listStudents)
	pg.POST("/students", api.register)
	pg.POST("/students/:id/award", api.award)
	pg.DELETE("/students/:id", api.destroy)
	pg.GET("/attendance", api.attendanceOverview)
	pg.POST("/attendance", api.markAttendance)
	pg.GET("/attendance/:id/history", api.attendanceHistory)
	pg.DELETE("/attendance/:id/:date", api.unmarkAttendance)
}

// Handlers

func (api *adminApi) login(ctx echo.Context) error {
	var data AdminLoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AdminLoginRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	want := api.deps.Conf.AdminPassword
	if want == "" || subtle.ConstantTimeCompare([]byte(data.Password), []byte(want)) != 1 {
		return errAuthenticationFailed
	}

	token, err := GenerateToken(GetAdminClaims(api.deps.Conf), api.deps.Conf)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token})
}

func (api *adminApi) listStudents(ctx echo.Context) error {
	entries, err := api.deps.StudentSvc.Leaderboard(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing students")
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *adminApi) register(ctx echo.Context) error {
	var data RegisterRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RegisterRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	sess, err := api.deps.StudentSvc.Register(ctx.Request().Context(), data.StudentID)
	if err != nil {
		return errors.Wrap(err, "registering student")
	}
	status := http.StatusOK
	if sess.IsNew {
		status = http.StatusCreated
	}
	return ctx.JSON(status, RegisterResponse{Student: sess.Progress, IsNew: sess.IsNew})
}

func (api *adminApi) award(ctx echo.Context) error {
	var data AwardRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AwardRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	rctx := ctx.Request().Context()
	sess, err := api.deps.StudentSvc.Lookup(rctx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "looking up student")
	}
	eff, err := api.deps.StudentSvc.AwardPoints(rctx, sess, data.Points, data.Reason)
	if err != nil {
		return errors.Wrap(err, "awarding points")
	}
	// a manual award also counts toward the instructor-recognition badge
	if _, err := api.deps.StudentSvc.TrackSocialActivity(rctx, sess, "instructor_award"); err != nil {
		return errors.Wrap(err, "tracking instructor award")
	}
	return ctx.JSON(http.StatusOK, newTrackResponse(eff, sess))
}

func (api *adminApi) destroy(ctx echo.Context) error {
	if err := api.deps.StudentSvc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *adminApi) attendanceOverview(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	records, err := api.deps.StudentSvc.ListAll(rctx)
	if err != nil {
		return errors.Wrap(err, "listing students")
	}
	roster := make([]string, 0, len(records))
	for id := range records {
		roster = append(roster, id)
	}

	ov, err := api.deps.AttendanceSvc.Overview(rctx, roster)
	if err != nil {
		return errors.Wrap(err, "computing attendance overview")
	}
	return ctx.JSON(http.StatusOK, ov)
}

func (api *adminApi) markAttendance(ctx echo.Context) error {
	var data AttendanceMarkRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AttendanceMarkRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	if err := api.deps.AttendanceSvc.Mark(ctx.Request().Context(), data.StudentID, data.Date, data.Late); err != nil {
		return errors.Wrap(err, "marking attendance")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "attendance marked"})
}

func (api *adminApi) attendanceHistory(ctx echo.Context) error {
	recs, err := api.deps.AttendanceSvc.History(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "loading attendance history")
	}
	if recs == nil {
		recs = []attendance.Record{}
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *adminApi) unmarkAttendance(ctx echo.Context) error {
	err := api.deps.AttendanceSvc.Unmark(ctx.Request().Context(), ctx.Param("id"), ctx.Param("date"))
	if err != nil {
		return errors.Wrap(err, "unmarking attendance")
	}
	return ctx.NoContent(http.StatusNoContent)
}
