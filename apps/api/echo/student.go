package echoapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ocuweb/classpoints/core/student"
)

type studentApi struct {
	deps *ServerDeps
}

func registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *ServerDeps) {
	api := studentApi{deps: deps}

	// un-authed endpoints
	g.POST("/auth/login", api.login)
	g.GET("/achievements", api.catalog)

	// authed endpoints
	mg := g.Group("/me", jwt)
	mg.GET("", api.retrieve)
	mg.POST("/lectures/:num/view", api.trackLectureView)
	mg.POST("/social/:kind", api.trackSocialActivity)

	g.GET("/leaderboard", api.leaderboard, jwt)
}

// Handlers

func (api *studentApi) login(ctx echo.Context) error {
	var data student.Credentials
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Credentials")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	sess, err := api.deps.StudentSvc.Authenticate(ctx.Request().Context(), data.StudentID, data.Pin)
	if err != nil {
		if errors.Cause(err) == student.ErrInvalidPin {
			return errAuthenticationFailed
		}
		return errors.Wrap(err, "authenticating")
	}

	token, err := GenerateToken(GetStudentClaims(sess, api.deps.Conf), api.deps.Conf)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	granted := sess.Granted
	if granted == nil {
		granted = []student.Achievement{}
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, Student: sess.Progress, IsNew: sess.IsNew, Granted: granted})
}

func (api *studentApi) catalog(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.deps.StudentSvc.Catalog())
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	sess, err := api.contextSession(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sess.Progress)
}

func (api *studentApi) trackLectureView(ctx echo.Context) error {
	var data LectureViewRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LectureViewRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	sess, err := api.contextSession(ctx)
	if err != nil {
		return err
	}
	eff, err := api.deps.StudentSvc.TrackLectureView(ctx.Request().Context(), sess, ctx.Param("num"), data.Title, nil)
	if err != nil {
		return errors.Wrap(err, "tracking lecture view")
	}
	return ctx.JSON(http.StatusOK, newTrackResponse(eff, sess))
}

func (api *studentApi) trackSocialActivity(ctx echo.Context) error {
	sess, err := api.contextSession(ctx)
	if err != nil {
		return err
	}
	eff, err := api.deps.StudentSvc.TrackSocialActivity(ctx.Request().Context(), sess, ctx.Param("kind"))
	if err != nil {
		if errors.Cause(err) == student.ErrUnknownSocialAction {
			return err
		}
		return errors.Wrap(err, "tracking social activity")
	}
	return ctx.JSON(http.StatusOK, newTrackResponse(eff, sess))
}

func (api *studentApi) leaderboard(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	// viewing the board is itself a tracked social action for students
	if !claims.IsAdmin {
		if sess, serr := api.deps.StudentSvc.Resume(ctx.Request().Context(), claims.StudentID, claims.Handle); serr == nil {
			if _, terr := api.deps.StudentSvc.TrackSocialActivity(ctx.Request().Context(), sess, "view_leaderboard"); terr != nil {
				api.deps.Logger.Warn(fmt.Sprintf("tracking leaderboard view for %q: %v", claims.StudentID, terr), terr)
			}
		}
	}

	entries, err := api.deps.StudentSvc.Leaderboard(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "loading leaderboard")
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *studentApi) contextSession(ctx echo.Context) (*student.Session, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "getting context claims")
	}
	if claims.StudentID == "" || claims.Handle == "" {
		return nil, errUnauthorized
	}
	sess, err := api.deps.StudentSvc.Resume(ctx.Request().Context(), claims.StudentID, claims.Handle)
	if err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return nil, errHttpNotFound
		}
		return nil, errors.Wrap(err, "resuming session")
	}
	return sess, nil
}
