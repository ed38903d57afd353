package echoapi

import (
	"github.com/go-playground/validator/v10"

	"github.com/ocuweb/classpoints/core"
	"github.com/ocuweb/classpoints/core/student"
)

type (
	LoginResponse struct {
		Token   string                `json:"token"`
		Student *student.Progress     `json:"student"`
		IsNew   bool                  `json:"isNew,omitempty"`
		Granted []student.Achievement `json:"granted"`
	}

	LectureViewRequest struct {
		Title string `json:"title" validate:"required"`
	}

	// TrackResponse reports what an event changed plus the updated record.
	TrackResponse struct {
		PointsDelta int                   `json:"pointsDelta"`
		FirstView   bool                  `json:"firstView,omitempty"`
		Completed   bool                  `json:"completed,omitempty"`
		Granted     []student.Achievement `json:"granted"`
		Student     *student.Progress     `json:"student"`
	}

	AdminLoginRequest struct {
		Password string `json:"password" validate:"required"`
	}

	TokenResponse struct {
		Token string `json:"token"`
	}

	RegisterRequest struct {
		StudentID string `json:"studentId" validate:"required,studentid"`
	}

	RegisterResponse struct {
		Student *student.Progress `json:"student"`
		IsNew   bool              `json:"isNew,omitempty"`
	}

	AwardRequest struct {
		Points int    `json:"points" validate:"required,gt=0"`
		Reason string `json:"reason" validate:"required"`
	}

	AttendanceMarkRequest struct {
		StudentID string `json:"studentId" validate:"required,studentid"`
		Date      string `json:"date" validate:"required,datetime=2006-01-02"`
		Late      bool   `json:"late"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func newTrackResponse(eff student.Effects, sess *student.Session) TrackResponse {
	granted := eff.Granted
	if granted == nil {
		granted = []student.Achievement{}
	}
	return TrackResponse{
		PointsDelta: eff.PointsDelta,
		FirstView:   eff.FirstView,
		Completed:   eff.Completed,
		Granted:     granted,
		Student:     sess.Progress,
	}
}

func (lr *LectureViewRequest) Validate(validate *validator.Validate) error {
	lr.Title = core.CleanString(lr.Title)
	return validate.Struct(lr)
}

func (ar *AdminLoginRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(ar)
}

func (rr *RegisterRequest) Validate(validate *validator.Validate) error {
	rr.StudentID = core.CleanString(rr.StudentID, true /* lower */)
	return validate.Struct(rr)
}

func (ar *AwardRequest) Validate(validate *validator.Validate) error {
	ar.Reason = core.CleanString(ar.Reason)
	return validate.Struct(ar)
}

func (ar *AttendanceMarkRequest) Validate(validate *validator.Validate) error {
	ar.StudentID = core.CleanString(ar.StudentID, true /* lower */)
	return validate.Struct(ar)
}
