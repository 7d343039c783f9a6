package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/silabo/core"
	"github.com/trezcool/silabo/core/syllabus"
	"github.com/trezcool/silabo/core/user"
)

var errSylNotFoundInCtx = errors.New("syllabus object not found in echo.Context")

type syllabusApi struct {
	svc    *syllabus.Service
	cmtSvc *syllabus.CommentService
	usrSvc *user.Service
}

func registerSyllabusAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *syllabus.Service,
	cmtSvc *syllabus.CommentService,
	usrSvc *user.Service,
) {
	api := syllabusApi{svc: svc, cmtSvc: cmtSvc, usrSvc: usrSvc}

	sg := g.Group("/syllabi", jwt)
	sg.POST("", api.create)
	sg.GET("", api.query)

	dg := sg.Group("/:id", api.objectMiddleware())
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy, adminMiddleware())
	dg.POST("/submit", api.submit)
	dg.POST("/review", api.review, reviewerMiddleware())
	dg.POST("/archive", api.archive, adminMiddleware())

	cg := dg.Group("/comments")
	cg.GET("", api.queryComments)
	cg.POST("", api.addComment)
	cg.PUT("/:commentID", api.editComment)
	cg.DELETE("/:commentID", api.destroyComment)
	cg.POST("/:commentID/resolve", api.resolveComment)
}

// objectMiddleware loads the syllabus once per detail request. Lecturers
// see their own documents; reviewers and admins see all.
func (api *syllabusApi) objectMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			ctxUsr, err := getContextUser(ctx, api.usrSvc)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}

			s, err := api.svc.GetByID(ctx.Param("id"))
			if err != nil {
				if errors.Cause(err) == syllabus.ErrNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding syllabus by ID")
			}
			if !(ctxUsr.IsAdmin() || ctxUsr.IsReviewer() || s.LecturerID == ctxUsr.ID) {
				return errHttpNotFound
			}

			ctx.Set("object", s)
			return next(ctx)
		}
	}
}

func contextSyllabus(ctx echo.Context) (syllabus.Syllabus, error) {
	s, ok := ctx.Get("object").(syllabus.Syllabus)
	if !ok {
		return syllabus.Syllabus{}, errors.Wrap(errSylNotFoundInCtx, "retrieving object from context")
	}
	return s, nil
}

// Handlers

func (api *syllabusApi) create(ctx echo.Context) error {
	var data syllabus.Syllabus
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Syllabus")
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	data.LecturerID = ctxUsr.ID
	data.LecturerName = ctxUsr.Name

	s, err := api.svc.Create(data)
	if err != nil {
		return errors.Wrap(err, "creating syllabus")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *syllabusApi) query(ctx echo.Context) error {
	filter := new(syllabus.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []syllabus.Syllabus{})
	}
	filter.Clean()

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	// lecturers only ever see their own syllabi
	if !(ctxUsr.IsAdmin() || ctxUsr.IsReviewer()) {
		filter.LecturerID = ctxUsr.ID
	}

	syllabi, err := api.svc.Filter(*filter)
	if err != nil {
		return errors.Wrap(err, "querying syllabi")
	}
	if syllabi == nil {
		syllabi = []syllabus.Syllabus{}
	}
	return ctx.JSON(http.StatusOK, syllabi)
}

func (api *syllabusApi) retrieve(ctx echo.Context) error {
	s, err := contextSyllabus(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *syllabusApi) update(ctx echo.Context) error {
	s, err := contextSyllabus(ctx)
	if err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err := core.AuthorizeOwner(ctxUsr.ID, &s, "you may only edit your own syllabi"); err != nil {
		if !ctxUsr.IsAdmin() {
			return err
		}
	}

	var data syllabus.Syllabus
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Syllabus")
	}

	updated, err := api.svc.Update(s.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating syllabus")
	}
	return ctx.JSON(http.StatusOK, updated)
}

func (api *syllabusApi) destroy(ctx echo.Context) error {
	s, err := contextSyllabus(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(s.ID); err != nil {
		return errors.Wrap(err, "deleting syllabus")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *syllabusApi) submit(ctx echo.Context) error {
	s, err := contextSyllabus(ctx)
	if err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err := core.AuthorizeOwner(ctxUsr.ID, &s, "you may only submit your own syllabi"); err != nil {
		return err
	}

	submitted, err := api.svc.SubmitForReview(s.ID)
	if err != nil {
		if errors.Cause(err) == syllabus.ErrIllegalTransition {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return err
	}
	return ctx.JSON(http.StatusOK, submitted)
}

func (api *syllabusApi) review(ctx echo.Context) error {
	s, err := contextSyllabus(ctx)
	if err != nil {
		return err
	}

	var data ReviewRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReviewRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	reviewed, err := api.svc.Review(s.ID, data.Approve, data.Note, ctxUsr)
	if err != nil {
		if errors.Cause(err) == syllabus.ErrIllegalTransition {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return errors.Wrap(err, "reviewing syllabus")
	}
	return ctx.JSON(http.StatusOK, reviewed)
}

func (api *syllabusApi) archive(ctx echo.Context) error {
	s, err := contextSyllabus(ctx)
	if err != nil {
		return err
	}

	archived, err := api.svc.Archive(s.ID)
	if err != nil {
		if errors.Cause(err) == syllabus.ErrIllegalTransition {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return errors.Wrap(err, "archiving syllabus")
	}
	return ctx.JSON(http.StatusOK, archived)
}

// Comment handlers

func (api *syllabusApi) queryComments(ctx echo.Context) error {
	s, err := contextSyllabus(ctx)
	if err != nil {
		return err
	}
	comments, err := api.cmtSvc.ListBySyllabus(s.ID)
	if err != nil {
		return errors.Wrap(err, "querying comments")
	}
	if comments == nil {
		comments = []syllabus.Comment{}
	}
	return ctx.JSON(http.StatusOK, comments)
}

func (api *syllabusApi) addComment(ctx echo.Context) error {
	s, err := contextSyllabus(ctx)
	if err != nil {
		return err
	}

	var data syllabus.NewComment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewComment")
	}
	data.SyllabusID = s.ID

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	c, err := api.cmtSvc.Add(data, ctxUsr)
	if err != nil {
		return errors.Wrap(err, "adding comment")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *syllabusApi) editComment(ctx echo.Context) error {
	c, err := api.authorizeCommentOwner(ctx)
	if err != nil {
		return err
	}

	var data EditCommentRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EditCommentRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	c, err = api.cmtSvc.Edit(c.ID, data.Body)
	if err != nil {
		return errors.Wrap(err, "editing comment")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *syllabusApi) destroyComment(ctx echo.Context) error {
	c, err := api.authorizeCommentOwner(ctx)
	if err != nil {
		return err
	}
	if err := api.cmtSvc.Delete(c.ID); err != nil {
		return errors.Wrap(err, "deleting comment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *syllabusApi) resolveComment(ctx echo.Context) error {
	var data ResolveCommentRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResolveCommentRequest")
	}

	c, err := api.cmtSvc.Resolve(ctx.Param("commentID"), data.Resolved)
	if err != nil {
		if errors.Cause(err) == syllabus.ErrCommentNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "resolving comment")
	}
	return ctx.JSON(http.StatusOK, c)
}

// authorizeCommentOwner applies the ownership gate server-side: only the
// author may edit or delete their comment.
func (api *syllabusApi) authorizeCommentOwner(ctx echo.Context) (syllabus.Comment, error) {
	c, err := api.cmtSvc.ListBySyllabus(ctx.Param("id"))
	if err != nil {
		return syllabus.Comment{}, errors.Wrap(err, "querying comments")
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return syllabus.Comment{}, errors.Wrap(err, "getting context user")
	}

	for _, cmt := range c {
		if cmt.ID == ctx.Param("commentID") {
			if err := core.AuthorizeOwner(ctxUsr.ID, cmt, syllabus.ErrNotOwner.Error()); err != nil {
				return syllabus.Comment{}, err
			}
			return cmt, nil
		}
	}
	return syllabus.Comment{}, errHttpNotFound
}

type (
	ReviewRequest struct {
		Approve bool   `json:"approve"`
		Note    string `json:"note"`
	}

	EditCommentRequest struct {
		Body string `json:"body" validate:"required"`
	}

	ResolveCommentRequest struct {
		Resolved bool `json:"resolved"`
	}
)

func (rr *ReviewRequest) Validate() error {
	rr.Note = core.CleanString(rr.Note)
	if !rr.Approve && rr.Note == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "note", Error: "a note is required when requesting revisions"})
	}
	return nil
}

func (er *EditCommentRequest) Validate() error {
	er.Body = core.CleanString(er.Body)
	return core.Validate.Struct(er)
}
