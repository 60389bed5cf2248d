package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/formportal/core"
	"github.com/trezcool/formportal/core/form"
	"github.com/trezcool/formportal/core/student"
)

type (
	studentApi struct {
		svc   *student.Service
		forms FormSource
	}

	CreateUserResponse struct {
		Message string          `json:"message"`
		User    student.Student `json:"user"`
	}
)

func registerStudentAPI(app *echo.Echo, svc *student.Service, forms FormSource) {
	api := studentApi{svc: svc, forms: forms}

	app.POST("/create-user", api.create)
	app.GET("/get-form", api.getForm, requireQueryParams("rollNumber"))
}

const studentCtxKey = "student"

// setStudent records whom the request is about, for error reports.
func setStudent(ctx echo.Context, std student.Student) {
	ctx.Set(studentCtxKey, std)
}

// Handlers

func (api *studentApi) create(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	setStudent(ctx, student.Student{RollNumber: core.CleanString(data.RollNumber), Name: core.CleanString(data.Name)})

	std, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		if errors.Cause(err) == student.ErrExists {
			return newAPIError(http.StatusConflict, codeUserExists,
				"User with roll number %s already exists", core.CleanString(data.RollNumber))
		}
		return errors.Wrap(err, "registering student")
	}

	return ctx.JSON(http.StatusCreated, CreateUserResponse{Message: "User created successfully", User: std})
}

func (api *studentApi) getForm(ctx echo.Context) error {
	rollNumber := core.CleanString(ctx.QueryParam("rollNumber"))
	setStudent(ctx, student.Student{RollNumber: rollNumber})
	std, err := api.svc.Get(ctx.Request().Context(), rollNumber)
	if err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return newAPIError(http.StatusNotFound, codeUserNotFound, "Student with roll number %s not found", rollNumber)
		}
		return errors.Wrap(err, "getting student")
	}
	setStudent(ctx, std)

	schema, err := api.forms.Schema()
	if err != nil {
		return errors.Wrap(err, "loading form")
	}
	return ctx.JSON(http.StatusOK, form.Response{Message: "Form fetched successfully", Form: schema})
}
