package utils

import (
	"github.com/go-playground/validator/v10"
	"github.com/kataras/iris/v12"
)

func CreateError(statusCode int, title string, detail string, ctx iris.Context) {
	ctx.StopWithProblem(statusCode, iris.NewProblem().Title(title).Detail(detail))
}

func CreateInternalServerError(ctx iris.Context) {
	CreateError(iris.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred.", ctx)
}

func CreateNotFound(ctx iris.Context) {
	CreateError(iris.StatusNotFound, "Not Found", "Resource not found.", ctx)
}

func CreateForbidden(ctx iris.Context) {
	CreateError(iris.StatusForbidden, "Forbidden", "You are not allowed to perform this action.", ctx)
}

func CreateEmailAlreadyRegistered(ctx iris.Context) {
	CreateError(iris.StatusConflict, "Registration Error", "Email already registered.", ctx)
}

type validationError struct {
	ActualTag string      `json:"tag"`
	Namespace string      `json:"namespace"`
	Kind      string      `json:"kind"`
	Type      string      `json:"type"`
	Value     interface{} `json:"value"`
	Param     string      `json:"param"`
}

func wrapValidationErrors(errs validator.ValidationErrors) []validationError {
	validationErrors := make([]validationError, 0, len(errs))
	for _, validationErr := range errs {
		validationErrors = append(validationErrors, validationError{
			ActualTag: validationErr.ActualTag(),
			Namespace: validationErr.Namespace(),
			Kind:      validationErr.Kind().String(),
			Type:      validationErr.Type().String(),
			Value:     validationErr.Value(),
			Param:     validationErr.Param(),
		})
	}
	return validationErrors
}

// HandleValidationErrors renders validator.ValidationErrors from ctx.ReadJSON
// as a problem response; anything else is treated as a malformed body.
func HandleValidationErrors(err error, ctx iris.Context) {
	if errs, ok := err.(validator.ValidationErrors); ok {
		ctx.StopWithProblem(iris.StatusBadRequest, iris.NewProblem().
			Title("Validation error").
			Detail("One or more fields failed validation.").
			Key("errors", wrapValidationErrors(errs)))
		return
	}
	CreateError(iris.StatusBadRequest, "Bad Request", "Malformed request body.", ctx)
}
