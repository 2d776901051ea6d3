package transport

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"archie/internal/domain/entity"
)

// validate is a singleton validator instance
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("diagramtype", func(fl validator.FieldLevel) bool {
		kind := entity.ParseDiagramType(fl.Field().String())
		return kind.IsDerived() || isRenderable(kind)
	})
	return v
}

func isRenderable(kind entity.DiagramType) bool {
	for _, k := range entity.RenderableKinds {
		if k == kind {
			return true
		}
	}
	return false
}

func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate request: %w", err)
	}
	fields := make([]entity.FieldError, 0, len(verrs))
	for _, e := range verrs {
		fields = append(fields, fieldError(e))
	}
	return &entity.ValidationError{Fields: fields}
}

// fieldError converts validator errors to a more user-friendly format
func fieldError(e validator.FieldError) entity.FieldError {
	field := e.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}

	var msg string
	switch e.Tag() {
	case "required":
		msg = "field is required"
	case "required_without":
		msg = fmt.Sprintf("field is required when %s is empty", e.Param())
	case "oneof":
		msg = fmt.Sprintf("must be one of [%s]", e.Param())
	case "diagramtype":
		msg = "must be one of [CLASS SEQUENCE USE_CASE COMPONENT ERD DATABASE API]"
	default:
		msg = fmt.Sprintf("validation failed (%s)", e.Tag())
	}
	return entity.FieldError{Field: field, Rule: e.Tag(), Message: fmt.Sprintf("%s: %s", field, msg)}
}
