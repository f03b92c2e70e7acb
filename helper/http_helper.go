package helper

import (
	"errors"
	"log/slog"
	"net/http"
	"reflect"

	"kb-portal/models"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

const (
	textError             = `error`
	textOk                = `ok`
	codeSuccess           = 200
	codeCreated           = 201
	codeBadRequestError   = 400
	codeUnauthorizedError = 401
	codeForbiddenError    = 403
	codeNotFound          = 404
	codeConflictError     = 409
	codeValidationError   = 422
	codeInternalError     = 500
)

// ResponseHelper ...
type ResponseHelper struct {
	C        *gin.Context
	Status   string
	Message  string
	Data     interface{}
	Code     int
	CodeType string
}

// HTTPHelper ...
type HTTPHelper struct {
	Validate   *validator.Validate
	Translator ut.Translator
}

// NewHTTPHelper hooks English messages into gin's binding validator.
func NewHTTPHelper() *HTTPHelper {
	h := &HTTPHelper{}
	uni := ut.New(en.New())
	h.Translator, _ = uni.GetTranslator("en")
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		h.Validate = v
		if err := en_translations.RegisterDefaultTranslations(v, h.Translator); err != nil {
			slog.Warn("register validator translations", "error", err)
		}
	}
	return h
}

func (u *HTTPHelper) getTypeData(i interface{}) string {
	v := reflect.ValueOf(i)
	v = reflect.Indirect(v)

	return v.Type().String()
}

// GetStatusCode ...
func (u *HTTPHelper) GetStatusCode(err error) int {
	statusCode := http.StatusOK
	if err != nil {
		switch u.getTypeData(err) {
		case "models.ErrorUnauthorized":
			statusCode = http.StatusUnauthorized
		case "models.ErrorForbidden":
			statusCode = http.StatusForbidden
		case "models.ErrorNotFound":
			statusCode = http.StatusNotFound
		case "models.ErrorConflict":
			statusCode = http.StatusConflict
		case "models.ErrorValidation":
			statusCode = http.StatusUnprocessableEntity
		case "models.ErrorInternalServer":
			statusCode = http.StatusInternalServerError
		default:
			statusCode = http.StatusInternalServerError
		}
	}

	return statusCode
}

// SetResponse ...
func (u *HTTPHelper) SetResponse(c *gin.Context, status string, message string, data interface{}, code int, codeType string) ResponseHelper {
	return ResponseHelper{c, status, message, data, code, codeType}
}

// SendError ...
// Send error response to consumers.
func (u *HTTPHelper) SendError(c *gin.Context, message string, data interface{}, code int, codeType string) error {
	res := u.SetResponse(c, textError, message, data, code, codeType)

	return u.SendResponse(res)
}

// SendBadRequest ...
func (u *HTTPHelper) SendBadRequest(c *gin.Context, message string, data interface{}) error {
	return u.SendError(c, message, data, codeBadRequestError, `badRequest`)
}

// SendValidationError sends a field -> messages map.
func (u *HTTPHelper) SendValidationError(c *gin.Context, fields map[string][]string) error {
	return u.SendError(c, "validation failed", gin.H{"errors": fields}, codeValidationError, `validationError`)
}

// SendBindError reports a request body or query that failed to bind.
func (u *HTTPHelper) SendBindError(c *gin.Context, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return u.SendValidationError(c, u.FieldErrors(verrs))
	}
	return u.SendBadRequest(c, err.Error(), u.EmptyJsonMap())
}

// FieldErrors translates validator errors into snake_case field keys.
func (u *HTTPHelper) FieldErrors(verrs validator.ValidationErrors) map[string][]string {
	out := map[string][]string{}
	var translated validator.ValidationErrorsTranslations
	if u.Translator != nil {
		translated = verrs.Translate(u.Translator)
	}
	for _, fe := range verrs {
		key := Underscore(fe.StructField())
		msg := translated[fe.Namespace()]
		if msg == "" {
			msg = fe.Error()
		}
		out[key] = append(out[key], msg)
	}
	return out
}

// SendUnauthorizedError ...
func (u *HTTPHelper) SendUnauthorizedError(c *gin.Context, message string, data interface{}) error {
	return u.SendError(c, message, data, codeUnauthorizedError, `unAuthorized`)
}

// SendForbiddenError ...
func (u *HTTPHelper) SendForbiddenError(c *gin.Context, message string, data interface{}) error {
	return u.SendError(c, message, data, codeForbiddenError, `forbidden`)
}

// SendNotFoundError ...
func (u *HTTPHelper) SendNotFoundError(c *gin.Context, message string, data interface{}) error {
	return u.SendError(c, message, data, codeNotFound, `notFound`)
}

// SendServiceError maps an error returned by a service onto the envelope.
func (u *HTTPHelper) SendServiceError(c *gin.Context, err error) error {
	var (
		notFound   models.ErrorNotFound
		forbidden  models.ErrorForbidden
		validation models.ErrorValidation
		conflict   models.ErrorConflict
		unauth     models.ErrorUnauthorized
	)
	switch {
	case errors.As(err, &validation):
		return u.SendValidationError(c, validation.Fields)
	case errors.As(err, &forbidden):
		var data interface{} = u.EmptyJsonMap()
		if forbidden.Denied != nil {
			data = forbidden.Denied
		}
		return u.SendForbiddenError(c, forbidden.Error(), data)
	case errors.As(err, &notFound):
		return u.SendNotFoundError(c, notFound.Error(), u.EmptyJsonMap())
	case errors.As(err, &conflict):
		return u.SendError(c, conflict.Error(), u.EmptyJsonMap(), codeConflictError, `conflict`)
	case errors.As(err, &unauth):
		return u.SendUnauthorizedError(c, unauth.Error(), u.EmptyJsonMap())
	}
	slog.ErrorContext(c.Request.Context(), "request failed",
		"method", c.Request.Method, "path", c.FullPath(), "error", err)
	return u.SendError(c, "internal server error", u.EmptyJsonMap(), codeInternalError, `internalServerError`)
}

// SendSuccess ...
func (u *HTTPHelper) SendSuccess(c *gin.Context, message string, data interface{}) error {
	res := u.SetResponse(c, textOk, message, data, codeSuccess, `success`)

	return u.SendResponse(res)
}

// SendCreated ...
func (u *HTTPHelper) SendCreated(c *gin.Context, message string, data interface{}) error {
	res := u.SetResponse(c, textOk, message, data, codeCreated, `created`)

	return u.SendResponse(res)
}

// SendPaginated wraps a page of items with its meta.
func (u *HTTPHelper) SendPaginated(c *gin.Context, items interface{}, total int64, p Page) error {
	return u.SendSuccess(c, "", Paginated{Items: items, Meta: BuildMeta(total, p)})
}

// SendResponse writes the envelope; Code doubles as the HTTP status.
func (u *HTTPHelper) SendResponse(res ResponseHelper) error {
	if len(res.Message) == 0 {
		res.Message = `success`
	}

	status := res.Code
	if http.StatusText(status) == "" {
		status = http.StatusBadRequest
	}

	res.C.JSON(status, map[string]interface{}{
		"code":         res.Code,
		"code_type":    res.CodeType,
		"code_message": res.Message,
		"data":         res.Data,
	})
	return nil
}

func (u *HTTPHelper) EmptyJsonMap() map[string]interface{} {
	return make(map[string]interface{})
}
